package dto

import "time"

// MarketauxResponse is the provider's envelope for GET /v1/news/all.
type MarketauxResponse struct {
	Meta MarketauxMeta      `json:"meta"`
	Data []MarketauxArticle `json:"data"`
}

// MarketauxMeta carries the provider's paging information.
type MarketauxMeta struct {
	Found    int `json:"found"`
	Returned int `json:"returned"`
	Limit    int `json:"limit"`
	Page     int `json:"page"`
}

// MarketauxArticle is one raw provider record.
type MarketauxArticle struct {
	UUID        string            `json:"uuid"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Snippet     string            `json:"snippet"`
	URL         string            `json:"url"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Entities    []MarketauxEntity `json:"entities"`
}

// MarketauxEntity is one tagged entity on a provider record.
type MarketauxEntity struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}
