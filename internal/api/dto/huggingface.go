package dto

// HuggingFaceRequest is the inference API request body.
type HuggingFaceRequest struct {
	Inputs string `json:"inputs"`
}

// SentimentCandidate is one (label, score) candidate returned by the
// inference API. The response body decodes as [][]SentimentCandidate.
type SentimentCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
