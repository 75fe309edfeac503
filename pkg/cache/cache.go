package cache

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"news-sentiment-api/pkg/common"
)

// Key is a structured cache key. Symbols are canonicalized (upper-cased,
// sorted) and query-escaped before rendering so that a symbol containing the
// separator cannot collide with a different field boundary.
type Key struct {
	Prefix  string
	Symbols []string
	Page    int
	Limit   int
}

// NewsKey builds the key for a page of news results.
func NewsKey(symbols []string, page, limit int) Key {
	return Key{
		Prefix:  common.CacheKeyNewsPrefix,
		Symbols: CanonicalSymbols(symbols),
		Page:    page,
		Limit:   limit,
	}
}

// StatsKey builds the key for a sentiment statistics summary.
func StatsKey(symbols []string) Key {
	return Key{
		Prefix:  common.CacheKeyStatsPrefix,
		Symbols: CanonicalSymbols(symbols),
	}
}

// String renders the key. Each symbol is escaped individually.
func (k Key) String() string {
	escaped := make([]string, 0, len(k.Symbols))
	for _, s := range k.Symbols {
		escaped = append(escaped, url.QueryEscape(s))
	}

	var b strings.Builder
	b.WriteString(k.Prefix)
	b.WriteString(":")
	b.WriteString(strings.Join(escaped, ","))
	if k.Prefix == common.CacheKeyNewsPrefix {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(k.Page))
		b.WriteString(":")
		b.WriteString(strconv.Itoa(k.Limit))
	}
	return b.String()
}

// CanonicalSymbols upper-cases, de-duplicates and sorts a symbol filter so
// equivalent filters produce identical keys.
func CanonicalSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Store is a time-bounded key/value store. Values are opaque serialized
// payloads; a Set fully replaces any prior value for the key.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, value []byte) error
	Size(ctx context.Context) (int, error)
}
