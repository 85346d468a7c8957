package store

import (
	"context"
	"strings"
)

// Store persists the ordered watchlist.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, symbols []string) error
	Close() error
}

// Clean trims and uppercases a symbol.
func Clean(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Dedupe cleans every symbol, drops blanks and keeps the first occurrence of each.
func Dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = Clean(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Add appends symbol unless it is blank or already listed.
func Add(symbols []string, symbol string) ([]string, bool) {
	symbol = Clean(symbol)
	if symbol == "" {
		return symbols, false
	}
	for _, s := range symbols {
		if s == symbol {
			return symbols, false
		}
	}
	return append(symbols, symbol), true
}

// Remove drops every occurrence of symbol.
func Remove(symbols []string, symbol string) ([]string, bool) {
	symbol = Clean(symbol)
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s != symbol {
			out = append(out, s)
		}
	}
	return out, len(out) != len(symbols)
}
