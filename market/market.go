// Package market looks up stock quotes.
//
// Every lookup reports failure the same way: a false second result. Network
// errors, provider errors, unknown symbols and malformed payloads are not
// distinguished for callers.
package market

import (
	"context"
	"strings"
)

type Quote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// Provider returns the latest quote for a symbol, or false when none is
// available.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (Quote, bool)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
