package market

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

type AlphaVantageResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

// AlphaVantage fetches GLOBAL_QUOTE prices. It neither caches nor retries.
type AlphaVantage struct {
	client *resty.Client
	apiKey string
}

func NewAlphaVantage(baseURL, apiKey string, timeout time.Duration) *AlphaVantage {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0)
	return &AlphaVantage{client: client, apiKey: apiKey}
}

func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (Quote, bool) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, false
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get("/query")
	if err != nil {
		log.Printf("quote %s: request failed: %v", symbol, err)
		return Quote{}, false
	}
	if resp.StatusCode() != http.StatusOK {
		log.Printf("quote %s: unexpected status %d", symbol, resp.StatusCode())
		return Quote{}, false
	}

	var result AlphaVantageResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		log.Printf("quote %s: failed to parse response: %v", symbol, err)
		return Quote{}, false
	}
	if result.GlobalQuote.Price == "" {
		return Quote{}, false
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil || price < 0 {
		return Quote{}, false
	}

	return Quote{Symbol: symbol, Name: symbol, Price: price}, true
}
