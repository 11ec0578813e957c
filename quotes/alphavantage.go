package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stocks-simulator/models"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// AlphaVantage fetches quotes from the Alpha Vantage query API.
type AlphaVantage struct {
	client *resty.Client
	apiKey string
}

func NewAlphaVantage(baseURL, apiKey string, timeout time.Duration) *AlphaVantage {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &AlphaVantage{client: client, apiKey: apiKey}
}

// Lookup returns the latest price of symbol. The company name comes from a
// symbol search; when that search has no exact match the symbol doubles as
// the name.
func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = Normalize(symbol)
	if symbol == "" {
		return models.Quote{}, ErrNotFound
	}

	var gq globalQuoteResponse
	if err := a.query(ctx, map[string]string{"function": "GLOBAL_QUOTE", "symbol": symbol}, &gq); err != nil {
		return models.Quote{}, err
	}
	if gq.Note != "" || gq.Information != "" {
		return models.Quote{}, fmt.Errorf("alpha vantage refused request: %s%s", gq.Note, gq.Information)
	}
	if gq.GlobalQuote.Price == "" {
		return models.Quote{}, ErrNotFound
	}

	price, err := decimal.NewFromString(gq.GlobalQuote.Price)
	if err != nil {
		return models.Quote{}, fmt.Errorf("parse price %q: %w", gq.GlobalQuote.Price, err)
	}

	quote := models.Quote{Symbol: symbol, Name: symbol, Price: price}
	if gq.GlobalQuote.Symbol != "" {
		quote.Symbol = gq.GlobalQuote.Symbol
	}

	var search symbolSearchResponse
	if err := a.query(ctx, map[string]string{"function": "SYMBOL_SEARCH", "keywords": symbol}, &search); err == nil {
		for _, m := range search.BestMatches {
			if Normalize(m.Symbol) == quote.Symbol && m.Name != "" {
				quote.Name = m.Name
				break
			}
		}
	}

	return quote, nil
}

func (a *AlphaVantage) query(ctx context.Context, params map[string]string, out interface{}) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("apikey", a.apiKey).
		Get("/query")
	if err != nil {
		return fmt.Errorf("alpha vantage %s: %w", params["function"], err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("alpha vantage %s: unexpected status %d", params["function"], resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("alpha vantage %s: decode: %w", params["function"], err)
	}
	return nil
}
