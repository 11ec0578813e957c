package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlphaVantageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "secret", q.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("function") {
		case "GLOBAL_QUOTE":
			switch q.Get("symbol") {
			case "NFLX":
				_, _ = w.Write([]byte(`{"Global Quote": {"01. symbol": "NFLX", "05. price": "482.5300"}}`))
			case "LIMIT":
				_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`))
			case "BROKEN":
				w.WriteHeader(http.StatusBadGateway)
			default:
				_, _ = w.Write([]byte(`{"Global Quote": {}}`))
			}
		case "SYMBOL_SEARCH":
			_, _ = w.Write([]byte(`{"bestMatches": [
				{"1. symbol": "NFLX34.SAO", "2. name": "Netflix BDR"},
				{"1. symbol": "NFLX", "2. name": "Netflix Inc"}
			]}`))
		default:
			t.Errorf("unexpected function %q", q.Get("function"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAlphaVantageLookup(t *testing.T) {
	srv := newAlphaVantageServer(t)
	av := NewAlphaVantage(srv.URL, "secret", time.Second)
	ctx := context.Background()

	q, err := av.Lookup(ctx, " nflx ")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", q.Symbol)
	assert.Equal(t, "Netflix Inc", q.Name)
	assert.True(t, decimal.RequireFromString("482.53").Equal(q.Price))

	_, err = av.Lookup(ctx, "ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = av.Lookup(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = av.Lookup(ctx, "LIMIT")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = av.Lookup(ctx, "BROKEN")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
