package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"stocks-simulator/database"
	"stocks-simulator/database/dbtest"
	"stocks-simulator/handlers"
	"stocks-simulator/logger"
	"stocks-simulator/middleware"
	"stocks-simulator/quotes/quotestest"
	"stocks-simulator/session"
	"stocks-simulator/trading"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const cookieName = "session"

type testServer struct {
	router *gin.Engine
	quotes *quotestest.Provider
	users  database.UserRepository
	txns   database.TransactionRepository
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := database.NewStore(dbtest.Open(t))
	users := database.NewUserRepository(store)
	txns := database.NewTransactionRepository(store)
	q := quotestest.New()
	log := logger.NewNop()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := trading.NewService(store, users, txns, q, log, trading.Options{
		StartingCash: decimal.NewFromInt(10000),
		BcryptCost:   bcrypt.MinCost,
	})
	h := handlers.New(svc, session.NewManager(rdb, "secret", time.Hour), handlers.CookieConfig{Name: cookieName}, log)

	r, err := h.Router(limiter)
	require.NoError(t, err)
	return &testServer{router: r, quotes: q, users: users, txns: txns}
}

func (s *testServer) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) post(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func (s *testServer) register(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := s.post(t, "/register", url.Values{
		"username":     {username},
		"password":     {"hunter2"},
		"confirmation": {"hunter2"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	return sessionCookie(t, w)
}

func (s *testServer) cash(t *testing.T, username string) decimal.Decimal {
	t.Helper()
	u, err := s.users.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return u.Cash
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/", "/buy", "/sell", "/addcash", "/quote", "/history", "/history/export"} {
		t.Run(path, func(t *testing.T) {
			w := s.get(t, path, nil)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))
			assert.NotContains(t, w.Body.String(), "CASH")
		})
	}

	w := s.post(t, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1"}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestResponsesAreNotCached(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
}

func TestRegisterAndPortfolio(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.register(t, "alice")

	w := s.get(t, "/", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "$10,000.00")
	assert.Contains(t, w.Body.String(), "Log Out")
}

func TestRegisterRejections(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.post(t, "/register", url.Values{
		"username": {"bob"}, "password": {"a"}, "confirmation": {"b"},
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "passwords do not match")
	_, err := s.users.FindByUsername(context.Background(), "bob")
	assert.ErrorIs(t, err, database.ErrNotFound)

	w = s.post(t, "/register", url.Values{"password": {"a"}, "confirmation": {"a"}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "must provide username")

	s.register(t, "bob")
	w = s.post(t, "/register", url.Values{
		"username": {"bob"}, "password": {"a"}, "confirmation": {"a"},
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "username already taken")
}

func TestLoginLogout(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")

	wrongPassword := s.post(t, "/login", url.Values{"username": {"alice"}, "password": {"nope"}}, nil)
	wrongUser := s.post(t, "/login", url.Values{"username": {"mallory"}, "password": {"hunter2"}}, nil)
	assert.Equal(t, http.StatusForbidden, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, wrongUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), wrongUser.Body.String())
	assert.Contains(t, wrongUser.Body.String(), "invalid username and/or password")

	w := s.post(t, "/login", url.Values{"username": {"alice"}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "must provide password")

	w = s.post(t, "/login", url.Values{"username": {"alice"}, "password": {"hunter2"}}, nil)
	require.Equal(t, http.StatusFound, w.Code)
	cookie := sessionCookie(t, w)
	assert.Equal(t, http.StatusOK, s.get(t, "/", cookie).Code)

	w = s.get(t, "/logout", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = s.get(t, "/", cookie)
	assert.Equal(t, http.StatusFound, w.Code, "revoked session must not authenticate")
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestTradingFlow(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.register(t, "alice")
	s.quotes.SetPrice("NFLX", "Netflix Inc", 100)

	w := s.post(t, "/buy", url.Values{"symbol": {"nflx"}, "shares": {"10"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.True(t, decimal.NewFromInt(9000).Equal(s.cash(t, "alice")))

	s.quotes.SetPrice("NFLX", "Netflix Inc", 120)
	w = s.post(t, "/sell", url.Values{"symbol": {"NFLX"}, "shares": {"5"}}, cookie)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.True(t, decimal.NewFromInt(9600).Equal(s.cash(t, "alice")))

	w = s.post(t, "/sell", url.Values{"symbol": {"NFLX"}, "shares": {"6"}}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "do not have enough shares to sell")
	assert.True(t, decimal.NewFromInt(9600).Equal(s.cash(t, "alice")))

	w = s.get(t, "/", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Netflix Inc")
	assert.Contains(t, body, "$600.00")
	assert.Contains(t, body, "$9,600.00")
	assert.Contains(t, body, "$10,200.00")

	w = s.get(t, "/history", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BUY")
	assert.Contains(t, w.Body.String(), "SELL")
	assert.Contains(t, w.Body.String(), "-5")

	w = s.get(t, "/history/export", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "history.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestTradeValidation(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.register(t, "alice")
	s.quotes.SetPrice("AAPL", "Apple Inc", 200)

	tests := []struct {
		name string
		path string
		form url.Values
		want string
	}{
		{"buy missing symbol", "/buy", url.Values{"shares": {"1"}}, "must provide symbol"},
		{"buy missing shares", "/buy", url.Values{"symbol": {"AAPL"}}, "must input shares to buy"},
		{"buy fractional shares", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1.5"}}, "shares must be a positive integer"},
		{"buy negative shares", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"-1"}}, "shares must be a positive integer"},
		{"buy unknown symbol", "/buy", url.Values{"symbol": {"ZZZZ"}, "shares": {"1"}}, "symbol does not exist"},
		{"buy too expensive", "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"51"}}, "cannot afford shares"},
		{"sell missing shares", "/sell", url.Values{"symbol": {"AAPL"}}, "must input shares to sell"},
		{"sell nothing held", "/sell", url.Values{"symbol": {"AAPL"}, "shares": {"1"}}, "do not have enough shares to sell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.post(t, tt.path, tt.form, cookie)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.True(t, decimal.NewFromInt(10000).Equal(s.cash(t, "alice")))
		})
	}
}

func TestQuote(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.register(t, "alice")
	s.quotes.SetPrice("NFLX", "Netflix Inc", 482.53)

	w := s.get(t, "/quote", cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.post(t, "/quote", url.Values{"symbol": {"nflx"}}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Netflix Inc (NFLX)")
	assert.Contains(t, w.Body.String(), "$482.53")

	for _, symbol := range []string{"", "   "} {
		w = s.post(t, "/quote", url.Values{"symbol": {symbol}}, cookie)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "must provide symbol")
	}

	w = s.post(t, "/quote", url.Values{"symbol": {"ZZZZ"}}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "symbol does not exist")
}

func TestAddCash(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := s.register(t, "alice")

	w := s.post(t, "/addcash", url.Values{}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Please input cash amount")

	w = s.post(t, "/addcash", url.Values{"cashAmount": {"lots"}}, cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "cash amount must be a number")

	w = s.post(t, "/addcash", url.Values{"cashAmount": {"500.25"}}, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, decimal.RequireFromString("10500.25").Equal(s.cash(t, "alice")))
}

func TestCheck(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t, "alice")

	w := s.get(t, "/check?username=alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "true", w.Body.String())

	w = s.get(t, "/check?username=bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "false", w.Body.String())

	w = s.get(t, "/check", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error": "must provide username"}`, w.Body.String())
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, middleware.NewRateLimiter(2))
	form := url.Values{"username": {"alice"}, "password": {"nope"}}

	assert.Equal(t, http.StatusForbidden, s.post(t, "/login", form, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.post(t, "/login", form, nil).Code)
	w := s.post(t, "/login", form, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many attempts")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.get(t, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "page not found")
}
