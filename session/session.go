// Package session tracks logged-in users. The browser holds a signed JWT
// naming a session id; the session itself lives in Redis so logging out
// revokes the token before it expires.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSession means the token is missing, invalid, expired or revoked.
var ErrNoSession = errors.New("no active session")

type Manager struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(rdb *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{rdb: rdb, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create opens a session for the user and returns the signed token.
func (m *Manager) Create(ctx context.Context, userID uint) (string, error) {
	id := uuid.NewString()
	now := m.now()

	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	if err := m.rdb.Set(ctx, sessionKey(id), userID, m.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the user id of a live session.
func (m *Manager) Resolve(ctx context.Context, token string) (uint, error) {
	claims, err := m.parse(token, true)
	if err != nil {
		return 0, err
	}

	stored, err := m.rdb.Get(ctx, sessionKey(claims.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	if stored != claims.Subject {
		return 0, ErrNoSession
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrNoSession
	}
	return uint(id), nil
}

// Destroy revokes the session behind token. Unknown or malformed tokens
// are ignored.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token, false)
	if err != nil {
		return nil
	}
	return m.rdb.Del(ctx, sessionKey(claims.ID)).Err()
}

func (m *Manager) parse(token string, checkExpiry bool) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}

type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey{}).(uint)
	return id, ok
}

// WithoutUser returns a context that no longer carries a user id.
func WithoutUser(ctx context.Context) context.Context {
	return context.WithValue(ctx, userIDKey{}, nil)
}
