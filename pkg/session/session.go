// Package session provides the explicit session context of SpecSync.
//
// Every API request that touches projects, screens or annotations runs on
// behalf of a session. The session is resolved once by the HTTP middleware
// and passed down through the request context; nothing below the server reads
// ambient global state to find out who is calling.
//
// This package defines the session storage interface with implementations for
// different backends:
//   - memory: In-memory storage for development/testing
//   - redis: Redis-backed storage for multi-instance deployments
//   - file: File-based storage for the CLI's saved credential
//
// # Usage
//
// Issue a session (done by "specsync session issue"):
//
//	sess, err := session.New("u-42", "Design team", session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
// Resolve it on a request:
//
//	sess, err := store.Get(ctx, session.TokenFromRequest(r))
//	if err != nil || sess == nil {
//	    // reject with 401
//	}
//	ctx = session.WithSession(ctx, sess)
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")
)

// Session identifies the caller of the API. The ID doubles as the bearer
// token and must be kept secret.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Server    string    `json:"server,omitempty"` // API base URL, set on CLI credentials
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TTL returns the time left before the session expires.
func (s *Session) TTL() time.Duration {
	return time.Until(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (optional, may be no-op for Redis).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Default durations.
const (
	// DefaultTTL is the default session duration.
	DefaultTTL = 24 * time.Hour

	// DefaultCleanupInterval is how often expired sessions are swept.
	DefaultCleanupInterval = 10 * time.Minute
)

// CookieName is the cookie carrying the session token for browser clients.
const CookieName = "sid"

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// New creates a new session for userID.
func New(userID, name string, ttl time.Duration) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("session: user id is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Name:      name,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// MockLocal creates a session for local development without provisioning.
// This is used when the server runs with --no-auth.
func MockLocal() *Session {
	now := time.Now()
	return &Session{
		ID:        "local-session",
		UserID:    "local",
		Name:      "Local User",
		ExpiresAt: now.Add(365 * 24 * time.Hour), // Never expires
		CreatedAt: now,
	}
}

// =============================================================================
// Context
// =============================================================================

type contextKey struct{}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok && sess != nil
}

// TokenFromRequest extracts the session token from the Authorization bearer
// header, falling back to the sid cookie. It returns "" when neither is set.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
