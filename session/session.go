// Package session ties a browser cookie to a logged-in user.
//
// The cookie carries a signed token naming a session id; the session itself
// lives in Redis so that logging out invalidates it server-side.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "session"

type claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

type Manager struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewManager(rdb *redis.Client, secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{rdb: rdb, secret: []byte(secret), ttl: ttl, secure: secure}
}

func key(sid string) string {
	return fmt.Sprintf("session:%s", sid)
}

// Start opens a new session for userID and sets the cookie.
func (m *Manager) Start(c *gin.Context, userID uint) error {
	sid := uuid.NewString()
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	if err := m.rdb.Set(c.Request.Context(), key(sid), userID, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	m.setCookie(c, signed, int(m.ttl.Seconds()))
	return nil
}

// Clear forgets the current session, if any, and expires the cookie.
func (m *Manager) Clear(c *gin.Context) error {
	defer m.setCookie(c, "", -1)

	cl, err := m.parse(c)
	if err != nil {
		return nil
	}
	if err := m.rdb.Del(c.Request.Context(), key(cl.ID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UserID reports the user the request is logged in as.
func (m *Manager) UserID(c *gin.Context) (uint, bool) {
	cl, err := m.parse(c)
	if err != nil {
		return 0, false
	}

	stored, err := m.rdb.Get(c.Request.Context(), key(cl.ID)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseUint(stored, 10, 64)
	if err != nil || uint(id) != cl.UserID {
		return 0, false
	}
	return cl.UserID, true
}

func (m *Manager) parse(c *gin.Context) (*claims, error) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return nil, errors.New("no session cookie")
	}

	cl := &claims{}
	token, err := jwt.ParseWithClaims(raw, cl, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || cl.ID == "" {
		return nil, errors.New("invalid session token")
	}
	return cl, nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, value, maxAge, "/", "", m.secure, true)
}
