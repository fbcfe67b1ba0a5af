package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"signalboard/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextIdentity = "identity"

// SessionCodec signs and verifies the dashboard's session tokens. The token
// carries the caller's platform identity plus the bearer credential the thread
// sync layer forwards on their behalf.
type SessionCodec struct {
	secret     []byte
	expiration time.Duration
}

func NewSessionCodec(secret string, expiration time.Duration) *SessionCodec {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &SessionCodec{secret: []byte(secret), expiration: expiration}
}

// Issue creates a signed session token for the identity.
func (sc *SessionCodec) Issue(ident domain.Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          ident.UserID,
		"name":         ident.DisplayName,
		"avatar":       ident.AvatarURL,
		"access_token": ident.AccessToken,
		"iat":          now.Unix(),
		"exp":          now.Add(sc.expiration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sc.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses a session token back into the identity it was issued for.
func (sc *SessionCodec) Verify(tokenStr string) (domain.Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return sc.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	ident := domain.Identity{
		UserID:      claimString(claims, "sub"),
		DisplayName: claimString(claims, "name"),
		AvatarURL:   claimString(claims, "avatar"),
		AccessToken: claimString(claims, "access_token"),
	}
	if ident.UserID == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return ident, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// RequireSession validates the bearer session token and stashes the caller's
// identity in the request context.
func (h *Handler) RequireSession(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	ident, err := h.sessions.Verify(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	c.Set(contextIdentity, ident)
	c.Next()
}

// identity returns the authenticated caller set by RequireSession.
func identity(c *gin.Context) domain.Identity {
	ident, _ := c.Get(contextIdentity)
	id, _ := ident.(domain.Identity)
	return id
}
