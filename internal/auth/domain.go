package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/healthfin/healthfin/internal/access"
)

var (
	// ErrInvalidToken is returned for bearer tokens that fail verification.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrSessionNotFound is returned when a session cookie has no stored identity.
	ErrSessionNotFound = errors.New("auth: session not found")
)

// Claims is the bearer token payload.
type Claims struct {
	Role        string   `json:"role"`
	Facilities  []int64  `json:"facilities"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// UserContext converts verified claims into the caller identity.
func (c Claims) UserContext() access.UserContext {
	return access.UserContext{
		UserID:                c.Subject,
		Role:                  c.Role,
		AccessibleFacilityIDs: append([]int64(nil), c.Facilities...),
		Permissions:           append([]string(nil), c.Permissions...),
	}
}

// sessionPayload is the JSON stored in Redis per session ID.
type sessionPayload struct {
	UserID      string   `json:"user_id"`
	Role        string   `json:"role"`
	Facilities  []int64  `json:"facilities"`
	Permissions []string `json:"permissions"`
}

func (p sessionPayload) userContext() access.UserContext {
	return access.UserContext{
		UserID:                p.UserID,
		Role:                  p.Role,
		AccessibleFacilityIDs: p.Facilities,
		Permissions:           p.Permissions,
	}
}
