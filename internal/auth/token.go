package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rentalhub/rentalhub-be/internal/models"
)

// ErrInvalidToken indicates the bearer token failed verification or carried
// unusable claims.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and verifies signed JWTs carrying {id, role}.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// Claims is the application view of a verified token. Role selects the
// account partition and is trusted as-is by the resolver.
type Claims struct {
	ActorID int64
	Role    models.Role
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed JWT string for the provided actor.
func (t *TokenManager) Generate(actor models.Actor) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  t.issuer,
		"sub":  strconv.FormatInt(actor.ID, 10),
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the token signature and extracts the {id, role} claims.
func (t *TokenManager) Parse(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, err := mapClaims.GetSubject()
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	roleStr, _ := mapClaims["role"].(string)
	role := models.Role(roleStr)
	if !role.Valid() {
		return Claims{}, ErrInvalidToken
	}
	return Claims{ActorID: id, Role: role}, nil
}
