package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT token claims
type Claims struct {
	UserID string        `json:"user_id"`
	Role   coreuser.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed access token plus the metadata needed to revoke it.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenGenerator creates and verifies access tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID string, role coreuser.Role) (IssuedToken, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	now            func() time.Time
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(secret string, accessTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: accessTTL,
		now:            time.Now,
	}
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID string, role coreuser.Role) (IssuedToken, error) {
	now := j.now()
	expiresAt := now.Add(j.AccessTokenTTL)
	tokenID := uuid.NewString()

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return IssuedToken{Token: tokenString, ID: tokenID, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates a JWT token and returns claims. Expiry is reported
// separately from every other failure.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, internal.ErrInvalidToken
	}

	return claims, nil
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID string
	Role   coreuser.Role
}

type ctxKey string

const ContextActorKey ctxKey = "actor"

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	ctx = internal.ContextWithIdentity(ctx, actor.UserID, string(actor.Role))
	return context.WithValue(ctx, ContextActorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ContextActorKey).(Actor)
	return actor, ok && actor.UserID != ""
}
