// Package identity resolves who is behind a websocket upgrade request.
// Authentication itself happens at the external OAuth collaborator; this
// adapter only verifies the signed identity token it hands out. A dev mode
// accepts plain query parameters so the engine can run without that service.
package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"thoughtswap/pkg/types"
)

var (
	ErrMissingToken  = errors.New("missing identity token")
	ErrInvalidToken  = errors.New("invalid identity token")
	ErrMissingFields = errors.New("identity token missing name, email, or role")
)

// Claims is the identity payload issued by the auth service.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates identity tokens presented at upgrade time.
type Verifier struct {
	key     []byte
	devMode bool
}

// NewVerifier creates a verifier for HS256 tokens signed with key. With
// devMode set, requests may instead carry name/email/role query parameters.
func NewVerifier(key []byte, devMode bool) *Verifier {
	return &Verifier{key: key, devMode: devMode}
}

// Authenticate extracts the identity from an upgrade request. The token is
// taken from the Authorization bearer header or, for browser websocket
// clients that cannot set headers, the "token" query parameter.
func (v *Verifier) Authenticate(r *http.Request) (types.Identity, error) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		if v.devMode {
			return v.fromQuery(r)
		}
		return types.Identity{}, ErrMissingToken
	}

	claims, err := v.parse(token)
	if err != nil {
		return types.Identity{}, ErrInvalidToken
	}
	id := types.Identity{
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}
	if id.Name == "" || id.Email == "" || !types.IsValidRole(id.Role) {
		return types.Identity{}, ErrMissingFields
	}
	return id, nil
}

func (v *Verifier) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

func (v *Verifier) fromQuery(r *http.Request) (types.Identity, error) {
	q := r.URL.Query()
	id := types.Identity{
		Name:  q.Get("name"),
		Email: q.Get("email"),
		Role:  strings.ToUpper(q.Get("role")),
	}
	if id.Name == "" || id.Email == "" || !types.IsValidRole(id.Role) {
		return types.Identity{}, ErrMissingFields
	}
	return id, nil
}

// Mint issues a signed identity token. Used by tests and by the dev login
// endpoint; production tokens come from the auth service.
func (v *Verifier) Mint(id types.Identity, ttl time.Duration) (string, error) {
	claims := &Claims{
		Name:  id.Name,
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "thoughtswap",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
