package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookstore-identity/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
)

// mySigningKey should be a strong, randomly generated secret key,
// and it should be stored securely (e.g., in environment variables,
// a key management service, etc.), NOT hardcoded in your source code.
var mySigningKey = []byte("mySigningKey")

// tokenTTL is the lifetime of issued tokens.
var tokenTTL = 24 * time.Hour

// SetSigningKey allows setting the key from outside the package.
func SetSigningKey(key []byte) {
	if len(key) > 0 {
		mySigningKey = key
	}
}

// SetTokenTTL allows setting the token lifetime from outside the package.
func SetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// CustomClaims represents the custom claims you want to include in your JWT.
type CustomClaims struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry the given role name.
func (c *CustomClaims) HasRole(name string) bool {
	for _, role := range c.Roles {
		if role == name {
			return true
		}
	}
	return false
}

// GenerateToken creates a new JWT for the given user carrying its role names.
func GenerateToken(user *models.User, roles []string) (string, error) {
	expirationTime := time.Now().Add(tokenTTL)
	claims := &CustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "bookstore-identity",
			Subject:   user.Username,
			Audience:  []string{"bookstore-users"},
		},
	}

	// Create the token with the claims and sign it.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(mySigningKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAndValidateToken : used for gRPC and HTTP filters
func ParseAndValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return mySigningKey, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, errors.New("malformed token")
			} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, errors.New("token is either expired or not active yet")
			} else if ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
				return nil, errors.New("invalid token signature")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// AuthFilter creates a go-restful FilterFunction for JWT authentication.
func AuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		authHeader := req.HeaderParameter("Authorization")
		if authHeader == "" {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "Authorization header required"}, restful.MIME_JSON)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "Invalid authorization header format"}, restful.MIME_JSON)
			return
		}
		tokenString := parts[1]

		claims, err := ParseAndValidateToken(tokenString)
		if err != nil {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": err.Error()}, restful.MIME_JSON)
			return
		}

		// Store user information in request attributes for use by subsequent processing functions
		req.SetAttribute("user_id", claims.UserID)
		req.SetAttribute("username", claims.Username)
		req.SetAttribute("roles", claims.Roles)

		// Continue handling the chain
		chain.ProcessFilter(req, resp)
	}
}

// RequireRole creates a go-restful FilterFunction that rejects requests
// whose token does not carry the given role. Must run after AuthFilter.
func RequireRole(name string) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		roles, ok := req.Attribute("roles").([]string)
		if !ok {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "Unauthorized: Cannot identify requesting user"}, restful.MIME_JSON)
			return
		}

		for _, role := range roles {
			if role == name {
				chain.ProcessFilter(req, resp)
				return
			}
		}

		_ = resp.WriteHeaderAndJson(http.StatusForbidden, map[string]string{"message": fmt.Sprintf("Forbidden: '%s' role required", name)}, restful.MIME_JSON)
	}
}
