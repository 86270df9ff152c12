package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a bearer token into a verified user id. Token issuance
// belongs to the auth service; this subsystem only verifies and trusts the
// id it extracts.
type TokenVerifier interface {
	ValidateToken(tokenString string) (int, error)
}

type claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed tokens issued by the auth service.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// ValidateToken parses and verifies the token and returns the user id.
func (v *JWTVerifier) ValidateToken(tokenString string) (int, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, ErrInvalidToken
	}

	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid || parsed.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return parsed.UserID, nil
}

// AuthMiddleware validates the Authorization header and stores the verified
// user id in the gin context.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := verifier.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
