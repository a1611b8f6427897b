package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	tokenTTL    = time.Hour
	tokenIssuer = "pbz-bots"
)

var (
	errNoSecret     = errors.New("jwt secret not configured")
	errBadIssuer    = errors.New("token issued elsewhere")
	errNoBearer     = errors.New("unauthorized")
	errBadBearerFmt = errors.New("invalid token format")
)

type adminKey struct{}

type adminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Auth issues and verifies admin bearer tokens.
type Auth struct {
	secret []byte
	now    func() time.Time
}

func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret, now: time.Now}
}

func (a *Auth) GenerateJWT(username string) (string, error) {
	if len(a.secret) == 0 {
		return "", errNoSecret
	}
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	return token.SignedString(a.secret)
}

// verify returns the admin name carried by a valid token.
func (a *Auth) verify(raw string) (string, error) {
	var claims adminClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errNoBearer
	}
	if !claims.VerifyIssuer(tokenIssuer, true) {
		return "", errBadIssuer
	}
	return claims.Username, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoBearer
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", errBadBearerFmt
	}
	return token, nil
}

func (a *Auth) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(a.secret) == 0 {
			deny(w, http.StatusInternalServerError, errNoSecret)
			return
		}
		raw, err := bearerToken(r)
		if err != nil {
			deny(w, http.StatusUnauthorized, err)
			return
		}
		admin, err := a.verify(raw)
		if err != nil {
			deny(w, http.StatusUnauthorized, errNoBearer)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey{}, admin)))
	})
}

func AdminFromContext(ctx context.Context) string {
	val, _ := ctx.Value(adminKey{}).(string)
	return val
}

func deny(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"errors":"` + err.Error() + `"}`))
}
