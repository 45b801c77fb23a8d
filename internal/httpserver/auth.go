// internal/httpserver/auth.go
//
// Admin authentication for the word-chain API.
//
// There is a single operator account configured through the environment:
//   - ADMIN_USERNAME       login name (default "admin")
//   - ADMIN_PASSWORD_HASH  bcrypt hash; `wordchain admin hash-password` prints one.
// Login is disabled while no hash is configured.
//
// A successful login issues an HS256 JWT, returned in the body and set as an
// HttpOnly cookie. Gated routes accept either "Authorization: Bearer" or the cookie.

package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig configures admin login and token handling.
type AuthConfig struct {
	Secret            string
	ExpiresDays       int
	CookieName        string
	AdminUsername     string
	AdminPasswordHash string
	Production        bool // Secure + SameSite=None cookies
}

func (a AuthConfig) withDefaults() AuthConfig {
	if a.Secret == "" {
		a.Secret = "dev_secret_change_me"
	}
	if a.ExpiresDays <= 0 {
		a.ExpiresDays = 14
	}
	if a.CookieName == "" {
		a.CookieName = "wordchain_token"
	}
	if a.AdminUsername == "" {
		a.AdminUsername = "admin"
	}
	return a
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost) // cost=10
	return string(b), err
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authUser is placed into request context by requireAuth.
type authUser struct {
	Username string `json:"username"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// handleLogin checks the admin credentials, sets the cookie and returns the token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(body.Username)
	if s.auth.AdminPasswordHash == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(s.auth.AdminUsername)) != 1 ||
		!checkPassword(s.auth.AdminPasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	tok, exp, err := s.signJWT(username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	_ = json.NewEncoder(w).Encode(map[string]any{"username": username, "token": tok, "expiresAt": exp.UTC()})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// signJWT creates an HS256 JWT for username expiring after ExpiresDays.
func (s *Server) signJWT(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.auth.ExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.auth.Secret))
	return ss, exp, err
}

func (s *Server) cookie(value string) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.auth.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return &http.Cookie{
		Name:     s.auth.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.auth.Production,
		SameSite: sameSite,
	}
}

// setAuthCookie writes the auth token cookie.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	c := s.cookie(token)
	c.Expires = exp
	http.SetCookie(w, c)
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth enforces a valid admin JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// No admin credentials configured: nothing can be authorised.
			if s.auth.AdminPasswordHash == "" {
				http.Error(w, `{"error":"Admin login disabled"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := s.bearerOrCookie(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(s.auth.Secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			// Tokens of a renamed admin stop working.
			username, _ := claims["username"].(string)
			if username == "" || username != s.auth.AdminUsername {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
