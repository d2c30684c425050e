package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bottega/internal/core"
)

const (
	// CookieName is the session cookie.
	CookieName = "bottega_session"
	// CSRFField is the form field every POST must carry.
	CSRFField = "csrf_token"
	// FormCookieName carries the CSRF token of the forms shown before login.
	FormCookieName = "bottega_csrf"

	issuer       = "bottega"
	formAudience = "pre-session"
	formTTL      = 2 * time.Hour
)

var ErrNoSession = errors.New("no valid session")

// Session is the signed-in user of one request.
type Session struct {
	UserID   string
	Username string
	Email    string
	CSRF     string
}

// Claims is the JWT payload of the session cookie.
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	CSRF     string `json:"csrf"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256 session cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, secureCookie bool) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secureCookie,
		now:    time.Now,
	}
}

// Issue starts a session for user and writes the cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, user core.User) (*Session, error) {
	csrf, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}
	now := m.now()
	claims := Claims{
		Username: user.Username,
		Email:    user.Email,
		CSRF:     csrf,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &Session{UserID: user.ID, Username: user.Username, Email: user.Email, CSRF: csrf}, nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Parse returns the session carried by r, or ErrNoSession.
func (m *SessionManager) Parse(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}
	token, err := jwt.ParseWithClaims(cookie.Value, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, ErrNoSession
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrNoSession
	}
	return &Session{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		CSRF:     claims.CSRF,
	}, nil
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the request's session, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// Middleware requires a session. Requests without one are redirected to
// the login page; POSTs must also carry the session's CSRF token.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Parse(r)
		if err != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if r.Method == http.MethodPost && !ValidCSRF(r, s) {
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// ValidCSRF compares the submitted form token with the session's.
func ValidCSRF(r *http.Request, s *Session) bool {
	if s == nil {
		return false
	}
	return submittedMatches(r, s.CSRF)
}

func submittedMatches(r *http.Request, want string) bool {
	if want == "" {
		return false
	}
	submitted := r.PostFormValue(CSRFField)
	if submitted == "" {
		submitted = r.Header.Get("X-CSRF-Token")
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(want)) == 1
}

// FormToken returns the CSRF token for the login and register forms. The
// token in r's signed cookie is reused while valid; otherwise a new one is
// issued.
func (m *SessionManager) FormToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if token, err := m.parseFormToken(r); err == nil {
		return token, nil
	}
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	now := m.now()
	claims := Claims{
		CSRF: token,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{formAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(formTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign csrf token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FormCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(formTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (m *SessionManager) parseFormToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(FormCookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoSession
	}
	token, err := jwt.ParseWithClaims(cookie.Value, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(formAudience),
		jwt.WithTimeFunc(m.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", ErrNoSession
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.CSRF == "" {
		return "", ErrNoSession
	}
	return claims.CSRF, nil
}

// RequireFormToken rejects POSTs whose csrf_token does not match the signed
// form cookie. It guards the forms that run before a session exists.
func (m *SessionManager) RequireFormToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			want, err := m.parseFormToken(r)
			if err != nil || !submittedMatches(r, want) {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
