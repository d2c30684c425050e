package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bottega/internal/core"
	"bottega/internal/docstore"
	"bottega/internal/storage"
)

const secret = "0123456789abcdef0123456789abcdef"

func newProvider(t *testing.T) (*LocalProvider, *storage.Repository) {
	t.Helper()
	repo := storage.NewRepository(docstore.NewMemoryStore(), nil)
	return NewLocalProvider(repo, bcrypt.MinCost, nil), repo
}

func TestRegisterAndAuthenticate(t *testing.T) {
	p, repo := newProvider(t)
	ctx := context.Background()

	user, err := p.Register(ctx, "mario", "mario@example.com", "secret1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" || user.Role != core.RoleUser {
		t.Fatalf("unexpected user %+v", user)
	}
	cred, err := repo.GetCredentials(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cred.PasswordHash == "secret1" || cred.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	got, err := p.Authenticate(ctx, "mario@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID || got.Username != "mario" {
		t.Fatalf("authenticated wrong user %+v", got)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()
	if _, err := p.Register(ctx, "mario", "mario@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Authenticate(ctx, "mario@example.com", "wrong!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := p.Authenticate(ctx, "luigi@example.com", "secret1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()

	cases := []struct {
		name, username, email, password string
		want                            error
	}{
		{"short username", "bob", "bob@example.com", "secret1", core.ErrInvalidUsername},
		{"bad email", "bobby", "bob.example.com", "secret1", core.ErrInvalidEmail},
		{"short password", "bobby", "bob@example.com", "12345", core.ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.Register(ctx, tc.username, tc.email, tc.password); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := p.Register(ctx, "mario", "mario@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Register(ctx, "mario2", "MARIO@example.com", "secret1"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("duplicate email: got %v", err)
	}
}

func TestConcurrentRegistrationKeepsEmailUnique(t *testing.T) {
	p, _ := newProvider(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Register(ctx, "racer", "race@example.com", "secret1"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("expected exactly one registration, got %d", success)
	}
}

func issue(t *testing.T, m *SessionManager) (*http.Cookie, *Session) {
	t.Helper()
	rec := httptest.NewRecorder()
	s, err := m.Issue(rec, core.User{ID: "u1", Username: "mario", Email: "mario@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	return cookies[0], s
}

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, false)
	cookie, issued := issue(t, m)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	s, err := m.Parse(req)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.UserID != "u1" || s.Username != "mario" || s.CSRF != issued.CSRF || s.CSRF == "" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestSessionRejections(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, false)
	cookie, _ := issue(t, m)

	t.Run("no cookie", func(t *testing.T) {
		if _, err := m.Parse(httptest.NewRequest(http.MethodGet, "/", nil)); !errors.Is(err, ErrNoSession) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewSessionManager(strings.Repeat("x", 32), time.Hour, false)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		if _, err := other.Parse(req); !errors.Is(err, ErrNoSession) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewSessionManager(secret, time.Hour, false)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		if _, err := later.Parse(req); !errors.Is(err, ErrNoSession) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie.Value + "x"})
		if _, err := m.Parse(req); !errors.Is(err, ErrNoSession) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestMiddleware(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, false)
	cookie, s := issue(t, m)

	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous is redirected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
			t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("session in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(cookie)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent || seen == nil || seen.UserID != "u1" {
			t.Fatalf("got %d, session %+v", rec.Code, seen)
		}
	})

	t.Run("post without csrf", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader("customer_name=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("got %d, want 403", rec.Code)
		}
	})

	t.Run("post with csrf", func(t *testing.T) {
		rec := httptest.NewRecorder()
		form := url.Values{CSRFField: {s.CSRF}}
		req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("got %d, want 204", rec.Code)
		}
	})
}

func TestFormToken(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, false)

	rec := httptest.NewRecorder()
	token, err := m.FormToken(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || token == "" {
		t.Fatalf("FormToken: %q %v", token, err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != FormCookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	cookie := cookies[0]

	t.Run("reused while valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		again, err := m.FormToken(rec, req)
		if err != nil || again != token {
			t.Fatalf("got %q %v, want %q", again, err, token)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("valid cookie should not be rewritten")
		}
	})

	t.Run("expired is replaced", func(t *testing.T) {
		later := NewSessionManager(secret, time.Hour, false)
		later.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		fresh, err := later.FormToken(httptest.NewRecorder(), req)
		if err != nil || fresh == token {
			t.Fatalf("expected a new token, got %q %v", fresh, err)
		}
	})

	t.Run("not a session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie.Value})
		if _, err := m.Parse(req); !errors.Is(err, ErrNoSession) {
			t.Fatalf("form cookie accepted as a session: %v", err)
		}
	})
}

func TestRequireFormToken(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, false)
	rec := httptest.NewRecorder()
	token, err := m.FormToken(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	formCookie := rec.Result().Cookies()[0]
	sessionCookie, s := issue(t, m)

	h := m.RequireFormToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		method string
		token  string
		cookie *http.Cookie
		want   int
	}{
		{"get passes", http.MethodGet, "", nil, http.StatusNoContent},
		{"matching token", http.MethodPost, token, formCookie, http.StatusNoContent},
		{"missing token", http.MethodPost, "", formCookie, http.StatusForbidden},
		{"missing cookie", http.MethodPost, token, nil, http.StatusForbidden},
		{"wrong token", http.MethodPost, s.CSRF, formCookie, http.StatusForbidden},
		{"session cookie", http.MethodPost, s.CSRF, &http.Cookie{Name: FormCookieName, Value: sessionCookie.Value}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.token != "" {
				form.Set(CSRFField, tt.token)
			}
			req := httptest.NewRequest(tt.method, "/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
