package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/alertbridge/pkg/auth"
)

// failingStore returns err from every call.
type failingStore struct{ err error }

func (f failingStore) Create(context.Context, string, time.Duration) (*Session, error) {
	return nil, f.err
}
func (f failingStore) Get(context.Context, string) (*Session, error) { return nil, f.err }
func (f failingStore) Delete(context.Context, string) error          { return f.err }

func requestWithCookie(name, value string) *http.Request {
	req := httptest.NewRequest("GET", "/mqtt/jwt", nil)
	req.AddCookie(&http.Cookie{Name: name, Value: value})
	return req
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess, err := store.Create(ctx, "alice@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name        string
		authn       *Authenticator
		req         *http.Request
		want        auth.AuthDecision
		wantEmail string
	}{
		{
			name:  "no cookie abstains",
			authn: NewAuthenticator(store, ""),
			req:   httptest.NewRequest("GET", "/mqtt/jwt", nil),
			want:  auth.Abstain,
		},
		{
			name:  "other cookie abstains",
			authn: NewAuthenticator(store, ""),
			req:   requestWithCookie("csrftoken", sess.ID),
			want:  auth.Abstain,
		},
		{
			name:  "unknown session rejected",
			authn: NewAuthenticator(store, ""),
			req:   requestWithCookie(DefaultCookieName, "does-not-exist"),
			want:  auth.No,
		},
		{
			name:        "valid session",
			authn:       NewAuthenticator(store, ""),
			req:         requestWithCookie(DefaultCookieName, sess.ID),
			want:        auth.Yes,
			wantEmail: "alice@example.com",
		},
		{
			name:        "custom cookie name",
			authn:       NewAuthenticator(store, "alert_session"),
			req:         requestWithCookie("alert_session", sess.ID),
			want:        auth.Yes,
			wantEmail: "alice@example.com",
		},
		{
			name:  "store failure rejected",
			authn: NewAuthenticator(failingStore{err: errors.New("connection refused")}, ""),
			req:   requestWithCookie(DefaultCookieName, sess.ID),
			want:  auth.No,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.authn.Authenticate(ctx, tt.req)
			if result.Decision != tt.want {
				t.Fatalf("Decision = %d, want %d", result.Decision, tt.want)
			}
			if tt.want == auth.No && !errors.Is(result.Err, auth.ErrUnauthenticated) {
				t.Errorf("Err = %v, want ErrUnauthenticated", result.Err)
			}
			if tt.want == auth.Yes {
				if result.Identity.Email != tt.wantEmail {
					t.Errorf("Email = %q, want %q", result.Identity.Email, tt.wantEmail)
				}
				if result.Identity.SessionID != sess.ID {
					t.Errorf("SessionID = %q, want %q", result.Identity.SessionID, sess.ID)
				}
			}
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	sess, err := store.Create(ctx, "alice@example.com", time.Minute)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := store.Get(ctx, sess.ID); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry: err = %v, want ErrNotFound", err)
	}
	if _, ok := store.sessions[sess.ID]; ok {
		t.Error("expired session still stored")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, _ := store.Create(ctx, "alice@example.com", time.Hour)
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "unknown"); err != nil {
		t.Errorf("Delete unknown: %v", err)
	}
}

func TestMemoryStore_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, _ := store.Create(ctx, "alice@example.com", time.Hour)
	b, _ := store.Create(ctx, "alice@example.com", time.Hour)
	if a.ID == b.ID {
		t.Errorf("two sessions share ID %q", a.ID)
	}
}

func TestMemoryStore_PutWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	store.Put(Session{ID: "dev-session", Email: "dev@example.com"})

	now = now.Add(10 * 365 * 24 * time.Hour)
	got, err := store.Get(ctx, "dev-session")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "dev@example.com" {
		t.Errorf("email = %q, want dev@example.com", got.Email)
	}
}
