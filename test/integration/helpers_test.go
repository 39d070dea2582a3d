// Package integration runs end-to-end tests against a complete alertbridge
// HTTP server started in-process with net/http/httptest. The directory is
// in memory and the broker client is the brokertest fake.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/alertbridge/pkg/alerts"
	"github.com/rhuss/alertbridge/pkg/auth"
	"github.com/rhuss/alertbridge/pkg/auth/session"
	"github.com/rhuss/alertbridge/pkg/broker"
	"github.com/rhuss/alertbridge/pkg/broker/brokertest"
	"github.com/rhuss/alertbridge/pkg/storage"
	"github.com/rhuss/alertbridge/pkg/storage/memory"
	"github.com/rhuss/alertbridge/pkg/token"
	transporthttp "github.com/rhuss/alertbridge/pkg/transport/http"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

// TestEnvironment holds one running alertbridge and its collaborators.
type TestEnvironment struct {
	Server    *httptest.Server
	Codec     *token.Codec
	Directory *memory.Directory
	Sessions  *session.MemoryStore
	Brokers   *brokertest.Factory
	Provider  *broker.Provider
	Publisher *alerts.Publisher
}

// newTestEnvironment starts a server whose directory knows alice (with the
// view permission) and bob (without it).
func newTestEnvironment(t *testing.T, brokerUnreachable bool) *TestEnvironment {
	t.Helper()

	codec, err := token.New(token.Config{Secret: []byte("integration-secret")})
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}

	dir := memory.New()
	dir.AddUser(alice, storage.PermViewAlert)
	dir.AddUser(bob)

	sessions := session.NewMemoryStore()
	chain := &auth.AuthChain{
		Authenticators: []auth.Authenticator{session.NewAuthenticator(sessions, "")},
	}

	factory := &brokertest.Factory{Unreachable: brokerUnreachable}
	provider := broker.NewProvider(broker.Config{ConnectTimeout: 50 * time.Millisecond}, codec,
		broker.WithClientFactory(factory.New))

	srv := transporthttp.NewServer(
		transporthttp.NewGateway(codec, dir, nil),
		transporthttp.WithAuth(chain, auth.NewInProcessLimiter(100)),
		transporthttp.WithReadiness(dir, func() bool { return provider.Get().Connected() }),
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &TestEnvironment{
		Server:    ts,
		Codec:     codec,
		Directory: dir,
		Sessions:  sessions,
		Brokers:   factory,
		Provider:  provider,
		Publisher: alerts.NewPublisher(provider, dir, dir),
	}
}

// login creates a session for email and returns its cookie.
func (e *TestEnvironment) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	sess, err := e.Sessions.Create(context.Background(), email, time.Hour)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return &http.Cookie{Name: session.DefaultCookieName, Value: sess.ID}
}

// fetchToken calls the mint endpoint with the given cookie.
func (e *TestEnvironment) fetchToken(t *testing.T, cookie *http.Cookie) (string, int) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.Server.URL+"/mqtt/jwt", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode
	}
	var body struct {
		JWT string `json:"jwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding mint response: %v", err)
	}
	return body.JWT, resp.StatusCode
}

// decide sends a broker decision call and returns the status code.
func (e *TestEnvironment) decide(t *testing.T, endpoint, tok, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.Server.URL+"/mqtt/"+endpoint, strings.NewReader(body))
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if b, _ := io.ReadAll(resp.Body); len(b) != 0 {
		t.Errorf("%s: decision body = %q, want empty", endpoint, b)
	}
	return resp.StatusCode
}

// aclBody builds a topic-access request body.
func aclBody(acc int, t string) string {
	b, _ := json.Marshal(map[string]any{"acc": acc, "clientid": "web-" + t, "topic": t})
	return string(b)
}
