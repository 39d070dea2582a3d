package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/alertbridge/pkg/storage"
	"github.com/rhuss/alertbridge/pkg/topic"
)

func TestPublishReachesOnlyPermittedRecipient(t *testing.T) {
	env := newTestEnvironment(t, false)
	env.Directory.SetAlertRecipients("alert-42", alice, bob)

	ev := storage.AlertEvent{AlertID: "alert-42", Data: json.RawMessage(`{"severity":"critical"}`)}
	if err := env.Publisher.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	published := env.Brokers.Last().Published()
	if len(published) != 1 {
		t.Fatalf("published %d messages, want 1", len(published))
	}
	if published[0].Topic != topic.For(alice) {
		t.Errorf("topic = %q, want %q", published[0].Topic, topic.For(alice))
	}
	if !strings.Contains(string(published[0].Payload), "critical") {
		t.Errorf("payload = %s, want alert data", published[0].Payload)
	}

	// The recipient may subscribe to the topic the alert went to.
	tok, _ := env.fetchToken(t, env.login(t, alice))
	if got := env.decide(t, "acl", tok, aclBody(4, published[0].Topic)); got != http.StatusOK {
		t.Errorf("acl for publish topic: status = %d, want 200", got)
	}
}

func TestBackendConnectsWithBackendToken(t *testing.T) {
	env := newTestEnvironment(t, false)
	env.Provider.Get()

	client := env.Brokers.Last()
	if client == nil {
		t.Fatal("no broker client created")
	}

	// The broker asks the gateway about the backend's own credentials.
	for _, endpoint := range []string{"user", "superuser"} {
		if got := env.decide(t, endpoint, client.Username, ""); got != http.StatusOK {
			t.Errorf("%s with backend username: status = %d, want 200", endpoint, got)
		}
	}
}

func TestReadinessWithBrokerDown(t *testing.T) {
	env := newTestEnvironment(t, true)

	resp, err := http.Get(env.Server.URL + "/readyz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 while only the broker is down", resp.StatusCode)
	}
	var body struct {
		BrokerConnected bool `json:"broker_connected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.BrokerConnected {
		t.Error("broker_connected = true, want false")
	}

	// Publishing while disconnected is not an error for the caller.
	env.Directory.SetAlertRecipients("alert-1", alice)
	if err := env.Publisher.Publish(context.Background(), "alert-1", map[string]string{"k": "v"}); err != nil {
		t.Errorf("Publish while disconnected: %v", err)
	}
	client := env.Brokers.Last()
	if n := len(client.Published()) + len(client.Buffered()); n != 0 {
		t.Errorf("handed %d messages to the client while disconnected, want 0", n)
	}
}
