package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rhuss/alertbridge/pkg/debug"
	"github.com/rhuss/alertbridge/pkg/observability"
)

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.New("broker not connected")

// backendPassword is sent alongside the backend token. The broker's JWT
// backend only reads the username.
const backendPassword = "..."

// Config holds the outbound connection settings.
type Config struct {
	Host string
	Port int

	// KeepAlive is the MQTT keepalive interval. Default: 60s.
	KeepAlive time.Duration

	// ClientID identifies the backend to the broker. A random suffix is
	// appended so that several backend processes do not evict each other.
	ClientID string

	// ConnectTimeout bounds how long Get waits for the first connect.
	// The client keeps retrying in the background afterwards. Default: 5s.
	ConnectTimeout time.Duration

	// RetryInterval is the delay between background connect attempts. Default: 10s.
	RetryInterval time.Duration

	// QoS is used for every publish. Default: 0.
	QoS byte
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 1883
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60 * time.Second
	}
	if c.ClientID == "" {
		c.ClientID = "alertbridge-backend"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 10 * time.Second
	}
}

// BrokerURL returns the tcp URL of the configured broker.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// TokenMinter issues backend tokens. *token.Codec satisfies it.
type TokenMinter interface {
	MintBackend() (string, error)
}

// Connection is the process-wide handle to the broker.
type Connection struct {
	client Client
	qos    byte
}

// Connected reports whether the underlying client currently holds an open
// network connection. It is false while paho is still retrying the first
// connect or reconnecting after a loss. A disconnected handle still accepts
// Publish calls, which fail.
func (c *Connection) Connected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// Publish sends payload to topic without waiting for delivery. It returns
// ErrNotConnected when no connection is open, and the message never reaches
// paho's outgoing buffer. Nothing is queued or retried.
func (c *Connection) Publish(topic string, payload []byte) error {
	if !c.Connected() {
		observability.BrokerPublishesTotal.WithLabelValues("not_connected").Inc()
		return ErrNotConnected
	}
	c.client.Publish(topic, c.qos, false, payload)
	observability.BrokerPublishesTotal.WithLabelValues("sent").Inc()
	debug.Log("broker", "published", "topic", topic, "bytes", len(payload))
	return nil
}

// Provider lazily creates the single Connection.
type Provider struct {
	cfg       Config
	minter    TokenMinter
	newClient ClientFactory
	get       func() *Connection
}

// Option configures a Provider.
type Option func(*Provider)

// WithClientFactory replaces the paho client constructor, for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Provider) { p.newClient = f }
}

// NewProvider returns a Provider. No connection is made until Get is called.
func NewProvider(cfg Config, minter TokenMinter, opts ...Option) *Provider {
	cfg.applyDefaults()
	p := &Provider{
		cfg:       cfg,
		minter:    minter,
		newClient: newPahoClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.get = sync.OnceValue(p.connect)
	return p
}

// Get returns the process-wide connection, creating it on the first call.
// Concurrent first callers block until initialization finishes and all
// observe the same handle.
func (p *Provider) Get() *Connection {
	return p.get()
}

func (p *Provider) connect() *Connection {
	username, err := p.minter.MintBackend()
	if err != nil {
		// The broker rejects the empty username and the handle stays disconnected.
		slog.Error("minting backend token for broker connection", "error", err)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(p.cfg.BrokerURL()).
		SetClientID(p.cfg.ClientID + "-" + uuid.NewString()[:8]).
		SetUsername(username).
		SetPassword(backendPassword).
		SetKeepAlive(p.cfg.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(p.cfg.RetryInterval).
		SetConnectTimeout(p.cfg.ConnectTimeout).
		SetOnConnectHandler(func(mqtt.Client) {
			observability.BrokerConnected.Set(1)
			slog.Info("connected to MQTT broker", "broker", p.cfg.BrokerURL())
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			observability.BrokerConnected.Set(0)
			slog.Warn("lost connection to MQTT broker", "broker", p.cfg.BrokerURL(), "error", err)
		})

	client := p.newClient(opts)
	conn := &Connection{client: client, qos: p.cfg.QoS}

	tok := client.Connect()
	switch {
	case !tok.WaitTimeout(p.cfg.ConnectTimeout):
		slog.Error("failed to connect to the MQTT broker; realtime alerts may not work, retrying in background",
			"broker", p.cfg.BrokerURL(),
			"timeout", p.cfg.ConnectTimeout,
		)
	case tok.Error() != nil:
		slog.Error("failed to connect to the MQTT broker; realtime alerts may not work",
			"broker", p.cfg.BrokerURL(),
			"error", tok.Error(),
		)
	}

	if conn.Connected() {
		observability.BrokerConnected.Set(1)
	} else {
		observability.BrokerConnected.Set(0)
	}
	return conn
}
