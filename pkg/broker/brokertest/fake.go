// Package brokertest provides an in-memory stand-in for the paho client so
// that code using broker.Provider can be tested without an MQTT broker.
package brokertest

import (
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rhuss/alertbridge/pkg/broker"
)

// Token is a completed or never-completing mqtt.Token.
type Token struct {
	err  error
	done chan struct{}
}

var _ mqtt.Token = (*Token)(nil)

// Completed returns a token that has already finished with err.
func Completed(err error) *Token {
	t := &Token{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

// Pending returns a token that never completes.
func Pending() *Token {
	return &Token{done: make(chan struct{})}
}

func (t *Token) Wait() bool {
	<-t.done
	return true
}

func (t *Token) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *Token) Done() <-chan struct{} { return t.done }

func (t *Token) Error() error { return t.err }

// Message is a recorded publish.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Client records publishes. Connect succeeds unless Unreachable is set.
//
// It follows paho's status model for a client built with connect retry and
// auto reconnect: IsConnected stays true while the client is still trying
// to reach the broker, and only IsConnectionOpen reports a live network
// connection. Publishes made without an open connection are buffered, as
// paho buffers them for delivery after the reconnect.
type Client struct {
	// Unreachable keeps the client retrying without ever opening a connection.
	Unreachable bool

	// Username and ClientID are copied from the options the client was built with.
	Username string
	ClientID string

	mu        sync.Mutex
	started   bool
	open      bool
	connects  int
	published []Message
	buffered  []Message
}

var _ broker.Client = (*Client)(nil)

// Connect starts the client. When Unreachable is set the returned token never
// completes, like paho's token under connect retry, and the client keeps
// "retrying" with IsConnected true and IsConnectionOpen false.
func (c *Client) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	c.started = true
	if c.Unreachable {
		return Pending()
	}
	c.open = true
	return Completed(nil)
}

// IsConnected mirrors paho: true once Connect was called, whether or not a
// connection is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// IsConnectionOpen reports whether a network connection is open.
func (c *Client) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = append([]byte(nil), p...)
	case string:
		b = []byte(p)
	}
	msg := Message{Topic: topic, QoS: qos, Retained: retained, Payload: b}
	if !c.open {
		c.buffered = append(c.buffered, msg)
		return Pending()
	}
	c.published = append(c.published, msg)
	return Completed(nil)
}

// SetConnected simulates the network connection opening or dropping. The
// client keeps reconnecting after a drop, so IsConnected stays true.
func (c *Client) SetConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.open = v
}

// Connects returns how many times Connect was called.
func (c *Client) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

// Buffered returns a copy of the publishes made without an open connection.
func (c *Client) Buffered() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.buffered...)
}

// Published returns a copy of the recorded publishes.
func (c *Client) Published() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.published...)
}


// Factory builds Clients and counts how many were created.
type Factory struct {
	// Unreachable is copied into every client the factory builds.
	Unreachable bool

	created atomic.Int32
	mu      sync.Mutex
	clients []*Client
}

// New satisfies broker.ClientFactory.
func (f *Factory) New(opts *mqtt.ClientOptions) broker.Client {
	f.created.Add(1)
	c := &Client{
		Unreachable: f.Unreachable,
		Username:    opts.Username,
		ClientID:    opts.ClientID,
	}
	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	return c
}

// Created returns how many clients were built.
func (f *Factory) Created() int {
	return int(f.created.Load())
}

// Last returns the most recently built client, or nil.
func (f *Factory) Last() *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clients) == 0 {
		return nil
	}
	return f.clients[len(f.clients)-1]
}
