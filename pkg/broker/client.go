package broker

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client is the subset of the paho client the connection uses.
// mqtt.Client satisfies it.
//
// IsConnectionOpen is the only reliable liveness check: with connect retry
// or auto reconnect enabled, paho's IsConnected also reports true while it
// is still trying to reach the broker.
type Client interface {
	Connect() mqtt.Token
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ClientFactory builds a client from options. The default wraps mqtt.NewClient.
type ClientFactory func(opts *mqtt.ClientOptions) Client

func newPahoClient(opts *mqtt.ClientOptions) Client {
	return mqtt.NewClient(opts)
}
