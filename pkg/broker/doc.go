// Package broker owns the backend's single outbound MQTT connection.
//
// Provider.Get lazily creates the connection on first use and returns the
// same handle for the rest of the process lifetime, even when many requests
// race to be first. The connection authenticates with a freshly minted
// backend token. The paho client runs its own send, receive and reconnect
// goroutines; if the broker is unreachable at start-up the failure is
// logged and the handle is returned disconnected. Publishes are
// fire-and-forget, at-most-once.
package broker
