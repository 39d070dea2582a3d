// Package topic derives and parses the per-user alert topic names.
//
// The naming convention is "alerts/<email>". The broker's static ACL
// configuration matches against the same format, so changing it requires a
// coordinated broker configuration change.
package topic

import "strings"

// Root is the reserved topic root. Every topic under it is owned by the user
// whose email is the second path segment.
const Root = "alerts"

// For returns the alert topic of the user with the given email.
func For(email string) string {
	return Root + "/" + email
}

// EmailFrom returns the second path segment of topic. It returns an empty
// string when the topic has fewer than two segments. Callers should first
// check IsAlertTopic.
func EmailFrom(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// IsAlertTopic reports whether topic starts with the reserved root.
func IsAlertTopic(topic string) bool {
	return strings.HasPrefix(topic, Root)
}
