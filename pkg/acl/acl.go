// Package acl decides whether a user principal may perform an operation on a
// topic. The request shape follows the JWT backend contract of the broker's
// auth plugin (mosquitto-go-auth): {"acc": 1..4, "clientid": "...", "topic": "..."}.
package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rhuss/alertbridge/pkg/token"
	"github.com/rhuss/alertbridge/pkg/topic"
)

// AccessType is the operation requested on a topic.
type AccessType int

const (
	Read      AccessType = 1
	Write     AccessType = 2
	ReadWrite AccessType = 3
	Subscribe AccessType = 4
)

// Valid reports whether a is one of the known access codes.
func (a AccessType) Valid() bool {
	return a >= Read && a <= Subscribe
}

func (a AccessType) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "readwrite"
	case Subscribe:
		return "subscribe"
	default:
		return fmt.Sprintf("AccessType(%d)", int(a))
	}
}

// ErrInvalidAccessRequest is returned when a request body cannot be parsed.
var ErrInvalidAccessRequest = errors.New("invalid access request")

// AccessRequest is sent by the broker for every publish or subscribe check.
// ClientID is part of the wire contract but plays no role in decisions.
type AccessRequest struct {
	Acc      AccessType `json:"acc"`
	ClientID string     `json:"clientid"`
	Topic    string     `json:"topic"`
}

// ParseAccessRequest decodes a JSON access request and validates its
// access code.
func ParseAccessRequest(r io.Reader) (AccessRequest, error) {
	var req AccessRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return AccessRequest{}, fmt.Errorf("%w: %w", ErrInvalidAccessRequest, err)
	}
	if !req.Acc.Valid() {
		return AccessRequest{}, fmt.Errorf("%w: unknown acc %d", ErrInvalidAccessRequest, int(req.Acc))
	}
	return req, nil
}

// Grant reports whether the user may perform the request. Users may only
// consume (read or subscribe) their own alert topic; everything else is
// denied. The email comparison is exact.
func Grant(user token.UserPayload, req AccessRequest) bool {
	if !topic.IsAlertTopic(req.Topic) {
		return false
	}
	consume := req.Acc == Read || req.Acc == Subscribe
	return consume && topic.EmailFrom(req.Topic) == user.Email
}
