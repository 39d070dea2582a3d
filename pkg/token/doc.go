// Package token issues and validates the signed tokens presented to the MQTT
// broker.
//
// A token identifies one of two principals: the backend process itself
// (BackendPayload) or a single end-user or device (UserPayload). The principal
// kind is carried in the "type" claim and decoding rejects any value it does
// not recognize. Tokens are stateless: validity is a function of the
// signature and the optional "exp" claim only.
package token
