// Package auth authenticates the client-facing principal behind token mint
// requests.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default decides when
// all authenticators abstain.
//
// The broker decision endpoints do not go through this package. They carry
// their own bearer tokens, which the gateway verifies with pkg/token.
package auth
