// Package storage defines the collaborator contracts the bridge consumes from
// the web backend's data layer: user liveness, resource permissions and
// alert recipients.
//
// Adapters (memory, postgres) implement Directory. This package contains
// only the contracts and shared sentinel errors.
package storage
