// Package auth implements the credential lifecycle for the docuflow
// document-management backend: signed JWT access and refresh tokens with a
// TTL-based revocation blacklist, one-time OTP codes, and single-use
// password-reset tokens.
//
// The package is infrastructure agnostic. Persistence is expressed through
// small interfaces (KeyedStore, UserTracker, IdentityProvider) so callers can
// wire Redis, bun, or in-memory stand-ins. See examples/server for a complete
// wiring.
package auth
