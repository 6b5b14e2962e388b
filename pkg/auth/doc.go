// Package auth defines the credential backend abstraction used by the HTTP
// gate.
//
//   - Backend: verifies a username/password pair and yields a Principal
//   - Principal: the authenticated login name plus roles
//   - Metrics: optional instrumentation implemented in pkg/metrics
//
// Concrete backends live in sub-packages:
//   - realm/: Jetty-style static credential file with hot reload
//   - directory/: LDAP, Kerberos and PAM realms behind one timeout-bounded service
//
// Backends return ErrAuthFailed (possibly wrapped) for any per-request
// failure. Fatal problems are reported at construction time as
// *config.ConfigError.
package auth
