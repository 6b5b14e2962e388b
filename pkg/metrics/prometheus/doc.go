// Package prometheus implements the auth and session metrics recorders on
// client_golang. Importing it (usually blank, from main) registers the
// constructors with pkg/metrics.
package prometheus
