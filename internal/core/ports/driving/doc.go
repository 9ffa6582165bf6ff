// Package driving provides interfaces for primary/inbound ports,
// consumed by the HTTP API and CLI adapters.
package driving
