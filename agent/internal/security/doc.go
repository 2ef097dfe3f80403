// Package security inspects the TLS certificates of the HTTPS endpoints the
// agent talks to: audit sources and scanboard-server itself.
package security
