// Package cli wires configuration into a running engine for the echoes
// commands.
package cli
