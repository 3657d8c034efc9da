// Package client talks to a running crated daemon.
//
// Each call dials the daemon's Unix socket, performs a single
// newline-delimited JSON exchange, and closes the connection, mirroring
// the one-shot connection model of the server.
package client
