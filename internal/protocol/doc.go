// Defines the wire protocol between the crated CLI and daemon.
//
// Messages are JSON envelopes carrying a command name and a command-specific
// payload, exchanged as single newline-delimited lines over a Unix domain
// socket. Each connection carries exactly one request-response pair.
package protocol
