package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/cratedhq/crated/internal/paths"
	"github.com/cratedhq/crated/internal/protocol"
)

var (
	// Returned when the daemon socket cannot be reached.
	ErrUnavailable = errors.New("daemon unavailable")

	// Returned when the daemon answers with an error response.
	ErrRemote = errors.New("daemon error")
)

// Connects to the daemon socket on demand.
type Client struct {
	socketPath string
}

// Creates a client for the given socket path. Empty uses the default.
func New(socketPath string) *Client {
	if socketPath == "" {
		socketPath = paths.Socket()
	}
	return &Client{socketPath: socketPath}
}

// Sends one command and returns the raw response.
func (c *Client) Do(ctx context.Context, cmd protocol.Command, payload any) (protocol.Command, json.RawMessage, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer conn.Close()

	request, err := protocol.Encode(cmd, payload)
	if err != nil {
		return "", nil, err
	}
	request = append(request, byte(10))

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(request); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes(byte(10))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	env, responsePayload, err := protocol.Decode(line)
	if err != nil {
		return "", nil, err
	}

	return env.Command, responsePayload, nil
}

// Sends one command and decodes a successful response into T.
//
// An error response from the daemon is surfaced as [ErrRemote] carrying the
// daemon's message.
func Roundtrip[T any](ctx context.Context, c *Client, cmd protocol.Command, payload any) (*T, error) {
	response, raw, err := c.Do(ctx, cmd, payload)
	if err != nil {
		return nil, err
	}

	switch response {
	case protocol.CmdOK:
		return protocol.DecodePayload[T](raw)
	case protocol.CmdError:
		result, err := protocol.DecodePayload[protocol.ErrorResult](raw)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrRemote, result.Message)
	default:
		return nil, fmt.Errorf("%w: unexpected response %q", ErrRemote, response)
	}
}
