package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/cratedhq/crated/internal/protocol"
)

// Serves one connection on a throwaway socket, answering with the given
// command and payload.
func serveOnce(t *testing.T, respond protocol.Command, payload any) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "crated.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := bufio.NewReader(conn).ReadBytes(byte(10)); err != nil {
			return
		}

		data, err := protocol.Encode(respond, payload)
		if err != nil {
			return
		}
		conn.Write(append(data, byte(10)))
	}()

	return socketPath
}

func TestRoundtrip(t *testing.T) {
	socketPath := serveOnce(t, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Builds:  3,
	})

	c := New(socketPath)
	result, err := Roundtrip[protocol.StatusResult](context.Background(), c, protocol.CmdStatus, nil)
	if err != nil {
		t.Fatalf("Roundtrip failed: %v", err)
	}

	if !result.Running || result.Builds != 3 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRoundtripRemoteError(t *testing.T) {
	socketPath := serveOnce(t, protocol.CmdError, &protocol.ErrorResult{
		Message: "lock file missing",
	})

	c := New(socketPath)
	_, err := Roundtrip[protocol.BuildResult](context.Background(), c, protocol.CmdBuild, nil)
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("err = %v, want ErrRemote", err)
	}
}

func TestRoundtripUnavailable(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := Roundtrip[protocol.StatusResult](context.Background(), c, protocol.CmdStatus, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
