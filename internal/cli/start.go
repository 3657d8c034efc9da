package cli

import (
	"context"
	"log/slog"

	"github.com/cratedhq/crated/internal/server"
)

// Represents the 'crated start' command.
type StartCmd struct {
	ContainerdAddress   string `help:"Containerd socket address." default:"${containerd_address}" placeholder:"PATH"`
	ContainerdNamespace string `help:"Containerd namespace for images and containers." default:"${containerd_namespace}"`
}

// Executes the start command.
//
// Starts the server on a Unix domain socket and blocks until the context
// is cancelled (e.g. via SIGINT or SIGTERM).
func (c *StartCmd) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		SocketPath:          RootCmd.Socket,
		ContainerdAddress:   c.ContainerdAddress,
		ContainerdNamespace: c.ContainerdNamespace,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("crated is running")

	<-ctx.Done()

	slog.Info("shutting down")
	return srv.Stop()
}
