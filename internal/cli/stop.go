package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/cratedhq/crated/internal/client"
	"github.com/cratedhq/crated/internal/protocol"
)

// Represents the 'crated stop' command.
type StopCmd struct{}

// Executes the stop command.
func (c *StopCmd) Run(ctx context.Context) error {
	cl := client.New(RootCmd.Socket)

	_, err := client.Roundtrip[struct{}](ctx, cl, protocol.CmdShutdown, nil)
	if errors.Is(err, client.ErrUnavailable) {
		fmt.Println("crated is not running")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("crated stopped")
	return nil
}
