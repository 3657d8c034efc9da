package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/cratedhq/crated/internal/client"
	"github.com/cratedhq/crated/internal/protocol"
)

// Represents the 'crated status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	cl := client.New(RootCmd.Socket)

	status, err := client.Roundtrip[protocol.StatusResult](ctx, cl, protocol.CmdStatus, nil)
	if errors.Is(err, client.ErrUnavailable) {
		fmt.Println("crated is not running")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("running: %v\n", status.Running)
	fmt.Printf("version: %s\n", status.Version)
	fmt.Printf("pid:     %d\n", status.Pid)
	fmt.Printf("uptime:  %s\n", status.Uptime)
	fmt.Printf("builds:  %d\n", status.Builds)
	return nil
}
