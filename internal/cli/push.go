package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cratedhq/crated/internal/registry"
)

// Represents the 'crated push' command.
type PushCmd struct {
	Archive   string `arg:"" help:"Exported image archive to push." type:"path"`
	Reference string `arg:"" help:"Destination reference (e.g. registry.example.com/app:1.0)."`

	PlainHTTP bool   `help:"Use HTTP instead of HTTPS. For local registries."`
	Username  string `short:"u" help:"Registry username. Defaults to the ambient credential chain."`
	Password  string `help:"Registry password."`
}

// Executes the push command.
func (c *PushCmd) Run(ctx context.Context) error {
	result, err := registry.Push(ctx, registry.Options{
		Archive:   c.Archive,
		Reference: c.Reference,
		PlainHTTP: c.PlainHTTP,
		Username:  c.Username,
		Password:  c.Password,
	})
	if err != nil {
		return err
	}

	slog.Info("push complete", "reference", result.Reference)
	fmt.Println(result.Digest)
	return nil
}
