package cli

import (
	"context"
	"fmt"

	"github.com/cratedhq/crated/internal/inspect"
)

// Represents the 'crated inspect' command.
type InspectCmd struct {
	Archive string `arg:"" help:"Exported image archive to audit." type:"path"`
}

// Executes the inspect command.
//
// Prints the image's startup action and any invariant violations. Exits
// non-zero when the image is not clean, so the command can gate a release
// in scripts.
func (c *InspectCmd) Run(ctx context.Context) error {
	report, err := inspect.Inspect(c.Archive)
	if err != nil {
		return err
	}

	fmt.Printf("startup action: %v\n", report.StartupAction)

	if report.Clean() {
		fmt.Println("no violations")
		return nil
	}

	for _, v := range report.Violations {
		fmt.Printf("violation: %s\n", v)
	}
	return fmt.Errorf("image failed audit with %d violation(s)", len(report.Violations))
}
