package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired sessions once and exit",
	Long: `Delete every session older than the retention age, with its messages, and exit.

Use this from an external scheduler when the serve command's built-in sweeper
is not wanted.

Examples:
  memproxy sweep
  RETENTION_DAYS=30 memproxy sweep --config /etc/memproxy.yaml`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close resources: %v\n", err)
		}
	}()

	deleted, err := a.sweeper.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s) older than %s\n", deleted, a.cfg.RetentionAge)
	return nil
}
