package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/teachos/ipckernel/internal/config"
	"github.com/teachos/ipckernel/ipc"
)

var ringctlCmd = &cobra.Command{
	Use:   "ringctl",
	Short: "Debug helpers for exercising the named ring registry",
}

var ringctlListNames []string
var ringctlListGlob string

var ringctlListCmd = &cobra.Command{
	Use:   "list",
	Short: "Open a set of demo rings in an ephemeral kernel and list names matching a glob",
	RunE: func(_ *cobra.Command, _ []string) error {
		pattern := ringctlListGlob
		if pattern == "" {
			pattern = "*"
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("ringctl: bad --name glob: %w", err)
		}

		kern, err := ipc.New(config.Default())
		if err != nil {
			return fmt.Errorf("ringctl: init kernel: %w", err)
		}
		defer kern.Close()

		owner := kern.Spawn()
		defer kern.Exit(owner)

		for _, name := range ringctlListNames {
			if _, err := kern.Ringbuf(owner, name, ipc.OpOpen); err != nil {
				return fmt.Errorf("ringctl: open %q: %w", name, err)
			}
		}

		for _, name := range ringctlListNames {
			if g.Match(name) {
				fmt.Println(name)
			}
		}
		return nil
	},
}

var ringctlWaitTimeout time.Duration

var ringctlWaitCmd = &cobra.Command{
	Use:   "wait <name>",
	Short: "Poll (with backoff) for a ring of the given name to become bindable",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		name := args[0]

		kern, err := ipc.New(config.Default())
		if err != nil {
			return fmt.Errorf("ringctl: init kernel: %w", err)
		}
		defer kern.Close()

		owner := kern.Spawn()
		defer kern.Exit(owner)

		ctx, cancel := context.WithTimeout(context.Background(), ringctlWaitTimeout)
		defer cancel()

		op := func() (uintptr, error) {
			base, err := kern.Ringbuf(owner, name, ipc.OpOpen)
			if err != nil {
				return 0, err
			}
			return base, nil
		}

		base, err := backoff.Retry(ctx, op, backoff.WithMaxTries(10))
		if err != nil {
			return fmt.Errorf("ringctl: %q never became bindable: %w", name, err)
		}

		fmt.Printf("bound %q at 0x%x\n", name, base)
		return nil
	},
}

func init() {
	ringctlListCmd.Flags().StringSliceVar(&ringctlListNames, "open", []string{"demoA", "demoB"}, "demo ring names to open before listing")
	ringctlListCmd.Flags().StringVar(&ringctlListGlob, "name", "*", "shell-style glob to filter listed names")
	ringctlWaitCmd.Flags().DurationVar(&ringctlWaitTimeout, "timeout", 5*time.Second, "give up waiting after this long")

	ringctlCmd.AddCommand(ringctlListCmd)
	ringctlCmd.AddCommand(ringctlWaitCmd)
}
