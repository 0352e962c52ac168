// Command ipcd runs a standalone instance of the IPC kernel core and a
// small demo workload exercising both subsystems.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/teachos/ipckernel/internal/config"
	"github.com/teachos/ipckernel/internal/logging"
	"github.com/teachos/ipckernel/internal/xcmd"
	"github.com/teachos/ipckernel/ipc"
)

type runFlags struct {
	ConfigPath string
	Debug      bool
}

var flags runFlags

var rootCmd = &cobra.Command{
	Use:   "ipcd",
	Short: "Teaching-OS IPC kernel core: pipes and named ring buffers",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the kernel and a demo pipe/ring workload until interrupted",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := run(flags); err != nil {
			if errors.Is(err, xcmd.Interrupted{}) {
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "", "path to the configuration file (optional, defaults used if omitted)")
	runCmd.Flags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ringctlCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(flags runFlags) error {
	cfg := config.Default()
	if flags.ConfigPath != "" {
		loaded, err := config.Load(flags.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if flags.Debug {
		cfg.Logging.Level = zapcore.DebugLevel
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Sync()

	kern, err := ipc.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize kernel: %w", err)
	}
	defer kern.Close()

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return runDemo(ctx, kern, log)
	})
	wg.Go(func() error {
		err := xcmd.WaitInterrupted(ctx)
		log.Infow("caught signal", "err", err)
		return err
	})

	return wg.Wait()
}

// runDemo spawns one owning process and exercises both a pipe and a named
// ring buffer on it, logging progress until ctx is canceled.
func runDemo(ctx context.Context, kern *ipc.Kernel, log *zap.SugaredLogger) error {
	owner := kern.Spawn()
	defer kern.Exit(owner)

	readFD, writeFD, err := kern.PipeAlloc(owner)
	if err != nil {
		return fmt.Errorf("demo: pipe alloc: %w", err)
	}

	if _, err := kern.PipeWrite(owner, writeFD, []byte("hello from ipcd")); err != nil {
		return fmt.Errorf("demo: pipe write: %w", err)
	}
	if err := kern.PipeClose(owner, writeFD); err != nil {
		return fmt.Errorf("demo: pipe close: %w", err)
	}
	buf := make([]byte, 64)
	n, err := kern.PipeRead(owner, readFD, buf)
	if err != nil {
		return fmt.Errorf("demo: pipe read: %w", err)
	}
	log.Infow("demo pipe round trip", "bytes", string(buf[:n]))

	base, err := kern.Ringbuf(owner, "demo", ipc.OpOpen)
	if err != nil {
		return fmt.Errorf("demo: ringbuf open: %w", err)
	}
	log.Infow("demo ring bound", "base", base)

	<-ctx.Done()
	return ctx.Err()
}
