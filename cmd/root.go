package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/trackpoint/internal/config"
	"github.com/andresmejia3/trackpoint/internal/store"
	"github.com/andresmejia3/trackpoint/internal/utils"
)

// RunOptions holds shared settings for the pose, gesture and replay commands
type RunOptions struct {
	InputPath  string
	NthFrame   int
	RecordPath string
	Static     bool
}

var (
	// Sink is the session store shared by subcommands
	Sink store.Sink
	// cfg is the loaded configuration with flag overrides applied
	cfg config.Config

	configPath string
	storeURL   string
	runnerCmd  string
	graphDir   string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "trackpoint",
	Short:         "Pose tracking and gesture recognition over an external graph runner",
	Version:       Version, // This enables the --version flag
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// Flags win over the file and the environment
		if cmd.Flags().Changed("store") {
			cfg.Store = storeURL
		}
		if cmd.Flags().Changed("runner") {
			cfg.Runner.Command = runnerCmd
		}
		if cmd.Flags().Changed("graph-dir") {
			cfg.Runner.GraphDir = graphDir
		}

		// Use the command's context (which will be cancellable) for the connection
		Sink, err = store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to open store %s: %w", cfg.Store, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if Sink != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to close the store cleanly.
			Sink.Close(context.Background())
		}
	},
}

// reportedError marks an error that was already shown through utils.ShowError.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// fail shows the error box, including runner logs when s is set, and returns
// an error Execute will not print again.
func fail(context string, err error, s *utils.SafeCommand) error {
	utils.ShowError(context, err, s)
	if err == nil {
		err = errors.New(context)
	}
	return &reportedError{err: fmt.Errorf("%s: %w", context, err)}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store", "", "Session store: postgres://... or a SQLite file path (default: "+config.DefaultStore+")")
	rootCmd.PersistentFlags().StringVar(&runnerCmd, "runner", "", "Graph runner executable")
	rootCmd.PersistentFlags().StringVar(&graphDir, "graph-dir", "", "Directory holding the binary graph files")
}

// addRunFlags registers the flags shared by commands that feed frames.
func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVarP(&opts.InputPath, "input", "i", "", "Path to a video or image")
	cmd.Flags().IntVarP(&opts.NthFrame, "nth-frame", "n", 1, "Process every nth frame of a video")
	cmd.Flags().StringVarP(&opts.RecordPath, "record", "r", "", "Write delivered packets to this recording file")
	cmd.Flags().BoolVarP(&opts.Static, "static", "s", false, "Treat every frame as an unrelated still image")
	cmd.MarkFlagRequired("input")
}
