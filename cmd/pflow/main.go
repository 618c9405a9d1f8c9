// Command pflow runs declarative workflows: it resolves a workflow by name
// or path, validates it, executes it, and prints structured results.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spinje/pflow/pkg/config"
	"github.com/spinje/pflow/pkg/library"
	"github.com/spinje/pflow/pkg/logging"
	"github.com/spinje/pflow/pkg/settings"
)

var (
	flagValidateOnly bool
	flagOutputFormat string
	flagVerbose      bool
	flagPermissive   bool
	flagNoTrace      bool
)

func main() {
	root := &cobra.Command{
		Use:   "pflow <workflow> [key=value ...]",
		Short: "Deterministic workflow runtime",
		Long: "pflow compiles declarative workflow descriptions into executable plans,\n" +
			"runs them, and returns structured outputs, traces, and errors.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runWorkflow(cmd, args[0], args[1:])
		},
	}

	root.PersistentFlags().BoolVar(&flagValidateOnly, "validate-only", false,
		"validate the workflow without executing any node")
	root.PersistentFlags().StringVar(&flagOutputFormat, "output-format", "text",
		"output format: text or json")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
	root.PersistentFlags().BoolVar(&flagPermissive, "permissive", false,
		"continue on unresolved templates instead of failing")
	root.PersistentFlags().BoolVar(&flagNoTrace, "no-trace", false,
		"disable trace file output")

	root.AddCommand(workflowCommand(), settingsCommand())

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// buildConfig assembles the runtime configuration from defaults, env and
// flags.
func buildConfig() *config.Config {
	cfg := config.Default().FromEnv()
	if flagPermissive {
		cfg.ResolutionMode = "permissive"
	}
	if flagNoTrace {
		cfg.TraceEnabled = false
	}
	return cfg
}

func buildLogger() *logging.Logger {
	level := "warn"
	if flagVerbose {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, Pretty: flagOutputFormat != "json"})
}

func newManager() *library.Manager {
	return library.NewManager(os.Getenv("PFLOW_WORKFLOW_DIR"))
}

func loadSettings() *settings.Store {
	store, err := settings.Load(settings.DefaultPath())
	if err != nil {
		// A broken settings file must not stop execution; run without it.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		store, _ = settings.Load(filepath.Join(os.TempDir(), "pflow", "empty-settings.yaml"))
	}
	return store
}
