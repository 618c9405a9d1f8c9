package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spinje/pflow/pkg/engine"
	"github.com/spinje/pflow/pkg/ir"
	"github.com/spinje/pflow/pkg/library"
	"github.com/spinje/pflow/pkg/validator"
)

// errSilent signals that the failure has already been printed.
var errSilent = fmt.Errorf("failure already reported")

// runWorkflow resolves, validates and (unless --validate-only) executes one
// workflow reference with key=value inputs.
func runWorkflow(cmd *cobra.Command, ref string, kvArgs []string) error {
	params, err := parseParams(kvArgs)
	if err != nil {
		return err
	}

	manager := newManager()
	doc, source, err := manager.Resolve(ref)
	if err != nil {
		printError(err.Error())
		return errSilent
	}
	wf := ir.Normalize(doc.Workflow)

	// Secrets referenced as $NAME / ${NAME} come from the settings store;
	// track which parameters they fed so persistence redacts them.
	store := loadSettings()
	params, envParams := store.ExpandParams(params)
	if len(envParams) > 0 {
		// The hidden list rides through the shared store so trace and
		// metadata sanitization redact env-sourced values by name.
		params[engine.EnvParamNamesKey] = envParams
	}

	registry := engine.DefaultRegistry()

	suppliedInputs := params
	if flagValidateOnly {
		// Validation must not depend on run-time inputs being present.
		suppliedInputs = nil
	}
	result := validator.Validate(wf, registry, validator.Options{SuppliedInputs: suppliedInputs})
	if !result.Valid() {
		printValidationFailure(result)
		return errSilent
	}

	if flagValidateOnly {
		printValidationSuccess(result)
		return nil
	}

	cfg := buildConfig()
	executor := engine.New(registry,
		engine.WithConfig(cfg),
		engine.WithLogger(buildLogger()),
	)

	// SIGINT translates to a cancel request; the executor stops between
	// nodes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	execResult, execErr := executor.Execute(ctx, wf, params)

	if execErr == nil && source == library.SourceLibrary {
		if err := manager.RecordExecution(ref, params, envParams); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not update workflow metadata: %v\n", err)
		}
	}

	printExecutionResult(execResult, execErr)
	if execErr != nil {
		return errSilent
	}
	return nil
}

// parseParams splits key=value arguments into an input map.
func parseParams(args []string) (map[string]any, error) {
	params := map[string]any{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}

// workflowCommand groups the library management subcommands.
func workflowCommand() *cobra.Command {
	workflow := &cobra.Command{
		Use:   "workflow",
		Short: "Manage saved workflows",
	}

	workflow.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := newManager().List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No saved workflows. Save one with 'pflow workflow save'.")
				return nil
			}
			for _, info := range infos {
				line := info.Name
				if info.Description != "" {
					line += " — " + info.Description
				}
				if info.ExecutionCount > 0 {
					line += fmt.Sprintf(" (%d runs)", info.ExecutionCount)
				}
				fmt.Println(line)
			}
			return nil
		},
	})

	workflow.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, _, err := newManager().Resolve(args[0])
			if err != nil {
				return err
			}
			content, err := markdownWrite(doc)
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		},
	})

	workflow.AddCommand(&cobra.Command{
		Use:   "save <name> <path>",
		Short: "Save a workflow file into the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := newManager()
			doc, _, err := manager.Resolve(args[1])
			if err != nil {
				return err
			}
			if err := manager.Save(args[0], doc); err != nil {
				return err
			}
			fmt.Printf("✓ Saved workflow %q\n", args[0])
			return nil
		},
	})

	workflow.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newManager().Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted workflow %q\n", args[0])
			return nil
		},
	})

	return workflow
}

// settingsCommand groups the settings subcommands.
func settingsCommand() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage pflow settings and stored environment values",
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set-env <name> <value>",
		Short: "Store an environment value (e.g. an API token)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := loadSettings()
			store.SetEnv(args[0], args[1])
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Printf("✓ Set environment value: %s\n", strings.ToUpper(args[0]))
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "unset-env <name>",
		Short: "Remove a stored environment value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := loadSettings()
			store.UnsetEnv(args[0])
			if err := store.Save(); err != nil {
				return err
			}
			fmt.Printf("✓ Removed environment value: %s\n", strings.ToUpper(args[0]))
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "list-env",
		Short: "List stored environment value names (values masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env := loadSettings().EnvSection()
			if len(env) == 0 {
				fmt.Println("No stored environment values.")
				return nil
			}
			for name, value := range env {
				fmt.Printf("%s=%s\n", name, maskValue(value))
			}
			return nil
		},
	})

	return settingsCmd
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return "***"
	}
	return value[:3] + "***"
}
