// Package main is the entry point of tunerd, which runs a vision pipeline and
// serves its tunable parameters over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-tuner/internal/config"
	"github.com/askiada/go-tuner/internal/logging"
	"github.com/askiada/go-tuner/pkg/tuner"
	"github.com/askiada/go-tuner/pkg/vision"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tunerd",
		Short:         "Live parameter tuning for vision pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file (YAML)")

	rootCmd.AddCommand(newRunCmd(), newFieldsCmd(), newPipelinesCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process frames and serve the tuner API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
				cfg.ListenAddr = addr
			}
			if name, _ := cmd.Flags().GetString("pipeline"); name != "" {
				cfg.Pipeline.Initial = name
			}
			logger, err := logging.Setup(cmd.ErrOrStderr(), logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}

			return a.run(ctx)
		},
	}
	cmd.Flags().StringP("listen", "l", "", "Address to listen on, overrides listen_addr")
	cmd.Flags().StringP("pipeline", "p", "", "Pipeline to load at start, overrides pipeline.initial")

	return cmd
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <pipeline>",
		Short: "Print the tunable fields of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipelines := vision.NewManager(nil, nil)
			if err := pipelines.Load(args[0]); err != nil {
				return err
			}
			tm, err := tuner.NewManager(pipelines)
			if err != nil {
				return err
			}
			if err := tm.Initialize(context.Background()); err != nil {
				return err
			}
			defer tm.Dispose()

			type fieldView struct {
				Name   string   `yaml:"name"`
				Label  string   `yaml:"label"`
				Type   string   `yaml:"type"`
				Kind   string   `yaml:"kind"`
				Values []string `yaml:"values,omitempty"`
				Select []string `yaml:"selected,omitempty"`
			}
			views := make([]fieldView, 0)
			for _, spec := range tm.Snapshot() {
				view := fieldView{Name: spec.FieldName, Label: spec.Label, Type: spec.Type, Kind: spec.Kind}
				for _, slot := range spec.Slots {
					view.Values = append(view.Values, slot.Value)
				}
				for _, sel := range spec.Selections {
					view.Select = append(view.Select, sel.Selected)
				}
				views = append(views, view)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()

			return errors.Wrap(enc.Encode(views), "unable to print fields")
		},
	}
}

func newPipelinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipelines",
		Short: "List the available pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range vision.DefaultCatalog().Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config flag")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load configuration")
	}

	return cfg, nil
}
