package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"OboGraphLoader/internal/app"
	"OboGraphLoader/internal/config"
	"OboGraphLoader/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "oboloader",
		Short:         "Load OBO ontologies into a graph database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(importCmd(&flags), constraintsCmd(&flags), enrichCmd(&flags))
	return cmd
}

func setup(flags *globalFlags) (*app.Application, *logging.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	logger := logging.New(cfg.Logging.Level)
	return app.New(cfg, logger), logger, nil
}

func importCmd(flags *globalFlags) *cobra.Command {
	var opts app.ImportOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import the [Term] stanzas of an OBO file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			report, err := application.RunImport(cmd.Context(), args[0], opts)
			fmt.Fprintf(cmd.OutOrStdout(),
				"run %s: scanned=%d loaded=%d failed=%d invalid=%d obsolete=%d empty=%d elapsed=%s\n",
				report.RunID, report.Scanned, report.Loaded, report.Failed,
				report.Invalid, report.Obsolete, report.Empty, report.Elapsed)
			if c := report.DryRun; c != nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"dry run graph: terms=%d synonym_collections=%d synonyms=%d publications=%d edges=%d\n",
					c.Terms, c.SynonymCollections, c.Synonyms, c.Publications, c.Edges)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.Reload, "reload", false, "Delete previously imported ontology nodes before loading")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Load into an in-memory graph and report counts only")
	return cmd
}

func constraintsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "constraints",
		Short: "Create the unique-key constraints required before the first import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return application.ApplyConstraints(cmd.Context())
		},
	}
}

func enrichCmd(flags *globalFlags) *cobra.Command {
	var (
		once  bool
		batch int
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill publication placeholders with PubMed metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, logger, err := setup(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			report, err := application.Enrich(cmd.Context(), once, batch)
			if err != nil {
				return err
			}
			if once {
				fmt.Fprintf(cmd.OutOrStdout(), "attempted=%d enriched=%d failed=%d\n",
					report.Attempted, report.Enriched, report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single enrichment pass and exit")
	cmd.Flags().IntVar(&batch, "batch", 0, "Publications per pass (default from config)")
	return cmd
}
