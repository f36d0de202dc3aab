// Package cli implements catalogctl, the operator command line of the
// catalog: schema migrations, admin accounts, reconciliation and import.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/webcatalog/internal/logging"
	"github.com/dmitrijs2005/webcatalog/internal/server/config"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configFile string
	dsn        string
	imageDir   string
	jsonMode   bool
}

// NewRootCmd creates the top-level "catalogctl" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Operate a web catalog installation",
		Long:  "catalogctl migrates the catalog schema, manages admin accounts,\nreconciles images and orphaned entries and imports bookmarks.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "JSON config file")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "database DSN (overrides config)")
	root.PersistentFlags().StringVar(&flags.imageDir, "image-dir", "", "image directory (overrides config)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newMigrateCmd(flags))
	root.AddCommand(newAdminCmd(flags))
	root.AddCommand(newScanCmd(flags))
	root.AddCommand(newFixOrphansCmd(flags))
	root.AddCommand(newSweepImagesCmd(flags))
	root.AddCommand(newImportCmd(flags))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.dsn != "" {
		cfg.DatabaseDSN = f.dsn
	}
	if f.imageDir != "" {
		cfg.ImageDir = f.imageDir
	}
	return cfg, nil
}

// withBackend opens the backend for one command and closes it afterwards.
func (f *rootFlags) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b Backend) error) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, b)
}

// output prints v as JSON in --json mode and via text otherwise.
func (f *rootFlags) output(w io.Writer, v any, text func(io.Writer)) error {
	if f.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func printErrors(w io.Writer, errs []string) {
	for _, e := range errs {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}
