package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withBackend(cmd, func(ctx context.Context, b Backend) error {
				if err := b.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
}

func newAdminCmd(flags *rootFlags) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var passwordStdin bool
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an admin account",
		Long:  "Create an admin account. The password is prompted for twice unless --password-stdin is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			var err error
			if passwordStdin {
				password, err = getSimpleText(bufio.NewReader(cmd.InOrStdin()), "Password", cmd.ErrOrStderr())
			} else {
				password, err = promptNewPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			return flags.withBackend(cmd, func(ctx context.Context, b Backend) error {
				a, err := b.AddAdmin(ctx, args[0], password)
				if err != nil {
					return err
				}
				view := map[string]any{"id": a.ID, "username": a.Username}
				return flags.output(cmd.OutOrStdout(), view, func(w io.Writer) {
					fmt.Fprintf(w, "Admin %q created (id %d)\n", a.Username, a.ID)
				})
			})
		},
	}
	add.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")

	admin.AddCommand(add)
	return admin
}

func newScanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report image, entry and category counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withBackend(cmd, func(ctx context.Context, b Backend) error {
				r, err := b.Scan(ctx)
				if err != nil {
					return err
				}
				return flags.output(cmd.OutOrStdout(), r, func(w io.Writer) {
					fmt.Fprintf(w, "Images:     %d (%d attached, %d unattached)\n", r.TotalImages, r.AttachedImages, r.UnattachedImages)
					fmt.Fprintf(w, "Entries:    %d (%d orphaned)\n", r.TotalEntries, r.OrphanedEntries)
					fmt.Fprintf(w, "Categories: %d\n", r.TotalCategories)
				})
			})
		},
	}
}

func newFixOrphansCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-orphans",
		Short: "Point orphaned entries at the default category and placeholder image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withBackend(cmd, func(ctx context.Context, b Backend) error {
				r, err := b.FixOrphaned(ctx)
				if err != nil {
					return err
				}
				return flags.output(cmd.OutOrStdout(), r, func(w io.Writer) {
					fmt.Fprintf(w, "Fixed %d orphaned entry/entries (%d category, %d image)\n", r.TotalFixed, r.CategoryFixed, r.ImageFixed)
				})
			})
		},
	}
}

func newSweepImagesCmd(flags *rootFlags) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "sweep-images",
		Short: "Remove, park or clean unattached images",
		Long: `Sweep unattached images. Modes:
  delete  delete unattached images and their rows (default)
  temp    park unattached images under the temp directory
  clean   delete parked images that are still unattached`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case sweepDelete, sweepTemp, sweepClean:
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}

			return flags.withBackend(cmd, func(ctx context.Context, b Backend) error {
				r, err := b.SweepImages(ctx, mode)
				if err != nil {
					return err
				}
				return flags.output(cmd.OutOrStdout(), r, func(w io.Writer) {
					fmt.Fprintf(w, "Swept %d image(s) (%s)\n", r.Total, mode)
					printErrors(w, r.Errors)
				})
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", sweepDelete, "sweep mode: delete, temp or clean")
	return cmd
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <bookmarks.html>",
		Short: "Import a Netscape bookmark file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return flags.withBackend(cmd, func(ctx context.Context, b Backend) error {
				r, err := b.Import(ctx, f)
				if err != nil {
					return err
				}
				return flags.output(cmd.OutOrStdout(), r, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d bookmark(s), skipped %d, created %d categor(y/ies)\n",
						r.Created, r.Skipped, r.CategoriesCreated)
					printErrors(w, r.Errors)
				})
			})
		},
	}
}
