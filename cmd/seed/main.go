// Package main provides fixture seeding commands for a PostgreSQL database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zacaytion/fixturekit/internal/app"
	"github.com/zacaytion/fixturekit/internal/cli"
	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/fixturekit"
	"github.com/zacaytion/fixturekit/internal/logging"
)

func main() {
	if err := newSeedCmd().command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type seedCmd struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newSeedCmd() *seedCmd {
	return &seedCmd{v: config.NewViper()}
}

func (s *seedCmd) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fixture seeding tool",
		Long:  "Resets a test database and loads fixture files into its resources.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			s.cfg, err = config.LoadWithViper(s.v, s.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&s.cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().String("fixtures-dir", "fixtures", "directory holding fixture files")

	b := cli.NewFlagBinder(s.v, rootCmd)
	b.Bind("fixtures.dir", "fixtures-dir")
	cli.AddPGFlags(b, rootCmd)
	cli.AddLoggingFlags(b, rootCmd)
	if err := b.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(s.resetCmd())
	rootCmd.AddCommand(s.loadCmd())
	rootCmd.AddCommand(s.listCmd())
	return rootCmd
}

func (s *seedCmd) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop every resource table and recreate the indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withKit(cmd.Context(), func(ctx context.Context, kit *fixturekit.Kit) error {
				if err := kit.ResetDatabase(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset database %s\n", s.cfg.PG.Database)
				return nil
			})
		},
	}
}

func (s *seedCmd) loadCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "load [fixture...]",
		Short: "Insert fixtures into the resources of the same name",
		Long: "Insert each named fixture into the resource of the same name. " +
			"Without arguments every fixture whose name matches a resource is loaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withKit(cmd.Context(), func(ctx context.Context, kit *fixturekit.Kit) error {
				if reset {
					if err := kit.ResetDatabase(ctx); err != nil {
						return err
					}
				}
				return loadFixtures(ctx, kit, args, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the database before loading")
	return cmd
}

func (s *seedCmd) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List fixture files and their document counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := fixturekit.LoadFixtures(s.cfg.Fixtures.Dir)
			if err != nil {
				return err
			}
			return listFixtures(fx, cmd.OutOrStdout())
		},
	}
}

// withKit opens the database, hands a Kit over it to fn, and closes the pool.
func (s *seedCmd) withKit(ctx context.Context, fn func(context.Context, *fixturekit.Kit) error) error {
	logger, closeLogger := logging.New(s.cfg.Logging, os.Stderr)
	defer func() {
		if err := closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}()

	a, err := app.Open(ctx, s.cfg.PG, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	kit := fixturekit.New(a,
		fixturekit.WithFixturesDir(s.cfg.Fixtures.Dir),
		fixturekit.WithLogger(logger),
	)
	return fn(ctx, kit)
}

// loadFixtures inserts each named fixture into the resource of the same name.
// With no names it loads every fixture that has a matching resource, in
// resource registration order.
func loadFixtures(ctx context.Context, kit *fixturekit.Kit, names []string, out io.Writer) error {
	if len(names) == 0 {
		fx, err := kit.Fixtures()
		if err != nil {
			return err
		}
		for _, m := range kit.App().Adapter().Models() {
			if _, ok := fx[m.Name]; ok {
				names = append(names, m.Name)
			}
		}
		if len(names) == 0 {
			return errors.New("no fixture matches a resource")
		}
	}

	for _, name := range names {
		n, err := kit.InsertFixture(ctx, name, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "loaded %d %s\n", n, name)
	}
	return nil
}

func listFixtures(fx fixturekit.Fixtures, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIXTURE\tDOCS\tFORM")
	for _, name := range fx.Names() {
		f := fx[name]
		form := "single"
		if f.IsList() {
			form = "list"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, f.Len(), form)
	}
	return w.Flush()
}
