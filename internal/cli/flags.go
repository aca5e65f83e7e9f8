// Package cli holds helpers shared by the command entrypoints.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagBinder binds cobra flags to viper keys and collects the failures, so a
// typo in a flag name is reported once at startup instead of silently ignored.
type FlagBinder struct {
	v      *viper.Viper
	cmd    *cobra.Command
	errors []string
}

// NewFlagBinder returns a binder for cmd's flags, persistent ones included.
func NewFlagBinder(v *viper.Viper, cmd *cobra.Command) *FlagBinder {
	return &FlagBinder{v: v, cmd: cmd}
}

// Bind binds the flag named flagName to key.
func (b *FlagBinder) Bind(key, flagName string) {
	flag := b.cmd.Flags().Lookup(flagName)
	if flag == nil {
		flag = b.cmd.PersistentFlags().Lookup(flagName)
	}
	if flag == nil {
		b.errors = append(b.errors, fmt.Sprintf("flag %q not found", flagName))
		return
	}
	if err := b.v.BindPFlag(key, flag); err != nil {
		b.errors = append(b.errors, fmt.Sprintf("failed to bind %q to %q: %v", flagName, key, err))
	}
}

// Err reports every binding failure, or nil.
func (b *FlagBinder) Err() error {
	if len(b.errors) == 0 {
		return nil
	}
	return fmt.Errorf("flag binding errors: %v", b.errors)
}

// AddPGFlags registers the PostgreSQL connection flags on cmd as persistent
// flags and binds them to the pg.* keys.
func AddPGFlags(b *FlagBinder, cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("pg-host", "localhost", "PostgreSQL host")
	flags.Int("pg-port", 5432, "PostgreSQL port")
	flags.String("pg-database", "fixturekit_test", "PostgreSQL database name")
	flags.String("pg-user", "postgres", "PostgreSQL user")
	flags.String("pg-password", "", "PostgreSQL password")
	flags.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	flags.String("pg-schema", "app", "schema holding the resource tables")
	flags.Bool("pg-allow-drop", false, "allow dropping a database not named *_test")
	flags.Duration("pg-ready-timeout", 30*time.Second, "how long to wait for PostgreSQL to accept connections")
	flags.Int32("pg-max-conns", 10, "max database connections")

	b.Bind("pg.host", "pg-host")
	b.Bind("pg.port", "pg-port")
	b.Bind("pg.database", "pg-database")
	b.Bind("pg.user", "pg-user")
	b.Bind("pg.password", "pg-password")
	b.Bind("pg.sslmode", "pg-sslmode")
	b.Bind("pg.schema", "pg-schema")
	b.Bind("pg.allow_drop", "pg-allow-drop")
	b.Bind("pg.ready_timeout", "pg-ready-timeout")
	b.Bind("pg.max_conns", "pg-max-conns")
}

// AddLoggingFlags registers the logging flags on cmd as persistent flags and
// binds them to the logging.* keys.
func AddLoggingFlags(b *FlagBinder, cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.String("log-output", "stdout", "log output (stdout, stderr, or file path)")

	b.Bind("logging.level", "log-level")
	b.Bind("logging.format", "log-format")
	b.Bind("logging.output", "log-output")
}
