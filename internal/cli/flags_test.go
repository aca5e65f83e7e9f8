package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/zacaytion/fixturekit/internal/config"
)

func TestFlagBinder_UnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("known", "", "")

	b := NewFlagBinder(config.NewViper(), cmd)
	b.Bind("a.known", "known")
	b.Bind("a.missing", "missing")

	err := b.Err()
	if err == nil {
		t.Fatal("Err() = nil, want error for missing flag")
	}
	if !strings.Contains(err.Error(), `flag "missing" not found`) {
		t.Errorf("Err() = %v, want it to name the missing flag", err)
	}
}

func TestFlagBinder_NoErrors(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	b := NewFlagBinder(config.NewViper(), cmd)
	AddPGFlags(b, cmd)
	AddLoggingFlags(b, cmd)

	if err := b.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}
}

func TestAddPGFlags_OverrideConfig(t *testing.T) {
	v := config.NewViper()
	cmd := &cobra.Command{Use: "test"}
	b := NewFlagBinder(v, cmd)
	AddPGFlags(b, cmd)
	AddLoggingFlags(b, cmd)

	if err := cmd.ParseFlags([]string{
		"--pg-database=orders_test",
		"--pg-ready-timeout=5s",
		"--pg-allow-drop",
		"--log-format=text",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := config.LoadWithViper(v, "")
	if err != nil {
		t.Fatalf("LoadWithViper() error = %v", err)
	}
	if cfg.PG.Database != "orders_test" {
		t.Errorf("PG.Database = %q, want orders_test", cfg.PG.Database)
	}
	if cfg.PG.ReadyTimeout != 5*time.Second {
		t.Errorf("PG.ReadyTimeout = %v, want 5s", cfg.PG.ReadyTimeout)
	}
	if !cfg.PG.AllowDrop {
		t.Error("PG.AllowDrop = false, want true")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
	if cfg.PG.Host != "localhost" {
		t.Errorf("PG.Host = %q, want default localhost", cfg.PG.Host)
	}
}
