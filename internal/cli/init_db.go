package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/database"
)

// InitDBCommand creates the schema and seeds default settings.
type InitDBCommand struct {
	DatabasePath string
	Reset        bool

	out io.Writer
}

func NewInitDBCommand() *InitDBCommand {
	return &InitDBCommand{out: os.Stdout}
}

func (cmd *InitDBCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the phonedir database")
	fs.BoolVar(&cmd.Reset, "reset", false, "Drop all tables first (destroys contacts, history and settings)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s init-db [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create the database schema and seed default settings.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *InitDBCommand) Run() error {
	absPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	if dir := filepath.Dir(absPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.NewDatabase(absPath, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cmd.Reset {
		if err := db.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "Database reset: %s\n", absPath)
		return nil
	}

	fmt.Fprintf(cmd.out, "Database initialized: %s\n", absPath)
	return nil
}
