package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/entrypoint"
)

// LDAPSyncCommand runs one full directory sync against the local database,
// the same job the scheduler runs inside the server.
type LDAPSyncCommand struct {
	cfg     *config.Config
	Verbose bool

	out io.Writer
}

func NewLDAPSyncCommand(cfg *config.Config) *LDAPSyncCommand {
	return &LDAPSyncCommand{cfg: cfg, out: os.Stdout}
}

func (cmd *LDAPSyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("ldap-sync", flag.ContinueOnError)

	fs.StringVar(&cmd.cfg.Database.Path, "db", cmd.cfg.Database.Path, "Path to the phonedir database")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List UID conflicts found during the sync")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s ldap-sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Synchronize all directory people into the local database.\n")
		fmt.Fprintf(os.Stderr, "Connection settings are read from the database, then the environment.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *LDAPSyncCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := entrypoint.NewLogger(cmd.cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := entrypoint.Bootstrap(cmd.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Close()

	result, err := app.Sync.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintln(cmd.out, result.String())
	if cmd.Verbose {
		for _, c := range result.Conflicts {
			fmt.Fprintf(cmd.out, "  uid %s: manual contact #%d vs %s\n", c.UID, c.ManualContactID, c.DN)
		}
	}
	return nil
}
