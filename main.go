package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/phonedir/internal/cli"
	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "ldap-import":
		cmd = cli.NewLDAPImportCommand(config.NewConfig())
	case "ldap-sync":
		cmd = cli.NewLDAPSyncCommand(config.NewConfig())
	case "init-db":
		cmd = cli.NewInitDBCommand()
	case "version":
		fmt.Printf("phonedir %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve        Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  ldap-import  Search the directory and import entries through the server\n")
	fmt.Fprintf(os.Stderr, "  ldap-sync    Run a full directory sync against the local database\n")
	fmt.Fprintf(os.Stderr, "  init-db      Create the database schema and default settings\n")
	fmt.Fprintf(os.Stderr, "  version      Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
