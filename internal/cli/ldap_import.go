package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mrlokans/phonedir/internal/client"
	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

// LDAPImportCommand searches the directory through a running server and
// imports the chosen entries one after another.
type LDAPImportCommand struct {
	ServerURL       string
	Token           string
	SearchTerm      string
	ExcludeStudents bool
	ExcludeAlumni   bool
	DN              string
	SingleSelect    bool
	All             bool
	Timeout         time.Duration
	Verbose         bool

	out io.Writer
}

func NewLDAPImportCommand(cfg *config.Config) *LDAPImportCommand {
	cmd := &LDAPImportCommand{out: os.Stdout, Timeout: importer.DefaultRequestTimeout}
	if cfg != nil {
		cmd.ServerURL = cfg.Import.ServerURL
		cmd.Token = cfg.Auth.APIToken
		if cfg.Import.RequestTimeout > 0 {
			cmd.Timeout = cfg.Import.RequestTimeout
		}
	}
	return cmd
}

func (cmd *LDAPImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("ldap-import", flag.ContinueOnError)

	fs.StringVar(&cmd.ServerURL, "server", cmd.ServerURL, "Base URL of the phonedir server")
	fs.StringVar(&cmd.Token, "token", cmd.Token, "API token (defaults to AUTH_API_TOKEN)")
	fs.StringVar(&cmd.SearchTerm, "search", "", "Directory search term (name, uid or email)")
	fs.BoolVar(&cmd.ExcludeStudents, "exclude-students", false, "Skip student entries")
	fs.BoolVar(&cmd.ExcludeAlumni, "exclude-alumni", false, "Skip alumni entries")
	fs.StringVar(&cmd.DN, "dn", "", "Import a single entry by DN and resolve conflicts interactively")
	fs.BoolVar(&cmd.SingleSelect, "select", false, "Resolve conflicts with one selection instead of two questions")
	fs.BoolVar(&cmd.All, "all", false, "Import every search result without asking")
	fs.DurationVar(&cmd.Timeout, "timeout", cmd.Timeout, "Timeout for each import request")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every outcome")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s ldap-import (-search <term> | -dn <dn>) [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import directory entries through a running phonedir server.\n\n")
		fmt.Fprintf(os.Stderr, "With -search the results are imported as a batch: conflicts with manual\n")
		fmt.Fprintf(os.Stderr, "contacts are counted and left for later. With -dn a single entry is\n")
		fmt.Fprintf(os.Stderr, "imported and a conflict is resolved on the spot.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s ldap-import -search smith -exclude-students\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s ldap-import -dn \"uid=jsmith,ou=people,dc=example,dc=org\" -select\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.DN == "" && strings.TrimSpace(cmd.SearchTerm) == "" {
		return fmt.Errorf("one of -search or -dn is required")
	}
	if cmd.DN != "" && cmd.SearchTerm != "" {
		return fmt.Errorf("-search and -dn cannot be combined")
	}
	if cmd.Timeout <= 0 {
		return fmt.Errorf("-timeout must be positive")
	}

	base, err := client.ParseBaseURL(cmd.ServerURL)
	if err != nil {
		return err
	}
	cmd.ServerURL = base
	return nil
}

func (cmd *LDAPImportCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cmd.ServerURL, client.WithToken(cmd.Token))
	if cmd.DN != "" {
		return cmd.importSingle(ctx, api, chooser(cmd.SingleSelect))
	}

	candidates, err := api.Search(ctx, importer.SearchQuery{
		Term:            strings.TrimSpace(cmd.SearchTerm),
		ExcludeStudents: cmd.ExcludeStudents,
		ExcludeAlumni:   cmd.ExcludeAlumni,
	})
	if err != nil {
		return fmt.Errorf("directory search failed: %w", err)
	}
	if len(candidates) == 0 {
		fmt.Fprintln(cmd.out, "No matching directory entries found")
		return nil
	}
	fmt.Fprintf(cmd.out, "Found %d directory entries\n", len(candidates))

	if !cmd.All {
		candidates, err = pickCandidates(ctx, candidates)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Fprintln(cmd.out, "Nothing selected")
			return nil
		}
	}

	result := cmd.importBatch(ctx, api, candidates)
	if result.Summary.Cancelled {
		return context.Canceled
	}
	return nil
}

func (cmd *LDAPImportCommand) importSingle(ctx context.Context, backend importer.Backend, ch importer.Chooser) error {
	resolver := importer.NewResolver(backend, ch, nil)
	result, err := resolver.ImportOne(ctx, entities.ImportCandidate{DN: cmd.DN})
	switch {
	case errors.Is(err, importer.ErrResolutionCancelled):
		fmt.Fprintf(cmd.out, "Conflict left unresolved for %s\n", cmd.DN)
		return nil
	case err != nil:
		return fmt.Errorf("import of %s failed: %w", cmd.DN, err)
	}

	if result.Resolved {
		fmt.Fprintf(cmd.out, "Conflict with contact #%d resolved: %s\n",
			result.Outcome.ExistingContactID, result.Action.Label())
		return nil
	}
	msg := result.Outcome.Message
	if msg == "" {
		msg = "Contact imported"
	}
	fmt.Fprintln(cmd.out, msg)
	return nil
}

func (cmd *LDAPImportCommand) importBatch(ctx context.Context, backend importer.Backend, candidates []entities.ImportCandidate) importer.BatchResult {
	batch := importer.NewBatchImporter(backend, importer.WithRequestTimeout(cmd.Timeout))

	reporter := importer.ReporterFuncs{
		OnProgress: func(p entities.BatchProgress, c entities.ImportCandidate, o entities.ImportOutcome) {
			if cmd.Verbose || o.Kind != entities.OutcomeSuccess {
				fmt.Fprintf(cmd.out, "[%s %3.0f%%] %s: %s\n", p.Text(), p.Percent(), candidateLabel(c), o)
				return
			}
			fmt.Fprintf(cmd.out, "[%s %3.0f%%]\n", p.Text(), p.Percent())
		},
		OnComplete: func(s entities.BatchSummary) {
			fmt.Fprintf(cmd.out, "\n%s\n", s)
		},
	}

	result := batch.Run(ctx, candidates, reporter)

	if conflicts := result.Conflicts(); len(conflicts) > 0 {
		fmt.Fprintf(cmd.out, "\n%d conflicts were left unresolved:\n", len(conflicts))
		for _, item := range conflicts {
			fmt.Fprintf(cmd.out, "  %s -> contact #%d\n", candidateLabel(item.Candidate), item.Outcome.ExistingContactID)
		}
		fmt.Fprintf(cmd.out, "Resolve them with: %s ldap-import -dn <dn>\n", os.Args[0])
	}
	return result
}
