package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
)

var (
	ErrEntryNotFound        = errors.New("contact not found in directory")
	ErrSearchTermRequired   = errors.New("search term is required")
	ErrNoNamingContext      = errors.New("no valid LDAP base DN found, check the LDAP settings")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// Conn is the subset of *ldap.Conn used by the client.
type Conn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	Close() error
}

// Dialer opens a connection for cfg.
type Dialer func(ctx context.Context, cfg Config) (Conn, error)

// DialLDAP is the default Dialer backed by go-ldap.
func DialLDAP(ctx context.Context, cfg Config) (Conn, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: timeout})}
	if cfg.UseSSL {
		serverName := cfg.Server
		if u, err := url.Parse(cfg.URL()); err == nil {
			serverName = u.Hostname()
		}
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: cfg.InsecureTLS, //nolint:gosec // operator opt-in for self-signed directories
		}))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := ldap.DialURL(cfg.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	conn.SetTimeout(timeout)
	return conn, nil
}

// Client queries the directory. Every call opens and closes its own
// connection.
type Client struct {
	cfg    Config
	dial   Dialer
	logger *zap.Logger
}

type Option func(*Client)

// WithDialer replaces DialLDAP.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{cfg: cfg, dial: DialLDAP, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) withConn(ctx context.Context, fn func(Conn) error) error {
	conn, err := c.dial(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Abort blocking operations when ctx is done.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if c.cfg.Anonymous() {
		err = conn.UnauthenticatedBind("")
	} else {
		err = conn.Bind(c.cfg.BindDN, c.cfg.BindPassword)
	}
	if err != nil {
		return fmt.Errorf("LDAP bind failed: %w", err)
	}

	if err := fn(conn); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (c *Client) sizeLimit() int {
	if c.cfg.MaxEntries < 0 {
		return 0
	}
	return c.cfg.MaxEntries
}

// Search returns candidates whose uid, cn, mail, sn or givenName contains
// term.
func (c *Client) Search(ctx context.Context, term string, excludeStudents, excludeAlumni bool) ([]entities.ImportCandidate, error) {
	if term == "" {
		return nil, ErrSearchTermRequired
	}

	filter := SearchFilter(term, excludeStudents, excludeAlumni)
	c.logger.Debug("searching directory", zap.String("filter", filter))

	var candidates []entities.ImportCandidate
	err := c.withConn(ctx, func(conn Conn) error {
		req := ldap.NewSearchRequest(
			c.cfg.BaseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
			c.sizeLimit(), 0, false,
			filter,
			searchAttributes,
			nil,
		)
		result, err := conn.Search(req)
		if err != nil && !partial(err, result) {
			return fmt.Errorf("LDAP search failed: %w", err)
		}
		for _, e := range result.Entries {
			candidates = append(candidates, candidateFromEntry(e))
		}
		return nil
	})
	return candidates, err
}

// Lookup reads a single entry by DN.
func (c *Client) Lookup(ctx context.Context, dn string) (*Person, error) {
	var person *Person
	err := c.withConn(ctx, func(conn Conn) error {
		req := ldap.NewSearchRequest(
			dn,
			ldap.ScopeBaseObject, ldap.NeverDerefAliases,
			1, 0, false,
			"(objectClass=*)",
			personAttributes,
			nil,
		)
		result, err := conn.Search(req)
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("LDAP lookup failed: %w", err)
		}
		if len(result.Entries) == 0 {
			return ErrEntryNotFound
		}
		p := personFromEntry(result.Entries[0])
		person = &p
		return nil
	})
	return person, err
}

// People returns every person entry below the base DN using paged search,
// truncated to MaxEntries when set. When the base DN does not exist the
// first naming context of the server is used instead.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	var people []Person
	err := c.withConn(ctx, func(conn Conn) error {
		baseDN, err := c.resolveBaseDN(conn)
		if err != nil {
			return err
		}

		filter := PersonFilter(c.cfg.ExcludeStudents)
		c.logger.Info("reading directory", zap.String("base_dn", baseDN), zap.String("filter", filter))

		req := ldap.NewSearchRequest(
			baseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
			c.sizeLimit(), 0, false,
			filter,
			personAttributes,
			nil,
		)

		pageSize := c.cfg.PageSize
		if pageSize == 0 {
			pageSize = 100
		}
		result, err := conn.SearchWithPaging(req, pageSize)
		if err != nil && !partial(err, result) {
			return fmt.Errorf("LDAP search failed: %w", err)
		}

		for _, e := range result.Entries {
			if c.cfg.MaxEntries > 0 && len(people) >= c.cfg.MaxEntries {
				break
			}
			people = append(people, personFromEntry(e))
		}
		return nil
	})
	return people, err
}

func (c *Client) resolveBaseDN(conn Conn) (string, error) {
	if err := verifyBaseDN(conn, c.cfg.BaseDN); err == nil {
		return c.cfg.BaseDN, nil
	}

	c.logger.Warn("base DN not found, looking up naming contexts", zap.String("base_dn", c.cfg.BaseDN))
	req := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"namingContexts", "defaultNamingContext"},
		nil,
	)
	result, err := conn.Search(req)
	if err != nil || len(result.Entries) == 0 {
		return "", ErrNoNamingContext
	}
	root := result.Entries[0]
	if def := root.GetAttributeValue("defaultNamingContext"); def != "" {
		return def, nil
	}
	if contexts := root.GetAttributeValues("namingContexts"); len(contexts) > 0 {
		return contexts[0], nil
	}
	return "", ErrNoNamingContext
}

func verifyBaseDN(conn Conn, baseDN string) error {
	if baseDN == "" {
		return ErrBaseDNRequired
	}
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		1, 0, false,
		"(objectClass=*)",
		[]string{"objectClass"},
		nil,
	)
	_, err := conn.Search(req)
	return err
}

// TestConnection binds and reads the base DN. It returns a human readable
// success message.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}
	err := c.withConn(ctx, func(conn Conn) error {
		if err := verifyBaseDN(conn, c.cfg.BaseDN); err != nil {
			return fmt.Errorf("base DN %q not accessible: %w", c.cfg.BaseDN, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	msg := "LDAP connection successful"
	if c.cfg.Anonymous() {
		msg += " (anonymous binding)"
	}
	return msg, nil
}

// partial reports whether err only signals a truncated result that still
// carries entries.
func partial(err error, result *ldap.SearchResult) bool {
	return result != nil && ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded)
}
