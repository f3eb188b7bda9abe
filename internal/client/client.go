// Package client talks to a running phonedir server over its JSON API. It
// implements importer.Backend and importer.Searcher so that the batch
// importer and the conflict resolver can run from the command line.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

var (
	_ importer.Backend  = (*Client)(nil)
	_ importer.Searcher = (*Client)(nil)
)

// Client calls the import endpoints of a phonedir server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the response shape shared by the import endpoints.
type envelope struct {
	Success   *bool                      `json:"success"`
	Message   string                     `json:"message"`
	Error     string                     `json:"error"`
	Conflict  bool                       `json:"conflict"`
	UID       string                     `json:"uid"`
	ContactID json.RawMessage            `json:"contact_id"`
	Contacts  []entities.ImportCandidate `json:"contacts"`
}

// Import asks the server to import the directory entry dn.
func (c *Client) Import(ctx context.Context, dn string) (entities.ImportOutcome, error) {
	env, err := c.post(ctx, "/import-contact", map[string]string{"dn": dn})
	if err != nil {
		return entities.ImportOutcome{}, err
	}

	switch {
	case *env.Success:
		return entities.SuccessOutcome(env.Message), nil
	case env.Conflict:
		id, err := parseContactID(env.ContactID)
		if err != nil {
			return entities.ImportOutcome{}, err
		}
		return entities.ConflictOutcome(id, env.UID, env.Message), nil
	default:
		return entities.ImportOutcome{}, rejection(env)
	}
}

// ResolveConflict sends the operator's choice for a flagged contact.
func (c *Client) ResolveConflict(ctx context.Context, contactID uint, action entities.ResolutionAction, dn string) error {
	path := "/resolve-conflict/" + strconv.FormatUint(uint64(contactID), 10)
	env, err := c.post(ctx, path, map[string]string{"action": string(action), "dn": dn})
	if err != nil {
		return err
	}
	if !*env.Success {
		return rejection(env)
	}
	return nil
}

// Search runs a directory search on the server.
func (c *Client) Search(ctx context.Context, q importer.SearchQuery) ([]entities.ImportCandidate, error) {
	env, err := c.post(ctx, "/ldap-search", q)
	if err != nil {
		return nil, err
	}
	if !*env.Success {
		return nil, rejection(env)
	}
	if env.Contacts == nil {
		return []entities.ImportCandidate{}, nil
	}
	return env.Contacts, nil
}

// post sends payload as JSON and decodes the response envelope. Transport
// failures wrap importer.ErrNetwork; bodies that are not an envelope wrap
// importer.ErrMalformedResponse.
func (c *Client) post(ctx context.Context, path string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", importer.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", importer.ErrNetwork, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Debug("undecodable response", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d: %s", importer.ErrMalformedResponse, resp.StatusCode, truncate(raw))
	}
	if env.Success == nil {
		// Middleware errors (CSRF, auth) only carry "error".
		if resp.StatusCode >= 400 && env.Error != "" {
			return nil, importer.Rejected("%s", env.Error)
		}
		return nil, fmt.Errorf("%w: status %d: missing success field", importer.ErrMalformedResponse, resp.StatusCode)
	}
	return &env, nil
}

func rejection(env *envelope) error {
	msg := env.Error
	if msg == "" {
		msg = env.Message
	}
	if msg == "" {
		msg = "request failed"
	}
	return importer.Rejected("%s", msg)
}

// parseContactID accepts the contact id as a JSON number or string.
func parseContactID(raw json.RawMessage) (uint, error) {
	s := strings.Trim(string(raw), `"`)
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid contact_id %s", importer.ErrMalformedResponse, raw)
	}
	return uint(id), nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ParseBaseURL validates a server address given on the command line.
func ParseBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
