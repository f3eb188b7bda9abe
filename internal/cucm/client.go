package cucm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured  = errors.New("CUCM settings are not configured")
	ErrAuthentication = errors.New("authentication failed - check username and password")
	ErrPhoneNotFound  = errors.New("phone not found")
	ErrInvalidMAC     = errors.New("invalid MAC address")
	ErrPatternEmpty   = errors.New("search pattern is required")
)

// FaultError is a SOAP fault returned by AXL.
type FaultError struct {
	Code    string
	Message string
}

func (e *FaultError) Error() string {
	return "AXL fault: " + e.Message
}

// Phone is a device as returned by listPhone or getPhone.
type Phone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Model       string `json:"model"`
	Product     string `json:"product,omitempty"`
	Class       string `json:"class,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	MAC         string `json:"mac"`
}

func phoneFromAXL(p axlPhone) Phone {
	return Phone{
		Name:        p.Name,
		Description: p.Description,
		Model:       p.Model,
		Product:     p.Product,
		Class:       p.Class,
		Protocol:    p.Protocol,
		MAC:         MACFromDeviceName(p.Name),
	}
}

// Client talks to the CUCM AXL SOAP API. Owner and authorization code
// lookups are cached for CacheTTL.
type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	phones   *expirable.LRU[string, Phone]
	codes    *expirable.LRU[string, string]
	logger   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithEndpoint overrides the URL derived from Config.Host.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:      cfg,
		endpoint: cfg.Endpoint(),
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyCert}, //nolint:gosec // CUCM ships self-signed certificates
			},
		},
		phones: expirable.NewLRU[string, Phone](cfg.CacheSize, nil, cfg.CacheTTL),
		codes:  expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// Purge drops every cached lookup.
func (c *Client) Purge() {
	c.phones.Purge()
	c.codes.Purge()
}

func (c *Client) call(ctx context.Context, action string, payload any) (*responseEnvelope, error) {
	if !c.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	body, err := xml.Marshal(requestEnvelope{
		SoapNS: soapEnvelopeNS,
		AXLNS:  "http://www.cisco.com/AXL/API/" + c.cfg.version(),
		Body:   requestBody{Payload: payload},
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf(`"CUCM:DB ver=%s %s"`, c.cfg.version(), action))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("AXL %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthentication
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("AXL %s: read response: %w", action, err)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("AXL %s: HTTP %d", action, resp.StatusCode)
		}
		return nil, fmt.Errorf("AXL %s: decode response: %w", action, err)
	}
	if f := env.Body.Fault; f != nil {
		return nil, &FaultError{Code: f.Code, Message: strings.TrimSpace(f.String)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AXL %s: HTTP %d", action, resp.StatusCode)
	}
	return &env, nil
}

// TestConnection lists a single phone to verify credentials and reachability.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.call(ctx, "listPhone", listPhoneRequest{
		SearchCriteria: phoneCriteria{Name: DevicePrefix + "%"},
		First:          1,
	})
	return err
}

// SearchPhones lists phones whose name contains pattern. limit <= 0 uses
// the configured search limit.
func (c *Client) SearchPhones(ctx context.Context, pattern string, limit int) ([]Phone, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, ErrPatternEmpty
	}
	if limit <= 0 {
		limit = c.cfg.SearchLimit
	}

	env, err := c.call(ctx, "listPhone", listPhoneRequest{
		SearchCriteria: phoneCriteria{Name: "%" + pattern + "%"},
		First:          limit,
	})
	if err != nil {
		return nil, err
	}

	phones := []Phone{}
	if env.Body.ListPhone != nil {
		for _, p := range env.Body.ListPhone.Phones {
			phones = append(phones, phoneFromAXL(p))
		}
	}
	return phones, nil
}

// GetPhoneByMAC reads the SEP device for mac.
func (c *Client) GetPhoneByMAC(ctx context.Context, mac string) (*Phone, error) {
	if NormalizeMAC(mac) == "" {
		return nil, ErrInvalidMAC
	}
	name := DeviceName(mac)
	if p, ok := c.phones.Get("mac:" + name); ok {
		return &p, nil
	}

	env, err := c.call(ctx, "getPhone", getPhoneRequest{Name: name})
	if err != nil {
		var fault *FaultError
		if errors.As(err, &fault) && strings.Contains(fault.Message, "was not found") {
			return nil, ErrPhoneNotFound
		}
		return nil, err
	}
	if env.Body.GetPhone == nil || env.Body.GetPhone.Phone.Name == "" {
		return nil, ErrPhoneNotFound
	}

	p := phoneFromAXL(env.Body.GetPhone.Phone)
	c.phones.Add("mac:"+name, p)
	return &p, nil
}

// FindPhoneByOwner returns the first phone whose description mentions uid.
func (c *Client) FindPhoneByOwner(ctx context.Context, uid string) (*Phone, error) {
	if uid == "" {
		return nil, ErrPhoneNotFound
	}
	if p, ok := c.phones.Get("owner:" + uid); ok {
		return &p, nil
	}

	env, err := c.call(ctx, "listPhone", listPhoneRequest{
		SearchCriteria: phoneCriteria{Description: "%" + uid + "%"},
	})
	if err != nil {
		return nil, err
	}
	if env.Body.ListPhone == nil || len(env.Body.ListPhone.Phones) == 0 {
		return nil, ErrPhoneNotFound
	}

	p := phoneFromAXL(env.Body.ListPhone.Phones[0])
	c.phones.Add("owner:"+uid, p)
	c.logger.Debug("found phone by owner", zap.String("uid", uid), zap.String("device", p.Name))
	return &p, nil
}

// FetchAuthCode returns the forced authorization code registered for uid,
// or "" when there is none.
func (c *Client) FetchAuthCode(ctx context.Context, uid string) (string, error) {
	if uid == "" {
		return "", nil
	}
	if code, ok := c.codes.Get(uid); ok {
		return code, nil
	}

	env, err := c.call(ctx, "listFacInfo", listFacInfoRequest{
		SearchCriteria: facCriteria{Name: uid},
	})
	if err != nil {
		return "", err
	}
	if env.Body.ListFacInfo == nil {
		return "", nil
	}
	for _, fac := range env.Body.ListFacInfo.FacInfo {
		if fac.Code != "" {
			c.codes.Add(uid, fac.Code)
			return fac.Code, nil
		}
	}
	return "", nil
}
