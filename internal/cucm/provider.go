package cucm

import "sync"

// Provider hands out a Client for the current configuration. The client,
// and with it the lookup cache, is reused until the configuration changes.
type Provider struct {
	mu      sync.Mutex
	config  func() Config
	opts    []Option
	current *Client
}

func NewProvider(config func() Config, opts ...Option) *Provider {
	return &Provider{config: config, opts: opts}
}

// Client returns ErrNotConfigured when host or credentials are missing.
func (p *Provider) Client() (*Client, error) {
	cfg := p.config().withDefaults()
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.cfg != cfg {
		p.current = NewClient(cfg, p.opts...)
	}
	return p.current, nil
}
