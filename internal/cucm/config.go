package cucm

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultVersion     = "14.0"
	DefaultSearchLimit = 100
	DefaultTimeout     = 30 * time.Second
	DefaultCacheTTL    = time.Hour
	DefaultCacheSize   = 512
	axlPort            = 8443
)

// Config describes an AXL endpoint.
type Config struct {
	Host        string
	Username    string
	Password    string
	Version     string
	VerifyCert  bool
	Timeout     time.Duration
	CacheTTL    time.Duration
	CacheSize   int
	SearchLimit int
}

// Configured reports whether host and credentials are all set.
func (c Config) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Endpoint returns the AXL service URL. A host given as a full URL is used
// as is.
func (c Config) Endpoint() string {
	if strings.Contains(c.Host, "://") {
		return strings.TrimRight(c.Host, "/") + "/"
	}
	return fmt.Sprintf("https://%s:%d/axl/", c.Host, axlPort)
}

func (c Config) version() string {
	if c.Version == "" {
		return DefaultVersion
	}
	return c.Version
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	return c
}
