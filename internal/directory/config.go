package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPort    = 389
	DefaultSSLPort = 636
)

var (
	ErrServerRequired      = errors.New("LDAP server is required")
	ErrPortRequired        = errors.New("LDAP port is required")
	ErrBaseDNRequired      = errors.New("base DN is required")
	ErrPartialCredentials  = errors.New("both bind DN and password must be provided together")
	ErrCredentialsRequired = errors.New("bind DN and password are required when anonymous binding is not allowed")
)

// Config describes how to reach and query the directory.
type Config struct {
	Server          string
	Port            int
	UseSSL          bool
	BaseDN          string
	BindDN          string
	BindPassword    string
	AllowAnonymous  bool
	ExcludeStudents bool
	PageSize        uint32
	MaxEntries      int // 0 for no limit
	Timeout         time.Duration
	InsecureTLS     bool
}

// URL returns the LDAP URL for the server. A server given as a full URL is
// returned unchanged.
func (c Config) URL() string {
	if strings.Contains(c.Server, "://") {
		return c.Server
	}
	scheme := "ldap"
	port := c.Port
	if c.UseSSL {
		scheme = "ldaps"
		if port == 0 || port == DefaultPort {
			port = DefaultSSLPort
		}
	}
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Server, port)
}

// Anonymous reports whether the connection binds without credentials.
func (c Config) Anonymous() bool {
	return c.BindDN == "" && c.BindPassword == ""
}

// Validate applies the connection test rules: server, port and base DN are
// required; bind DN and password come as a pair; without anonymous binding
// the pair is mandatory.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return ErrServerRequired
	}
	if c.Port <= 0 && !strings.Contains(c.Server, "://") {
		return ErrPortRequired
	}
	if strings.TrimSpace(c.BaseDN) == "" {
		return ErrBaseDNRequired
	}
	if (c.BindDN == "") != (c.BindPassword == "") {
		return ErrPartialCredentials
	}
	if !c.AllowAnonymous && c.Anonymous() {
		return ErrCredentialsRequired
	}
	return nil
}
