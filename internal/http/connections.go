package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/directory"
)

// ConnectionsController tests the directory and CUCM connections and
// serves the CUCM phone lookups.
type ConnectionsController struct {
	settings SettingsStore
	testLDAP DirectoryTester
	phones   PhoneLookupSource
}

// NewConnectionsController creates a new ConnectionsController.
func NewConnectionsController(settings SettingsStore, testLDAP DirectoryTester, phones PhoneLookupSource) *ConnectionsController {
	return &ConnectionsController{settings: settings, testLDAP: testLDAP, phones: phones}
}

// portValue accepts a port as a JSON number or string.
type portValue int

func (p *portValue) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*p = portValue(n)
	return nil
}

type ldapTestRequest struct {
	Server         string    `json:"server"`
	Port           portValue `json:"port"`
	BindDN         string    `json:"bind_dn"`
	BindPassword   string    `json:"bind_password"`
	BaseDN         string    `json:"base_dn"`
	UseSSL         bool      `json:"use_ssl"`
	AllowAnonymous bool      `json:"allow_anonymous"`
}

func (r ldapTestRequest) apply(base directory.Config) directory.Config {
	base.Server = strings.TrimSpace(r.Server)
	base.Port = int(r.Port)
	base.BindDN = strings.TrimSpace(r.BindDN)
	base.BindPassword = r.BindPassword
	base.BaseDN = strings.TrimSpace(r.BaseDN)
	base.UseSSL = r.UseSSL
	base.AllowAnonymous = r.AllowAnonymous
	return base
}

// TestLDAP handles POST /test-ldap
// Without a body the stored settings are tested; a JSON body replaces the
// connection parameters.
func (cc *ConnectionsController) TestLDAP(c *gin.Context) {
	cfg := cc.settings.DirectoryConfig()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var req ldapTestRequest
		if err := json.Unmarshal(body, &req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
		cfg = req.apply(cfg)
	}
	cc.runLDAPTest(c, cfg)
}

// TestLDAPConnection handles POST /test-ldap-connection
// All connection parameters come from the request.
func (cc *ConnectionsController) TestLDAPConnection(c *gin.Context) {
	var req ldapTestRequest
	if !bindJSON(c, &req) {
		return
	}
	cc.runLDAPTest(c, req.apply(cc.settings.DirectoryConfig()))
}

func (cc *ConnectionsController) runLDAPTest(c *gin.Context, cfg directory.Config) {
	if err := cfg.Validate(); err != nil {
		respondServiceError(c, err, "test ldap")
		return
	}

	requestLogger(c).Info("testing LDAP connection",
		zap.String("url", cfg.URL()),
		zap.String("base_dn", cfg.BaseDN),
		zap.Bool("anonymous", cfg.Anonymous()))

	msg, err := cc.testLDAP(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, http.StatusBadGateway, "LDAP connection failed: "+err.Error())
		return
	}
	respondOK(c, gin.H{"message": msg})
}

// TestCUCM handles POST /test-cucm
func (cc *ConnectionsController) TestCUCM(c *gin.Context) {
	phones, err := cc.phones()
	if err != nil {
		respondServiceError(c, err, "test cucm")
		return
	}
	if err := phones.TestConnection(c.Request.Context()); err != nil {
		requestLogger(c).Warn("CUCM connection test failed", zap.Error(err))
		respondError(c, http.StatusBadGateway, "Connection test failed: "+err.Error())
		return
	}
	respondOK(c, gin.H{"message": "CUCM connection successful"})
}

// SearchPhones handles GET /api/phones/search?search=
func (cc *ConnectionsController) SearchPhones(c *gin.Context) {
	phones, err := cc.phones()
	if err != nil {
		respondServiceError(c, err, "search phones")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	found, err := phones.SearchPhones(c.Request.Context(), c.Query("search"), limit)
	if err != nil {
		respondServiceError(c, err, "search phones")
		return
	}
	respondOK(c, gin.H{"phones": found})
}

// GetPhoneDetails handles GET /api/phones/:mac/details
func (cc *ConnectionsController) GetPhoneDetails(c *gin.Context) {
	phones, err := cc.phones()
	if err != nil {
		respondServiceError(c, err, "phone details")
		return
	}
	phone, err := phones.GetPhoneByMAC(c.Request.Context(), c.Param("mac"))
	if err != nil {
		respondServiceError(c, err, "phone details")
		return
	}
	respondOK(c, gin.H{"phone": phone})
}
