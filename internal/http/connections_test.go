package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
)

type fakePhoneLookup struct {
	testErr error
	phones  []cucm.Phone
	pattern string
	limit   int
}

func (f *fakePhoneLookup) TestConnection(context.Context) error { return f.testErr }

func (f *fakePhoneLookup) SearchPhones(_ context.Context, pattern string, limit int) ([]cucm.Phone, error) {
	f.pattern, f.limit = pattern, limit
	return f.phones, nil
}

func (f *fakePhoneLookup) GetPhoneByMAC(_ context.Context, mac string) (*cucm.Phone, error) {
	for i := range f.phones {
		if f.phones[i].MAC == mac {
			return &f.phones[i], nil
		}
	}
	return nil, cucm.ErrPhoneNotFound
}

type recordingTester struct {
	got []directory.Config
	err error
}

func (r *recordingTester) test(_ context.Context, cfg directory.Config) (string, error) {
	r.got = append(r.got, cfg)
	if r.err != nil {
		return "", r.err
	}
	return "LDAP connection successful", nil
}

func connectionsRouter(store SettingsStore, tester *recordingTester, phones PhoneLookupSource) *gin.Engine {
	cc := NewConnectionsController(store, tester.test, phones)
	r := gin.New()
	r.POST("/test-ldap", cc.TestLDAP)
	r.POST("/test-ldap-connection", cc.TestLDAPConnection)
	r.POST("/test-cucm", cc.TestCUCM)
	r.GET("/api/phones/search", cc.SearchPhones)
	r.GET("/api/phones/:mac/details", cc.GetPhoneDetails)
	return r
}

func phonesFrom(p PhoneLookup, err error) PhoneLookupSource {
	return func() (PhoneLookup, error) { return p, err }
}

func TestTestLDAP_UsesStoredSettings(t *testing.T) {
	store := newTestSettingsStore(t)
	require.NoError(t, store.Set(entities.SettingKeyLDAPServer, "ldap.example.org"))
	require.NoError(t, store.Set(entities.SettingKeyLDAPPort, "389"))
	require.NoError(t, store.Set(entities.SettingKeyLDAPBaseDN, "dc=example,dc=org"))
	require.NoError(t, store.Set(entities.SettingKeyLDAPAllowAnonymous, "true"))
	tester := &recordingTester{}
	r := connectionsRouter(store, tester, nil)

	w := doJSON(r, http.MethodPost, "/test-ldap", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, tester.got, 1)
	assert.Equal(t, "ldap://ldap.example.org:389", tester.got[0].URL())
}

func TestTestLDAPConnection_BodyOverridesSettings(t *testing.T) {
	tester := &recordingTester{}
	r := connectionsRouter(newTestSettingsStore(t), tester, nil)

	w := doJSON(r, http.MethodPost, "/test-ldap-connection",
		`{"server":"dir.example.org","port":"636","use_ssl":true,"base_dn":"dc=example","bind_dn":"cn=admin","bind_password":"secret"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, tester.got, 1)
	assert.Equal(t, "ldaps://dir.example.org:636", tester.got[0].URL())
	assert.Equal(t, "cn=admin", tester.got[0].BindDN)
}

func TestTestLDAPConnection_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no server", `{"port":389,"base_dn":"dc=x","allow_anonymous":true}`, directory.ErrServerRequired.Error()},
		{"no base dn", `{"server":"x","port":389,"allow_anonymous":true}`, directory.ErrBaseDNRequired.Error()},
		{"half credentials", `{"server":"x","port":389,"base_dn":"dc=x","bind_dn":"cn=a"}`, directory.ErrPartialCredentials.Error()},
		{"anonymous not allowed", `{"server":"x","port":389,"base_dn":"dc=x"}`, directory.ErrCredentialsRequired.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tester := &recordingTester{}
			r := connectionsRouter(newTestSettingsStore(t), tester, nil)

			w := doJSON(r, http.MethodPost, "/test-ldap-connection", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Empty(t, tester.got)
		})
	}
}

func TestTestLDAPConnection_Failure(t *testing.T) {
	tester := &recordingTester{err: errors.New("connection refused")}
	r := connectionsRouter(newTestSettingsStore(t), tester, nil)

	w := doJSON(r, http.MethodPost, "/test-ldap-connection", `{"server":"x","port":389,"base_dn":"dc=x","allow_anonymous":true}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "LDAP connection failed: connection refused")
}

func TestTestCUCM(t *testing.T) {
	store := newTestSettingsStore(t)

	w := doJSON(connectionsRouter(store, &recordingTester{}, phonesFrom(&fakePhoneLookup{}, nil)), http.MethodPost, "/test-cucm", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(connectionsRouter(store, &recordingTester{}, phonesFrom(nil, cucm.ErrNotConfigured)), http.MethodPost, "/test-cucm", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	failing := &fakePhoneLookup{testErr: errors.New("timeout")}
	w = doJSON(connectionsRouter(store, &recordingTester{}, phonesFrom(failing, nil)), http.MethodPost, "/test-cucm", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Connection test failed: timeout")
}

func TestPhoneLookups(t *testing.T) {
	lookup := &fakePhoneLookup{phones: []cucm.Phone{{Name: "SEPAABBCCDDEEFF", MAC: "AABBCCDDEEFF", Model: "Cisco 8841"}}}
	r := connectionsRouter(newTestSettingsStore(t), &recordingTester{}, phonesFrom(lookup, nil))

	w := doJSON(r, http.MethodGet, "/api/phones/search?search=AABB&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["phones"], 1)
	assert.Equal(t, "AABB", lookup.pattern)
	assert.Equal(t, 5, lookup.limit)

	w = doJSON(r, http.MethodGet, "/api/phones/AABBCCDDEEFF/details", "")
	require.Equal(t, http.StatusOK, w.Code)
	phone := decode(t, w)["phone"].(map[string]any)
	assert.Equal(t, "Cisco 8841", phone["model"])

	w = doJSON(r, http.MethodGet, "/api/phones/001122334455/details", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
