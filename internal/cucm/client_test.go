package cucm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const envelopeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
<soapenv:Body>%s</soapenv:Body>
</soapenv:Envelope>`

type axlServer struct {
	*httptest.Server
	calls atomic.Int32

	mu      sync.Mutex
	actions []string
	bodies  []string
}

func (s *axlServer) requests() (actions, bodies []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.actions...), append([]string(nil), s.bodies...)
}

func newAXLServer(t *testing.T, handler func(action, body string) (int, string)) *axlServer {
	t.Helper()
	s := &axlServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "axl" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		action := r.Header.Get("SOAPAction")
		s.mu.Lock()
		s.actions = append(s.actions, action)
		s.bodies = append(s.bodies, string(raw))
		s.mu.Unlock()

		status, inner := handler(action, string(raw))
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		fmt.Fprintf(w, envelopeTemplate, inner)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestClient(srv *axlServer) *Client {
	cfg := Config{Host: "cucm.example.org", Username: "axl", Password: "secret"}
	return NewClient(cfg, WithEndpoint(srv.URL))
}

const phonesResponse = `<ns:listPhoneResponse xmlns:ns="http://www.cisco.com/AXL/API/14.0"><return>
<phone uuid="{1}"><name>SEP001122AABBCC</name><description>jdoe - Jane Doe</description><model>Cisco 8841</model><product>Cisco 8841</product><class>Phone</class><protocol>SIP</protocol></phone>
<phone uuid="{2}"><name>CSFJDOE</name><description>jdoe softphone</description><model>Cisco Unified Client Services Framework</model></phone>
</return></ns:listPhoneResponse>`

func TestConfig_Endpoint(t *testing.T) {
	assert.Equal(t, "https://cucm.example.org:8443/axl/", Config{Host: "cucm.example.org"}.Endpoint())
	assert.Equal(t, "https://10.0.0.1:8443/axl/", Config{Host: "https://10.0.0.1:8443/axl"}.Endpoint())
	assert.False(t, Config{Host: "h", Username: "u"}.Configured())
	assert.True(t, Config{Host: "h", Username: "u", Password: "p"}.Configured())
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient(Config{})
	assert.ErrorIs(t, c.TestConnection(context.Background()), ErrNotConfigured)
}

func TestClient_TestConnection(t *testing.T) {
	srv := newAXLServer(t, func(string, string) (int, string) {
		return http.StatusOK, `<ns:listPhoneResponse xmlns:ns="x"><return/></ns:listPhoneResponse>`
	})
	c := newTestClient(srv)

	require.NoError(t, c.TestConnection(context.Background()))
	actions, bodies := srv.requests()
	require.Len(t, bodies, 1)
	assert.Equal(t, `"CUCM:DB ver=14.0 listPhone"`, actions[0])
	assert.Contains(t, bodies[0], "<name>SEP%</name>")
	assert.Contains(t, bodies[0], "<first>1</first>")
	assert.Contains(t, bodies[0], `xmlns:ns="http://www.cisco.com/AXL/API/14.0"`)
}

func TestClient_TestConnection_BadCredentials(t *testing.T) {
	srv := newAXLServer(t, func(string, string) (int, string) { return http.StatusOK, "" })
	c := NewClient(Config{Host: "h", Username: "axl", Password: "wrong"}, WithEndpoint(srv.URL))

	assert.ErrorIs(t, c.TestConnection(context.Background()), ErrAuthentication)
}

func TestClient_SearchPhones(t *testing.T) {
	srv := newAXLServer(t, func(string, string) (int, string) { return http.StatusOK, phonesResponse })
	c := newTestClient(srv)

	phones, err := c.SearchPhones(context.Background(), "jdoe", 0)
	require.NoError(t, err)
	require.Len(t, phones, 2)

	assert.Equal(t, "SEP001122AABBCC", phones[0].Name)
	assert.Equal(t, "00:11:22:AA:BB:CC", phones[0].MAC)
	assert.Equal(t, "Cisco 8841", phones[0].Model)
	assert.Equal(t, "SIP", phones[0].Protocol)
	assert.Empty(t, phones[1].MAC)

	_, bodies := srv.requests()
	assert.Contains(t, bodies[0], "<name>%jdoe%</name>")
	assert.Contains(t, bodies[0], "<first>100</first>")
}

func TestClient_SearchPhones_EmptyPattern(t *testing.T) {
	c := NewClient(Config{Host: "h", Username: "u", Password: "p"})
	_, err := c.SearchPhones(context.Background(), "  ", 10)
	assert.ErrorIs(t, err, ErrPatternEmpty)
}

func TestClient_GetPhoneByMAC(t *testing.T) {
	srv := newAXLServer(t, func(action, body string) (int, string) {
		if strings.Contains(body, "<name>SEP001122AABBCC</name>") {
			return http.StatusOK, `<ns:getPhoneResponse xmlns:ns="x"><return><phone><name>SEP001122AABBCC</name><description>Jane</description><model>Cisco 7841</model></phone></return></ns:getPhoneResponse>`
		}
		return http.StatusInternalServerError, `<soapenv:Fault><faultcode>soapenv:Server</faultcode><faultstring>Item not valid: The specified SEP000000000000 was not found</faultstring></soapenv:Fault>`
	})
	c := newTestClient(srv)

	p, err := c.GetPhoneByMAC(context.Background(), "00-11-22-aa-bb-cc")
	require.NoError(t, err)
	assert.Equal(t, "Cisco 7841", p.Model)
	assert.Equal(t, "00:11:22:AA:BB:CC", p.MAC)

	// served from cache
	_, err = c.GetPhoneByMAC(context.Background(), "00:11:22:AA:BB:CC")
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.calls.Load())

	_, err = c.GetPhoneByMAC(context.Background(), "000000000000")
	assert.ErrorIs(t, err, ErrPhoneNotFound)

	_, err = c.GetPhoneByMAC(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidMAC)
}

func TestClient_Fault(t *testing.T) {
	srv := newAXLServer(t, func(string, string) (int, string) {
		return http.StatusInternalServerError, `<soapenv:Fault><faultcode>soapenv:Client</faultcode><faultstring>Bad request</faultstring></soapenv:Fault>`
	})
	c := newTestClient(srv)

	_, err := c.SearchPhones(context.Background(), "x", 5)
	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "Bad request", fault.Message)
}

func TestClient_FindPhoneByOwner(t *testing.T) {
	srv := newAXLServer(t, func(string, string) (int, string) { return http.StatusOK, phonesResponse })
	c := newTestClient(srv)

	p, err := c.FindPhoneByOwner(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "SEP001122AABBCC", p.Name)
	_, bodies := srv.requests()
	assert.Contains(t, bodies[0], "<description>%jdoe%</description>")

	_, err = c.FindPhoneByOwner(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.EqualValues(t, 1, srv.calls.Load())

	c.Purge()
	_, err = c.FindPhoneByOwner(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.EqualValues(t, 2, srv.calls.Load())
}

func TestClient_FindPhoneByOwner_None(t *testing.T) {
	srv := newAXLServer(t, func(string, string) (int, string) {
		return http.StatusOK, `<ns:listPhoneResponse xmlns:ns="x"><return></return></ns:listPhoneResponse>`
	})
	c := newTestClient(srv)

	_, err := c.FindPhoneByOwner(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrPhoneNotFound)
}

func TestClient_FetchAuthCode(t *testing.T) {
	srv := newAXLServer(t, func(_ string, body string) (int, string) {
		if strings.Contains(body, "<name>jdoe</name>") {
			return http.StatusOK, `<ns:listFacInfoResponse xmlns:ns="x"><return><facInfo><name>jdoe</name><code>4821</code></facInfo></return></ns:listFacInfoResponse>`
		}
		return http.StatusOK, `<ns:listFacInfoResponse xmlns:ns="x"><return/></ns:listFacInfoResponse>`
	})
	c := newTestClient(srv)

	code, err := c.FetchAuthCode(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "4821", code)
	actions, _ := srv.requests()
	assert.Contains(t, actions[0], "listFacInfo")

	code, err = c.FetchAuthCode(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, code)
}
