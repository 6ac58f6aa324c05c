package diagapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/braboj/protocol-devicenet/candrv"
	"github.com/braboj/protocol-devicenet/dnconfig"
	"github.com/braboj/protocol-devicenet/dnlink"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := dnconfig.DiagAPIConfig{
		AdminUser:     "admin",
		AdminPassHash: string(hash),
	}
	node := dnlink.NewNode(candrv.NewLoopbackBus(), 0, 1)
	return NewServer(cfg, map[string]*dnlink.Node{"node0": node})
}

func TestConnectionsEmptySnapshot(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/connections", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string][]ConnectionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	_, ok := body["node0"]
	require.True(t, ok, "expected node0 key in connections snapshot")
}

func TestServiceRouteRequiresAuth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/service", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"Username":"admin","Password":"wrong"}`))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginThenServiceSucceedsAuth(t *testing.T) {
	s := testServer(t)
	mux := s.Router()

	loginReq := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"Username":"admin","Password":"secret"}`))
	loginW := httptest.NewRecorder()
	mux.ServeHTTP(loginW, loginReq)
	require.Equal(t, http.StatusNoContent, loginW.Code)
	require.NotEmpty(t, loginW.Result().Cookies(), "expected a session cookie after login")

	// An unknown node gets 404 from the handler, which is only reached
	// once the auth gate has accepted the session cookie.
	svcReq := httptest.NewRequest(http.MethodPost, "/service", strings.NewReader(`{"node":"missing"}`))
	for _, c := range loginW.Result().Cookies() {
		svcReq.AddCookie(c)
	}
	svcW := httptest.NewRecorder()
	mux.ServeHTTP(svcW, svcReq)
	require.Equal(t, http.StatusNotFound, svcW.Code)
}

func TestRecordErrorTrimsHistory(t *testing.T) {
	s := testServer(t)
	for i := 0; i < maxErrorHistory+10; i++ {
		s.RecordError("node0", errNodeOffline)
	}
	require.Len(t, s.errors, maxErrorHistory)
}

var errNodeOffline = &testError{"node offline"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
