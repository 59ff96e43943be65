package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/logging"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/auth"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/sqlitetest"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/services"
)

var testKey = []byte("httpapi-test-signing-key-0123456789abcdef")

type testEnv struct {
	server *Server
	http   *httptest.Server
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	db := sqlitetest.Open(t)
	rm := repomanager.New(dbx.SQLite)

	tokens, err := auth.NewTokenManager(testKey, 3*time.Hour)
	require.NoError(t, err)

	us := services.NewUserService(db, rm, tokens, nil)
	ps := services.NewProductService(db, rm, nil)
	require.NoError(t, us.EnsureAdmin(context.Background(), "admin", "Admin123!", "admin@example.com"))

	s := NewServer("127.0.0.1:0", logging.Nop{}, tokens, us, ps, opts...)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	return &testEnv{server: s, http: ts, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(js)
	}

	req, err := http.NewRequest(method, e.http.URL+path, rd)
	require.NoError(t, err)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) login(t *testing.T, username, password string) loginResponse {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/login", "", loginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out loginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func decodeMessage(t *testing.T, body []byte) string {
	t.Helper()
	var m messageResponse
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m.Message
}
