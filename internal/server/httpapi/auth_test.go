package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/auth/register", "",
		registerRequest{Username: "alice", Password: "Secret123!", Email: "a@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Registration successful", decodeMessage(t, body))

	lr := env.login(t, "alice", "Secret123!")
	assert.Equal(t, "alice", lr.Username)
	assert.Equal(t, models.RoleUser, lr.Role)
	assert.InDelta(t, time.Now().Add(3*time.Hour).Unix(), lr.Expiration, 5)

	claims, err := env.tokens.Validate(lr.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, lr.Expiration, claims.Expiration().Unix())

	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.Metrics().LoginsTotal.WithLabelValues("success")))
}

func TestRegister_Failures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		msg  string
	}{
		{"missing email", registerRequest{Username: "bob", Password: "pw"}, "Username, password, and email are required"},
		{"blank username", registerRequest{Username: "  ", Password: "pw", Email: "b@x"}, "Username, password, and email are required"},
		{"taken", registerRequest{Username: "admin", Password: "x", Email: "x@y"}, "Username already exists"},
		{"bad json", `{"username":`, "body contains badly-formed JSON"},
		{"unknown field", `{"username":"bob","role":"Admin"}`, `body contains unknown key "role"`},
		{"empty", "", "body must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.msg, decodeMessage(t, body))
		})
	}
}

func TestLogin_FailuresLookIdentical(t *testing.T) {
	env := newTestEnv(t)

	r1, b1 := env.do(t, http.MethodPost, "/auth/login", "", loginRequest{Username: "admin", Password: "wrong"})
	r2, b2 := env.do(t, http.MethodPost, "/auth/login", "", loginRequest{Username: "nobody", Password: "Admin123!"})

	assert.Equal(t, http.StatusUnauthorized, r1.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, r2.StatusCode)
	assert.Equal(t, string(b1), string(b2))
	assert.Equal(t, "Username or password is incorrect", decodeMessage(t, b1))
	assert.Equal(t, 2.0, testutil.ToFloat64(env.server.Metrics().LoginsTotal.WithLabelValues("failure")))
}

func TestLogin_AdminUnderAPIPrefix(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Username: "admin", Password: "Admin123!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lr loginResponse
	require.NoError(t, json.Unmarshal(body, &lr))
	assert.Equal(t, models.RoleAdmin, lr.Role)
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	lr := env.login(t, "admin", "Admin123!")

	resp, body := env.do(t, http.MethodGet, "/auth/verify", lr.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vr verifyResponse
	require.NoError(t, json.Unmarshal(body, &vr))
	assert.Equal(t, verifyResponse{Username: "admin", Role: models.RoleAdmin, Expiration: lr.Expiration}, vr)

	resp, body = env.do(t, http.MethodGet, "/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, msgUnauthorized, decodeMessage(t, body))
	assert.True(t, strings.HasPrefix(resp.Header.Get("WWW-Authenticate"), "Bearer"))
}
