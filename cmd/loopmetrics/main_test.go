package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loopmetrics "github.com/loopmetrics/loopmetrics-go"
	"github.com/loopmetrics/loopmetrics-go/loopmetricstest"
	"github.com/loopmetrics/loopmetrics-go/pkg/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseProperties(t *testing.T) {
	props, err := parseProperties([]string{"plan=pro", "seats=3", "ratio=0.5", "trial=true", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, loopmetrics.Properties{
		"plan":  "pro",
		"seats": int64(3),
		"ratio": 0.5,
		"trial": true,
		"note":  "a=b",
	}, props)

	props, err = parseProperties(nil)
	require.NoError(t, err)
	assert.Nil(t, props)

	_, err = parseProperties([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseProperties([]string{"=x"})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "loopmetrics version "+loopmetrics.Version+"\n", out)
}

func TestIdentityCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	first, err := run(t, "identity", "--identity-dir", dir)
	require.NoError(t, err)
	second, err := run(t, "identity", "--identity-dir", dir)
	require.NoError(t, err)

	assert.NotEmpty(t, strings.TrimSpace(first))
	assert.Equal(t, first, second)
}

func TestIdentityCommand_Badger(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	first, err := run(t, "identity", "--identity-backend", "badger", "--identity-dir", dir)
	require.NoError(t, err)
	second, err := run(t, "identity", "--identity-backend", "badger", "--identity-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIdentityCommand_UnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "identity", "--identity-backend", "redis")
	assert.ErrorContains(t, err, "unknown identity backend")
}

func TestTrackCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	server := loopmetricstest.NewMockServer()
	defer server.Close()

	out, err := run(t,
		"--api-key", "k",
		"--base-url", server.URL,
		"--identity-backend", "memory",
		"--disable-geolocation",
		"track", "deploy",
		"--user", "ci-bot",
		"--tenant", "acme", "--company", "Acme Inc.",
		"-p", "env=prod", "-p", "replicas=3",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `sent "deploy" for user ci-bot`)

	require.Len(t, server.Tenants(), 1)
	assert.Equal(t, "Acme Inc.", server.Tenants()[0].JSON()["companyName"])

	events := server.Events()
	require.Len(t, events, 1)
	body := events[0].JSON()
	assert.Equal(t, "k", events[0].APIKey)
	assert.Equal(t, "deploy", body["name"])
	assert.Equal(t, "ci-bot", body["userId"])
	assert.Equal(t, "acme", body["tenantId"])
	assert.Equal(t, map[string]any{"env": "prod", "replicas": float64(3)}, body["properties"])
}

func TestTrackCommand_EnvAndMetrics(t *testing.T) {
	t.Chdir(t.TempDir())
	server := loopmetricstest.NewMockServer()
	defer server.Close()

	t.Setenv(config.EnvAPIKey, "env-key")
	t.Setenv(config.EnvBaseURL, server.URL)
	t.Setenv(config.EnvDisableGeolocation, "true")

	out, err := run(t, "--identity-backend", "memory", "--metrics", "track", "signup")
	require.NoError(t, err)

	assert.Equal(t, "env-key", server.Events()[0].APIKey)
	assert.Contains(t, out, `loopmetrics_sdk_events_total{metric=events_sent} 1`)
	assert.Contains(t, out, "sent \"signup\"")
}

func TestTrackCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	server := loopmetricstest.NewMockServer()
	defer server.Close()

	t.Setenv("TEST_LOOPMETRICS_KEY", "file-key")
	yaml := `api_key: ${TEST_LOOPMETRICS_KEY}
base_url: ` + server.URL + `
user:
  distinct_id: file-user
  email: jane@acme.test
identity:
  backend: memory
geolocation:
  disabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".loopmetrics.yaml"), []byte(yaml), 0o600))

	_, err := run(t, "track", "login")
	require.NoError(t, err)

	users := server.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "file-key", users[0].APIKey)
	assert.Equal(t, "file-user", users[0].JSON()["id"])
	assert.Equal(t, "jane@acme.test", users[0].JSON()["email"])

	// Flags override the file.
	_, err = run(t, "track", "login", "--user", "flag-user")
	require.NoError(t, err)
	assert.Equal(t, "flag-user", server.Users()[1].JSON()["id"])
}

func TestTrackCommand_Rejected(t *testing.T) {
	t.Chdir(t.TempDir())
	server := loopmetricstest.NewMockServer()
	defer server.Close()
	server.RespondWithError(config.EventsPath, http.StatusForbidden, "plan limit reached")

	_, err := run(t,
		"--api-key", "k",
		"--base-url", server.URL,
		"--identity-backend", "memory",
		"--disable-geolocation",
		"track", "signup", "--user", "u1",
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, loopmetrics.ErrForbidden)
}

func TestTrackCommand_InitFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	server := loopmetricstest.NewMockServer()
	defer server.Close()
	server.RespondWithUnauthorized()

	_, err := run(t,
		"--api-key", "bad",
		"--base-url", server.URL,
		"--identity-backend", "memory",
		"--disable-geolocation",
		"track", "signup",
	)
	assert.ErrorIs(t, err, loopmetrics.ErrUnauthorized)
}
