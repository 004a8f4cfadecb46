package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
env: production
potatomesh:
  base_url: "https://potatomesh.net/"
  poll_interval_secs: 10
matrix:
  homeserver: "https://matrix.example.org"
  as_token: "AS_TOKEN"
  hs_token: "HS_TOKEN"
  server_name: "example.org"
  room_id: "!roomid:example.org"
state:
  state_file: "bridge_state.json"
`

// isolate clears every variable Load reads so the host environment cannot
// leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvContainerDefaults, EnvConfigPath, EnvSecretsDir,
		EnvBaseURL, EnvPollInterval, EnvHomeserver, EnvASToken, EnvHSToken,
		EnvServerName, EnvRoomID, EnvStateFile, EnvStateDSN, EnvListenAddr,
		EnvRequestTimeout, EnvEnv, EnvLogLevel,
		EnvASToken + "_FILE", EnvHSToken + "_FILE", EnvPollInterval + "_FILE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv(EnvContainer, "0")
	t.Setenv(EnvSecretsDir, t.TempDir())
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func strPtr(s string) *string { return &s }

func TestLoad_FromFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)

	cfg, err := Load(Bootstrap{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, "https://potatomesh.net/", cfg.PotatoMesh.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.PotatoMesh.PollInterval)
	assert.Equal(t, "https://matrix.example.org", cfg.Matrix.Homeserver)
	assert.Equal(t, "AS_TOKEN", cfg.Matrix.ASToken)
	assert.Equal(t, "HS_TOKEN", cfg.Matrix.HSToken)
	assert.Equal(t, "example.org", cfg.Matrix.ServerName)
	assert.Equal(t, "!roomid:example.org", cfg.Matrix.RoomID)
	assert.Equal(t, "bridge_state.json", cfg.CheckpointDSN())
	assert.Equal(t, ":41448", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.Runtime.ConfigFileFound)
	assert.False(t, cfg.Runtime.ContainerDefaults)
}

func TestLoad_LayerPrecedence(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)

	var cli Overrides
	cli.Matrix.RoomID = strPtr("!cli:example.org")
	cli.Matrix.ServerName = strPtr("cli.example.org")
	cli.State.File = strPtr("cli_state.json")

	t.Setenv(EnvServerName, "env.example.org")
	t.Setenv(EnvPollInterval, "15")

	secrets := t.TempDir()
	t.Setenv(EnvSecretsDir, secrets)
	require.NoError(t, os.WriteFile(filepath.Join(secrets, EnvASToken), []byte("  SECRET_AS\n"), 0o600))

	cfg, err := Load(Bootstrap{ConfigPath: path, Values: cli})
	require.NoError(t, err)

	assert.Equal(t, "!cli:example.org", cfg.Matrix.RoomID, "cli beats file")
	assert.Equal(t, "env.example.org", cfg.Matrix.ServerName, "env beats cli")
	assert.Equal(t, 15*time.Second, cfg.PotatoMesh.PollInterval, "env beats file")
	assert.Equal(t, "SECRET_AS", cfg.Matrix.ASToken, "secret beats file")
	assert.Equal(t, "cli_state.json", cfg.State.File)
}

func TestLoad_SecretFileVariable(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)
	secret := filepath.Join(t.TempDir(), "hs_token")
	require.NoError(t, os.WriteFile(secret, []byte("FILE_HS\n"), 0o600))
	t.Setenv(EnvHSToken+"_FILE", secret)

	cfg, err := Load(Bootstrap{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "FILE_HS", cfg.Matrix.HSToken)
}

func TestLoad_EmptySecretFileFails(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)
	secret := filepath.Join(t.TempDir(), "as_token")
	require.NoError(t, os.WriteFile(secret, []byte("  \n"), 0o600))
	t.Setenv(EnvASToken+"_FILE", secret)

	_, err := Load(Bootstrap{ConfigPath: path})
	assert.Error(t, err)
}

func TestLoad_MissingRequired(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "potatomesh:\n  base_url: https://potatomesh.net\n")

	_, err := Load(Bootstrap{ConfigPath: path})
	require.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "matrix.homeserver")
}

func TestLoad_MissingFileUsesOtherLayers(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBaseURL, "https://potatomesh.net")
	t.Setenv(EnvHomeserver, "https://matrix.example.org")
	t.Setenv(EnvASToken, "AS")
	t.Setenv(EnvHSToken, "HS")
	t.Setenv(EnvServerName, "example.org")
	t.Setenv(EnvRoomID, "!room:example.org")

	cfg, err := Load(Bootstrap{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	require.NoError(t, err)
	assert.False(t, cfg.Runtime.ConfigFileFound)
	assert.Equal(t, 60*time.Second, cfg.PotatoMesh.PollInterval)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_ContainerDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
potatomesh:
  base_url: "https://potatomesh.net"
matrix:
  homeserver: "https://matrix.example.org"
  as_token: "AS"
  hs_token: "HS"
  server_name: "example.org"
  room_id: "!room:example.org"
`)
	t.Setenv(EnvContainerDefaults, "yes")

	cfg, err := Load(Bootstrap{ConfigPath: path})
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.ContainerDefaults)
	assert.Equal(t, 120*time.Second, cfg.PotatoMesh.PollInterval)
	assert.Equal(t, "/app/bridge_state.json", cfg.State.File)
}

func TestLoad_CLIContainerDefaultsToggle(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)
	t.Setenv(EnvContainer, "1")
	off := false

	cfg, err := Load(Bootstrap{ConfigPath: path, ContainerDefaults: &off})
	require.NoError(t, err)
	assert.True(t, cfg.Runtime.InContainer)
	assert.False(t, cfg.Runtime.ContainerDefaults)
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)

	t.Setenv(EnvContainerDefaults, "maybe")
	_, err := Load(Bootstrap{ConfigPath: path})
	assert.Error(t, err)

	t.Setenv(EnvContainerDefaults, "")
	t.Setenv(EnvPollInterval, "soon")
	_, err = Load(Bootstrap{ConfigPath: path})
	assert.Error(t, err)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	isolate(t)
	path := writeConfig(t, sampleYAML)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load(Bootstrap{ConfigPath: "ignored.yaml"})
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Runtime.ConfigPath)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "matrix: [unterminated")

	_, err := Load(Bootstrap{ConfigPath: path})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:            "production",
			RequestTimeout: time.Second,
			PotatoMesh:     PotatoMeshConfig{BaseURL: "https://potatomesh.net", PollInterval: time.Second},
			Matrix:         MatrixConfig{Homeserver: "https://matrix.example.org", RoomID: "!r:example.org"},
		}
	}
	require.NoError(t, valid().Validate())

	bad := valid()
	bad.PotatoMesh.BaseURL = "potatomesh.net"
	assert.Error(t, bad.Validate())

	bad = valid()
	bad.Matrix.RoomID = "#alias:example.org"
	assert.Error(t, bad.Validate())

	bad = valid()
	bad.PotatoMesh.PollInterval = 0
	assert.Error(t, bad.Validate())

	bad = valid()
	bad.Env = "staging"
	assert.Error(t, bad.Validate())
}

func TestDetectContainerFrom(t *testing.T) {
	assert.True(t, detectContainerFrom("1", ""))
	assert.True(t, detectContainerFrom("docker", ""))
	assert.False(t, detectContainerFrom("false", "0::/docker/abc"))
	assert.False(t, detectContainerFrom("0", ""))
	assert.True(t, detectContainerFrom("", "12:cpu:/kubepods/burstable/pod1"))
	assert.True(t, detectContainerFrom("", "0::/system.slice/containerd.service"))
	assert.False(t, detectContainerFrom("", "0::/init.scope"))
}

func TestString_RedactsTokens(t *testing.T) {
	cfg := &Config{Matrix: MatrixConfig{ASToken: "AS_SECRET", HSToken: "HS_SECRET"}}
	s := cfg.String()
	assert.NotContains(t, s, "AS_SECRET")
	assert.NotContains(t, s, "HS_SECRET")
	assert.Contains(t, s, "<redacted>")
}
