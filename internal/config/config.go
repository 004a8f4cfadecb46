package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissing is returned when a required setting has no value in any layer.
var ErrMissing = errors.New("missing required setting")

const (
	defaultConfigPath          = "config.yaml"
	defaultContainerConfigPath = "/app/config.yaml"
	defaultStateFile           = "bridge_state.json"
	defaultContainerStateFile  = "/app/bridge_state.json"
	defaultPollInterval        = 60
	defaultContainerPoll       = 120
	defaultSecretsDir          = "/run/secrets"
	defaultListenAddr          = ":41448"
	defaultRequestTimeout      = 30
	defaultEnv                 = "development"
	defaultLogLevel            = "info"
)

// Environment variable names.
const (
	EnvContainer         = "CONTAINER"
	EnvContainerDefaults = "POTATOMESH_CONTAINER_DEFAULTS"
	EnvConfigPath        = "POTATOMESH_CONFIG_PATH"
	EnvSecretsDir        = "POTATOMESH_SECRETS_DIR"

	EnvBaseURL        = "POTATOMESH_BASE_URL"
	EnvPollInterval   = "POTATOMESH_POLL_INTERVAL_SECS"
	EnvHomeserver     = "MATRIX_HOMESERVER"
	EnvASToken        = "MATRIX_AS_TOKEN"
	EnvHSToken        = "MATRIX_HS_TOKEN"
	EnvServerName     = "MATRIX_SERVER_NAME"
	EnvRoomID         = "MATRIX_ROOM_ID"
	EnvStateFile      = "STATE_FILE"
	EnvStateDSN       = "STATE_DSN"
	EnvListenAddr     = "LISTEN_ADDR"
	EnvRequestTimeout = "REQUEST_TIMEOUT_SECS"
	EnvEnv            = "ENV"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config holds all configuration for the bridge.
type Config struct {
	Env            string
	LogLevel       string
	ListenAddr     string
	RequestTimeout time.Duration

	PotatoMesh PotatoMeshConfig
	Matrix     MatrixConfig
	State      StateConfig

	Runtime Runtime
}

// PotatoMeshConfig configures the upstream mesh API.
type PotatoMeshConfig struct {
	BaseURL      string
	PollInterval time.Duration
}

// MatrixConfig configures the appservice identity and target room.
type MatrixConfig struct {
	Homeserver string
	ASToken    string
	HSToken    string
	ServerName string
	RoomID     string
}

// StateConfig locates the checkpoint. DSN wins over File when both are set.
type StateConfig struct {
	File string
	DSN  string
}

// Runtime records what was discovered while loading.
type Runtime struct {
	InContainer       bool
	ContainerDefaults bool
	ConfigPath        string
	ConfigFileFound   bool
	SecretsDir        string
}

// CheckpointDSN returns the store DSN, falling back to the state file path.
func (c *Config) CheckpointDSN() string {
	if c.State.DSN != "" {
		return c.State.DSN
	}
	return c.State.File
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// String renders the config with secrets redacted.
func (c *Config) String() string {
	return fmt.Sprintf(
		"env=%s listen=%s potatomesh=%s poll=%s homeserver=%s server_name=%s room=%s as_token=%s hs_token=%s state=%s",
		c.Env, c.ListenAddr, c.PotatoMesh.BaseURL, c.PotatoMesh.PollInterval,
		c.Matrix.Homeserver, c.Matrix.ServerName, c.Matrix.RoomID,
		redact(c.Matrix.ASToken), redact(c.Matrix.HSToken), c.CheckpointDSN(),
	)
}

func redact(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// Overrides is one configuration layer. Nil fields leave lower layers alone.
type Overrides struct {
	Env                *string `yaml:"env"`
	ListenAddr         *string `yaml:"listen_addr"`
	RequestTimeoutSecs *uint64 `yaml:"request_timeout_secs"`
	Log                struct {
		Level *string `yaml:"level"`
	} `yaml:"log"`
	PotatoMesh struct {
		BaseURL          *string `yaml:"base_url"`
		PollIntervalSecs *uint64 `yaml:"poll_interval_secs"`
	} `yaml:"potatomesh"`
	Matrix struct {
		Homeserver *string `yaml:"homeserver"`
		ASToken    *string `yaml:"as_token"`
		HSToken    *string `yaml:"hs_token"`
		ServerName *string `yaml:"server_name"`
		RoomID     *string `yaml:"room_id"`
	} `yaml:"matrix"`
	State struct {
		File *string `yaml:"state_file"`
		DSN  *string `yaml:"dsn"`
	} `yaml:"state"`
}

// Merge copies every field set in other over o.
func (o *Overrides) Merge(other Overrides) {
	pick(&o.Env, other.Env)
	pick(&o.ListenAddr, other.ListenAddr)
	pick(&o.RequestTimeoutSecs, other.RequestTimeoutSecs)
	pick(&o.Log.Level, other.Log.Level)
	pick(&o.PotatoMesh.BaseURL, other.PotatoMesh.BaseURL)
	pick(&o.PotatoMesh.PollIntervalSecs, other.PotatoMesh.PollIntervalSecs)
	pick(&o.Matrix.Homeserver, other.Matrix.Homeserver)
	pick(&o.Matrix.ASToken, other.Matrix.ASToken)
	pick(&o.Matrix.HSToken, other.Matrix.HSToken)
	pick(&o.Matrix.ServerName, other.Matrix.ServerName)
	pick(&o.Matrix.RoomID, other.Matrix.RoomID)
	pick(&o.State.File, other.State.File)
	pick(&o.State.DSN, other.State.DSN)
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// Bootstrap carries command-line input into Load.
type Bootstrap struct {
	ConfigPath        string
	ContainerDefaults *bool
	Values            Overrides
}

// Load merges, lowest to highest precedence, the YAML config file, CLI
// overrides, environment variables (after loading .env) and secret files.
func Load(boot Bootstrap) (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	inContainer := detectContainer()
	containerDefaults, err := resolveContainerDefaults(inContainer, boot.ContainerDefaults)
	if err != nil {
		return nil, err
	}

	rt := Runtime{
		InContainer:       inContainer,
		ContainerDefaults: containerDefaults,
		ConfigPath:        resolveConfigPath(containerDefaults, boot.ConfigPath),
		SecretsDir:        resolveSecretsDir(containerDefaults),
	}

	var merged Overrides
	fileLayer, found, err := LoadFile(rt.ConfigPath)
	if err != nil {
		return nil, err
	}
	rt.ConfigFileFound = found
	merged.Merge(fileLayer)
	merged.Merge(boot.Values)

	envLayer, err := envOverrides()
	if err != nil {
		return nil, err
	}
	merged.Merge(envLayer)

	secretLayer, err := secretOverrides(rt.SecretsDir)
	if err != nil {
		return nil, err
	}
	merged.Merge(secretLayer)

	cfg, err := finalize(merged, containerDefaults)
	if err != nil {
		return nil, err
	}
	cfg.Runtime = rt
	return cfg, nil
}

// LoadFile reads a YAML config layer. A missing file is not an error.
func LoadFile(path string) (Overrides, bool, error) {
	var o Overrides
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return o, false, nil
		}
		return o, false, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return o, true, nil
}

func finalize(o Overrides, containerDefaults bool) (*Config, error) {
	cfg := &Config{
		Env:            valueOr(o.Env, defaultEnv),
		LogLevel:       valueOr(o.Log.Level, defaultLogLevel),
		ListenAddr:     valueOr(o.ListenAddr, defaultListenAddr),
		RequestTimeout: time.Duration(valueOr(o.RequestTimeoutSecs, defaultRequestTimeout)) * time.Second,
	}

	poll := uint64(defaultPollInterval)
	stateFile := defaultStateFile
	if containerDefaults {
		poll = defaultContainerPoll
		stateFile = defaultContainerStateFile
	}
	cfg.PotatoMesh.PollInterval = time.Duration(valueOr(o.PotatoMesh.PollIntervalSecs, poll)) * time.Second
	cfg.State.File = valueOr(o.State.File, stateFile)
	cfg.State.DSN = valueOr(o.State.DSN, "")

	required := []struct {
		name string
		src  *string
		dst  *string
	}{
		{"potatomesh.base_url", o.PotatoMesh.BaseURL, &cfg.PotatoMesh.BaseURL},
		{"matrix.homeserver", o.Matrix.Homeserver, &cfg.Matrix.Homeserver},
		{"matrix.as_token", o.Matrix.ASToken, &cfg.Matrix.ASToken},
		{"matrix.hs_token", o.Matrix.HSToken, &cfg.Matrix.HSToken},
		{"matrix.server_name", o.Matrix.ServerName, &cfg.Matrix.ServerName},
		{"matrix.room_id", o.Matrix.RoomID, &cfg.Matrix.RoomID},
	}
	for _, r := range required {
		if r.src == nil || strings.TrimSpace(*r.src) == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissing, r.name)
		}
		*r.dst = *r.src
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parsed but cannot work.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"potatomesh.base_url": c.PotatoMesh.BaseURL,
		"matrix.homeserver":   c.Matrix.Homeserver,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
		}
	}
	if c.PotatoMesh.PollInterval <= 0 {
		return errors.New("potatomesh.poll_interval_secs must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout_secs must be positive")
	}
	if !strings.HasPrefix(c.Matrix.RoomID, "!") {
		return fmt.Errorf("matrix.room_id must be a room id starting with '!', got %q", c.Matrix.RoomID)
	}
	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("env must be development or production, got %q", c.Env)
	}
	return nil
}

func valueOr[T any](v *T, fallback T) T {
	if v != nil {
		return *v
	}
	return fallback
}

func detectContainer() bool {
	cgroup, _ := os.ReadFile("/proc/1/cgroup")
	return detectContainerFrom(os.Getenv(EnvContainer), string(cgroup))
}

// detectContainerFrom prefers an explicit CONTAINER value and otherwise
// looks for runtime markers in the init process's cgroup.
func detectContainerFrom(envValue, cgroup string) bool {
	if v := strings.TrimSpace(envValue); v != "" {
		v = strings.ToLower(v)
		return v != "0" && v != "false"
	}
	haystack := strings.ToLower(cgroup)
	for _, marker := range []string{"docker", "containerd", "kubepods", "podman", "lxc"} {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

func resolveContainerDefaults(inContainer bool, cli *bool) (bool, error) {
	fromEnv, err := envBool(EnvContainerDefaults)
	if err != nil {
		return false, err
	}
	if fromEnv != nil {
		return *fromEnv, nil
	}
	if cli != nil {
		return *cli, nil
	}
	return inContainer, nil
}

func resolveConfigPath(containerDefaults bool, cli string) string {
	if p := envString(EnvConfigPath); p != nil {
		return *p
	}
	if cli != "" {
		return cli
	}
	if containerDefaults {
		return defaultContainerConfigPath
	}
	return defaultConfigPath
}

func resolveSecretsDir(containerDefaults bool) string {
	if d := envString(EnvSecretsDir); d != nil {
		return *d
	}
	if containerDefaults {
		return defaultSecretsDir
	}
	return ""
}

func envOverrides() (Overrides, error) {
	var o Overrides
	o.Env = envString(EnvEnv)
	o.ListenAddr = envString(EnvListenAddr)
	o.Log.Level = envString(EnvLogLevel)
	o.PotatoMesh.BaseURL = envString(EnvBaseURL)
	o.Matrix.Homeserver = envString(EnvHomeserver)
	o.Matrix.ASToken = envString(EnvASToken)
	o.Matrix.HSToken = envString(EnvHSToken)
	o.Matrix.ServerName = envString(EnvServerName)
	o.Matrix.RoomID = envString(EnvRoomID)
	o.State.File = envString(EnvStateFile)
	o.State.DSN = envString(EnvStateDSN)

	var err error
	if o.PotatoMesh.PollIntervalSecs, err = parseUint(EnvPollInterval, envString(EnvPollInterval)); err != nil {
		return o, err
	}
	if o.RequestTimeoutSecs, err = parseUint(EnvRequestTimeout, envString(EnvRequestTimeout)); err != nil {
		return o, err
	}
	return o, nil
}

func secretOverrides(dir string) (Overrides, error) {
	var o Overrides
	fields := []struct {
		name string
		dst  **string
	}{
		{EnvBaseURL, &o.PotatoMesh.BaseURL},
		{EnvHomeserver, &o.Matrix.Homeserver},
		{EnvASToken, &o.Matrix.ASToken},
		{EnvHSToken, &o.Matrix.HSToken},
		{EnvServerName, &o.Matrix.ServerName},
		{EnvRoomID, &o.Matrix.RoomID},
		{EnvStateFile, &o.State.File},
		{EnvStateDSN, &o.State.DSN},
	}
	for _, f := range fields {
		v, err := readSecret(f.name, dir)
		if err != nil {
			return o, err
		}
		*f.dst = v
	}

	poll, err := readSecret(EnvPollInterval, dir)
	if err != nil {
		return o, err
	}
	if o.PotatoMesh.PollIntervalSecs, err = parseUint(EnvPollInterval+" secret", poll); err != nil {
		return o, err
	}
	return o, nil
}

// readSecret reads NAME from the file named by NAME_FILE, or from dir/NAME.
func readSecret(name, dir string) (*string, error) {
	if path := envString(name + "_FILE"); path != nil {
		return readSecretFile(*path)
	}
	if dir == "" {
		return nil, nil
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return readSecretFile(path)
}

func readSecretFile(path string) (*string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", path, err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return nil, fmt.Errorf("secret file %s is empty", path)
	}
	return &v, nil
}

func envString(key string) *string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	return &v
}

func envBool(key string) (*bool, error) {
	raw := envString(key)
	if raw == nil {
		return nil, nil
	}
	var v bool
	switch strings.ToLower(*raw) {
	case "1", "true", "yes", "on":
		v = true
	case "0", "false", "no", "off":
		v = false
	default:
		return nil, fmt.Errorf("invalid boolean value for %s: %s", key, *raw)
	}
	return &v, nil
}

func parseUint(name string, raw *string) (*uint64, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseUint(*raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer value for %s: %s", name, *raw)
	}
	return &v, nil
}
