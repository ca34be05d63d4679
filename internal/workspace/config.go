package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

// ConfigFileName is the default per-project config file name, a small
// JSONC settings file.
const ConfigFileName = ".edithist.json"

var (
	// ErrConfigFileNotFound is returned when an explicitly named config
	// file (via --config) does not exist.
	ErrConfigFileNotFound = errors.New("config file not found")

	// ErrConfigInvalid wraps a JSONC parse or JSON unmarshal failure.
	ErrConfigInvalid = errors.New("invalid config file")

	// ErrNoRoots is returned when a config resolves to zero allowlist roots.
	ErrNoRoots = errors.New("workspace: no allowlist roots configured")
)

// Config holds edithist's own settings: which directories the allowlist
// governs, and the ambient tuning knobs (lock timeout, log size warning
// threshold, debug logging) that tune the engine's runtime behavior.
type Config struct {
	Roots        []string `json:"roots,omitempty"`
	LockTimeout  Duration `json:"lock_timeout,omitempty"`
	LogWarnBytes int64    `json:"log_warn_bytes,omitempty"`
	Debug        bool     `json:"debug,omitempty"`

	EffectiveCwd string   `json:"-"`
	RootsAbs     []string `json:"-"`
	Sources      ConfigSources
}

// ConfigSources records which files contributed to a loaded Config, for
// diagnostics ("user-visible behaviour" extends naturally to
// "which config file set this").
type ConfigSources struct {
	Global  string
	Project string
}

// Duration wraps time.Duration so it can be written in config files as a
// plain string ("10s") instead of a raw integer count of nanoseconds.
type Duration time.Duration

// MarshalJSON implements [json.Marshaler].
func (d Duration) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(time.Duration(d).String())
	if err != nil {
		return nil, fmt.Errorf("marshal duration: %w", err)
	}

	return data, nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string

	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal duration: %w", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: parsing duration %q: %w", ErrConfigInvalid, s, err)
	}

	*d = Duration(parsed)

	return nil
}

// DefaultConfig returns the zero-value-safe defaults, overridden by
// anything a config file or CLI flag supplies.
func DefaultConfig() Config {
	return Config{
		Roots:        []string{"."},
		LockTimeout:  Duration(10 * time.Second),
		LogWarnBytes: 50 << 20,
	}
}

// LoadConfigInput holds LoadConfig's inputs (environment,
// explicit config path, CLI overrides).
type LoadConfigInput struct {
	WorkDirOverride string // -w/--workspace; empty means os.Getwd()
	ConfigPath      string // --config; empty means the default project location
	RootsOverride   []string
	Env             map[string]string
}

// LoadConfig loads configuration with the following precedence order
// (highest wins): defaults, global user config, project config
// (default location or --config), then CLI overrides. All roots in the
// returned Config are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}

		workDir = wd
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if len(input.RootsOverride) > 0 {
		cfg.Roots = input.RootsOverride
	}

	cfg.EffectiveCwd = workDir

	if len(cfg.Roots) == 0 {
		return Config{}, ErrNoRoots
	}

	cfg.RootsAbs = make([]string, len(cfg.Roots))

	for i, r := range cfg.Roots {
		if filepath.IsAbs(r) {
			cfg.RootsAbs[i] = r
		} else {
			cfg.RootsAbs[i] = filepath.Join(workDir, r)
		}
	}

	return cfg, nil
}

func getGlobalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "edithist", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "edithist", "config.json")
	}

	return ""
}

func loadGlobalConfig(env map[string]string) (Config, string, error) {
	path := getGlobalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, path, nil
}

func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	cfgFile := filepath.Join(workDir, ConfigFileName)
	mustExist := false

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		if _, statErr := os.Stat(cfgFile); statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	return cfg, cfgFile, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		if mustExist {
			return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileNotFound, path, err)
		}

		return Config{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

// parseConfig standardizes JSONC (comments, trailing commas) to strict
// JSON before unmarshaling.
func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if len(overlay.Roots) > 0 {
		base.Roots = overlay.Roots
	}

	if overlay.LockTimeout > 0 {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.LogWarnBytes > 0 {
		base.LogWarnBytes = overlay.LogWarnBytes
	}

	if overlay.Debug {
		base.Debug = overlay.Debug
	}

	return base
}
