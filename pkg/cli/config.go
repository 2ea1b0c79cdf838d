package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"watershed/internal/config"
)

// UserConfig represents ~/.watershed/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile" json:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles" json:"profiles"`
}

// Profile represents a single named configuration profile.
type Profile struct {
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Output   string `yaml:"output,omitempty" json:"output,omitempty"`
	LogLevel string `yaml:"log-level,omitempty" json:"log-level,omitempty"`
}

// Validate checks the settings a profile sets. Empty fields are valid and
// fall through to the defaults.
func (p Profile) Validate() error {
	var errs []error
	if p.Host != "" {
		errs = append(errs, validateHostURL(p.Host))
	}
	if p.Output != "" {
		errs = append(errs, validateOutputFormat(p.Output))
	}
	if p.LogLevel != "" {
		errs = append(errs, validateLogLevel(p.LogLevel))
	}
	return errors.Join(errs...)
}

// ActiveProfile returns the profile to use based on the override or
// current-profile. Naming a profile that does not exist is an error; a
// missing current profile yields an empty one. A profile whose settings
// do not validate is reported by name.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	name := c.CurrentProfile
	if override != "" {
		if _, ok := c.Profiles[override]; !ok {
			return Profile{}, fmt.Errorf("profile %q not found", override)
		}
		name = override
	}
	p := c.Profiles[name]
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %q in %s: %w", name, ConfigPath(), err)
	}
	return p, nil
}

func validateLogLevel(level string) error {
	if !config.ValidLogLevel(level) {
		return fmt.Errorf("unsupported log level %q: use debug, info, warn or error", level)
	}
	return nil
}

// ConfigDir returns the path to ~/.watershed/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".watershed")
}

// ConfigPath returns the path to ~/.watershed/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads ~/.watershed/config.yaml.
func LoadUserConfig() (*UserConfig, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// SaveUserConfig writes ~/.watershed/config.yaml.
func SaveUserConfig(cfg *UserConfig) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
