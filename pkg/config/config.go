package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FilterMode selects how FilterBranches is applied against the
// hosting API's branch list.
type FilterMode string

const (
	FilterInclude FilterMode = "include"
	FilterExclude FilterMode = "exclude"
)

// Commands is the build/start command template set shared by every
// tentacle. Build accepts either a single string or a list in the
// source YAML; BuildList normalizes it.
type Commands struct {
	Build yaml.Node `yaml:"build"`
	Start string     `yaml:"start"`
}

// BuildList returns Build normalized to a slice, whether the YAML
// source gave a single scalar or a sequence.
func (c Commands) BuildList() ([]string, error) {
	switch c.Build.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		var s string
		if err := c.Build.Decode(&s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		var list []string
		if err := c.Build.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("config: commands.build must be a string or a list of strings")
	}
}

// Config is the parsed configuration file.
type Config struct {
	GithubToken                  string     `yaml:"github_token"`
	RepoFullName                 string     `yaml:"repo_full_name"`
	BranchesDir                  string     `yaml:"branches_dir"`
	FilterMode                   FilterMode `yaml:"filter_mode"`
	FilterBranches                []string   `yaml:"filter_branches"`
	Commands                     Commands   `yaml:"commands"`
	EnabledLogLevels             yaml.Node  `yaml:"enabled_log_levels"`
	WebhookUpdate                bool       `yaml:"webhook_update"`
	ClearRedundantLocalBranches  *bool      `yaml:"clear_redundant_local_branches"`
	ListenAddr                   string     `yaml:"listen_addr"`
}

// ConfigError wraps a missing or invalid configuration key; fatal at
// startup.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("config: missing required key %q", e.Key)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Key: path, Err: err}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Key: path, Err: err}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GithubToken == "" {
		return &ConfigError{Key: "github_token"}
	}
	if c.RepoFullName == "" {
		return &ConfigError{Key: "repo_full_name"}
	}
	if c.BranchesDir == "" {
		return &ConfigError{Key: "branches_dir"}
	}
	switch c.FilterMode {
	case FilterInclude, FilterExclude, "":
	default:
		return &ConfigError{Key: "filter_mode", Err: fmt.Errorf("must be %q or %q, got %q", FilterInclude, FilterExclude, c.FilterMode)}
	}
	if _, err := c.Commands.BuildList(); err != nil {
		return &ConfigError{Key: "commands.build", Err: err}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.FilterMode == "" {
		c.FilterMode = FilterExclude
	}
	if c.ClearRedundantLocalBranches == nil {
		v := true
		c.ClearRedundantLocalBranches = &v
	}
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:8080"
	}
}

// LogLevels normalizes EnabledLogLevels to the explicit set of levels
// it names, or nil to mean "all".
func (c *Config) LogLevels() ([]string, error) {
	switch c.EnabledLogLevels.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		var s string
		if err := c.EnabledLogLevels.Decode(&s); err != nil {
			return nil, err
		}
		if s == "all" {
			return nil, nil
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		var list []string
		if err := c.EnabledLogLevels.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("config: enabled_log_levels must be \"all\" or a list of strings")
	}
}
