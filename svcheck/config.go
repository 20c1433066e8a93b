package svcheck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where checkservices looks for its configuration
// when no explicit path is given
const DefaultConfigPath = "/etc/checkservices.yaml"

// Config is the resolved, immutable configuration for one checkservices
// run. It is built once from the optional config file plus command-line
// flags and passed by value afterwards.
type Config struct {
	// NoConfirm skips the interactive confirmation prompt
	NoConfirm bool `yaml:"noconfirm"`

	// ListOnly prints the units that need restarting without restarting them
	ListOnly bool `yaml:"list"`

	// ShowStatus prints each unit's status after its restart completes
	ShowStatus bool `yaml:"status"`

	// Serialize restarts units one at a time instead of concurrently
	Serialize bool `yaml:"serialize"`

	// UserSlice includes units running under user slices
	UserSlice bool `yaml:"user_slice"`

	// MachineSlice includes units running under machine slices
	MachineSlice bool `yaml:"machine_slice"`

	// Ignore holds glob patterns for unit names to skip
	Ignore []string `yaml:"ignore"`

	// SudoCommand overrides the privilege elevation command
	SudoCommand string `yaml:"sudo_command"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		ShowStatus:  true,
		SudoCommand: DefaultSudoCommand,
	}
}

// LoadConfig reads a yaml config file over the defaults. A missing file is
// not an error when it is the default path; an explicitly given path must
// exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
