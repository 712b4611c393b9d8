package sandbox

// ABOUTME: User configuration via ~/.drydock/config.yaml.
// ABOUTME: Missing file yields defaults; every field is optional.

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables for execution and preview hosting. The
// zero file is valid: DefaultConfig values apply wherever the YAML is
// silent.
type Config struct {
	ScratchDir     string `yaml:"scratch_dir"`         // "" = os.TempDir()
	RegistryFile   string `yaml:"registry_file"`       // relative paths join under the data dir
	PortRangeStart int    `yaml:"port_range_start"`    // inclusive
	PortRangeEnd   int    `yaml:"port_range_end"`      // exclusive
	DefaultTTL     int    `yaml:"default_ttl_minutes"` // preview lifetime when the caller does not set one
	SweepInterval  int    `yaml:"sweep_interval_seconds"`
	ProbeHost      string `yaml:"probe_host"`
	ServerAddr     string `yaml:"server_addr"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		ScratchDir:     "",
		RegistryFile:   "registry.json",
		PortRangeStart: 8100,
		PortRangeEnd:   8200,
		DefaultTTL:     15,
		SweepInterval:  60,
		ProbeHost:      "localhost",
		ServerAddr:     ":8080",
	}
}

// ConfigPath returns the path to config.yaml under the data dir.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// LoadConfig reads config.yaml. Returns defaults if the file is missing.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath()) //nolint:gosec // G304: path is <data-dir>/config.yaml
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config.yaml: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, NewConfigError("parse config.yaml: %v", err)
	}

	if cfg.PortRangeStart <= 0 || cfg.PortRangeEnd <= cfg.PortRangeStart {
		return nil, NewConfigError("invalid port range [%d, %d)", cfg.PortRangeStart, cfg.PortRangeEnd)
	}

	return cfg, nil
}

// SaveConfig writes config.yaml under the data dir.
func SaveConfig(cfg *Config) error {
	dir, err := EnsureDataDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config.yaml: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write config.yaml: %w", err)
	}
	return nil
}

// ReadConfigRaw returns the raw config.yaml bytes, or nil if the file
// does not exist.
func ReadConfigRaw() ([]byte, error) {
	data, err := os.ReadFile(ConfigPath()) //nolint:gosec // G304: path is <data-dir>/config.yaml
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config.yaml: %w", err)
	}
	return data, nil
}

// GetConfigValue looks up a top-level key in config.yaml and returns its
// scalar value. The second return reports whether the key was present.
func GetConfigValue(key string) (string, bool, error) {
	data, err := ReadConfigRaw()
	if err != nil || data == nil {
		return "", false, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", false, NewConfigError("parse config.yaml: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return "", false, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return "", false, nil
	}

	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1].Value, true, nil
		}
	}
	return "", false, nil
}

// UpdateConfigFields sets top-level keys in config.yaml using yaml.Node
// manipulation to preserve comments and formatting. The file is created
// if missing.
func UpdateConfigFields(fields map[string]string) error {
	if _, err := EnsureDataDir(); err != nil {
		return err
	}

	path := ConfigPath()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is <data-dir>/config.yaml
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read config.yaml: %w", err)
		}
		data = []byte("{}\n")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return NewConfigError("parse config.yaml: %v", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fmt.Errorf("config.yaml has unexpected structure")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config.yaml root is not a mapping")
	}
	// Keep block style even when the file started as an empty {}.
	root.Style = 0

	for key, value := range fields {
		setConfigField(root, key, value)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal config.yaml: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write config.yaml: %w", err)
	}
	return nil
}

// setConfigField sets a top-level key on a yaml mapping node, appending
// the key when absent. Integer-looking values keep the int tag so
// reloads type-check.
func setConfigField(root *yaml.Node, key, value string) {
	tag := "!!str"
	if _, err := strconv.Atoi(value); err == nil {
		tag = "!!int"
	}

	for i := 0; i < len(root.Content)-1; i += 2 {
		if root.Content[i].Value == key {
			root.Content[i+1].SetString(value)
			root.Content[i+1].Tag = tag
			return
		}
	}

	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value},
	)
}

// RegistryPath resolves the registry file location for this config.
func (c *Config) RegistryPath() string {
	if filepath.IsAbs(c.RegistryFile) {
		return c.RegistryFile
	}
	return filepath.Join(DataDir(), c.RegistryFile)
}

// ScratchRoot resolves the scratch directory root for this config.
func (c *Config) ScratchRoot() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	return os.TempDir()
}
