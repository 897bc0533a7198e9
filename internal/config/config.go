// Package config loads the proxy configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/searchwall/searchwall/pkg/auth"
	"github.com/searchwall/searchwall/pkg/directory"
)

// AllowFromEntry permits credential-less access from one address. A nil
// Ports list permits any port.
type AllowFromEntry struct {
	Address string `yaml:"address"`
	Ports   []int  `yaml:"ports"`
}

// DirectoryConfig configures the LDAP group backend. An empty URL
// disables group resolution.
type DirectoryConfig struct {
	URL          string `yaml:"url"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`

	UserBaseDN        string `yaml:"user_base_dn"`
	UserObjectClass   string `yaml:"user_object_class"`
	UserNameAttribute string `yaml:"user_name_attribute"`

	GroupBaseDN              string `yaml:"group_base_dn"`
	GroupObjectClass         string `yaml:"group_object_class"`
	GroupNameAttribute       string `yaml:"group_name_attribute"`
	GroupMembershipAttribute string `yaml:"group_membership_attribute"`
}

// Config is the proxy configuration.
type Config struct {
	Listen    string           `yaml:"listen"`
	Backend   string           `yaml:"backend"`
	AllowFrom []AllowFromEntry `yaml:"allow_from"`
	Directory DirectoryConfig  `yaml:"directory"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Listen:  ":59200",
		Backend: "http://localhost:9200",
		Directory: DirectoryConfig{
			UserObjectClass:          "inetOrgPerson",
			UserNameAttribute:        "uid",
			GroupObjectClass:         "groupOfNames",
			GroupNameAttribute:       "cn",
			GroupMembershipAttribute: "member",
		},
	}
}

// Load reads the YAML config at path on top of the defaults. The
// directory bind password may be supplied via
// SEARCHWALL_DIRECTORY_PASSWORD instead of the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if pw := os.Getenv("SEARCHWALL_DIRECTORY_PASSWORD"); pw != "" {
		cfg.Directory.BindPassword = pw
	}

	return cfg, nil
}

// AllowFromTable converts the allow_from entries into the manager's
// address table.
func (c *Config) AllowFromTable() auth.AllowFrom {
	table := make(auth.AllowFrom, len(c.AllowFrom))
	for _, entry := range c.AllowFrom {
		table[entry.Address] = entry.Ports
	}

	return table
}

// DirectorySettings converts the directory section into backend
// settings.
func (c *Config) DirectorySettings() directory.Settings {
	d := c.Directory
	return directory.Settings{
		URL:                      d.URL,
		BindDN:                   d.BindDN,
		BindPassword:             d.BindPassword,
		UserBaseDN:               d.UserBaseDN,
		UserObjectClass:          d.UserObjectClass,
		UserNameAttribute:        d.UserNameAttribute,
		GroupBaseDN:              d.GroupBaseDN,
		GroupObjectClass:         d.GroupObjectClass,
		GroupNameAttribute:       d.GroupNameAttribute,
		GroupMembershipAttribute: d.GroupMembershipAttribute,
	}
}
