// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/gatehouse-project/gatehouse/lib/ref"
)

// Config is the complete gatehouse configuration.
type Config struct {
	// HomeserverURL is the base URL of the Matrix homeserver's
	// client-server API (e.g., "http://localhost:8008"). Required.
	HomeserverURL string `yaml:"homeserver_url"`

	// ServerName is the Matrix server name used when minting user IDs
	// and room aliases (e.g., "europython.eu"). Required.
	ServerName string `yaml:"server_name"`

	// AdminUser is the localpart of the administrative account. The
	// admin account issues invites, provisions accounts, and is the
	// only account whose login triggers default-room bootstrap.
	// Required.
	AdminUser string `yaml:"admin_user"`

	// AdminTokenFile is the path to a file holding the admin account's
	// access token. Required by the daemon; the setup tool logs in
	// with a password instead.
	AdminTokenFile string `yaml:"admin_token_file"`

	// ListenAddress is the TCP address the credential-check endpoint
	// binds to. Defaults to ":8448".
	ListenAddress string `yaml:"listen_address"`

	// PolicyFile is an optional path to a JSONC room-policy file
	// (room groups, fare-code table, default topology). When empty,
	// the built-in policy for ServerName is used.
	PolicyFile string `yaml:"policy_file"`

	// Ticketing configures the external ticketing service.
	Ticketing TicketingConfig `yaml:"ticketing"`
}

// TicketingConfig configures the external ticketing/identity service.
type TicketingConfig struct {
	// Endpoint is the URL credentials are validated against. Required.
	Endpoint string `yaml:"endpoint"`

	// IDServer is passed through to the homeserver for threepid
	// binding. Optional; unused by the core logic.
	IDServer string `yaml:"id_server"`
}

// Default returns a Config with development defaults. Required fields
// are left empty and must be filled in before Validate passes.
func Default() *Config {
	return &Config{
		ListenAddress: ":8448",
	}
}

// LoadFile loads configuration from the given YAML file path.
// The file must exist; unknown keys are rejected to catch typos.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	configuration := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(configuration); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	configuration.expandPaths()

	if err := configuration.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return configuration, nil
}

// Validate checks that all required options are present and well-formed.
// A missing required option is a fatal startup error.
func (c *Config) Validate() error {
	var missing []string
	if c.HomeserverURL == "" {
		missing = append(missing, "homeserver_url")
	}
	if c.ServerName == "" {
		missing = append(missing, "server_name")
	}
	if c.AdminUser == "" {
		missing = append(missing, "admin_user")
	}
	if c.Ticketing.Endpoint == "" {
		missing = append(missing, "ticketing.endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config values: %v", missing)
	}

	if _, err := ref.ParseServerName(c.ServerName); err != nil {
		return fmt.Errorf("server_name: %w", err)
	}
	if err := ref.ValidateLocalpart(c.AdminUser); err != nil {
		return fmt.Errorf("admin_user: %w", err)
	}

	if c.ListenAddress == "" {
		c.ListenAddress = ":8448"
	}
	return nil
}

// AdminUserID returns the fully-qualified admin user ID. Only valid
// after Validate has passed.
func (c *Config) AdminUserID() ref.UserID {
	return ref.MatrixUserID(c.AdminUser, ref.MustParseServerName(c.ServerName))
}

// expandPaths expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandPaths() {
	c.AdminTokenFile = expandVariables(c.AdminTokenFile)
	c.PolicyFile = expandVariables(c.PolicyFile)
}

// variablePattern matches ${VAR} and ${VAR:-default}.
var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandVariables expands environment variable references in a path.
func expandVariables(path string) string {
	return variablePattern.ReplaceAllStringFunc(path, func(match string) string {
		groups := variablePattern.FindStringSubmatch(match)
		value, set := os.LookupEnv(groups[1])
		if !set && groups[2] != "" {
			return groups[3]
		}
		return value
	})
}
