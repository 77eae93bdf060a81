// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for gatehouse.
//
// Configuration is loaded from a single file passed via the --config
// flag. There are no fallbacks, no home-directory discovery, and no
// automatic file search. This keeps configuration deterministic and
// auditable with no hidden overrides.
//
// Required options (homeserver URL, server name, ticketing endpoint,
// admin user) are validated at load time; a missing required option is
// a fatal startup error — the daemon refuses to initialize rather than
// run with a partial configuration on the authentication path.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
package config
