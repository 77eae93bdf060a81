// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Gatehouse bridges a conference ticketing service into a Matrix
// homeserver. It validates login credentials against the ticketing
// API, provisions Matrix accounts for attendees on first login, and
// keeps their room memberships in line with their tickets. The daemon
// serves a credential-check endpoint consumed by the homeserver's
// password-provider shim.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/gatehouse-project/gatehouse/bootstrap"
	"github.com/gatehouse-project/gatehouse/entitlement"
	"github.com/gatehouse-project/gatehouse/gate"
	"github.com/gatehouse-project/gatehouse/identity"
	"github.com/gatehouse-project/gatehouse/lib/config"
	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/lib/secret"
	"github.com/gatehouse-project/gatehouse/lib/service"
	"github.com/gatehouse-project/gatehouse/lib/version"
	"github.com/gatehouse-project/gatehouse/messaging"
	"github.com/gatehouse-project/gatehouse/policy"
	"github.com/gatehouse-project/gatehouse/reconcile"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger creates the daemon's structured logger. When stderr is a
// terminal, uses slog.TextHandler for human-readable output. When
// stderr is piped or redirected (systemd, container logs), uses
// slog.JSONHandler for machine-parseable output.
func newLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// reconcileAccounts adapts the messaging account directory to the
// reconciler's interface: LoginAsUser narrows *messaging.Session to
// the session surface the reconciler uses.
type reconcileAccounts struct {
	directory *messaging.Directory
}

func (a reconcileAccounts) JoinedRoomsOf(ctx context.Context, userID ref.UserID) ([]ref.RoomID, error) {
	return a.directory.JoinedRoomsOf(ctx, userID)
}

func (a reconcileAccounts) LoginAsUser(ctx context.Context, userID ref.UserID) (reconcile.UserSession, error) {
	return a.directory.LoginAsUser(ctx, userID)
}

func run() error {
	var configPath string
	var showVersion bool

	flagSet := pflag.NewFlagSet("gatehouse", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML configuration file (required)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("gatehouse %s\n", version.Info())
		return nil
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}

	configuration, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if configuration.AdminTokenFile == "" {
		return fmt.Errorf("config file %s: admin_token_file is required by the daemon", configPath)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adminToken, err := secret.ReadFromPath(configuration.AdminTokenFile)
	if err != nil {
		return fmt.Errorf("reading admin token: %w", err)
	}
	defer adminToken.Close()

	serverName := ref.MustParseServerName(configuration.ServerName)
	adminUserID := configuration.AdminUserID()

	roomPolicy := policy.Default(serverName)
	if configuration.PolicyFile != "" {
		roomPolicy, err = policy.LoadFile(configuration.PolicyFile, serverName)
		if err != nil {
			return err
		}
		logger.Info("loaded room policy", "path", configuration.PolicyFile)
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: configuration.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	adminSession, err := client.SessionFromToken(adminUserID, adminToken.String())
	if err != nil {
		return err
	}
	defer adminSession.Close()

	// Fail at startup, not on the first login, if the token is bad.
	whoami, err := adminSession.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("verifying admin session: %w", err)
	}
	if whoami != adminUserID {
		return fmt.Errorf("admin token belongs to %s, config says %s", whoami, adminUserID)
	}
	logger.Info("admin session verified", "user_id", adminUserID.String())

	validator, err := entitlement.NewValidator(configuration.Ticketing.Endpoint, http.DefaultClient, logger)
	if err != nil {
		return err
	}

	directory := messaging.NewDirectory(adminSession, serverName)
	resolver := identity.NewResolver(directory, logger)
	reconciler := reconcile.New(adminSession, reconcileAccounts{directory: directory}, logger)
	provisioner := bootstrap.New(adminSession, roomPolicy, serverName, adminUserID, logger)

	authenticator := gate.New(validator, resolver, reconciler, provisioner, roomPolicy, adminUserID, logger)

	mux := http.NewServeMux()
	mux.Handle(gate.CheckPath, gate.NewHandler(authenticator, logger))

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: configuration.ListenAddress,
		Handler: mux,
		Logger:  logger,
	})

	logger.Info("gatehouse starting",
		"version", version.Short(),
		"homeserver", configuration.HomeserverURL,
		"server_name", configuration.ServerName,
		"listen", configuration.ListenAddress)

	return server.Serve(ctx)
}
