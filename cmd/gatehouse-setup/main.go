// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

// Gatehouse-setup provisions the conference room topology ahead of
// time, without waiting for the admin's first login. Safe to re-run:
// room creation is idempotent, and invites that the homeserver
// rejects because the user is already present are tolerated.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/gatehouse-project/gatehouse/bootstrap"
	"github.com/gatehouse-project/gatehouse/lib/config"
	"github.com/gatehouse-project/gatehouse/lib/ref"
	"github.com/gatehouse-project/gatehouse/lib/secret"
	"github.com/gatehouse-project/gatehouse/lib/version"
	"github.com/gatehouse-project/gatehouse/messaging"
	"github.com/gatehouse-project/gatehouse/policy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

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

func run() error {
	var configPath string
	var passwordFile string
	var inviteUsers []string
	var showVersion bool

	flagSet := pflag.NewFlagSet("gatehouse-setup", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML configuration file (required)")
	flagSet.StringVar(&passwordFile, "admin-password-file", "", "path to admin password file, or - for stdin (required)")
	flagSet.StringArrayVar(&inviteUsers, "invite", nil, "Matrix user ID to invite into every topology room (repeatable)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("gatehouse-setup %s\n", version.Info())
		return nil
	}
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	if passwordFile == "" {
		return fmt.Errorf("--admin-password-file is required (use - for stdin)")
	}

	configuration, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	invitees := make([]ref.UserID, 0, len(inviteUsers))
	for _, raw := range inviteUsers {
		userID, err := ref.ParseUserID(raw)
		if err != nil {
			return fmt.Errorf("--invite %q: %w", raw, err)
		}
		invitees = append(invitees, userID)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Setup is a short one-shot run against two local services.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	adminPassword, err := secret.ReadFromPath(passwordFile)
	if err != nil {
		return fmt.Errorf("reading admin password: %w", err)
	}
	defer adminPassword.Close()

	serverName := ref.MustParseServerName(configuration.ServerName)
	adminUserID := configuration.AdminUserID()

	roomPolicy := policy.Default(serverName)
	if configuration.PolicyFile != "" {
		roomPolicy, err = policy.LoadFile(configuration.PolicyFile, serverName)
		if err != nil {
			return err
		}
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: configuration.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	session, err := client.Login(ctx, configuration.AdminUser, adminPassword)
	if err != nil {
		return fmt.Errorf("admin login failed: %w", err)
	}
	defer session.Close()

	provisioner := bootstrap.New(session, roomPolicy, serverName, adminUserID, logger)
	if err := provisioner.EnsureDefaultRooms(ctx); err != nil {
		return fmt.Errorf("room provisioning incomplete: %w", err)
	}
	logger.Info("conference rooms ready", "rooms", len(roomPolicy.Topology()))

	for _, room := range roomPolicy.Topology() {
		alias := ref.NewRoomAlias(room.Alias, serverName)
		roomID, err := session.ResolveAlias(ctx, alias)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", alias, err)
		}
		for _, userID := range invitees {
			err := session.InviteUser(ctx, roomID, userID)
			switch {
			case err == nil:
				logger.Info("invited", "user_id", userID.String(), "alias", alias.String())
			case messaging.IsMatrixError(err, messaging.ErrCodeForbidden):
				// Already invited or already a member.
				logger.Debug("invite skipped", "user_id", userID.String(), "alias", alias.String())
			default:
				return fmt.Errorf("inviting %s to %s: %w", userID, alias, err)
			}
		}
	}

	return nil
}
