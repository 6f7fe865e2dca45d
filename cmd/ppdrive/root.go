// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dududaa/ppdrive/internal/cli"
	"github.com/dududaa/ppdrive/internal/config"
	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/plugin"
)

// managerBinary is the daemon executable spawned by `ppdrive start`.
const managerBinary = "ppdrive-manager"

var managerPort uint16

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ppdrive",
		Short:         "A free and open-source cloud storage service.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.Init(logging.Config{Level: "info", Format: "console"})
		},
	}
	root.PersistentFlags().Uint16VarP(&managerPort, "port", "p", config.DefaultManagerPort,
		"the port the service manager runs on")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newLaunchCmd(),
		newStopCmd(),
		newListCmd(),
		newClientCmd(),
	)
	return root
}

func client() *cli.Client {
	return &cli.Client{Port: managerPort}
}

func newStartCmd() *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the service manager",
		RunE: func(*cobra.Command, []string) error {
			bin, err := findManagerBinary()
			if err != nil {
				return err
			}

			args := []string{strconv.FormatUint(uint64(managerPort), 10)}
			if foreground {
				run := exec.Command(bin, args...)
				run.Stdout = os.Stdout
				run.Stderr = os.Stderr
				return run.Run()
			}

			run := exec.Command(bin, args...)
			if err := run.Start(); err != nil {
				return fmt.Errorf("spawn manager: %w", err)
			}
			logging.Info().Int("pid", run.Process.Pid).Uint16("port", managerPort).
				Msg("service manager started")
			return run.Process.Release()
		},
	}
	cmd.Flags().BoolVar(&foreground, "foreground", false, "run the manager in the foreground")
	return cmd
}

// findManagerBinary looks for the daemon next to the CLI executable,
// then on PATH.
func findManagerBinary() (string, error) {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), managerBinary)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(managerBinary); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%s binary not found next to the CLI or on PATH", managerBinary)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "check whether a manager is running",
		RunE: func(*cobra.Command, []string) error {
			if err := client().CheckStatus(); err != nil {
				logging.Error().Uint16("port", managerPort).
					Msg("ppdrive is not running. run with 'ppdrive start' or check logs if starting fails.")
				return err
			}
			logging.Info().Uint16("port", managerPort).Msg("ppdrive is running")
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [id]",
		Short: "stop a running service, or the whole manager when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return client().Stop()
			}
			id, err := strconv.ParseUint(args[0], 10, 8)
			if err != nil {
				return fmt.Errorf("invalid service id %q", args[0])
			}
			return client().Cancel(uint8(id))
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list services running in the service manager",
		RunE: func(*cobra.Command, []string) error {
			services, err := client().List()
			if err != nil {
				return err
			}
			if len(services) == 0 {
				fmt.Println("no service running")
				return nil
			}

			fmt.Println(" id\t | port\t | kind\t | auth-modes")
			for _, svc := range services {
				modes := make([]string, 0, len(svc.AuthModes))
				for _, m := range svc.AuthModes {
					modes = append(modes, string(m))
				}
				fmt.Printf(" %d\t | %d\t | %s\t | %s\n", svc.ID, svc.Port, svc.Kind, strings.Join(modes, ", "))
			}
			return nil
		},
	}
}

func newLaunchCmd() *cobra.Command {
	var (
		cfg     config.ServiceConfig
		modes   []string
		origins []string
		svcPort uint16
	)

	cmd := &cobra.Command{
		Use:       "launch <rest|grpc>",
		Short:     "add a service to the service manager",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"rest", "grpc"},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg.Kind = config.ServiceKind(args[0])
			cfg.Base.Port = svcPort
			cfg.Base.AllowedOrigins = origins
			for _, m := range modes {
				cfg.Auth.Modes = append(cfg.Auth.Modes, config.AuthMode(m))
			}
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Install prompts need a terminal, so plugins are prepared
			// from the CLI before the manager is asked to start the
			// service.
			svc := plugin.ServiceFor(&cfg)
			if err := plugin.PreloadWithDeps(svc, plugin.PreloadOptions{
				AutoInstall: cfg.AutoInstall,
				Reload:      cfg.ReloadDeps,
			}); err != nil {
				return err
			}

			logging.Info().Msg("adding service to service manager...")
			id, err := client().Add(&cfg)
			if err != nil {
				return err
			}

			logging.Info().Msg("waiting to validate service startup...")
			time.Sleep(2 * time.Second)

			addr := fmt.Sprintf("0.0.0.0:%d", cfg.Base.Port)
			if conn, dialErr := net.DialTimeout("tcp", addr, cli.DialTimeout); dialErr == nil {
				_ = conn.Close()
				logging.Info().Uint8("id", id).Msg("service running")
			} else {
				logging.Error().Err(dialErr).
					Msg("service fails to run. check the manager log for full details.")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Base.DBURL, "db-url", config.DefaultDBURL, "url of database to be used by the service")
	flags.Uint16Var(&svcPort, "service-port", config.DefaultServicePort, "port on which to run the service")
	flags.IntVar(&cfg.Base.MaxUploadMB, "max-upload", config.DefaultMaxUploadMB, "maximum request content size for this service (MB)")
	flags.StringSliceVar(&origins, "allowed-origins", nil, "urls allowed by CORS policy; unset allows all")
	flags.StringSliceVar(&modes, "auth-modes", []string{string(config.AuthClient)}, "authentication modes for the service")
	flags.Int64Var(&cfg.Auth.AccessExpSeconds, "access-exp", config.DefaultAccessExp, "JWT access token expiration (seconds)")
	flags.Int64Var(&cfg.Auth.RefreshExpSeconds, "refresh-exp", config.DefaultRefreshExp, "JWT refresh token expiration (seconds)")
	flags.StringVar(&cfg.Auth.ExternalURL, "auth-url", "", "external url to be used for authentication")
	flags.BoolVar(&cfg.AutoInstall, "auto-install", false, "install missing plugins without prompting")
	flags.BoolVar(&cfg.ReloadDeps, "reload-deps", false, "re-install plugins even when already present")
	return cmd
}

