package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/robolink/internal/config"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/danmuck/robolink/internal/protocol/session"
	"github.com/danmuck/robolink/internal/server"
	"github.com/danmuck/robolink/internal/telemetry"
	"github.com/danmuck/robolink/internal/transport/serialport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configPath string
	port       string
	httpAddr   string
	noHTTP     bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the port, supervise the link and serve the HTTP surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveHostConfig(opts)
			if err != nil {
				return err
			}
			if root.schemaPath != "" {
				cfg.SchemaPath = root.schemaPath
			}
			table := codes.Default()
			if cfg.SchemaPath != "" {
				if table, err = codes.LoadSchemaFile(cfg.SchemaPath); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runHost(ctx, cfg, table, !opts.noHTTP)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "host config file (TOML)")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "serial device, overrides the config file")
	cmd.Flags().StringVar(&opts.httpAddr, "http", "", "HTTP listen address, overrides the config file")
	cmd.Flags().BoolVar(&opts.noHTTP, "no-http", false, "do not serve the HTTP surface")
	return cmd
}

func resolveHostConfig(opts *runOptions) (config.HostConfig, error) {
	cfg := config.DefaultHostConfig()
	if opts.configPath != "" {
		loaded, err := config.ReadHostConfig(opts.configPath)
		if err != nil {
			return config.HostConfig{}, err
		}
		cfg = loaded
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.httpAddr != "" {
		cfg.HTTPAddr = opts.httpAddr
	}
	if err := config.ValidateHostConfig(cfg); err != nil {
		return config.HostConfig{}, err
	}
	return cfg, nil
}

func runHost(ctx context.Context, cfg config.HostConfig, table *codes.Table, serveHTTP bool) error {
	rec := telemetry.NewRecorder(cfg.PIDHistory, cfg.FrontOffset)
	opener := serialport.Opener(serialport.Config{
		Port:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.Session.ReadTimeout,
	})
	sup := session.NewSupervisor(cfg.Session, table, opener, rec)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	running := 1
	go func() {
		errc <- sup.Run(ctx)
	}()
	if serveHTTP {
		running++
		srv := server.New(server.Options{
			Addr:         cfg.HTTPAddr,
			CorsOrigins:  cfg.CorsOrigins,
			Recorder:     rec,
			Outbox:       sup.Outbox(),
			Table:        table,
			ControlToken: cfg.ControlToken,
		})
		go func() {
			errc <- srv.Serve(ctx)
		}()
	}
	log.Info().Msgf("robolink.run started port=%s baud=%d http=%v", cfg.Port, cfg.Baud, serveHTTP)

	// The first component to stop takes the other one down with it.
	err := <-errc
	cancel()
	for running--; running > 0; running-- {
		if rest := <-errc; err == nil {
			err = rest
		}
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info().Msgf("robolink.run stopped err=%v", err)
	return err
}
