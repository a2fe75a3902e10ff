package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redial-io/redial-go/internal/echoserver"
	"github.com/redial-io/redial-go/internal/logging"
	"github.com/redial-io/redial-go/pkg/discovery"
	"github.com/redial-io/redial-go/pkg/version"
)

type options struct {
	addr      string
	path      string
	dropEvery int
	reject    bool
	logLevel  string
	advertise string
	iface     string

	ignorePings bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "redial-echo",
		Short:         "WebSocket echo server with fault injection",
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(opts.logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", opts.addr)
			if err != nil {
				return err
			}
			return serve(ctx, ln, opts, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", ":9000", "Listen address")
	f.StringVar(&opts.path, "path", "/", "WebSocket path")
	f.IntVar(&opts.dropEvery, "drop-every", 0, "Drop each connection after N echoed frames (0 = never)")
	f.BoolVar(&opts.reject, "reject", false, "Refuse all upgrades with 503")
	f.BoolVar(&opts.ignorePings, "ignore-pings", false, "Never answer pings, so client keep-alive times out")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&opts.advertise, "advertise", "", "Advertise over mDNS with this instance name")
	f.StringVar(&opts.iface, "interface", "", "Network interface for mDNS (default all)")
	return cmd
}

// serve runs the echo server on ln until ctx ends.
func serve(ctx context.Context, ln net.Listener, opts options, logger *zap.Logger) error {
	srv := echoserver.New(
		echoserver.WithLogger(logger),
		echoserver.WithDropEvery(opts.dropEvery),
		echoserver.WithRejectAll(opts.reject),
		echoserver.WithIgnorePings(opts.ignorePings),
	)

	mux := http.NewServeMux()
	mux.Handle(opts.path, srv)
	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	logger.Info("echo server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", opts.path),
		zap.Int("drop_every", opts.dropEvery),
		zap.Bool("reject", opts.reject),
	)

	if opts.advertise != "" {
		adv, err := advertise(ln, opts, logger)
		if err != nil {
			_ = httpSrv.Close()
			return err
		}
		defer adv.Stop()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down",
		zap.Int("accepted", srv.Accepted()),
		zap.Int("echoed", srv.Echoed()),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.CloseAll(1001, "server shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func advertise(ln net.Listener, opts options, logger *zap.Logger) (*discovery.Advertiser, error) {
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("cannot advertise listener address %s", ln.Addr())
	}
	adv := discovery.NewAdvertiser(discovery.Config{
		Interface: opts.iface,
		Logger:    logger.Sugar(),
	})
	err := adv.Advertise(&discovery.Service{
		Instance: opts.advertise,
		Port:     addr.Port,
		Scheme:   "ws",
		Path:     opts.path,
	})
	if err != nil {
		return nil, err
	}
	return adv, nil
}
