package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/redial-io/redial-go/cmd/redial-client/console"
	"github.com/redial-io/redial-go/internal/logging"
	"github.com/redial-io/redial-go/pkg/discovery"
	"github.com/redial-io/redial-go/pkg/log"
	"github.com/redial-io/redial-go/pkg/socket"
	"github.com/redial-io/redial-go/pkg/transport"
	"github.com/redial-io/redial-go/pkg/version"
)

type options struct {
	configFile  string
	endpoint    string
	mode        string
	timeout     time.Duration
	retryMax    int
	retryDelay  time.Duration
	trace       string
	headers     map[string]string
	insecure    bool
	logLevel    string
	noConsole   bool
	sendOnStart []string

	discover        string
	discoverTimeout time.Duration
	iface           string
}

func newRootCmd() *cobra.Command {
	return bindRootCmd(&options{})
}

func bindRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "redial-client",
		Short:         "Reconnecting WebSocket client with an interactive console",
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("discover") && !cmd.Flags().Changed("endpoint") {
				endpoint, err := discoverEndpoint(ctx, *opts)
				if err != nil {
					return err
				}
				opts.endpoint = endpoint
				fmt.Fprintf(cmd.ErrOrStderr(), "discovered %s\n", endpoint)
			}

			cfg, err := buildConfig(*opts, cmd.Flags())
			if err != nil {
				return err
			}
			return run(ctx, cfg, *opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	f.StringVar(&opts.endpoint, "endpoint", "", "WebSocket endpoint (ws:// or wss://)")
	f.StringVar(&opts.mode, "mode", "text", "Payload mode: binary, text")
	f.DurationVar(&opts.timeout, "timeout", transport.DefaultFirstConnectTimeout, "First-connect timeout per attempt")
	f.IntVar(&opts.retryMax, "retry-max", 0, "Attempts per reconnect episode (default 3)")
	f.DurationVar(&opts.retryDelay, "retry-delay", 0, "Delay between reconnect attempts (default 5s)")
	f.StringVar(&opts.trace, "trace", "", "Write a CBOR lifecycle trace to this file")
	f.StringToStringVar(&opts.headers, "header", nil, "Handshake header as key=value (repeatable)")
	f.BoolVar(&opts.insecure, "insecure", false, "Skip TLS certificate verification")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.BoolVar(&opts.noConsole, "no-console", false, "Print events until interrupted instead of reading commands")
	f.StringArrayVar(&opts.sendOnStart, "send", nil, "Payload to send after connecting (repeatable)")
	f.StringVar(&opts.discover, "discover", "", "Find the endpoint over mDNS by instance name (\"*\" matches any)")
	f.DurationVar(&opts.discoverTimeout, "discover-timeout", 5*time.Second, "How long to browse for --discover")
	f.StringVar(&opts.iface, "interface", "", "Network interface for mDNS (default all)")
	return cmd
}

// buildConfig loads the config file, if any, and applies the flags that
// were set explicitly on top of it.
func buildConfig(opts options, flags *pflag.FlagSet) (transport.Config, error) {
	var cfg transport.Config
	if opts.configFile != "" {
		loaded, err := transport.LoadConfig(opts.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	set := func(name string) bool {
		return opts.configFile == "" || flags.Changed(name)
	}

	if (set("endpoint") || flags.Changed("discover")) && opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	if set("mode") {
		mode, err := socket.ParseMode(opts.mode)
		if err != nil {
			return cfg, err
		}
		cfg.PayloadMode = mode
	}
	if set("timeout") {
		cfg.FirstConnectTimeout = opts.timeout
	}
	if set("retry-max") && opts.retryMax != 0 {
		cfg.Retry.MaxAttempts = opts.retryMax
	}
	if set("retry-delay") && opts.retryDelay != 0 {
		cfg.Retry.Delay = opts.retryDelay
	}
	if set("trace") && opts.trace != "" {
		cfg.TraceFile = opts.trace
	}
	if flags.Changed("insecure") {
		cfg.InsecureSkipVerify = opts.insecure
	}
	if len(opts.headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(opts.headers))
		}
		for k, v := range opts.headers {
			cfg.Headers[k] = v
		}
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// discoverEndpoint browses mDNS for the instance named by --discover.
func discoverEndpoint(ctx context.Context, opts options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.discoverTimeout)
	defer cancel()

	name := strings.TrimSpace(opts.discover)
	if name == "*" {
		name = ""
	}
	svc, err := discovery.Resolve(ctx, name, discovery.Config{Interface: opts.iface})
	if err != nil {
		return "", err
	}
	return svc.Endpoint(), nil
}

func run(ctx context.Context, cfg transport.Config, opts options) error {
	var (
		con *console.Console
		out io.Writer = os.Stdout
	)
	if !opts.noConsole {
		// The console is created first so logs go through its writer.
		var err error
		con, err = console.NewInteractive(nil, cfg.FirstConnectTimeout)
		if err != nil {
			return err
		}
		out = con.Stdout()
	}

	logger, err := logging.NewTo(opts.logLevel, out)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	trace, closeTrace, err := newTraceLogger(cfg.TraceFile, logger)
	if err != nil {
		return err
	}
	defer closeTrace()

	tr, err := transport.New(cfg,
		transport.WithLogger(logger.Sugar()),
		transport.WithTraceLogger(trace),
	)
	if err != nil {
		return err
	}
	printEvents(tr, out)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.FirstConnectTimeout+time.Second)
	err = tr.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Warn("initial connect failed", zap.String("endpoint", cfg.Endpoint), zap.Error(err))
	} else {
		for _, payload := range opts.sendOnStart {
			if err := tr.Send([]byte(payload)); err != nil {
				logger.Warn("send failed", zap.Error(err))
			}
		}
	}

	if con != nil {
		con.Attach(tr)
		con.Run(ctx)
	} else {
		<-ctx.Done()
	}

	_ = tr.Close()
	return nil
}

// newTraceLogger returns the trace sink: zap debug output, plus a CBOR
// file when path is set.
func newTraceLogger(path string, logger *zap.Logger) (log.Logger, func(), error) {
	zapTrace := log.NewZapAdapter(logger)
	if path == "" {
		return zapTrace, func() {}, nil
	}

	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open trace file: %w", err)
	}
	logger.Info("tracing lifecycle", zap.String("file", fl.Path()))

	closeFn := func() {
		written, failed := fl.Stats()
		if err := fl.Close(); err != nil {
			logger.Warn("close trace file", zap.Error(err))
		}
		logger.Info("trace closed", zap.String("file", fl.Path()), zap.Int("events", written), zap.Int("failed", failed))
	}
	return log.NewMultiLogger(zapTrace, fl), closeFn, nil
}

func printEvents(tr *transport.Transport, out io.Writer) {
	tr.On(transport.EventOpen, func(transport.Event) {
		fmt.Fprintf(out, "[open] connected to %s\n", tr.Endpoint())
	})
	tr.On(transport.EventReconnect, func(transport.Event) {
		fmt.Fprintf(out, "[reconnect] connected to %s\n", tr.Endpoint())
	})
	tr.On(transport.EventMessage, func(e transport.Event) {
		if e.Message.Mode == socket.ModeText {
			fmt.Fprintf(out, "[message] %s\n", e.Message.Data)
			return
		}
		fmt.Fprintf(out, "[message] %d bytes: % x\n", len(e.Message.Data), e.Message.Data)
	})
	tr.On(transport.EventError, func(e transport.Event) {
		fmt.Fprintf(out, "[error] %v\n", e.Err)
	})
	tr.On(transport.EventClose, func(e transport.Event) {
		fmt.Fprintf(out, "[close] code=%d reason=%q\n", e.Code, e.Reason)
	})
}
