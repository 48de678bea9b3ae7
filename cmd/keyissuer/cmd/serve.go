package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gobeyondidentity/keyissuer/internal/api"
	"github.com/gobeyondidentity/keyissuer/internal/config"
	"github.com/gobeyondidentity/keyissuer/internal/version"
	"github.com/gobeyondidentity/keyissuer/pkg/audit"
	"github.com/gobeyondidentity/keyissuer/pkg/clierror"
	"github.com/gobeyondidentity/keyissuer/pkg/credential"
	"github.com/gobeyondidentity/keyissuer/pkg/metrics"
	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
	"github.com/gobeyondidentity/keyissuer/pkg/store"
	"github.com/gobeyondidentity/keyissuer/pkg/telemetry"
)

// shutdownTimeout bounds how long in-flight requests may run after a signal.
const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the credential issuing HTTP service",
		Long: `Run the HTTP service that issues credentials and records confirmations.

Configuration is read from defaults, then --config, then KEYISSUER_*
environment variables; flags given here override all of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := applyServeFlags(cmd.Flags(), &cfg); err != nil {
				return clierror.ConfigInvalid(err)
			}
			if err := cfg.Validate(); err != nil {
				return clierror.ConfigInvalid(err)
			}

			logger, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return clierror.ConfigInvalid(err)
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().String("listen", "", "HTTP listen address (default from config, :8080)")
	cmd.Flags().Duration("timeout", 0, "Confirmation window for issued credentials (default 5s)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "", "Log format: text, json")
	return cmd
}

// applyServeFlags copies explicitly set serve flags over cfg.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	strs := map[string]*string{
		"listen":     &cfg.ListenAddr,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if flags.Changed("timeout") {
		d, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.ConfirmTimeout = d
	}
	return nil
}

func newLogger(w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// runServe opens the sinks, binds the listener and serves until ctx is done.
func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		svc.close()
		return clierror.ListenFailed(cfg.ListenAddr, err)
	}
	return svc.run(ctx, ln)
}

// service is the wired set of components behind `keyissuer serve`.
type service struct {
	cfg     config.Config
	logger  *slog.Logger
	issuer  *api.Issuer
	server  *api.Server
	metrics *metrics.Metrics
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

func newService(cfg config.Config, logger *slog.Logger) (*service, error) {
	svc := &service{cfg: cfg, logger: logger}

	file, err := statuslog.OpenFile(cfg.StatusLogPath)
	if err != nil {
		return nil, clierror.SinkUnavailable("status log", err)
	}
	svc.closers = append(svc.closers, namedCloser{"status log", file})

	statusOpts := []statuslog.Option{statuslog.WithLogger(logger)}

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			svc.close()
			return nil, clierror.SinkUnavailable("database", err)
		}
		svc.closers = append(svc.closers, namedCloser{"database", db})
		statusOpts = append(statusOpts, statuslog.WithMirror(db))
		logger.Info("mirroring status records to database", "path", cfg.DBPath)
	}

	if cfg.Syslog.Enabled {
		w, err := audit.NewSyslogWriter(audit.SyslogConfig{SocketPath: cfg.Syslog.SocketPath})
		if err != nil {
			logger.Warn("syslog unavailable, continuing without syslog mirror", "error", err)
		} else {
			svc.closers = append(svc.closers, namedCloser{"syslog", w})
			statusOpts = append(statusOpts, statuslog.WithMirror(w))
		}
	}

	svc.metrics = metrics.New(func() int { return svc.issuer.Registry().Len() })
	svc.issuer = api.NewIssuer(
		credential.New(credential.WithPrefix(cfg.CredentialPrefix)),
		statuslog.New(file, statusOpts...),
		api.IssuerConfig{
			Timeout:  cfg.ConfirmTimeout,
			Observer: svc.metrics,
			Logger:   logger,
		},
	)
	svc.server = api.NewServer(svc.issuer, telemetry.NewStore(cfg.StatsPath, logger), api.ServerConfig{
		Metrics:   svc.metrics,
		StaticDir: cfg.StaticDir,
		Logger:    logger,
	})
	return svc, nil
}

// run serves on ln until ctx is done or a listener fails, then drains
// requests, records still-pending credentials and closes the sinks.
func (s *service) run(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.server.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 2)
	go func() {
		if s.cfg.TLS.Enabled() {
			errCh <- httpServer.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
			return
		}
		errCh <- httpServer.Serve(ln)
	}()
	s.logger.Info("keyissuer started",
		"version", version.String(),
		"addr", ln.Addr().String(),
		"tls", s.cfg.TLS.Enabled(),
		"confirm_timeout", s.issuer.Timeout(),
		"status_log", s.cfg.StatusLogPath,
	)

	var redirect *http.Server
	if s.cfg.RedirectAddr != "" {
		redirect = &http.Server{
			Addr:              s.cfg.RedirectAddr,
			Handler:           api.RedirectHandler(s.cfg.PublicHost),
			ReadHeaderTimeout: s.cfg.ReadTimeout,
		}
		go func() { errCh <- redirect.ListenAndServe() }()
		s.logger.Info("redirecting plain HTTP", "addr", s.cfg.RedirectAddr, "host", s.cfg.PublicHost)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			s.logger.Error("listener failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if redirect != nil {
		if err := redirect.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("redirect shutdown incomplete", "error", err)
		}
	}

	s.issuer.Shutdown(shutdownCtx)
	s.close()
	s.logger.Info("keyissuer stopped")

	if serveErr != nil {
		return clierror.ListenFailed(ln.Addr().String(), serveErr)
	}
	return nil
}

func (s *service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.c.Close(); err != nil {
			s.logger.Warn(fmt.Sprintf("failed to close %s", c.name), "error", err)
		}
	}
	s.closers = nil
}
