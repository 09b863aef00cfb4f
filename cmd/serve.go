package cmd

import (
	"context"
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/google"
	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
	"github.com/teemow/gmailcli/internal/resources"
	"github.com/teemow/gmailcli/internal/server"
	"github.com/teemow/gmailcli/internal/tools/gmail_tools"
)

// Transports supported by serve.
const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

type serveOptions struct {
	transport   string
	httpAddr    string
	metricsAddr string
	readOnly    bool
	attachDir   string
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server that exposes Gmail as tools for
AI assistants.

Supports two transports:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP on a loopback address

Safety mode:
  With --read-only only the tools that never change the mailbox are
  registered. Sending, drafting, archiving and trashing need the flag off.

Attachments:
  Send and draft tools read attachment paths from this machine. Set
  --attachment-dir (or attachment_dir in the config) to confine them to one
  directory.

Tools act as the configured account unless a call names another one. Every
account needs a token from 'gmailcli auth login --account NAME'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "Loopback address of the streamable-http transport")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (streamable-http only, e.g. "+server.DefaultMetricsAddr+")")
	cmd.Flags().BoolVar(&opts.readOnly, "read-only", false, "Register only tools that do not modify the mailbox")
	cmd.Flags().StringVar(&opts.attachDir, "attachment-dir", "", "Only attach files from this directory (overrides attachment_dir)")

	return cmd
}

func (a *app) serve(cmd *cobra.Command, opts serveOptions) error {
	if opts.transport != transportStdio && opts.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.transport)
	}
	ctx := cmd.Context()
	if opts.attachDir != "" {
		a.cfg.AttachmentDir = opts.attachDir
	}

	sc, mcpSrv, err := a.newMCPServer(ctx, opts.readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			a.logger.Warn("failed to shut down server context", logging.Err(err))
		}
	}()

	a.logger.Info("starting MCP server",
		slog.String("transport", opts.transport),
		slog.Bool("read_only", opts.readOnly),
		slog.String("attachment_dir", a.cfg.AttachmentDir),
		logging.Account(a.cfg.Account))

	if opts.transport == transportStdio {
		stdio := mcpserver.NewStdioServer(mcpSrv)
		stdio.SetErrorLogger(logging.NewStdLogger(a.logger, slog.LevelError))
		if err := stdio.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
	return a.serveHTTP(ctx, mcpSrv, sc, opts)
}

// newMCPServer builds the server context and registers the Gmail tools and
// mailbox resources.
func (a *app) newMCPServer(ctx context.Context, readOnly bool) (*server.ServerContext, *mcpserver.MCPServer, error) {
	factory := func(ctx context.Context, account string) (*gmail.Client, error) {
		return newMailClient(ctx, a, account)
	}
	sc := server.NewServerContext(ctx, factory,
		server.WithDefaultAccount(a.cfg.Account),
		server.WithLimits(server.Limits{
			ReadLimit:   a.cfg.Gmail.ReadLimit,
			BatchLimit:  a.cfg.Gmail.BatchLimit,
			Concurrency: a.cfg.Gmail.Concurrency,
		}),
		server.WithMetrics(a.metrics()),
		server.WithAuditLogger(instrumentation.NewAuditLogger(a.logger, instrumentation.DefaultConfig().AuditLogging)),
		server.WithLogger(a.logger),
		server.WithAttachmentDir(a.cfg.AttachmentDir),
	)

	mcpSrv := mcpserver.NewMCPServer("gmailcli", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
	if err := gmail_tools.RegisterGmailTools(mcpSrv, sc, readOnly); err != nil {
		_ = sc.Shutdown()
		return nil, nil, fmt.Errorf("failed to register Gmail tools: %w", err)
	}
	if err := resources.RegisterMailboxResources(mcpSrv, sc); err != nil {
		_ = sc.Shutdown()
		return nil, nil, fmt.Errorf("failed to register resources: %w", err)
	}
	return sc, mcpSrv, nil
}

func (a *app) serveHTTP(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions) error {
	health := server.NewHealthChecker(sc)
	a.addReadinessChecks(health, sc.DefaultAccount())

	httpSrv, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Addr:   opts.httpAddr,
		Health: health,
		Logger: a.logger,
	})
	if err != nil {
		return err
	}
	if err := httpSrv.Listen(); err != nil {
		return err
	}

	var metricsSrv *server.MetricsServer
	if opts.metricsAddr != "" {
		metricsSrv, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: a.provider,
			Health:                  health,
			Logger:                  a.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if err := metricsSrv.Listen(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Serve)
	if metricsSrv != nil {
		g.Go(metricsSrv.Serve)
	}
	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			if mErr := metricsSrv.Shutdown(shutdownCtx); err == nil {
				err = mErr
			}
		}
		return err
	})
	health.SetReady(true)

	return g.Wait()
}

// addReadinessChecks makes /readyz fail while the OAuth client credentials
// cannot be loaded or account has no stored token.
func (a *app) addReadinessChecks(h *server.HealthChecker, account string) {
	h.AddCheck("credentials", func(context.Context) error {
		_, err := google.LoadConfig(a.cfg.CredentialsFile, google.Scopes(a.cfg.FullScope))
		return err
	})
	h.AddCheck("token", func(context.Context) error {
		if !a.tokenStore().Has(account) {
			return fmt.Errorf("%w for account %s", google.ErrNoToken, account)
		}
		return nil
	})
}
