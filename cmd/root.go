package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailcli/internal/config"
	"github.com/teemow/gmailcli/internal/gmail"
	"github.com/teemow/gmailcli/internal/google"
	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the version command
func SetVersion(v string) {
	version = v
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configFile  string
	envFile     string
	account     string
	credentials string
	tokenDir    string
	logLevel    string
	logFormat   string
	fullScope   bool
}

// app is the state a command runs with. It is built by the root command's
// PersistentPreRunE.
type app struct {
	opts     globalOptions
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
}

// newMailClient builds the Gmail client for account. Tests replace it to
// point commands at a fake API.
var newMailClient = func(ctx context.Context, a *app, account string) (*gmail.Client, error) {
	auth, err := a.authenticator()
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.HTTPClient(ctx, account)
	if err != nil {
		if errors.Is(err, google.ErrNoToken) {
			return nil, fmt.Errorf("%w for account %s: run 'gmailcli auth login --account %s'", err, account, account)
		}
		return nil, err
	}
	return gmail.NewClient(ctx, httpClient, a.clientOptions(account)...)
}

// Execute is the main entry point for the CLI application
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the command line args and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.shutdown()
	if err != nil {
		reportError(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmailcli",
		Short: "Read, draft and send Gmail from the command line",
		Long: `gmailcli reads, drafts and sends Gmail messages and manages labels, threads,
attachments and filters. Every command prints its result as JSON on stdout;
logs go to stderr.

It can also run as an MCP (Model Context Protocol) server for AI assistants,
see 'gmailcli serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.opts.configFile, "config", "", "Config file (default: "+config.DefaultPath()+")")
	flags.StringVar(&a.opts.envFile, "env-file", ".env", "dotenv file with GMAILCLI_* variables, ignored when missing")
	flags.StringVar(&a.opts.account, "account", config.DefaultAccount, "Google account name to use")
	flags.StringVar(&a.opts.credentials, "credentials", "", "OAuth client credentials file from the Google Cloud Console")
	flags.StringVar(&a.opts.tokenDir, "token-dir", "", "Directory OAuth tokens are stored in")
	flags.StringVar(&a.opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&a.opts.logFormat, "log-format", logging.FormatText, "Log format: text or json")
	flags.BoolVar(&a.opts.fullScope, "full-scope", false, "Request the full mailbox scope, needed for permanent delete")

	cmd.AddCommand(
		newReadCmd(a),
		newGetCmd(a),
		newDraftCmd(a),
		newSendCmd(a),
		newListDraftsCmd(a),
		newDeleteDraftCmd(a),
		newDeleteCmd(a),
		newModifyLabelsCmd(a),
		newListLabelsCmd(a),
		newCreateLabelCmd(a),
		newDeleteLabelCmd(a),
		newGetThreadCmd(a),
		newArchiveThreadCmd(a),
		newTrashThreadCmd(a),
		newListAttachmentsCmd(a),
		newDownloadAttachmentCmd(a),
		newListFiltersCmd(a),
		newGetFilterCmd(a),
		newCreateFilterCmd(a),
		newDeleteFilterCmd(a),
		newAuthCmd(a),
		newServeCmd(a),
		newGenerateDocsCmd(a),
		newVersionCmd(),
	)
	cmd.AddCommand(newMessageActionCmds(a)...)
	cmd.AddCommand(newBatchCmds(a)...)

	return cmd
}

// setup loads the configuration, applies the flags that were set and
// starts logging and instrumentation.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.configFile, a.opts.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("account") {
		cfg.Account = a.opts.account
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile = a.opts.credentials
	}
	if flags.Changed("token-dir") {
		cfg.TokenDir = a.opts.tokenDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.opts.logFormat
	}
	if flags.Changed("full-scope") {
		cfg.FullScope = a.opts.fullScope
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	a.logger = logging.New(cmd.ErrOrStderr(), level, cfg.Logging.Format)
	slog.SetDefault(a.logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if cfg.Metrics.Textfile != "" {
		instrConfig.MetricsTextfile = cfg.Metrics.Textfile
	}
	a.provider, err = instrumentation.NewProvider(cmd.Context(), instrConfig,
		instrumentation.WithDiagnosticsWriter(cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return nil
}

// shutdown flushes telemetry. It is a no-op when setup did not run.
func (a *app) shutdown() {
	if a.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down instrumentation", logging.Err(err))
	}
}

func (a *app) metrics() *instrumentation.Metrics {
	if a.provider == nil {
		return nil
	}
	return a.provider.Metrics()
}

func (a *app) tokenStore() *google.TokenStore {
	return google.NewTokenStore(a.cfg.TokenDir)
}

func (a *app) authenticator() (*google.Authenticator, error) {
	conf, err := google.LoadConfig(a.cfg.CredentialsFile, google.Scopes(a.cfg.FullScope))
	if err != nil {
		return nil, err
	}
	return google.NewAuthenticator(conf, a.tokenStore(),
		google.WithMetrics(a.metrics()),
		google.WithLogger(a.logger),
	), nil
}

func (a *app) clientOptions(account string) []gmail.Option {
	return []gmail.Option{
		gmail.WithAccount(account),
		gmail.WithRateLimit(a.cfg.Gmail.RequestsPerSecond, a.cfg.Gmail.Burst),
		gmail.WithConcurrency(a.cfg.Gmail.Concurrency),
		gmail.WithMaxTries(uint(a.cfg.Gmail.MaxRetries)),
		gmail.WithMetrics(a.metrics()),
		gmail.WithLogger(a.logger),
	}
}

// instrument runs fn inside a command span and records the command metric.
func (a *app) instrument(cmd *cobra.Command, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := instrumentation.StartCommandSpan(cmd.Context(), name)

	err := fn(ctx)

	instrumentation.EndSpan(span, err)
	status := instrumentation.StatusOf(err)
	a.metrics().RecordCommand(ctx, name, status, a.cfg.Account, time.Since(start))

	logger := logging.WithAccount(logging.WithCommand(a.logger, name), a.cfg.Account)
	if err != nil {
		logger.Debug("command failed", logging.Status(status), logging.Err(err))
	} else {
		logger.Debug("command finished", logging.Status(status), slog.Duration("duration", time.Since(start)))
	}
	return err
}

// mailCommand is the body of a command that talks to Gmail. The returned
// value is printed as JSON.
type mailCommand func(ctx context.Context, client *gmail.Client) (any, error)

// runMail returns a RunE that connects to Gmail as the configured account
// and prints the result of fn.
func (a *app) runMail(name string, fn mailCommand) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return a.instrument(cmd, name, func(ctx context.Context) error {
			client, err := newMailClient(ctx, a, a.cfg.Account)
			if err != nil {
				return err
			}
			out, err := fn(ctx, client)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		})
	}
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// hintError is printed as a JSON object on stderr.
type hintError struct {
	Message string `json:"error"`
	Hint    string `json:"hint"`
	err     error
}

func (e *hintError) Error() string { return e.Message }

func (e *hintError) Unwrap() error { return e.err }

func reportError(w io.Writer, err error) {
	var he *hintError
	if errors.As(err, &he) {
		_ = json.NewEncoder(w).Encode(he)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
