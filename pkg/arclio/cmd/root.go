package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arclio/arclio-login/pkg/arclio/config"
	"github.com/arclio/arclio-login/pkg/arclio/credentials"
	"github.com/arclio/arclio-login/pkg/arclio/kinde"
	"github.com/arclio/arclio-login/pkg/arclio/output"
	"github.com/arclio/arclio-login/pkg/system"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	ErrorWriter  io.Writer
	// DotEnvPath defaults to .env in the working directory.
	DotEnvPath string

	// CallbackPorts, OpenBrowser and HTTPClient replace the login defaults.
	CallbackPorts []int
	OpenBrowser   func(url string) error
	HTTPClient    *http.Client
}

type runtimeState struct {
	configPath   string
	dotEnvPath   string
	cfg          *config.Config
	outputFormat string
	tokenStorage string
	verbose      bool
	noBrowser    bool
	writer       io.Writer
	errWriter    io.Writer
	log          *zap.SugaredLogger

	callbackPorts []int
	openBrowser   func(url string) error
	httpClient    *http.Client
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
		ErrorWriter:  os.Stderr,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath:    cfg.ConfigPath,
		dotEnvPath:    cfg.DotEnvPath,
		writer:        cfg.OutputWriter,
		errWriter:     cfg.ErrorWriter,
		callbackPorts: cfg.CallbackPorts,
		openBrowser:   cfg.OpenBrowser,
		httpClient:    cfg.HTTPClient,
	}

	root := &cobra.Command{
		Use:   "arclio",
		Short: "Arclio CLI for Kinde OAuth authentication",
		Long: "Authenticate with Kinde to get tokens for Arclio services.\n\n" +
			"Configure the provider with KINDE_AUTH_DOMAIN, KINDE_CLIENT_ID and KINDE_CLIENT_SECRET\n" +
			"(environment, .env file or the kinde section of the config file).",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return silenceIfQuiet(cmd, rt.prepare(cmd))
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().StringVar(&rt.tokenStorage, "token-storage", "", "Token storage backend: file or keychain")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Log diagnostics to stderr")
	root.PersistentFlags().BoolVar(&rt.noBrowser, "no-browser", false, "Print the login URL instead of opening a browser")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewLoginCommand(),
		NewTokenCommand(),
		NewStatusCommand(),
		NewLogoutCommand(),
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

// prepare resolves env overrides, the logger and the config file for cmd.
func (rt *runtimeState) prepare(cmd *cobra.Command) error {
	if rt.writer == nil {
		rt.writer = os.Stdout
	}
	if rt.errWriter == nil {
		rt.errWriter = os.Stderr
	}
	if err := config.LoadDotEnv(rt.dotEnvPath); err != nil {
		if !tolerantOfConfig(cmd) {
			return err
		}
		warnIgnored(rt, ".env", err)
	}
	if rt.configPath == "" {
		rt.configPath = config.DefaultConfigPath()
	}
	if rt.outputFormat == "" {
		rt.outputFormat = os.Getenv(config.EnvOutput)
	}
	if rt.tokenStorage == "" {
		rt.tokenStorage = os.Getenv(config.EnvTokenStorage)
	}
	if !rt.verbose {
		rt.verbose = config.EnvBool(config.EnvVerbose)
	}
	if !rt.noBrowser {
		rt.noBrowser = config.EnvBool(config.EnvNoBrowser)
	}
	rt.log = system.NewCLILogger(rt.errWriter, rt.verbose)

	if cmd.Name() == "completion" || cmd.Name() == "version" || (cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config") {
		return nil
	}
	loaded, err := config.LoadOptional(rt.configPath)
	if err != nil {
		if !tolerantOfConfig(cmd) {
			return err
		}
		warnIgnored(rt, "config "+rt.configPath, err)
		def := config.DefaultConfig()
		loaded = &def
	}
	rt.cfg = loaded
	rt.log.Debugw("Configuration loaded", "path", rt.configPath, "tokenStorage", rt.TokenStorage())
	return nil
}

// status and logout report local state even with a broken config or .env file.
func tolerantOfConfig(cmd *cobra.Command) bool {
	return cmd.Name() == "status" || cmd.Name() == "logout"
}

func warnIgnored(rt *runtimeState, what string, err error) {
	_, _ = fmt.Fprintf(rt.ErrWriter(), "Warning: ignoring %s: %v\n", what, err)
}

// silenceIfQuiet keeps a failing --quiet command off stderr; the exit status still reports it.
func silenceIfQuiet(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return &silentError{err: err}
	}
	return err
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) ErrWriter() io.Writer {
	if rt.errWriter != nil {
		return rt.errWriter
	}
	return os.Stderr
}

func (rt *runtimeState) Logger() *zap.SugaredLogger {
	if rt.log != nil {
		return rt.log
	}
	return zap.NewNop().Sugar()
}

func (rt *runtimeState) Config() *config.Config {
	if rt.cfg == nil {
		def := config.DefaultConfig()
		rt.cfg = &def
	}
	return rt.cfg
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	if rt.outputFormat != "" {
		return output.ParseFormat(rt.outputFormat)
	}
	return output.ParseFormat(rt.Config().Settings.OutputFormat)
}

func (rt *runtimeState) TokenStorage() string {
	if rt.tokenStorage != "" {
		return rt.tokenStorage
	}
	if rt.cfg != nil && rt.cfg.Settings.TokenStorage != "" {
		return rt.cfg.Settings.TokenStorage
	}
	return credentials.StorageFile
}

// Store opens the credential store selected by --token-storage or the config file.
func (rt *runtimeState) Store() (*credentials.Store, error) {
	backend, err := credentials.NewBackend(rt.TokenStorage(), config.DefaultCredentialsPath())
	if err != nil {
		return nil, err
	}
	return credentials.NewStore(backend, credentials.WithLogger(rt.Logger())), nil
}

// KindeClient builds the provider client from the config file and environment.
// The client may be unconfigured; callers check IsConfigured.
func (rt *runtimeState) KindeClient() (*kinde.Client, config.KindeSettings, error) {
	settings, err := rt.Config().ResolveKinde()
	if err != nil {
		return nil, settings, fmt.Errorf("failed to resolve kinde settings: %w", err)
	}
	log := rt.Logger()
	fields := append([]interface{}{"domain", settings.Domain, "clientID", settings.ClientID},
		system.SecretFields("clientSecret", settings.ClientSecret)...)
	log.Debugw("Kinde client settings", fields...)

	client := kinde.NewClient(kinde.Config{
		Domain:       settings.Domain,
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		HTTPClient:   rt.httpClient,
		Logger:       log,
	})
	return client, settings, nil
}
