package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arclio/arclio-login/pkg/arclio/config"
	"github.com/arclio/arclio-login/pkg/arclio/output"
)

const redacted = "REDACTED"

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage arclio configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		domain          string
		clientID        string
		clientSecretEnv string
		tokenStorage    string
		verifyIDToken   bool
		force           bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an arclio config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPath
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			cfg.Kinde = config.Kinde{
				Domain:          config.NormalizeDomain(domain),
				ClientID:        clientID,
				ClientSecretEnv: clientSecretEnv,
				VerifyIDToken:   verifyIDToken,
			}
			if tokenStorage != "" {
				cfg.Settings.TokenStorage = tokenStorage
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Kinde business domain, e.g. acme.kinde.com")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Kinde application client ID")
	cmd.Flags().StringVar(&clientSecretEnv, "client-secret-env", "", "Environment variable holding the client secret")
	cmd.Flags().StringVar(&tokenStorage, "storage", "", "Token storage backend: file or keychain")
	cmd.Flags().BoolVar(&verifyIDToken, "verify-id-token", false, "Verify the id_token signature on login")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg := *rt.Config()
			if cfg.Kinde.ClientSecret != "" {
				cfg.Kinde.ClientSecret = redacted
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			if format == output.FormatText {
				format = output.FormatYAML
			}
			return output.WriteObject(rt.Writer(), format, cfg)
		},
	}
}
