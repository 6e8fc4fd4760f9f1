package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arclio/arclio-login/pkg/arclio/auth"
	"github.com/arclio/arclio-login/pkg/arclio/callback"
)

func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login with Kinde OAuth (opens browser)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			client, settings, err := rt.KindeClient()
			if err != nil {
				return err
			}
			if !client.IsConfigured() {
				return auth.ErrProviderNotConfigured
			}
			store, err := rt.Store()
			if err != nil {
				return err
			}
			timeout, err := rt.Config().CallbackTimeout()
			if err != nil {
				return err
			}
			ports := rt.callbackPorts
			if len(ports) == 0 {
				ports = callback.DefaultPorts
			}

			flow := &auth.LoginFlow{
				Provider:      client,
				Store:         store,
				Ports:         ports,
				Timeout:       timeout,
				VerifyIDToken: settings.VerifyIDToken,
				NoBrowser:     rt.noBrowser,
				OpenBrowser:   rt.openBrowser,
				Out:           rt.Writer(),
				Log:           rt.Logger(),
			}
			res, err := flow.Run(cmd.Context())
			if err != nil {
				return err
			}

			w := rt.Writer()
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintf(w, "Authenticated as %s\n", res.Identity.DisplayName())
			_, _ = fmt.Fprintf(w, "  Credentials saved to: %s\n", res.Location)
			return nil
		},
	}
}
