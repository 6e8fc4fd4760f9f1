package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arclio/arclio-login/pkg/arclio/auth"
)

// silentError fails the command without printing a message.
type silentError struct {
	err error
}

func (e *silentError) Error() string { return e.err.Error() }

func (e *silentError) Unwrap() error { return e.err }

// IsSilent reports whether err should be reported by exit status only.
func IsSilent(err error) bool {
	var s *silentError
	return errors.As(err, &s)
}

func NewTokenCommand() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Output current access token (refreshes if expired)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			token, email, err := validToken(cmd, rt)
			if err != nil {
				if quiet {
					return &silentError{err: err}
				}
				return err
			}

			w := rt.Writer()
			if quiet {
				_, _ = fmt.Fprint(w, token)
				return nil
			}
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, "Access Token:")
			_, _ = fmt.Fprintln(w, token)
			if email != "" {
				_, _ = fmt.Fprintln(w)
				_, _ = fmt.Fprintf(w, "  User: %s\n", email)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Output only the token, without a trailing newline (for scripting)")
	return cmd
}

func validToken(cmd *cobra.Command, rt *runtimeState) (string, string, error) {
	store, err := rt.Store()
	if err != nil {
		return "", "", err
	}
	log := rt.Logger()

	var provider auth.Refresher
	client, _, err := rt.KindeClient()
	if err != nil {
		// A valid stored token does not need the provider.
		log.Debugw("Kinde client unavailable", "error", err)
	} else {
		provider = client
	}

	mgr := &auth.TokenManager{Store: store, Provider: provider, Log: log}
	token, err := mgr.GetValidToken(cmd.Context())
	if err != nil {
		return "", "", err
	}
	creds, _ := store.Load()
	return token, creds.UserEmail, nil
}
