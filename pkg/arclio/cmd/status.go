package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arclio/arclio-login/pkg/arclio/output"
)

type statusReport struct {
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	User          string `json:"user,omitempty" yaml:"user,omitempty"`
	UserID        string `json:"userId,omitempty" yaml:"userId,omitempty"`
	TokenValid    bool   `json:"tokenValid" yaml:"tokenValid"`
	ExpiresAt     string `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	Storage       string `json:"storage" yaml:"storage"`
	Location      string `json:"location,omitempty" yaml:"location,omitempty"`
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}

			report := statusReport{Storage: rt.TokenStorage()}
			store, err := rt.Store()
			if err != nil {
				rt.Logger().Debugw("Credential store unavailable", "error", err)
			} else {
				report.Location = store.Location()
				if creds, ok := store.Load(); ok {
					report.Authenticated = true
					report.User = creds.UserEmail
					report.UserID = creds.UserID
					report.TokenValid = !creds.Expired(time.Now())
					if !creds.ExpiryTime().IsZero() {
						report.ExpiresAt = output.FormatTime(creds.ExpiryTime())
					}
				}
			}

			if format != output.FormatText {
				return output.WriteObject(rt.Writer(), format, report)
			}
			writeStatusText(rt, report)
			return nil
		},
	}
}

func writeStatusText(rt *runtimeState, r statusReport) {
	w := rt.Writer()
	if !r.Authenticated {
		_, _ = fmt.Fprintln(w, "Status: Not authenticated")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Run: arclio login")
		return
	}
	token := "Valid"
	if !r.TokenValid {
		token = "Expired (will refresh)"
	}
	_, _ = fmt.Fprintln(w, "Status: Authenticated")
	output.WriteFields(w,
		output.Field{Label: "User", Value: r.User},
		output.Field{Label: "ID", Value: r.UserID},
		output.Field{Label: "Token", Value: token},
		output.Field{Label: "Expires", Value: r.ExpiresAt},
		output.Field{Label: "Config", Value: r.Location},
	)
}
