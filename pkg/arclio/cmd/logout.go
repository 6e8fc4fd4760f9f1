package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			w := rt.Writer()
			store, err := rt.Store()
			if err != nil {
				rt.Logger().Debugw("Credential store unavailable", "error", err)
				_, _ = fmt.Fprintln(w, "Not logged in.")
				return nil
			}
			if !store.IsAuthenticated() {
				// Drop a malformed leftover record, if any.
				_ = store.Clear()
				_, _ = fmt.Fprintln(w, "Not logged in.")
				return nil
			}
			if err := store.Clear(); err != nil {
				rt.Logger().Warnw("Failed to clear credentials", "location", store.Location(), "error", err)
				_, _ = fmt.Fprintf(rt.ErrWriter(), "Warning: failed to clear credentials at %s: %v\n", store.Location(), err)
				return nil
			}
			_, _ = fmt.Fprintln(w, "Logged out successfully")
			return nil
		},
	}
}
