package commands

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// identity: print the gateway key for peers to trust.
func identityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Show the gateway public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.IdentityPayload
			if err := api.do(cmd.Context(), http.MethodGet, "/identity", nil, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", out.DeviceID, out.PublicKey, out.Fingerprint)
			return nil
		},
	}
}

func trustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trust <device> <key>",
		Short: "Seal text to a device with its public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/peers/" + url.PathEscape(args[0]) + "/key"
			if err := api.do(cmd.Context(), http.MethodPut, path, request.TrustPeerRequest{Key: args[1]}, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "trusted", args[0])
			return nil
		},
	}
}

func untrustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrust <device>",
		Short: "Forget the session with a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/peers/" + url.PathEscape(args[0]) + "/key"
			if err := api.do(cmd.Context(), http.MethodDelete, path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "forgot", args[0])
			return nil
		},
	}
}

// audit: export the gateway audit trail, newest first.
func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Export the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.AuditPayload
			path := fmt.Sprintf("/audit?limit=%d", limit)
			if err := api.do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for _, e := range out.Items {
				fmt.Fprintf(w, "%s %s %s\n", e.Time.Format(time.RFC3339), e.Action, e.Detail)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "entries to return")
	return cmd
}
