package commands

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

// send <device> <text>: direct text to one device.
func sendCmd() *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "send <device> <text>",
		Short: "Send text to a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.SendPayload
			path := "/devices/" + url.PathEscape(args[0]) + "/messages"
			req := request.SendTextRequest{Text: args[1], Priority: priority}
			if err := api.do(cmd.Context(), http.MethodPost, path, req, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.MessageID)
			return nil
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "normal", "low, normal, high or critical")
	return cmd
}

// broadcast <group> <text>: text to every other member of a group.
func broadcastCmd() *cobra.Command {
	var priority, strategy string
	cmd := &cobra.Command{
		Use:   "broadcast <group> <text>",
		Short: "Broadcast text to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.BroadcastDTO
			path := "/groups/" + url.PathEscape(args[0]) + "/broadcast"
			req := request.SendTextRequest{Text: args[1], Priority: priority, Strategy: strategy}
			if err := api.do(cmd.Context(), http.MethodPost, path, req, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s delivered %d/%d\n", out.MessageID, len(out.Delivered), out.Total)
			for _, id := range out.Failed {
				fmt.Fprintf(w, "  failed %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "normal", "low, normal, high or critical")
	cmd.Flags().StringVar(&strategy, "strategy", "direct", "direct, fan_out or power_efficient")
	return cmd
}

// sent: page through delivered messages.
func sentCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "sent",
		Short: "List delivered messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.SentMessagesPayload
			path := fmt.Sprintf("/messages/sent?page=%d&limit=%d", page, limit)
			if err := api.do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for _, m := range out.Items {
				fmt.Fprintf(w, "%s -> %s [%s] %q\n", m.ID, m.To, m.Priority, m.Content)
			}
			fmt.Fprintf(w, "page %d, %d of %d\n", out.Page, len(out.Items), out.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size (max 100)")
	return cmd
}

// retry start|stop: toggle background redelivery.
func retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "retry <start|stop>",
		Short:     "Start or stop redelivery of pending messages",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"start", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.SchedulerControlPayload
			req := request.SchedulerRequest{Action: args[0]}
			if err := api.do(cmd.Context(), http.MethodPost, "/scheduler", req, &out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.HealthPayload
			if err := api.do(cmd.Context(), http.MethodGet, "/health", nil, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s device=%s retry=%t\n", out.Status, out.DeviceID, out.RetryRunning)
			return nil
		},
	}
}
