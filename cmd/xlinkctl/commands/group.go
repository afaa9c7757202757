package commands

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/response"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups of the gateway device",
	}
	cmd.AddCommand(groupCreateCmd(), groupAddCmd(), groupRemoveCmd(), groupShowCmd(), groupListCmd())
	return cmd
}

func printGroup(w io.Writer, g response.GroupDTO) error {
	if asJSON {
		return printJSON(w, g)
	}
	fmt.Fprintf(w, "%s %q owner=%s\n", g.ID, g.Name, g.Owner)
	for _, m := range g.Members {
		fmt.Fprintf(w, "  %s %s %s\n", m.DeviceID, m.Role, m.Status)
	}
	return nil
}

// group create <name> [member...]
func groupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [member...]",
		Short: "Create a group and invite members",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.GroupDTO
			req := request.CreateGroupRequest{Name: args[0], Members: args[1:]}
			if err := api.do(cmd.Context(), http.MethodPost, "/groups", req, &out); err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), out)
		},
	}
}

// group add <group> <device>
func groupAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <group> <device>",
		Short: "Add a member to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.GroupDTO
			path := "/groups/" + url.PathEscape(args[0]) + "/members"
			if err := api.do(cmd.Context(), http.MethodPost, path, request.AddMemberRequest{DeviceID: args[1]}, &out); err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), out)
		},
	}
}

// group remove <group> <device>
func groupRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <group> <device>",
		Short: "Remove a member from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.GroupDTO
			path := "/groups/" + url.PathEscape(args[0]) + "/members/" + url.PathEscape(args[1])
			if err := api.do(cmd.Context(), http.MethodDelete, path, nil, &out); err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), out)
		},
	}
}

// group show <group>
func groupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <group>",
		Short: "Show a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.GroupDTO
			if err := api.do(cmd.Context(), http.MethodGet, "/groups/"+url.PathEscape(args[0]), nil, &out); err != nil {
				return err
			}
			return printGroup(cmd.OutOrStdout(), out)
		},
	}
}

func groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out response.GroupsPayload
			if err := api.do(cmd.Context(), http.MethodGet, "/groups", nil, &out); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			for _, g := range out.Items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %q members=%d\n", g.ID, g.Name, len(g.Members))
			}
			return nil
		},
	}
}
