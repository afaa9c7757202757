package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// DefaultServer is used when neither --server nor XLINK_SERVER is set.
const DefaultServer = "http://127.0.0.1:8080"

var (
	serverURL string
	asJSON    bool
	api       *apiClient
)

// NewRootCmd builds the command tree. Execute runs it against os.Args.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xlinkctl",
		Short:         "Control an xlinkd gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				serverURL = os.Getenv("XLINK_SERVER")
			}
			if serverURL == "" {
				serverURL = DefaultServer
			}
			api = newAPIClient(serverURL)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "", "gateway base URL (default $XLINK_SERVER or "+DefaultServer+")")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON responses")

	root.AddCommand(sendCmd(), broadcastCmd(), groupCmd(), sentCmd(), retryCmd(), healthCmd())
	root.AddCommand(identityCmd(), trustCmd(), untrustCmd(), auditCmd())
	return root
}

func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}

// printJSON writes v indented. It backs --json and the structured outputs.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
