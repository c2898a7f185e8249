package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listCmd lists the tools exposed by a running server's full MCP surface.
// The pool-based architecture has no notion of individually addressable,
// long-lived sandboxes to enumerate, so this is a list of capabilities
// rather than the teacher's list of live sandbox instances.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tools exposed by a running sandboxd server",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(apiBase + "/tools")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error connecting to %s: %v\nIs the server running?\n", apiBase, err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "server returned error: %s\n", resp.Status)
			os.Exit(1)
		}

		var result struct {
			Tools []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"tools"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			fmt.Fprintf(os.Stderr, "error parsing response: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TOOL\tDESCRIPTION")
		for _, tool := range result.Tools {
			fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
		}
		w.Flush()
	},
}

func init() {
	RootCmd.AddCommand(listCmd)
}
