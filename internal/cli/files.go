package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "fs",
	Short: "Manage files in the sandbox workspace",
}

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List files in a sandbox directory",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		text, err := callTool("sandbox_list_files", map[string]interface{}{"path": path})
		if err != nil {
			fmt.Fprintf(os.Stderr, "ls failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(text)
	},
}

var putCmd = &cobra.Command{
	Use:   "cp [local-path] [remote-path]",
	Short: "Upload a local file into the sandbox workspace",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		localPath, remotePath := args[0], args[1]

		content, err := os.ReadFile(localPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read local file: %v\n", err)
			os.Exit(1)
		}

		text, err := callTool("sandbox_write_file", map[string]interface{}{
			"path":    remotePath,
			"content": string(content),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(text)
	},
}

var getCmd = &cobra.Command{
	Use:   "cat [path]",
	Short: "Print the contents of a file in the sandbox workspace",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, err := callTool("sandbox_read_file", map[string]interface{}{"path": args[0]})
		if err != nil {
			fmt.Fprintf(os.Stderr, "cat failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(text)
	},
}

func init() {
	filesCmd.AddCommand(lsCmd)
	filesCmd.AddCommand(putCmd)
	filesCmd.AddCommand(getCmd)
	RootCmd.AddCommand(filesCmd)
}
