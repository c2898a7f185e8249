package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	language        string
	execTimeoutSecs int
)

var runCmd = &cobra.Command{
	Use:   "exec [code]",
	Short: "Run a snippet of code against a running sandboxd server's execute_code tool",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		toolArgs := map[string]interface{}{
			"code":     args[0],
			"language": language,
		}
		if execTimeoutSecs > 0 {
			toolArgs["timeout"] = execTimeoutSecs
		}

		text, err := callTool("execute_code", toolArgs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "exec failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(text)
	},
}

func init() {
	runCmd.Flags().StringVarP(&language, "language", "l", "python", "Language: python, bash, sh, node, javascript")
	runCmd.Flags().IntVar(&execTimeoutSecs, "timeout", 0, "Execution timeout in seconds (0 uses the server default)")
	RootCmd.AddCommand(runCmd)
}

// callTool invokes an MCP tool over the stateless streamable HTTP surface
// and returns its text content, or an error built from an IsError result.
func callTool(name string, args map[string]interface{}) (string, error) {
	rpcReq := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest(http.MethodPost, apiBase+"/mcp", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w (is the server running?)", apiBase, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var rpcResp struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return "", fmt.Errorf("unexpected response from server: %s", string(raw))
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("%s", rpcResp.Error.Message)
	}

	var text string
	for _, c := range rpcResp.Result.Content {
		text += c.Text
	}
	if rpcResp.Result.IsError {
		return "", fmt.Errorf("%s", text)
	}
	return text, nil
}
