package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcResult struct {
	IsError bool `json:"isError"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// callTool invokes name over the full MCP surface and returns the
// concatenated text content, failing the test on transport or protocol errors.
func callTool(t *testing.T, name string, args map[string]interface{}) (string, bool) {
	t.Helper()

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
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, testServer.URL+"/mcp", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed struct {
		Result rpcResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &parsed), "response body: %s", string(raw))

	var text string
	for _, c := range parsed.Result.Content {
		text += c.Text
	}
	return text, parsed.Result.IsError
}
