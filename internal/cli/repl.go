package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive debug session against a sandboxd server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		lang, _ := cmd.Flags().GetString("lang")

		u, err := url.Parse(apiBase)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid server URL %q: %v\n", apiBase, err)
			os.Exit(1)
		}
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
		u.Path = "/mcp/session"
		if lang != "" {
			u.RawQuery = "lang=" + lang
		}

		fmt.Printf("Connecting to %s...\n", u.String())

		c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dial failed: %v\n", err)
			os.Exit(1)
		}
		defer c.Close()

		fmt.Println("Connected. Each line you enter runs as one execute_code call. CTRL+C to exit.")

		done := make(chan struct{})
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)

		go func() {
			defer close(done)
			for {
				_, message, err := c.ReadMessage()
				if err != nil {
					fmt.Printf("\nconnection closed: %v\n", err)
					return
				}

				var event struct {
					Method string `json:"method"`
					Params struct {
						Chunk   string `json:"chunk"`
						Message string `json:"message"`
						Code    int    `json:"code"`
					} `json:"params"`
				}

				if err := json.Unmarshal(message, &event); err == nil {
					switch event.Method {
					case "stdout", "stderr":
						fmt.Print(event.Params.Chunk)
					case "error":
						fmt.Printf("\n[error] %s\n", event.Params.Message)
					case "exit":
						fmt.Printf("[exit %d]\n", event.Params.Code)
					}
				} else {
					fmt.Print(string(message))
				}
			}
		}()

		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if strings.TrimSpace(line) == "" {
					continue
				}
				if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
					fmt.Printf("\nwrite error: %v\n", err)
					return
				}
			}
		}()

		select {
		case <-done:
			return
		case <-interrupt:
			fmt.Println("interrupt received, closing...")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				return
			}
			select {
			case <-done:
			case <-time.After(1 * time.Second):
			}
			return
		}
	},
}

func init() {
	replCmd.Flags().StringP("lang", "l", "python", "Language for the session (python, bash, node)")
	RootCmd.AddCommand(replCmd)
}
