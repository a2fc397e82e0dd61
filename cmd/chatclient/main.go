// Command chatclient talks to a running support backend from the terminal.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	pkgws "storefront-support/backend/pkg/ws"

	"github.com/gorilla/websocket"
)

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
	Error     string `json:"error,omitempty"`
}

type historyResponse struct {
	Messages []struct {
		Sender    string    `json:"sender"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"messages"`
	SessionID string `json:"sessionId"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:3001", "Backend base URL")
	start := flag.Bool("start", false, "Start a new conversation and print the welcome message")
	message := flag.String("message", "", "Send one message and print the reply")
	session := flag.String("session", "", "Session ID to continue")
	history := flag.String("history", "", "Print the transcript of a session")
	interactive := flag.Bool("chat", false, "Chat interactively over WebSocket")
	flag.Parse()

	client := newAPIClient(*baseURL)
	var err error
	switch {
	case *start:
		var resp *chatResponse
		if resp, err = client.start(); err == nil {
			printReply(os.Stdout, resp)
		}
	case *message != "":
		var resp *chatResponse
		if resp, err = client.send(*message, *session); err == nil {
			printReply(os.Stdout, resp)
		}
	case *history != "":
		var resp *historyResponse
		if resp, err = client.history(*history); err == nil {
			for _, m := range resp.Messages {
				fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), m.Sender, m.Content)
			}
		}
	case *interactive:
		err = runInteractive(client.wsURL(*session), os.Stdin, os.Stdout)
	default:
		fmt.Println("Chat client usage:")
		fmt.Println("  -start                  Start a new conversation")
		fmt.Println("  -message TEXT [-session ID]  Send one message")
		fmt.Println("  -history ID             Print a transcript")
		fmt.Println("  -chat [-session ID]     Chat interactively over WebSocket")
		fmt.Println("  -url URL                Backend base URL")
		return
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// the server waits on the model before answering
		http: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *apiClient) start() (*chatResponse, error) {
	var resp chatResponse
	return &resp, c.do(http.MethodPost, "/chat/start", nil, &resp)
}

func (c *apiClient) send(message, sessionID string) (*chatResponse, error) {
	body := map[string]string{"message": message}
	if sessionID != "" {
		body["sessionId"] = sessionID
	}
	var resp chatResponse
	return &resp, c.do(http.MethodPost, "/chat/message", body, &resp)
}

func (c *apiClient) history(sessionID string) (*historyResponse, error) {
	var resp historyResponse
	return &resp, c.do(http.MethodGet, "/chat/history/"+url.PathEscape(sessionID), nil, &resp)
}

func (c *apiClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error response: %s, status: %d", strings.TrimSpace(string(bodyBytes)), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func (c *apiClient) wsURL(sessionID string) string {
	u := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/chat/ws"
	if sessionID != "" {
		u += "?sessionId=" + url.QueryEscape(sessionID)
	}
	return u
}

// runInteractive sends each input line as a message and prints the replies
// until input ends. Without a session it starts one first.
func runInteractive(wsURL string, in io.Reader, out io.Writer) error {
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("error connecting: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	exchange := func(frame pkgws.InboundFrame) error {
		if err := conn.WriteJSON(frame); err != nil {
			return fmt.Errorf("error sending frame: %w", err)
		}
		var reply pkgws.OutboundFrame
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("error reading frame: %w", err)
		}
		if reply.Type == pkgws.TypeError {
			fmt.Fprintf(out, "! %s (%s)\n", reply.Error, reply.Code)
			return nil
		}
		printReply(out, &chatResponse{Reply: reply.Reply, SessionID: reply.SessionID, Error: reply.Error})
		return nil
	}

	if !strings.Contains(wsURL, "sessionId=") {
		if err := exchange(pkgws.InboundFrame{Type: pkgws.TypeStart}); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := exchange(pkgws.Message(line, "")); err != nil {
			return err
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return scanner.Err()
}

func printReply(out io.Writer, resp *chatResponse) {
	fmt.Fprintf(out, "%s\n", resp.Reply)
	if resp.Error != "" {
		fmt.Fprintf(out, "  (error: %s)\n", resp.Error)
	}
	fmt.Fprintf(out, "  session: %s\n", resp.SessionID)
}
