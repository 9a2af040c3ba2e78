// Command taskvault is the taskvault CLI client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/taskvault/internal/version"
	"github.com/GoCodeAlone/taskvault/update"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultServer = "http://localhost:9290"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "taskvault server URL")
		token     = flag.String("token", os.Getenv("TASKVAULT_TOKEN"), "JWT auth token")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "tasks":
		err = cli.cmdTasks("/api/tasks")
	case "pending":
		err = cli.cmdTasks("/api/tasks/pending")
	case "task":
		err = cli.cmdTask(rest)
	case "cache":
		err = cli.cmdCache(rest)
	case "update":
		err = cmdUpdate(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `taskvault — taskvault CLI

Usage:
  taskvault [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:9290)
  --token   <token>  JWT auth token (or $TASKVAULT_TOKEN)

Commands:
  version                  print version
  status                   show server status
  tasks                    list tasks
  pending                  list pending tasks
  task get <id>            show a task
  task create <title>      create a task
  task assign <id> <agent> assign a task to an agent
  task done <id>           mark a task completed
  task rm <id>             delete a task
  cache stats              show cache statistics
  cache clear              drop all cached query results
  update                   self-update to the latest release
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("taskvault %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// --- update ---

func cmdUpdate(_ []string) error {
	ctx := context.Background()
	u := update.New(version.Version)

	fmt.Printf("current version: %s\n", version.Version)
	fmt.Println("checking for updates...")

	rel, err := u.CheckForUpdate(ctx)
	if err != nil {
		return fmt.Errorf("check for update: %w", err)
	}
	if rel == nil {
		fmt.Println("already up to date")
		return nil
	}

	fmt.Printf("updating to %s...\n", rel.Version)
	if err := u.ApplyUpdate(ctx, rel); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	fmt.Printf("updated to %s\n", rel.Version)
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// do performs a request with optional JSON body and decodes the JSON
// response into v (may be nil).
func (c *Client) do(method, path string, body io.Reader, v any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) get(path string, v any) error { return c.do(http.MethodGet, path, nil, v) }

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	fmt.Printf("uptime:  %s\n", result["uptime"])
	return nil
}

// --- tasks ---

// taskRow mirrors the task JSON for table rendering.
type taskRow struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	AssignedAgentID *string `json:"assigned_agent_id"`
	Priority        int     `json:"priority"`
	CompletedAt     *string `json:"completed_at"`
}

var titleCaser = cases.Title(language.English)

// state derives a display state from the row's fields.
func (t taskRow) state() string {
	switch {
	case t.CompletedAt != nil:
		return titleCaser.String("completed")
	case t.AssignedAgentID != nil:
		return titleCaser.String("assigned")
	default:
		return titleCaser.String("pending")
	}
}

func (c *Client) cmdTasks(path string) error {
	var tasks []taskRow
	if err := c.get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-30s %-10s %-4s %-16s\n", "ID", "TITLE", "STATE", "PRI", "AGENT")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range tasks {
		agent := ""
		if t.AssignedAgentID != nil {
			agent = *t.AssignedAgentID
		}
		fmt.Printf("%-36s %-30s %-10s %-4d %-16s\n",
			t.ID, truncate(t.Title, 29), t.state(), t.Priority, agent)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: taskvault task <get|create|assign|done|rm> ...")
		os.Exit(1)
	}
	sub := args[0]
	switch sub {
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskvault task get <id>")
		}
		var result map[string]any
		if err := c.get("/api/tasks/"+args[1], &result); err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskvault task create <title>")
		}
		title := strings.Join(args[1:], " ")
		body := fmt.Sprintf(`{"title":%q,"description":"","priority":1}`, title)
		var result map[string]any
		if err := c.do(http.MethodPost, "/api/tasks", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %v\n", result["id"])
	case "assign":
		if len(args) < 3 {
			return fmt.Errorf("usage: taskvault task assign <id> <agent>")
		}
		body := fmt.Sprintf(`{"assigned_agent_id":%q,"assigned_at":%q}`,
			args[2], time.Now().UTC().Format(time.RFC3339))
		if err := c.do(http.MethodPut, "/api/tasks/"+args[1], strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s assigned to %s\n", args[1], args[2])
	case "done":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskvault task done <id>")
		}
		body := fmt.Sprintf(`{"completed_at":%q}`, time.Now().UTC().Format(time.RFC3339))
		if err := c.do(http.MethodPut, "/api/tasks/"+args[1], strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s completed\n", args[1])
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskvault task rm <id>")
		}
		if err := c.do(http.MethodDelete, "/api/tasks/"+args[1], nil, nil); err != nil {
			return err
		}
		fmt.Printf("task %s deleted\n", args[1])
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- cache subcommands ---

func (c *Client) cmdCache(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: taskvault cache <stats|clear>")
		os.Exit(1)
	}
	switch args[0] {
	case "stats":
		var stats map[string]any
		if err := c.get("/api/cache/stats", &stats); err != nil {
			return err
		}
		fmt.Printf("cache entries: %v / %v\n", stats["cache_size"], stats["max_cache_size"])
		fmt.Printf("cache TTL:     %v\n", stats["cache_ttl"])
		fmt.Printf("pool idle:     %v / %v\n", stats["pool_idle_size"], stats["max_pool_size"])
	case "clear":
		if err := c.do(http.MethodPost, "/api/cache/clear", nil, nil); err != nil {
			return err
		}
		fmt.Println("cache cleared")
	default:
		return fmt.Errorf("unknown cache subcommand: %s", args[0])
	}
	return nil
}

// --- helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
