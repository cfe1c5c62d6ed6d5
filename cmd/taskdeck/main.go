// Command taskdeck is the taskdeck CLI client.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cwillim/taskdeck/internal/version"
	"github.com/cwillim/taskdeck/update"
)

const defaultServer = "http://localhost:8870"

func main() {
	serverURL := flag.String("server", defaultServer, "taskdeck server URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL: strings.TrimRight(*serverURL, "/"),
		// Chat streams can run long; no client-side timeout there.
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
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "projects":
		err = cli.cmdProjects(rest)
	case "inbox":
		err = cli.cmdInbox(rest)
	case "chat":
		err = cli.cmdChat(rest)
	case "upgrade":
		err = cmdUpgrade(rest)
	case "serve":
		fmt.Fprintln(os.Stderr, "use taskdeckd to run the server")
		os.Exit(1)
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
	fmt.Fprint(os.Stderr, `taskdeck — taskdeck CLI

Usage:
  taskdeck [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:8870)

Commands:
  version                       print version
  status                        show server status
  tasks [--status <col>]        list tasks, optionally one column
  task create <title>           capture a task into the backlog
  task show <id>                show one task as JSON
  task move <id> <col> [idx]    move a task to a column position
  task done <id>                mark a task DONE
  projects                      list projects
  inbox                         list unprocessed inbox items
  chat <message>                classify a message, streaming the reply
  upgrade                       self-update to the latest release
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("taskdeck %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// --- upgrade ---

func cmdUpgrade(_ []string) error {
	u := update.New(version.Version)
	rel, err := u.CheckForUpdate()
	if err != nil {
		return err
	}
	if rel == nil {
		fmt.Println("already up to date")
		return nil
	}
	fmt.Printf("updating to %s...\n", rel.Version)
	if err := u.ApplyUpdate(rel); err != nil {
		return err
	}
	fmt.Println("update complete")
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// send performs a request with a JSON body and decodes the JSON
// response into v (may be nil).
func (c *Client) send(method, path string, body io.Reader, v any) error {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
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

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:   %s\n", result["status"])
	fmt.Printf("version:  %s\n", result["version"])
	fmt.Printf("provider: %s\n", result["provider"])
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	status := fs.String("status", "", "filter by column (BACKLOG, TODAY, IN_PROGRESS, DONE)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := "/api/tasks"
	if *status != "" {
		path += "?status=" + *status
	}

	var tasks []map[string]any
	if err := c.get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-30s %-4s %-12s\n", "ID", "TITLE", "PRI", "STATUS")
	fmt.Println(strings.Repeat("-", 86))
	for _, t := range tasks {
		fmt.Printf("%-36s %-30s %-4s %-12s\n",
			strVal(t["id"]),
			truncate(strVal(t["title"]), 29),
			strVal(t["priority"]),
			strVal(t["status"]),
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: taskdeck task <create|show|move|done> ...")
		os.Exit(1)
	}
	sub := args[0]
	switch sub {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskdeck task create <title>")
		}
		title := strings.Join(args[1:], " ")
		body := fmt.Sprintf(`{"title":%q}`, title)
		var result map[string]any
		if err := c.send(http.MethodPost, "/api/tasks", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskdeck task show <id>")
		}
		var result map[string]any
		if err := c.get("/api/tasks/"+args[1], &result); err != nil {
			return err
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "move":
		if len(args) < 3 {
			return fmt.Errorf("usage: taskdeck task move <id> <column> [index]")
		}
		idx := "-1"
		if len(args) > 3 {
			idx = args[3]
		}
		body := fmt.Sprintf(`{"status":%q,"targetIndex":%s}`, args[2], idx)
		var result map[string]any
		if err := c.send(http.MethodPost, "/api/tasks/"+args[1]+"/move", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("task %s moved to %s\n", strVal(result["id"]), strVal(result["status"]))
	case "done":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskdeck task done <id>")
		}
		var result map[string]any
		if err := c.send(http.MethodPatch, "/api/tasks/"+args[1], strings.NewReader(`{"status":"DONE"}`), &result); err != nil {
			return err
		}
		fmt.Printf("task %s done\n", strVal(result["id"]))
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- projects ---

func (c *Client) cmdProjects(_ []string) error {
	var projects []map[string]any
	if err := c.get("/api/projects", &projects); err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("no projects")
		return nil
	}
	fmt.Printf("%-36s %-24s %-10s\n", "ID", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 72))
	for _, p := range projects {
		fmt.Printf("%-36s %-24s %-10s\n",
			strVal(p["id"]),
			truncate(strVal(p["name"]), 23),
			strVal(p["status"]),
		)
	}
	return nil
}

// --- inbox ---

func (c *Client) cmdInbox(_ []string) error {
	var items []map[string]any
	if err := c.get("/api/inbox?processed=false", &items); err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("inbox empty")
		return nil
	}
	for _, it := range items {
		fmt.Printf("%s  %s\n", strVal(it["id"]), truncate(strVal(it["rawInput"]), 60))
	}
	return nil
}

// --- chat ---

// cmdChat posts one message and prints the server-sent event stream:
// text deltas as they arrive, then a note per task the turn touched.
func (c *Client) cmdChat(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: taskdeck chat <message>")
	}
	message := strings.Join(args, " ")
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/chat", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	// Streaming request: rely on the server closing the stream.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var ev struct {
			Type  string         `json:"type"`
			Text  string         `json:"text"`
			Task  map[string]any `json:"task"`
			Error string         `json:"error"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "text_delta":
			fmt.Print(ev.Text)
		case "task_created":
			fmt.Printf("\n[task created: %s]\n", strVal(ev.Task["title"]))
		case "task_updated":
			fmt.Printf("\n[task updated: %s]\n", strVal(ev.Task["title"]))
		case "error":
			fmt.Fprintf(os.Stderr, "\nstream error: %s\n", ev.Error)
		}
	}
	fmt.Println()
	return scanner.Err()
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
