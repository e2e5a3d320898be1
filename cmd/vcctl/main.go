package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/lock"
	"github.com/matheus3301/vitalchat/internal/session"
	"github.com/matheus3301/vitalchat/internal/tui/client"
	"github.com/matheus3301/vitalchat/internal/wire"
	"google.golang.org/grpc/status"
)

const callTimeout = 40 * time.Second

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "sessions" {
		if len(args) < 2 || args[1] != "list" {
			fmt.Fprintln(os.Stderr, "usage: vcctl sessions list")
			os.Exit(1)
		}
		cmdSessionsList(*jsonFlag)
		return
	}

	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		fatal(fmt.Errorf("cannot connect to daemon for session %q: %w", sessionName, err))
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	out := printer{json: *jsonFlag}
	rest := args[1:]
	switch args[0] {
	case "status":
		err = cmdStatus(ctx, c, out)
	case "conversations", "ls":
		err = cmdConversations(ctx, c, out, strings.Join(rest, " "))
	case "history":
		err = cmdHistory(ctx, c, out, rest)
	case "send":
		err = cmdSend(ctx, c, out, rest)
	case "read":
		err = cmdRead(ctx, c, rest)
	case "diag":
		err = cmdDiag(c, out, rest)
	case "journal":
		err = cmdJournal(ctx, c, out, rest)
	case "login":
		err = cmdLogin(ctx, c, out, rest)
	case "logout":
		err = cmdLogout(ctx, c, out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: vcctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                        Show session status")
	fmt.Fprintln(os.Stderr, "  conversations [name]          List conversations, optionally filtered by name")
	fmt.Fprintln(os.Stderr, "  history <partner-id>          Print a conversation")
	fmt.Fprintln(os.Stderr, "  send <partner-id> <text...>   Send a message (leaves it unread)")
	fmt.Fprintln(os.Stderr, "  read <partner-id>             Mark a conversation read")
	fmt.Fprintln(os.Stderr, "  diag [--kind k] [--limit n]   List recorded diagnostics")
	fmt.Fprintln(os.Stderr, "  diag watch [--kind k]         Stream diagnostics as they happen")
	fmt.Fprintln(os.Stderr, "  journal [--partner id]        List recent sends")
	fmt.Fprintln(os.Stderr, "  login --token <t>|-           Store a bearer token (- reads stdin)")
	fmt.Fprintln(os.Stderr, "  logout                        Forget the stored token")
	fmt.Fprintln(os.Stderr, "  sessions list                 List known sessions")
}

func fatal(err error) {
	msg := err.Error()
	if s, ok := status.FromError(err); ok {
		msg = fmt.Sprintf("%s (%s)", s.Message(), s.Code())
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	os.Exit(1)
}

type printer struct {
	json bool
}

// emit prints v as JSON when --json is set, otherwise calls text.
func (p printer) emit(v any, text func()) {
	if !p.json {
		text()
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func table(fn func(w io.Writer)) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fn(w)
	_ = w.Flush()
}

func cmdStatus(ctx context.Context, c *client.Client, out printer) error {
	resp, err := c.Session.GetSessionStatus(ctx, &wire.GetSessionStatusRequest{})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		fmt.Printf("Session:   %s\n", resp.Session)
		fmt.Printf("Status:    %s\n", resp.Status)
		fmt.Printf("User:      %s\n", orDash(resp.UserID))
		fmt.Printf("Uptime:    %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
		fmt.Printf("Views:     %d\n", resp.OpenViews)
		fmt.Printf("Unread:    %d\n", resp.UnreadTotal)
		if !resp.LastPollAt.IsZero() {
			fmt.Printf("Last poll: %s\n", resp.LastPollAt.Local().Format(time.DateTime))
		}
		if resp.DroppedEvents > 0 {
			fmt.Printf("Dropped:   %d events\n", resp.DroppedEvents)
		}
	})
	return nil
}

func cmdConversations(ctx context.Context, c *client.Client, out printer, query string) error {
	resp, err := c.Chat.ListConversations(ctx, &wire.ListConversationsRequest{Query: query})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		if len(resp.Conversations) == 0 {
			fmt.Println("No conversations.")
			return
		}
		table(func(w io.Writer) {
			fmt.Fprintln(w, "PARTNER ID\tNAME\tUNREAD\tLAST MESSAGE")
			for _, conv := range resp.Conversations {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", conv.Partner.ID, conv.Partner.DisplayName(),
					conv.UnreadCount, truncate(chat.Preview(conv, resp.UserID), 60))
			}
		})
		fmt.Printf("\n%d unread in total\n", resp.UnreadTotal)
	})
	return nil
}

func cmdHistory(ctx context.Context, c *client.Client, out printer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: vcctl history <partner-id>")
	}
	resp, err := c.Chat.GetHistory(ctx, &wire.GetHistoryRequest{PartnerID: args[0]})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		now := time.Now()
		for _, row := range chat.Group(resp.Messages, time.Local, now) {
			if row.IsDivider() {
				fmt.Printf("\n-- %s --\n", row.Divider)
				continue
			}
			m := row.Message
			fmt.Printf("[%s] %s: %s\n", chat.ClockLabel(m.SentAt, time.Local), m.Sender.DisplayName(), m.Text)
		}
	})
	return nil
}

// cmdSend mounts a view, waits for it to load, sends, and unmounts. Going
// through a view gives the send the same journal and relay path as the TUI.
// The view does not mark the conversation read; use "read" for that.
func cmdSend(ctx context.Context, c *client.Client, out printer, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: vcctl send <partner-id> <text...>")
	}
	partnerID, text := args[0], strings.Join(args[1:], " ")
	if text == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = strings.TrimRight(string(b), "\n")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stream, err := c.Chat.OpenConversation(ctx, &wire.OpenConversationRequest{PartnerID: partnerID, SkipMarkRead: true})
	if err != nil {
		return err
	}
	var viewID string
	for viewID == "" {
		evt, err := stream.Recv()
		if err != nil {
			return err
		}
		switch evt.Kind {
		case chat.EventLoaded:
			viewID = evt.ViewID
		case chat.EventFailed:
			return fmt.Errorf("open conversation: %s", evt.Error)
		case chat.EventClosed:
			return errors.New("conversation closed before it loaded")
		}
	}

	resp, err := c.Chat.SendMessage(ctx, &wire.SendMessageRequest{ViewID: viewID, Text: text})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		fmt.Printf("sent %s at %s\n", resp.Message.ID, resp.Message.SentAt.Local().Format(time.DateTime))
	})
	return nil
}

func cmdRead(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: vcctl read <partner-id>")
	}
	_, err := c.Chat.MarkRead(ctx, &wire.MarkReadRequest{PartnerID: args[0]})
	return err
}

func cmdDiag(c *client.Client, out printer, args []string) error {
	watch := len(args) > 0 && args[0] == "watch"
	if watch {
		args = args[1:]
	}
	fs := flag.NewFlagSet("diag", flag.ContinueOnError)
	kind := fs.String("kind", "", "only this kind, e.g. diag.send_failed")
	limit := fs.Int("limit", 50, "maximum entries to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if watch {
		return watchDiagnostics(c, out, *kind)
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	resp, err := c.Session.ListDiagnostics(ctx, &wire.ListDiagnosticsRequest{Kind: *kind, Limit: *limit})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		if len(resp.Diagnostics) == 0 {
			fmt.Println("No diagnostics.")
			return
		}
		table(func(w io.Writer) {
			fmt.Fprintln(w, "WHEN\tKIND\tPARTNER\tOP\tERROR")
			for _, d := range resp.Diagnostics {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.OccurredAt.Local().Format(time.DateTime),
					d.Kind, orDash(d.PartnerID), d.Op, truncate(d.Error, 80))
			}
		})
	})
	return nil
}

// watchDiagnostics streams until interrupted.
func watchDiagnostics(c *client.Client, out printer, kind string) error {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "diag."
	}
	stream, err := c.Session.WatchDiagnostics(context.Background(), &wire.WatchDiagnosticsRequest{Kind: kind})
	if err != nil {
		return err
	}
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		out.emit(d, func() {
			fmt.Printf("%s  %-22s %-10s %s: %s\n", d.OccurredAt.Local().Format(time.TimeOnly),
				d.Kind, orDash(d.PartnerID), d.Op, d.Error)
		})
	}
}

func cmdJournal(ctx context.Context, c *client.Client, out printer, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	partner := fs.String("partner", "", "only sends to this partner id")
	limit := fs.Int("limit", 50, "maximum entries to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := c.Session.ListJournal(ctx, &wire.ListJournalRequest{PartnerID: *partner, Limit: *limit})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		if len(resp.Entries) == 0 {
			fmt.Println("No sends recorded.")
			return
		}
		table(func(w io.Writer) {
			fmt.Fprintln(w, "WHEN\tPARTNER\tSTATUS\tMESSAGE ID\tTEXT")
			for _, e := range resp.Entries {
				detail := e.ServerMsgID
				if e.Error != "" {
					detail = e.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime),
					e.PartnerID, e.Status, orDash(detail), truncate(e.Body, 40))
			}
		})
	})
	return nil
}

func cmdLogin(ctx context.Context, c *client.Client, out printer, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	token := fs.String("token", "", "bearer token, or - to read it from stdin")
	userID := fs.String("user-id", "", "user id (default: taken from the token)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "-" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*token = strings.TrimSpace(line)
	}
	if *token == "" {
		return errors.New("usage: vcctl login --token <token>|-")
	}
	resp, err := c.Session.SetCredentials(ctx, &wire.SetCredentialsRequest{Token: *token, UserID: *userID})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		fmt.Printf("Signed in as %s (%s)\n", orDash(resp.UserID), resp.Status)
	})
	return nil
}

func cmdLogout(ctx context.Context, c *client.Client, out printer) error {
	resp, err := c.Session.ClearCredentials(ctx, &wire.ClearCredentialsRequest{})
	if err != nil {
		return err
	}
	out.emit(resp, func() {
		fmt.Printf("Signed out (%s)\n", resp.Status)
	})
	return nil
}

type sessionRow struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Running bool      `json:"running"`
	PID     int       `json:"pid,omitempty"`
	Started time.Time `json:"started,omitzero"`
}

func cmdSessionsList(jsonOut bool) {
	names, err := session.List()
	if err != nil {
		fatal(err)
	}
	rows := make([]sessionRow, 0, len(names))
	for _, name := range names {
		dir := session.Dir(name)
		row := sessionRow{Name: name, Path: dir, Running: lock.IsHeld(dir)}
		if row.Running {
			if h, err := lock.ReadHolder(dir); err == nil {
				row.PID, row.Started = h.PID, h.Started
			}
		}
		rows = append(rows, row)
	}
	printer{json: jsonOut}.emit(rows, func() {
		if len(rows) == 0 {
			fmt.Println("No sessions found.")
			return
		}
		table(func(w io.Writer) {
			fmt.Fprintln(w, "NAME\tSTATE\tPID\tPATH")
			for _, r := range rows {
				state, pid := "stopped", "-"
				if r.Running {
					state = "running"
					if r.PID > 0 {
						pid = fmt.Sprint(r.PID)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, state, pid, r.Path)
			}
		})
	})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
