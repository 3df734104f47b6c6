package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/stockdash/pkg/dashboard"
	"github.com/greg-hellings/stockdash/pkg/session"
)

const shellHelp = `Commands:
  list                         show the dashboard (respects the current search)
  search <text>                filter items by name
  clear                        clear the search
  refresh                      reload inventory and chart data
  charts                       show revenue and quantity share
  insights                     show the latest sales highlights
  create <item> <qty> <price>  create a record (item may contain spaces)
  form <field> <value>         fill the create form (item_name, quantity, price)
  submit                       send the create form
  edit <item>                  start editing a record
  set <quantity|price> <value> change a staged value
  commit                       send the staged values
  cancel                       discard the edit
  delete <item>                delete a record
  upload <file>                send a receipt for OCR
  status                       show the status line
  help                         show this help
  quit                         leave the shell`

var errQuit = errors.New("quit")

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive dashboard session",
		Long: strings.TrimSpace(`
Start an interactive session. The dashboard state (search text, create form,
edit session and status line) is kept between commands, and sales insights
are reloaded in the background every insights.poll_interval.
`),
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	poller := dashboard.NewInsightsPoller(a.client, a.cfg.Insights.Interval())
	poller.Start(ctx)
	defer poller.Stop()

	if err := a.refresh(ctx, false); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	} else if err := a.formatter.RenderDashboard(a.dash.View(), a.out); err != nil {
		return err
	}

	sh := &shell{app: a, poller: poller, errOut: cmd.ErrOrStderr()}
	return sh.run(ctx, cmd.InOrStdin())
}

type shell struct {
	*app
	poller *dashboard.InsightsPoller
	errOut io.Writer
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "stockdash> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		err := s.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	fields := strings.Fields(rest)

	switch strings.ToLower(verb) {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		_, err := fmt.Fprintln(s.out, shellHelp)
		return err
	case "status":
		return s.printStatus()
	case "list", "ls":
		return s.formatter.RenderDashboard(s.dash.View(), s.out)
	case "search":
		s.dash.SetSearch(rest)
		return s.formatter.RenderDashboard(s.dash.View(), s.out)
	case "clear":
		s.dash.ClearSearch()
		return s.formatter.RenderDashboard(s.dash.View(), s.out)
	case "refresh":
		if err := s.refresh(ctx, false); err != nil {
			return err
		}
		return s.formatter.RenderDashboard(s.dash.View(), s.out)
	case "charts":
		return s.formatter.RenderCharts(s.dash.View().Charts, s.out)
	case "insights":
		return s.formatter.RenderInsights(s.poller.View(), s.out)
	case "create":
		if len(fields) < 3 {
			return errors.New("usage: create <item> <qty> <price>")
		}
		n := len(fields)
		err := s.dash.CreateRecord(ctx, strings.Join(fields[:n-2], " "), fields[n-2], fields[n-1])
		return s.afterAction(err)
	case "form":
		if len(fields) < 2 {
			return errors.New("usage: form <item_name|quantity|price> <value>")
		}
		field := dashboard.CreateField(strings.ToLower(fields[0]))
		return s.dash.SetCreateField(field, strings.Join(fields[1:], " "))
	case "submit":
		return s.afterAction(s.dash.SubmitCreate(ctx))
	case "edit":
		if rest == "" {
			return errors.New("usage: edit <item>")
		}
		if err := s.dash.StartEdit(rest); err != nil {
			return err
		}
		return s.formatter.RenderDashboard(s.dash.View(), s.out)
	case "set":
		if len(fields) != 2 {
			return errors.New("usage: set <quantity|price> <value>")
		}
		field, err := session.ParseField(fields[0])
		if err != nil {
			return err
		}
		return s.dash.UpdateDraft(field, fields[1])
	case "commit", "save":
		return s.afterAction(s.dash.CommitEdit(ctx))
	case "cancel":
		s.dash.CancelEdit()
		return s.formatter.RenderDashboard(s.dash.View(), s.out)
	case "delete", "rm":
		if rest == "" {
			return errors.New("usage: delete <item>")
		}
		return s.afterAction(s.dash.Delete(ctx, rest))
	case "upload":
		if rest == "" {
			return errors.New("usage: upload <file>")
		}
		return s.upload(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q (try 'help')", verb)
	}
}

// afterAction shows the dashboard after a mutation. The status line already
// describes any failure, so only the rendering error is returned.
func (s *shell) afterAction(err error) error {
	if err != nil {
		return s.printStatus()
	}
	return s.formatter.RenderDashboard(s.dash.View(), s.out)
}
