package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/gateways/callsource"
)

// appFactory opens the application for one command invocation.
type appFactory func() (*Application, error)

// cli carries the open application between the root hook and subcommands.
type cli struct {
	open appFactory
	app  *Application
	root *cobra.Command
}

func newCLI(open appFactory) *cli {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Call-screening policy engine",
		Long:          "rr-screen decides, for each incoming caller id, whether to allow, block, silence or send the call to voicemail, based on an ordered list of wildcard rules.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(c.screenCmd(), c.serveCmd(), c.rulesCmd(), c.logCmd(), c.statsCmd())
	c.root = root
	return c
}

// Execute runs the command line and closes the application afterwards,
// whether or not the command succeeded.
func (c *cli) Execute(ctx context.Context, args []string) error {
	c.root.SetArgs(args)
	err := c.root.ExecuteContext(ctx)
	if c.app != nil {
		if cerr := c.app.Close(); err == nil {
			err = cerr
		}
		c.app = nil
	}
	return err
}

func (c *cli) screenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "screen <number>...",
		Short: "Screen one or more caller ids and record them in the audit log",
		Long:  "Screen one or more caller ids and record them in the audit log.\nEach result line is: action, instruction, matched rule, caller id as given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, raw := range args {
				d := c.app.screener.Screen(raw)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Action, callsource.InstructionFor(d.Action).Kind(), matchedLabel(d), raw)
			}
			return w.Flush()
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Read caller ids from stdin, one per line, and write one instruction per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src := callsource.NewLineSource(cmd.InOrStdin(), cmd.OutOrStdout(), log.Named("callsource"))
			if err := src.Start(ctx, c.app.screener); err != nil {
				return fmt.Errorf("failed to start call source: %w", err)
			}

			defer func() {
				st := c.app.cache.Stats()
				log.Debug(map[string]any{
					"hits":      st.Hits,
					"misses":    st.Misses,
					"evictions": st.Evictions,
					"size":      st.Size,
				}, "Decision cache stats")
			}()

			done := make(chan error, 1)
			go func() { done <- src.Wait() }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				log.Info(nil, "Shutdown initiated")
				if err := src.Stop(); err != nil {
					log.Warn(map[string]any{"error": err}, "Error during call source shutdown")
				}
				return nil
			}
		},
	}
}

func (c *cli) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the ordered screening rule list",
	}

	var disabled bool
	add := &cobra.Command{
		Use:   "add <pattern> <action>",
		Short: "Append a rule; action is one of allow, block, silence, voicemail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := domain.ParseAction(args[1])
			if err != nil {
				return err
			}
			r, err := domain.NewRule(args[0], action)
			if err != nil {
				return err
			}
			r = r.WithEnabled(!disabled)
			if err := c.app.rules.Add(r); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			return nil
		},
	}
	add.Flags().BoolVar(&disabled, "disabled", false, "Add the rule disabled")

	list := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRules(cmd.OutOrStdout(), c.app.rules.Rules())
		},
	}

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.rules.Remove(args[0])
		},
	}

	setEnabled := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := c.app.rules.SetEnabled(args[0], enabled)
				return err
			},
		}
	}

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a rule between enabled and disabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.app.rules.Toggle(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", r.ID, r.Enabled)
			return nil
		},
	}

	var newPattern, newAction string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a rule's pattern or action in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if newPattern == "" && newAction == "" {
				return errors.New("nothing to update: pass --pattern and/or --action")
			}
			updated, err := c.updatedRule(args[0], newPattern, newAction)
			if err != nil {
				return err
			}
			return c.app.rules.Update(updated)
		},
	}
	update.Flags().StringVar(&newPattern, "pattern", "", "New pattern")
	update.Flags().StringVar(&newAction, "action", "", "New action")

	cmd.AddCommand(add, list, rm,
		setEnabled("enable", "Enable a rule", true),
		setEnabled("disable", "Disable a rule", false),
		toggle, update)
	return cmd
}

// updatedRule returns the stored rule id with the given fields replaced. An
// empty field keeps its current value.
func (c *cli) updatedRule(id, p, action string) (domain.Rule, error) {
	r, ok := c.app.rules.Get(id)
	if !ok {
		return domain.Rule{}, fmt.Errorf("rule %s not found", id)
	}
	if p != "" {
		fresh, err := domain.NewRule(p, r.Action)
		if err != nil {
			return domain.Rule{}, err
		}
		r.Pattern = fresh.Pattern
	}
	if action != "" {
		a, err := domain.ParseAction(action)
		if err != nil {
			return domain.Rule{}, err
		}
		r.Action = a
	}
	return r, nil
}

func (c *cli) logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect or clear the audit log of screened calls",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List screened calls, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printAudit(cmd.OutOrStdout(), c.app.audit.List())
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every audit entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.audit.Clear()
		},
	}
	cmd.AddCommand(list, clearCmd)
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the store holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := c.app.store.Stats()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "store\t%s\n", c.app.config.Store.Path)
			fmt.Fprintf(w, "rules\t%d\n", st.Rules)
			fmt.Fprintf(w, "rules saved\t%s\n", unixLabel(st.RulesSavedUnix))
			fmt.Fprintf(w, "audit entries\t%d/%d\n", st.AuditEntries, c.app.audit.Capacity())
			fmt.Fprintf(w, "audit saved\t%s\n", unixLabel(st.AuditSavedUnix))
			return w.Flush()
		},
	}
}

func unixLabel(sec int64) string {
	if sec == 0 {
		return "never"
	}
	return time.Unix(sec, 0).Format(time.RFC3339)
}

func matchedLabel(d domain.Decision) string {
	if !d.Matched() {
		return "-"
	}
	return d.Pattern
}

func printRules(out io.Writer, rules []domain.Rule) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tPATTERN\tACTION\tENABLED")
	for i, r := range rules {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", i+1, r.ID, r.Pattern, r.Action, r.Enabled)
	}
	return w.Flush()
}

func printAudit(out io.Writer, entries []domain.AuditEntry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNUMBER\tRESULT\tRULE")
	for _, e := range entries {
		number := e.RawNumber
		if number == "" {
			number = "(withheld)"
		}
		result := "allowed"
		if e.Suppressed && e.MatchedAction != nil {
			result = e.MatchedAction.String()
		}
		rule := "-"
		if e.HasMatch() {
			rule = e.MatchedPattern
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.FormattedTime(), number, result, rule)
	}
	return w.Flush()
}
