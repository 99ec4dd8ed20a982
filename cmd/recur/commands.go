package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// options shared by every subcommand.
type options struct {
	format   string
	timeZone string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "recur",
		Short: "Expand and convert calendar recurrence rules",
		Long: `recur reads a recurrence rule as JSON, YAML, RRULE text or xCal and
either lists its occurrences or rewrites it in another encoding.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "", "input format: json, yaml, rrule or xcal (default: from file extension)")
	root.PersistentFlags().StringVar(&opts.timeZone, "tz", "UTC", "time zone for rrule and xcal input")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(newExpandCmd(opts), newConvertCmd(opts))
	return root
}

func newExpandCmd(opts *options) *cobra.Command {
	var (
		anchor     string
		from       string
		to         string
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "expand [rule file]",
		Short: "List the occurrences of a rule inside a window",
		Long: `Reads a rule from the given file (or stdin when the argument is "-" or
missing) and prints one RFC 3339 occurrence per line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := readRuleArg(cmd, args, opts)
			if err != nil {
				return err
			}
			loc := rule.Calendar.Location()
			start, err := parseTime(anchor, loc)
			if err != nil {
				return fmt.Errorf("--anchor: %w", err)
			}
			window := recurrence.Window{From: start, To: start.AddDate(1, 0, 0)}
			if from != "" {
				if window.From, err = parseTime(from, loc); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			if to != "" {
				if window.To, err = parseTime(to, loc); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}

			config := recurrence.DisabledCacheConfig
			if configPath != "" {
				f, err := os.Open(configPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if config, err = recurrence.LoadEngineConfig(f); err != nil {
					return err
				}
			}
			engine := recurrence.NewEngineWithConfig(config, recurrence.WithLogger(newLogger(cmd, opts)))
			defer engine.Close()

			occurrences, err := engine.Expand(rule, start, window)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range occurrences {
				fmt.Fprintln(out, t.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "first occurrence, RFC 3339 (required)")
	cmd.Flags().StringVar(&from, "from", "", "window start, RFC 3339 (default: anchor)")
	cmd.Flags().StringVar(&to, "to", "", "window end, RFC 3339 (default: one year after anchor)")
	cmd.Flags().StringVar(&configPath, "config", "", "engine configuration YAML")
	_ = cmd.MarkFlagRequired("anchor")
	return cmd
}

func newConvertCmd(opts *options) *cobra.Command {
	var (
		target  string
		anchor  string
		summary string
	)
	cmd := &cobra.Command{
		Use:   "convert [rule file]",
		Short: "Rewrite a rule in another encoding",
		Long: `Reads a rule and writes it as json, yaml, rrule, xcal or ics. The ics
target wraps the rule in a VEVENT starting at --anchor.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := readRuleArg(cmd, args, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if target != formatICS {
				return writeRule(out, rule, target)
			}
			start, err := parseTime(anchor, rule.Calendar.Location())
			if err != nil {
				return fmt.Errorf("--anchor: %w", err)
			}
			return writeEvent(out, rule, start, summary)
		},
	}
	cmd.Flags().StringVarP(&target, "to", "t", formatRRULE, "output format: json, yaml, rrule, xcal or ics")
	cmd.Flags().StringVar(&anchor, "anchor", "", "event start for ics output, RFC 3339")
	cmd.Flags().StringVar(&summary, "summary", "Recurring event", "event summary for ics output")
	return cmd
}

func readRuleArg(cmd *cobra.Command, args []string, opts *options) (recurrence.Rule, error) {
	loc, err := time.LoadLocation(opts.timeZone)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("--tz: %w", err)
	}
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	format := opts.format
	if format == "" {
		format = formatFromName(name)
	}

	var r io.Reader = cmd.InOrStdin()
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		defer f.Close()
		r = f
	}
	return readRule(r, format, loc)
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("a time is required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func newLogger(cmd *cobra.Command, opts *options) *slog.Logger {
	if !opts.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// writeEvent wraps rule in a single-event calendar.
func writeEvent(w io.Writer, rule recurrence.Rule, start time.Time, summary string) error {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uuid.New().String())
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetText(ical.PropSummary, summary)
	if err := recurrence.SetComponentRule(event.Component, rule); err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//librecur//recur//EN")
	cal.Children = append(cal.Children, event.Component)
	return ical.NewEncoder(w).Encode(cal)
}
