package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gobeyondidentity/keyissuer/pkg/clierror"
	"github.com/gobeyondidentity/keyissuer/pkg/statuslog"
	"github.com/gobeyondidentity/keyissuer/pkg/store"
	"github.com/gobeyondidentity/keyissuer/pkg/timeutil"
)

var kindColors = map[statuslog.Kind]*color.Color{
	statuslog.KindPending:     color.New(color.FgYellow),
	statuslog.KindSuccessful:  color.New(color.FgGreen),
	statuslog.KindRejected:    color.New(color.FgMagenta),
	statuslog.KindFailed:      color.New(color.FgRed),
	statuslog.KindClientError: color.New(color.FgCyan),
}

func colorKind(k statuslog.Kind) string {
	if c, ok := kindColors[k]; ok {
		return c.Sprint(string(k))
	}
	return string(k)
}

type logOptions struct {
	file       string
	db         string
	kind       string
	credential string
	limit      int
	since      time.Duration
	summary    bool
}

func newLogCmd(opts *globalOptions) *cobra.Command {
	lo := &logOptions{}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show status records",
		Long: `Show status records from the JSON-lines status log or the SQLite mirror.

Without --file or --db the status log configured for 'keyissuer serve' is read.`,
		Example: `  # Everything that happened to one credential
  keyissuer log --credential ks-3fQ9xLm2PqR8sT1v

  # The last 20 timeouts from the database mirror
  keyissuer log --db /var/lib/keyissuer/status.db --kind FAILED --limit 20

  # Counts per status over the last hour
  keyissuer log --since 1h --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := lo.filter(time.Now())
			if err != nil {
				return err
			}

			records, err := lo.load(cmd, opts, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if lo.summary {
				return printSummary(out, opts.outputFormat, records)
			}
			if handled, err := formatOutput(out, opts.outputFormat, records); handled {
				return err
			}
			return printRecords(out, records)
		},
	}

	cmd.Flags().StringVar(&lo.file, "file", "", "Read the JSON-lines status log at this path")
	cmd.Flags().StringVar(&lo.db, "db", "", "Read the SQLite status mirror at this path")
	cmd.Flags().StringVar(&lo.kind, "kind", "", "Only show records of this status (PENDING, SUCCESSFUL, REJECTED, FAILED, CLIENT_ERROR)")
	cmd.Flags().StringVar(&lo.credential, "credential", "", "Only show records for this credential")
	cmd.Flags().IntVar(&lo.limit, "limit", 0, "Show only the most recent N records (0 for all)")
	cmd.Flags().DurationVar(&lo.since, "since", 0, "Only show records newer than this duration (e.g. 30m, 24h)")
	cmd.Flags().BoolVar(&lo.summary, "summary", false, "Print record counts per status instead of records")
	cmd.MarkFlagsMutuallyExclusive("file", "db")
	return cmd
}

func (lo *logOptions) filter(now time.Time) (store.StatusFilter, error) {
	var filter store.StatusFilter
	if lo.kind != "" {
		kind, err := statuslog.ParseKind(strings.ToUpper(lo.kind))
		if err != nil {
			return filter, clierror.InvalidArgument("%s", err)
		}
		filter.Kind = kind
	}
	if lo.limit < 0 {
		return filter, clierror.InvalidArgument("--limit must not be negative")
	}
	if lo.since < 0 {
		return filter, clierror.InvalidArgument("--since must not be negative")
	}
	if lo.since > 0 {
		filter.Since = now.Add(-lo.since)
	}
	filter.Credential = lo.credential
	filter.Limit = lo.limit
	return filter, nil
}

func (lo *logOptions) load(cmd *cobra.Command, opts *globalOptions, filter store.StatusFilter) ([]statuslog.Record, error) {
	if lo.db != "" {
		if err := requireExists(lo.db); err != nil {
			return nil, err
		}
		db, err := store.Open(lo.db)
		if err != nil {
			return nil, clierror.LogUnreadable(lo.db, err)
		}
		defer db.Close()

		records, err := db.QueryStatusRecords(cmd.Context(), filter)
		if err != nil {
			return nil, clierror.LogUnreadable(lo.db, err)
		}
		return nonNil(records), nil
	}

	path := lo.file
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.StatusLogPath
	}
	if err := requireExists(path); err != nil {
		return nil, err
	}
	records, err := statuslog.ReadFile(path)
	if err != nil {
		return nil, clierror.LogUnreadable(path, err)
	}
	return filter.Apply(records), nil
}

func requireExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return clierror.LogNotFound(path)
		}
		return clierror.LogUnreadable(path, err)
	}
	return nil
}

func nonNil(records []statuslog.Record) []statuslog.Record {
	if records == nil {
		return []statuslog.Record{}
	}
	return records
}

func printRecords(w io.Writer, records []statuslog.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No status records found.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.Format(time.RFC3339),
			timeutil.Relative(r.Timestamp),
			colorKind(r.Kind),
			r.IP,
			r.Credential,
			r.Message,
		})
	}
	printTable(w, []string{"timestamp", "age", "status", "ip", "credential", "message"}, rows)
	return nil
}

type kindCount struct {
	Status statuslog.Kind `json:"status" yaml:"status"`
	Count  int            `json:"count" yaml:"count"`
}

func printSummary(w io.Writer, format string, records []statuslog.Record) error {
	counts := make(map[statuslog.Kind]int)
	for _, r := range records {
		counts[r.Kind]++
	}
	summary := make([]kindCount, 0, len(statuslog.AllKinds()))
	for _, k := range statuslog.AllKinds() {
		summary = append(summary, kindCount{Status: k, Count: counts[k]})
	}

	if handled, err := formatOutput(w, format, summary); handled {
		return err
	}

	rows := make([][]string, 0, len(summary))
	for _, c := range summary {
		rows = append(rows, []string{colorKind(c.Status), strconv.Itoa(c.Count)})
	}
	printTable(w, []string{"status", "count"}, rows)
	return nil
}

func printTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
