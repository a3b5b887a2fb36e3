package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/audit/export"
	"mercator-hq/ganymede/pkg/audit/retention"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and maintain the audit trail",
	Long: `Inspect and maintain the tamper-evident audit trail.

Subcommands query records, verify hash chain integrity, export records
for compliance tooling, and apply retention. All of them read the trail
configured in the config file; they can run alongside a live server.`,
}

// auditQueryFlags are the record filters shared by list and export.
type auditQueryFlags struct {
	agentID   string
	intent    string
	requestID string
	status    string
	since     string
	until     string
	limit     int
	offset    int
}

func addAuditQueryFlags(cmd *cobra.Command, flags *auditQueryFlags) {
	cmd.Flags().StringVar(&flags.agentID, "agent", "", "filter by agent id")
	cmd.Flags().StringVar(&flags.intent, "intent", "", "filter by intent")
	cmd.Flags().StringVar(&flags.requestID, "request-id", "", "filter by request id")
	cmd.Flags().StringVar(&flags.status, "status", "", "filter by status (success, error)")
	cmd.Flags().StringVar(&flags.since, "since", "", "records at or after this RFC 3339 time")
	cmd.Flags().StringVar(&flags.until, "until", "", "records before this RFC 3339 time")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum records (0 = all)")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "records to skip")
}

func (f *auditQueryFlags) query() (*audit.Query, error) {
	query := &audit.Query{
		AgentID:   f.agentID,
		Intent:    f.intent,
		RequestID: f.requestID,
		Limit:     f.limit,
		Offset:    f.offset,
	}
	switch f.status {
	case "", audit.StatusSuccess, audit.StatusError:
		query.Status = f.status
	default:
		return nil, fmt.Errorf("invalid status %q (expected success or error)", f.status)
	}
	if f.since != "" {
		t, err := time.Parse(time.RFC3339, f.since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since value: %w", err)
		}
		query.StartTime = &t
	}
	if f.until != "" {
		t, err := time.Parse(time.RFC3339, f.until)
		if err != nil {
			return nil, fmt.Errorf("invalid --until value: %w", err)
		}
		query.EndTime = &t
	}
	return query, nil
}

// openAuditStore loads configuration and opens the audit trail backend.
func openAuditStore() (audit.Storage, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return buildAuditStorage(&config.GetConfig().Audit)
}

var auditListFlags struct {
	auditQueryFlags
	format string
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records",
	Long: `List audit records matching the given filters, oldest first.

Examples:
  # Last week of refusals for one agent
  ganymede audit list --agent underwriting-agent --status error --since 2025-06-08T00:00:00Z

  # One request end to end
  ganymede audit list --request-id 9f1c2a7e-... --format json`,
	RunE: runAuditList,
}

func runAuditList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditListFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("list does not support csv; use: ganymede audit export --format csv")
	}
	query, err := auditListFlags.query()
	if err != nil {
		return err
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cli.SetupSignalHandler()
	records, err := store.List(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit list", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, records)
	}

	if len(records) == 0 {
		fmt.Println("No audit records found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTIME\tAGENT\tINTENT\tSTATUS\tDURATION\tREQUEST")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%dms\t%s\n",
			r.Seq,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.AgentID,
			r.Intent,
			r.Status,
			r.DurationMS,
			r.RequestID,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if query.Limit > 0 {
		total, err := store.Count(ctx, query)
		if err != nil {
			return cli.NewCommandError("audit list", err)
		}
		if total > int64(len(records)) {
			fmt.Printf("\nShowing %d of %d matching records.\n", len(records), total)
		}
	}
	return nil
}

var auditVerifyFlags struct {
	format string
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit chain integrity",
	Long: `Walk the full audit trail from the chain anchor and verify every
record's digest and its link to the previous record.

The command exits non-zero when the chain is broken, so it can run in
scheduled integrity checks.`,
	RunE: runAuditVerify,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditVerifyFlags.format)
	if err != nil {
		return err
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cli.SetupSignalHandler()
	result, err := audit.VerifyChain(ctx, store)
	if err != nil {
		return cli.NewCommandError("audit verify", err)
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result); err != nil {
			return err
		}
		if !result.Intact {
			return fmt.Errorf("audit chain verification failed")
		}
		return nil
	}

	if result.Intact {
		fmt.Printf("✓ Audit chain intact: %d records verified", result.RecordsChecked)
		if result.AnchorSeq > 0 {
			fmt.Printf(" (from anchor seq %d)", result.AnchorSeq)
		}
		fmt.Println()
		return nil
	}

	fmt.Printf("✗ Audit chain broken at seq %d (record %s)\n", result.Failure.Seq, result.Failure.RecordID)
	fmt.Printf("  %s\n", result.Failure.Reason)
	fmt.Printf("  %d records verified before the break.\n", result.RecordsChecked)
	return fmt.Errorf("audit chain verification failed")
}

var auditExportFlags struct {
	auditQueryFlags
	output string
	format string
	pretty bool
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Export audit records as JSON or CSV, streaming so trails larger than
memory export safely.

Examples:
  # Everything, as pretty JSON on stdout
  ganymede audit export --pretty

  # One agent's June records to a file
  ganymede audit export --agent underwriting-agent \
    --since 2025-06-01T00:00:00Z --until 2025-07-01T00:00:00Z \
    --format csv --output june.csv`,
	RunE: runAuditExport,
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	if auditExportFlags.format != "json" && auditExportFlags.format != "csv" {
		return fmt.Errorf("unknown export format %q (expected json or csv)", auditExportFlags.format)
	}
	query, err := auditExportFlags.query()
	if err != nil {
		return err
	}

	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := os.Stdout
	if auditExportFlags.output != "" {
		f, err := os.Create(auditExportFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer f.Close()
		out = f
	}

	ctx := cli.SetupSignalHandler()
	switch auditExportFlags.format {
	case "csv":
		err = export.NewCSVExporter().Export(ctx, store, query, out)
	default:
		exporter := export.NewJSONExporter(&export.JSONConfig{Pretty: auditExportFlags.pretty})
		err = exporter.Export(ctx, store, query, out)
	}
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	if auditExportFlags.output != "" {
		count, err := store.Count(ctx, query)
		if err == nil {
			fmt.Printf("✓ Exported %d records to %s\n", count, auditExportFlags.output)
		} else {
			fmt.Printf("✓ Exported to %s\n", auditExportFlags.output)
		}
	}
	return nil
}

var auditPruneFlags struct {
	maxAge     time.Duration
	maxRecords int64
	archiveDir string
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply retention to the audit trail",
	Long: `Remove audit records past the retention boundaries and advance the
chain anchor so verification still passes afterwards.

Boundaries come from the config retention section; flags override it.
With --archive-dir (or the configured archive settings) the removed
records are written to a JSON archive first.

Examples:
  # Keep 90 days
  ganymede audit prune --max-age 2160h

  # Keep the newest million records, archiving the rest
  ganymede audit prune --max-records 1000000 --archive-dir /var/lib/ganymede/archive`,
	RunE: runAuditPrune,
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	store, err := openAuditStore()
	if err != nil {
		return err
	}
	defer store.Close()

	retCfg := retentionConfig(&config.GetConfig().Audit.Retention)
	retCfg.Schedule = ""
	if auditPruneFlags.maxAge > 0 {
		retCfg.MaxAge = auditPruneFlags.maxAge
	}
	if auditPruneFlags.maxRecords > 0 {
		retCfg.MaxRecords = auditPruneFlags.maxRecords
	}
	if auditPruneFlags.archiveDir != "" {
		retCfg.ArchiveDir = auditPruneFlags.archiveDir
	}
	if retCfg.MaxAge == 0 && retCfg.MaxRecords == 0 {
		return fmt.Errorf("no retention boundary: set --max-age or --max-records (or the config retention section)")
	}

	pruner, err := retention.NewPruner(store, retCfg)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	ctx := cli.SetupSignalHandler()
	result, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	if result.Removed == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}
	fmt.Printf("✓ Pruned %d records (chain anchor now at seq %d)\n", result.Removed, result.AnchorSeq)
	if result.ArchivePath != "" {
		fmt.Printf("✓ Archived to %s\n", result.ArchivePath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditPruneCmd)

	addAuditQueryFlags(auditListCmd, &auditListFlags.auditQueryFlags)
	auditListCmd.Flags().StringVar(&auditListFlags.format, "format", "text", "output format: text, json")

	auditVerifyCmd.Flags().StringVar(&auditVerifyFlags.format, "format", "text", "output format: text, json")

	addAuditQueryFlags(auditExportCmd, &auditExportFlags.auditQueryFlags)
	auditExportCmd.Flags().StringVarP(&auditExportFlags.output, "output", "o", "", "output file (default stdout)")
	auditExportCmd.Flags().StringVar(&auditExportFlags.format, "format", "json", "export format: json, csv")
	auditExportCmd.Flags().BoolVar(&auditExportFlags.pretty, "pretty", false, "indent JSON output")

	auditPruneCmd.Flags().DurationVar(&auditPruneFlags.maxAge, "max-age", 0, "remove records older than this")
	auditPruneCmd.Flags().Int64Var(&auditPruneFlags.maxRecords, "max-records", 0, "keep at most this many records")
	auditPruneCmd.Flags().StringVar(&auditPruneFlags.archiveDir, "archive-dir", "", "archive removed records to this directory")
}
