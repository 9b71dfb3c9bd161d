package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/audit"
)

var (
	auditDecision string
	auditAction   string
	auditCaller   string
	auditSession  string
	auditSince    string
	auditUntil    string
	auditLimit    int
	auditTop      int
	tailLines     int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditGapsCmd)

	for _, c := range []*cobra.Command{auditQueryCmd, auditStatsCmd} {
		c.Flags().StringVar(&auditDecision, "decision", "", "Only records with this decision (allow|deny)")
		c.Flags().StringVar(&auditAction, "action", "", "Only records for this action")
		c.Flags().StringVar(&auditCaller, "caller", "", "Only records from this caller")
		c.Flags().StringVar(&auditSession, "session", "", "Only records from this session")
		c.Flags().StringVar(&auditSince, "since", "", "Only records at or after this time (RFC3339 or YYYY-MM-DD)")
		c.Flags().StringVar(&auditUntil, "until", "", "Only records strictly before this time")
	}
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 0, "Keep only the newest N matching records")
	auditStatsCmd.Flags().IntVar(&auditTop, "top", 5, "How many denied actions/callers to rank")
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent records to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Decision ledger operations",
	Long:  "Commands for verifying, querying, and summarizing the hash-chained\ndecision ledger and the fail-open gap ledger.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify ledger hash chain integrity",
	Long: "Walks a JSONL ledger and validates that every record's prev_hash matches\n" +
		"the SHA-256 of the previous line. Without a path, both configured ledgers\n" +
		"are verified. Exits 0 if intact, 1 if tampered.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditVerify,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query decision records",
	Long:  "Prints matching decision records as JSON lines, in append order.\nAll filters are conjunctive; the time range is half-open [since, until).",
	RunE:  runAuditQuery,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize decision records",
	RunE:  runAuditStats,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail [path]",
	Short: "Show recent ledger records",
	Long:  "Reads the last N records from a JSONL ledger and pretty-prints them.\nDefaults to the configured decision ledger.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditTail,
}

var auditGapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show fail-open records",
	Long:  "Prints every action that ran ungoverned: unregistered actions and\nunknown callers, from the gap ledger.",
	RunE:  runAuditGaps,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		cfg, err := loadEngineConfig()
		if err != nil {
			return err
		}
		paths = []string{cfg.LedgerPath, cfg.GapLedgerPath}
	}

	failed := false
	for _, path := range paths {
		if len(args) == 0 {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Printf("SKIP    %s: no ledger yet\n", path)
				continue
			}
		}
		result := audit.Verify(path)
		if result.Valid {
			fmt.Printf("OK      %s: %d records verified\n", path, result.Lines)
			continue
		}
		failed = true
		if result.ErrorLine > 0 {
			fmt.Fprintf(os.Stderr, "FAILED  %s at line %d: %s\n", path, result.ErrorLine, result.Error)
		} else {
			fmt.Fprintf(os.Stderr, "FAILED  %s: %s\n", path, result.Error)
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	filter, err := buildFilter()
	if err != nil {
		return err
	}
	records, err := audit.Query(cfg.LedgerPath, filter)
	if err != nil {
		return err
	}
	if auditLimit > 0 && len(records) > auditLimit {
		records = records[len(records)-auditLimit:]
	}
	for _, rec := range records {
		out, _ := json.Marshal(rec)
		fmt.Println(string(out))
	}
	return nil
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	filter, err := buildFilter()
	if err != nil {
		return err
	}
	records, err := audit.Query(cfg.LedgerPath, filter)
	if err != nil {
		return err
	}
	stats := audit.Summarize(records)

	fmt.Printf("Decisions:      %d (%d allowed, %d denied)\n", stats.Total, stats.Allowed, stats.Denied)
	if stats.Total > 0 {
		fmt.Printf("Allow rate:     %.1f%%\n", stats.AllowRate*100)
		fmt.Printf("Mean overlap:   %.3f\n", stats.MeanOverlap)
		fmt.Printf("Mean aggregate: %.3f\n", stats.MeanAggregate)
		fmt.Printf("Range:          %s .. %s\n", stats.FirstTimestamp, stats.LastTimestamp)
	}

	if actions := audit.TopDeniedActions(records, auditTop); len(actions) > 0 {
		fmt.Println()
		fmt.Println("Most denied actions:")
		for _, dc := range actions {
			fmt.Printf("  %-28s %d\n", dc.Key, dc.Count)
		}
	}
	if callers := audit.TopDeniedCallers(records, auditTop); len(callers) > 0 {
		fmt.Println()
		fmt.Println("Most denied callers:")
		for _, dc := range callers {
			fmt.Printf("  %-28s %d\n", dc.Key, dc.Count)
		}
	}
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadEngineConfig()
		if err != nil {
			return err
		}
		path = cfg.LedgerPath
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}
	for _, line := range lines[start:] {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Println(line)
			continue
		}
		out, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}

func runAuditGaps(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	gaps, err := audit.QueryGaps(cfg.GapLedgerPath)
	if err != nil {
		return err
	}
	for _, rec := range gaps {
		out, _ := json.Marshal(rec)
		fmt.Println(string(out))
	}
	if len(gaps) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d actions ran ungoverned. Register them:  intentguard registry list\n", len(gaps))
	}
	return nil
}

// buildFilter assembles the conjunctive ledger filter from the audit flags.
// The persistent --subject flag only constrains when set explicitly, so the
// default subject does not silently hide other subjects' records.
func buildFilter() (audit.Filter, error) {
	f := audit.Filter{
		Decision: auditDecision,
		Action:   auditAction,
		Caller:   auditCaller,
		Session:  auditSession,
	}
	if rootCmd.PersistentFlags().Changed("subject") {
		f.Subject = flagSubject
	}
	var err error
	if f.From, err = parseTimeFlag(auditSince); err != nil {
		return f, err
	}
	if f.To, err = parseTimeFlag(auditUntil); err != nil {
		return f, err
	}
	return f, nil
}

// parseTimeFlag accepts RFC3339 or date-only forms. Times parse as UTC.
func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (want RFC3339 or YYYY-MM-DD)", s)
}
