// Command dedup is the CLI front door to the fuzzy deduplication
// engine: run it once over a file, or serve it over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fuzzydedup/dedup/internal/bench"
	"github.com/fuzzydedup/dedup/internal/config"
	"github.com/fuzzydedup/dedup/internal/dedup"
	"github.com/fuzzydedup/dedup/internal/io/csv"
	"github.com/fuzzydedup/dedup/internal/io/workbook"
	"github.com/fuzzydedup/dedup/internal/obs"
	"github.com/fuzzydedup/dedup/internal/registry"
	"github.com/fuzzydedup/dedup/internal/web"
)

func main() {
	root := &cobra.Command{
		Use:   "dedup",
		Short: "Fuzzy deduplication engine",
		Long:  "Blocks, scores, clusters, and elects winners over near-duplicate records in a tabular dataset.",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newRunCrossCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newBenchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// matchFlags holds the MatchConfig-shaping flags shared by run and
// run-cross.
type matchFlags struct {
	fuzzyColumns         string
	exactColumns         string
	thresholds           string
	overallThreshold     int
	maxBlockSize         int
	parallelism          int
	lengthPrefilterSlack int
}

func (f *matchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fuzzyColumns, "fuzzy", "", "comma-separated fuzzy-compared columns")
	cmd.Flags().StringVar(&f.exactColumns, "exact", "", "comma-separated exact-compared columns")
	cmd.Flags().StringVar(&f.thresholds, "thresholds", "", "comma-separated col=percent pairs, e.g. name=85,email=100")
	cmd.Flags().IntVar(&f.overallThreshold, "overall-threshold", 90, "minimum average fuzzy score to match")
	cmd.Flags().IntVar(&f.maxBlockSize, "max-block-size", 1000, "split any block larger than this")
	cmd.Flags().IntVar(&f.parallelism, "parallelism", 0, "worker count (0 = cores-1)")
	cmd.Flags().IntVar(&f.lengthPrefilterSlack, "length-prefilter-slack", 20, "points subtracted from threshold for the length-ratio gate")
}

func (f *matchFlags) toConfig() (dedup.MatchConfig, error) {
	cfg := dedup.MatchConfig{
		OverallThreshold:     f.overallThreshold,
		MaxBlockSize:         f.maxBlockSize,
		Parallelism:          f.parallelism,
		LengthPrefilterSlack: f.lengthPrefilterSlack,
	}
	if f.fuzzyColumns != "" {
		cfg.FuzzyColumns = splitTrim(f.fuzzyColumns)
	}
	if f.exactColumns != "" {
		cfg.ExactColumns = splitTrim(f.exactColumns)
	}
	if f.thresholds != "" {
		thresholds, err := parseThresholds(f.thresholds)
		if err != nil {
			return dedup.MatchConfig{}, err
		}
		cfg.Thresholds = thresholds
	}
	return cfg, nil
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseThresholds(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, pair := range splitTrim(s) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid threshold %q, want col=percent", pair)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q: %w", pair, err)
		}
		out[strings.TrimSpace(kv[0])] = pct
	}
	return out, nil
}

// loadTable reads a CSV or Excel workbook file into a dedup.Table based
// on its extension.
func loadTable(path, sheet string) (dedup.Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return csv.ReadTable(path)
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	return workbook.ReadTable(path, sheet)
}

// sourceKeyFromFilename derives the source system key from a filename
// prefix before the first underscore, per the engine's single-source
// rulebook lookup convention.
func sourceKeyFromFilename(path string) string {
	base := path[strings.LastIndexAny(path, "/\\")+1:]
	if i := strings.Index(base, "_"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepathExt(base))
}

func filepathExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func newRunCmd() *cobra.Command {
	var (
		input        string
		sheet        string
		output       string
		source       string
		rulebookPath string
		flags        matchFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deduplicate a single source file",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := obs.NewLogger(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			table, err := loadTable(input, sheet)
			if err != nil {
				return err
			}
			cfg, err := flags.toConfig()
			if err != nil {
				return err
			}
			if source == "" {
				source = sourceKeyFromFilename(input)
			}
			cfg.Source = source

			rulebook, err := config.LoadRulebook(rulebookPath)
			if err != nil {
				return err
			}
			cfg.Rulebook = rulebook

			engine := dedup.NewEngine(log)
			bundle, err := engine.Deduplicate(context.Background(), table, cfg)
			if err != nil {
				return err
			}

			fmt.Printf("input=%d final=%d clusters=%d duplicates=%d\n",
				bundle.Statistics.InputRecordCount, bundle.Statistics.FinalRecordCount,
				bundle.Statistics.ClusterCount, bundle.Statistics.DuplicateRecordCount)

			return workbook.WriteBundle(output, source, bundle)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input CSV or workbook path (required)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "workbook sheet name (ignored for CSV)")
	cmd.Flags().StringVar(&output, "output", "dedup_output.xlsx", "output workbook path")
	cmd.Flags().StringVar(&source, "source", "", "source system name (default: filename prefix before the first underscore)")
	cmd.Flags().StringVar(&rulebookPath, "rulebook", "", "path to a JSON source->winning_criteria map")
	cmd.MarkFlagRequired("input")
	flags.register(cmd)
	return cmd
}

// sourceSystemColumn is the column name used to tag each merged row with
// its originating source system, matching elect.SourceSystem's primary
// alias.
const sourceSystemColumn = "Source_System"

// mergeSources loads each source=path input and concatenates their rows
// into a single table carrying a Source_System column, the shape
// Engine.DeduplicateCross requires for cross-source mode. Column sets
// across sources need not match; missing columns read as nil.
func mergeSources(inputs []string) (dedup.Table, error) {
	var merged dedup.Table
	seen := map[string]bool{sourceSystemColumn: true}
	merged.Columns = append(merged.Columns, sourceSystemColumn)

	for _, in := range inputs {
		src, path, err := splitSourceFile(in)
		if err != nil {
			return dedup.Table{}, err
		}
		t, err := loadTable(path, "")
		if err != nil {
			return dedup.Table{}, err
		}
		for _, col := range t.Columns {
			if !seen[col] {
				seen[col] = true
				merged.Columns = append(merged.Columns, col)
			}
		}
		for _, row := range t.Rows {
			rec := make(dedup.Record, len(row)+1)
			for k, v := range row {
				rec[k] = v
			}
			rec[sourceSystemColumn] = src
			merged.Rows = append(merged.Rows, rec)
		}
	}
	return merged, nil
}

func newRunCrossCmd() *cobra.Command {
	var (
		inputs         []string
		output         string
		precedencePath string
		flags          matchFlags
	)
	cmd := &cobra.Command{
		Use:   "run-cross",
		Short: "Deduplicate and merge records across multiple source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := obs.NewLogger(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			table, err := mergeSources(inputs)
			if err != nil {
				return err
			}

			cfg, err := flags.toConfig()
			if err != nil {
				return err
			}
			precedence, err := config.LoadPrecedence(precedencePath)
			if err != nil {
				return err
			}

			engine := dedup.NewEngine(log)
			bundle, err := engine.DeduplicateCross(context.Background(), table, cfg, precedence)
			if err != nil {
				return err
			}

			fmt.Printf("input=%d final=%d clusters=%d duplicates=%d\n",
				bundle.Statistics.InputRecordCount, bundle.Statistics.FinalRecordCount,
				bundle.Statistics.ClusterCount, bundle.Statistics.DuplicateRecordCount)

			return workbook.WriteBundle(output, "crosssystem", bundle)
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "source=path, repeatable (e.g. --input crm=crm_accounts.csv)")
	cmd.Flags().StringVar(&output, "output", "dedup_cross_output.xlsx", "output workbook path")
	cmd.Flags().StringVar(&precedencePath, "precedence", "", "path to a JSON source->precedence map")
	cmd.MarkFlagRequired("input")
	flags.register(cmd)
	return cmd
}

func splitSourceFile(s string) (source, path string, err error) {
	kv := strings.SplitN(s, "=", 2)
	if len(kv) != 2 || kv[0] == "" || kv[1] == "" {
		return "", "", fmt.Errorf("invalid --input %q, want source=path", s)
	}
	return kv[0], kv[1], nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API over the deduplication engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			log, err := obs.NewLogger(config.GetEnvBool("DEBUG", false))
			if err != nil {
				return err
			}
			defer log.Sync()

			webCfg := web.DefaultConfig()
			webCfg.Server.Port = config.GetEnvInt("WEB_PORT", webCfg.Server.Port)
			webCfg.Server.Host = config.GetEnv("WEB_HOST", webCfg.Server.Host)
			webCfg.Database.URL = config.GetEnv("DATABASE_URL", webCfg.Database.URL)
			webCfg.Database.MaxConnections = config.GetEnvInt("DB_MAX_CONNECTIONS", webCfg.Database.MaxConnections)
			webCfg.Auth.Enabled = config.GetEnvBool("AUTH_ENABLED", webCfg.Auth.Enabled)
			webCfg.Auth.SessionKey = config.GetEnv("SESSION_KEY", webCfg.Auth.SessionKey)
			webCfg.Features.MetricsEnabled = config.GetEnvBool("METRICS_ENABLED", webCfg.Features.MetricsEnabled)
			webCfg.Features.RegistryEnabled = config.GetEnvBool("REGISTRY_ENABLED", webCfg.Features.RegistryEnabled)

			var reg *registry.Registry
			if webCfg.Features.RegistryEnabled {
				reg, err = registry.Open(webCfg.Database.URL, webCfg.Database.MaxConnections)
				if err != nil {
					log.Warn("run registry unavailable, continuing without run history", zap.Error(err))
					reg = nil
				}
			}

			engine := dedup.NewEngine(log)
			srv, err := web.NewServer(webCfg, engine, reg, log)
			if err != nil {
				return err
			}
			return srv.Start()
		},
	}
}

func newBenchCmd() *cobra.Command {
	var (
		sizes []int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the engine against seeded synthetic datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := obs.NewLogger(false)
			if err != nil {
				return err
			}
			defer log.Sync()

			engine := dedup.NewEngine(log)
			results, err := bench.Suite(context.Background(), engine, sizes, seed)
			if err != nil {
				return err
			}

			fmt.Printf("%-10s %-12s %-14s %s\n", "size", "duration", "records/sec", "clusters/dupes")
			for _, r := range results {
				fmt.Printf("%-10d %-12s %-14.0f %d/%d\n",
					r.RecordCount, r.Duration, r.RecordsPerSecond, r.ClusterCount, r.DuplicateRecordCount)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{100, 500, 1000, 2000, 5000}, "comma-separated record counts to benchmark")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for synthetic data generation")
	return cmd
}
