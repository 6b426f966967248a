package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetpatch/internal/config"
	"github.com/JonMunkholm/sheetpatch/internal/core"
	"github.com/JonMunkholm/sheetpatch/internal/logging"
)

// errRunFailed is returned after a failed result has been printed so main
// only sets the exit code.
var errRunFailed = errors.New("reconciliation failed")

// cli holds state shared by the subcommands.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	payload string
	engine  engineFlags
}

// engineFlags override the matching env settings when set on the command line.
type engineFlags struct {
	rowThreshold    int
	headerThreshold float64
	fuzzyThreshold  float64
	wraparound      bool
	strategy        string
	keyColumn       string
	scanRows        int
	fallback        bool
	vocabulary      string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "sheetpatch",
		Short: "Apply correction tables to Excel workbooks",
		Long: `Reconcile pipe-delimited correction tables against an Excel workbook and
write a corrected copy next to it. The source workbook is never modified.

Settings come from the environment (and .env); flags override them.

Examples:
  sheetpatch apply bom.xlsx --payload fixes.md
  cat fixes.md | sheetpatch apply bom.xlsx --strategy key
  sheetpatch extract --payload fixes.md`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	f := root.PersistentFlags()
	f.StringVarP(&c.payload, "payload", "p", "-", "correction text file, - for stdin")
	f.IntVar(&c.engine.rowThreshold, "row-threshold", core.DefaultRowMatchThreshold, "agreeing columns needed for a voting match")
	f.Float64Var(&c.engine.headerThreshold, "header-threshold", core.DefaultHeaderMatchThreshold, "mapped column ratio needed to accept a table")
	f.Float64Var(&c.engine.fuzzyThreshold, "fuzzy-threshold", core.DefaultFuzzyMatchThreshold, "similarity a fuzzy column match must exceed")
	f.BoolVar(&c.engine.wraparound, "wraparound", true, "search rows above the last match on a miss")
	f.StringVar(&c.engine.strategy, "strategy", string(core.StrategyAuto), "row matching strategy: auto, vote or key")
	f.StringVar(&c.engine.keyColumn, "key-column", core.DefaultKeyColumn, "header of the unique row identifier")
	f.IntVar(&c.engine.scanRows, "scan-rows", core.DefaultMaxHeaderScanRows, "rows inspected when locating the header")
	f.BoolVar(&c.engine.fallback, "header-fallback", false, "treat row 1 as the header when none qualifies")
	f.StringVar(&c.engine.vocabulary, "vocabulary", "", "YAML file of header keywords")

	root.AddCommand(c.newApplyCmd(), c.newExtractCmd())
	return root
}

// setup loads config, applies flag overrides and configures logging.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	// A missing .env is normal for CLI use
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	// stdout carries the JSON result, so logs go to stderr
	slog.SetDefault(logging.New(c.stderr, cfg.Logging.Level, cfg.Logging.Format))
	return nil
}

func (c *cli) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	r := &cfg.Reconcile

	if set("row-threshold") {
		r.RowMatchThreshold = c.engine.rowThreshold
	}
	if set("header-threshold") {
		r.HeaderMatchThreshold = c.engine.headerThreshold
	}
	if set("fuzzy-threshold") {
		r.FuzzyMatchThreshold = c.engine.fuzzyThreshold
	}
	if set("wraparound") {
		r.EnableWraparound = c.engine.wraparound
	}
	if set("strategy") {
		r.Strategy = c.engine.strategy
	}
	if set("key-column") {
		r.KeyColumn = c.engine.keyColumn
	}
	if set("scan-rows") {
		r.MaxHeaderScanRows = c.engine.scanRows
	}
	if set("header-fallback") {
		r.HeaderFallbackFirstRow = c.engine.fallback
	}
	if set("vocabulary") {
		r.VocabularyFile = c.engine.vocabulary
	}
}

// readPayload decodes the correction text from --payload.
func (c *cli) readPayload() (string, error) {
	if c.payload == "" || c.payload == "-" {
		return core.DecodePayload(c.stdin)
	}

	f, err := os.Open(c.payload)
	if err != nil {
		return "", fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()
	return core.DecodePayload(f)
}

// fail prints err as a failed result so callers always get JSON on stdout,
// then returns errRunFailed.
func (c *cli) fail(err error) error {
	f := core.Classify(err)
	slog.Error("command failed", "code", f.Code, "error", err)
	if perr := c.printJSON(core.Result{Success: false, Error: f.Error(), ErrorCode: f.Code}); perr != nil {
		return perr
	}
	return errRunFailed
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
