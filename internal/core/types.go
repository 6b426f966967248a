package core

import (
	"sort"
	"strings"
	"time"
)

// Grid is the engine's view of a worksheet: a 1-indexed matrix of cells whose
// bounds are queried on demand. The engine only overwrites cell values; it
// never inserts or removes rows or columns.
type Grid interface {
	MaxRow() int
	MaxColumn() int
	Cell(row, col int) string
	SetCell(row, col int, value string) error
}

// Strategy selects how correction rows are located in the spreadsheet.
type Strategy string

const (
	StrategyAuto Strategy = "auto" // key lookup when possible, voting otherwise
	StrategyVote Strategy = "vote" // multi-column voting with pointer search
	StrategyKey  Strategy = "key"  // unique-key lookup only
)

// ParseStrategy converts a config string to a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyAuto, "":
		return StrategyAuto, true
	case StrategyVote:
		return StrategyVote, true
	case StrategyKey:
		return StrategyKey, true
	default:
		return "", false
	}
}

// Default engine settings.
const (
	DefaultRowMatchThreshold    = 2
	DefaultHeaderMatchThreshold = 0.5
	DefaultMaxHeaderScanRows    = 20
	DefaultFuzzyMatchThreshold  = 0.8
	DefaultKeyColumn            = "序号"

	// KeywordSimilarity is the ratio a header cell must exceed to count as a
	// vocabulary hit during header location.
	KeywordSimilarity = 0.8
)

// Options controls a reconciliation run.
type Options struct {
	RowMatchThreshold      int      // Minimum agreeing columns for a voting match
	HeaderMatchThreshold   float64  // Minimum mapped/total correction columns to accept a table
	EnableWraparound       bool     // Scan the prefix before the pointer on a miss
	MaxHeaderScanRows      int      // Rows inspected when locating the header
	FuzzyMatchThreshold    float64  // Similarity ratio a fuzzy column match must exceed
	KeyColumn              string   // Header label of the unique row identifier
	Strategy               Strategy // Row matching strategy
	HeaderFallbackFirstRow bool     // Treat row 1 as header when nothing qualifies
	Vocabulary             Vocabulary
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		RowMatchThreshold:    DefaultRowMatchThreshold,
		HeaderMatchThreshold: DefaultHeaderMatchThreshold,
		EnableWraparound:     true,
		MaxHeaderScanRows:    DefaultMaxHeaderScanRows,
		FuzzyMatchThreshold:  DefaultFuzzyMatchThreshold,
		KeyColumn:            DefaultKeyColumn,
		Strategy:             StrategyAuto,
		Vocabulary:           DefaultVocabulary(),
	}
}

// withDefaults fills zero values so a partially populated Options still works.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RowMatchThreshold <= 0 {
		o.RowMatchThreshold = d.RowMatchThreshold
	}
	if o.HeaderMatchThreshold <= 0 {
		o.HeaderMatchThreshold = d.HeaderMatchThreshold
	}
	if o.MaxHeaderScanRows <= 0 {
		o.MaxHeaderScanRows = d.MaxHeaderScanRows
	}
	if o.FuzzyMatchThreshold <= 0 {
		o.FuzzyMatchThreshold = d.FuzzyMatchThreshold
	}
	if strings.TrimSpace(o.KeyColumn) == "" {
		o.KeyColumn = d.KeyColumn
	}
	if o.Strategy == "" {
		o.Strategy = StrategyAuto
	}
	if len(o.Vocabulary) == 0 {
		o.Vocabulary = d.Vocabulary
	}
	return o
}

// Vocabulary is the set of domain keywords that identify a header row.
type Vocabulary []string

// DefaultVocabulary returns the built-in header keywords for bill-of-materials
// style sheets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		"序号", "名称", "品牌", "型号", "型号尺寸", "规格", "规格型号", "数量", "单位",
		"单价", "金额", "备注", "ERP识别码", "编号", "物料编码", "描述", "厂家",
		"No.", "Name", "Brand", "Model", "Spec", "Qty", "Quantity", "Unit",
		"Price", "Amount", "Remark", "Description", "SKU", "ID",
	}
}

// key returns a stable identity for caching header locations per vocabulary.
func (v Vocabulary) key() string {
	sorted := append([]string(nil), v...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// HeaderLocation identifies the spreadsheet header row and its labels.
type HeaderLocation struct {
	Row     int            // 1-based row index
	Columns map[int]string // column index (1-based) -> trimmed label
}

// Labels returns the header columns in column order.
func (h HeaderLocation) Labels() []HeaderColumn {
	cols := make([]HeaderColumn, 0, len(h.Columns))
	for idx, label := range h.Columns {
		cols = append(cols, HeaderColumn{Index: idx, Label: label})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Index < cols[j].Index })
	return cols
}

// ColumnOf returns the first column whose label equals name, ignoring all
// spaces (including ideographic spaces). Returns 0 if absent.
func (h HeaderLocation) ColumnOf(name string) int {
	want := compactLabel(name)
	if want == "" {
		return 0
	}
	for _, c := range h.Labels() {
		if compactLabel(c.Label) == want {
			return c.Index
		}
	}
	return 0
}

// HeaderColumn is one labelled spreadsheet column.
type HeaderColumn struct {
	Index int
	Label string
}

// RowMatchOutcome is the result of locating one correction row.
type RowMatchOutcome struct {
	Matched        bool
	Row            int // spreadsheet row, valid when Matched
	MatchedColumns int // agreeing columns (voting) or 1 (key)
}

// Stats counts what happened during a run. Only the engine mutates it.
type Stats struct {
	TotalTables     int           `json:"total_tables"`
	ProcessedTables int           `json:"processed_tables"`
	SkippedTables   int           `json:"skipped_tables"`
	TotalRows       int           `json:"total_rows"`
	MatchedRows     int           `json:"matched_rows"`
	SkippedRows     int           `json:"skipped_rows"`
	CellsUpdated    int           `json:"cells_updated"`
	Elapsed         time.Duration `json:"-"`
	ProcessingTime  float64       `json:"processing_time"` // seconds, mirrors Elapsed
}

// MatchPercent returns matched rows as a percentage of total rows.
func (s Stats) MatchPercent() float64 {
	if s.TotalRows == 0 {
		return 0
	}
	return float64(s.MatchedRows) * 100 / float64(s.TotalRows)
}

// Result is what callers receive from a reconciliation run. It is always
// populated, even when the run fails.
type Result struct {
	Success    bool     `json:"success"`
	RunID      string   `json:"run_id,omitempty"`
	OutputPath string   `json:"output_path,omitempty"`
	FileName   string   `json:"filename,omitempty"`
	Stats      Stats    `json:"statistics"`
	Error      string   `json:"error,omitempty"`
	ErrorCode  string   `json:"error_code,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}
