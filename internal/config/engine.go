package config

import (
	"fmt"

	"github.com/JonMunkholm/sheetpatch/internal/core"
)

// EngineOptions converts the reconcile settings into engine options, reading
// the vocabulary file when one is configured.
func (c *Config) EngineOptions() (core.Options, error) {
	r := c.Reconcile

	strategy, ok := core.ParseStrategy(r.Strategy)
	if !ok {
		return core.Options{}, fmt.Errorf("unknown match strategy %q", r.Strategy)
	}

	opts := core.Options{
		RowMatchThreshold:      r.RowMatchThreshold,
		HeaderMatchThreshold:   r.HeaderMatchThreshold,
		EnableWraparound:       r.EnableWraparound,
		MaxHeaderScanRows:      r.MaxHeaderScanRows,
		FuzzyMatchThreshold:    r.FuzzyMatchThreshold,
		KeyColumn:              r.KeyColumn,
		Strategy:               strategy,
		HeaderFallbackFirstRow: r.HeaderFallbackFirstRow,
		Vocabulary:             core.DefaultVocabulary(),
	}

	if r.VocabularyFile == "" {
		return opts, nil
	}
	vf, err := LoadVocabulary(r.VocabularyFile)
	if err != nil {
		return core.Options{}, err
	}
	opts.Vocabulary = vf.Vocabulary()
	if vf.KeyColumn != "" {
		opts.KeyColumn = vf.KeyColumn
	}
	return opts, nil
}

// CleanupConfig returns the retention settings for uploaded and corrected files.
func (c *Config) CleanupConfig() core.CleanupConfig {
	return core.CleanupConfig{
		Dirs:      []string{c.Storage.UploadDir, c.Storage.OutputDir},
		Retention: c.Storage.FileRetention,
		Interval:  c.Storage.CleanupInterval,
	}
}
