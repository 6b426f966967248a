package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/sheetpatch/internal/core"
)

// VocabularyFile is the YAML document named by VOCABULARY_FILE:
//
//	key_column: 编号
//	extend: true        # add to the built-in keywords instead of replacing them
//	keywords:
//	  - 物料编码
//	  - 供应商
type VocabularyFile struct {
	KeyColumn string   `yaml:"key_column"`
	Extend    bool     `yaml:"extend"`
	Keywords  []string `yaml:"keywords"`
}

// LoadVocabulary reads and validates a vocabulary file.
func LoadVocabulary(path string) (*VocabularyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	var v VocabularyFile
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}

	keywords := v.Keywords[:0]
	for _, k := range v.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	v.Keywords = keywords
	v.KeyColumn = strings.TrimSpace(v.KeyColumn)

	if len(v.Keywords) == 0 && v.KeyColumn == "" {
		return nil, fmt.Errorf("vocabulary %s defines no keywords or key column", path)
	}
	return &v, nil
}

// Vocabulary returns the header keywords the file selects.
func (v *VocabularyFile) Vocabulary() core.Vocabulary {
	if !v.Extend && len(v.Keywords) > 0 {
		return core.Vocabulary(v.Keywords)
	}
	return append(core.DefaultVocabulary(), v.Keywords...)
}
