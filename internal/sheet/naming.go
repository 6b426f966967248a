package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSuffix marks a corrected copy of a workbook.
const DefaultSuffix = "(修改后)"

// maxNameAttempts bounds the collision counter.
const maxNameAttempts = 10000

// OutputPath returns a path in dir for the corrected copy of source:
// <stem><suffix><ext>, then <stem><suffix>_1<ext>, _2 and so on until an
// unused name is found. Only the base name of source is used.
func OutputPath(dir, source, suffix string) (string, error) {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".xlsx"
	}

	for i := 0; i < maxNameAttempts; i++ {
		name := stem + suffix + ext
		if i > 0 {
			name = fmt.Sprintf("%s%s_%d%s", stem, suffix, i, ext)
		}
		p := filepath.Join(dir, name)

		_, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", fmt.Errorf("check output path %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no free output name for %s in %s", base, dir)
}
