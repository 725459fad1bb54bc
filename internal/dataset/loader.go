package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"video-qa-go/internal/types"
)

// Load reads the first sheet of an .xlsx manifest. The video path column is
// found by header heuristics; lang and collection columns are optional.
// Relative paths are resolved against the manifest's directory.
func Load(path string) ([]types.ManifestRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, errors.New("no data rows")
	}

	cols := detectColumns(rows[0])
	base := filepath.Dir(path)

	var out []types.ManifestRow
	for i, r := range rows {
		if i == 0 {
			continue
		}
		p := cell(r, cols.path)
		if p == "" {
			// blank rows are common at the end of hand edited sheets
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, types.ManifestRow{
			Row:        i + 1,
			Path:       p,
			Lang:       cell(r, cols.lang),
			Collection: cell(r, cols.collection),
		})
	}
	if len(out) == 0 {
		return nil, errors.New("no rows with a video path")
	}
	return out, nil
}

type columns struct {
	path, lang, collection int
}

func detectColumns(header []string) columns {
	c := columns{path: -1, lang: -1, collection: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "lang"):
			if c.lang == -1 {
				c.lang = i
			}
		case strings.Contains(l, "collection"):
			if c.collection == -1 {
				c.collection = i
			}
		case strings.Contains(l, "path") || strings.Contains(l, "file") || strings.Contains(l, "video"):
			if c.path == -1 {
				c.path = i
			}
		}
	}
	// fallback: first column holds the path
	if c.path == -1 {
		c.path = 0
	}
	return c
}

func cell(r []string, idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}
