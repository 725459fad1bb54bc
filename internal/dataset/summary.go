package dataset

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"video-qa-go/internal/types"
)

// ManifestSummary describes a manifest before anything is ingested.
type ManifestSummary struct {
	TotalRows    int            `json:"total_rows"`
	ByExtension  map[string]int `json:"by_extension"`
	ByLang       map[string]int `json:"by_lang"`
	ByCollection map[string]int `json:"by_collection"`
	Duplicates   []string       `json:"duplicates,omitempty"`
}

// Summarize counts manifest rows per extension, language and collection.
// Empty lang or collection cells are counted under defLang / defCollection.
// Paths listed more than once are reported; each occurrence is still
// ingested as its own document.
func Summarize(rows []types.ManifestRow, defLang, defCollection string, log *logrus.Entry) ManifestSummary {
	s := ManifestSummary{
		TotalRows:    len(rows),
		ByExtension:  map[string]int{},
		ByLang:       map[string]int{},
		ByCollection: map[string]int{},
	}
	seen := map[string]int{}
	for _, r := range rows {
		ext := strings.ToLower(filepath.Ext(r.Path))
		if ext == "" {
			ext = "(none)"
		}
		s.ByExtension[ext]++
		s.ByLang[orDefault(r.Lang, defLang)]++
		s.ByCollection[orDefault(r.Collection, defCollection)]++
		seen[r.Path]++
	}
	for p, n := range seen {
		if n > 1 {
			s.Duplicates = append(s.Duplicates, p)
		}
	}
	sort.Strings(s.Duplicates)

	if log != nil {
		log.WithFields(logrus.Fields{
			"total_rows":  s.TotalRows,
			"extensions":  len(s.ByExtension),
			"collections": len(s.ByCollection),
			"duplicates":  len(s.Duplicates),
		}).Info("manifest summarized")
	}
	return s
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
