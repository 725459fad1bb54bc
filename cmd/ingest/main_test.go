package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"video-qa-go/internal/dataset"
	"video-qa-go/internal/logger"
)

func manifest(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"video", "lang"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"a.mp4", "fr"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"b.mp4", ""}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"c.mkv", ""}))
	path := filepath.Join(t.TempDir(), "videos.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestDryRunPrintsSummary(t *testing.T) {
	cmd := newRootCommand(logger.Discard())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--manifest", manifest(t), "--dry-run", "--limit", "2", "--lang", "en"})
	require.NoError(t, cmd.Execute())

	var s dataset.ManifestSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, 2, s.TotalRows)
	assert.Equal(t, map[string]int{"fr": 1, "en": 1}, s.ByLang)
	assert.Equal(t, map[string]int{".mp4": 2}, s.ByExtension)
	assert.Equal(t, map[string]int{"(default)": 2}, s.ByCollection)
}

func TestManifestFlagRequired(t *testing.T) {
	cmd := newRootCommand(logger.Discard())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}

func TestNegativeLimit(t *testing.T) {
	cmd := newRootCommand(logger.Discard())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--manifest", manifest(t), "--limit", "-1"})
	assert.ErrorContains(t, cmd.Execute(), "--limit")
}
