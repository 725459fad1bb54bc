package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-qa-go/internal/types"
)

func TestStageAndPersist(t *testing.T) {
	root := filepath.Join(t.TempDir(), "public", "uploads")
	d, err := Open(root, "/uploads/")
	require.NoError(t, err)

	m, err := d.Stage("lecture 1.mp4", strings.NewReader("video-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("video-bytes")), m.Size)
	assert.Equal(t, root, filepath.Dir(m.TempPath))

	art, err := d.Persist(m, "lecture_1_1_abc.mp4")
	require.NoError(t, err)
	assert.Equal(t, types.ArtifactVideo, art.Kind)
	assert.Equal(t, "/uploads/lecture_1_1_abc.mp4", art.URL)
	assert.NoFileExists(t, m.TempPath)

	data, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.True(t, d.Exists(art))
}

func TestPersistMissingStagingFile(t *testing.T) {
	d, err := Open(t.TempDir(), "/uploads")
	require.NoError(t, err)
	_, err = d.Persist(types.UploadedMedia{TempPath: filepath.Join(d.Root(), "gone")}, "x.mp4")
	require.Error(t, err)
}

func TestArtifactStaysInsideRoot(t *testing.T) {
	d, err := Open(t.TempDir(), "/uploads")
	require.NoError(t, err)
	art := d.Artifact(types.ArtifactAudio, "../../etc/passwd")
	assert.Equal(t, d.Root(), filepath.Dir(art.Path))
	assert.Equal(t, "/uploads/passwd", art.URL)
}

func TestRemoveIgnoresMissing(t *testing.T) {
	d, err := Open(t.TempDir(), "/uploads")
	require.NoError(t, err)
	art := d.Artifact(types.ArtifactAudio, "a.mp3")
	require.NoError(t, d.Remove(art))

	require.NoError(t, os.WriteFile(art.Path, []byte("x"), 0o644))
	require.NoError(t, d.Remove(art))
	assert.False(t, d.Exists(art))
}

func TestDiscard(t *testing.T) {
	d, err := Open(t.TempDir(), "/uploads")
	require.NoError(t, err)
	m, err := d.Stage("a.mp4", strings.NewReader("x"))
	require.NoError(t, err)
	d.Discard(m)
	assert.NoFileExists(t, m.TempPath)
}

func TestIsStaging(t *testing.T) {
	d, err := Open(t.TempDir(), "/uploads")
	require.NoError(t, err)
	m, err := d.Stage("clip.mp4", strings.NewReader("x"))
	require.NoError(t, err)

	assert.True(t, IsStaging(m.TempPath))
	assert.True(t, IsStaging("/"+filepath.Base(m.TempPath)))
	assert.False(t, IsStaging("/clip_1_abc.mp4"))
	assert.False(t, IsStaging(".hidden_1_abc.mp4"))
}
