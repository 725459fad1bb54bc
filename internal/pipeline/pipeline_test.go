package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-qa-go/internal/chatbees"
	"video-qa-go/internal/logger"
	"video-qa-go/internal/metrics"
	"video-qa-go/internal/naming"
	"video-qa-go/internal/storage"
	"video-qa-go/internal/transcription"
)

type recorder struct{ calls []string }

func (r *recorder) add(format string, args ...any) { r.calls = append(r.calls, fmt.Sprintf(format, args...)) }

type fakeInspector struct {
	rec      *recorder
	hasAudio bool
	err      error
}

func (f *fakeInspector) HasAudioStream(_ context.Context, path string) (bool, error) {
	f.rec.add("probe %s", filepath.Base(path))
	return f.hasAudio, f.err
}

type fakeExtractor struct {
	rec *recorder
	err error
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, videoPath, audioPath string) error {
	f.rec.add("extract %s", filepath.Base(audioPath))
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(audioPath, []byte("audio"), 0o644)
}

type fakeTranscriber struct {
	rec  *recorder
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath, lang string) (string, error) {
	f.rec.add("transcribe %s %s", filepath.Base(audioPath), lang)
	return f.text, f.err
}

type fakeRegistrar struct {
	rec  *recorder
	err  error
	docs []chatbees.DocName
}

func (f *fakeRegistrar) AddDocument(_ context.Context, collection string, doc chatbees.DocName, text string) error {
	f.rec.add("register %s %s", collection, doc)
	f.docs = append(f.docs, doc)
	return f.err
}

type harness struct {
	t     *testing.T
	dir   *storage.Dir
	rec   *recorder
	insp  *fakeInspector
	ext   *fakeExtractor
	trans *fakeTranscriber
	reg   *fakeRegistrar
	opts  Options
}

func newHarness(t *testing.T) *harness {
	dir, err := storage.Open(t.TempDir(), "/uploads")
	require.NoError(t, err)
	rec := &recorder{}
	return &harness{
		t:     t,
		dir:   dir,
		rec:   rec,
		insp:  &fakeInspector{rec: rec, hasAudio: true},
		ext:   &fakeExtractor{rec: rec},
		trans: &fakeTranscriber{rec: rec, text: " the lecture text "},
		reg:   &fakeRegistrar{rec: rec},
		opts:  Options{Collection: "lectures", Language: "en"},
	}
}

func (h *harness) pipeline() *Pipeline {
	return New(Deps{
		Store:       h.dir,
		Inspector:   h.insp,
		Extractor:   h.ext,
		Transcriber: h.trans,
		Registrar:   h.reg,
		Metrics:     metrics.MustNew(prometheus.NewRegistry()),
		Log:         logger.Discard().Entry,
	}, h.opts)
}

func (h *harness) upload(name, content string) Request {
	m, err := h.dir.Stage(name, strings.NewReader(content))
	require.NoError(h.t, err)
	return Request{Media: m}
}

func (h *harness) files() []string {
	entries, err := os.ReadDir(h.dir.Root())
	require.NoError(h.t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestRunWithAudio(t *testing.T) {
	h := newHarness(t)
	res, err := h.pipeline().Run(context.Background(), h.upload("lecture 1.mp4", "bytes"))
	require.NoError(t, err)

	stem := strings.TrimPrefix(strings.TrimSuffix(res.VideoURL, ".mp4"), "/uploads/")
	assert.Regexp(t, `^lecture_1_\d+_[0-9a-f]{12}$`, stem)
	assert.Equal(t, "/uploads/"+stem+".mp3", res.AudioURL)
	assert.Equal(t, " the lecture text ", res.Transcript)
	assert.Equal(t, stem, res.DocName)
	assert.Empty(t, res.Message)

	assert.Equal(t, []string{
		"probe " + stem + ".mp4",
		"extract " + stem + ".mp3",
		"transcribe " + stem + ".mp3 en",
		"register lectures " + stem,
	}, h.rec.calls)
	require.Len(t, h.reg.docs, 1)
	assert.Equal(t, naming.Stem(stem+".mp4"), h.reg.docs[0].String())
	assert.ElementsMatch(t, []string{stem + ".mp4", stem + ".mp3"}, h.files())
}

func TestRunEmptyTranscriptStillRegistered(t *testing.T) {
	h := newHarness(t)
	h.trans.text = ""
	res, err := h.pipeline().Run(context.Background(), h.upload("quiet talk.mp4", "bytes"))
	require.NoError(t, err)

	assert.True(t, res.HasTranscript())
	require.Len(t, h.reg.docs, 1)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "", out["transcript"])
	assert.Contains(t, out, "audioUrl")
	assert.Contains(t, out, "docName")
	assert.NotContains(t, out, "message")
}

func TestRunAudioUploadGetsSeparateArtifact(t *testing.T) {
	h := newHarness(t)
	res, err := h.pipeline().Run(context.Background(), h.upload("podcast.MP3", "bytes"))
	require.NoError(t, err)

	stem := strings.TrimPrefix(strings.TrimSuffix(res.VideoURL, ".MP3"), "/uploads/")
	assert.Regexp(t, `^podcast_\d+_[0-9a-f]{12}$`, stem)
	assert.Equal(t, "/uploads/"+stem+"_audio.mp3", res.AudioURL)
	assert.NotEqual(t, res.VideoURL, res.AudioURL)
	assert.Equal(t, stem, res.DocName)
	assert.Contains(t, h.rec.calls, "extract "+stem+"_audio.mp3")
	assert.ElementsMatch(t, []string{stem + ".MP3", stem + "_audio.mp3"}, h.files())

	data, err := os.ReadFile(filepath.Join(h.dir.Root(), stem+".MP3"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data), "original upload must not be overwritten")
}

func TestAudioName(t *testing.T) {
	assert.Equal(t, "a_1_x.mp3", audioName("a_1_x.mp4"))
	assert.Equal(t, "a_1_x_audio.mp3", audioName("a_1_x.mp3"))
	assert.Equal(t, "a_1_x_audio.mp3", audioName("a_1_x.Mp3"))
	assert.Equal(t, "noext.mp3", audioName("noext"))
}

func TestRunWithoutAudio(t *testing.T) {
	h := newHarness(t)
	h.insp.hasAudio = false
	res, err := h.pipeline().Run(context.Background(), h.upload("silent_clip.mp4", "bytes"))
	require.NoError(t, err)

	assert.Regexp(t, `^/uploads/silent_clip_\d+_[0-9a-f]{12}\.mp4$`, res.VideoURL)
	assert.Equal(t, NoAudioMessage, res.Message)
	assert.Empty(t, res.AudioURL)
	assert.Empty(t, res.Transcript)
	assert.Empty(t, res.DocName)
	assert.False(t, res.HasTranscript())
	assert.Len(t, h.rec.calls, 1)
	assert.Len(t, h.files(), 1)
}

func TestRunProbeFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.insp.err = errors.New("ffprobe: exit status 1")
	res, err := h.pipeline().Run(context.Background(), h.upload("a.mp4", "x"))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ProbeFailed, kind)
	assert.Zero(t, res)
	assert.Len(t, h.rec.calls, 1, "nothing may run after a failed probe")
}

func TestRunExtractionFailure(t *testing.T) {
	h := newHarness(t)
	h.ext.err = errors.New("ffmpeg: exit status 1")
	res, err := h.pipeline().Run(context.Background(), h.upload("a.mp4", "x"))

	kind, _ := KindOf(err)
	assert.Equal(t, ExtractionFailed, kind)
	assert.Zero(t, res)
	assert.Len(t, h.rec.calls, 2)
}

func TestRunTranscriptionRejectedSkipsRegistration(t *testing.T) {
	h := newHarness(t)
	h.trans.err = &chatbees.StatusError{Endpoint: "/docs/transcribe_audio", Status: 500, Reason: "Internal Server Error"}
	res, err := h.pipeline().Run(context.Background(), h.upload("a.mp4", "x"))

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, TranscriptionFailed, se.Kind)
	assert.Contains(t, se.Details(), "status: 500")
	assert.Zero(t, res)
	assert.Empty(t, h.reg.docs)
}

func TestRunTranscriptionUnreachable(t *testing.T) {
	h := newHarness(t)
	h.trans.err = fmt.Errorf("%w: connection refused", transcription.ErrUnreachable)
	_, err := h.pipeline().Run(context.Background(), h.upload("a.mp4", "x"))

	kind, _ := KindOf(err)
	assert.Equal(t, TranscriptionUnreachable, kind)
	assert.Empty(t, h.reg.docs)
}

func TestRunRegistrationFailureLeavesArtifacts(t *testing.T) {
	h := newHarness(t)
	h.reg.err = &chatbees.StatusError{Endpoint: "/docs/add", Status: 400, Reason: "Bad Request"}
	res, err := h.pipeline().Run(context.Background(), h.upload("lecture 1.mp4", "x"))

	kind, _ := KindOf(err)
	assert.Equal(t, RegistrationFailed, kind)
	assert.Zero(t, res)

	files := h.files()
	require.Len(t, files, 2)
	var exts []string
	for _, f := range files {
		exts = append(exts, filepath.Ext(f))
	}
	assert.ElementsMatch(t, []string{".mp4", ".mp3"}, exts)
}

func TestRunCleanupOnFailure(t *testing.T) {
	h := newHarness(t)
	h.opts.CleanupOnFailure = true
	h.reg.err = errors.New("boom")
	_, err := h.pipeline().Run(context.Background(), h.upload("a.mp4", "x"))
	require.Error(t, err)
	assert.Empty(t, h.files())
}

func TestRunPersistFailure(t *testing.T) {
	h := newHarness(t)
	req := Request{}
	req.Media.OriginalName = "a.mp4"
	req.Media.TempPath = filepath.Join(h.dir.Root(), "does-not-exist")
	_, err := h.pipeline().Run(context.Background(), req)

	kind, _ := KindOf(err)
	assert.Equal(t, PersistFailed, kind)
	assert.Empty(t, h.rec.calls)
}

func TestRunMalformedUpload(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline().Run(context.Background(), Request{})
	kind, _ := KindOf(err)
	assert.Equal(t, MalformedUpload, kind)
	assert.Equal(t, "No file uploaded", kind.Message())
}

func TestRunIsNotIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline()
	first, err := p.Run(context.Background(), h.upload("same.mp4", "identical bytes"))
	require.NoError(t, err)
	second, err := p.Run(context.Background(), h.upload("same.mp4", "identical bytes"))
	require.NoError(t, err)

	assert.NotEqual(t, first.VideoURL, second.VideoURL)
	assert.NotEqual(t, first.DocName, second.DocName)
	assert.Len(t, h.reg.docs, 2)
	assert.Len(t, h.files(), 4)
}

func TestRunRequestOverrides(t *testing.T) {
	h := newHarness(t)
	req := h.upload("a.mp4", "x")
	req.Lang = "ja"
	req.Collection = "jp-edu"
	_, err := h.pipeline().Run(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, h.rec.calls[2], " ja")
	assert.True(t, strings.HasPrefix(h.rec.calls[3], "register jp-edu "))
}

type scopedTranscriber struct {
	fakeTranscriber
	collections []string
}

func (s *scopedTranscriber) ForCollection(c string) transcription.Transcriber {
	s.collections = append(s.collections, c)
	return &s.fakeTranscriber
}

func TestRunScopesTranscriberToCollection(t *testing.T) {
	h := newHarness(t)
	st := &scopedTranscriber{fakeTranscriber: fakeTranscriber{rec: h.rec, text: "t"}}
	p := New(Deps{
		Store: h.dir, Inspector: h.insp, Extractor: h.ext, Transcriber: st, Registrar: h.reg,
		Log: logger.Discard().Entry,
	}, h.opts)
	_, err := p.Run(context.Background(), h.upload("a.mp4", "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"lectures"}, st.collections)
}
