package types

import "encoding/json"

// UploadedMedia is one incoming file, staged in the upload directory under a
// temporary name until the pipeline persists it.
type UploadedMedia struct {
	OriginalName string `json:"original_name"`
	TempPath     string `json:"temp_path"`
	Size         int64  `json:"size"`
}

type ArtifactKind string

const (
	ArtifactVideo ArtifactKind = "video"
	ArtifactAudio ArtifactKind = "audio"
)

// StoredArtifact is a file written once to the upload directory.
type StoredArtifact struct {
	Kind ArtifactKind `json:"kind"`
	Name string       `json:"name"`
	Path string       `json:"-"`
	URL  string       `json:"url"`
}

// PipelineResult is what an upload returns to its caller. DocName is set only
// when the transcript was both produced and registered.
type PipelineResult struct {
	VideoURL   string `json:"videoUrl"`
	AudioURL   string `json:"audioUrl,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	DocName    string `json:"docName,omitempty"`
	Message    string `json:"message,omitempty"`
}

// HasTranscript reports whether the audio branch ran to completion.
func (r PipelineResult) HasTranscript() bool {
	return r.DocName != ""
}

// MarshalJSON always emits transcript once the audio branch completed, even
// when the service transcribed nothing.
func (r PipelineResult) MarshalJSON() ([]byte, error) {
	type plain PipelineResult
	if !r.HasTranscript() {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Transcript string `json:"transcript"`
	}{plain(r), r.Transcript})
}

// ManifestRow is one entry of a batch ingestion manifest.
type ManifestRow struct {
	Row        int    `json:"row"`
	Path       string `json:"path"`
	Lang       string `json:"lang,omitempty"`
	Collection string `json:"collection,omitempty"`
}
