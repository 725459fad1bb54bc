package chatbees

import (
	"strings"

	"video-qa-go/internal/naming"
)

const docExt = ".txt"

// DocName identifies a registered transcript. The canonical form is the bare
// stem of the video artifact; the ".txt" form exists only on the wire.
type DocName string

// DocNameFor derives the document name of a stored video artifact.
func DocNameFor(artifactName string) DocName {
	return DocName(naming.Stem(artifactName))
}

// ParseDocName accepts either form from callers.
func ParseDocName(s string) DocName {
	return DocName(strings.TrimSuffix(strings.TrimSpace(s), docExt))
}

func (d DocName) String() string { return string(d) }

// FileName is the name of the uploaded transcript file.
func (d DocName) FileName() string { return string(d) + docExt }

// QueryName is what ask/outline/summary expect in doc_name. AddDocument
// registers the bare stem but uploads the text as FileName, and the service
// keys a document by that uploaded file name, so queries address it with the
// suffix.
func (d DocName) QueryName() string { return d.FileName() }

func (d DocName) Empty() bool { return d == "" }
