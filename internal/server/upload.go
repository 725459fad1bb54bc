package server

import (
	"errors"
	"net/http"

	"video-qa-go/internal/pipeline"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "upload")

	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeStageError(w, pipeline.Malformed("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeStageError(w, pipeline.Malformed("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Warn("missing file field")
		s.writeStageError(w, pipeline.Malformed("missing file field"))
		return
	}
	defer file.Close()

	media, err := s.store.Stage(header.Filename, file)
	if err != nil {
		log.WithError(err).Error("staging upload failed")
		s.writeStageError(w, &pipeline.StageError{Kind: pipeline.PersistFailed, Err: err})
		return
	}
	defer s.store.Discard(media)

	log.WithField("original", header.Filename).WithField("size", media.Size).Info("upload received")
	res, err := s.pipeline.Run(r.Context(), pipeline.Request{
		Media:      media,
		Lang:       r.FormValue("lang"),
		Collection: r.FormValue("collection"),
	})
	if err != nil {
		s.writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeStageError(w http.ResponseWriter, err error) {
	var se *pipeline.StageError
	if !errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, "Upload failed", err.Error())
		return
	}
	status := http.StatusInternalServerError
	if se.Kind == pipeline.MalformedUpload {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{
		Error:   se.Kind.Message(),
		Stage:   string(se.Kind),
		Details: se.Details(),
	})
}
