package http

import (
	"mime"
	"net/http"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// attachmentWriter delays the download headers until the first byte is
// written, so a service error raised before any output can still be
// answered with a problem document.
type attachmentWriter struct {
	http.ResponseWriter
	contentType string
	filename    string
	started     bool
	written     int64
}

func newAttachment(w http.ResponseWriter, contentType, filename string) *attachmentWriter {
	return &attachmentWriter{ResponseWriter: w, contentType: contentType, filename: filename}
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		h := a.Header()
		h.Set("Content-Type", a.contentType)
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.filename}))
		h.Set("Cache-Control", "no-store")
		a.WriteHeader(http.StatusOK)
	}
	n, err := a.ResponseWriter.Write(p)
	a.written += int64(n)
	return n, err
}
