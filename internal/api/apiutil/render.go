package apiutil

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

// RenderHTML renders into a buffer first so a failing component never leaves a half-written page.
func RenderHTML(w http.ResponseWriter, r *http.Request, status int, component templ.Component, logMsg string) bool {
	logger := log.Ctx(r.Context())
	var buf bytes.Buffer
	if err := component.Render(r.Context(), &buf); err != nil {
		logger.Error().Err(err).Msg(logMsg)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return false
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("Failed to write response")
	}
	return true
}
