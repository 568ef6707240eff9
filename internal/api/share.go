package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gridlock-dev/gridlock/internal/share"
	"github.com/gridlock-dev/gridlock/internal/sim"
	"github.com/gridlock-dev/gridlock/internal/store"
)

// handleShareImage serves the PNG share card for a published level. The
// image depends only on the stored level, so it is cacheable until the level
// changes, and levels cannot change after publish.
func (s *Server) handleShareImage(w http.ResponseWriter, r *http.Request) {
	level, err := s.db.GetLevel(chi.URLParam(r, "levelID"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !level.Published {
		http.NotFound(w, r)
		return
	}

	lvl, err := sim.ParseLevel(level.Grid)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	data, err := share.Render(lvl, level.Title, level.ParMoves)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.WithError(err).Warn("write share image")
	}
}
