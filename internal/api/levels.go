package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gridlock-dev/gridlock/internal/sim"
	"github.com/gridlock-dev/gridlock/internal/store"
)

const (
	maxTitleLen  = 80
	maxGridBytes = 8192
	maxGridDim   = 64
)

// LevelRequest carries a level create or update
type LevelRequest struct {
	Title string `json:"title"`
	Grid  string `json:"grid"`
}

// PublishRequest carries the owner's proof replay
type PublishRequest struct {
	Replay string `json:"replay"`
}

// ValidateLevelRequest checks title and grid rules; the grid must parse as a
// playable level.
func ValidateLevelRequest(req *LevelRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLen {
		return errors.New("title must be 1-80 characters")
	}
	req.Title = title

	if len(req.Grid) > maxGridBytes {
		return errors.New("grid too large")
	}
	lvl, err := sim.ParseLevel(req.Grid)
	if err != nil {
		return err
	}
	if lvl.Width > maxGridDim || lvl.Height > maxGridDim {
		return errors.New("grid must be at most 64x64 tiles")
	}
	return nil
}

// ownedLevel loads a level and checks it belongs to the requesting user.
func (s *Server) ownedLevel(w http.ResponseWriter, r *http.Request) *store.Level {
	level, err := s.db.GetLevel(chi.URLParam(r, "levelID"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
		return nil
	}
	if err != nil {
		s.internalError(w, r, err)
		return nil
	}
	if level.OwnerID != userFrom(r.Context()).ID {
		s.writeError(w, r, http.StatusForbidden, ErrTypeForbidden, "not your level")
		return nil
	}
	return level
}

func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	var req LevelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}
	if err := ValidateLevelRequest(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}

	level := &store.Level{
		OwnerID: userFrom(r.Context()).ID,
		Title:   req.Title,
		Grid:    req.Grid,
	}
	if err := s.db.CreateLevel(level); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.log.WithField("level_id", level.ID).Info("level_created")
	s.writeJSON(w, http.StatusCreated, level)
}

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	list, err := s.db.ListPublishedLevels(store.LevelsQuery{Page: page, PerPage: perPage})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := s.db.GetLevel(chi.URLParam(r, "levelID"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	// Drafts are visible to their owner only.
	if !level.Published {
		user := userFrom(r.Context())
		if user == nil || user.ID != level.OwnerID {
			s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, level)
}

func (s *Server) handleUpdateLevel(w http.ResponseWriter, r *http.Request) {
	level := s.ownedLevel(w, r)
	if level == nil {
		return
	}
	if level.Published {
		s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "published levels cannot be edited")
		return
	}

	var req LevelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}
	if err := ValidateLevelRequest(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}

	level.Title = req.Title
	level.Grid = req.Grid
	if err := s.db.UpdateLevel(level); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, level)
}

func (s *Server) handleDeleteLevel(w http.ResponseWriter, r *http.Request) {
	level := s.ownedLevel(w, r)
	if level == nil {
		return
	}
	if err := s.db.DeleteLevel(level.ID); err != nil {
		s.internalError(w, r, err)
		return
	}
	s.log.WithField("level_id", level.ID).Info("level_deleted")
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handlePublishLevel gates publishing on a verified proof replay: the level
// goes live only if its owner demonstrably cleared it, and the proven move
// count becomes the level's par.
func (s *Server) handlePublishLevel(w http.ResponseWriter, r *http.Request) {
	level := s.ownedLevel(w, r)
	if level == nil {
		return
	}
	if level.Published {
		s.writeError(w, r, http.StatusConflict, ErrTypeConflict, "level is already published")
		return
	}

	var req PublishRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}

	verdict, err := sim.Verify(level.Grid, req.Replay)
	if errors.Is(err, sim.ErrMalformedReplay) {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}
	if err != nil {
		// The grid was validated at create time; a level failing to parse
		// now is a server-side problem.
		s.internalError(w, r, err)
		return
	}
	if !verdict.OK {
		s.writeError(w, r, http.StatusUnprocessableEntity, ErrTypeVerification,
			"proof replay does not clear the level")
		return
	}

	if err := s.db.PublishLevel(level.ID, verdict.Moves); err != nil {
		s.internalError(w, r, err)
		return
	}

	s.log.WithFields(map[string]interface{}{
		"level_id":  level.ID,
		"par_moves": verdict.Moves,
	}).Info("level_published")

	level.Published = true
	level.ParMoves = verdict.Moves
	s.writeJSON(w, http.StatusOK, level)
}
