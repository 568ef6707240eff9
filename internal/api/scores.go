package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gridlock-dev/gridlock/internal/sim"
	"github.com/gridlock-dev/gridlock/internal/store"
)

// ScoreRequest carries a score submission. There is deliberately no move
// count or duration field: the server stores only what re-simulation proves.
type ScoreRequest struct {
	Replay string `json:"replay"`
}

// ScoreResponse reports the verified result
type ScoreResponse struct {
	OK       bool `json:"ok"`
	Moves    int  `json:"moves"`
	Improved bool `json:"improved"`
}

// LeaderboardResponse is a level's top scores
type LeaderboardResponse struct {
	LevelID string                   `json:"level_id"`
	Entries []store.LeaderboardEntry `json:"entries"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	level, err := s.db.GetLevel(chi.URLParam(r, "levelID"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !level.Published {
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
		return
	}

	var req ScoreRequest
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
		s.internalError(w, r, err)
		return
	}

	user := userFrom(r.Context())
	if !verdict.OK {
		s.log.WithFields(map[string]interface{}{
			"level_id": level.ID,
			"user_id":  user.ID,
			"moves":    verdict.Moves,
		}).Warn("score_rejected")
		s.writeError(w, r, http.StatusUnprocessableEntity, ErrTypeVerification,
			"replay does not clear the level")
		return
	}

	improved, err := s.db.UpsertBestScore(&store.Score{
		LevelID: level.ID,
		UserID:  user.ID,
		Moves:   verdict.Moves,
		Replay:  req.Replay,
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.log.WithFields(map[string]interface{}{
		"level_id": level.ID,
		"user_id":  user.ID,
		"moves":    verdict.Moves,
		"improved": improved,
	}).Info("score_verified")

	s.writeJSON(w, http.StatusOK, ScoreResponse{
		OK:       true,
		Moves:    verdict.Moves,
		Improved: improved,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	level, err := s.db.GetLevel(chi.URLParam(r, "levelID"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if !level.Published {
		s.writeError(w, r, http.StatusNotFound, ErrTypeNotFound, "level not found")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.db.TopScores(level.ID, limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LeaderboardResponse{LevelID: level.ID, Entries: entries})
}
