package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/similarity"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service melodymatch.Service
	config  *ServerConfig
	log     melodymatch.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	ConfigPath     string
	AllowedOrigins []string
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service melodymatch.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps service errors onto HTTP status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, melodymatch.ErrSongNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, melodymatch.ErrInvalidSong), errors.Is(err, similarity.ErrDimensionMismatch):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, fmt.Sprintf("Timed out: %s", action))
	default:
		s.log.Errorf("Failed to %s: %v", action, err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s", action))
	}
}

// decodeJSON decodes a size-limited request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "MelodyMatch API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
			"similar":    "GET /api/songs/{id}/similar",
			"similarity": "POST /api/similarity",
			"match":      "POST /api/match",
			"predict":    "POST /api/predict",
			"search":     "GET /api/search?q=",
			"range":      "GET /api/range?min=&max=",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	st := s.service.Stats()
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:          "healthy",
		DatabasePath:    s.config.DBPath,
		SongCount:       st.Songs,
		Dimension:       st.Dimension,
		OrderedIndex:    st.OrderedIndex,
		PrefixIndex:     st.PrefixIndex,
		IndexHeight:     st.IndexHeight,
		LastBuild:       st.BuiltAt.Format(time.RFC3339),
		BuildDurationMs: float64(st.BuildDuration.Microseconds()) / 1000,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs()
	if err != nil {
		s.respondServiceError(w, "retrieve songs", err)
		return
	}

	dtos := toSongDTOs(songs)
	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: dtos,
		Count: len(dtos),
	})
}

// handleAddSong handles POST /api/songs
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var req AddSongRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	songID, err := s.service.AddSong(r.Context(), req.Name, req.Artist, req.Features)
	if err != nil {
		s.respondServiceError(w, "add song", err)
		return
	}

	s.log.Infof("Successfully added song: %s by %s (ID: %s)", req.Name, req.Artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully",
		ID:      songID,
		Name:    strings.TrimSpace(req.Name),
		Artist:  strings.TrimSpace(req.Artist),
	})
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID string) {
	song, err := s.service.GetSongByID(songID)
	if err != nil {
		s.respondServiceError(w, "retrieve song", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSongDTO(*song, true))
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID string) {
	if err := s.service.DeleteSong(songID); err != nil {
		s.respondServiceError(w, "delete song", err)
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

// handleSimilar handles GET /api/songs/{id}/similar
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request, songID string) {
	topK, err := queryInt(r, "top_k")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.service.MatchCatalog(r.Context(), songID, s.service.Defaults().ClampTopK(topK))
	if err != nil {
		s.respondServiceError(w, "match song", err)
		return
	}

	matches := toMatchDTOs(results)
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: matches, Count: len(matches)})
}

// handleSimilarity handles POST /api/similarity
func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SimilarityRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sim, err := s.service.Similarity(req.Song1.Features, req.Song2.Features)
	if err != nil {
		s.respondServiceError(w, "compute similarity", err)
		return
	}
	s.respondJSON(w, http.StatusOK, SimilarityResponse{Similarity: sim})
}

// handleMatch handles POST /api/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req MatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Candidates) >= CandidateWarningThreshold {
		s.log.Warnf("Large candidate batch received: %d candidates", len(req.Candidates))
	}

	candidates := make([]models.Song, len(req.Candidates))
	for i, c := range req.Candidates {
		candidates[i] = c.toModel()
	}

	results, err := s.service.Match(ctx, req.Target.toModel(), candidates, s.service.Defaults().ClampTopK(req.TopK))
	if err != nil {
		s.respondServiceError(w, "match candidates", err)
		return
	}

	matches := toMatchDTOs(results)
	s.log.Debugf("Match complete: %d candidates, %d matches", len(candidates), len(matches))
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: matches, Count: len(matches)})
}

// handlePredict handles POST /api/predict
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req PredictRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	defaults := s.service.Defaults()
	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = defaults.Tolerance
	}

	p, err := s.service.PredictSimilar(r.Context(), req.SongID, tolerance, defaults.ClampTopK(req.TopK))
	if err != nil {
		s.respondServiceError(w, "predict similar songs", err)
		return
	}

	matches := toMatchDTOs(p.Matches)
	s.respondJSON(w, http.StatusOK, PredictResponse{
		Matches:    matches,
		Count:      len(matches),
		Tolerance:  p.Tolerance,
		Widened:    p.Widened,
		Candidates: p.Candidates,
	})
}

// handleSearch handles GET /api/search?q=&limit=&exact=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	exact, _ := strconv.ParseBool(r.URL.Query().Get("exact"))

	var songs []models.Song
	if exact {
		songs = s.service.LookupByName(q)
	} else {
		songs = s.service.SearchByName(q, s.service.Defaults().ClampResults(limit))
	}

	dtos := toSongDTOs(songs)
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

// handleRange handles GET /api/range?min=&max=
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	minKey, err := strconv.ParseFloat(r.URL.Query().Get("min"), 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "min must be a number")
		return
	}
	maxKey, err := strconv.ParseFloat(r.URL.Query().Get("max"), 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "max must be a number")
		return
	}

	dtos := toSongDTOs(s.service.SongsInRange(minKey, maxKey))
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSong(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSong routes requests to /api/songs/{id} and /api/songs/{id}/similar
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/songs/"), "/")
	if rest == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}

	parts := strings.Split(rest, "/")
	songID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGetSong(w, r, songID)
		case http.MethodDelete:
			s.handleDeleteSong(w, r, songID)
		default:
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case len(parts) == 2 && parts[1] == "similar":
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleSimilar(w, r, songID)
	default:
		http.NotFound(w, r)
	}
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
