package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// Request limit constants for validation
const (
	// MaxRequestBytes caps every JSON request body.
	MaxRequestBytes = 10 << 20

	// MaxFeatures is the longest feature vector accepted.
	MaxFeatures = 4096

	// MaxCandidates caps POST /api/match candidate lists.
	MaxCandidates = 50000

	// CandidateWarningThreshold triggers logging for large candidate lists
	CandidateWarningThreshold = 10000
)

// SongInput is a song supplied inline by the client.
type SongInput struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Artist   string    `json:"artist,omitempty"`
	Features []float64 `json:"features"`
}

func (s SongInput) toModel() models.Song {
	return models.Song{ID: s.ID, Name: s.Name, Artist: s.Artist, Features: s.Features}
}

func validateFeatures(field string, features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("%s: features cannot be empty", field)
	}
	if len(features) > MaxFeatures {
		return fmt.Errorf("%s: too many features: %d (maximum: %d)", field, len(features), MaxFeatures)
	}
	for i, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%s: feature %d is not a finite number", field, i)
		}
	}
	return nil
}

// AddSongRequest is the request body for POST /api/songs
type AddSongRequest struct {
	Name     string    `json:"name"`
	Artist   string    `json:"artist"`
	Features []float64 `json:"features"`
}

// Validate checks if the request is valid
func (r *AddSongRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return validateFeatures("features", r.Features)
}

// SimilarityRequest is the request body for POST /api/similarity
type SimilarityRequest struct {
	Song1 SongInput `json:"song1"`
	Song2 SongInput `json:"song2"`
}

func (r *SimilarityRequest) Validate() error {
	if err := validateFeatures("song1", r.Song1.Features); err != nil {
		return err
	}
	return validateFeatures("song2", r.Song2.Features)
}

// SimilarityResponse is the response for POST /api/similarity
type SimilarityResponse struct {
	Similarity float64 `json:"similarity"`
}

// MatchRequest is the request body for POST /api/match
type MatchRequest struct {
	Target     SongInput   `json:"target"`
	Candidates []SongInput `json:"candidates"`
	// TopK defaults to the service default when omitted or zero.
	TopK int `json:"top_k,omitempty"`
}

func (r *MatchRequest) Validate() error {
	if err := validateFeatures("target", r.Target.Features); err != nil {
		return err
	}
	if len(r.Candidates) > MaxCandidates {
		return fmt.Errorf("too many candidates: %d (maximum: %d)", len(r.Candidates), MaxCandidates)
	}
	for i, c := range r.Candidates {
		if err := validateFeatures(fmt.Sprintf("candidates[%d]", i), c.Features); err != nil {
			return err
		}
	}
	return nil
}

// PredictRequest is the request body for POST /api/predict
type PredictRequest struct {
	SongID string `json:"song_id"`
	// Tolerance defaults to the service default when omitted or zero.
	Tolerance float64 `json:"tolerance,omitempty"`
	TopK      int     `json:"top_k,omitempty"`
}

func (r *PredictRequest) Validate() error {
	if r.SongID == "" {
		return fmt.Errorf("song_id is required")
	}
	if r.Tolerance < 0 || math.IsNaN(r.Tolerance) || math.IsInf(r.Tolerance, 0) {
		return fmt.Errorf("tolerance must be a non-negative number")
	}
	return nil
}

// MatchResultDTO represents a single match result
type MatchResultDTO struct {
	SongID     string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Similarity float64 `json:"similarity"`
}

func toMatchDTOs(results []models.MatchResult) []MatchResultDTO {
	dtos := make([]MatchResultDTO, len(results))
	for i, r := range results {
		dtos[i] = MatchResultDTO{
			SongID:     r.SongID,
			Name:       r.Name,
			Artist:     r.Artist,
			Similarity: r.Similarity,
		}
	}
	return dtos
}

// MatchResponse is the response for POST /api/match and GET /api/songs/{id}/similar
type MatchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

// PredictResponse is the response for POST /api/predict
type PredictResponse struct {
	Matches    []MatchResultDTO `json:"matches"`
	Count      int              `json:"count"`
	Tolerance  float64          `json:"tolerance"`
	Widened    bool             `json:"widened"`
	Candidates int              `json:"candidates"`
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artist  string `json:"artist"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Artist    string    `json:"artist"`
	Dimension int       `json:"dimension"`
	Features  []float64 `json:"features,omitempty"`
}

func toSongDTO(song models.Song, withFeatures bool) SongDTO {
	dto := SongDTO{
		ID:        song.ID,
		Name:      song.Name,
		Artist:    song.Artist,
		Dimension: song.Dimension(),
	}
	if withFeatures {
		dto.Features = song.Features
	}
	return dto
}

func toSongDTOs(songs []models.Song) []SongDTO {
	dtos := make([]SongDTO, len(songs))
	for i, s := range songs {
		dtos[i] = toSongDTO(s, false)
	}
	return dtos
}

// ListSongsResponse is the response for GET /api/songs, /api/search and /api/range
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and catalog metrics
type MetricsResponse struct {
	Status          string  `json:"status"`
	DatabasePath    string  `json:"database_path"`
	SongCount       int     `json:"song_count"`
	Dimension       int     `json:"dimension"`
	OrderedIndex    string  `json:"ordered_index"`
	PrefixIndex     string  `json:"prefix_index"`
	IndexHeight     int     `json:"index_height,omitempty"`
	LastBuild       string  `json:"last_build"`
	BuildDurationMs float64 `json:"build_duration_ms"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
