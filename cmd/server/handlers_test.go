package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/MelodyMatch/pkg/logger"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func setupTestServer(t *testing.T) (http.Handler, melodymatch.Service) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "server.sqlite3")
	svc, err := melodymatch.NewService(melodymatch.WithDBPath(dbPath), melodymatch.WithLogger(logger.GetLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	srv := NewServer(svc, &ServerConfig{DBPath: dbPath, AllowedOrigins: []string{"*"}})
	return srv.setupRoutes(), svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func addSong(t *testing.T, h http.Handler, name string, features ...float64) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/songs", AddSongRequest{Name: name, Artist: "Band", Features: features})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[AddSongResponse](t, rec).ID
}

func TestHealth(t *testing.T) {
	h, _ := setupTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = doJSON(t, h, http.MethodOptions, "/api/match", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSimilarityEndpoint(t *testing.T) {
	h, _ := setupTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/similarity", SimilarityRequest{
		Song1: SongInput{Features: []float64{1, 0}},
		Song2: SongInput{Features: []float64{1, 0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1.0, decode[SimilarityResponse](t, rec).Similarity, 1e-12)

	rec = doJSON(t, h, http.MethodPost, "/api/similarity", SimilarityRequest{
		Song1: SongInput{Features: []float64{1, 0}},
		Song2: SongInput{Features: []float64{1, 0, 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/similarity", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMatchEndpoint(t *testing.T) {
	h, _ := setupTestServer(t)

	req := MatchRequest{
		Target: SongInput{ID: "A", Features: []float64{1, 0}},
		Candidates: []SongInput{
			{ID: "B", Name: "b", Features: []float64{0.9, 0.1}},
			{ID: "C", Name: "c", Features: []float64{0, 1}},
		},
		TopK: 1,
	}
	rec := doJSON(t, h, http.MethodPost, "/api/match", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[MatchResponse](t, rec)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "B", resp.Matches[0].SongID)
	assert.InDelta(t, 0.9939, resp.Matches[0].Similarity, 1e-4)

	// Omitted top_k falls back to the default of 5, capped by the candidate count.
	req.TopK = 0
	rec = doJSON(t, h, http.MethodPost, "/api/match", req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[MatchResponse](t, rec).Count)

	req.Candidates = append(req.Candidates, SongInput{ID: "D", Features: []float64{1, 2, 3}})
	rec = doJSON(t, h, http.MethodPost, "/api/match", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/match", MatchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSongLifecycle(t *testing.T) {
	h, _ := setupTestServer(t)

	catID := addSong(t, h, "Cat", 0.1, 0.9)
	addSong(t, h, "Car", 0.2, 0.8)
	addSong(t, h, "Cap", 0.25, 0.1)

	rec := doJSON(t, h, http.MethodGet, "/api/songs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[ListSongsResponse](t, rec).Count)

	rec = doJSON(t, h, http.MethodGet, "/api/songs/"+catID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	song := decode[SongDTO](t, rec)
	assert.Equal(t, "Cat", song.Name)
	assert.Equal(t, []float64{0.1, 0.9}, song.Features)

	rec = doJSON(t, h, http.MethodGet, "/api/search?q=CA&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[ListSongsResponse](t, rec)
	require.Equal(t, 2, found.Count)
	assert.Equal(t, "Cat", found.Songs[0].Name)
	assert.Equal(t, "Car", found.Songs[1].Name)

	rec = doJSON(t, h, http.MethodGet, "/api/search?q=cap&exact=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[ListSongsResponse](t, rec).Count)

	rec = doJSON(t, h, http.MethodGet, "/api/range?min=0.15&max=0.25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[ListSongsResponse](t, rec).Count)

	rec = doJSON(t, h, http.MethodGet, "/api/songs/"+catID+"/similar?top_k=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	similar := decode[MatchResponse](t, rec)
	require.Equal(t, 1, similar.Count)
	assert.Equal(t, "Car", similar.Matches[0].Name)

	rec = doJSON(t, h, http.MethodPost, "/api/predict", PredictRequest{SongID: catID, Tolerance: 0.12, TopK: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pred := decode[PredictResponse](t, rec)
	// Only Car lies within 0.12, so the default policy widens once.
	assert.True(t, pred.Widened)
	assert.InDelta(t, 0.24, pred.Tolerance, 1e-12)
	assert.Equal(t, 2, pred.Candidates)

	rec = doJSON(t, h, http.MethodDelete, "/api/songs/"+catID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/songs/"+catID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, rec).Code)

	rec = doJSON(t, h, http.MethodPost, "/api/predict", PredictRequest{SongID: catID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddSongValidation(t *testing.T) {
	h, _ := setupTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/songs", AddSongRequest{Name: "", Features: []float64{1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	addSong(t, h, "First", 1, 0)
	rec = doJSON(t, h, http.MethodPost, "/api/songs", AddSongRequest{Name: "Second", Features: []float64{1, 0, 0}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/songs", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetrics(t *testing.T) {
	h, _ := setupTestServer(t)
	addSong(t, h, "One", 0.5, 0.5)

	rec := doJSON(t, h, http.MethodGet, "/api/health/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	m := decode[MetricsResponse](t, rec)
	assert.Equal(t, 1, m.SongCount)
	assert.Equal(t, 2, m.Dimension)
	assert.Equal(t, "bst", m.OrderedIndex)
	assert.Equal(t, "trie", m.PrefixIndex)
}
