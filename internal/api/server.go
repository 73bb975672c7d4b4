// Package api serves a trained supervised model over HTTP.
package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fastvec/internal/corpus"
	"github.com/samcharles93/fastvec/internal/logger"
	"github.com/samcharles93/fastvec/internal/model"
)

// DefaultCacheSize is the number of distinct predictions kept in memory.
const DefaultCacheSize = 4096

// MaxK caps the number of labels a single request may ask for.
const MaxK = 1000

// Labeler maps text to input features and label ids back to names.
type Labeler interface {
	LabeledIDs(tokens []string) (words, labels []int32, ntokens int)
	NumLabels() int
	Label(id int32) string
}

type PredictRequest struct {
	Text      string  `json:"text"`
	K         int     `json:"k,omitempty"`
	Threshold float32 `json:"threshold,omitempty"`
}

// Prediction is a label and its probability.
type Prediction struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

type PredictResponse struct {
	ID          string       `json:"id"`
	Predictions []Prediction `json:"predictions"`
}

type cacheKey struct {
	text      string
	k         int
	threshold float32
}

type Server struct {
	model  *model.Model
	labels Labeler
	log    logger.Logger

	cache  *lru.Cache[cacheKey, []Prediction]
	states sync.Pool
}

// NewServer wraps a trained model. The model must not be trained further
// while the server is running: cached predictions are never invalidated.
func NewServer(m *model.Model, labels Labeler, cacheSize int, log logger.Logger) (*Server, error) {
	if rows, n := m.Output().R, labels.NumLabels(); rows != n {
		return nil, fmt.Errorf("%w: model has %d output rows for %d labels", ErrLabelMismatch, rows, n)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, []Prediction](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("api: cache: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		model:  m,
		labels: labels,
		log:    log.With("component", "api"),
		cache:  cache,
	}
	s.states.New = func() any { return m.NewState(0) }
	return s, nil
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/predict", s.handlePredict)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]any{
		"status": "ok",
		"labels": s.labels.NumLabels(),
		"dim":    s.model.Dim(),
	})
}

func (s *Server) handlePredict(c *echo.Context) error {
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	preds, err := s.Predict(req)
	if errors.Is(err, ErrInvalidRequest) {
		return writeBadRequest(c, err.Error())
	}
	if err != nil {
		s.log.Error("predict failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	return writeJSON(c, http.StatusOK, PredictResponse{
		ID:          newPredictionID(),
		Predictions: preds,
	})
}

// Predict returns the top k labels for req.Text, serving repeats from cache.
func (s *Server) Predict(req PredictRequest) ([]Prediction, error) {
	if req.K == 0 {
		req.K = 1
	}
	switch {
	case req.K < 0 || req.K > MaxK:
		return nil, newInvalidRequest(fmt.Sprintf("k must be between 1 and %d", MaxK))
	case req.Threshold < 0 || req.Threshold > 1:
		return nil, newInvalidRequest("threshold must be between 0 and 1")
	}
	tokens := corpus.Tokenize(req.Text)
	if len(tokens) == 0 {
		return nil, newInvalidRequest("text is required")
	}

	key := cacheKey{text: strings.Join(tokens, " "), k: req.K, threshold: req.Threshold}
	if preds, ok := s.cache.Get(key); ok {
		return preds, nil
	}

	words, _, _ := s.labels.LabeledIDs(tokens)
	st := s.states.Get().(*model.State)
	raw := s.model.Predict(words, req.K, req.Threshold, st)
	s.states.Put(st)

	preds := make([]Prediction, len(raw))
	for i, p := range raw {
		preds[i] = Prediction{Label: s.labels.Label(p.ID), Score: float32(math.Exp(float64(p.Score)))}
	}
	s.cache.Add(key, preds)
	return preds, nil
}
