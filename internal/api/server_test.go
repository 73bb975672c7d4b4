package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fastvec/internal/loss"
	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// toyLabels knows words spam and hello and labels spam and ham.
type toyLabels struct {
	mu    sync.Mutex
	calls int
}

func (l *toyLabels) LabeledIDs(tokens []string) (words, labels []int32, n int) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	for _, tok := range tokens {
		switch tok {
		case "spam":
			words = append(words, 0)
		case "hello":
			words = append(words, 1)
		}
	}
	return words, nil, len(words)
}

func (l *toyLabels) NumLabels() int { return 2 }

func (l *toyLabels) Label(id int32) string {
	return []string{"__label__spam", "__label__ham"}[id]
}

func newTestServer(t *testing.T) (*Server, *toyLabels) {
	t.Helper()
	wi, err := tensor.NewMatFromData(2, 2, []float32{1, 0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	wo, err := tensor.NewMatFromData(2, 2, []float32{4, 0, 0, 4})
	if err != nil {
		t.Fatal(err)
	}
	l, err := loss.New(loss.Softmax, wo, nil, loss.Options{})
	if err != nil {
		t.Fatal(err)
	}
	labels := &toyLabels{}
	s, err := NewServer(model.New(wi, wo, l, true), labels, 16, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s, labels
}

func newTestEcho(t *testing.T) (*echo.Echo, *toyLabels) {
	t.Helper()
	s, labels := newTestServer(t)
	e := echo.New()
	s.Register(e)
	return e, labels
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPredictEndpoint(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"text":"buy spam now","k":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "pred_") {
		t.Fatalf("expected pred_ id, got %q", resp.ID)
	}
	if len(resp.Predictions) != 2 {
		t.Fatalf("expected 2 predictions, got %+v", resp.Predictions)
	}
	if resp.Predictions[0].Label != "__label__spam" {
		t.Fatalf("expected spam first, got %+v", resp.Predictions)
	}
	if resp.Predictions[0].Score <= resp.Predictions[1].Score {
		t.Fatalf("expected descending scores, got %+v", resp.Predictions)
	}
	if sum := resp.Predictions[0].Score + resp.Predictions[1].Score; sum < 0.99 || sum > 1.01 {
		t.Fatalf("expected probabilities summing to 1, got %v", sum)
	}
}

func TestPredictDefaultsToOneLabel(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"text":"hello"}`)
	var resp PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Predictions) != 1 || resp.Predictions[0].Label != "__label__ham" {
		t.Fatalf("expected ham, got %+v", resp.Predictions)
	}
}

func TestPredictUnknownWordsReturnNothing(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"text":"zzz"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"predictions":[]`) {
		t.Fatalf("expected empty predictions, got %s", rec.Body.String())
	}
}

func TestPredictRejectsBadRequests(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)
	for _, body := range []string{
		`{"text":""}`,
		`{"text":"spam","k":-1}`,
		`{"text":"spam","threshold":2}`,
		`{not json`,
	} {
		rec := doJSON(t, e, http.MethodPost, "/v1/predict", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"invalid_request_error"`) {
			t.Fatalf("%s: expected error body, got %s", body, rec.Body.String())
		}
	}
}

func TestPredictCachesByNormalisedText(t *testing.T) {
	t.Parallel()
	s, labels := newTestServer(t)
	first, err := s.Predict(PredictRequest{Text: "spam  hello", K: 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Predict(PredictRequest{Text: " spam hello ", K: 2})
	if err != nil {
		t.Fatal(err)
	}
	if labels.calls != 1 {
		t.Fatalf("expected one model lookup, got %d", labels.calls)
	}
	if first[0] != second[0] {
		t.Fatalf("expected cached result, got %+v and %+v", first, second)
	}
	if _, err := s.Predict(PredictRequest{Text: "spam hello", K: 1}); err != nil {
		t.Fatal(err)
	}
	if labels.calls != 2 {
		t.Fatalf("expected k to be part of the cache key, got %d lookups", labels.calls)
	}
}

func TestNewServerRejectsWordModel(t *testing.T) {
	t.Parallel()
	// Three output rows, one per word, against two labels.
	wi := tensor.NewMat(3, 2)
	wo := tensor.NewMat(3, 2)
	l, err := loss.New(loss.Softmax, wo, nil, loss.Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewServer(model.New(wi, wo, l, false), &toyLabels{}, 16, nil)
	if !errors.Is(err, ErrLabelMismatch) {
		t.Fatalf("expected ErrLabelMismatch, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}
