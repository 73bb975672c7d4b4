// Package train runs Hogwild SGD: one goroutine per corpus partition, all
// updating the same input and output matrices without locks.
package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samcharles93/fastvec/internal/corpus"
	"github.com/samcharles93/fastvec/internal/dict"
	"github.com/samcharles93/fastvec/internal/logger"
	"github.com/samcharles93/fastvec/internal/loss"
	"github.com/samcharles93/fastvec/internal/model"
	"github.com/samcharles93/fastvec/internal/tensor"
)

// maxEmptyStreak consecutive empty lines end a worker: its partition is exhausted.
const maxEmptyStreak = 1000

var (
	ErrNoReaders = errors.New("train: no corpus readers")
	ErrDiverged  = errors.New("train: loss is NaN, try a lower learning rate")
)

// Dictionary is what the trainer needs from a vocabulary.
type Dictionary interface {
	NumWords() int
	NumLabels() int
	InputRows() int
	TotalTokens() int64
	Counts(kind dict.Kind) []int64
	Subwords(id int32) []int32
	WordIDs(tokens []string, rng *rand.Rand) (ids []int32, ntokens int)
	LabeledIDs(tokens []string) (words, labels []int32, ntokens int)
}

// Result is a finished training run.
type Result struct {
	Model   *model.Model
	Tokens  int64
	Loss    float64
	Elapsed time.Duration
}

// Trainer owns one model and trains it once.
type Trainer struct {
	cfg   Config
	dict  Dictionary
	model *model.Model
	log   logger.Logger

	wantTokens int64
	threads    int
	start      time.Time

	tokenCount atomic.Int64
	lossBits   atomic.Uint64
	firstErr   atomic.Pointer[error]
}

// New allocates the matrices and loss for cfg. Configuration errors, including
// an unknown loss, are reported here.
func New(cfg Config, d Dictionary, log logger.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	kind, outRows := dict.Word, d.NumWords()
	if cfg.Mode == Supervised {
		kind, outRows = dict.Label, d.NumLabels()
	}
	if outRows == 0 {
		return nil, fmt.Errorf("%w: no %s targets", ErrInvalidConfig, cfg.Mode)
	}
	if d.TotalTokens() == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrInvalidConfig)
	}

	wi := tensor.NewMat(d.InputRows(), cfg.Dim)
	tensor.Uniform(wi, 1/float32(cfg.Dim), cfg.Seed)
	wo := tensor.NewMat(outRows, cfg.Dim)

	l, err := loss.New(cfg.Loss, wo, d.Counts(kind), loss.Options{
		Neg:       cfg.Neg,
		TableSize: cfg.NegTableSize,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return nil, err
	}

	return &Trainer{
		cfg:        cfg,
		dict:       d,
		model:      model.New(wi, wo, l, cfg.Mode == Supervised),
		log:        log.With("component", "train"),
		wantTokens: int64(cfg.Epochs) * d.TotalTokens(),
	}, nil
}

// Model returns the model being trained.
func (t *Trainer) Model() *model.Model { return t.model }

// Train runs one worker per reader until the token budget is consumed, every
// partition is exhausted, or a worker fails. The first error is returned after
// all workers have stopped; the model is then in an undefined state.
func (t *Trainer) Train(ctx context.Context, readers []corpus.Reader) (*Result, error) {
	if len(readers) == 0 {
		return nil, ErrNoReaders
	}
	t.threads = len(readers)
	t.start = time.Now()
	t.tokenCount.Store(0)
	t.publishLoss(-1)
	t.firstErr.Store(nil)

	t.log.Info("training started",
		"mode", t.cfg.Mode.String(),
		"loss", t.cfg.Loss.String(),
		"dim", t.cfg.Dim,
		"threads", t.threads,
		"tokens", t.wantTokens,
	)

	var wg sync.WaitGroup
	for i, r := range readers {
		wg.Add(1)
		go t.worker(ctx, &wg, i, r)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	t.supervise(ctx, done)
	<-done

	if err := t.err(); err != nil {
		t.log.Error("training failed", "error", err)
		return nil, err
	}

	final := t.snapshot(true)
	if final.Loss < 0 {
		// No worker saw an example.
		final.Loss = 0
	}
	t.report(final)
	res := &Result{
		Model:   t.model,
		Tokens:  t.tokenCount.Load(),
		Loss:    final.Loss,
		Elapsed: final.Elapsed,
	}
	t.log.Info("training finished",
		"elapsed", res.Elapsed.Round(time.Millisecond),
		"tokens", res.Tokens,
		"loss", res.Loss,
	)
	return res, nil
}

// supervise reports progress until training should stop or all workers exit.
func (t *Trainer) supervise(ctx context.Context, done <-chan struct{}) {
	interval := t.cfg.ProgressInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for t.keepTraining(ctx) {
		select {
		case <-done:
			return
		case <-ticker.C:
			if t.publishedLoss() >= 0 {
				t.report(t.snapshot(false))
			}
		}
	}
}

func (t *Trainer) keepTraining(ctx context.Context) bool {
	return t.tokenCount.Load() < t.wantTokens && t.firstErr.Load() == nil && ctx.Err() == nil
}

func (t *Trainer) progress() float64 {
	return float64(t.tokenCount.Load()) / float64(t.wantTokens)
}

func (t *Trainer) publishLoss(v float64) {
	t.lossBits.Store(math.Float64bits(v))
}

func (t *Trainer) publishedLoss() float64 {
	return math.Float64frombits(t.lossBits.Load())
}

// publishFinalLoss runs as a worker exits. Worker 0 always overwrites the
// shown loss; the others only fill it in while nothing has been published.
func (t *Trainer) publishFinalLoss(id int, s *model.State) {
	if s.Examples() == 0 || math.IsNaN(s.Loss()) {
		return
	}
	bits := math.Float64bits(s.Loss())
	if id == 0 {
		t.lossBits.Store(bits)
		return
	}
	t.lossBits.CompareAndSwap(math.Float64bits(-1), bits)
}

// fail records err unless an earlier error is already stored.
func (t *Trainer) fail(err error) {
	t.firstErr.CompareAndSwap(nil, &err)
}

func (t *Trainer) err() error {
	if p := t.firstErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (t *Trainer) worker(ctx context.Context, wg *sync.WaitGroup, id int, r corpus.Reader) {
	defer wg.Done()
	defer func() {
		if p := recover(); p != nil {
			t.fail(fmt.Errorf("train: worker %d panicked: %v", id, p))
		}
	}()

	w := &workerState{
		t:     t,
		state: t.model.NewState(t.cfg.Seed + int64(id)),
	}
	defer t.publishFinalLoss(id, w.state)

	var local int64
	empty := 0
	for t.keepTraining(ctx) {
		lr := float32(LearningRate(t.cfg.LR, t.progress()))
		tokens, err := r.Next()
		if err != nil {
			t.fail(fmt.Errorf("train: worker %d: %w", id, err))
			return
		}
		if len(tokens) == 0 {
			empty++
			if empty > maxEmptyStreak {
				t.log.Debug("partition exhausted", "worker", id)
				return
			}
			continue
		}
		empty = 0

		switch t.cfg.Mode {
		case Supervised:
			local += int64(w.supervised(tokens, lr))
		case CBOW:
			local += int64(w.cbow(tokens, lr))
		case SkipGram:
			local += int64(w.skipgram(tokens, lr))
		}

		if local > int64(t.cfg.LRUpdateRate) {
			if math.IsNaN(w.state.Loss()) {
				t.fail(fmt.Errorf("train: worker %d: %w", id, ErrDiverged))
				return
			}
			t.tokenCount.Add(local)
			local = 0
			// Only worker 0 publishes, so the shown loss lags the others.
			if id == 0 {
				t.publishLoss(w.state.Loss())
			}
		}
	}
	if err := ctx.Err(); err != nil {
		t.fail(err)
	}
}

// workerState is the goroutine-local half of a worker.
type workerState struct {
	t     *Trainer
	state *model.State
	bag   []int32
}

func (w *workerState) supervised(tokens []string, lr float32) int {
	words, labels, n := w.t.dict.LabeledIDs(tokens)
	if len(words) == 0 || len(labels) == 0 {
		return n
	}
	m := w.t.model
	if w.t.cfg.Loss == loss.OneVsAll {
		m.Update(words, labels, model.AllLabelsAsTarget, lr, w.state)
		return n
	}
	i := w.state.RNG.Intn(len(labels))
	m.Update(words, labels, i, lr, w.state)
	return n
}

func (w *workerState) cbow(tokens []string, lr float32) int {
	line, n := w.t.dict.WordIDs(tokens, w.state.RNG)
	d, m := w.t.dict, w.t.model
	for pos := range line {
		boundary := w.state.RNG.Intn(w.t.cfg.Window) + 1
		w.bag = w.bag[:0]
		for c := -boundary; c <= boundary; c++ {
			if c != 0 && pos+c >= 0 && pos+c < len(line) {
				w.bag = append(w.bag, d.Subwords(line[pos+c])...)
			}
		}
		m.Update(w.bag, line, pos, lr, w.state)
	}
	return n
}

func (w *workerState) skipgram(tokens []string, lr float32) int {
	line, n := w.t.dict.WordIDs(tokens, w.state.RNG)
	d, m := w.t.dict, w.t.model
	for pos := range line {
		boundary := w.state.RNG.Intn(w.t.cfg.Window) + 1
		ngrams := d.Subwords(line[pos])
		for c := -boundary; c <= boundary; c++ {
			if c != 0 && pos+c >= 0 && pos+c < len(line) {
				m.Update(ngrams, line, pos+c, lr, w.state)
			}
		}
	}
	return n
}
