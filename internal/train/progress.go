package train

import (
	"fmt"
	"strings"
	"time"
)

// noETA is shown before any progress has been made.
const noETA = 720 * time.Hour

// LearningRate decays linearly from base to zero as progress goes from 0 to 1.
func LearningRate(base, progress float64) float64 {
	return base * max(1-progress, 0)
}

// Progress is a snapshot of a running training job.
type Progress struct {
	Fraction          float64
	WordsPerSecThread float64
	LR                float64
	Loss              float64
	Elapsed           time.Duration
	ETA               time.Duration
	Done              bool
}

func (p Progress) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Progress: %5.1f%% words/sec/thread: %8.0f", 100*min(p.Fraction, 1), p.WordsPerSecThread)
	if !p.Done {
		fmt.Fprintf(&b, " lr: %9.6f", p.LR)
	}
	fmt.Fprintf(&b, " loss: %9.6f", p.Loss)
	if !p.Done {
		eta := p.ETA.Round(time.Second)
		h := int(eta.Hours())
		m := int(eta.Minutes()) % 60
		s := int(eta.Seconds()) % 60
		fmt.Fprintf(&b, " ETA: %3dh%2dm%2ds", h, m, s)
	}
	return b.String()
}

func (t *Trainer) snapshot(done bool) Progress {
	elapsed := time.Since(t.start)
	fraction := t.progress()
	if done {
		fraction = 1
	}
	p := Progress{
		Fraction: fraction,
		LR:       LearningRate(t.cfg.LR, fraction),
		Loss:     t.publishedLoss(),
		Elapsed:  elapsed,
		ETA:      noETA,
		Done:     done,
	}
	secs := elapsed.Seconds()
	if fraction > 0 && secs > 0 {
		p.ETA = time.Duration(secs * (1 - min(fraction, 1)) / fraction * float64(time.Second))
		p.WordsPerSecThread = float64(t.tokenCount.Load()) / secs / float64(t.threads)
	}
	return p
}

func (t *Trainer) report(p Progress) {
	if t.cfg.OnProgress != nil {
		t.cfg.OnProgress(p)
		return
	}
	t.log.Debug("progress",
		"percent", 100*p.Fraction,
		"lr", p.LR,
		"loss", p.Loss,
		"words_per_sec_thread", p.WordsPerSecThread,
	)
}
