package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/samcharles93/fastvec/internal/logger"
	"github.com/samcharles93/fastvec/internal/train"
)

// progressPrinter renders training progress. On a terminal it rewrites one
// line in place; otherwise it logs at most once per interval.
type progressPrinter struct {
	w        io.Writer
	log      logger.Logger
	tty      bool
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func newProgressPrinter(w io.Writer, log logger.Logger, tty bool) *progressPrinter {
	return &progressPrinter{w: w, log: log, tty: tty, interval: 5 * time.Second}
}

func (p *progressPrinter) report(pr train.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty {
		_, _ = fmt.Fprintf(p.w, "\r%s", pr)
		if pr.Done {
			_, _ = fmt.Fprintln(p.w)
		}
		return
	}
	now := time.Now()
	if !pr.Done && now.Sub(p.last) < p.interval {
		return
	}
	p.last = now
	p.log.Info("progress",
		"percent", fmt.Sprintf("%.1f", 100*min(pr.Fraction, 1)),
		"words_per_sec_thread", int64(pr.WordsPerSecThread),
		"lr", pr.LR,
		"loss", pr.Loss,
		"eta", pr.ETA.Round(time.Second),
	)
}
