package train

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samcharles93/fastvec/internal/loss"
)

// Mode selects the training objective.
type Mode int

const (
	Supervised Mode = iota + 1
	CBOW
	SkipGram
)

var (
	ErrUnknownMode   = errors.New("train: unknown mode")
	ErrInvalidConfig = errors.New("train: invalid config")
)

func (m Mode) String() string {
	switch m {
	case Supervised:
		return "supervised"
	case CBOW:
		return "cbow"
	case SkipGram:
		return "skipgram"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts supervised, cbow and skipgram plus their short forms.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supervised", "sup":
		return Supervised, nil
	case "cbow":
		return CBOW, nil
	case "skipgram", "sg":
		return SkipGram, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Config holds the hyperparameters of one training run.
type Config struct {
	Mode Mode
	Loss loss.Name

	Dim    int
	Window int
	Epochs int
	Neg    int
	LR     float64

	// LRUpdateRate is the number of tokens a worker processes before it
	// publishes its count to the shared progress counter.
	LRUpdateRate int
	Seed         int64
	NegTableSize int

	// ProgressInterval is how often the supervisor samples progress.
	ProgressInterval time.Duration
	// OnProgress receives progress snapshots from the supervisor goroutine.
	OnProgress func(Progress)
}

// DefaultConfig mirrors fastText's defaults for mode.
func DefaultConfig(mode Mode) Config {
	cfg := Config{
		Mode:             mode,
		Loss:             loss.NegativeSampling,
		Dim:              100,
		Window:           5,
		Epochs:           5,
		Neg:              5,
		LR:               0.05,
		LRUpdateRate:     100,
		ProgressInterval: 100 * time.Millisecond,
	}
	if mode == Supervised {
		cfg.Loss = loss.Softmax
		cfg.LR = 0.1
	}
	return cfg
}

// Validate reports configuration errors before any goroutine starts.
func (c Config) Validate() error {
	switch c.Mode {
	case Supervised, CBOW, SkipGram:
	default:
		return fmt.Errorf("%w %d", ErrUnknownMode, int(c.Mode))
	}
	switch c.Loss {
	case loss.HierarchicalSoftmax, loss.NegativeSampling, loss.Softmax, loss.OneVsAll:
	default:
		return fmt.Errorf("%w %d", loss.ErrUnknownLoss, int(c.Loss))
	}
	switch {
	case c.Dim <= 0:
		return fmt.Errorf("%w: dim must be positive", ErrInvalidConfig)
	case c.Window <= 0:
		return fmt.Errorf("%w: window must be positive", ErrInvalidConfig)
	case c.Epochs <= 0:
		return fmt.Errorf("%w: epochs must be positive", ErrInvalidConfig)
	case c.LR <= 0:
		return fmt.Errorf("%w: learning rate must be positive", ErrInvalidConfig)
	case c.Neg < 0:
		return fmt.Errorf("%w: neg must not be negative", ErrInvalidConfig)
	case c.LRUpdateRate <= 0:
		return fmt.Errorf("%w: lr update rate must be positive", ErrInvalidConfig)
	}
	return nil
}
