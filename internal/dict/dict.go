// Package dict builds the vocabulary the trainer consumes: word and label
// frequencies, hashed character n-grams and frequency subsampling.
package dict

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind distinguishes vocabulary words from labels.
type Kind int8

const (
	Word Kind = iota
	Label
)

// MaxLineSize caps the number of words kept from one unsupervised line.
const MaxLineSize = 1024

const (
	bow = "<"
	eow = ">"
	// ngramMul mixes consecutive token hashes into a word n-gram hash.
	ngramMul = 116049371
)

var ErrEmptyVocab = errors.New("dict: empty vocabulary")

// Options control vocabulary pruning and feature hashing.
type Options struct {
	MinCount      int
	MinCountLabel int
	Minn          int
	Maxn          int
	Bucket        int
	WordNgrams    int
	SamplingT     float64
	LabelPrefix   string
}

// DefaultOptions returns fastText's defaults for supervised or unsupervised training.
func DefaultOptions(supervised bool) Options {
	if supervised {
		return Options{
			MinCount:      1,
			MinCountLabel: 0,
			WordNgrams:    1,
			SamplingT:     1e-4,
			LabelPrefix:   "__label__",
		}
	}
	return Options{
		MinCount:    5,
		Minn:        3,
		Maxn:        6,
		Bucket:      2_000_000,
		WordNgrams:  1,
		SamplingT:   1e-4,
		LabelPrefix: "__label__",
	}
}

// Validate rejects option combinations that cannot build a usable dictionary.
func (o Options) Validate() error {
	if o.Minn < 0 || o.Maxn < 0 || o.Bucket < 0 || o.MinCount < 0 {
		return errors.New("dict: negative option")
	}
	if o.Maxn > 0 && o.Minn > o.Maxn {
		return fmt.Errorf("dict: minn %d greater than maxn %d", o.Minn, o.Maxn)
	}
	if (o.Maxn > 0 || o.WordNgrams > 1) && o.Bucket == 0 {
		return errors.New("dict: subwords and word n-grams need a non-zero bucket")
	}
	if o.LabelPrefix == "" {
		return errors.New("dict: empty label prefix")
	}
	return nil
}

type entry struct {
	name     string
	count    int64
	subwords []int32
}

// Dictionary is immutable once built and safe for concurrent readers.
type Dictionary struct {
	opts Options

	words  []entry
	labels []entry

	wordIndex  map[string]int32
	labelIndex map[string]int32

	pdiscard []float32
	ntokens  int64
}

// Build reads whitespace separated tokens from r. Tokens starting with the
// label prefix are labels; everything else is a word.
func Build(r io.Reader, opts Options) (*Dictionary, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	wordCounts := make(map[string]int64)
	labelCounts := make(map[string]int64)
	var ntokens int64

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		tok := sc.Text()
		ntokens++
		if strings.HasPrefix(tok, opts.LabelPrefix) {
			labelCounts[tok]++
		} else {
			wordCounts[tok]++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dict: read: %w", err)
	}

	d := &Dictionary{
		opts:    opts,
		words:   keep(wordCounts, int64(opts.MinCount)),
		labels:  keep(labelCounts, int64(opts.MinCountLabel)),
		ntokens: ntokens,
	}
	if len(d.words) == 0 {
		return nil, ErrEmptyVocab
	}
	d.index()
	return d, nil
}

// keep returns entries with count >= min sorted by descending count.
func keep(counts map[string]int64, minCount int64) []entry {
	out := make([]entry, 0, len(counts))
	for name, c := range counts {
		if c >= minCount {
			out = append(out, entry{name: name, count: c})
		}
	}
	slices.SortFunc(out, func(a, b entry) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	return out
}

func (d *Dictionary) index() {
	d.wordIndex = make(map[string]int32, len(d.words))
	d.labelIndex = make(map[string]int32, len(d.labels))
	d.pdiscard = make([]float32, len(d.words))
	for i := range d.words {
		e := &d.words[i]
		d.wordIndex[e.name] = int32(i)
		e.subwords = append([]int32{int32(i)}, d.ngrams(e.name)...)

		f := float64(e.count) / float64(d.ntokens)
		t := d.opts.SamplingT
		d.pdiscard[i] = float32(math.Sqrt(t/f) + t/f)
	}
	for i := range d.labels {
		d.labelIndex[d.labels[i].name] = int32(i)
	}
}

// NumWords returns the vocabulary size.
func (d *Dictionary) NumWords() int { return len(d.words) }

// NumLabels returns the number of labels.
func (d *Dictionary) NumLabels() int { return len(d.labels) }

// TotalTokens returns every token read while building, pruned or not.
func (d *Dictionary) TotalTokens() int64 { return d.ntokens }

// Buckets returns the number of hashed feature rows after the vocabulary.
func (d *Dictionary) Buckets() int { return d.opts.Bucket }

// InputRows returns the input matrix height: words plus hash buckets.
func (d *Dictionary) InputRows() int { return len(d.words) + d.opts.Bucket }

// Word returns the word for id.
func (d *Dictionary) Word(id int32) string { return d.words[id].name }

// Label returns the label for id, including its prefix.
func (d *Dictionary) Label(id int32) string { return d.labels[id].name }

// WordID returns the id of w or -1.
func (d *Dictionary) WordID(w string) int32 {
	if id, ok := d.wordIndex[w]; ok {
		return id
	}
	return -1
}

// LabelID returns the id of label or -1.
func (d *Dictionary) LabelID(label string) int32 {
	if id, ok := d.labelIndex[label]; ok {
		return id
	}
	return -1
}

// Counts returns frequencies in id order.
func (d *Dictionary) Counts(kind Kind) []int64 {
	src := d.words
	if kind == Label {
		src = d.labels
	}
	out := make([]int64, len(src))
	for i, e := range src {
		out[i] = e.count
	}
	return out
}

// Subwords returns id followed by its hashed character n-gram ids.
// The returned slice must not be modified.
func (d *Dictionary) Subwords(id int32) []int32 {
	return d.words[id].subwords
}

// SubwordsOf expands any token, in vocabulary or not.
func (d *Dictionary) SubwordsOf(token string) []int32 {
	if id := d.WordID(token); id >= 0 {
		return d.Subwords(id)
	}
	return d.ngrams(token)
}

// ngrams hashes the rune n-grams of <token> with lengths minn..maxn.
func (d *Dictionary) ngrams(token string) []int32 {
	if d.opts.Maxn <= 0 || d.opts.Bucket <= 0 {
		return nil
	}
	runes := []rune(bow + token + eow)
	var out []int32
	for i := range runes {
		for n := 1; n <= d.opts.Maxn && i+n <= len(runes); n++ {
			if n < d.opts.Minn {
				continue
			}
			// A lone boundary marker carries no information.
			if n == 1 && (i == 0 || i+n == len(runes)) {
				continue
			}
			out = append(out, d.bucketID(xxhash.Sum64String(string(runes[i:i+n]))))
		}
	}
	return out
}

func (d *Dictionary) bucketID(h uint64) int32 {
	return int32(len(d.words)) + int32(h%uint64(d.opts.Bucket))
}

func (d *Dictionary) discard(id int32, r float32) bool {
	return r > d.pdiscard[id]
}

// WordIDs maps an unsupervised line to word ids, dropping frequent words at
// random. ntokens counts in-vocabulary words before subsampling.
func (d *Dictionary) WordIDs(tokens []string, rng *rand.Rand) (ids []int32, ntokens int) {
	ids = make([]int32, 0, len(tokens))
	for _, tok := range tokens {
		id := d.WordID(tok)
		if id < 0 {
			continue
		}
		ntokens++
		if !d.discard(id, rng.Float32()) {
			ids = append(ids, id)
		}
		if ntokens >= MaxLineSize {
			break
		}
	}
	return ids, ntokens
}

// LabeledIDs maps a supervised line to input feature ids (words, their
// subwords and word n-grams) and label ids.
func (d *Dictionary) LabeledIDs(tokens []string) (words, labels []int32, ntokens int) {
	hashes := make([]uint64, 0, len(tokens))
	for _, tok := range tokens {
		if strings.HasPrefix(tok, d.opts.LabelPrefix) {
			if id := d.LabelID(tok); id >= 0 {
				labels = append(labels, id)
				ntokens++
			}
			continue
		}
		id := d.WordID(tok)
		if id >= 0 {
			ntokens++
			words = append(words, d.Subwords(id)...)
		} else {
			words = append(words, d.ngrams(tok)...)
		}
		hashes = append(hashes, xxhash.Sum64String(tok))
	}
	words = d.appendWordNgrams(words, hashes)
	return words, labels, ntokens
}

func (d *Dictionary) appendWordNgrams(ids []int32, hashes []uint64) []int32 {
	n := d.opts.WordNgrams
	if n <= 1 || d.opts.Bucket <= 0 {
		return ids
	}
	for i := range hashes {
		h := hashes[i]
		for j := i + 1; j < len(hashes) && j < i+n; j++ {
			h = h*ngramMul + hashes[j]
			ids = append(ids, d.bucketID(h))
		}
	}
	return ids
}
