// Package ranker scores an image against a label catalog with a
// vision-language embedding model and returns the best-matching labels.
package ranker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/clip-api/internal/catalog"
)

const (
	DefaultTopK    = 5
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPixels caps width*height before an upload is decoded.
	DefaultMaxPixels = 16_000_000
)

// Encoder produces embeddings in a shared image/text space.
type Encoder interface {
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	EncodeTexts(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Match is one scored label. Index is the label's position in the catalog.
type Match struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

type Option func(*Ranker)

func WithTopK(k int) Option {
	return func(r *Ranker) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithTimeout bounds a single ranking. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Ranker) {
		r.timeout = d
	}
}

// WithMaxPixels rejects images whose header declares more than n pixels.
func WithMaxPixels(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.maxPixels = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Ranker) {
		r.logger = logger
	}
}

// Ranker is stateless between calls and safe for concurrent use as long
// as its Encoder is.
type Ranker struct {
	encoder Encoder
	catalog *catalog.Catalog
	topK    int
	timeout time.Duration
	logger  zerolog.Logger

	maxPixels int
}

func New(encoder Encoder, cat *catalog.Catalog, opts ...Option) *Ranker {
	r := &Ranker{
		encoder: encoder,
		catalog: cat,
		topK:    DefaultTopK,
		timeout: DefaultTimeout,
		logger:  log.Logger,

		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ranker) LabelCount() int {
	if r.catalog == nil {
		return 0
	}
	return r.catalog.Len()
}

func (r *Ranker) EncoderName() string {
	return r.encoder.Name()
}

// Rank returns up to topK catalog labels ordered by descending similarity.
func (r *Ranker) Rank(ctx context.Context, imageBytes []byte) ([]string, error) {
	matches, err := r.RankScored(ctx, imageBytes)
	if err != nil {
		return nil, err
	}
	return labelsOf(matches), nil
}

// RankScored is Rank with the similarity score of each returned label.
func (r *Ranker) RankScored(ctx context.Context, imageBytes []byte) ([]Match, error) {
	var labels []string
	if r.catalog != nil {
		labels = r.catalog.Labels()
	}
	return r.rank(ctx, imageBytes, labels)
}

// RankLabels ranks against an explicit label list instead of the catalog.
func (r *Ranker) RankLabels(ctx context.Context, imageBytes []byte, labels []string) ([]string, error) {
	matches, err := r.rank(ctx, imageBytes, labels)
	if err != nil {
		return nil, err
	}
	return labelsOf(matches), nil
}

func (r *Ranker) rank(ctx context.Context, imageBytes []byte, labels []string) ([]Match, error) {
	if len(labels) == 0 {
		return nil, ErrEmptyCatalog
	}

	img, format, err := r.decode(imageBytes)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Int("labels", len(labels)).
		Msg("ranking image")

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type result struct {
		matches []Match
		err     error
	}
	done := make(chan result, 1)
	go func() {
		matches, err := r.score(ctx, img, labels)
		done <- result{matches, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return topK(res.matches, r.topK), nil
	case <-ctx.Done():
		return nil, contextErr(ctx.Err())
	}
}

// decode checks the declared dimensions before allocating the pixel buffer.
func (r *Ranker) decode(imageBytes []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: empty image %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(r.maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrDecode, cfg.Width, cfg.Height, r.maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

func (r *Ranker) score(ctx context.Context, img image.Image, labels []string) ([]Match, error) {
	imageVec, err := r.encoder.EncodeImage(ctx, img)
	if err != nil {
		return nil, encoderErr("encode image", err)
	}

	textVecs, err := r.encoder.EncodeTexts(ctx, labels)
	if err != nil {
		return nil, encoderErr("encode labels", err)
	}
	if len(textVecs) != len(labels) {
		return nil, fmt.Errorf("%w: got %d label embeddings for %d labels",
			ErrModelUnavailable, len(textVecs), len(labels))
	}

	matches := make([]Match, len(labels))
	for i, vec := range textVecs {
		s, err := Dot(imageVec, vec)
		if err != nil {
			return nil, fmt.Errorf("%w: label %q: %v", ErrModelUnavailable, labels[i], err)
		}
		matches[i] = Match{Label: labels[i], Score: s, Index: i}
	}
	return matches, nil
}

// Dot is the inner product of two equal-length vectors.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// topK orders matches by score, highest first. Equal scores keep catalog
// order so the lower index wins.
func topK(matches []Match, k int) []Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func labelsOf(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Label
	}
	return out
}

func encoderErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, op, err)
}

func contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
