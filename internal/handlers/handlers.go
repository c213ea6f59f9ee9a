package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/clip-api/internal/metrics"
	"github.com/Brownie44l1/clip-api/internal/ranker"
)

const (
	DefaultMaxUpload = 10 << 20

	msgNoImage      = "No image provided"
	msgInvalidType  = "Invalid file type"
	msgInvalidImage = "Invalid image"
	msgTooLarge     = "Image too large"
	msgTimeout      = "Classification timed out"
	msgInternal     = "Internal server error"
)

var allowedExtensions = []string{"png", "jpg", "jpeg"}

// Classifier is the ranking capability the HTTP layer depends on.
type Classifier interface {
	Rank(ctx context.Context, imageBytes []byte) ([]string, error)
	EncoderName() string
	LabelCount() int
}

type Handler struct {
	classifier Classifier
	metrics    *metrics.Metrics
	maxUpload  int64
}

func NewHandler(classifier Classifier, m *metrics.Metrics, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		classifier: classifier,
		metrics:    m,
		maxUpload:  maxUpload,
	}
}

func (h *Handler) Root(c *gin.Context) {
	c.String(http.StatusOK, "Alive")
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Model:  h.classifier.EncoderName(),
		Labels: h.classifier.LabelCount(),
	})
}

func (h *Handler) Classify(c *gin.Context) {
	logger := zerolog.Ctx(c.Request.Context())

	// Leave headroom for multipart framing around the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+64<<10)

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, http.StatusRequestEntityTooLarge, metrics.OutcomeInvalid, msgTooLarge)
			return
		}
		// mime/multipart treats a part with filename="" as a plain form
		// value, so an unnamed upload lands here as well.
		h.fail(c, http.StatusBadRequest, metrics.OutcomeInvalid, msgNoImage)
		return
	}

	if !allowedFile(header.Filename) {
		h.fail(c, http.StatusBadRequest, metrics.OutcomeInvalid, msgInvalidType)
		return
	}

	logger.Info().Str("filename", header.Filename).Int64("size", header.Size).Msg("received image")

	data, err := readUpload(header, h.maxUpload)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			h.fail(c, http.StatusRequestEntityTooLarge, metrics.OutcomeInvalid, msgTooLarge)
			return
		}
		logger.Error().Err(err).Msg("failed to read upload")
		h.fail(c, http.StatusInternalServerError, metrics.OutcomeError, msgInternal)
		return
	}

	start := time.Now()
	categories, err := h.classifier.Rank(c.Request.Context(), data)
	h.observeRank(time.Since(start))

	switch {
	case err == nil:
	case errors.Is(err, ranker.ErrDecode):
		logger.Info().Err(err).Msg("rejected undecodable image")
		h.fail(c, http.StatusBadRequest, metrics.OutcomeInvalid, msgInvalidImage)
		return
	case errors.Is(err, ranker.ErrTimeout):
		logger.Warn().Err(err).Msg("classification timed out")
		h.fail(c, http.StatusGatewayTimeout, metrics.OutcomeTimeout, msgTimeout)
		return
	default:
		logger.Error().Err(err).Msg("classification failed")
		h.fail(c, http.StatusInternalServerError, metrics.OutcomeError, msgInternal)
		return
	}

	h.observe(metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, ClassifyResponse{Categories: categories})
}

// RateLimited records a rejected request; it is passed to the rate limiter.
func (h *Handler) RateLimited(*gin.Context) {
	h.observe(metrics.OutcomeRateLimited)
}

func (h *Handler) fail(c *gin.Context, status int, outcome, msg string) {
	h.observe(outcome)
	c.JSON(status, ErrorResponse{Error: msg})
}

func (h *Handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveRequest(outcome)
	}
}

func (h *Handler) observeRank(d time.Duration) {
	if h.metrics != nil {
		h.metrics.ObserveRank(d)
	}
}

// allowedFile matches on the filename suffix only, case-insensitively.
func allowedFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var errTooLarge = errors.New("upload exceeds size limit")

// readUpload copies the upload into a buffer owned by this request.
func readUpload(header *multipart.FileHeader, limit int64) ([]byte, error) {
	if header.Size > limit {
		return nil, errTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}
