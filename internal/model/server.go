package model

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

var ErrClosed = errors.New("model server is closed")

// Tokenizer turns a label into CLIP BPE token ids, special tokens included.
type Tokenizer interface {
	Encode(text string) ([]int, error)
}

type hfTokenizer struct {
	tk *tokenizer.Tokenizer
}

func (h hfTokenizer) Encode(text string) ([]int, error) {
	enc, err := h.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, err
	}
	return enc.Ids, nil
}

// Server runs the CLIP vision and text graphs. ONNX sessions bound to
// preallocated tensors are not reentrant, so every inference holds mu.
type Server struct {
	mu sync.Mutex

	Metadata  Metadata
	tokenizer Tokenizer

	visionSession *ort.AdvancedSession
	pixelTensor   *ort.Tensor[float32]
	imageTensor   *ort.Tensor[float32]

	textSession *ort.AdvancedSession
	idsTensor   *ort.Tensor[int64]
	maskTensor  *ort.Tensor[int64]
	textTensor  *ort.Tensor[float32]

	closed bool
}

func NewServer(paths Paths) (*Server, error) {
	metadata, err := LoadMetadata(paths.Metadata)
	if err != nil {
		return nil, err
	}

	tk, err := pretrained.FromFile(paths.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	if paths.SharedLibrary != "" {
		ort.SetSharedLibraryPath(paths.SharedLibrary)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	s := &Server{
		Metadata:  metadata,
		tokenizer: hfTokenizer{tk: tk},
	}

	if err := s.initVision(paths.VisionModel); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.initText(paths.TextModel); err != nil {
		s.Close()
		return nil, err
	}

	log.Info().
		Str("vision", paths.VisionModel).
		Str("text", paths.TextModel).
		Int64("embed_dim", metadata.EmbedDim).
		Msg("CLIP model loaded")

	return s, nil
}

func (s *Server) initVision(modelPath string) error {
	size := int64(s.Metadata.ImageSize)

	var err error
	s.pixelTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return fmt.Errorf("failed to create pixel tensor: %w", err)
	}

	s.imageTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, s.Metadata.EmbedDim))
	if err != nil {
		return fmt.Errorf("failed to create image embedding tensor: %w", err)
	}

	s.visionSession, err = ort.NewAdvancedSession(modelPath,
		s.Metadata.Vision.Inputs, []string{s.Metadata.Vision.Output},
		[]ort.ArbitraryTensor{s.pixelTensor}, []ort.ArbitraryTensor{s.imageTensor},
		nil)
	if err != nil {
		return fmt.Errorf("failed to create vision session: %w", err)
	}
	return nil
}

func (s *Server) initText(modelPath string) error {
	shape := ort.NewShape(1, int64(s.Metadata.ContextLength))

	var err error
	s.idsTensor, err = ort.NewEmptyTensor[int64](shape)
	if err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}

	s.maskTensor, err = ort.NewEmptyTensor[int64](shape)
	if err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}

	s.textTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, s.Metadata.EmbedDim))
	if err != nil {
		return fmt.Errorf("failed to create text embedding tensor: %w", err)
	}

	inputs := []ort.ArbitraryTensor{s.idsTensor}
	if len(s.Metadata.Text.Inputs) == 2 {
		inputs = append(inputs, s.maskTensor)
	}

	s.textSession, err = ort.NewAdvancedSession(modelPath,
		s.Metadata.Text.Inputs, []string{s.Metadata.Text.Output},
		inputs, []ort.ArbitraryTensor{s.textTensor},
		nil)
	if err != nil {
		return fmt.Errorf("failed to create text session: %w", err)
	}
	return nil
}

func (s *Server) Name() string {
	return "clip-onnx"
}

func (s *Server) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pixels := Preprocess(img, s.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	copy(s.pixelTensor.GetData(), pixels)
	if err := s.visionSession.Run(); err != nil {
		return nil, fmt.Errorf("vision inference failed: %w", err)
	}

	return cloneVector(s.imageTensor.GetData()), nil
}

// EncodeTexts runs the text graph once per label. The context is checked
// between labels so a deadline can stop a long batch early.
func (s *Server) EncodeTexts(ctx context.Context, texts []string) ([][]float32, error) {
	tokens := make([][]int, len(texts))
	for i, text := range texts {
		ids, err := s.tokenizer.Encode(text)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize %q: %w", text, err)
		}
		tokens[i] = ids
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	out := make([][]float32, len(texts))
	for i, ids := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inputIDs, mask := TokenIDs(ids, s.Metadata)
		copy(s.idsTensor.GetData(), inputIDs)
		copy(s.maskTensor.GetData(), mask)

		if err := s.textSession.Run(); err != nil {
			return nil, fmt.Errorf("text inference failed for %q: %w", texts[i], err)
		}
		out[i] = cloneVector(s.textTensor.GetData())
	}

	return out, nil
}

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.visionSession != nil {
		s.visionSession.Destroy()
	}
	if s.textSession != nil {
		s.textSession.Destroy()
	}
	for _, t := range []*ort.Tensor[float32]{s.pixelTensor, s.imageTensor, s.textTensor} {
		if t != nil {
			t.Destroy()
		}
	}
	for _, t := range []*ort.Tensor[int64]{s.idsTensor, s.maskTensor} {
		if t != nil {
			t.Destroy()
		}
	}
	ort.DestroyEnvironment()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
