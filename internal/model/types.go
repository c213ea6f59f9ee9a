package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Metadata describes the exported CLIP graphs. It is read from a JSON
// sidecar next to the .onnx files; absent fields keep the ViT-B/32 values.
type Metadata struct {
	ImageSize     int        `json:"image_size"`
	Mean          [3]float32 `json:"mean"`
	Std           [3]float32 `json:"std"`
	ContextLength int        `json:"context_length"`
	PadTokenID    int64      `json:"pad_token_id"`
	EOTTokenID    int64      `json:"eot_token_id"`
	EmbedDim      int64      `json:"embed_dim"`
	Vision        GraphIO    `json:"vision"`
	Text          GraphIO    `json:"text"`
}

type GraphIO struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

func DefaultMetadata() Metadata {
	return Metadata{
		ImageSize:     224,
		Mean:          [3]float32{0.48145466, 0.4578275, 0.40821073},
		Std:           [3]float32{0.26862954, 0.26130258, 0.27577711},
		ContextLength: 77,
		PadTokenID:    49407,
		EOTTokenID:    49407,
		EmbedDim:      512,
		Vision:        GraphIO{Inputs: []string{"pixel_values"}, Output: "image_embeds"},
		Text:          GraphIO{Inputs: []string{"input_ids", "attention_mask"}, Output: "text_embeds"},
	}
}

func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()

	raw, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.validate(); err != nil {
		return meta, err
	}
	return meta, nil
}

func (m Metadata) validate() error {
	switch {
	case m.ImageSize <= 0:
		return fmt.Errorf("invalid metadata: image_size %d", m.ImageSize)
	case m.ContextLength <= 0:
		return fmt.Errorf("invalid metadata: context_length %d", m.ContextLength)
	case m.EmbedDim <= 0:
		return fmt.Errorf("invalid metadata: embed_dim %d", m.EmbedDim)
	case len(m.Vision.Inputs) != 1:
		return fmt.Errorf("invalid metadata: vision graph needs exactly one input, got %d", len(m.Vision.Inputs))
	case len(m.Text.Inputs) == 0 || len(m.Text.Inputs) > 2:
		return fmt.Errorf("invalid metadata: text graph needs one or two inputs, got %d", len(m.Text.Inputs))
	}
	for i, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("invalid metadata: std[%d] is zero", i)
		}
	}
	return nil
}

// Paths locates everything NewServer loads.
type Paths struct {
	VisionModel   string
	TextModel     string
	Tokenizer     string
	Metadata      string
	SharedLibrary string
}

// PathsFromDir uses the standard file names inside dir.
func PathsFromDir(dir string) Paths {
	return Paths{
		VisionModel: filepath.Join(dir, "clip_vision.onnx"),
		TextModel:   filepath.Join(dir, "clip_text.onnx"),
		Tokenizer:   filepath.Join(dir, "tokenizer.json"),
		Metadata:    filepath.Join(dir, "clip_metadata.json"),
	}
}
