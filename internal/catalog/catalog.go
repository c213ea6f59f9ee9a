package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a catalog would have no labels.
var ErrEmpty = errors.New("catalog has no labels")

// Catalog is the fixed, ordered vocabulary every image is scored against.
// It is never mutated after construction and is safe for concurrent reads.
type Catalog struct {
	labels []string
}

type file struct {
	Labels []string `yaml:"labels"`
}

// New builds a catalog from labels. Order is kept and duplicates are allowed.
func New(labels []string) (*Catalog, error) {
	if len(labels) == 0 {
		return nil, ErrEmpty
	}
	owned := make([]string, len(labels))
	copy(owned, labels)
	return &Catalog{labels: owned}, nil
}

// Load reads a catalog from a YAML file with a top-level "labels" list.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	return New(f.Labels)
}

// Default returns the built-in category vocabulary.
func Default() *Catalog {
	c, _ := New(defaultLabels)
	return c
}

func (c *Catalog) Len() int {
	return len(c.labels)
}

func (c *Catalog) At(i int) string {
	return c.labels[i]
}

// Labels returns a copy of the labels in catalog order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}
