package ranker

import "errors"

var (
	// ErrDecode means the uploaded bytes are not a PNG or JPEG image.
	ErrDecode = errors.New("image could not be decoded")

	// ErrEmptyCatalog means there were no labels to score against.
	ErrEmptyCatalog = errors.New("label catalog is empty")

	// ErrModelUnavailable wraps any failure of the embedding model.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrTimeout means ranking did not finish before its deadline.
	ErrTimeout = errors.New("ranking timed out")
)
