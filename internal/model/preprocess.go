package model

import (
	"image"
	"image/draw"

	"github.com/nfnt/resize"
)

// Preprocess converts an image to the CHW float32 layout the vision graph
// expects: center square crop, resize to ImageSize, per-channel mean/std
// normalisation. Cropping before resizing keeps the intermediate image at
// ImageSize x ImageSize whatever the aspect ratio.
func Preprocess(img image.Image, meta Metadata) []float32 {
	size := meta.ImageSize
	resized := resize.Resize(uint(size), uint(size), centerSquare(img), resize.Bicubic)

	rb := resized.Bounds()
	x0, y0 := rb.Min.X, rb.Min.Y

	plane := size * size
	data := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x0+x, y0+y).RGBA()

			i := y*size + x
			data[i] = (float32(r)/65535.0 - meta.Mean[0]) / meta.Std[0]
			data[plane+i] = (float32(g)/65535.0 - meta.Mean[1]) / meta.Std[1]
			data[2*plane+i] = (float32(b)/65535.0 - meta.Mean[2]) / meta.Std[2]
		}
	}

	return data
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func centerSquare(img image.Image) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	if b.Dx() == b.Dy() {
		return img
	}

	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	if si, ok := img.(subImager); ok {
		return si.SubImage(crop)
	}
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(dst, dst.Bounds(), img, crop.Min, draw.Src)
	return dst
}

// TokenIDs fits tokenizer output to the fixed context length. Long inputs
// are truncated with the end-of-text token kept last; short ones are
// padded and masked out.
func TokenIDs(ids []int, meta Metadata) (inputIDs, mask []int64) {
	n := meta.ContextLength
	inputIDs = make([]int64, n)
	mask = make([]int64, n)

	for i := range inputIDs {
		inputIDs[i] = meta.PadTokenID
	}

	l := min(len(ids), n)
	for i := 0; i < l; i++ {
		inputIDs[i] = int64(ids[i])
		mask[i] = 1
	}
	if len(ids) > n {
		inputIDs[n-1] = meta.EOTTokenID
	}

	return inputIDs, mask
}
