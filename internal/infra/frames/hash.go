package frames

import (
	"image"

	"github.com/corona10/goimagehash"
)

// perceptualHash computes a perceptual hash of img for traceability
// (detecting when two sampled frames are near-duplicates). A real,
// commonly used Go ecosystem library for this narrow concern; named
// for this narrow concern.
func perceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", err
	}
	return hash.ToString(), nil
}
