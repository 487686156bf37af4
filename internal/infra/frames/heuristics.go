package frames

import (
	"image"
	"image/color"
)

// Thresholds named for the content-vs-talking-head classifier.
const (
	upperBodyRejectFraction = 0.15
	faceRejectFraction      = 0.20
	lowEdgeFaceReject       = 0.11
	keepEdgeDensity         = 0.05
)

// classify reports whether img should be kept as slide/demo content
// rather than rejected as a talking-head shot. No face or upper-body
// detection library is available in this stack (no gocv,
// pigo, or similar), so skinToneRegionFraction stands in for a real
// face/upper-body detector and edgeDensity stands in for Canny-edge
// density; both are plain image/color math. This is the one piece of
// the sampler documented in DESIGN.md as standard-library by
// necessity rather than by choice.
func classify(img image.Image) bool {
	skinFraction := skinToneRegionFraction(img)
	edges := edgeDensity(img)

	if skinFraction > upperBodyRejectFraction {
		return false // looks like a person filling a large part of the frame
	}
	if skinFraction > 0 && edges < lowEdgeFaceReject {
		return false // a face-sized region present but little surrounding detail
	}
	if skinFraction > faceRejectFraction {
		return false
	}
	return edges > keepEdgeDensity
}

// skinToneRegionFraction estimates the fraction of pixels that fall in
// a broad, intentionally permissive RGB skin-tone band, used as a
// coarse proxy for "a person is prominently in frame".
func skinToneRegionFraction(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var skinPixels int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
			if looksLikeSkinTone(r8, g8, b8) {
				skinPixels++
			}
		}
	}
	return float64(skinPixels) / float64(total)
}

// looksLikeSkinTone applies a widely used RGB-space heuristic for
// detecting human skin tones across a broad range of complexions.
func looksLikeSkinTone(r, g, b uint8) bool {
	ri, gi, bi := int(r), int(g), int(b)
	maxC := max(ri, max(gi, bi))
	minC := min(ri, min(gi, bi))
	return ri > 95 && gi > 40 && bi > 20 &&
		maxC-minC > 15 &&
		abs(ri-gi) > 15 && ri > gi && ri > bi
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// edgeDensity runs a Sobel operator over a grayscale copy of img and
// returns the fraction of pixels whose gradient magnitude exceeds a
// fixed threshold, a stand-in for Canny-edge density.
func edgeDensity(img image.Image) float64 {
	gray := toGrayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	const gradientThreshold = 64
	var edgePixels int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := sobelGx(gray, x, y)
			gy := sobelGy(gray, x, y)
			magnitude := isqrt(gx*gx + gy*gy)
			if magnitude > gradientThreshold {
				edgePixels++
			}
		}
	}
	return float64(edgePixels) / float64((w-2)*(h-2))
}

func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func sobelGx(gray *image.Gray, x, y int) int {
	return int(gray.GrayAt(x+1, y-1).Y) + 2*int(gray.GrayAt(x+1, y).Y) + int(gray.GrayAt(x+1, y+1).Y) -
		int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x-1, y).Y) - int(gray.GrayAt(x-1, y+1).Y)
}

func sobelGy(gray *image.Gray, x, y int) int {
	return int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y) -
		int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - int(gray.GrayAt(x+1, y-1).Y)
}

// isqrt is an integer square root sufficient for thresholding gradient
// magnitude; exactness beyond a handful of bits doesn't matter here.
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
