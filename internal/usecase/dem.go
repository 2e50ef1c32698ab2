package usecase

import (
	"image"
	"image/color"
	"math"
)

const (
	demNoData = 1 << 23
	demScale  = 0.01
)

// demHeight decodes one pixel of a GSI/GSJ PNG elevation tile, where
// v = R<<16 | G<<8 | B is a signed 24 bit count of centimeters and 2^23
// marks missing data. Missing data is reported as NaN.
func demHeight(c color.Color) float64 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		return math.NaN()
	}

	v := int(n.R)<<16 | int(n.G)<<8 | int(n.B)
	switch {
	case v < demNoData:
		return float64(v) * demScale
	case v == demNoData:
		return math.NaN()
	default:
		return float64(v-1<<24) * demScale
	}
}

// sampleDEM returns the heights of an (n+1)x(n+1) vertex grid spread evenly
// over img, row major from the top edge.
func sampleDEM(img image.Image, n int) []float64 {
	b := img.Bounds()
	heights := make([]float64, 0, (n+1)*(n+1))

	for j := 0; j <= n; j++ {
		py := b.Min.Y + gridPixel(j, n, b.Dy())
		for i := 0; i <= n; i++ {
			px := b.Min.X + gridPixel(i, n, b.Dx())
			heights = append(heights, demHeight(img.At(px, py)))
		}
	}

	return heights
}

// gridPixel maps grid line i of n onto a pixel of an axis size pixels long.
func gridPixel(i, n, size int) int {
	p := i * size / n
	if p >= size {
		p = size - 1
	}
	return p
}

// quantize drops the low three bits of each channel so neighbouring cells
// of similar color share a material.
func quantize(c color.Color) [3]uint8 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return [3]uint8{n.R &^ 7, n.G &^ 7, n.B &^ 7}
}
