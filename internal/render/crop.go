package render

import (
	"image"
	"math"
)

// CenterCrop returns the source-space rectangle that, stretched onto a
// targetW x targetH rectangle, covers it completely while keeping the aspect
// ratio: scale = max(targetW/srcW, targetH/srcH), the crop is targetW/scale by
// targetH/scale and centered on the source. The result is relative to a
// source whose bounds start at (0, 0).
func CenterCrop(srcW, srcH, targetW, targetH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || targetW <= 0 || targetH <= 0 {
		return image.Rectangle{}
	}
	sw, sh := float64(srcW), float64(srcH)
	tw, th := float64(targetW), float64(targetH)

	scale := math.Max(tw/sw, th/sh)
	left := (sw*scale - tw) / 2 / scale
	top := (sh*scale - th) / 2 / scale
	right := left + tw/scale
	bottom := top + th/scale

	r := image.Rect(int(left), int(top), int(math.Round(right)), int(math.Round(bottom)))
	return r.Intersect(image.Rect(0, 0, srcW, srcH))
}

// SampleFactor picks the largest power of two such that half of each source
// dimension divided by the factor still meets or exceeds the target. The
// decoded image is then reduced by that factor, which bounds the memory held
// per cell without dropping below the target resolution.
func SampleFactor(srcW, srcH, targetW, targetH int) int {
	factor := 1
	if targetW <= 0 || targetH <= 0 {
		return factor
	}
	if srcH > targetH || srcW > targetW {
		halfH := srcH / 2
		halfW := srcW / 2
		for halfH/factor >= targetH && halfW/factor >= targetW {
			factor *= 2
		}
	}
	return factor
}
