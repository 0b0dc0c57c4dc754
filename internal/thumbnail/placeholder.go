package thumbnail

import (
	"bytes"
	"crypto/md5"
	"image"
	"image/color"
	"image/jpeg"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 360
)

// Placeholder renders a deterministic gradient JPEG for a video that has no
// extractable thumbnail. The same identifier always yields the same image, so
// the fallback is stable across requests and restarts.
func Placeholder(videoID string) ([]byte, error) {
	sum := md5.Sum([]byte(videoID))

	start := placeholderColor(sum[0], sum[1], sum[2])
	end := placeholderColor(sum[3], sum[4], sum[5])

	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	for y := 0; y < placeholderHeight; y++ {
		t := float64(y) / float64(placeholderHeight-1)
		c := color.RGBA{
			R: lerp(start.R, end.R, t),
			G: lerp(start.G, end.G, t),
			B: lerp(start.B, end.B, t),
			A: 255,
		}
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// placeholderColor maps hash bytes into a mid-range color so gradients stay
// readable rather than collapsing to near-black or near-white.
func placeholderColor(r, g, b byte) color.RGBA {
	scale := func(v byte) uint8 {
		return uint8(32 + (int(v)*192)/255)
	}
	return color.RGBA{R: scale(r), G: scale(g), B: scale(b), A: 255}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
