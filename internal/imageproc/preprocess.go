// Package imageproc prepares uploaded images for text recognition: grayscale,
// contrast stretch, conditional upscale, sharpening and gamma correction.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	// webp входит в список поддерживаемых форматов загрузки - регистрируем декодер
	_ "golang.org/x/image/webp"
)

const (
	// targetLongSide - изображения меньше этого размера апскейлим, чтобы мелкий шрифт стал читаемым
	targetLongSide = 1000
	sharpenSigma   = 1.0
	gammaBoost     = 1.2
)

// Prepare runs the recognition pipeline over raw image bytes and re-encodes
// the result as PNG regardless of the input format. Callers are expected to
// fall back to the original bytes when an error is returned.
func Prepare(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data provided to Prepare")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	// в одноканальный grayscale + растягиваем гистограмму на весь диапазон
	gray := stretchHistogram(imaging.Grayscale(img))

	// апскейлим только мелкие картинки, большие не трогаем
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	if max(w, h) < targetLongSide {
		if w >= h {
			gray = imaging.Resize(gray, targetLongSide, 0, imaging.Lanczos) // 0 - сохраняет ратио
		} else {
			gray = imaging.Resize(gray, 0, targetLongSide, imaging.Lanczos)
		}
	}

	// подчеркиваем штрихи символов и поднимаем средние тона
	gray = imaging.Sharpen(gray, sharpenSigma)
	gray = imaging.AdjustGamma(gray, gammaBoost)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode result image: %w", err)
	}
	return buf.Bytes(), nil
}

// stretchHistogram remaps pixel intensity linearly so the darkest pixel
// becomes 0 and the brightest 255. Input is expected to be grayscale, so a
// single luminance histogram covers all channels.
func stretchHistogram(img *image.NRGBA) *image.NRGBA {
	hist := imaging.Histogram(img)

	lo, hi := 0, 255
	for lo < 255 && hist[lo] == 0 {
		lo++
	}
	for hi > 0 && hist[hi] == 0 {
		hi--
	}

	// уже полный диапазон или вырожденная картинка - нечего растягивать
	if lo >= hi || (lo == 0 && hi == 255) {
		return img
	}

	scale := 255.0 / float64(hi-lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := remap(c.R, lo, scale)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func remap(v uint8, lo int, scale float64) uint8 {
	stretched := (float64(v) - float64(lo)) * scale
	if stretched < 0 {
		return 0
	}
	if stretched > 255 {
		return 255
	}
	return uint8(stretched + 0.5)
}
