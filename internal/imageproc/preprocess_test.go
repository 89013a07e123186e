package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func testImageBytes(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, format)
	require.NoError(t, err)

	return buf.Bytes()
}

func mustDecodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()

	_, f, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", f)

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, img)

	return img
}

func TestPrepare(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantW   int
		wantH   int
		wantErr bool
	}{
		{
			name:  "small image upscaled to 1000 on longer side",
			data:  testImageBytes(t, 200, 100, imaging.PNG),
			wantW: 1000,
			wantH: 500,
		},
		{
			name:  "portrait image upscaled by height",
			data:  testImageBytes(t, 100, 200, imaging.JPEG),
			wantW: 500,
			wantH: 1000,
		},
		{
			name:  "large image keeps dimensions",
			data:  testImageBytes(t, 1600, 1200, imaging.JPEG),
			wantW: 1600,
			wantH: 1200,
		},
		{
			name:  "exactly 1000 on longer side is not resized",
			data:  testImageBytes(t, 1000, 400, imaging.PNG),
			wantW: 1000,
			wantH: 400,
		},
		{
			name:    "nil data",
			data:    nil,
			wantErr: true,
		},
		{
			name:    "broken image",
			data:    []byte("not-an-image"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Prepare(tt.data)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotEmpty(t, res)

			img := mustDecodePNG(t, res)
			require.Equal(t, tt.wantW, img.Bounds().Dx())
			require.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

// JPEG input must come out as PNG - the pipeline normalizes the encoding.
func TestPrepare_AlwaysPNG(t *testing.T) {
	res, err := Prepare(testImageBytes(t, 50, 50, imaging.JPEG))
	require.NoError(t, err)

	mustDecodePNG(t, res)
}

func TestPrepare_Grayscale(t *testing.T) {
	res, err := Prepare(testImageBytes(t, 30, 30, imaging.PNG))
	require.NoError(t, err)

	img := mustDecodePNG(t, res)
	r, g, b, _ := img.At(15, 15).RGBA()
	require.Equal(t, r, g)
	require.Equal(t, g, b)
}

func TestStretchHistogram(t *testing.T) {
	// серый квадрат в узком диапазоне яркостей
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			v := uint8(100 + x) // 100..109
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	stretched := stretchHistogram(img)

	darkest, brightest := uint8(255), uint8(0)
	for x := 0; x < 10; x++ {
		c := stretched.NRGBAAt(x, 0)
		if c.R < darkest {
			darkest = c.R
		}
		if c.R > brightest {
			brightest = c.R
		}
	}

	require.Equal(t, uint8(0), darkest)
	require.Equal(t, uint8(255), brightest)
}
