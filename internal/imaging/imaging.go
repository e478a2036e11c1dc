// Package imaging turns encoded images into classifier input tensors.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"caption-service/internal/core/domain"
	"caption-service/internal/nn"
)

// Evaluation geometry: shorter side to 256, then a 224 center crop.
const (
	ResizeSize = 256
	CropSize   = nn.InputSize
)

// ImageNet channel statistics.
var (
	Mean = [3]float32{0.485, 0.456, 0.406}
	Std  = [3]float32{0.229, 0.224, 0.225}
)

// Transform maps a decoded image to a [3,H,W] tensor.
type Transform func(img image.Image) *nn.Tensor

// Input limits, checked against the header before pixels are decoded. The
// aspect cap bounds the intermediate image ResizeShorter produces.
const (
	MaxPixels      = 50_000_000
	MaxAspectRatio = 64
)

// Decode reads any registered image format. Failures, including images past
// the input limits, wrap domain.ErrInvalidImage.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if err := checkBounds(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	return img, nil
}

func checkBounds(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty %dx%d", domain.ErrInvalidImage, w, h)
	}
	if int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrInvalidImage, w, h, MaxPixels)
	}
	if max(w, h) > min(w, h)*MaxAspectRatio {
		return fmt.Errorf("%w: %dx%d aspect ratio exceeds %d:1", domain.ErrInvalidImage, w, h, MaxAspectRatio)
	}
	return nil
}

// ToRGB copies img into an opaque RGBA image anchored at the origin. Alpha is
// dropped without compositing.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// Resize scales img to exactly w x h with bilinear interpolation.
func Resize(img *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ResizeShorter scales img so its shorter side equals size, keeping the
// aspect ratio. The longer side is truncated.
func ResizeShorter(img *image.RGBA, size int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= h {
		if w == size {
			return img
		}
		return Resize(img, size, int(float64(size)*float64(h)/float64(w)))
	}
	if h == size {
		return img
	}
	return Resize(img, int(float64(size)*float64(w)/float64(h)), size)
}

// CenterCrop cuts a size x size square from the middle of img. Images smaller
// than size are zero padded.
func CenterCrop(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	left := cropOffset(b.Dx(), size)
	top := cropOffset(b.Dy(), size)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(b.Min.X+left, b.Min.Y+top), draw.Src)
	return dst
}

func cropOffset(have, want int) int {
	if have < want {
		return -((want - have) / 2)
	}
	return int(math.RoundToEven(float64(have-want) / 2))
}

// ToTensor converts img to [3,H,W] with values in [0,1].
func ToTensor(img *image.RGBA) *nn.Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	t := nn.New(3, h, w)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			i := y*w + x
			t.Data[i] = float32(c.R) / 255
			t.Data[plane+i] = float32(c.G) / 255
			t.Data[2*plane+i] = float32(c.B) / 255
		}
	}
	return t
}

// Normalize applies (x - mean) / std per channel in place.
func Normalize(t *nn.Tensor, mean, std [3]float32) *nn.Tensor {
	plane := t.Len() / 3
	for c := 0; c < 3; c++ {
		ch := t.Data[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] = (ch[i] - mean[c]) / std[c]
		}
	}
	return t
}

// EvalTransform is the serving preprocessing.
func EvalTransform(img image.Image) *nn.Tensor {
	rgb := CenterCrop(ResizeShorter(ToRGB(img), ResizeSize), CropSize)
	return Normalize(ToTensor(rgb), Mean, Std)
}

// TrainTransform is the training preprocessing: an exact resize with no
// normalization.
func TrainTransform(img image.Image) *nn.Tensor {
	return ToTensor(Resize(ToRGB(img), nn.InputSize, nn.InputSize))
}
