package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode reports a photo source that cannot be opened or decoded.
	ErrDecode = errors.New("cannot decode image")
	// ErrWrite reports a failure to produce or finalize the PDF.
	ErrWrite = errors.New("cannot write document")
)

// Source dimension caps, checked from the image header before decoding. The
// full bitmap is decoded before sampling, so maxSourcePixels bounds peak
// memory per photo (about 200 MB as RGBA).
const (
	maxSourceDimension = 20000
	maxSourcePixels    = 50_000_000
)

// ImageLoader resolves a photo URI into a bitmap that is at least as large as
// target (when the source allows it), already reduced so that it is not much
// larger. Errors should wrap ErrDecode.
type ImageLoader interface {
	Load(ctx context.Context, uri string, target image.Point) (image.Image, error)
}

// LoaderFunc adapts a function to ImageLoader.
type LoaderFunc func(ctx context.Context, uri string, target image.Point) (image.Image, error)

func (f LoaderFunc) Load(ctx context.Context, uri string, target image.Point) (image.Image, error) {
	return f(ctx, uri, target)
}

// FileLoader reads photos from the local filesystem. URIs are plain paths or
// file:// URLs; relative paths are resolved against Root. Root is a base
// directory, not a sandbox: absolute paths and paths climbing out of Root with
// ".." are read as given.
type FileLoader struct {
	Root string
}

// Load decodes the photo and reduces it by SampleFactor.
func (l FileLoader) Load(ctx context.Context, uri string, target image.Point) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.resolve(uri)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // user-selected photo path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer f.Close()

	return decodeSampled(f, target)
}

func (l FileLoader) resolve(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("%w: empty uri", ErrDecode)
	}
	path := uri
	if strings.Contains(uri, "://") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("%w: unsupported uri scheme %q", ErrDecode, u.Scheme)
		}
		path = u.Path
	}
	if !filepath.IsAbs(path) && l.Root != "" {
		path = filepath.Join(l.Root, path)
	}
	return filepath.Clean(path), nil
}

// decodeSampled reads the header for dimensions, rejects oversized sources,
// decodes and reduces by the sample factor for target.
func decodeSampled(r io.ReadSeeker, target image.Point) (image.Image, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := checkSourceBounds(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, format, err)
	}

	factor := SampleFactor(cfg.Width, cfg.Height, target.X, target.Y)
	if factor == 1 {
		return img, nil
	}
	return downsample(img, factor), nil
}

func checkSourceBounds(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, w, h)
	}
	if w > maxSourceDimension || h > maxSourceDimension {
		return fmt.Errorf("%w: dimensions %dx%d exceed %d", ErrDecode, w, h, maxSourceDimension)
	}
	if int64(w)*int64(h) > maxSourcePixels {
		return fmt.Errorf("%w: %d pixels exceed %d", ErrDecode, int64(w)*int64(h), maxSourcePixels)
	}
	return nil
}

// downsample shrinks img by an integer factor.
func downsample(img image.Image, factor int) image.Image {
	b := img.Bounds()
	w := max(b.Dx()/factor, 1)
	h := max(b.Dy()/factor, 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
