// Package storage keeps uploaded image files on local disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"spaceofthoughts/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	// PreviewDir holds webp previews, relative to the image directory.
	PreviewDir = "previews"
	// PreviewMaxSize bounds the longer edge of a preview.
	PreviewMaxSize = 640
	WebPQuality    = 70
)

// ErrInvalidName is returned for names that would escape the image directory.
var ErrInvalidName = errors.New("invalid file name")

// Storage persists image files by their stored name (file name plus extension).
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Delete(ctx context.Context, name string) error
	Preview(ctx context.Context, name string) (string, error)
	Path(name string) string
}

// Disk is a Storage rooted at a local directory.
type Disk struct {
	dir string
}

// NewDisk creates dir if needed and returns a Storage rooted there.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Join(dir, PreviewDir), 0o750); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the root directory.
func (d *Disk) Dir() string {
	return d.dir
}

// ValidName reports whether name is a bare file name.
func ValidName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// Path returns the on-disk location of name.
func (d *Disk) Path(name string) string {
	return filepath.Join(d.dir, name)
}

// Save writes r to name, replacing any existing file.
func (d *Disk) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	if !ValidName(name) {
		return 0, ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), d.Path(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

// Delete removes name and its preview. Missing files are not an error.
func (d *Disk) Delete(_ context.Context, name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Remove(filepath.Join(d.dir, previewName(name))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Preview decodes name and writes a downscaled webp copy under PreviewDir.
// It returns the preview's path relative to the image directory.
func (d *Disk) Preview(ctx context.Context, name string) (rel string, err error) {
	if !ValidName(name) {
		return "", ErrInvalidName
	}
	ctx, span := observability.StartStorageSpan(ctx, "preview", name)
	defer func() { observability.EndSpan(span, err) }()

	f, err := os.Open(d.Path(name))
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resizeToFit(src, PreviewMaxSize), &webp.Options{Quality: WebPQuality}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}

	rel = previewName(name)
	if err := os.WriteFile(filepath.Join(d.dir, rel), buf.Bytes(), 0o600); err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func previewName(name string) string {
	return filepath.Join(PreviewDir, strings.TrimSuffix(name, filepath.Ext(name))+".webp")
}

func resizeToFit(src image.Image, maxSize int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSize && h <= maxSize {
		return src
	}

	scale := float64(maxSize) / float64(w)
	if hs := float64(maxSize) / float64(h); hs < scale {
		scale = hs
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
