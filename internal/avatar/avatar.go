// Package avatar stores uploaded profile pictures as bounded thumbnails.
package avatar

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDim bounds both thumbnail dimensions.
const MaxDim = 125

// AllowedExt reports whether the filename carries an accepted image extension.
func AllowedExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Save decodes the uploaded image, downscales it so neither dimension exceeds
// MaxDim (never upscaling), and writes it into dir under a random hex name
// that keeps the original extension. It returns the stored filename.
// Callers are expected to have checked AllowedExt first.
func Save(r io.Reader, filename, dir string) (string, error) {
	tokenBytes := make([]byte, 8)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	outName := hex.EncodeToString(tokenBytes) + ext

	src, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := resize(src)

	out, err := os.Create(filepath.Join(dir, outName))
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}
	defer out.Close()

	switch ext {
	case ".png":
		err = png.Encode(out, thumb)
	default:
		err = jpeg.Encode(out, thumb, nil)
	}
	if err != nil {
		return "", fmt.Errorf("encode avatar: %w", err)
	}

	return outName, nil
}

func resize(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= MaxDim && h <= MaxDim {
		return src
	}

	// Scale the longer side down to MaxDim, keeping aspect ratio.
	var tw, th int
	if w >= h {
		tw = MaxDim
		th = h * MaxDim / w
	} else {
		th = MaxDim
		tw = w * MaxDim / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
