// Package imageinfo reads still-image geometry without decoding pixel data.
// The compiler uses it to reject broken backgrounds before ffmpeg starts and
// to log how a background will be letterboxed.
package imageinfo

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Info describes a decoded image header.
type Info struct {
	Format string
	Width  int
	Height int
}

// Fit describes how an image is placed inside a frame.
type Fit struct {
	ScaledWidth  int
	ScaledHeight int
	PadX         int
	PadY         int
}

// Letterboxed reports whether the fit leaves visible padding.
func (f Fit) Letterboxed() bool {
	return f.PadX > 0 || f.PadY > 0
}

var headerFormats = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Checkable reports whether path has an extension whose header Read can
// decode. Other formats are left to ffmpeg.
func Checkable(path string) bool {
	return headerFormats[strings.ToLower(filepath.Ext(path))]
}

// Read decodes only the header of the image at path.
func Read(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()
	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return Info{}, fmt.Errorf("decode image header %s: %w", path, err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// FitInside mirrors ffmpeg's force_original_aspect_ratio=decrease followed
// by a centred pad: the image is scaled to the largest size that fits inside
// the frame with its aspect ratio intact and never cropped.
func FitInside(info Info, frameWidth, frameHeight int) Fit {
	if info.Width <= 0 || info.Height <= 0 || frameWidth <= 0 || frameHeight <= 0 {
		return Fit{ScaledWidth: frameWidth, ScaledHeight: frameHeight}
	}
	// Compare cross products to avoid float rounding at exact ratios.
	w, h := frameWidth, frameHeight
	if info.Width*frameHeight > info.Height*frameWidth {
		h = info.Height * frameWidth / info.Width
	} else {
		w = info.Width * frameHeight / info.Height
	}
	return Fit{
		ScaledWidth:  w,
		ScaledHeight: h,
		PadX:         (frameWidth - w) / 2,
		PadY:         (frameHeight - h) / 2,
	}
}
