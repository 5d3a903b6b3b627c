package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
)

// MaxCoverWidth is the widest cover kept; larger images are scaled down.
const MaxCoverWidth = 1600

var ErrUnsupportedType = errors.New("storage: only JPEG, PNG, GIF and WebP images are supported")

var coverTypes = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/webp": -1,
}

// Cover is a validated, possibly downscaled image ready for upload.
type Cover struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// PrepareCover sniffs data, rejects anything but the supported image types and
// scales JPEG and PNG images wider than MaxCoverWidth. WebP and GIF are stored
// as uploaded.
func PrepareCover(data []byte) (*Cover, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, ErrUnsupportedType
	}
	format, ok := coverTypes[kind.MIME.Value]
	if !ok {
		return nil, ErrUnsupportedType
	}
	cover := &Cover{Data: data, ContentType: kind.MIME.Value, Ext: "." + kind.Extension}
	if format < 0 || format == imaging.GIF {
		return cover, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	cover.Width, cover.Height = b.Dx(), b.Dy()
	if cover.Width <= MaxCoverWidth {
		return cover, nil
	}

	resized := imaging.Resize(img, MaxCoverWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	cover.Data = buf.Bytes()
	cover.Width, cover.Height = resized.Bounds().Dx(), resized.Bounds().Dy()
	return cover, nil
}
