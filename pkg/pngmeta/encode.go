package pngmeta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

const (
	bitDepth       = 8
	colorTypeRGBA  = 6
	filterSub      = 1
	bytesPerPixel  = 4
	ihdrDataLength = 13
)

// EncodeRGBA encodes img as a non-interlaced 8-bit RGBA PNG. Unlike
// image/png it keeps the alpha channel for opaque images.
func EncodeRGBA(img image.Image) ([]byte, error) {
	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrEncode, w, h)
	}

	var idat bytes.Buffer
	zw, err := zlib.NewWriterLevel(&idat, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	rowLen := w * bytesPerPixel
	row := make([]byte, 1+rowLen)
	row[0] = filterSub
	for y := 0; y < h; y++ {
		pix := src.Pix[y*src.Stride : y*src.Stride+rowLen]
		for i, v := range pix {
			var left byte
			if i >= bytesPerPixel {
				left = pix[i-bytesPerPixel]
			}
			row[1+i] = v - left
		}
		if _, err := zw.Write(row); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	ihdr := make([]byte, ihdrDataLength)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h))
	ihdr[8] = bitDepth
	ihdr[9] = colorTypeRGBA
	// Compression, filter and interlace methods stay 0.

	out := make([]byte, 0, sigLen+3*chunkOverhead+ihdrDataLength+idat.Len())
	out = append(out, signature...)
	out = append(out, Chunk("IHDR", ihdr)...)
	out = append(out, Chunk("IDAT", idat.Bytes())...)
	out = append(out, Chunk("IEND", nil)...)
	return out, nil
}

// toNRGBA returns img as a zero-origin *image.NRGBA, converting if needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}
