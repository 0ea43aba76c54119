// Package pngmeta encodes depth maps as PNG and records their physical
// resolution in a pHYs chunk.
//
// Images are always written as 8-bit RGBA (colour type 6), opaque or not.
// The pHYs chunk is spliced into the encoded stream right after IHDR; no
// other byte of the stream changes.
package pngmeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"math"
)

var (
	// ErrMalformedPNG is returned when input bytes are not a PNG stream
	// starting with an IHDR chunk.
	ErrMalformedPNG = errors.New("pngmeta: malformed PNG")

	// ErrEncode is returned when the base PNG encoding fails.
	ErrEncode = errors.New("pngmeta: encode failed")

	// ErrInvalidDPI is returned for a DPI that is not positive.
	ErrInvalidDPI = errors.New("pngmeta: dpi must be > 0")

	// ErrNoPHYs is returned by ReadPHYs when the stream has no pHYs chunk.
	ErrNoPHYs = errors.New("pngmeta: no pHYs chunk")
)

// InchesPerMeter converts DPI to pixels per meter.
const InchesPerMeter = 39.3701

// UnitMeter is the pHYs unit specifier for pixels per meter.
const UnitMeter = 1

const (
	sigLen        = 8
	chunkOverhead = 12 // length + type + CRC
	physDataLen   = 9
)

var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PixelsPerMeter returns round(dpi * 39.3701).
func PixelsPerMeter(dpi int) uint32 {
	return uint32(math.Round(float64(dpi) * InchesPerMeter))
}

// DPI converts pixels per meter back to dots per inch.
func DPI(ppm uint32) float64 {
	return float64(ppm) / InchesPerMeter
}

// Chunk serialises a PNG chunk: length, type, data and the CRC-32 of
// type and data.
func Chunk(typ string, data []byte) []byte {
	out := make([]byte, 0, chunkOverhead+len(data))
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, typ...)
	out = append(out, data...)
	crc := crc32.ChecksumIEEE(out[4:])
	return binary.BigEndian.AppendUint32(out, crc)
}

// PHYsChunk builds a pHYs chunk with square pixels at dpi.
func PHYsChunk(dpi int) []byte {
	ppm := PixelsPerMeter(dpi)
	data := make([]byte, physDataLen)
	binary.BigEndian.PutUint32(data[0:4], ppm)
	binary.BigEndian.PutUint32(data[4:8], ppm)
	data[8] = UnitMeter
	return Chunk("pHYs", data)
}

// ihdrEnd returns the offset just past the IHDR chunk.
func ihdrEnd(data []byte) (int, error) {
	if len(data) < sigLen+chunkOverhead || !bytes.Equal(data[:sigLen], signature) {
		return 0, fmt.Errorf("%w: missing signature", ErrMalformedPNG)
	}
	if string(data[sigLen+4:sigLen+8]) != "IHDR" {
		return 0, fmt.Errorf("%w: first chunk is %q, want IHDR", ErrMalformedPNG, data[sigLen+4:sigLen+8])
	}
	n := int(binary.BigEndian.Uint32(data[sigLen : sigLen+4]))
	end := sigLen + chunkOverhead + n
	if n > len(data) || end > len(data) {
		return 0, fmt.Errorf("%w: IHDR length %d exceeds stream", ErrMalformedPNG, n)
	}
	return end, nil
}

// InsertPHYs returns a copy of data with a pHYs chunk for dpi spliced in
// directly after IHDR.
func InsertPHYs(data []byte, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDPI, dpi)
	}
	at, err := ihdrEnd(data)
	if err != nil {
		return nil, err
	}
	chunk := PHYsChunk(dpi)
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:at]...)
	out = append(out, chunk...)
	out = append(out, data[at:]...)
	return out, nil
}

// EncodePNGWithDPI encodes img and records dpi in a pHYs chunk.
func EncodePNGWithDPI(img image.Image, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDPI, dpi)
	}
	data, err := EncodeRGBA(img)
	if err != nil {
		return nil, err
	}
	return InsertPHYs(data, dpi)
}

// PHYs is a decoded pHYs chunk.
type PHYs struct {
	X, Y uint32
	Unit byte
}

// ReadPHYs scans a PNG stream for its pHYs chunk and verifies the CRC.
func ReadPHYs(data []byte) (PHYs, error) {
	if _, err := ihdrEnd(data); err != nil {
		return PHYs{}, err
	}
	for off := sigLen; off+chunkOverhead <= len(data); {
		n := int(binary.BigEndian.Uint32(data[off : off+4]))
		end := off + chunkOverhead + n
		if n > len(data) || end > len(data) {
			return PHYs{}, fmt.Errorf("%w: chunk at %d overruns stream", ErrMalformedPNG, off)
		}
		typ := string(data[off+4 : off+8])
		body := data[off+8 : off+8+n]
		if typ == "pHYs" {
			want := binary.BigEndian.Uint32(data[end-4 : end])
			if got := crc32.ChecksumIEEE(data[off+4 : off+8+n]); got != want {
				return PHYs{}, fmt.Errorf("%w: pHYs CRC %08x, want %08x", ErrMalformedPNG, got, want)
			}
			if n != physDataLen {
				return PHYs{}, fmt.Errorf("%w: pHYs length %d", ErrMalformedPNG, n)
			}
			return PHYs{
				X:    binary.BigEndian.Uint32(body[0:4]),
				Y:    binary.BigEndian.Uint32(body[4:8]),
				Unit: body[8],
			}, nil
		}
		if typ == "IEND" {
			break
		}
		off = end
	}
	return PHYs{}, ErrNoPHYs
}
