package pngmeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// bitwiseCRC is the reference PNG CRC-32: reflected polynomial 0xEDB88320,
// computed one bit at a time.
func bitwiseCRC(data []byte) uint32 {
	crc := ^uint32(0)
	for _, b := range data {
		crc ^= uint32(b)
		for k := 0; k < 8; k++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xEDB88320
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(40 * x), B: uint8(40 * x), A: uint8(100 + 100*y)})
		}
	}
	return img
}

func TestPixelsPerMeter(t *testing.T) {
	tests := []struct {
		dpi  int
		want uint32
	}{
		{72, 2835},
		{150, 5906},
		{300, 11811},
		{96, 3780},
	}
	for _, tt := range tests {
		if got := PixelsPerMeter(tt.dpi); got != tt.want {
			t.Errorf("PixelsPerMeter(%d) = %d, want %d", tt.dpi, got, tt.want)
		}
	}
}

func TestEncodeDPIRoundTrip(t *testing.T) {
	data, err := EncodePNGWithDPI(testImage(), 300)
	if err != nil {
		t.Fatalf("EncodePNGWithDPI: %v", err)
	}
	phys, err := ReadPHYs(data)
	if err != nil {
		t.Fatalf("ReadPHYs: %v", err)
	}
	if phys.X != 11811 || phys.Y != 11811 || phys.Unit != UnitMeter {
		t.Errorf("pHYs = %+v, want 11811/11811/1", phys)
	}
}

func TestChunkPlacementAndCRC(t *testing.T) {
	var base bytes.Buffer
	if err := png.Encode(&base, testImage()); err != nil {
		t.Fatal(err)
	}
	out, err := InsertPHYs(base.Bytes(), 300)
	if err != nil {
		t.Fatalf("InsertPHYs: %v", err)
	}

	// Signature (8) + IHDR (12 + 13) = 33.
	const at = 33
	if string(out[at+4:at+8]) != "pHYs" {
		t.Fatalf("chunk after IHDR is %q", out[at+4:at+8])
	}
	if n := binary.BigEndian.Uint32(out[at : at+4]); n != 9 {
		t.Fatalf("pHYs length = %d, want 9", n)
	}
	crc := binary.BigEndian.Uint32(out[at+17 : at+21])
	if want := bitwiseCRC(out[at+4 : at+17]); crc != want {
		t.Errorf("CRC = %08x, reference %08x", crc, want)
	}

	// Everything else is untouched.
	if !bytes.Equal(out[:at], base.Bytes()[:at]) || !bytes.Equal(out[at+21:], base.Bytes()[at:]) {
		t.Error("bytes outside the inserted chunk changed")
	}
	if len(out) != base.Len()+21 {
		t.Errorf("len = %d, want %d", len(out), base.Len()+21)
	}
}

func TestDecodersIgnoreChunk(t *testing.T) {
	src := testImage()
	data, err := EncodePNGWithDPI(src, 150)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if img.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", img.Bounds(), src.Bounds())
	}
	got := color.NRGBAModel.Convert(img.At(2, 1)).(color.NRGBA)
	if got != src.NRGBAAt(2, 1) {
		t.Errorf("pixel = %v, want %v", got, src.NRGBAAt(2, 1))
	}
}

func TestMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not png", []byte("GIF89a this is definitely not a png file")},
		{"truncated ihdr", append(append([]byte{}, signature...), 0, 0, 0, 13, 'I', 'H', 'D', 'R', 0, 0, 0, 0)},
		{"wrong first chunk", append(append([]byte{}, signature...), 0, 0, 0, 0, 'I', 'D', 'A', 'T', 0, 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := InsertPHYs(tt.data, 72); !errors.Is(err, ErrMalformedPNG) {
				t.Errorf("err = %v, want ErrMalformedPNG", err)
			}
		})
	}
}

func TestInvalidDPI(t *testing.T) {
	if _, err := EncodePNGWithDPI(testImage(), 0); !errors.Is(err, ErrInvalidDPI) {
		t.Errorf("err = %v, want ErrInvalidDPI", err)
	}
}

func TestReadPHYsMissing(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPHYs(buf.Bytes()); !errors.Is(err, ErrNoPHYs) {
		t.Errorf("err = %v, want ErrNoPHYs", err)
	}
}

func TestReadPHYsBadCRC(t *testing.T) {
	data, err := EncodePNGWithDPI(testImage(), 72)
	if err != nil {
		t.Fatal(err)
	}
	data[33+8] ^= 0xff
	if _, err := ReadPHYs(data); !errors.Is(err, ErrMalformedPNG) {
		t.Errorf("err = %v, want ErrMalformedPNG", err)
	}
}

func TestDPI(t *testing.T) {
	if got := DPI(PixelsPerMeter(300)); got < 299.99 || got > 300.01 {
		t.Errorf("DPI = %v, want ~300", got)
	}
}

func TestOpaqueImagesStayRGBA(t *testing.T) {
	opaque := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range opaque.Pix {
		opaque.Pix[i] = uint8(i * 7)
		if i%4 == 3 {
			opaque.Pix[i] = 255
		}
	}
	gray := image.NewGray(image.Rect(0, 0, 2, 3))
	gray.Pix = []uint8{0, 50, 100, 150, 200, 250}
	offset := opaque.SubImage(image.Rect(1, 1, 3, 4))

	tests := []struct {
		name string
		img  image.Image
	}{
		{"opaque", opaque},
		{"translucent", testImage()},
		{"gray", gray},
		{"offset origin", offset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePNGWithDPI(tt.img, 300)
			if err != nil {
				t.Fatalf("EncodePNGWithDPI: %v", err)
			}
			if data[24] != 8 || data[25] != 6 {
				t.Errorf("IHDR bit depth %d colour type %d, want 8 and 6", data[24], data[25])
			}
			dec, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("png.Decode: %v", err)
			}
			b := tt.img.Bounds()
			if dec.Bounds().Dx() != b.Dx() || dec.Bounds().Dy() != b.Dy() {
				t.Fatalf("bounds = %v, want %v", dec.Bounds(), b)
			}
			for y := 0; y < b.Dy(); y++ {
				for x := 0; x < b.Dx(); x++ {
					want := color.NRGBAModel.Convert(tt.img.At(b.Min.X+x, b.Min.Y+y))
					got := color.NRGBAModel.Convert(dec.At(x, y))
					if got != want {
						t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestEncodeEmptyImage(t *testing.T) {
	if _, err := EncodeRGBA(image.NewNRGBA(image.Rect(0, 0, 0, 3))); !errors.Is(err, ErrEncode) {
		t.Errorf("err = %v, want ErrEncode", err)
	}
}
