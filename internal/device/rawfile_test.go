package device

import (
	"bytes"
	"math"
	"testing"
)

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func TestRawFileWriteEncodesInt16LittleEndian(t *testing.T) {
	var buf closableBuffer
	a := NewRawFileAdapter(&buf, 44100, 2, false, false)

	if err := a.Write([]float64{0x4000, -0x4000, 0, 0x7FFF}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []byte{
		0x00, 0x40,
		0x00, 0xC0,
		0x00, 0x00,
		0xFF, 0x7F,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wrote % x, want % x", buf.Bytes(), want)
	}
}

func TestRawFileWriteEncodesInt16BigEndian(t *testing.T) {
	var buf closableBuffer
	a := NewRawFileAdapter(&buf, 44100, 1, false, true)

	if err := a.Write([]float64{0x4000, -1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []byte{0x40, 0x00, 0xFF, 0xFF}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wrote % x, want % x", buf.Bytes(), want)
	}
}

func TestRawFileWriteClipsOutOfRangeValues(t *testing.T) {
	var buf closableBuffer
	a := NewRawFileAdapter(&buf, 44100, 1, false, false)

	if err := a.Write([]float64{0x20000, -0x20000}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := []byte{0xFF, 0x7F, 0x01, 0x80} // 0x7FFF, -0x7FFF
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("wrote % x, want % x", buf.Bytes(), want)
	}
}

func TestRawFileWriteEncodesFloat32(t *testing.T) {
	var buf closableBuffer
	a := NewRawFileAdapter(&buf, 44100, 1, true, false)

	if err := a.Write([]float64{0x7FFF, 0}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := buf.Bytes()
	if len(got) != 8 {
		t.Fatalf("wrote %d bytes, want 8", len(got))
	}
	bits := uint32(got[0]) | uint32(got[1])<<8 | uint32(got[2])<<16 | uint32(got[3])<<24
	if f := math.Float32frombits(bits); f != 1 {
		t.Errorf("first float = %v, want 1 (full scale)", f)
	}
}

func TestRawFileWriteClipsFloat32ToUnitRange(t *testing.T) {
	var buf closableBuffer
	a := NewRawFileAdapter(&buf, 44100, 1, true, false)

	// An overdriven mix (note volume > 1) must still land in [-1, 1].
	if err := a.Write([]float64{0x20000, -0x20000}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := buf.Bytes()
	for i := 0; i < 2; i++ {
		bits := uint32(got[4*i]) | uint32(got[4*i+1])<<8 | uint32(got[4*i+2])<<16 | uint32(got[4*i+3])<<24
		f := math.Float32frombits(bits)
		want := float32(1)
		if i == 1 {
			want = -1
		}
		if f != want {
			t.Errorf("float %d = %v, want %v (clipped)", i, f, want)
		}
	}
}

func TestRawFileCloseClosesSink(t *testing.T) {
	var buf closableBuffer
	a := NewRawFileAdapter(&buf, 44100, 1, false, false)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !buf.closed {
		t.Error("Close should close the underlying sink")
	}
}
