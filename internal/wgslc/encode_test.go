package wgslc

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

const blockSource = `struct Block {
    scale: f32,
    count: i32,
    mask: u32,
    offset: vec2<f32>,
    rot: mat2x2<f32>,
    basis: mat3x3<f32>,
    weights: array<vec4<f32>, 2>,
}

@group(0) @binding(0) var<uniform> block: Block;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    let a = vec4<f32>(block.scale, f32(block.count), f32(block.mask), block.offset.x);
    let b = vec4<f32>(block.rot[0], block.basis[0].xy);
    return a + b + block.weights[1];
}
`

func blockField(t *testing.T, name string) Field {
	t.Helper()
	uniforms := mustCompile(t, blockSource).Uniforms()
	if len(uniforms) != 1 {
		t.Fatalf("Uniforms = %+v", uniforms)
	}
	f, ok := uniforms[0].Field(name)
	if !ok {
		t.Fatalf("field %q not found", name)
	}
	return f
}

func floatAt(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestEncodeScalars(t *testing.T) {
	scale := blockField(t, "scale")
	buf, err := scale.Encode(float32(1.5))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(buf) != 4 || floatAt(buf, 0) != 1.5 {
		t.Errorf("scale = %v", buf)
	}
	buf, err = scale.Encode(true)
	if err != nil || floatAt(buf, 0) != 1 {
		t.Errorf("Encode(true) = %v, %v", buf, err)
	}

	count := blockField(t, "count")
	buf, err = count.Encode(-3)
	if err != nil {
		t.Fatalf("Encode(-3) error = %v", err)
	}
	if got := int32(binary.LittleEndian.Uint32(buf)); got != -3 {
		t.Errorf("count = %d, want -3", got)
	}
	if _, err := count.Encode(1.5); !errors.Is(err, ErrValueType) {
		t.Errorf("Encode(1.5) into i32 error = %v, want ErrValueType", err)
	}

	mask := blockField(t, "mask")
	buf, err = mask.Encode(uint32(7))
	if err != nil || binary.LittleEndian.Uint32(buf) != 7 {
		t.Errorf("Encode(uint32(7)) = %v, %v", buf, err)
	}
	if _, err := mask.Encode(-1); !errors.Is(err, ErrValueType) {
		t.Errorf("Encode(-1) into u32 error = %v, want ErrValueType", err)
	}
}

func TestEncodeVector(t *testing.T) {
	offset := blockField(t, "offset")
	buf, err := offset.Encode([2]float32{1, 2})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if floatAt(buf, 0) != 1 || floatAt(buf, 4) != 2 {
		t.Errorf("offset = %v", buf)
	}
	if _, err := offset.Encode([]float32{1}); !errors.Is(err, ErrValueType) {
		t.Errorf("short slice error = %v, want ErrValueType", err)
	}
	if _, err := offset.Encode("left"); !errors.Is(err, ErrValueType) {
		t.Errorf("string error = %v, want ErrValueType", err)
	}
	if _, err := offset.Encode(nil); !errors.Is(err, ErrValueType) {
		t.Errorf("nil error = %v, want ErrValueType", err)
	}
}

func TestEncodeMatrixColumnStride(t *testing.T) {
	rot := blockField(t, "rot")
	buf, err := rot.Encode([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Encode(mat2x2) error = %v", err)
	}
	for i, want := range []float32{1, 2, 3, 4} {
		if got := floatAt(buf, i*4); got != want {
			t.Errorf("mat2x2[%d] = %v, want %v", i, got, want)
		}
	}

	basis := blockField(t, "basis")
	if basis.Size != 48 {
		t.Fatalf("mat3x3 size = %d, want 48", basis.Size)
	}
	buf, err = basis.Encode([9]float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	if err != nil {
		t.Fatalf("Encode(mat3x3) error = %v", err)
	}
	if floatAt(buf, 8) != 3 || floatAt(buf, 12) != 0 || floatAt(buf, 16) != 4 || floatAt(buf, 40) != 9 {
		t.Errorf("mat3x3 columns not padded to 16 bytes: %v", buf)
	}
}

func TestEncodeArray(t *testing.T) {
	weights := blockField(t, "weights")
	if weights.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", weights.Len())
	}
	buf, err := weights.Encode([]float32{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if floatAt(buf, 16) != 5 || floatAt(buf, 28) != 8 {
		t.Errorf("weights = %v", buf)
	}
}
