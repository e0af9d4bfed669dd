package wgslc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/gogpu/naga/ir"
)

// Errors returned by Field.Encode.
var (
	// ErrValueType is returned when a value cannot be stored in a field.
	ErrValueType = errors.New("wgslc: value does not match uniform type")

	// ErrUnsupportedField is returned for fields that cannot be set from the
	// host, such as nested structs.
	ErrUnsupportedField = errors.New("wgslc: uniform field is not settable")
)

type scalarKind uint8

const (
	kindNone scalarKind = iota
	kindFloat
	kindSint
	kindUint
)

// Field is one settable value inside a uniform buffer.
type Field struct {
	Name   string
	Type   string
	Offset uint32
	Size   uint32

	kind        scalarKind
	components  uint32 // rows of a vector or matrix column, 1 for scalars
	columns     uint32 // 1 unless a matrix
	columnSize  uint32 // byte stride between matrix columns
	count       uint32 // array length, 0 if not an array
	arrayStride uint32
}

func newField(module *ir.Module, name string, ty ir.TypeHandle, offset uint32) Field {
	f := Field{
		Name:   name,
		Type:   TypeName(module, ty),
		Offset: offset,
		Size:   ir.TypeSize(module, ty),
	}
	inner := module.Types[ty].Inner
	if arr, ok := inner.(ir.ArrayType); ok && arr.Size.Constant != nil {
		f.count = *arr.Size.Constant
		f.arrayStride = arr.Stride
		inner = module.Types[arr.Base].Inner
	}
	switch t := inner.(type) {
	case ir.ScalarType:
		f.kind = kindOf(t)
		f.components, f.columns = 1, 1
		f.columnSize = 4
	case ir.VectorType:
		f.kind = kindOf(t.Scalar)
		f.components, f.columns = uint32(t.Size), 1
		f.columnSize = uint32(t.Size) * 4
	case ir.MatrixType:
		f.kind = kindOf(t.Scalar)
		f.components, f.columns = uint32(t.Rows), uint32(t.Columns)
		f.columnSize = 8
		if t.Rows != ir.Vec2 {
			f.columnSize = 16
		}
	}
	return f
}

func kindOf(s ir.ScalarType) scalarKind {
	if s.Width != 4 {
		return kindNone
	}
	switch s.Kind {
	case ir.ScalarFloat:
		return kindFloat
	case ir.ScalarSint:
		return kindSint
	case ir.ScalarUint:
		return kindUint
	default:
		return kindNone
	}
}

// Len returns the number of scalars the field holds.
func (f Field) Len() int {
	n := int(f.components * f.columns)
	if f.count > 0 {
		n *= int(f.count)
	}
	return n
}

// Encode converts value into the byte layout of the field. The result is
// Size bytes long and belongs at Offset in the uniform buffer.
//
// Scalars may be float32, float64, int, int32, uint32 or bool. Vectors,
// matrices and arrays take a Go array or slice of those with exactly Len
// elements; matrices are given column by column.
func (f Field) Encode(value any) ([]byte, error) {
	if f.kind == kindNone {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedField, f.Name, f.Type)
	}
	scalars, err := flatten(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrValueType, f.Name, f.Type, err)
	}
	if len(scalars) != f.Len() {
		return nil, fmt.Errorf("%w: %s %s wants %d values, got %d",
			ErrValueType, f.Name, f.Type, f.Len(), len(scalars))
	}

	buf := make([]byte, f.Size)
	elements := uint32(1)
	if f.count > 0 {
		elements = f.count
	}
	i := 0
	for e := uint32(0); e < elements; e++ {
		for c := uint32(0); c < f.columns; c++ {
			for r := uint32(0); r < f.components; r++ {
				off := e*f.arrayStride + c*f.columnSize + r*4
				bits, err := f.bits(scalars[i])
				if err != nil {
					return nil, fmt.Errorf("%w: %s %s: %v", ErrValueType, f.Name, f.Type, err)
				}
				binary.LittleEndian.PutUint32(buf[off:], bits)
				i++
			}
		}
	}
	return buf, nil
}

func (f Field) bits(v float64) (uint32, error) {
	switch f.kind {
	case kindFloat:
		return math.Float32bits(float32(v)), nil
	case kindSint:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%v is not an i32", v)
		}
		return uint32(int32(v)), nil
	case kindUint:
		if v != math.Trunc(v) || v < 0 || v > math.MaxUint32 {
			return 0, fmt.Errorf("%v is not a u32", v)
		}
		return uint32(v), nil
	}
	return 0, ErrUnsupportedField
}

// flatten turns a scalar, array or slice into a list of numbers.
func flatten(value any) ([]float64, error) {
	if v, ok := scalar(reflect.ValueOf(value)); ok {
		return []float64{v}, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Array && rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unsupported value %T", value)
	}
	out := make([]float64, rv.Len())
	for i := range out {
		v, ok := scalar(rv.Index(i))
		if !ok {
			return nil, fmt.Errorf("unsupported element %s", rv.Index(i).Type())
		}
		out[i] = v
	}
	return out, nil
}

func scalar(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
