package entity

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status string

func TestCoerce(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	local := stamp.In(time.FixedZone("CEST", 2*60*60))

	str := Field{Name: "email", Type: TypeString}
	num := Field{Name: "age", Type: TypeNumber}
	flag := Field{Name: "active", Type: TypeBoolean}
	date := Field{Name: "createdAt", Type: TypeDate}
	enum := Field{Name: "status", Type: TypeEnum, Enum: []string{"active", "disabled"}}

	tests := []struct {
		name  string
		field Field
		in    any
		want  any
	}{
		{"string", str, "a@b.com", "a@b.com"},
		{"string bytes", str, []byte("a@b.com"), "a@b.com"},
		{"string bytes kept", str, "jose\u0301", "jose\u0301"},
		{"named string", str, status("active"), "active"},
		{"int", num, 42, int64(42)},
		{"int32", num, int32(7), int64(7)},
		{"uint8", num, uint8(7), int64(7)},
		{"float", num, 2.5, 2.5},
		{"float32", num, float32(0.5), 0.5},
		{"whole float", num, 2.0, int64(2)},
		{"negative whole float", num, -3.0, int64(-3)},
		{"whole numeric text", num, []byte("4.0"), int64(4)},
		{"json number int", num, json.Number("12"), int64(12)},
		{"json number float", num, json.Number("1.5"), 1.5},
		{"numeric text", num, []byte("99"), int64(99)},
		{"bool", flag, true, true},
		{"sqlite bool", flag, int64(1), true},
		{"time", date, local, stamp},
		{"rfc3339 text", date, "2024-05-01T12:30:00Z", stamp},
		{"sqlite text", date, []byte("2024-05-01 12:30:00"), stamp},
		{"enum", enum, "disabled", "disabled"},
		{"named enum", enum, status("active"), "active"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Coerce(tc.field, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerceRejects(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		in    any
	}{
		{"number into string", Field{Name: "email", Type: TypeString}, 42},
		{"string into number", Field{Name: "age", Type: TypeNumber}, "42"},
		{"NaN", Field{Name: "age", Type: TypeNumber}, math.NaN()},
		{"huge uint", Field{Name: "age", Type: TypeNumber}, uint64(math.MaxUint64)},
		{"string into bool", Field{Name: "active", Type: TypeBoolean}, "true"},
		{"int 2 into bool", Field{Name: "active", Type: TypeBoolean}, int64(2)},
		{"garbage date", Field{Name: "createdAt", Type: TypeDate}, "yesterday"},
		{"enum outside set", Field{Name: "status", Type: TypeEnum, Enum: []string{"active"}}, "gone"},
		{"slice into string", Field{Name: "email", Type: TypeString}, []string{"a"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Coerce(tc.field, tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIncompatible)
		})
	}
}

func TestCoerceNull(t *testing.T) {
	got, err := Coerce(Field{Name: "nick", Type: TypeString, Nullable: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = Coerce(Field{Name: "email", Type: TypeString}, nil)
	assert.ErrorIs(t, err, ErrNull)
}

func TestCoerceDatePrecision(t *testing.T) {
	date := Field{Name: "createdAt", Type: TypeDate}
	want := time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

	got, err := Coerce(date, time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = Coerce(date, "2024-01-02T03:04:05.123456789Z")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIsZeroID(t *testing.T) {
	assert.True(t, IsZeroID(nil))
	assert.True(t, IsZeroID(""))
	assert.True(t, IsZeroID(0))
	assert.True(t, IsZeroID(int64(0)))
	assert.True(t, IsZeroID(uint(0)))
	assert.True(t, IsZeroID(0.0))

	assert.False(t, IsZeroID("u-1"))
	assert.False(t, IsZeroID(7))
	assert.False(t, IsZeroID(true))
}

func TestRowClone(t *testing.T) {
	r := Row{"id": int64(1)}
	c := r.Clone()
	c["id"] = int64(2)
	assert.Equal(t, int64(1), r["id"])
	assert.Nil(t, Row(nil).Clone())
}
