package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldrin-go/aldrin/ident"
)

func TestScalarRoundTrip(t *testing.T) {
	enc, err := Encode(func(w *Writer) error {
		w.WriteI32(-42)
		return nil
	})
	require.NoError(t, err)

	var got int32
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		got, err = r.ReadI32()
		return err
	}))
	assert.EqualValues(t, -42, got)
}

func TestStringRoundTrip(t *testing.T) {
	enc, err := Encode(func(w *Writer) error {
		w.WriteString("hello, aldrin")
		return nil
	})
	require.NoError(t, err)

	var got string
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		got, err = r.ReadString()
		return err
	}))
	assert.Equal(t, "hello, aldrin", got)
}

func TestEmptyValueRejected(t *testing.T) {
	err := SerializedValue{}.Validate()
	assert.ErrorIs(t, err, ErrEmptyValue)
}

func TestTrailingDataRejected(t *testing.T) {
	enc, err := Encode(func(w *Writer) error {
		w.WriteBool(true)
		return nil
	})
	require.NoError(t, err)
	enc = append(enc, 0xFF)
	assert.ErrorIs(t, enc.Validate(), ErrTrailingData)
}

func TestVarintOverflowRejected(t *testing.T) {
	// Five continuation-bit bytes with no terminator overflow 32 bits.
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := readVarint(data, 0)
	assert.ErrorIs(t, err, ErrVarintOverflow)
}

func TestVecRoundTrip(t *testing.T) {
	items := []int32{1, 2, 3, -4}
	enc, err := Encode(func(w *Writer) error {
		return WriteVecOf(w, items, func(w *Writer, v int32) error {
			w.WriteI32(v)
			return nil
		})
	})
	require.NoError(t, err)

	var got []int32
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		got, err = ReadVecOf(r, func(r *Reader) (int32, error) { return r.ReadI32() })
		return err
	}))
	assert.Equal(t, items, got)
}

func TestMapRoundTrip(t *testing.T) {
	m := map[string]int32{"a": 1, "b": 2}
	enc, err := Encode(func(w *Writer) error {
		return WriteMapOf(w, m,
			func(w *Writer, k string) error { w.WriteString(k); return nil },
			func(w *Writer, v int32) error { w.WriteI32(v); return nil })
	})
	require.NoError(t, err)

	var got map[string]int32
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		got, err = ReadMapOf(r,
			func(r *Reader) (string, error) { return r.ReadString() },
			func(r *Reader) (int32, error) { return r.ReadI32() })
		return err
	}))
	assert.Equal(t, m, got)
}

func TestOptionRoundTrip(t *testing.T) {
	var v *int32
	enc, err := Encode(func(w *Writer) error {
		return WriteOption(w, v, func(w *Writer, v int32) error { w.WriteI32(v); return nil })
	})
	require.NoError(t, err)

	var got *int32
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		got, err = ReadOption(r, func(r *Reader) (int32, error) { return r.ReadI32() })
		return err
	}))
	assert.Nil(t, got)

	n := int32(7)
	enc2, err := Encode(func(w *Writer) error {
		return WriteOption(w, &n, func(w *Writer, v int32) error { w.WriteI32(v); return nil })
	})
	require.NoError(t, err)
	require.NoError(t, Decode(enc2, func(r *Reader) error {
		var err error
		got, err = ReadOption(r, func(r *Reader) (int32, error) { return r.ReadI32() })
		return err
	}))
	require.NotNil(t, got)
	assert.EqualValues(t, 7, *got)
}

func TestObjectIdServiceIdRoundTrip(t *testing.T) {
	oid := ident.ObjectId{Uuid: ident.NewObjectUuid(), Cookie: ident.NewObjectCookie()}
	sid := ident.ServiceId{Object: oid, Uuid: ident.NewServiceUuid(), Cookie: ident.NewServiceCookie()}

	enc, err := Encode(func(w *Writer) error {
		w.WriteServiceId(sid)
		return nil
	})
	require.NoError(t, err)

	var got ident.ServiceId
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		got, err = r.ReadServiceId()
		return err
	}))
	assert.Equal(t, sid, got)
}

// TestStructUnknownFieldPreservation exercises the schema-evolution
// round-trip property in SPEC_FULL.md §8: decoding a struct with extra
// unknown fields into a strict type and re-encoding preserves them.
func TestStructUnknownFieldPreservation(t *testing.T) {
	// Producer encodes three fields: 0, 1 (known to the consumer), and 99
	// (unknown to the consumer).
	enc, err := Encode(func(w *Writer) error {
		return w.WriteStruct(3, func(fw *StructWriter) error {
			if err := fw.Field(0, func(w *Writer) error { w.WriteString("name"); return nil }); err != nil {
				return err
			}
			if err := fw.Field(1, func(w *Writer) error { w.WriteI32(5); return nil }); err != nil {
				return err
			}
			return fw.Field(99, func(w *Writer) error { w.WriteBool(true); return nil })
		})
	})
	require.NoError(t, err)

	// Consumer only knows about fields 0 and 1.
	var sr *StructReader
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		sr, err = r.ReadStruct()
		return err
	}))

	nameRaw, ok := sr.Take(0)
	require.True(t, ok)
	var name string
	require.NoError(t, Decode(nameRaw, func(r *Reader) error {
		var err error
		name, err = r.ReadString()
		return err
	}))
	assert.Equal(t, "name", name)

	_, ok = sr.Take(1)
	require.True(t, ok)

	unknown := sr.Unknown()
	require.Len(t, unknown, 1)
	require.Contains(t, unknown, uint32(99))

	// Re-encode: known fields are regenerated, the unknown field 99 is
	// re-emitted verbatim.
	reenc, err := Encode(func(w *Writer) error {
		return w.WriteStruct(3, func(fw *StructWriter) error {
			if err := fw.Field(0, func(w *Writer) error { w.WriteString("name"); return nil }); err != nil {
				return err
			}
			if err := fw.Field(1, func(w *Writer) error { w.WriteI32(5); return nil }); err != nil {
				return err
			}
			for id, raw := range unknown {
				fw.RawField(id, raw)
			}
			return nil
		})
	})
	require.NoError(t, err)

	// Decoding the re-encoded struct still surfaces field 99 with its
	// original content.
	var sr2 *StructReader
	require.NoError(t, Decode(reenc, func(r *Reader) error {
		var err error
		sr2, err = r.ReadStruct()
		return err
	}))
	raw99, ok := sr2.Take(99)
	require.True(t, ok)
	var b bool
	require.NoError(t, Decode(raw99, func(r *Reader) error {
		var err error
		b, err = r.ReadBool()
		return err
	}))
	assert.True(t, b)
}

func TestEnumUnknownVariantPreservation(t *testing.T) {
	enc, err := Encode(func(w *Writer) error {
		return w.WriteEnum(42, func(w *Writer) error { w.WriteString("payload"); return nil })
	})
	require.NoError(t, err)

	var variant uint32
	var payload SerializedValue
	require.NoError(t, Decode(enc, func(r *Reader) error {
		var err error
		variant, payload, err = r.ReadEnum()
		return err
	}))
	assert.EqualValues(t, 42, variant)

	reenc, err := Encode(func(w *Writer) error {
		w.WriteEnumRaw(variant, payload)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, enc, reenc)
}

func TestInvalidKeyKindRejected(t *testing.T) {
	// A Vec used where a key is expected should fail checkKeyKind.
	enc, err := Encode(func(w *Writer) error {
		return w.WriteMap(1, func(i int, w *Writer) error {
			return w.WriteVec(0, func(int, *Writer) error { return nil })
		})
	})
	require.NoError(t, err)

	err = Decode(enc, func(r *Reader) error {
		_, err := ReadMapOf(r,
			func(r *Reader) (int32, error) { return r.ReadI32() },
			func(r *Reader) (int32, error) { return r.ReadI32() })
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidKeyKind)
}
