package value

// This file realizes SPEC_FULL.md §9's "generics over tag types" note:
// rather than phantom type parameters threading a wire-kind tag through
// every container, Go generics give each instantiation its own
// monomorphized encode/decode pair. A Vec[MyType] and a Vec[OtherType]
// with the same element encoding still produce byte-identical output,
// because both ultimately call the same Writer methods.

// EncodeFunc writes a single T to w.
type EncodeFunc[T any] func(w *Writer, v T) error

// DecodeFunc reads a single T from r.
type DecodeFunc[T any] func(r *Reader) (T, error)

// WriteVecOf writes items as a Vec using enc for each element.
func WriteVecOf[T any](w *Writer, items []T, enc EncodeFunc[T]) error {
	return w.WriteVec(len(items), func(i int, w *Writer) error {
		return enc(w, items[i])
	})
}

// ReadVecOf reads a Vec into a freshly allocated slice using dec for each
// element.
func ReadVecOf[T any](r *Reader, dec DecodeFunc[T]) ([]T, error) {
	var out []T
	_, err := r.ReadVec(func(i int, r *Reader) error {
		v, err := dec(r)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// WriteMapOf writes m as a Map, encoding each key with encKey (restricted
// to key kinds) and each value with encVal.
func WriteMapOf[K comparable, V any](w *Writer, m map[K]V, encKey EncodeFunc[K], encVal EncodeFunc[V]) error {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return w.WriteMap(len(m), func(i int, w *Writer) error {
		k := keys[i]
		if err := encKey(w, k); err != nil {
			return err
		}
		return encVal(w, m[k])
	})
}

// ReadMapOf reads a Map into a freshly allocated map, validating that each
// key's kind is a permitted key kind.
func ReadMapOf[K comparable, V any](r *Reader, decKey DecodeFunc[K], decVal DecodeFunc[V]) (map[K]V, error) {
	out := make(map[K]V)
	_, err := r.ReadMap(func(i int, r *Reader) error {
		if err := r.checkKeyKind(); err != nil {
			return err
		}
		k, err := decKey(r)
		if err != nil {
			return err
		}
		v, err := decVal(r)
		if err != nil {
			return err
		}
		out[k] = v
		return nil
	})
	return out, err
}

// WriteSetOf writes m's keys as a Set using encKey (restricted to key
// kinds).
func WriteSetOf[K comparable](w *Writer, m map[K]struct{}, encKey EncodeFunc[K]) error {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return w.WriteSet(len(keys), func(i int, w *Writer) error {
		return encKey(w, keys[i])
	})
}

// ReadSetOf reads a Set into a freshly allocated set, validating key kinds.
func ReadSetOf[K comparable](r *Reader, decKey DecodeFunc[K]) (map[K]struct{}, error) {
	out := make(map[K]struct{})
	_, err := r.ReadSet(func(i int, r *Reader) error {
		if err := r.checkKeyKind(); err != nil {
			return err
		}
		k, err := decKey(r)
		if err != nil {
			return err
		}
		out[k] = struct{}{}
		return nil
	})
	return out, err
}

// WriteOption writes v: None if v is nil, otherwise Some(enc(*v)).
func WriteOption[T any](w *Writer, v *T, enc EncodeFunc[T]) error {
	if v == nil {
		w.WriteNone()
		return nil
	}
	return w.WriteSome(func(w *Writer) error {
		return enc(w, *v)
	})
}

// ReadOption reads an Option, returning nil for None.
func ReadOption[T any](r *Reader, dec DecodeFunc[T]) (*T, error) {
	isNone, err := r.IsNone()
	if err != nil {
		return nil, err
	}
	if isNone {
		return nil, r.ReadNone()
	}
	var v T
	if err := r.ReadSome(func(r *Reader) error {
		var err error
		v, err = dec(r)
		return err
	}); err != nil {
		return nil, err
	}
	return &v, nil
}
