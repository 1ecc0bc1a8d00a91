package value

// Kind is the single-byte discriminant introducing every encoded value.
// It is a closed set; decoders reject any byte outside this range.
type Kind byte

const (
	KindNone Kind = iota
	KindSome
	KindBool
	KindU8
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64
	KindString
	KindUuid
	KindObjectId
	KindServiceId
	KindVec
	KindBytes
	KindMap
	KindSet
	KindStruct
	KindEnum
	KindSender
	KindReceiver

	kindCount
)

func (k Kind) IsValid() bool { return k < kindCount }

func (k Kind) String() string {
	names := [...]string{
		"None", "Some", "Bool", "U8", "I8", "U16", "I16", "U32", "I32",
		"U64", "I64", "F32", "F64", "String", "Uuid", "ObjectId",
		"ServiceId", "Vec", "Bytes", "Map", "Set", "Struct", "Enum",
		"Sender", "Receiver",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// IsKeyKind reports whether a kind is permitted as a map key or set element.
// Per the spec, keys are restricted to primitive, non-recursive kinds.
func (k Kind) IsKeyKind() bool {
	switch k {
	case KindBool, KindU8, KindI8, KindU16, KindI16, KindU32, KindI32,
		KindU64, KindI64, KindString, KindUuid, KindObjectId, KindServiceId:
		return true
	default:
		return false
	}
}

// MaxDepth bounds recursive nesting (Some/Vec/Map/Set/Struct/Enum) so that a
// crafted input cannot exhaust the stack.
const MaxDepth = 32

// fixedSize returns the number of payload bytes (excluding the kind byte)
// for kinds whose payload has a fixed width. It returns (0, false) for
// kinds whose payload is length-prefixed or itself recursive.
func (k Kind) fixedSize() (int, bool) {
	switch k {
	case KindNone:
		return 0, true
	case KindBool, KindU8, KindI8:
		return 1, true
	case KindU16, KindI16:
		return 2, true
	case KindU32, KindI32, KindF32:
		return 4, true
	case KindU64, KindI64, KindF64:
		return 8, true
	case KindUuid, KindSender, KindReceiver:
		return 16, true
	case KindObjectId:
		return 32, true
	case KindServiceId:
		return 64, true
	default:
		return 0, false
	}
}
