package sunspec

import (
	"math"
	"strings"
)

// Encoding tags how a field's registers are assembled into a value.
type Encoding uint8

const (
	Int16 Encoding = iota
	Uint16
	Int32
	Uint32
	Float32
	Acc32
	Acc64
	ScaleFactor // sunssf, a signed base-10 exponent
	String
)

// WordOrder selects register order for multi-register values. SunSpec models
// are big-endian; SolarEdge vendor blocks (battery, storage control) put the
// low word first.
type WordOrder uint8

const (
	BigEndian WordOrder = iota
	LittleEndian
)

// Not-implemented sentinels per SunSpec. A field holding its sentinel decodes
// to NotAvailable, never to a numeric zero. Accumulators are the exception:
// zero is a legitimate starting count, only the saturated limit is invalid.
const (
	NotImplInt16   = 0x8000
	NotImplUint16  = 0xFFFF
	NotImplInt32   = 0x80000000
	NotImplUint32  = 0xFFFFFFFF
	NotImplFloat32 = 0x7FC00000
	AccLimit32     = 0xFFFFFFFF
	AccLimit64     = 0xFFFFFFFFFFFFFFFF
)

// Scale factors outside this range are treated as not implemented.
const (
	scaleFactorMin = -10
	scaleFactorMax = 10
)

func regsToU32(regs []uint16, wo WordOrder) uint32 {
	if wo == LittleEndian {
		return uint32(regs[1])<<16 | uint32(regs[0])
	}
	return uint32(regs[0])<<16 | uint32(regs[1])
}

func regsToU64(regs []uint16, wo WordOrder) uint64 {
	if wo == LittleEndian {
		return uint64(regs[3])<<48 | uint64(regs[2])<<32 |
			uint64(regs[1])<<16 | uint64(regs[0])
	}
	return uint64(regs[0])<<48 | uint64(regs[1])<<32 |
		uint64(regs[2])<<16 | uint64(regs[3])
}

func u32ToRegs(v uint32, wo WordOrder) []uint16 {
	hi, lo := uint16(v>>16), uint16(v)
	if wo == LittleEndian {
		return []uint16{lo, hi}
	}
	return []uint16{hi, lo}
}

// decodeRegs interprets the field's own registers. regs must hold exactly the
// registers the encoding needs; the model decode path guarantees that.
func decodeRegs(enc Encoding, regs []uint16, wo WordOrder) Value {
	switch enc {
	case Int16:
		if regs[0] == NotImplInt16 {
			return NotAvailable
		}
		return Num(float64(int16(regs[0])))
	case Uint16:
		if regs[0] == NotImplUint16 {
			return NotAvailable
		}
		return Num(float64(regs[0]))
	case Int32:
		u := regsToU32(regs, wo)
		if u == NotImplInt32 {
			return NotAvailable
		}
		return Num(float64(int32(u)))
	case Uint32:
		u := regsToU32(regs, wo)
		if u == NotImplUint32 {
			return NotAvailable
		}
		return Num(float64(u))
	case Float32:
		u := regsToU32(regs, wo)
		if u == NotImplFloat32 {
			return NotAvailable
		}
		f := math.Float32frombits(u)
		if math.IsNaN(float64(f)) {
			return NotAvailable
		}
		return Num(float64(f))
	case Acc32:
		u := regsToU32(regs, wo)
		if u == AccLimit32 {
			return NotAvailable
		}
		return Num(float64(u))
	case Acc64:
		u := regsToU64(regs, wo)
		if u == AccLimit64 {
			return NotAvailable
		}
		return Num(float64(u))
	case ScaleFactor:
		if regs[0] == NotImplInt16 {
			return NotAvailable
		}
		sf := int16(regs[0])
		if sf < scaleFactorMin || sf > scaleFactorMax {
			return NotAvailable
		}
		return Num(float64(sf))
	case String:
		return decodeString(regs)
	default:
		return NotAvailable
	}
}

// decodeString unpacks two ASCII bytes per register, high byte first, trimming
// trailing NUL padding and whitespace and dropping control characters. An
// empty result is unavailable.
func decodeString(regs []uint16) Value {
	b := make([]byte, 0, len(regs)*2)
	for _, r := range regs {
		b = append(b, byte(r>>8), byte(r))
	}
	s := strings.TrimRight(string(b), "\x00 \t")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return NotAvailable
	}
	return Text(s)
}

// Scale applies a sunssf exponent: raw * 10^sf. Both inputs must be available
// for the result to be available.
func Scale(raw, sf Value) Value {
	if !raw.Available() || !sf.Available() {
		return NotAvailable
	}
	return Num(raw.Float() * math.Pow(10, sf.Float()))
}

// registerWidth returns how many registers the encoding occupies, or 0 for
// variable-width encodings (String).
func registerWidth(enc Encoding) uint16 {
	switch enc {
	case Int16, Uint16, ScaleFactor:
		return 1
	case Int32, Uint32, Float32, Acc32:
		return 2
	case Acc64:
		return 4
	default:
		return 0
	}
}

// encodeRegs packs an already range-checked numeric value into registers.
func encodeRegs(enc Encoding, v float64, wo WordOrder) []uint16 {
	switch enc {
	case Int16, ScaleFactor:
		return []uint16{uint16(int16(v))}
	case Uint16:
		return []uint16{uint16(v)}
	case Int32:
		return u32ToRegs(uint32(int32(v)), wo)
	case Uint32, Acc32:
		return u32ToRegs(uint32(v), wo)
	case Float32:
		return u32ToRegs(math.Float32bits(float32(v)), wo)
	default:
		return nil
	}
}

// encodingRange returns the representable numeric range for integer
// encodings, used as the outer bound for write validation.
func encodingRange(enc Encoding) (min, max float64, ok bool) {
	switch enc {
	case Int16, ScaleFactor:
		return math.MinInt16, math.MaxInt16, true
	case Uint16:
		return 0, math.MaxUint16, true
	case Int32:
		return math.MinInt32, math.MaxInt32, true
	case Uint32, Acc32:
		return 0, math.MaxUint32, true
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32, true
	default:
		return 0, 0, false
	}
}
