package sunspec

import "fmt"

// Pack builds a register image of the model's data block. Every field starts
// at its not-implemented sentinel (accumulators at zero), then the supplied
// numeric and text values are encoded over it. A value outside its field's
// encodable range panics so a bad fixture fails loudly instead of wrapping
// around on the wire. Used by the register simulator and test fixtures.
func (m *Model) Pack(nums map[string]float64, texts map[string]string) []uint16 {
	regs := make([]uint16, m.Length)
	for _, f := range m.Fields {
		copy(regs[f.Offset:], sentinelRegs(f.Enc, f.width(), m.Words))
	}
	for name, v := range nums {
		f, ok := m.Field(name)
		if !ok {
			continue
		}
		if min, max, bounded := encodingRange(f.Enc); bounded && (v < min || v > max) {
			panic(fmt.Sprintf("sunspec: value %g overflows field %s.%s", v, m.Name, name))
		}
		copy(regs[f.Offset:], encodeRegs(f.Enc, v, m.Words))
	}
	for name, s := range texts {
		f, ok := m.Field(name)
		if !ok || f.Enc != String {
			continue
		}
		copy(regs[f.Offset:], PackString(s, int(f.Size)))
	}
	return regs
}

// PackString encodes s as two ASCII bytes per register, high byte first,
// NUL-padded to size registers.
func PackString(s string, size int) []uint16 {
	out := make([]uint16, size)
	for i := 0; i < len(s) && i/2 < size; i++ {
		if i%2 == 0 {
			out[i/2] |= uint16(s[i]) << 8
		} else {
			out[i/2] |= uint16(s[i])
		}
	}
	return out
}

func sentinelRegs(enc Encoding, width uint16, wo WordOrder) []uint16 {
	switch enc {
	case Int16, ScaleFactor:
		return []uint16{NotImplInt16}
	case Uint16:
		return []uint16{NotImplUint16}
	case Int32:
		return u32ToRegs(NotImplInt32, wo)
	case Uint32:
		return u32ToRegs(NotImplUint32, wo)
	case Float32:
		return u32ToRegs(NotImplFloat32, wo)
	default:
		// Accumulators and strings rest at zero.
		return make([]uint16, width)
	}
}
