package sunspec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, id := range []uint16{1, 101, 102, 103, 201, 202, 203, 204, 802} {
		m, err := Lookup(id)
		require.NoError(t, err, "model %d", id)
		assert.Equal(t, id, m.ID)
	}

	_, err := Lookup(160)
	var unsup *UnsupportedModelError
	require.ErrorAs(t, err, &unsup)
	assert.Equal(t, uint16(160), unsup.ID)
}

func TestInverterDecode(t *testing.T) {
	regs := make([]uint16, Inverter3P.Length)
	for i := range regs {
		regs[i] = 0xFFFF // uint16 sentinel as neutral fill
	}
	regs[12] = 4500                     // AC_Power
	regs[13] = 0xFFFF                   // AC_Power_SF = -1
	regs[0] = 153                       // AC_Current
	regs[4] = 0xFFFE                    // AC_Current_SF = -2
	regs[22], regs[23] = 0x0001, 0x0000 // AC_Energy_WH = 65536
	regs[24] = 0                        // AC_Energy_WH_SF
	regs[36] = 4                        // I_Status
	regs[14] = 0x8000                   // AC_Frequency, a plain uint16 reading
	regs[15] = 0xFFFE                   // AC_Frequency_SF = -2

	vals, err := Inverter3P.Decode(regs)
	require.NoError(t, err)

	assert.InDelta(t, 450.0, vals["AC_Power"].Float(), 1e-9)
	assert.InDelta(t, 1.53, vals["AC_Current"].Float(), 1e-9)
	assert.InDelta(t, 65536.0, vals["AC_Energy_WH"].Float(), 1e-9)
	assert.Equal(t, float64(4), vals["I_Status"].Float())

	// 0x8000 is a legal uint16 reading, only 0xFFFF is the sentinel.
	require.True(t, vals["AC_Frequency"].Available())
	assert.InDelta(t, 327.68, vals["AC_Frequency"].Float(), 1e-9)

	// Sentinel voltage with a valid scale factor still decodes unavailable.
	assert.False(t, vals["AC_Voltage_AB"].Available())
}

func TestInverterDecodeMissingScaleFactor(t *testing.T) {
	regs := make([]uint16, Inverter1P.Length)
	regs[12] = 4500   // AC_Power raw is present
	regs[13] = 0x8000 // its scale factor is not

	vals, err := Inverter1P.Decode(regs)
	require.NoError(t, err)
	assert.False(t, vals["AC_Power"].Available(), "scaled value needs both raw and sunssf")
}

func TestDecodeWrongBlockSize(t *testing.T) {
	_, err := Common.Decode(make([]uint16, 10))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestCommonDecodeIdentity(t *testing.T) {
	regs := make([]uint16, Common.Length)
	copy(regs, PackString("SolarEdge", 16))
	copy(regs[16:], PackString("SE10K-RW0TEBNN4", 16))
	copy(regs[40:], PackString("0004.0016", 8))
	copy(regs[48:], PackString("7E123456", 16))
	regs[64] = 5

	vals, err := Common.Decode(regs)
	require.NoError(t, err)
	assert.Equal(t, "SolarEdge", vals["C_Manufacturer"].Str())
	assert.Equal(t, "SE10K-RW0TEBNN4", vals["C_Model"].Str())
	assert.Equal(t, "7E123456", vals["C_SerialNumber"].Str())
	assert.Equal(t, float64(5), vals["C_Device_address"].Float())
	assert.False(t, vals["C_Option"].Available())
}

func TestBatteryDecodeLittleWordOrder(t *testing.T) {
	regs := make([]uint16, Battery.Length)
	copy(regs, PackString("LG", 16))
	// B_RatedEnergy = 9800.0, low word first.
	w := encodeRegs(Float32, 9800, LittleEndian)
	copy(regs[66:], w)
	copy(regs[132:], encodeRegs(Float32, 87.5, LittleEndian)) // B_SOE
	regs[134], regs[135] = 3, 0                               // B_Status little order

	vals, err := Battery.Decode(regs)
	require.NoError(t, err)
	assert.InDelta(t, 9800.0, vals["B_RatedEnergy"].Float(), 1e-3)
	assert.InDelta(t, 87.5, vals["B_SOE"].Float(), 1e-3)
	assert.Equal(t, float64(3), vals["B_Status"].Float())
	assert.Equal(t, "Charge", BatteryStatusText(uint32(vals["B_Status"].Float())))
}

func TestSpansRespectLimitAndFieldBoundaries(t *testing.T) {
	for _, m := range []*Model{Common, Inverter3P, Meter3PWye, Battery} {
		spans := m.Spans(125)
		require.NotEmpty(t, spans, m.Name)
		for _, s := range spans {
			assert.LessOrEqual(t, int(s.Count), 125, m.Name)
			assert.Greater(t, int(s.Count), 0, m.Name)
		}
		// Every field must fall entirely inside one span.
		for _, f := range m.Fields {
			start, end := f.Offset, f.Offset+f.width()
			inside := false
			for _, s := range spans {
				if start >= s.Offset && end <= s.Offset+s.Count {
					inside = true
					break
				}
			}
			assert.True(t, inside, "%s.%s split across reads", m.Name, f.Name)
		}
	}
}

func TestSpansSmallLimit(t *testing.T) {
	spans := Meter3PWye.Spans(32)
	total := 0
	for _, s := range spans {
		require.LessOrEqual(t, int(s.Count), 32)
		total += int(s.Count)
	}
	assert.GreaterOrEqual(t, total, 105)
}

func TestEncodeFieldValidation(t *testing.T) {
	// Valid write.
	off, regs, err := StorageControl.EncodeField("Storage_Command_Timeout", 3600)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), off)
	require.Len(t, regs, 2)
	assert.Equal(t, float64(3600), decodeRegs(Uint32, regs, LittleEndian).Float())

	var ve *ValidationError

	_, _, err = StorageControl.EncodeField("Storage_Control_Mode", 9)
	require.ErrorAs(t, err, &ve)

	_, _, err = StorageControl.EncodeField("Storage_Backup_Reserved", -1)
	require.ErrorAs(t, err, &ve)

	_, _, err = StorageControl.EncodeField("Storage_Command_Timeout", 90000)
	require.ErrorAs(t, err, &ve)

	_, _, err = StorageControl.EncodeField("NoSuchField", 1)
	require.ErrorAs(t, err, &ve)

	_, _, err = Inverter1P.EncodeField("AC_Power", 100)
	require.ErrorAs(t, err, &ve, "telemetry fields are read-only")
}

func TestEncodeFieldFloatSetpoint(t *testing.T) {
	_, regs, err := StorageControl.EncodeField("Storage_Charge_Limit", 5000)
	require.NoError(t, err)
	got := decodeRegs(Float32, regs, LittleEndian)
	assert.InDelta(t, 5000.0, got.Float(), 1e-3)
}

func TestStatusTables(t *testing.T) {
	assert.Equal(t, "Production", DeviceStatusText(4))
	assert.Equal(t, "", DeviceStatusText(99))
	assert.Equal(t, "No Error", VendorStatusText(0))
	assert.Equal(t, "Remote Control", StorageControlModeText(4))
	assert.Equal(t, "Maximize Self Consumption", StorageModeText(7))
}

func TestErrorsUnwrapAsTypes(t *testing.T) {
	err := error(&DecodeError{Model: "meter-3p-wye", Reason: "short read"})
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestPackRejectsOverflow(t *testing.T) {
	// AC_Power is an int16 register; a fixture value past its range must
	// fail loudly instead of wrapping around on the wire.
	assert.Panics(t, func() {
		Inverter3P.Pack(map[string]float64{"AC_Power": 45000}, nil)
	})
	assert.NotPanics(t, func() {
		Inverter3P.Pack(map[string]float64{"AC_Power": 4500}, nil)
	})
}
