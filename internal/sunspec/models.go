package sunspec

import (
	"fmt"
	"sort"
)

// SunSpec register map conventions (base address 40000).
const (
	BaseAddress  uint16 = 40000 // "SunS" marker, 2 registers
	ChainAddress uint16 = 40002 // first model header
	MarkerSunS   uint32 = 0x53756E53
	EndModelID   uint16 = 0xFFFF
	HeaderLength uint16 = 2 // model ID + model length
)

// Well-known model IDs.
const (
	ModelCommon           uint16 = 1
	ModelInverter1P       uint16 = 101
	ModelInverter2P       uint16 = 102
	ModelInverter3P       uint16 = 103
	ModelMeter1P          uint16 = 201
	ModelMeter2P          uint16 = 202
	ModelMeter3PWye       uint16 = 203
	ModelMeter3PDelta     uint16 = 204
	ModelBattery          uint16 = 802
	StorageControlAddress uint16 = 57348 // vendor block, outside the chain
)

// Field describes one named value inside a model's data block. Offsets are in
// registers, relative to the start of the data block (header excluded).
type Field struct {
	Name   string
	Offset uint16
	Size   uint16 // registers; required for String, derived otherwise
	Enc    Encoding
	SF     string // name of the paired scale-factor field, if any

	Writable bool
	Min, Max float64 // accepted range for writes, when Writable
}

func (f Field) width() uint16 {
	if w := registerWidth(f.Enc); w != 0 {
		return w
	}
	return f.Size
}

// Model is an immutable register layout for one SunSpec model ID. Shared
// read-only by every device of that model.
type Model struct {
	ID     uint16
	Name   string
	Length uint16 // data registers, header excluded
	Words  WordOrder
	Fields []Field
}

// Span is one contiguous read covering whole fields only.
type Span struct {
	Offset uint16
	Count  uint16
}

// Spans splits the model's register range into block reads of at most
// maxRegisters, cutting only at field boundaries so no field is ever
// assembled from two separately-timed reads.
func (m *Model) Spans(maxRegisters uint16) []Span {
	fields := make([]Field, len(m.Fields))
	copy(fields, m.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })

	var spans []Span
	var open bool
	var start, end uint16
	for _, f := range fields {
		fEnd := f.Offset + f.width()
		if !open {
			start, end, open = f.Offset, fEnd, true
			continue
		}
		if fEnd-start > maxRegisters {
			spans = append(spans, Span{Offset: start, Count: end - start})
			start, end = f.Offset, fEnd
			continue
		}
		if fEnd > end {
			end = fEnd
		}
	}
	if open {
		spans = append(spans, Span{Offset: start, Count: end - start})
	}
	return spans
}

// Field returns the layout entry for name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Decode maps a full data block (m.Length registers) into named values.
// Fields with a scale-factor reference yield the effective scaled value;
// if either the raw field or its scale factor is unavailable, so is the
// result.
func (m *Model) Decode(regs []uint16) (map[string]Value, error) {
	if len(regs) != int(m.Length) {
		return nil, &DecodeError{
			Model:  m.Name,
			Reason: fmt.Sprintf("got %d registers, layout needs %d", len(regs), m.Length),
		}
	}

	raw := make(map[string]Value, len(m.Fields))
	for _, f := range m.Fields {
		w := f.width()
		if w == 0 || int(f.Offset)+int(w) > len(regs) {
			return nil, &DecodeError{Model: m.Name, Field: f.Name, Reason: "field exceeds block"}
		}
		raw[f.Name] = decodeRegs(f.Enc, regs[f.Offset:f.Offset+w], m.Words)
	}

	out := make(map[string]Value, len(m.Fields))
	for _, f := range m.Fields {
		v := raw[f.Name]
		if f.SF != "" {
			sf, ok := raw[f.SF]
			if !ok {
				return nil, &DecodeError{Model: m.Name, Field: f.Name, Reason: "missing scale factor " + f.SF}
			}
			v = Scale(v, sf)
		}
		out[f.Name] = v
	}
	return out, nil
}

// EncodeField validates value against the field's declared range and width
// and packs it into registers for a write. Scaled writable fields are not
// used by SolarEdge storage control (all setpoints are float32 or enums), so
// no reverse scaling is applied here beyond range checks.
func (m *Model) EncodeField(name string, value float64) (offset uint16, regs []uint16, err error) {
	f, ok := m.Field(name)
	if !ok {
		return 0, nil, &ValidationError{Field: name, Reason: "unknown field"}
	}
	if !f.Writable {
		return 0, nil, &ValidationError{Field: name, Reason: "field is read-only"}
	}
	lo, hi, ok := encodingRange(f.Enc)
	if !ok {
		return 0, nil, &ValidationError{Field: name, Reason: "encoding not writable"}
	}
	if value < lo || value > hi {
		return 0, nil, &ValidationError{
			Field:  name,
			Reason: fmt.Sprintf("%g exceeds register width", value),
		}
	}
	if f.Min != 0 || f.Max != 0 {
		if value < f.Min || value > f.Max {
			return 0, nil, &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("%g outside [%g, %g]", value, f.Min, f.Max),
			}
		}
	}
	return f.Offset, encodeRegs(f.Enc, value, m.Words), nil
}

// Lookup resolves a model ID against the static registry.
func Lookup(id uint16) (*Model, error) {
	if m, ok := registry[id]; ok {
		return m, nil
	}
	return nil, &UnsupportedModelError{ID: id}
}

// IsInverterModel reports whether id is an inverter AC measurement model.
func IsInverterModel(id uint16) bool {
	return id == ModelInverter1P || id == ModelInverter2P || id == ModelInverter3P
}

// IsMeterModel reports whether id is a meter model.
func IsMeterModel(id uint16) bool {
	return id >= ModelMeter1P && id <= ModelMeter3PDelta
}

var registry = map[uint16]*Model{}

func register(m *Model) *Model {
	registry[m.ID] = m
	return m
}

// Common identity block, model 1. Shared by inverters and meters.
var Common = register(&Model{
	ID:     ModelCommon,
	Name:   "common",
	Length: 65,
	Fields: []Field{
		{Name: "C_Manufacturer", Offset: 0, Size: 16, Enc: String},
		{Name: "C_Model", Offset: 16, Size: 16, Enc: String},
		{Name: "C_Option", Offset: 32, Size: 8, Enc: String},
		{Name: "C_Version", Offset: 40, Size: 8, Enc: String},
		{Name: "C_SerialNumber", Offset: 48, Size: 16, Enc: String},
		{Name: "C_Device_address", Offset: 64, Enc: Uint16},
	},
})

func inverterModel(id uint16, name string) *Model {
	return register(&Model{
		ID:     id,
		Name:   name,
		Length: 50,
		Fields: []Field{
			{Name: "AC_Current", Offset: 0, Enc: Uint16, SF: "AC_Current_SF"},
			{Name: "AC_Current_A", Offset: 1, Enc: Uint16, SF: "AC_Current_SF"},
			{Name: "AC_Current_B", Offset: 2, Enc: Uint16, SF: "AC_Current_SF"},
			{Name: "AC_Current_C", Offset: 3, Enc: Uint16, SF: "AC_Current_SF"},
			{Name: "AC_Current_SF", Offset: 4, Enc: ScaleFactor},
			{Name: "AC_Voltage_AB", Offset: 5, Enc: Uint16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_BC", Offset: 6, Enc: Uint16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_CA", Offset: 7, Enc: Uint16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_AN", Offset: 8, Enc: Uint16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_BN", Offset: 9, Enc: Uint16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_CN", Offset: 10, Enc: Uint16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_SF", Offset: 11, Enc: ScaleFactor},
			{Name: "AC_Power", Offset: 12, Enc: Int16, SF: "AC_Power_SF"},
			{Name: "AC_Power_SF", Offset: 13, Enc: ScaleFactor},
			{Name: "AC_Frequency", Offset: 14, Enc: Uint16, SF: "AC_Frequency_SF"},
			{Name: "AC_Frequency_SF", Offset: 15, Enc: ScaleFactor},
			{Name: "AC_VA", Offset: 16, Enc: Int16, SF: "AC_VA_SF"},
			{Name: "AC_VA_SF", Offset: 17, Enc: ScaleFactor},
			{Name: "AC_var", Offset: 18, Enc: Int16, SF: "AC_var_SF"},
			{Name: "AC_var_SF", Offset: 19, Enc: ScaleFactor},
			{Name: "AC_PF", Offset: 20, Enc: Int16, SF: "AC_PF_SF"},
			{Name: "AC_PF_SF", Offset: 21, Enc: ScaleFactor},
			{Name: "AC_Energy_WH", Offset: 22, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_SF", Offset: 24, Enc: ScaleFactor},
			{Name: "I_DC_Current", Offset: 25, Enc: Uint16, SF: "I_DC_Current_SF"},
			{Name: "I_DC_Current_SF", Offset: 26, Enc: ScaleFactor},
			{Name: "I_DC_Voltage", Offset: 27, Enc: Uint16, SF: "I_DC_Voltage_SF"},
			{Name: "I_DC_Voltage_SF", Offset: 28, Enc: ScaleFactor},
			{Name: "I_DC_Power", Offset: 29, Enc: Int16, SF: "I_DC_Power_SF"},
			{Name: "I_DC_Power_SF", Offset: 30, Enc: ScaleFactor},
			{Name: "I_Temp_Cab", Offset: 31, Enc: Int16, SF: "I_Temp_SF"},
			{Name: "I_Temp_Sink", Offset: 32, Enc: Int16, SF: "I_Temp_SF"},
			{Name: "I_Temp_Trns", Offset: 33, Enc: Int16, SF: "I_Temp_SF"},
			{Name: "I_Temp_Other", Offset: 34, Enc: Int16, SF: "I_Temp_SF"},
			{Name: "I_Temp_SF", Offset: 35, Enc: ScaleFactor},
			{Name: "I_Status", Offset: 36, Enc: Uint16},
			{Name: "I_Status_Vendor", Offset: 37, Enc: Uint16},
			{Name: "I_Event_1", Offset: 38, Enc: Uint32},
			{Name: "I_Event_2", Offset: 40, Enc: Uint32},
			{Name: "I_Event_Vendor_1", Offset: 42, Enc: Uint32},
			{Name: "I_Event_Vendor_2", Offset: 44, Enc: Uint32},
			{Name: "I_Event_Vendor_3", Offset: 46, Enc: Uint32},
			{Name: "I_Event_Vendor_4", Offset: 48, Enc: Uint32},
		},
	})
}

var (
	Inverter1P = inverterModel(ModelInverter1P, "inverter-1p")
	Inverter2P = inverterModel(ModelInverter2P, "inverter-2p")
	Inverter3P = inverterModel(ModelInverter3P, "inverter-3p")
)

func meterModel(id uint16, name string) *Model {
	return register(&Model{
		ID:     id,
		Name:   name,
		Length: 105,
		Fields: []Field{
			{Name: "AC_Current", Offset: 0, Enc: Int16, SF: "AC_Current_SF"},
			{Name: "AC_Current_A", Offset: 1, Enc: Int16, SF: "AC_Current_SF"},
			{Name: "AC_Current_B", Offset: 2, Enc: Int16, SF: "AC_Current_SF"},
			{Name: "AC_Current_C", Offset: 3, Enc: Int16, SF: "AC_Current_SF"},
			{Name: "AC_Current_SF", Offset: 4, Enc: ScaleFactor},
			{Name: "AC_Voltage_LN", Offset: 5, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_AN", Offset: 6, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_BN", Offset: 7, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_CN", Offset: 8, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_LL", Offset: 9, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_AB", Offset: 10, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_BC", Offset: 11, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_CA", Offset: 12, Enc: Int16, SF: "AC_Voltage_SF"},
			{Name: "AC_Voltage_SF", Offset: 13, Enc: ScaleFactor},
			{Name: "AC_Frequency", Offset: 14, Enc: Int16, SF: "AC_Frequency_SF"},
			{Name: "AC_Frequency_SF", Offset: 15, Enc: ScaleFactor},
			{Name: "AC_Power", Offset: 16, Enc: Int16, SF: "AC_Power_SF"},
			{Name: "AC_Power_A", Offset: 17, Enc: Int16, SF: "AC_Power_SF"},
			{Name: "AC_Power_B", Offset: 18, Enc: Int16, SF: "AC_Power_SF"},
			{Name: "AC_Power_C", Offset: 19, Enc: Int16, SF: "AC_Power_SF"},
			{Name: "AC_Power_SF", Offset: 20, Enc: ScaleFactor},
			{Name: "AC_VA", Offset: 21, Enc: Int16, SF: "AC_VA_SF"},
			{Name: "AC_VA_A", Offset: 22, Enc: Int16, SF: "AC_VA_SF"},
			{Name: "AC_VA_B", Offset: 23, Enc: Int16, SF: "AC_VA_SF"},
			{Name: "AC_VA_C", Offset: 24, Enc: Int16, SF: "AC_VA_SF"},
			{Name: "AC_VA_SF", Offset: 25, Enc: ScaleFactor},
			{Name: "AC_var", Offset: 26, Enc: Int16, SF: "AC_var_SF"},
			{Name: "AC_var_A", Offset: 27, Enc: Int16, SF: "AC_var_SF"},
			{Name: "AC_var_B", Offset: 28, Enc: Int16, SF: "AC_var_SF"},
			{Name: "AC_var_C", Offset: 29, Enc: Int16, SF: "AC_var_SF"},
			{Name: "AC_var_SF", Offset: 30, Enc: ScaleFactor},
			{Name: "AC_PF", Offset: 31, Enc: Int16, SF: "AC_PF_SF"},
			{Name: "AC_PF_A", Offset: 32, Enc: Int16, SF: "AC_PF_SF"},
			{Name: "AC_PF_B", Offset: 33, Enc: Int16, SF: "AC_PF_SF"},
			{Name: "AC_PF_C", Offset: 34, Enc: Int16, SF: "AC_PF_SF"},
			{Name: "AC_PF_SF", Offset: 35, Enc: ScaleFactor},
			{Name: "AC_Energy_WH_Exported", Offset: 36, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Exported_A", Offset: 38, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Exported_B", Offset: 40, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Exported_C", Offset: 42, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Imported", Offset: 44, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Imported_A", Offset: 46, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Imported_B", Offset: 48, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_Imported_C", Offset: 50, Enc: Acc32, SF: "AC_Energy_WH_SF"},
			{Name: "AC_Energy_WH_SF", Offset: 52, Enc: ScaleFactor},
			{Name: "M_VAh_Exported", Offset: 53, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Exported_A", Offset: 55, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Exported_B", Offset: 57, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Exported_C", Offset: 59, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Imported", Offset: 61, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Imported_A", Offset: 63, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Imported_B", Offset: 65, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_Imported_C", Offset: 67, Enc: Acc32, SF: "M_VAh_SF"},
			{Name: "M_VAh_SF", Offset: 69, Enc: ScaleFactor},
			{Name: "M_varh_Import_Q1", Offset: 70, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q1_A", Offset: 72, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q1_B", Offset: 74, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q1_C", Offset: 76, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q2", Offset: 78, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q2_A", Offset: 80, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q2_B", Offset: 82, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Import_Q2_C", Offset: 84, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q3", Offset: 86, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q3_A", Offset: 88, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q3_B", Offset: 90, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q3_C", Offset: 92, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q4", Offset: 94, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q4_A", Offset: 96, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q4_B", Offset: 98, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_Export_Q4_C", Offset: 100, Enc: Acc32, SF: "M_varh_SF"},
			{Name: "M_varh_SF", Offset: 102, Enc: ScaleFactor},
			{Name: "M_Events", Offset: 103, Enc: Uint32},
		},
	})
}

var (
	Meter1P      = meterModel(ModelMeter1P, "meter-1p")
	Meter2P      = meterModel(ModelMeter2P, "meter-split")
	Meter3PWye   = meterModel(ModelMeter3PWye, "meter-3p-wye")
	Meter3PDelta = meterModel(ModelMeter3PDelta, "meter-3p-delta")
)

// Battery is the SolarEdge vendor battery block: identity strings followed by
// telemetry, all multi-register values low word first.
var Battery = register(&Model{
	ID:     ModelBattery,
	Name:   "battery",
	Length: 154,
	Words:  LittleEndian,
	Fields: []Field{
		{Name: "B_Manufacturer", Offset: 0, Size: 16, Enc: String},
		{Name: "B_Model", Offset: 16, Size: 16, Enc: String},
		{Name: "B_Version", Offset: 32, Size: 16, Enc: String},
		{Name: "B_SerialNumber", Offset: 48, Size: 16, Enc: String},
		{Name: "B_Device_Address", Offset: 64, Enc: Uint16},
		{Name: "B_RatedEnergy", Offset: 66, Enc: Float32},
		{Name: "B_MaxChargePower", Offset: 68, Enc: Float32},
		{Name: "B_MaxDischargePower", Offset: 70, Enc: Float32},
		{Name: "B_MaxChargePeakPower", Offset: 72, Enc: Float32},
		{Name: "B_MaxDischargePeakPower", Offset: 74, Enc: Float32},
		{Name: "B_Temp_Average", Offset: 108, Enc: Float32},
		{Name: "B_Temp_Max", Offset: 110, Enc: Float32},
		{Name: "B_DC_Voltage", Offset: 112, Enc: Float32},
		{Name: "B_DC_Current", Offset: 114, Enc: Float32},
		{Name: "B_DC_Power", Offset: 116, Enc: Float32},
		{Name: "B_Export_Energy_WH", Offset: 118, Enc: Acc64},
		{Name: "B_Import_Energy_WH", Offset: 122, Enc: Acc64},
		{Name: "B_Energy_Max", Offset: 126, Enc: Float32},
		{Name: "B_Energy_Available", Offset: 128, Enc: Float32},
		{Name: "B_SOH", Offset: 130, Enc: Float32},
		{Name: "B_SOE", Offset: 132, Enc: Float32},
		{Name: "B_Status", Offset: 134, Enc: Uint32},
		{Name: "B_Status_Vendor", Offset: 136, Enc: Uint32},
		{Name: "B_Event_Log1", Offset: 138, Enc: Uint16},
		{Name: "B_Event_Log2", Offset: 139, Enc: Uint16},
		{Name: "B_Event_Log3", Offset: 140, Enc: Uint16},
		{Name: "B_Event_Log4", Offset: 141, Enc: Uint16},
		{Name: "B_Event_Log5", Offset: 142, Enc: Uint16},
		{Name: "B_Event_Log6", Offset: 143, Enc: Uint16},
		{Name: "B_Event_Log7", Offset: 144, Enc: Uint16},
		{Name: "B_Event_Log8", Offset: 145, Enc: Uint16},
		{Name: "B_Event_Log_Vendor1", Offset: 146, Enc: Uint16},
		{Name: "B_Event_Log_Vendor2", Offset: 147, Enc: Uint16},
		{Name: "B_Event_Log_Vendor3", Offset: 148, Enc: Uint16},
		{Name: "B_Event_Log_Vendor4", Offset: 149, Enc: Uint16},
		{Name: "B_Event_Log_Vendor5", Offset: 150, Enc: Uint16},
		{Name: "B_Event_Log_Vendor6", Offset: 151, Enc: Uint16},
		{Name: "B_Event_Log_Vendor7", Offset: 152, Enc: Uint16},
		{Name: "B_Event_Log_Vendor8", Offset: 153, Enc: Uint16},
	},
})

// Storage control write limits, from SolarEdge published ranges.
const (
	storageChargeLimitMax = 1000000 // watts
	storageTimeoutMax     = 86400   // seconds
)

// StorageControl is the SolarEdge storage command block at a fixed address
// outside the SunSpec chain. It is not part of the registry: it is read (and
// written) only when storage control is enabled for the gateway.
var StorageControl = &Model{
	ID:     0,
	Name:   "storage-control",
	Length: 14,
	Words:  LittleEndian,
	Fields: []Field{
		{Name: "Storage_Control_Mode", Offset: 0, Enc: Uint16, Writable: true, Min: 0, Max: 4},
		{Name: "Storage_AC_Charge_Policy", Offset: 1, Enc: Uint16, Writable: true, Min: 0, Max: 3},
		{Name: "Storage_AC_Charge_Limit", Offset: 2, Enc: Float32, Writable: true, Min: 0, Max: 100000000},
		{Name: "Storage_Backup_Reserved", Offset: 4, Enc: Float32, Writable: true, Min: 0, Max: 100},
		{Name: "Storage_Default_Mode", Offset: 6, Enc: Uint16, Writable: true, Min: 0, Max: 7},
		{Name: "Storage_Command_Timeout", Offset: 7, Enc: Uint32, Writable: true, Min: 0, Max: storageTimeoutMax},
		{Name: "Storage_Command_Mode", Offset: 9, Enc: Uint16, Writable: true, Min: 0, Max: 7},
		{Name: "Storage_Charge_Limit", Offset: 10, Enc: Float32, Writable: true, Min: 0, Max: storageChargeLimitMax},
		{Name: "Storage_Discharge_Limit", Offset: 12, Enc: Float32, Writable: true, Min: 0, Max: storageChargeLimitMax},
	},
}
