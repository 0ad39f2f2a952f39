package simulator

import (
	"solaredge-collector/internal/sunspec"
)

// Chain lays SunSpec model blocks into a unit's register image, starting at
// the standard base: the "SunS" marker, then contiguous (ID, length, data)
// blocks, then the end sentinel.
type Chain struct {
	unit *Unit
	next uint16
}

// NewChain writes the SunS marker and prepares the first model header at the
// standard chain address.
func NewChain(u *Unit) *Chain {
	u.SetRegisters(sunspec.BaseAddress, []uint16{0x5375, 0x6E53})
	return &Chain{unit: u, next: sunspec.ChainAddress}
}

// Append adds one model block. The data slice must be exactly the model's
// declared length; the address of the data block is returned.
func (c *Chain) Append(modelID uint16, data []uint16) uint16 {
	c.unit.SetRegisters(c.next, []uint16{modelID, uint16(len(data))})
	addr := c.next + sunspec.HeaderLength
	c.unit.SetRegisters(addr, data)
	c.next = addr + uint16(len(data))
	return addr
}

// AppendModel packs a registry model from field values and appends it.
func (c *Chain) AppendModel(m *sunspec.Model, nums map[string]float64, texts map[string]string) uint16 {
	return c.Append(m.ID, m.Pack(nums, texts))
}

// Terminate writes the end-of-chain sentinel.
func (c *Chain) Terminate() {
	c.unit.SetRegisters(c.next, []uint16{sunspec.EndModelID, 0})
}

// InstallStorageControl maps the vendor storage command block at its fixed
// address with the given initial field values.
func InstallStorageControl(u *Unit, nums map[string]float64) {
	u.SetRegisters(sunspec.StorageControlAddress, sunspec.StorageControl.Pack(nums, nil))
}

// InverterUnit populates u with a plausible three-phase inverter: common
// identity block plus the model 103 telemetry block. Returns the data
// address of the telemetry block.
func InverterUnit(u *Unit, serial string, acPowerW float64) uint16 {
	c := NewChain(u)
	c.AppendModel(sunspec.Common, map[string]float64{
		"C_Device_address": 1,
	}, map[string]string{
		"C_Manufacturer": "SolarEdge",
		"C_Model":        "SE10K-RW0TEBNN4",
		"C_Version":      "0004.0016.0031",
		"C_SerialNumber": serial,
	})
	addr := c.AppendModel(sunspec.Inverter3P, map[string]float64{
		"AC_Power":        acPowerW,
		"AC_Power_SF":     0,
		"AC_Current":      153,
		"AC_Current_SF":   -2,
		"AC_Voltage_AB":   4003,
		"AC_Voltage_SF":   -1,
		"AC_Frequency":    4999,
		"AC_Frequency_SF": -2,
		"AC_Energy_WH":    8412345,
		"AC_Energy_WH_SF": 0,
		"I_DC_Voltage":    7521,
		"I_DC_Voltage_SF": -1,
		"I_Temp_Sink":     412,
		"I_Temp_SF":       -1,
		"I_Status":        4,
		"I_Status_Vendor": 0,
	}, nil)
	c.Terminate()
	return addr
}
