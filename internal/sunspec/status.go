package sunspec

// Status enumerations published by SolarEdge devices. Unknown codes map to
// an empty string; callers fall back to the numeric value.

var deviceStatusText = map[uint32]string{
	1: "Off",
	2: "Sleeping (Auto-Shutdown)",
	3: "Grid Monitoring",
	4: "Production",
	5: "Production (Curtailed)",
	6: "Shutting Down",
	7: "Fault",
	8: "Maintenance",
}

var vendorStatusText = map[uint32]string{
	0:    "No Error",
	17:   "Temperature Too High",
	25:   "Isolation Faults",
	27:   "Hardware Error",
	31:   "AC Voltage Too High",
	33:   "AC Voltage Too High",
	32:   "AC Voltage Too Low",
	34:   "AC Frequency Too High",
	35:   "AC Frequency Too Low",
	41:   "AC Voltage Too High",
	44:   "No Country Selected",
	61:   "AC Voltage Too Low",
	62:   "AC Voltage Too Low",
	63:   "AC Voltage Too Low",
	64:   "AC Voltage Too High",
	65:   "AC Voltage Too High",
	66:   "AC Voltage Too High",
	67:   "AC Voltage Too Low",
	68:   "AC Voltage Too Low",
	69:   "AC Voltage Too Low",
	79:   "AC Frequency Too High",
	80:   "AC Frequency Too High",
	81:   "AC Frequency Too High",
	82:   "AC Frequency Too Low",
	83:   "AC Frequency Too Low",
	84:   "AC Frequency Too Low",
	95:   "Hardware Error",
	104:  "Temperature Too High",
	106:  "Hardware Error",
	107:  "Battery Communication Error",
	110:  "Meter Communication Error",
	120:  "Hardware Error",
	121:  "Isolation Faults",
	125:  "Hardware Error",
	126:  "Hardware Error",
	150:  "Arc Fault Detected",
	151:  "Arc Fault Detected",
	153:  "Hardware Error",
	256:  "Arc Detected",
	9000: "Phase Unbalance",
}

var batteryStatusText = map[uint32]string{
	0:  "Off",
	1:  "Standby",
	2:  "Initializing",
	3:  "Charge",
	4:  "Discharge",
	5:  "Fault",
	6:  "Preserve Charge",
	7:  "Idle",
	10: "Power Saving",
}

var storageControlModeText = map[uint16]string{
	0: "Disabled",
	1: "Maximize Self Consumption",
	2: "Time of Use",
	3: "Backup Only",
	4: "Remote Control",
}

var storageACChargePolicyText = map[uint16]string{
	0: "Disabled",
	1: "Always Allowed",
	2: "Fixed Energy Limit",
	3: "Percent of Production",
}

var storageModeText = map[uint16]string{
	0: "Solar Power Only (Off)",
	1: "Charge from Clipped Solar Power",
	2: "Charge from Solar Power",
	3: "Charge from Solar Power and Grid",
	4: "Discharge to Maximize Export",
	5: "Discharge to Minimize Import",
	7: "Maximize Self Consumption",
}

// DeviceStatusText returns the SunSpec operating-state label for an inverter
// I_Status code.
func DeviceStatusText(code uint32) string { return deviceStatusText[code] }

// VendorStatusText returns the SolarEdge label for an I_Status_Vendor code.
func VendorStatusText(code uint32) string { return vendorStatusText[code] }

// BatteryStatusText returns the label for a B_Status code.
func BatteryStatusText(code uint32) string { return batteryStatusText[code] }

// StorageControlModeText returns the label for a Storage_Control_Mode value.
func StorageControlModeText(code uint16) string { return storageControlModeText[code] }

// StorageACChargePolicyText returns the label for a Storage_AC_Charge_Policy
// value.
func StorageACChargePolicyText(code uint16) string { return storageACChargePolicyText[code] }

// StorageModeText returns the label for a storage default or command mode.
func StorageModeText(code uint16) string { return storageModeText[code] }
