package transport

import "fmt"

// Modbus TCP framing limits.
const (
	mbapHeaderSize = 7 // TID, PID, Length, UnitID
	aduMaxSize     = 260

	// MaxReadRegisters is the per-request register ceiling for function 0x03.
	MaxReadRegisters = 125
)

// Function codes used by this client.
const (
	funcReadHolding    = 0x03
	funcWriteRegister  = 0x06
	funcWriteRegisters = 0x10

	exceptionBit = 0x80
)

// adu is one Modbus TCP application data unit: MBAP header plus PDU.
type adu struct {
	transactionID uint16
	unitID        byte
	function      byte
	data          []byte
}

func (a *adu) encode() ([]byte, error) {
	length := len(a.data) + 2 // unit ID + function code
	if mbapHeaderSize-1+length > aduMaxSize {
		return nil, fmt.Errorf("pdu of %d bytes exceeds frame limit", len(a.data))
	}
	raw := make([]byte, mbapHeaderSize+1+len(a.data))
	raw[0] = byte(a.transactionID >> 8)
	raw[1] = byte(a.transactionID)
	// Protocol ID is always zero for Modbus.
	raw[4] = byte(length >> 8)
	raw[5] = byte(length)
	raw[6] = a.unitID
	raw[7] = a.function
	copy(raw[8:], a.data)
	return raw, nil
}

// decodeResponse parses header+payload bytes already framed by readFrame and
// verifies them against the request.
func (req *adu) decodeResponse(header, payload []byte) (*adu, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("response payload of %d bytes too short", len(payload))
	}
	resp := &adu{
		transactionID: uint16(header[0])<<8 | uint16(header[1]),
		unitID:        payload[0],
		function:      payload[1],
		data:          payload[2:],
	}
	if pid := uint16(header[2])<<8 | uint16(header[3]); pid != 0 {
		return nil, fmt.Errorf("response protocol id %d, want 0", pid)
	}
	if resp.transactionID != req.transactionID {
		return nil, fmt.Errorf("response transaction id %d does not match request %d",
			resp.transactionID, req.transactionID)
	}
	if resp.unitID != req.unitID {
		return nil, fmt.Errorf("response unit id %d does not match request %d",
			resp.unitID, req.unitID)
	}
	if resp.function == req.function|exceptionBit {
		if len(resp.data) < 1 {
			return nil, fmt.Errorf("exception response missing code")
		}
		return nil, &ExceptionError{Function: req.function, Code: resp.data[0]}
	}
	if resp.function != req.function {
		return nil, fmt.Errorf("response function 0x%02X does not match request 0x%02X",
			resp.function, req.function)
	}
	return resp, nil
}
