package poller

import (
	"context"
	"fmt"
	"log/slog"

	"solaredge-collector/internal/sunspec"
	"solaredge-collector/internal/transport"
)

// ErrNotSunSpec marks a unit that answered but did not present the SunS
// marker at the base address.
type ErrNotSunSpec struct {
	UnitID uint8
	Marker uint32
}

func (e *ErrNotSunSpec) Error() string {
	return fmt.Sprintf("unit %d: marker 0x%08X is not a sunspec register map", e.UnitID, e.Marker)
}

// discoverUnit walks one unit's SunSpec model chain and returns the devices
// found on it. The chain is laid out as (ID, length) headers back to back;
// a common identity block binds to the device model that follows it.
// Returns the devices in chain order.
func discoverUnit(ctx context.Context, client *transport.Client, log *slog.Logger, gatewayID string, unitID uint8, extras bool) ([]*Device, error) {
	marker, err := client.ReadHoldingRegisters(ctx, unitID, sunspec.BaseAddress, 2)
	if err != nil {
		return nil, err
	}
	if got := uint32(marker[0])<<16 | uint32(marker[1]); got != sunspec.MarkerSunS {
		return nil, &ErrNotSunSpec{UnitID: unitID, Marker: got}
	}

	var devices []*Device
	var identity map[string]sunspec.Value

	addr := sunspec.ChainAddress
	for {
		header, err := client.ReadHoldingRegisters(ctx, unitID, addr, 2)
		if err != nil {
			return nil, err
		}
		modelID, length := header[0], header[1]
		if modelID == sunspec.EndModelID {
			break
		}
		dataAddr := addr + sunspec.HeaderLength
		addr = dataAddr + length

		model, err := sunspec.Lookup(modelID)
		if err != nil {
			// Unknown blocks are skipped by their own declared length; the
			// rest of the chain stays reachable. The exclusion is surfaced so
			// the host can see which sub-devices were not modeled.
			log.Warn("unsupported model in chain, no device created",
				"gateway", gatewayID, "unit", unitID, "length", length, "error", err)
			continue
		}
		if length != model.Length {
			return nil, &sunspec.DecodeError{
				Model:  model.Name,
				Reason: fmt.Sprintf("chain declares %d registers, layout needs %d", length, model.Length),
			}
		}

		switch {
		case modelID == sunspec.ModelCommon:
			identity, err = readBlock(ctx, client, unitID, dataAddr, model)
			if err != nil {
				return nil, err
			}

		case sunspec.IsInverterModel(modelID):
			ref := DeviceRef{
				GatewayID: gatewayID,
				UnitID:    unitID,
				Kind:      KindInverter,
				ModelID:   modelID,
				DataAddr:  dataAddr,
			}
			applyIdentity(&ref, identity)
			identity = nil
			devices = append(devices, newDevice(ref, model))

		case sunspec.IsMeterModel(modelID):
			if !extras {
				continue
			}
			ref := DeviceRef{
				GatewayID: gatewayID,
				UnitID:    unitID,
				Kind:      KindMeter,
				ModelID:   modelID,
				DataAddr:  dataAddr,
			}
			applyIdentity(&ref, identity)
			identity = nil
			devices = append(devices, newDevice(ref, model))

		case modelID == sunspec.ModelBattery:
			if !extras {
				continue
			}
			vals, err := readBlock(ctx, client, unitID, dataAddr, model)
			if err != nil {
				return nil, err
			}
			// A battery block with no rated capacity is a stub the gateway
			// exposes for a bank that is not actually installed.
			rated := vals["B_RatedEnergy"]
			if !rated.Available() || rated.Float() <= 0 {
				log.Debug("ignoring uninstalled battery block",
					"gateway", gatewayID, "unit", unitID, "addr", dataAddr)
				continue
			}
			ref := DeviceRef{
				GatewayID:    gatewayID,
				UnitID:       unitID,
				Kind:         KindBattery,
				ModelID:      modelID,
				DataAddr:     dataAddr,
				Manufacturer: vals["B_Manufacturer"].Str(),
				Model:        vals["B_Model"].Str(),
				Version:      vals["B_Version"].Str(),
				Serial:       vals["B_SerialNumber"].Str(),
			}
			devices = append(devices, newDevice(ref, model))
		}
	}
	return devices, nil
}

// readBlock fetches and decodes a full model data block during discovery.
func readBlock(ctx context.Context, client *transport.Client, unitID uint8, dataAddr uint16, model *sunspec.Model) (map[string]sunspec.Value, error) {
	regs := make([]uint16, model.Length)
	for _, sp := range model.Spans(transport.MaxReadRegisters) {
		part, err := client.ReadHoldingRegisters(ctx, unitID, dataAddr+sp.Offset, sp.Count)
		if err != nil {
			return nil, err
		}
		copy(regs[sp.Offset:], part)
	}
	return model.Decode(regs)
}

func applyIdentity(ref *DeviceRef, identity map[string]sunspec.Value) {
	if identity == nil {
		return
	}
	ref.Manufacturer = identity["C_Manufacturer"].Str()
	ref.Model = identity["C_Model"].Str()
	ref.Version = identity["C_Version"].Str()
	ref.Serial = identity["C_SerialNumber"].Str()
}

// hasStorageControl probes the vendor storage block. An illegal-address
// exception means the gateway does not expose it; any other failure is a
// transport problem and is returned.
func hasStorageControl(ctx context.Context, client *transport.Client, unitID uint8) (bool, error) {
	_, err := client.ReadHoldingRegisters(ctx, unitID, sunspec.StorageControlAddress, sunspec.StorageControl.Length)
	if err == nil {
		return true, nil
	}
	if transport.IsIllegalAddress(err) {
		return false, nil
	}
	return false, err
}
