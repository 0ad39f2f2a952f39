package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os/signal"
	"syscall"
	"time"

	"solaredge-collector/internal/simulator"
	"solaredge-collector/internal/sunspec"
)

type inverterState struct {
	unit     *simulator.Unit
	dataAddr uint16
	peakW    float64
	phase    float64
}

func main() {
	var (
		listen    string
		inverters int
		baseUnit  int
		withMeter bool
		withBatt  bool
		withStore bool
		update    time.Duration
	)
	flag.StringVar(&listen, "listen", ":1502", "TCP listen address")
	flag.IntVar(&inverters, "inverters", 1, "number of inverter units to expose")
	flag.IntVar(&baseUnit, "base-unit", 1, "Modbus unit ID of the first inverter")
	flag.BoolVar(&withMeter, "meter", false, "attach a wye three-phase meter to the first inverter")
	flag.BoolVar(&withBatt, "battery", false, "attach a battery block to the first inverter")
	flag.BoolVar(&withStore, "storage", false, "expose the storage control block on the first inverter")
	flag.DurationVar(&update, "update", 2*time.Second, "telemetry update interval")
	flag.Parse()

	if err := run(listen, inverters, baseUnit, withMeter, withBatt, withStore, update); err != nil {
		log.Fatal(err)
	}
}

func run(listen string, inverters, baseUnit int, withMeter, withBatt, withStore bool, update time.Duration) error {
	if inverters < 1 || inverters > 32 {
		return fmt.Errorf("inverter count %d out of range", inverters)
	}
	if baseUnit < 1 || baseUnit+inverters-1 > 247 {
		return fmt.Errorf("unit IDs %d..%d out of range", baseUnit, baseUnit+inverters-1)
	}

	srv := simulator.NewServer()
	states := make([]*inverterState, 0, inverters)
	for i := 0; i < inverters; i++ {
		id := byte(baseUnit + i)
		u := srv.AddUnit(id)
		serial := fmt.Sprintf("SIM%07d", 7400000+i)
		if i == 0 && (withMeter || withBatt) {
			states = append(states, buildHeadUnit(u, serial, withMeter, withBatt))
		} else {
			addr := simulator.InverterUnit(u, serial, 4500)
			states = append(states, &inverterState{unit: u, dataAddr: addr, peakW: 4500, phase: float64(i) * 0.7})
		}
		if i == 0 && withStore {
			simulator.InstallStorageControl(u, map[string]float64{
				"Storage_Control_Mode":     0,
				"Storage_AC_Charge_Policy": 0,
				"Storage_AC_Charge_Limit":  0,
				"Storage_Backup_Reserved":  0,
				"Storage_Default_Mode":     0,
				"Storage_Command_Timeout":  3600,
				"Storage_Command_Mode":     0,
				"Storage_Charge_Limit":     5000,
				"Storage_Discharge_Limit":  5000,
			})
		}
	}

	if err := srv.Listen(listen); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Close()
	log.Printf("simulator listening on %s, %d inverter unit(s) from %d", srv.Addr(), inverters, baseUnit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(update)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ticker.C:
			t := time.Since(start).Seconds()
			for _, st := range states {
				st.step(t)
			}
		case <-ctx.Done():
			log.Println("shutting down simulator")
			return nil
		}
	}
}

// buildHeadUnit lays out the first unit's chain by hand so the optional
// meter and battery blocks follow the inverter block the way a real
// gateway presents downstream devices.
func buildHeadUnit(u *simulator.Unit, serial string, withMeter, withBatt bool) *inverterState {
	c := simulator.NewChain(u)
	c.AppendModel(sunspec.Common, map[string]float64{
		"C_Device_address": 1,
	}, map[string]string{
		"C_Manufacturer": "SolarEdge",
		"C_Model":        "SE10K-RW0TEBNN4",
		"C_Version":      "0004.0016.0031",
		"C_SerialNumber": serial,
	})
	addr := c.AppendModel(sunspec.Inverter3P, map[string]float64{
		"AC_Power":        4500,
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
	if withMeter {
		c.AppendModel(sunspec.Common, map[string]float64{
			"C_Device_address": 2,
		}, map[string]string{
			"C_Manufacturer": "WattNode",
			"C_Model":        "WNC-3Y-400-MB",
			"C_Version":      "25",
			"C_SerialNumber": "MTR0051",
		})
		c.AppendModel(sunspec.Meter3PWye, map[string]float64{
			"AC_Current":            212,
			"AC_Current_SF":         -2,
			"AC_Voltage_LN":         2310,
			"AC_Voltage_SF":         -1,
			"AC_Frequency":          4999,
			"AC_Frequency_SF":       -2,
			"AC_Power":              -1320,
			"AC_Power_SF":           0,
			"AC_Energy_WH_Exported": 1204500,
			"AC_Energy_WH_Imported": 3390100,
			"AC_Energy_WH_SF":       0,
		}, nil)
	}
	if withBatt {
		c.AppendModel(sunspec.Battery, map[string]float64{
			"B_RatedEnergy":       9700,
			"B_MaxChargePower":    5000,
			"B_MaxDischargePower": 5000,
			"B_Temp_Average":      28.5,
			"B_DC_Voltage":        403.2,
			"B_DC_Current":        -2.1,
			"B_DC_Power":          -850,
			"B_Energy_Max":        9700,
			"B_Energy_Available":  6110,
			"B_SOH":               99,
			"B_SOE":               63,
			"B_Status":            3,
		}, map[string]string{
			"B_Manufacturer": "SolarEdge",
			"B_Model":        "BAT-10K1P",
			"B_Version":      "DCDC 2.19",
			"B_SerialNumber": "BAT9001",
		})
	}
	c.Terminate()
	return &inverterState{unit: u, dataAddr: addr, peakW: 4500}
}

// step nudges the live telemetry fields so repeated polls see plausible
// movement: power follows a slow sine, frequency jitters around 50 Hz.
func (st *inverterState) step(t float64) {
	watts := st.peakW * (0.75 + 0.25*math.Sin(t/60+st.phase))
	st.setField("AC_Power", math.Round(watts))
	st.setField("AC_Frequency", 5000+math.Round(2*math.Sin(t/7)))
	st.setField("I_Temp_Sink", 400+math.Round(20*math.Sin(t/300)))
}

func (st *inverterState) setField(name string, raw float64) {
	f, ok := sunspec.Inverter3P.Field(name)
	if !ok {
		return
	}
	st.unit.SetRegister(st.dataAddr+f.Offset, uint16(int64(raw)&0xFFFF))
}
