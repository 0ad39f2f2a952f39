package main

import (
	"flag"
	"log"
	"os"

	"solaredge-collector/internal/output"
	"solaredge-collector/internal/recorder"
)

func main() {
	var dbPath string
	var deviceID string
	var outJSON string
	var outCSV string
	flag.StringVar(&dbPath, "db", "data/readings.db", "path to readings database")
	flag.StringVar(&deviceID, "device", "", "export a single device (e.g. plant1/inverter/SN123)")
	flag.StringVar(&outJSON, "json", "", "path to write JSON snapshot ('-' for stdout)")
	flag.StringVar(&outCSV, "csv", "", "path to write CSV snapshot (optional)")
	flag.Parse()

	if outJSON == "" && outCSV == "" {
		outJSON = "-"
	}

	store, err := recorder.OpenStore(dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	snaps, err := output.Collect(store, deviceID)
	if err != nil {
		log.Fatalf("collect: %v", err)
	}

	if outJSON == "-" {
		if err := output.WriteJSON(os.Stdout, snaps); err != nil {
			log.Fatalf("write json: %v", err)
		}
	} else if outJSON != "" {
		if err := output.WriteFile(outJSON, snaps, output.WriteJSON); err != nil {
			log.Fatalf("write json: %v", err)
		}
	}
	if outCSV != "" {
		if err := output.WriteFile(outCSV, snaps, output.WriteCSV); err != nil {
			log.Fatalf("write csv: %v", err)
		}
	}
}
