// a7105-dump-config: Dump A7105 register state to a JSON file
//
// This tool opens a radio on the selected backend, reads its register file,
// and saves it to a JSON file. The snapshot can later be restored using
// a7105-load-config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/herlein/goflysky/pkg/backend"
	"github.com/herlein/goflysky/pkg/calibration"
	"github.com/herlein/goflysky/pkg/config"
)

func main() {
	opts := backend.SetupFlags(flag.CommandLine)
	outputFile := flag.String("o", "", "Output file path (default: etc/a7105/<backend>.json)")
	initFirst := flag.Bool("init", false, "Program the AFHDS2A profile and calibrate before dumping")
	verbose := flag.Bool("v", false, "Verbose output")
	jsonOutput := flag.Bool("json", false, "Output config to stdout as JSON instead of file")
	flag.Parse()

	handle, err := backend.Open(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer handle.Close()

	if *verbose {
		fmt.Printf("Connected to: %s\n", handle.Desc)
	}

	if *initFirst {
		if *verbose {
			fmt.Println("Initializing and calibrating...")
		}
		report, err := calibration.New(handle.Bus).Run(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Bring-up failed: %v\n", err)
			os.Exit(1)
		}
		if err := report.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	if *verbose {
		fmt.Println("Reading register file...")
	}

	configuration, err := config.DumpFromDevice(handle.Bus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to dump configuration: %v\n", err)
		os.Exit(1)
	}
	configuration.Backend = handle.Kind
	configuration.Device = handle.Desc

	if *jsonOutput {
		data, err := json.MarshalIndent(configuration, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to marshal configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	path := *outputFile
	if path == "" {
		name := handle.Kind
		if opts.Device != "" {
			name += "-" + strings.NewReplacer(":", "-", "#", "").Replace(opts.Device)
		}
		path = config.GetConfigPath(name)
	}

	if err := config.SaveToFile(configuration, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to save configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration saved to: %s\n", path)

	if *verbose {
		printConfigSummary(configuration)
	}
}

func printConfigSummary(cfg *config.DeviceConfig) {
	code := cfg.Code1()
	mc := cfg.ModeControl()
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("  Chip ID:      %s\n", cfg.ChipID)
	fmt.Printf("  Channel:      0x%02X (%.1f MHz)\n", cfg.Registers.PLL1, cfg.ChannelMHz())
	fmt.Printf("  Mode:         %s\n", cfg.ModeStatusString())
	fmt.Printf("  FIFO mode:    %v, auto RSSI %v\n", mc.FIFOMode, mc.AutoRSSI)
	fmt.Printf("  Code:         CRC %v, FEC %v, whitening %v\n", code.CRC, code.FEC, code.Whitening)
}
