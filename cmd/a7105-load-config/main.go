// a7105-load-config: Load A7105 register state from a JSON file
//
// This tool reads a snapshot saved by a7105-dump-config and writes it back
// to a radio on the selected backend.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/herlein/goflysky/pkg/backend"
	"github.com/herlein/goflysky/pkg/config"
	"github.com/herlein/goflysky/pkg/registers"
)

func main() {
	opts := backend.SetupFlags(flag.CommandLine)
	verbose := flag.Bool("v", false, "Verbose output")
	verify := flag.Bool("verify", false, "Verify configuration after writing")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <config-file>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -d 1:10 etc/a7105/ch341.json\n", os.Args[0])
		os.Exit(1)
	}

	configPath := args[0]

	if *verbose {
		fmt.Printf("Loading configuration from: %s\n", configPath)
	}

	configuration, err := config.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Configuration loaded:\n")
		fmt.Printf("  Original Backend:   %s %s\n", configuration.Backend, configuration.Device)
		fmt.Printf("  Original Timestamp: %s\n", configuration.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Chip ID:            %s\n", configuration.ChipID)
		fmt.Printf("  Channel:            %.1f MHz\n", configuration.ChannelMHz())
	}

	handle, err := backend.Open(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer handle.Close()

	if *verbose {
		fmt.Printf("\nConnected to: %s\n", handle.Desc)
		fmt.Println("Applying configuration...")
	}

	if err := config.ApplyToDevice(handle.Bus, configuration); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to apply configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration applied successfully")

	if !*verify {
		return
	}
	if *verbose {
		fmt.Println("\nVerifying configuration...")
	}

	readBack, err := config.DumpFromDevice(handle.Bus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to read back configuration for verification: %v\n", err)
		return
	}
	mismatches := verifyConfig(configuration, readBack)
	if len(mismatches) > 0 {
		fmt.Fprintf(os.Stderr, "Verification failed with %d error(s):\n", len(mismatches))
		for _, e := range mismatches {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		os.Exit(1)
	}
	fmt.Println("Verification: OK")
}

// verifyConfig compares every register ApplyToDevice writes.
func verifyConfig(expected, actual *config.DeviceConfig) []string {
	var mismatches []string
	for _, addr := range registers.Addresses() {
		if !registers.Restorable(addr) || addr == registers.RegID {
			continue
		}
		e, _ := expected.Registers.Get(addr)
		a, _ := actual.Registers.Get(addr)
		if e != a {
			mismatches = append(mismatches, fmt.Sprintf("%s mismatch: expected 0x%02X, got 0x%02X",
				registers.Name(addr), e, a))
		}
	}
	if expected.Registers.ID != actual.Registers.ID {
		mismatches = append(mismatches, fmt.Sprintf("ID mismatch: expected %X, got %X",
			expected.Registers.ID, actual.Registers.ID))
	}
	return mismatches
}
