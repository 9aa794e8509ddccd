// lsch341: List all connected CH341A bridges
//
// This tool enumerates all CH341A USB-to-SPI bridges and, with -v, probes
// the A7105 behind each one.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/ch341"
	"github.com/herlein/goflysky/pkg/registers"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (probe pins and the A7105 on each bridge)")
	flag.Parse()

	context := gousb.NewContext()
	defer context.Close()

	devices, err := ch341.FindAllDevices(context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to enumerate devices: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No CH341A devices found")
		os.Exit(0)
	}

	fmt.Printf("Found %d CH341A device(s):\n", len(devices))
	fmt.Println()

	for i, device := range devices {
		defer device.Close()

		if !*verbose {
			fmt.Printf("  #%d  %d:%d  %s\n", i, device.Bus, device.Address, device.Serial)
			continue
		}

		fmt.Printf("Device #%d:\n", i)
		fmt.Printf("  Serial:       %s\n", device.Serial)
		fmt.Printf("  Bus:Address:  %d:%d\n", device.Bus, device.Address)
		fmt.Printf("  Manufacturer: %s\n", device.Manufacturer)
		fmt.Printf("  Product:      %s\n", device.Product)

		if err := device.Setup(ch341.Speed750K, ch341.DefaultReadyPin); err != nil {
			fmt.Printf("  Setup:        (error: %v)\n", err)
			fmt.Println()
			continue
		}
		if pins, err := device.Pins(); err == nil {
			fmt.Printf("  Pins D7..D0:  %08b\n", pins)
		} else {
			fmt.Printf("  Pins:         (error: %v)\n", err)
		}

		bus := a7105.New(device)
		if mode, err := registers.ReadModeStatus(bus); err == nil {
			fmt.Printf("  A7105 mode:   %s\n", mode)
		} else {
			fmt.Printf("  A7105 mode:   (error: %v)\n", err)
		}
		if id, err := bus.ReadID(); err == nil {
			fmt.Printf("  A7105 ID:     0x%08X\n", id)
		} else {
			fmt.Printf("  A7105 ID:     (error: %v)\n", err)
		}
		fmt.Println()
	}

	if !*verbose {
		fmt.Println()
		fmt.Println("Use -d flag with other tools to select device:")
		fmt.Println("  -d \"#0\"      Select by index")
		fmt.Println("  -d \"1:10\"    Select by bus:address")
		fmt.Println("  -d \"serial\"  Select by serial (if the board has one)")
	}
}
