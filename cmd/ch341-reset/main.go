// ch341-reset resets CH341A bridges to recover from USB errors
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/gousb"

	"github.com/herlein/goflysky/pkg/ch341"
)

func main() {
	attempts := flag.Int("n", 3, "Attempts to find devices")
	flag.Parse()

	ctx := gousb.NewContext()
	defer ctx.Close()

	for attempt := 0; attempt < *attempts; attempt++ {
		devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			return desc.Vendor == ch341.VendorID && desc.Product == ch341.ProductID
		})

		if err != nil {
			fmt.Printf("Attempt %d: Error finding devices: %v\n", attempt+1, err)
			time.Sleep(time.Second)
			continue
		}

		if len(devs) == 0 {
			fmt.Printf("Attempt %d: No devices found\n", attempt+1)
			time.Sleep(time.Second)
			continue
		}

		fmt.Printf("Found %d device(s)\n", len(devs))
		for i, dev := range devs {
			fmt.Printf("  Device %d: bus %d address %d\n", i, dev.Desc.Bus, dev.Desc.Address)

			if err := dev.Reset(); err != nil {
				fmt.Printf("    Reset failed: %v\n", err)
			} else {
				fmt.Printf("    Reset OK\n")
			}
			dev.Close()
		}
		os.Exit(0)
	}

	fmt.Printf("Failed to find/reset devices after %d attempts\n", *attempts)
	os.Exit(1)
}
