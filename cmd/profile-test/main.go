// profile-test programs an A7105 register profile, reads it back and runs
// calibration to check that the profile leaves the radio usable
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/herlein/goflysky/pkg/backend"
	"github.com/herlein/goflysky/pkg/calibration"
	"github.com/herlein/goflysky/pkg/profiles"
	"github.com/herlein/goflysky/pkg/registers"
)

var (
	backendOpts  = backend.SetupFlags(flag.CommandLine)
	profileName  = flag.String("profile", profiles.NameAFHDS2A, "Profile to test: built-in name or JSON file")
	listProfiles = flag.Bool("list", false, "List built-in profiles")
	exportDir    = flag.String("export", "", "Write every built-in profile as JSON into this directory")
	validateOnly = flag.Bool("validate", false, "Only validate the profile table (no hardware)")
	repeat       = flag.Int("repeat", 1, "Number of times to repeat the test")
	verbose      = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	var err error
	switch {
	case *listProfiles:
		doListProfiles()
		return
	case *exportDir != "":
		err = doExport()
	default:
		err = doProfileTest()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Test FAILED: %v\n", err)
		os.Exit(1)
	}
}

func doListProfiles() {
	for _, name := range profiles.Names() {
		p, _ := profiles.ByName(name)
		fmt.Printf("  %-16s %2d writes  %s\n", name, len(p.Writes), p.Description)
	}
}

func doExport() error {
	for _, name := range profiles.Names() {
		p, err := profiles.ByName(name)
		if err != nil {
			return err
		}
		path := filepath.Join(*exportDir, name+".json")
		if err := p.SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func doProfileTest() error {
	p, err := profiles.Resolve(*profileName)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	fmt.Printf("Profile: %s (%d writes)\n", p.Name, len(p.Writes))
	if id, ok := p.ID(); ok {
		fmt.Printf("  ID:      0x%08X\n", id)
	}
	if ch, ok := p.Value(registers.RegPLL1); ok {
		fmt.Printf("  Channel: 0x%02X (%.1f MHz)\n", ch[0], registers.ChannelFrequency(ch[0]))
	}
	if *verbose {
		for i, w := range p.Writes {
			fmt.Printf("  %2d  0x%02X %-16s % X\n", i, w.Addr, registers.Name(w.Addr), w.Value)
		}
	}
	if *validateOnly {
		fmt.Println("Validation: OK")
		return nil
	}

	handle, err := backend.Open(*backendOpts)
	if err != nil {
		return err
	}
	defer handle.Close()
	fmt.Printf("Connected to: %s\n\n", handle.Desc)

	failures := 0
	for i := 1; i <= *repeat; i++ {
		start := time.Now()
		if err := runOnce(handle, p); err != nil {
			failures++
			fmt.Printf("Run %d: FAIL (%v)\n", i, err)
			continue
		}
		fmt.Printf("Run %d: PASS in %v\n", i, time.Since(start).Round(time.Millisecond))
	}

	fmt.Printf("\n%d/%d runs passed\n", *repeat-failures, *repeat)
	if failures > 0 {
		return fmt.Errorf("%d run(s) failed", failures)
	}
	return nil
}

func runOnce(handle *backend.Handle, p *profiles.Profile) error {
	ctx := context.Background()
	seq := calibration.New(handle.Bus, calibration.WithProfile(p))
	if err := seq.Initialize(ctx); err != nil {
		return err
	}

	got, err := registers.ReadAll(handle.Bus)
	if err != nil {
		return err
	}
	if mismatches := compare(p, got); len(mismatches) > 0 {
		for _, m := range mismatches {
			fmt.Printf("    %s\n", m)
		}
		return fmt.Errorf("%d register(s) did not read back", len(mismatches))
	}

	report, err := seq.Calibrate(ctx)
	if err != nil {
		return err
	}
	if !report.OK() {
		return report.Err()
	}
	for _, w := range report.Warnings {
		fmt.Printf("    warning: %v\n", w)
	}
	return nil
}

// compare checks every restorable register the profile writes.
func compare(p *profiles.Profile, got *registers.RegisterMap) []string {
	var out []string
	want := p.ToRegisters()
	if id, ok := p.ID(); ok && !bytes.Equal(want.ID[:], got.ID[:]) {
		out = append(out, fmt.Sprintf("ID: expected 0x%08X, got % X", id, got.ID))
	}
	for _, addr := range registers.Addresses() {
		if addr == registers.RegID || !registers.Restorable(addr) {
			continue
		}
		if _, ok := p.Value(addr); !ok {
			continue
		}
		w, _ := want.Get(addr)
		g, _ := got.Get(addr)
		if w != g {
			out = append(out, fmt.Sprintf("%s: expected 0x%02X, got 0x%02X", registers.Name(addr), w, g))
		}
	}
	return out
}
