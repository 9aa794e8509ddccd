// rf-scanner sweeps A7105 channels and shows RSSI occupancy of the 2.4 GHz band
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/backend"
	"github.com/herlein/goflysky/pkg/calibration"
	"github.com/herlein/goflysky/pkg/channels"
	"github.com/herlein/goflysky/pkg/registers"
	"github.com/herlein/goflysky/pkg/specan"
)

var (
	backendOpts = backend.SetupFlags(flag.CommandLine)
	chanList    = flag.String("channels", "sweep", "Channels to sweep: sweep, bind, or a list like 0x00-0x40,0x8B")
	dwell       = flag.Duration("dwell", specan.DefaultDwell, "Settle time per channel")
	threshold   = flag.Uint("threshold", 0x80, "Strength (0-255, larger is stronger) for peak detection")
	duration    = flag.Duration("duration", 0, "Scan duration (0 = indefinite)")
	bars        = flag.Bool("bars", false, "Print a bar per channel for every frame")
	verbose     = flag.Bool("v", false, "Verbose output - show all frames")
	quiet       = flag.Bool("q", false, "Quiet mode - only show detected signals")
	csvOut      = flag.String("csv", "", "Output CSV file for spectrogram data")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "RSSI spectrum sweep for the A7105\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                 # Sweep all 161 channels\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -channels 0x00-0x20 -bars       # Bar graph of the low band\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -threshold 0xC0 -q              # Only show strong signals\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -csv spectrum.csv -duration 10s # Save spectrogram data to CSV\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -backend sim -sim-tx 0x0C       # Try it without hardware\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	list, err := channels.Parse(*chanList)
	if err != nil {
		return err
	}
	if *threshold > 0xFF {
		return fmt.Errorf("threshold must be 0-255")
	}

	handle, err := backend.Open(*backendOpts)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer handle.Close()

	fmt.Printf("Connected to: %s\n", handle.Desc)

	// Signal handling cancels everything below
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := calibration.New(handle.Bus).Run(ctx)
	if err != nil {
		return fmt.Errorf("bring-up failed: %w", err)
	}
	if err := report.Err(); err != nil {
		glog.Warningf("calibration: %v", err)
	}

	sa := specan.New(handle.Bus)
	cfg := &specan.Config{Channels: list, Dwell: *dwell}

	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Channels:   %d (%s)\n", len(list), list)
	fmt.Printf("  Range:      %.1f - %.1f MHz\n",
		registers.ChannelFrequency(list[0]), registers.ChannelFrequency(list[len(list)-1]))
	fmt.Printf("  Dwell:      %v\n", *dwell)
	fmt.Printf("  Threshold:  %d\n", *threshold)
	if *csvOut != "" {
		fmt.Printf("  CSV Output: %s\n", *csvOut)
	}
	fmt.Println()

	if err := sa.Configure(cfg); err != nil {
		return fmt.Errorf("configure failed: %w", err)
	}

	var csvWriter *bufio.Writer
	if *csvOut != "" {
		csvFile, err := os.Create(*csvOut)
		if err != nil {
			return fmt.Errorf("failed to create CSV file: %w", err)
		}
		defer csvFile.Close()
		csvWriter = bufio.NewWriter(csvFile)
		defer csvWriter.Flush()

		// Header: timestamp_ms, freq1, freq2, ...
		freqs := make([]string, len(list))
		for i, ch := range list {
			freqs[i] = fmt.Sprintf("%.1f", registers.ChannelFrequency(ch))
		}
		fmt.Fprintf(csvWriter, "timestamp_ms,%s\n", strings.Join(freqs, ","))
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
		fmt.Printf("Scanning for %v...\n", *duration)
	} else {
		fmt.Println("Scanning... (Press Ctrl+C to stop)")
	}

	if err := sa.Start(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	defer sa.Stop()

	if !*quiet && !*bars {
		fmt.Println("\n Frame | Max Freq (MHz) | Max | Avg   | Spread | Peaks")
		fmt.Println("-------+----------------+-----+-------+--------+-------")
	}

	frameCount := 0
	peakCount := 0

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case frame, ok := <-sa.Frames():
			if !ok {
				break loop
			}

			frameCount++
			_, maxCh, maxStrength := specan.MaxRSSI(frame)
			avg := specan.AverageRSSI(frame)
			peaks := specan.FindPeaks(frame, uint8(*threshold))
			peakCount += len(peaks)

			if csvWriter != nil {
				vals := make([]string, len(frame.Raw))
				for i := range frame.Raw {
					vals[i] = fmt.Sprintf("%d", frame.Strength(i))
				}
				fmt.Fprintf(csvWriter, "%d,%s\n", frame.Timestamp.UnixMilli(), strings.Join(vals, ","))
			}

			switch {
			case *quiet:
				for _, p := range peaks {
					fmt.Printf("SIGNAL: %.1f MHz (ch 0x%02X) strength %d\n", p.Frequency, p.Channel, p.Strength)
				}
			case *bars:
				printBars(frame, uint8(*threshold))
			case *verbose || len(peaks) > 0 || frameCount%50 == 0:
				fmt.Printf(" %5d | %14.1f | %3d | %5.1f | %6d | %d\n",
					frameCount, registers.ChannelFrequency(maxCh), maxStrength, avg, specan.Spread(frame), len(peaks))
			}
		}
	}

	fmt.Println("\n\nStopping...")
	if err := sa.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Sweep stopped with error: %v\n", err)
	}
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Frames:  %d\n", frameCount)
	fmt.Printf("Signals: %d (strength >= %d)\n", peakCount, *threshold)
	return nil
}

const barWidth = 48

func printBars(frame *specan.Frame, threshold uint8) {
	fmt.Printf("--- %s ---\n", frame.Timestamp.Format("15:04:05.000"))
	for i, ch := range frame.Channels {
		s := frame.Strength(i)
		n := int(s) * barWidth / 0xFF
		mark := ' '
		if s >= threshold {
			mark = '*'
		}
		fmt.Printf("0x%02X %7.1f %c|%-*s| %3d\n", ch, frame.FrequencyMHz(i), mark, barWidth, strings.Repeat("#", n), s)
	}
}
