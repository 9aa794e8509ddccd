// flyrx listens for FlySky AFHDS2A transmitters on an A7105 and reports
// every bind and stick packet it hears.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/backend"
	"github.com/herlein/goflysky/pkg/calibration"
	"github.com/herlein/goflysky/pkg/channels"
	"github.com/herlein/goflysky/pkg/profiles"
	"github.com/herlein/goflysky/pkg/publish"
	"github.com/herlein/goflysky/pkg/receiver"
	"github.com/herlein/goflysky/pkg/scanner"
)

var (
	backendOpts = backend.SetupFlags(flag.CommandLine)
	configPath  = flag.String("config", "", "Receiver config file (JSON5), e.g. "+scanner.DefaultConfigPath)
	chanList    = flag.String("channels", "", "Channels to scan: bind, sweep, or a list like 0x0C,0x8B,0x20")
	profileName = flag.String("profile", "", fmt.Sprintf("Register profile: one of %v or a file path", profiles.Names()))
	mqttURL     = flag.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883/flyrx")
	redisAddr   = flag.String("redis", "", "Redis address, e.g. localhost:6379")
	statsEvery  = flag.Duration("stats", 30*time.Second, "Interval for channel statistics (0 = off)")
	quiet       = flag.Bool("q", false, "Only print transmitter detected/lost events")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "AFHDS2A receiver and transmitter monitor for the A7105\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -d '#0'                          # Bind channels on the first CH341A\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config etc/flyrx.json5          # Settings from a file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -backend sim -sim-tx 0x8B        # No hardware\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -mqtt tcp://broker:1883/flyrx    # Publish packets\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	glog.Flush()
}

// settings merges the config file with any flags given explicitly.
func settings() (*scanner.ConfigFile, backend.Options, error) {
	file := scanner.DefaultConfigFile()
	if *configPath != "" {
		var err error
		if file, err = scanner.LoadConfigFile(*configPath); err != nil {
			return nil, backend.Options{}, err
		}
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts := *backendOpts
	if *configPath != "" && !set["backend"] {
		b := file.Backend
		opts.Kind = b.Kind
		if b.Device != "" {
			opts.Device = b.Device
		}
		if b.SPI != "" {
			opts.SPI = b.SPI
		}
		if b.CS != "" {
			opts.CS = b.CS
		}
		if b.Ready != "" {
			opts.Ready = b.Ready
		}
		if b.SpeedHz != 0 {
			opts.SpeedHz = int(b.SpeedHz)
		}
	} else {
		file.Backend.Kind = opts.Kind
	}

	if set["channels"] {
		file.Scan.Channels = *chanList
	}
	if set["profile"] {
		file.Profile = *profileName
	}
	if set["mqtt"] {
		file.Publish.MQTTURL = *mqttURL
	}
	if set["redis"] {
		file.Publish.RedisAddr = *redisAddr
	}
	return file, opts, file.Validate()
}

func run() error {
	file, opts, err := settings()
	if err != nil {
		return err
	}
	scanCfg, err := file.ToScanConfig()
	if err != nil {
		return err
	}
	profile, err := profiles.Resolve(file.Profile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := openSinks(ctx, file.Publish)
	if err != nil {
		return err
	}
	defer sink.Close()

	handle, err := backend.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer handle.Close()
	fmt.Printf("Connected to: %s\n", handle.Desc)

	seq := calibration.New(handle.Bus, calibration.WithProfile(profile))
	rx := receiver.New(handle.Bus, receiver.WithSequencer(seq))

	if err := rx.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	report, err := rx.Calibrate(ctx)
	if err != nil {
		return fmt.Errorf("calibration aborted: %w", err)
	}
	printReport(report)

	scanCfg.OnTransmitterDetected = func(info *scanner.TransmitterInfo) {
		fmt.Printf("DETECTED: transmitter %08X (receiver %08X) on ch 0x%02X, %s\n",
			info.ID, info.ReceiverID, info.LastChannel, info.LastKind)
	}
	scanCfg.OnTransmitterLost = func(info *scanner.TransmitterInfo) {
		fmt.Printf("LOST: transmitter %08X after %d packets, last seen %s\n",
			info.ID, info.PacketCount, info.LastSeen.Format("15:04:05"))
	}

	scan, err := scanner.New(rx, scanCfg)
	if err != nil {
		return err
	}

	fmt.Printf("\nProfile:   %s\n", profile.Name)
	fmt.Printf("Channels:  %s\n", scanCfg.Channels)
	fmt.Printf("Policy:    advance after %d idle attempts, %v ready timeout\n", scanCfg.IdleAttempts, scanCfg.ReadyTimeout)
	fmt.Println("Listening... (Press Ctrl+C to stop)")
	fmt.Println()

	results := make(chan *scanner.ScanResult, 64)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- scan.ScanContinuous(ctx, results)
	}()

	var ticker <-chan time.Time
	if *statsEvery > 0 {
		t := time.NewTicker(*statsEvery)
		defer t.Stop()
		ticker = t.C
	}

	for {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if r.PacketReceived() {
				if !*quiet {
					printPacket(r)
				}
				if err := sink.Publish(ctx, r); err != nil {
					glog.Warningf("publish: %v", err)
				}
			} else if glog.V(1) {
				glog.Infof("%s", r)
			}

		case <-ticker:
			printStats(scan.Stats())

		case err := <-scanErr:
			fmt.Println("\nStopping...")
			printStats(scan.Stats())
			printTransmitters(scan.GetTransmitters())
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}
	}
}

func openSinks(ctx context.Context, cfg scanner.PublishJSON) (publish.Multi, error) {
	var sinks publish.Multi
	if cfg.MQTTURL != "" {
		s, err := publish.NewMQTTSink(cfg.MQTTURL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		fmt.Printf("Publishing to MQTT %s\n", cfg.MQTTURL)
	}
	if cfg.RedisAddr != "" {
		s, err := publish.NewRedisSink(ctx, cfg.RedisAddr)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, s)
		fmt.Printf("Publishing to Redis %s\n", cfg.RedisAddr)
	}
	return sinks, nil
}

func printReport(r *calibration.Report) {
	status := "OK"
	if !r.OK() {
		status = "FAILED"
	}
	fmt.Printf("Calibration: %s\n", status)
	if r.IFFilter.Err != nil {
		fmt.Printf("  IF filter:   %v\n", r.IFFilter.Err)
	}
	fmt.Printf("  VCO current: 0x%02X\n", r.VCOCurrent)
	for _, ch := range r.VCOBand {
		res := "ok"
		if ch.Err != nil {
			res = ch.Err.Error()
		}
		fmt.Printf("  VCO band @ 0x%02X: raw 0x%02X %s\n", ch.Channel, ch.Result.Raw, res)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  Warning: %v\n", w)
	}
}

func printPacket(r *scanner.ScanResult) {
	ts := r.Timestamp.Format("15:04:05.000")
	switch p := r.Packet.(type) {
	case *afhds2.Sticks:
		fmt.Printf("%s ch 0x%02X STICKS tx=%08X", ts, r.Channel, p.TransmitterID)
		for i := 0; i < 6; i++ {
			fmt.Printf(" %+.2f", p.Normalized(i))
		}
		fmt.Println()
	case *afhds2.Bind:
		fmt.Printf("%s ch 0x%02X BIND   tx=%08X rx=%08X stage 0x%02X\n",
			ts, r.Channel, p.TransmitterID, p.ReceiverID, p.Stage)
	}
}

func printStats(st scanner.Stats) {
	fmt.Printf("--- %d attempts, %d advances ---\n", st.Total.Attempts, st.Advances)
	for _, ch := range channels.FullSweep() {
		cs, ok := st.PerChannel[ch]
		if !ok {
			continue
		}
		fmt.Printf("  ch 0x%02X: %d attempts, %d packets, %d timeouts, %d frame errors, %d mismatches\n",
			ch, cs.Attempts, cs.Packets, cs.Timeouts, cs.FrameErrors, cs.Mismatches)
	}
}

func printTransmitters(txs []*scanner.TransmitterInfo) {
	if len(txs) == 0 {
		fmt.Println("No transmitters heard")
		return
	}
	fmt.Printf("Transmitters heard: %d\n", len(txs))
	for _, t := range txs {
		fmt.Printf("  %08X  %d packets  channels %s  last %s\n",
			t.ID, t.PacketCount, channels.List(t.Channels), t.LastSeen.Format("15:04:05"))
	}
}
