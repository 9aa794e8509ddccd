// a7105-shell is an interactive register console for the A7105.
//
// With arguments it runs a single command and exits:
//
//	a7105-shell -backend sim init
//	a7105-shell -d 1:10 read 0x06 4
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/backend"
	"github.com/herlein/goflysky/pkg/calibration"
	"github.com/herlein/goflysky/pkg/profiles"
	"github.com/herlein/goflysky/pkg/receiver"
	"github.com/herlein/goflysky/pkg/registers"
)

const consoleKey = "$console"

// console is the state shared by all commands.
type console struct {
	handle  *backend.Handle
	profile *profiles.Profile
	rx      *receiver.Receiver
}

func consoleFrom(c *ishell.Context) *console {
	return c.Get(consoleKey).(*console)
}

func (con *console) bus() *a7105.Bus {
	return con.handle.Bus
}

func (con *console) useProfile(p *profiles.Profile) {
	con.profile = p
	seq := calibration.New(con.bus(), calibration.WithProfile(p))
	con.rx = receiver.New(con.bus(), receiver.WithSequencer(seq))
}

func main() {
	opts := backend.SetupFlags(flag.CommandLine)
	flag.Parse()

	handle, err := backend.Open(*opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer handle.Close()

	con := &console{handle: handle}
	con.useProfile(profiles.AFHDS2A())

	shell := ishell.New()
	shell.Set(consoleKey, con)
	shell.SetPrompt(fmt.Sprintf("[%s] > ", handle.Kind))
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}

	if args := flag.Args(); len(args) > 0 {
		if err := shell.Process(args...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	shell.Printf("Connected to: %s\n", handle.Desc)
	shell.Run()
	glog.Flush()
}

// parseByte accepts decimal or 0x-prefixed hex.
func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return uint8(v), nil
}

func parseBytes(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, a := range args {
		b, err := parseByte(a)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

var commands = []*ishell.Cmd{
	{
		Name: "id",
		Help: "read the 4 byte ID register",
		Func: func(c *ishell.Context) {
			id, err := consoleFrom(c).bus().ReadID()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("ID 0x%08X\n", id)
		},
	},
	{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "read <addr> [count]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: read <addr> [count]"))
				return
			}
			addr, err := parseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			n := registers.Width(addr)
			if len(c.Args) > 1 {
				if n, err = strconv.Atoi(c.Args[1]); err != nil || n < 1 || n > 64 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[1]))
					return
				}
			}
			buf := make([]byte, n)
			if err := consoleFrom(c).bus().Read(addr, buf); err != nil {
				c.Err(err)
				return
			}
			c.Printf("0x%02X %-16s % X\n", addr, registers.Name(addr), buf)
		},
	},
	{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "write <addr> <byte>...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("usage: write <addr> <byte>..."))
				return
			}
			addr, err := parseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			data, err := parseBytes(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			if err := consoleFrom(c).bus().Write(addr, data); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	},
	{
		Name: "strobe",
		Help: "strobe <SLEEP|IDLE|STANDBY|PLL|RX|TX|FIFO_WRITE_RESET|FIFO_READ_RESET>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: strobe <name>"))
				return
			}
			s, ok := a7105.ParseStrobe(strings.ToUpper(c.Args[0]))
			if !ok {
				c.Err(fmt.Errorf("unknown strobe %q", c.Args[0]))
				return
			}
			if err := consoleFrom(c).bus().Strobe(s); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	},
	{
		Name: "reset",
		Help: "software reset",
		Func: func(c *ishell.Context) {
			if err := consoleFrom(c).bus().Reset(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	},
	{
		Name: "status",
		Help: "decode the mode status register",
		Func: func(c *ishell.Context) {
			m, err := registers.ReadModeStatus(consoleFrom(c).bus())
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(m.String())
		},
	},
	{
		Name: "profile",
		Help: "profile [name|file] - show or select the profile used by init",
		Func: func(c *ishell.Context) {
			con := consoleFrom(c)
			if len(c.Args) > 0 {
				p, err := profiles.Resolve(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				con.useProfile(p)
			}
			c.Printf("%s (%d writes), built-in: %v\n", con.profile.Name, len(con.profile.Writes), profiles.Names())
		},
	},
	{
		Name: "init",
		Help: "reset, program the profile and calibrate",
		Func: func(c *ishell.Context) {
			con := consoleFrom(c)
			ctx := context.Background()
			if err := con.rx.Initialize(ctx); err != nil {
				c.Err(err)
				return
			}
			report, err := con.rx.Calibrate(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			printReport(c, report)
		},
	},
	{
		Name: "cal",
		Help: "run calibration only",
		Func: func(c *ishell.Context) {
			report, err := consoleFrom(c).rx.Calibrate(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			printReport(c, report)
		},
	},
	{
		Name:    "channel",
		Aliases: []string{"ch"},
		Help:    "channel [ch] - show or set the PLL channel",
		Func: func(c *ishell.Context) {
			con := consoleFrom(c)
			if len(c.Args) > 0 {
				ch, err := parseByte(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				if err := con.rx.SetChannel(ch); err != nil {
					c.Err(err)
					return
				}
			}
			ch, err := registers.GetChannel(con.bus())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("channel 0x%02X (%.1f MHz)\n", ch, registers.ChannelFrequency(ch))
		},
	},
	{
		Name: "rssi",
		Help: "rssi [ch] - enter RX and sample the RSSI ADC",
		Func: func(c *ishell.Context) {
			con := consoleFrom(c)
			if len(c.Args) > 0 {
				ch, err := parseByte(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				if err := con.rx.Tune(ch); err != nil {
					c.Err(err)
					return
				}
			} else if err := con.rx.EnterReceiveMode(); err != nil {
				c.Err(err)
				return
			}
			v, err := con.rx.ReadRSSI()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("RSSI 0x%02X (%.3f V)\n", uint8(v), v.Voltage())
		},
	},
	{
		Name: "poll",
		Help: "poll <ch> [timeout] - tune and wait for one frame",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: poll <ch> [timeout]"))
				return
			}
			ch, err := parseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			timeout := receiver.DefaultReadyTimeout
			if len(c.Args) > 1 {
				if timeout, err = time.ParseDuration(c.Args[1]); err != nil {
					c.Err(err)
					return
				}
			}
			con := consoleFrom(c)
			if err := con.rx.Tune(ch); err != nil {
				c.Err(err)
				return
			}
			rec, err := con.rx.PollFrame(context.Background(), timeout)
			if rec != nil {
				c.Printf("raw % X\n", rec.Raw)
			}
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s\n", rec.Packet)
		},
	},
	{
		Name: "dump",
		Help: "read every register",
		Func: func(c *ishell.Context) {
			reg, err := registers.ReadAll(consoleFrom(c).bus())
			if err != nil {
				c.Err(err)
				return
			}
			for _, addr := range registers.Addresses() {
				v, _ := reg.Get(addr)
				c.Printf("0x%02X %-16s 0x%02X\n", addr, registers.Name(addr), v)
			}
			c.Printf("0x%02X %-16s % X\n", registers.RegID, registers.Name(registers.RegID), reg.ID)
		},
	},
}

func printReport(c *ishell.Context, r *calibration.Report) {
	c.Printf("IF filter done=%v err=%v\n", r.IFFilter.Done, r.IFFilter.Err)
	c.Printf("VCO current 0x%02X\n", r.VCOCurrent)
	for _, ch := range r.VCOBand {
		c.Printf("VCO band 0x%02X raw 0x%02X ok=%v err=%v\n", ch.Channel, ch.Result.Raw, ch.Result.Success, ch.Err)
	}
	c.Printf("channel readback 0x%02X\n", r.ChannelReadback)
	for _, w := range r.Warnings {
		c.Printf("warning: %v\n", w)
	}
}
