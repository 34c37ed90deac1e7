// Command bluecorectl is a minimal, non-GUI demonstration of the bluecore
// core: list devices, run a timed scan, and connect/pair by address.
// It replaces the teacher's cmd/cli.go, which launched a TUI
// (darkhz/bluetuith's ui/app) — the graphical front-end is an explicit
// non-goal here, but the flag-parsing/config stack (urfave/cli/v2,
// koanf, fatih/color) is kept.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/bluecore-project/bluecore"
	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/bluecore-project/bluecore/api/config"
	"github.com/urfave/cli/v2"
)

// Version and Revision are set at compile-time, mirroring the teacher's
// cmd/cli.go version-printer hookup.
var (
	Version  = ""
	Revision = ""
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Fprintf(cCtx.App.Writer, "%s (%s)\n", Version, Revision)
	}

	return &cli.App{
		Name:        "bluecorectl",
		Usage:       "bluecore demo CLI",
		Version:     Version + " (" + Revision + ")",
		Description: "A minimal command-line front-end for the bluecore library.",
		Commands: []*cli.Command{
			listDevicesCommand(),
			scanCommand(),
			connectCommand(),
			pairCommand(),
		},
	}
}

// listDevicesCommand prints the current device cache contents with no
// scan. The cache starts empty and holds only devices reported by
// signals since startup; the daemon's existing object-manager tree is
// not loaded into it.
func listDevicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List known devices",
		Action: func(cliCtx *cli.Context) error {
			core, err := bluecore.Start(config.DeviceManager{}, nil)
			if err != nil {
				return err
			}
			defer core.Destroy()

			printDevices(core.Devices.ListDevices())

			return nil
		},
	}
}

// scanCommand runs discovery for the given duration, printing each device
// as it is discovered.
func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Discover nearby devices for a fixed duration",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Value: 10, Usage: "scan duration in seconds"},
		},
		Action: func(cliCtx *cli.Context) error {
			values, err := loadConfig(cliCtx)
			if err != nil {
				return err
			}

			duration := time.Duration(cliCtx.Int("duration")) * time.Second
			if duration <= 0 {
				duration = values.scanDuration()
			}

			sink := &printingSink{}

			core, err := bluecore.Start(config.DeviceManager{Sink: sink}, nil)
			if err != nil {
				return err
			}
			defer core.Destroy()

			if err := core.Devices.StartDiscovery(); err != nil {
				return err
			}

			printInfo(fmt.Sprintf("scanning for %s...", duration))
			time.Sleep(duration)

			if err := core.Devices.StopDiscovery(); err != nil {
				return err
			}

			printDevices(core.Devices.ListDevices())

			return nil
		},
	}
}

// connectCommand connects to a single address and reports each state
// transition as it happens.
func connectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Connect to a device by address",
		ArgsUsage: "XX:XX:XX:XX:XX:XX",
		Action: func(cliCtx *cli.Context) error {
			address, err := addressArg(cliCtx)
			if err != nil {
				return err
			}

			sink := &printingConnectionSink{}

			core, err := bluecore.Start(config.DeviceManager{}, &config.ConnectionManager{Sink: sink})
			if err != nil {
				return err
			}
			defer core.Destroy()

			return core.Connections.Connect(address)
		},
	}
}

// pairCommand pairs with a single address, optionally enabling auto-trust.
func pairCommand() *cli.Command {
	return &cli.Command{
		Name:      "pair",
		Usage:     "Pair with a device by address",
		ArgsUsage: "XX:XX:XX:XX:XX:XX",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "auto-trust", Usage: "trust the device automatically on successful pairing"},
		},
		Action: func(cliCtx *cli.Context) error {
			address, err := addressArg(cliCtx)
			if err != nil {
				return err
			}

			sink := &printingConnectionSink{}

			core, err := bluecore.Start(config.DeviceManager{}, &config.ConnectionManager{
				Sink:      sink,
				AutoTrust: cliCtx.Bool("auto-trust"),
			})
			if err != nil {
				return err
			}
			defer core.Destroy()

			return core.Connections.Pair(address)
		},
	}
}

func addressArg(cliCtx *cli.Context) (bluetooth.MacAddress, error) {
	if cliCtx.Args().Len() < 1 {
		return bluetooth.MacAddress{}, cli.Exit("expected a device address argument", 1)
	}

	return bluetooth.ParseMAC(cliCtx.Args().First())
}

func printDevices(devices []bluetooth.Device) {
	if len(devices) == 0 {
		printInfo("no devices known")

		return
	}

	for _, d := range devices {
		fmt.Printf("%s  %-24s  %-12s  rssi=%d\n", d.Address, d.Alias, d.Kind, d.RSSI)
	}
}
