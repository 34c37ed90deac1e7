package main

import (
	"fmt"

	"github.com/bluecore-project/bluecore/api/bluetooth"
	"github.com/bluecore-project/bluecore/api/errorkinds"
)

// printingSink is a bluetooth.DiscoverySink that narrates discovery
// events to the terminal, grounded on the teacher's cmd printing helpers
// (printWarn/printError) generalized to the new callback shape.
type printingSink struct{}

func (printingSink) OnDiscovered(d bluetooth.Device) {
	fmt.Printf("+ %s  %-24s  %-12s\n", d.Address, d.Alias, d.Kind)
}

func (printingSink) OnScanStatus(scanning bool) {
	if scanning {
		printInfo("discovery started")
	} else {
		printInfo("discovery stopped")
	}
}

func (printingSink) OnError(err error) {
	// KindNoDevice at this sink means "no adapter yet" (spec.md §4.D
	// create contract: the manager stays usable), not a failed request.
	if errorkinds.Is(err, errorkinds.KindNoDevice) {
		printWarn(err.Error())

		return
	}

	printError(err)
}

// printingConnectionSink narrates connection-state and pairing callbacks.
type printingConnectionSink struct{}

func (printingConnectionSink) OnState(address bluetooth.MacAddress, state bluetooth.ConnectionState) {
	fmt.Printf("%s -> %s\n", address, state)
}

func (printingConnectionSink) OnPairing(address bluetooth.MacAddress, success bool, errText string) {
	if success {
		printInfo(fmt.Sprintf("%s paired", address))

		return
	}

	printError(fmt.Errorf("%s pairing failed: %s", address, errText))
}
