// Package bluecore is the root facade tying the Bus Client, Dispatcher,
// Device Manager and Connection Manager together into the single entry
// point a host application constructs (spec.md §2 "data flow").
//
// Adapted from the teacher's session.NewSession()/BluezSession.Start
// shape (linux/session.go) — one constructor that opens the bus, starts
// the background signal thread, and hands back ready-to-use managers —
// but split along spec.md §9's shared-bus-client design note instead of
// bundling everything behind one opaque Session interface.
package bluecore

import (
	"time"

	"github.com/bluecore-project/bluecore/api/config"
	"github.com/bluecore-project/bluecore/api/eventbus"
	"github.com/bluecore-project/bluecore/busclient"
	"github.com/bluecore-project/bluecore/connectionmanager"
	"github.com/bluecore-project/bluecore/devicemanager"
	"github.com/bluecore-project/bluecore/dispatcher"
)

// idleSleep bounds the Dispatcher's busy-loop avoidance sleep (spec.md §5
// "≤ 10 ms").
const idleSleep = 10 * time.Millisecond

// Core bundles the Bus Client, Dispatcher, Device Manager and Connection
// Manager constructed against one shared bus session.
type Core struct {
	bus        *busclient.Client
	events     *eventbus.Bus
	dispatcher *dispatcher.Dispatcher
	stop       chan struct{}

	Devices     *devicemanager.Manager
	Connections *connectionmanager.Manager
}

// Start opens the shared Bus Client, builds the event bus and Dispatcher,
// and constructs a Device Manager and (if connCfg is non-nil) a
// Connection Manager sharing the same bus session, then starts the
// Dispatcher thread. It fails only if the Bus Client cannot be opened:
// the bus is unreachable or the signal match rule cannot be installed
// (spec.md §4.A "no partial state").
func Start(deviceCfg config.DeviceManager, connCfg *config.ConnectionManager) (*Core, error) {
	bus, err := busclient.Open()
	if err != nil {
		return nil, err
	}

	events := eventbus.New()

	c := &Core{
		bus:        bus,
		events:     events,
		dispatcher: dispatcher.New(bus, events),
		stop:       make(chan struct{}),
		Devices:    devicemanager.New(bus, events, deviceCfg),
	}

	if connCfg != nil {
		c.Connections = connectionmanager.New(bus.Acquire(), events, *connCfg)
	}

	go c.dispatcher.Run(c.stop, config.DefaultPumpBudget, idleSleep)

	return c, nil
}

// Destroy stops the Dispatcher thread, destroys both managers, and
// unreferences the shared Bus Client (spec.md §4.D/§5 "destroy").
func (c *Core) Destroy() error {
	close(c.stop)

	var firstErr error

	if c.Connections != nil {
		if err := c.Connections.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := c.Devices.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}

	c.events.Shutdown()

	return firstErr
}
