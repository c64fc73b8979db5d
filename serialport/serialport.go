// Package serialport opens and enumerates the serial link to the device.
//
// The link is owned exclusively by the client process for the session
// duration: it is opened once and closed on exit or fatal error, with no
// persistent state between sessions.
package serialport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// settleDelay lets the USB CDC stack settle after open before the
	// first command is sent.
	settleDelay = 300 * time.Millisecond

	// cp210xVID is the Silicon Labs CP210x USB-UART bridge vendor ID, the
	// bridge most ESP32 dev boards ship with.
	cp210xVID = "10C4"
)

// ErrNoPorts indicates that no serial ports exist on this machine.
var ErrNoPorts = errors.New("serialport: no serial ports found")

// Port is an open serial link. It satisfies the xfer.Link interface.
type Port struct {
	serial.Port
	name string
}

// Name returns the system name of the open port.
func (p *Port) Name() string {
	return p.name
}

// Open opens the named serial port at the given baud rate and clears any
// stale bytes from both buffers.
//
// An open failure is fatal to the whole run: without a link there is no
// protocol exchange to attempt.
func Open(name string, baud int) (*Port, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}

	// Stale bytes from a previous session would desynchronize the first
	// exchange.
	_ = p.ResetInputBuffer()
	_ = p.ResetOutputBuffer()

	time.Sleep(settleDelay)

	return &Port{Port: p, name: name}, nil
}

// Detect returns the most likely device port when none was specified.
//
// USB CDC/UART bridges are preferred over built-in ports; with no preferred
// candidate the first enumerated port is returned, and ErrNoPorts when the
// machine has none.
func Detect() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("serialport: enumerate ports: %w", err)
	}

	if len(ports) == 0 {
		return "", ErrNoPorts
	}

	if name := pickPreferred(ports); name != "" {
		return name, nil
	}

	return ports[0].Name, nil
}

// pickPreferred returns the first port that looks like the device's USB
// bridge: CP210x first, then any USB CDC port or ttyUSB/ttyACM name.
func pickPreferred(ports []*enumerator.PortDetails) string {
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, cp210xVID) {
			return p.Name
		}
	}

	for _, p := range ports {
		if p.IsUSB ||
			strings.Contains(p.Name, "ttyUSB") ||
			strings.Contains(p.Name, "ttyACM") {
			return p.Name
		}
	}

	return ""
}
