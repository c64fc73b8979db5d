package serialport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial/enumerator"
)

func TestPickPreferred(t *testing.T) {
	tests := []struct {
		name  string
		ports []*enumerator.PortDetails
		want  string
	}{
		{
			name: "cp210x wins over earlier usb port",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyACM3", IsUSB: true, VID: "2341"},
				{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10C4"},
			},
			want: "/dev/ttyUSB0",
		},
		{
			name: "cp210x vid match is case-insensitive",
			ports: []*enumerator.PortDetails{
				{Name: "COM5", IsUSB: true, VID: "10c4"},
			},
			want: "COM5",
		},
		{
			name: "any usb port beats built-in",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyACM0", IsUSB: true, VID: "303A"},
			},
			want: "/dev/ttyACM0",
		},
		{
			name: "ttyUSB name without usb metadata",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyUSB1"},
			},
			want: "/dev/ttyUSB1",
		},
		{
			name: "no preferred candidate",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyS1"},
			},
			want: "",
		},
		{
			name:  "empty list",
			ports: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickPreferred(tt.ports))
		})
	}
}
