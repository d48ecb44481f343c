// Package gpio drives the relay output line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives a single digital output.
type Writer interface {
	// SetActive drives the output to its active (true) or idle (false) level.
	// Polarity is handled by the implementation: active means "relay energised".
	SetActive(active bool) error

	// Close drives the output idle and releases GPIO resources.
	Close() error
}

// Defaults for the HW-622 style relay board wired to a Raspberry Pi.
const (
	DefaultChip = "gpiochip0"
	DefaultLine = 4 // BCM numbering
)
