// Package sdr provides the receive-side SDR hardware interface used by the
// capture session. The real implementation talks to SoapySDR and is only
// compiled with the "soapy" build tag; without it a stub device that
// synthesizes samples is used instead.
package sdr

import (
	"errors"
	"fmt"
	"time"
)

// Format identifies the wire encoding of interleaved I/Q samples.
type Format string

const (
	// FormatCF32 is interleaved complex float32 (8 bytes per sample).
	FormatCF32 Format = "ComplexFloat32"
	// FormatCS16 is interleaved complex int16 (4 bytes per sample).
	FormatCS16 Format = "ComplexInt16"
)

// ParseFormat parses a sample format name as accepted on the command line.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCF32, FormatCS16:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown sample format %q (must be %s or %s)", s, FormatCF32, FormatCS16)
	}
}

// ElementSize returns the size in bytes of one complex sample.
func (f Format) ElementSize() int {
	if f == FormatCS16 {
		return 4
	}
	return 8
}

// Ext returns the binary file extension conventionally used for the format.
func (f Format) Ext() string {
	if f == FormatCS16 {
		return ".cs16"
	}
	return ".cf32"
}

// Transient read conditions. Both leave the stream usable; the caller
// decides whether to keep reading.
var (
	// ErrTimeout means no samples arrived within the read's wait bound.
	ErrTimeout = errors.New("sdr: read timeout")
	// ErrOverflow means the driver dropped samples because the consumer
	// fell behind; the contents of the read buffer are invalid.
	ErrOverflow = errors.New("sdr: stream overflow")
)

// DeviceInfo describes one enumerated device candidate.
type DeviceInfo struct {
	Label  string // human-readable device label
	Driver string // Soapy driver identifier (e.g. "lime")
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s (driver=%s)", d.Label, d.Driver)
}

// Device is an exclusively-owned radio receiver. All setters target the
// first RX channel. SetGain, SetDCOffsetMode and SetIQBalance may fail on
// hardware that lacks the capability; callers treat those as best-effort.
type Device interface {
	SetSampleRate(rate float64) error
	SetBandwidth(bw float64) error
	SetFrequency(freq float64) error
	SetGain(gain float64) error
	SetDCOffsetMode(automatic bool) error
	SetIQBalance(balanceI, balanceQ float64) error

	// SetupStream creates an inactive RX stream in the given format.
	// At most one stream may exist per device.
	SetupStream(format Format) (Stream, error)

	// Close releases the device. The device must not be used afterwards.
	Close() error
}

// Stream is a single active receive stream. Read fills buf with up to
// numElems interleaved samples in the stream's format and returns the
// number of samples delivered, ErrTimeout, ErrOverflow, or a fatal error.
type Stream interface {
	MTU() int
	Activate() error
	Read(buf []byte, numElems int, timeout time.Duration) (int, error)
	Deactivate() error
	Close() error
}
