//go:build !soapy

// Stub implementation compiled when SoapySDR support is not built in.
// The stub device accepts all configuration, paces reads against the
// configured sample rate and synthesizes a low-amplitude test tone, so
// the capture pipeline can be exercised without hardware.
package sdr

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	stubMTU       = 65536
	stubAmplitude = 0.25
)

// Enumerate returns a single synthetic device regardless of selector.
func Enumerate(args string) ([]DeviceInfo, error) {
	return []DeviceInfo{
		{Label: "Stub SDR (no hardware)", Driver: "stub"},
	}, nil
}

// Open returns a stub device for any selector string.
func Open(args string) (Device, error) {
	return &stubDevice{sampleRate: 1e6}, nil
}

type stubDevice struct {
	sampleRate float64
	bandwidth  float64
	frequency  float64
	gain       float64
	dcOffset   bool
}

func (d *stubDevice) SetSampleRate(rate float64) error {
	d.sampleRate = rate
	return nil
}

func (d *stubDevice) SetBandwidth(bw float64) error {
	d.bandwidth = bw
	return nil
}

func (d *stubDevice) SetFrequency(freq float64) error {
	d.frequency = freq
	return nil
}

func (d *stubDevice) SetGain(gain float64) error {
	d.gain = gain
	return nil
}

func (d *stubDevice) SetDCOffsetMode(automatic bool) error {
	d.dcOffset = automatic
	return nil
}

func (d *stubDevice) SetIQBalance(balanceI, balanceQ float64) error {
	return nil
}

func (d *stubDevice) SetupStream(format Format) (Stream, error) {
	return &stubStream{format: format, rate: d.sampleRate}, nil
}

func (d *stubDevice) Close() error {
	return nil
}

type stubStream struct {
	format Format
	rate   float64
	phase  float64
}

func (s *stubStream) MTU() int { return stubMTU }

func (s *stubStream) Activate() error { return nil }

func (s *stubStream) Read(buf []byte, numElems int, timeout time.Duration) (int, error) {
	if numElems > stubMTU {
		numElems = stubMTU
	}

	// Pace delivery to the configured sample rate so capture durations
	// behave like real hardware.
	wait := time.Duration(float64(numElems) / s.rate * float64(time.Second))
	if wait > timeout {
		time.Sleep(timeout)
		return 0, ErrTimeout
	}
	time.Sleep(wait)

	// Tone at 1% of the sample rate.
	step := 2 * math.Pi * 0.01
	for i := 0; i < numElems; i++ {
		iv := stubAmplitude * math.Cos(s.phase)
		qv := stubAmplitude * math.Sin(s.phase)
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
		switch s.format {
		case FormatCS16:
			binary.LittleEndian.PutUint16(buf[4*i:], uint16(int16(iv*32767)))
			binary.LittleEndian.PutUint16(buf[4*i+2:], uint16(int16(qv*32767)))
		default:
			binary.LittleEndian.PutUint32(buf[8*i:], math.Float32bits(float32(iv)))
			binary.LittleEndian.PutUint32(buf[8*i+4:], math.Float32bits(float32(qv)))
		}
	}
	return numElems, nil
}

func (s *stubStream) Deactivate() error { return nil }

func (s *stubStream) Close() error { return nil }
