//go:build soapy

// SoapySDR-backed implementation, compiled with the "soapy" build tag.
// Requires the SoapySDR C library and a driver module for the target
// hardware (e.g. LimeSuite for LimeSDR).
package sdr

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pothosware/go-soapy-sdr/pkg/device"
)

const rxChannel = 0

// Enumerate lists devices matching a Soapy device-args selector such as
// "driver=lime". An empty selector matches every device.
func Enumerate(args string) ([]DeviceInfo, error) {
	results := device.EnumerateStrArgs(args)
	infos := make([]DeviceInfo, 0, len(results))
	for _, kv := range results {
		infos = append(infos, DeviceInfo{
			Label:  kv["label"],
			Driver: kv["driver"],
		})
	}
	return infos, nil
}

// Open constructs the device selected by the given device-args string.
func Open(args string) (Device, error) {
	dev, err := device.MakeStrArgs(args)
	if err != nil {
		return nil, fmt.Errorf("device make failed for %q: %w", args, err)
	}
	return &soapyDevice{dev: dev}, nil
}

type soapyDevice struct {
	dev *device.SDRDevice
}

func (d *soapyDevice) SetSampleRate(rate float64) error {
	if err := d.dev.SetSampleRate(device.DirectionRX, rxChannel, rate); err != nil {
		return fmt.Errorf("set sample rate %.0f: %w", rate, err)
	}
	return nil
}

func (d *soapyDevice) SetBandwidth(bw float64) error {
	if err := d.dev.SetBandwidth(device.DirectionRX, rxChannel, bw); err != nil {
		return fmt.Errorf("set bandwidth %.0f: %w", bw, err)
	}
	return nil
}

func (d *soapyDevice) SetFrequency(freq float64) error {
	if err := d.dev.SetFrequency(device.DirectionRX, rxChannel, freq, nil); err != nil {
		return fmt.Errorf("set frequency %.0f: %w", freq, err)
	}
	return nil
}

func (d *soapyDevice) SetGain(gain float64) error {
	return d.dev.SetGain(device.DirectionRX, rxChannel, gain)
}

func (d *soapyDevice) SetDCOffsetMode(automatic bool) error {
	return d.dev.SetDCOffsetMode(device.DirectionRX, rxChannel, automatic)
}

func (d *soapyDevice) SetIQBalance(balanceI, balanceQ float64) error {
	return d.dev.SetIQBalance(device.DirectionRX, rxChannel, balanceI, balanceQ)
}

func (d *soapyDevice) SetupStream(format Format) (Stream, error) {
	switch format {
	case FormatCS16:
		st, err := d.dev.SetupSDRStreamCS16(device.DirectionRX, []uint{rxChannel}, nil)
		if err != nil {
			return nil, fmt.Errorf("stream setup (%s) failed: %w", format, err)
		}
		mtu := int(st.GetMTU())
		return &soapyStream{
			cs16:   st,
			mtu:    mtu,
			bufS16: [][]int16{make([]int16, 2*mtu)},
		}, nil
	default:
		st, err := d.dev.SetupSDRStreamCF32(device.DirectionRX, []uint{rxChannel}, nil)
		if err != nil {
			return nil, fmt.Errorf("stream setup (%s) failed: %w", format, err)
		}
		mtu := int(st.GetMTU())
		return &soapyStream{
			cf32:   st,
			mtu:    mtu,
			bufF32: [][]float32{make([]float32, 2*mtu)},
		}, nil
	}
}

func (d *soapyDevice) Close() error {
	return d.dev.Unmake()
}

// soapyStream wraps exactly one of the typed Soapy stream handles. The
// typed read buffers are allocated once at MTU size; Read copies delivered
// samples into the caller's byte buffer in little-endian element order.
type soapyStream struct {
	cf32   *device.SDRStreamCF32
	cs16   *device.SDRStreamCS16
	mtu    int
	bufF32 [][]float32
	bufS16 [][]int16
	flags  [1]int
}

func (s *soapyStream) MTU() int { return s.mtu }

func (s *soapyStream) Activate() error {
	if s.cs16 != nil {
		return s.cs16.Activate(0, 0, 0)
	}
	return s.cf32.Activate(0, 0, 0)
}

func (s *soapyStream) Read(buf []byte, numElems int, timeout time.Duration) (int, error) {
	if numElems > s.mtu {
		numElems = s.mtu
	}
	timeoutUs := uint(timeout / time.Microsecond)

	if s.cs16 != nil {
		_, n, err := s.cs16.Read(s.bufS16, uint(numElems), s.flags[:], timeoutUs)
		if err != nil {
			return 0, classifyReadError(err)
		}
		src := s.bufS16[0]
		for i := 0; i < 2*int(n); i++ {
			binary.LittleEndian.PutUint16(buf[2*i:], uint16(src[i]))
		}
		return int(n), nil
	}

	_, n, err := s.cf32.Read(s.bufF32, uint(numElems), s.flags[:], timeoutUs)
	if err != nil {
		return 0, classifyReadError(err)
	}
	src := s.bufF32[0]
	for i := 0; i < 2*int(n); i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(src[i]))
	}
	return int(n), nil
}

func (s *soapyStream) Deactivate() error {
	if s.cs16 != nil {
		return s.cs16.Deactivate(0, 0)
	}
	return s.cf32.Deactivate(0, 0)
}

func (s *soapyStream) Close() error {
	if s.cs16 != nil {
		return s.cs16.Close()
	}
	return s.cf32.Close()
}

// classifyReadError maps the binding's error strings (produced from
// SoapySDR_errToStr) onto the package sentinels.
func classifyReadError(err error) error {
	msg := strings.ToUpper(err.Error())
	switch {
	case strings.Contains(msg, "TIMEOUT"):
		return ErrTimeout
	case strings.Contains(msg, "OVERFLOW"):
		return ErrOverflow
	default:
		return err
	}
}
