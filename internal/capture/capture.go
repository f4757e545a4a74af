// Package capture drives a single receive session: configure the device,
// stream samples to the binary output file until the duration elapses or
// the operator cancels, then tear everything down.
package capture

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"wifi-capture/internal/sdr"
)

// DefaultReadTimeout bounds each blocking stream read. It is also the
// worst-case latency for observing a cancellation request.
const DefaultReadTimeout = 200 * time.Millisecond

// Config holds the resolved parameters for one capture session.
type Config struct {
	Frequency   float64       // center frequency in Hz
	SampleRate  float64       // sample rate in Hz
	Bandwidth   float64       // RF filter bandwidth in Hz
	Gain        float64       // overall gain, device-interpreted
	Format      sdr.Format    // sample encoding
	Duration    time.Duration // capture duration
	ReadTimeout time.Duration // per-read wait bound, DefaultReadTimeout if zero
}

// Result is the outcome of the streaming loop, finalized once at loop exit.
type Result struct {
	Samples uint64        // complex samples written to the binary file
	Elapsed time.Duration // wall-clock time since stream activation
}

// Session owns the device handle for its lifetime. Run drives the
// configure -> stream -> drain -> close progression and releases the
// device on every exit path.
type Session struct {
	dev     sdr.Device
	cfg     Config
	log     zerolog.Logger
	stopped atomic.Bool

	now func() time.Time
}

// New creates a session owning dev. The caller must not use dev afterwards.
func New(dev sdr.Device, cfg Config, log zerolog.Logger) *Session {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &Session{dev: dev, cfg: cfg, log: log, now: time.Now}
}

// Stop requests cooperative termination. Safe to call from a signal
// handling goroutine; the streaming loop observes the flag within one
// read timeout.
func (s *Session) Stop() {
	s.stopped.Store(true)
}

// Run executes the session, writing raw interleaved I/Q samples to
// binPath. Setup failures (configuration, stream setup, output file open)
// are returned as errors. Failures inside the streaming loop are contained:
// the loop ends early, teardown still runs, and the partial capture is
// reported in Result with a nil error.
func (s *Session) Run(binPath string) (Result, error) {
	var res Result
	var st sdr.Stream
	var out *os.File

	// Single finalization path for all branches below: deactivate and
	// close the stream, release the device, close the output file.
	defer func() {
		if st != nil {
			if err := st.Deactivate(); err != nil {
				s.log.Warn().Err(err).Msg("stream deactivate failed")
			}
			if err := st.Close(); err != nil {
				s.log.Warn().Err(err).Msg("stream close failed")
			}
		}
		if err := s.dev.Close(); err != nil {
			s.log.Warn().Err(err).Msg("device close failed")
		}
		if out != nil {
			if err := out.Close(); err != nil {
				s.log.Warn().Err(err).Msg("output file close failed")
			}
		}
	}()

	if err := s.configure(); err != nil {
		return res, err
	}

	stream, err := s.dev.SetupStream(s.cfg.Format)
	if err != nil {
		return res, fmt.Errorf("stream setup failed: %w", err)
	}
	st = stream

	// One buffer sized to the hardware transfer unit, reused for every read.
	mtu := st.MTU()
	elemSize := s.cfg.Format.ElementSize()
	buf := make([]byte, mtu*elemSize)

	if err := st.Activate(); err != nil {
		return res, fmt.Errorf("stream activate failed: %w", err)
	}
	start := s.now()

	out, err = os.Create(binPath)
	if err != nil {
		return res, fmt.Errorf("failed to open output file: %w", err)
	}

	s.log.Info().
		Float64("freq_hz", s.cfg.Frequency).
		Float64("rate_sps", s.cfg.SampleRate).
		Int("mtu", mtu).
		Str("format", string(s.cfg.Format)).
		Dur("duration", s.cfg.Duration).
		Msg("stream active, capturing")

loop:
	for !s.stopped.Load() {
		if s.now().Sub(start) >= s.cfg.Duration {
			break
		}

		n, rerr := st.Read(buf, mtu, s.cfg.ReadTimeout)
		switch {
		case errors.Is(rerr, sdr.ErrTimeout):
			continue
		case errors.Is(rerr, sdr.ErrOverflow):
			// The driver dropped samples; this read's data is invalid.
			// The capture continues, leaving an unmarked gap in the file.
			s.log.Warn().Msg("stream overflow, samples dropped")
			continue
		case rerr != nil:
			s.log.Error().Err(rerr).Msg("stream read failed, ending capture early")
			break loop
		}

		nb := n * elemSize
		wrote, werr := out.Write(buf[:nb])
		if werr != nil {
			s.log.Error().Err(werr).Msg("sample write failed, ending capture early")
			break
		}
		if wrote != nb {
			s.log.Error().Int("want", nb).Int("wrote", wrote).Msg("short sample write, ending capture early")
			break
		}
		res.Samples += uint64(n)
	}

	res.Elapsed = s.now().Sub(start)
	s.log.Info().
		Uint64("samples", res.Samples).
		Dur("elapsed", res.Elapsed).
		Msg("capture finished")
	return res, nil
}

// configure applies the session parameters to the device. Sample rate,
// bandwidth and frequency must succeed; the hardware corrections and
// overall gain are attempted but a device lacking the capability does not
// abort the session.
func (s *Session) configure() error {
	if err := s.dev.SetSampleRate(s.cfg.SampleRate); err != nil {
		return fmt.Errorf("failed to set sample rate: %w", err)
	}
	if err := s.dev.SetBandwidth(s.cfg.Bandwidth); err != nil {
		return fmt.Errorf("failed to set bandwidth: %w", err)
	}
	if err := s.dev.SetFrequency(s.cfg.Frequency); err != nil {
		return fmt.Errorf("failed to set frequency: %w", err)
	}

	if err := s.dev.SetDCOffsetMode(true); err != nil {
		s.log.Debug().Err(err).Msg("DC offset correction not applied")
	}
	if err := s.dev.SetIQBalance(0, 0); err != nil {
		s.log.Debug().Err(err).Msg("IQ balance correction not applied")
	}
	if err := s.dev.SetGain(s.cfg.Gain); err != nil {
		s.log.Debug().Err(err).Msg("overall gain not applied")
	}
	return nil
}
