package capture

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wifi-capture/internal/sdr"
)

// fakeClock lets tests drive the session's view of wall-clock time.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// readOutcome scripts one stream read: n samples delivered, or an error.
type readOutcome struct {
	n   int
	err error
}

type fakeStream struct {
	mtu      int
	elemSize int
	outcomes []readOutcome
	reads    int
	perRead  time.Duration
	clock    *fakeClock
	onRead   func(readIndex int)
	events   *[]string
}

func (f *fakeStream) MTU() int { return f.mtu }

func (f *fakeStream) Activate() error {
	*f.events = append(*f.events, "activate")
	return nil
}

func (f *fakeStream) Read(buf []byte, numElems int, timeout time.Duration) (int, error) {
	i := f.reads
	f.reads++
	if f.onRead != nil {
		f.onRead(i)
	}
	f.clock.advance(f.perRead)
	if i >= len(f.outcomes) {
		return 0, sdr.ErrTimeout
	}
	oc := f.outcomes[i]
	if oc.err != nil {
		return 0, oc.err
	}
	// Fill delivered bytes with a per-read marker so file contents can
	// be checked against the scripted reads.
	for j := 0; j < oc.n*f.elemSize; j++ {
		buf[j] = byte(i + 1)
	}
	return oc.n, nil
}

func (f *fakeStream) Deactivate() error {
	*f.events = append(*f.events, "deactivate")
	return nil
}

func (f *fakeStream) Close() error {
	*f.events = append(*f.events, "stream close")
	return nil
}

type fakeDevice struct {
	stream   *fakeStream
	setupErr error
	rateErr  error
	gainErr  error
	dcErr    error
	iqErr    error
	events   *[]string
}

func (d *fakeDevice) SetSampleRate(rate float64) error     { return d.rateErr }
func (d *fakeDevice) SetBandwidth(bw float64) error        { return nil }
func (d *fakeDevice) SetFrequency(freq float64) error      { return nil }
func (d *fakeDevice) SetGain(gain float64) error           { return d.gainErr }
func (d *fakeDevice) SetDCOffsetMode(automatic bool) error { return d.dcErr }
func (d *fakeDevice) SetIQBalance(i, q float64) error      { return d.iqErr }

func (d *fakeDevice) SetupStream(format sdr.Format) (sdr.Stream, error) {
	if d.setupErr != nil {
		return nil, d.setupErr
	}
	return d.stream, nil
}

func (d *fakeDevice) Close() error {
	*d.events = append(*d.events, "device close")
	return nil
}

func newTestSession(t *testing.T, outcomes []readOutcome, cfg Config, perRead time.Duration) (*Session, *fakeDevice, *fakeStream, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	events := &[]string{}
	st := &fakeStream{
		mtu:      1024,
		elemSize: cfg.Format.ElementSize(),
		outcomes: outcomes,
		perRead:  perRead,
		clock:    clock,
		events:   events,
	}
	dev := &fakeDevice{stream: st, events: events}
	sess := New(dev, cfg, zerolog.Nop())
	sess.now = clock.now
	return sess, dev, st, clock
}

func teardownEvents(events []string) []string {
	// Everything after "activate" is teardown.
	for i, e := range events {
		if e == "activate" {
			return events[i+1:]
		}
	}
	return events
}

func checkFullTeardown(t *testing.T, events []string) {
	t.Helper()
	want := []string{"deactivate", "stream close", "device close"}
	got := teardownEvents(events)
	if len(got) != len(want) {
		t.Fatalf("teardown events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("teardown events = %v, want %v", got, want)
		}
	}
}

func TestRunWritesAllSuccessfulReads(t *testing.T) {
	outcomes := []readOutcome{{n: 512}, {n: 512}, {n: 512}, {n: 512}}
	cfg := Config{
		Frequency:  2437e6,
		SampleRate: 20e6,
		Bandwidth:  25e6,
		Format:     sdr.FormatCF32,
		Duration:   100 * time.Millisecond,
	}
	sess, dev, st, _ := newTestSession(t, outcomes, cfg, 25*time.Millisecond)

	binPath := filepath.Join(t.TempDir(), "out.cf32")
	res, err := sess.Run(binPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Samples != 4*512 {
		t.Errorf("Samples = %d, want %d", res.Samples, 4*512)
	}
	if st.reads != 4 {
		t.Errorf("stream reads = %d, want 4", st.reads)
	}

	info, err := os.Stat(binPath)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	wantBytes := int64(4 * 512 * cfg.Format.ElementSize())
	if info.Size() != wantBytes {
		t.Errorf("output file size = %d, want %d", info.Size(), wantBytes)
	}
	checkFullTeardown(t, *dev.events)
}

func TestOverflowDiscardedButNotFatal(t *testing.T) {
	outcomes := []readOutcome{
		{n: 512},
		{err: sdr.ErrOverflow},
		{n: 512},
	}
	cfg := Config{Format: sdr.FormatCF32, Duration: 90 * time.Millisecond}
	sess, _, _, _ := newTestSession(t, outcomes, cfg, 30*time.Millisecond)

	binPath := filepath.Join(t.TempDir(), "out.cf32")
	res, err := sess.Run(binPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Samples != 1024 {
		t.Errorf("Samples = %d, want 1024 (overflow read must not count)", res.Samples)
	}
	info, _ := os.Stat(binPath)
	if info.Size() != int64(1024*8) {
		t.Errorf("file size = %d, want %d (no overflow bytes)", info.Size(), 1024*8)
	}
}

func TestTimeoutKeepsLooping(t *testing.T) {
	outcomes := []readOutcome{
		{err: sdr.ErrTimeout},
		{err: sdr.ErrTimeout},
		{n: 256},
	}
	cfg := Config{Format: sdr.FormatCF32, Duration: 90 * time.Millisecond}
	sess, _, st, _ := newTestSession(t, outcomes, cfg, 30*time.Millisecond)

	res, err := sess.Run(filepath.Join(t.TempDir(), "out.cf32"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.reads != 3 {
		t.Errorf("stream reads = %d, want 3", st.reads)
	}
	if res.Samples != 256 {
		t.Errorf("Samples = %d, want 256", res.Samples)
	}
}

func TestFatalReadEndsCaptureEarly(t *testing.T) {
	outcomes := []readOutcome{
		{n: 512},
		{n: 512},
		{err: errors.New("stream corrupt")},
		{n: 512}, // must never be reached
	}
	cfg := Config{Format: sdr.FormatCF32, Duration: time.Hour}
	sess, dev, st, _ := newTestSession(t, outcomes, cfg, time.Millisecond)

	binPath := filepath.Join(t.TempDir(), "out.cf32")
	res, err := sess.Run(binPath)
	if err != nil {
		t.Fatalf("Run must contain stream errors, got: %v", err)
	}
	if res.Samples != 1024 {
		t.Errorf("Samples = %d, want 1024", res.Samples)
	}
	if st.reads != 3 {
		t.Errorf("stream reads = %d, want 3 (loop must stop at fatal read)", st.reads)
	}

	// The file must hold exactly the two successful reads, intact.
	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	elem := cfg.Format.ElementSize()
	if len(data) != 1024*elem {
		t.Fatalf("file size = %d, want %d", len(data), 1024*elem)
	}
	first := data[:512*elem]
	second := data[512*elem:]
	if !bytes.Equal(first, bytes.Repeat([]byte{1}, len(first))) {
		t.Error("first read's bytes corrupted in output file")
	}
	if !bytes.Equal(second, bytes.Repeat([]byte{2}, len(second))) {
		t.Error("second read's bytes corrupted in output file")
	}
	checkFullTeardown(t, *dev.events)
}

func TestStopCancelsLoop(t *testing.T) {
	outcomes := make([]readOutcome, 100)
	for i := range outcomes {
		outcomes[i] = readOutcome{n: 64}
	}
	cfg := Config{Format: sdr.FormatCF32, Duration: time.Hour}
	sess, dev, st, _ := newTestSession(t, outcomes, cfg, time.Millisecond)
	st.onRead = func(i int) {
		if i == 3 {
			sess.Stop()
		}
	}

	res, err := sess.Run(filepath.Join(t.TempDir(), "out.cf32"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// The read that observed Stop still completes; the loop exits before
	// the next one.
	if st.reads != 4 {
		t.Errorf("stream reads = %d, want 4", st.reads)
	}
	if res.Samples != 4*64 {
		t.Errorf("Samples = %d, want %d", res.Samples, 4*64)
	}
	checkFullTeardown(t, *dev.events)
}

func TestZeroDurationProducesEmptyCapture(t *testing.T) {
	cfg := Config{Format: sdr.FormatCS16, Duration: 0}
	sess, dev, st, _ := newTestSession(t, nil, cfg, time.Millisecond)

	binPath := filepath.Join(t.TempDir(), "out.cs16")
	res, err := sess.Run(binPath)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.reads != 0 {
		t.Errorf("stream reads = %d, want 0", st.reads)
	}
	if res.Samples != 0 {
		t.Errorf("Samples = %d, want 0", res.Samples)
	}
	info, err := os.Stat(binPath)
	if err != nil {
		t.Fatalf("empty capture file must still exist: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("file size = %d, want 0", info.Size())
	}
	checkFullTeardown(t, *dev.events)
}

func TestComplexInt16ElementSize(t *testing.T) {
	outcomes := []readOutcome{{n: 100}}
	cfg := Config{Format: sdr.FormatCS16, Duration: 10 * time.Millisecond}
	sess, _, _, _ := newTestSession(t, outcomes, cfg, 10*time.Millisecond)

	binPath := filepath.Join(t.TempDir(), "out.cs16")
	if _, err := sess.Run(binPath); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	info, _ := os.Stat(binPath)
	if info.Size() != 400 {
		t.Errorf("file size = %d, want 400 (4 bytes per ComplexInt16 sample)", info.Size())
	}
}

func TestOutputOpenFailureStillTearsDownStream(t *testing.T) {
	cfg := Config{Format: sdr.FormatCF32, Duration: time.Second}
	sess, dev, _, _ := newTestSession(t, nil, cfg, time.Millisecond)

	binPath := filepath.Join(t.TempDir(), "missing", "out.cf32")
	if _, err := sess.Run(binPath); err == nil {
		t.Fatal("Run succeeded with unopenable output path, want error")
	}
	checkFullTeardown(t, *dev.events)
}

func TestStreamSetupFailureReleasesDevice(t *testing.T) {
	cfg := Config{Format: sdr.FormatCF32, Duration: time.Second}
	sess, dev, _, _ := newTestSession(t, nil, cfg, time.Millisecond)
	dev.setupErr = errors.New("no stream")

	if _, err := sess.Run(filepath.Join(t.TempDir(), "out.cf32")); err == nil {
		t.Fatal("Run succeeded despite stream setup failure, want error")
	}
	got := *dev.events
	if len(got) != 1 || got[0] != "device close" {
		t.Errorf("events = %v, want only device close", got)
	}
}

func TestConfigureFailureReleasesDevice(t *testing.T) {
	cfg := Config{Format: sdr.FormatCF32, Duration: time.Second}
	sess, dev, _, _ := newTestSession(t, nil, cfg, time.Millisecond)
	dev.rateErr = errors.New("rate rejected")

	if _, err := sess.Run(filepath.Join(t.TempDir(), "out.cf32")); err == nil {
		t.Fatal("Run succeeded despite configure failure, want error")
	}
	got := *dev.events
	if len(got) != 1 || got[0] != "device close" {
		t.Errorf("events = %v, want only device close", got)
	}
}

func TestBestEffortCorrectionsDoNotAbort(t *testing.T) {
	outcomes := []readOutcome{{n: 8}}
	cfg := Config{Format: sdr.FormatCF32, Duration: 10 * time.Millisecond}
	sess, dev, _, _ := newTestSession(t, outcomes, cfg, 10*time.Millisecond)
	dev.gainErr = errors.New("no overall gain")
	dev.dcErr = errors.New("no DC correction")
	dev.iqErr = errors.New("no IQ balance")

	res, err := sess.Run(filepath.Join(t.TempDir(), "out.cf32"))
	if err != nil {
		t.Fatalf("Run failed on best-effort corrections: %v", err)
	}
	if res.Samples != 8 {
		t.Errorf("Samples = %d, want 8", res.Samples)
	}
}
