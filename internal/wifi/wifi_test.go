package wifi

import (
	"errors"
	"testing"
)

func TestChannelFrequency(t *testing.T) {
	// Channels 1-13 follow the 5 MHz grid starting at 2412 MHz
	for ch := 1; ch <= 13; ch++ {
		want := 2412e6 + 5e6*float64(ch-1)
		got, err := ChannelFrequency(ch)
		if err != nil {
			t.Fatalf("ChannelFrequency(%d) returned error: %v", ch, err)
		}
		if got != want {
			t.Errorf("ChannelFrequency(%d) = %.0f Hz, want %.0f Hz", ch, got, want)
		}
	}
}

func TestChannelFrequencyChannel14(t *testing.T) {
	got, err := ChannelFrequency(14)
	if err != nil {
		t.Fatalf("ChannelFrequency(14) returned error: %v", err)
	}
	if got != 2484e6 {
		t.Errorf("ChannelFrequency(14) = %.0f Hz, want 2484000000 Hz", got)
	}
}

func TestChannelFrequencyUnsupported(t *testing.T) {
	for _, ch := range []int{-1, 0, 15, 36, 100} {
		_, err := ChannelFrequency(ch)
		if err == nil {
			t.Errorf("ChannelFrequency(%d) succeeded, want error", ch)
			continue
		}
		if !errors.Is(err, ErrUnsupportedChannel) {
			t.Errorf("ChannelFrequency(%d) error = %v, want ErrUnsupportedChannel", ch, err)
		}
	}
}
