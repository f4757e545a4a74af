// Package wifi maps 2.4 GHz Wi-Fi channel numbers to center frequencies.
package wifi

import (
	"errors"
	"fmt"
)

// ErrUnsupportedChannel is returned for channel numbers outside 1-14.
var ErrUnsupportedChannel = errors.New("unsupported 2.4 GHz channel")

// ChannelFrequency returns the center frequency in Hz for a 2.4 GHz
// Wi-Fi channel. Channels 1-13 are spaced 5 MHz apart starting at
// 2412 MHz; channel 14 sits at a fixed 2484 MHz. Regional restrictions
// (channel 14 is Japan-only) are not enforced here.
func ChannelFrequency(channel int) (float64, error) {
	switch {
	case channel >= 1 && channel <= 13:
		return (2412.0 + 5.0*float64(channel-1)) * 1e6, nil
	case channel == 14:
		return 2484e6, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedChannel, channel)
	}
}
