// Package artifact derives capture output paths and writes the metadata
// sidecar that pairs with each binary sample file.
package artifact

import (
	"fmt"
	"path/filepath"
	"time"
)

// TimestampFormat is the compact UTC timestamp embedded in artifact names
// and recorded in the sidecar.
const TimestampFormat = "20060102T150405Z"

// Timestamp renders t as a compact UTC timestamp.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// BasePath builds the shared base path for a capture's artifacts:
// <dir>/wifi2g_ch<chan>_<freq>Hz_<rate>sps_<timestamp>. Frequency and
// sample rate are embedded as truncated integers. The directory is not
// created or checked here; a missing directory surfaces as a file-open
// error when the first artifact is created.
func BasePath(dir string, channel int, freq, rate float64, ts time.Time) string {
	name := fmt.Sprintf("wifi2g_ch%d_%dHz_%dsps_%s",
		channel, uint64(freq), uint64(rate), Timestamp(ts))
	return filepath.Join(dir, name)
}
