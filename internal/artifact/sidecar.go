package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SidecarExt is the extension of the metadata sidecar file.
const SidecarExt = ".json"

// SidecarSchema identifies the sidecar record layout.
const SidecarSchema = "soapywifi.capture.v1"

// Sidecar is the metadata record written next to the binary sample file.
type Sidecar struct {
	Schema       string `json:"schema"`
	Radio        string `json:"radio"`
	Driver       string `json:"driver"`
	CenterHz     Hertz  `json:"center_hz"`
	SampleRate   Hertz  `json:"sample_rate"`
	Samples      uint64 `json:"samples"`
	Format       string `json:"format"`
	TimestampUTC string `json:"timestamp_utc"`
}

// Hertz serializes a frequency with fixed three-decimal precision.
type Hertz float64

func (h Hertz) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(h), 'f', 3, 64), nil
}

func (h *Hertz) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*h = Hertz(f)
	return nil
}

// WriteSidecar writes the record to path atomically: the JSON is written
// to a temp file in the same directory and renamed into place, so readers
// never observe a partial sidecar.
func WriteSidecar(path string, sc Sidecar) error {
	sc.Schema = SidecarSchema

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sidecar-*")
	if err != nil {
		return fmt.Errorf("failed to create sidecar temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close sidecar temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize sidecar: %w", err)
	}
	return nil
}

// ReadSidecar loads a sidecar record, verifying the schema identifier.
func ReadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar: %w", err)
	}
	if sc.Schema != SidecarSchema {
		return nil, fmt.Errorf("unexpected sidecar schema %q", sc.Schema)
	}
	return &sc, nil
}
