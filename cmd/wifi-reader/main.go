// wifi-reader - Utility to display wifi-capture artifacts.
// This program reads a capture's JSON sidecar and the paired binary
// sample file and prints the capture parameters, with optional basic
// signal statistics. It does no demodulation or protocol analysis.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wifi-capture/internal/artifact"
	"wifi-capture/internal/sdr"
	"wifi-capture/internal/version"
)

var (
	showStats   bool
	statSamples int
	showVersion bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wifi-reader [file.cf32|file.cs16]",
	Short: "Display contents of wifi-capture sample files",
	Long: `wifi-reader displays the metadata sidecar of a wifi-capture sample file
and verifies the binary file's size against the recorded sample count.

  --stats   compute magnitude statistics over a sample prefix`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("wifi-reader"))
			return
		}
		if len(args) == 0 {
			fmt.Fprintf(os.Stderr, "Error: filename required\n")
			cmd.Usage()
			os.Exit(1)
		}
		if err := displayCapture(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().BoolVarP(&showStats, "stats", "s", false, "show magnitude statistics")
	rootCmd.Flags().IntVar(&statSamples, "stat-samples", 65536, "number of samples used for statistics")
}

// sampleFormat infers the encoding from the binary file extension.
func sampleFormat(path string) (sdr.Format, error) {
	switch {
	case strings.HasSuffix(path, ".cf32"):
		return sdr.FormatCF32, nil
	case strings.HasSuffix(path, ".cs16"):
		return sdr.FormatCS16, nil
	default:
		return "", fmt.Errorf("unrecognized sample file extension: %s", path)
	}
}

// displayCapture prints the sidecar metadata and checks the binary file
func displayCapture(path string) error {
	format, err := sampleFormat(path)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(path, format.Ext())

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("sample file: %w", err)
	}

	sc, err := artifact.ReadSidecar(base + artifact.SidecarExt)
	if err != nil {
		return err
	}

	fmt.Printf("Capture: %s\n", path)
	fmt.Printf("  Schema:       %s\n", sc.Schema)
	fmt.Printf("  Radio:        %s\n", sc.Radio)
	fmt.Printf("  Driver:       %s\n", sc.Driver)
	fmt.Printf("  Center:       %.3f MHz\n", float64(sc.CenterHz)/1e6)
	fmt.Printf("  Sample rate:  %.3f Msps\n", float64(sc.SampleRate)/1e6)
	fmt.Printf("  Format:       %s\n", sc.Format)
	fmt.Printf("  Samples:      %d\n", sc.Samples)
	fmt.Printf("  Timestamp:    %s\n", sc.TimestampUTC)
	if sc.SampleRate > 0 {
		fmt.Printf("  Duration:     %.3f s\n", float64(sc.Samples)/float64(sc.SampleRate))
	}

	wantBytes := int64(sc.Samples) * int64(format.ElementSize())
	if info.Size() == wantBytes {
		fmt.Printf("  File size:    %d bytes (matches sample count)\n", info.Size())
	} else {
		fmt.Printf("  File size:    %d bytes (WARNING: sidecar implies %d)\n", info.Size(), wantBytes)
	}

	if showStats {
		return printStats(path, format)
	}
	return nil
}

// printStats reads a prefix of the capture and reports magnitude statistics
func printStats(path string, format sdr.Format) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sample file: %w", err)
	}
	defer f.Close()

	elem := format.ElementSize()
	buf := make([]byte, statSamples*elem)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return fmt.Errorf("failed to read samples: %w", err)
	}
	count := n / elem
	if count == 0 {
		fmt.Println("  No samples to analyze")
		return nil
	}

	var sum, peak float64
	for i := 0; i < count; i++ {
		var iv, qv float64
		switch format {
		case sdr.FormatCS16:
			iv = float64(int16(binary.LittleEndian.Uint16(buf[i*elem:]))) / 32768.0
			qv = float64(int16(binary.LittleEndian.Uint16(buf[i*elem+2:]))) / 32768.0
		default:
			iv = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*elem:])))
			qv = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*elem+4:])))
		}
		mag := math.Sqrt(iv*iv + qv*qv)
		sum += mag
		if mag > peak {
			peak = mag
		}
	}

	mean := sum / float64(count)
	fmt.Printf("  Stats over %d samples:\n", count)
	fmt.Printf("    Mean magnitude: %.6f\n", mean)
	fmt.Printf("    Peak magnitude: %.6f\n", peak)
	if mean > 0 {
		fmt.Printf("    Mean power:     %.2f dBFS\n", 20*math.Log10(mean))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
