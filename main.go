// wifi-capture - 2.4 GHz Wi-Fi IQ capture tool for SoapySDR radios.
// This program captures a fixed-duration window of raw I/Q samples on a
// selected Wi-Fi channel and writes them to disk together with a JSON
// metadata sidecar describing the capture.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wifi-capture/internal/artifact"
	"wifi-capture/internal/capture"
	"wifi-capture/internal/config"
	"wifi-capture/internal/sdr"
	"wifi-capture/internal/version"
	"wifi-capture/internal/wifi"
)

// Command line flag variables
var (
	cfgFile     string  // Configuration file path
	deviceArgs  string  // Soapy device selector string
	channel     int     // 2.4 GHz Wi-Fi channel number
	sampleRate  float64 // Sample rate in Hz
	bandwidth   float64 // RF filter bandwidth in Hz
	gain        float64 // Overall gain in device units
	outputDir   string  // Output directory for capture artifacts
	seconds     float64 // Capture duration in seconds
	format      string  // Sample encoding name
	verbose     bool    // Enable verbose logging
	showVersion bool    // Print version information and exit
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wifi-capture",
	Short: "Capture raw I/Q samples from a 2.4 GHz Wi-Fi channel",
	Long: `wifi-capture tunes a SoapySDR receiver to a 2.4 GHz Wi-Fi channel and
streams raw interleaved I/Q samples to a binary file for a fixed duration.
A JSON sidecar describing the capture is written next to the sample file.

Examples:
  wifi-capture --args driver=lime --chan 6 --rate 20e6 --bw 25e6 --gain 45
  wifi-capture --args driver=remote,remote:driver=lime --chan 1 --secs 30`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("wifi-capture"))
			return
		}
		if err := runCapture(); err != nil {
			log.Error().Err(err).Msg("capture failed")
			os.Exit(1)
		}
	},
}

// init initializes the CLI flags and configuration
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().StringVar(&deviceArgs, "args", "", `Soapy device selector, e.g. "driver=lime"`)
	rootCmd.Flags().IntVar(&channel, "chan", 6, "2.4 GHz Wi-Fi channel (1-14)")
	rootCmd.Flags().Float64Var(&sampleRate, "rate", 20e6, "sample rate (Hz)")
	rootCmd.Flags().Float64Var(&bandwidth, "bw", 25e6, "RF bandwidth (Hz)")
	rootCmd.Flags().Float64Var(&gain, "gain", 40.0, "overall gain (device units)")
	rootCmd.Flags().StringVar(&outputDir, "out", "./captures", "output directory")
	rootCmd.Flags().Float64Var(&seconds, "secs", 10.0, "capture duration (seconds)")
	rootCmd.Flags().StringVar(&format, "fmt", "ComplexFloat32", "sample format (ComplexFloat32|ComplexInt16)")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("sdr.device_args", rootCmd.Flags().Lookup("args"))
	viper.BindPFlag("sdr.channel", rootCmd.Flags().Lookup("chan"))
	viper.BindPFlag("sdr.sample_rate", rootCmd.Flags().Lookup("rate"))
	viper.BindPFlag("sdr.bandwidth", rootCmd.Flags().Lookup("bw"))
	viper.BindPFlag("sdr.gain", rootCmd.Flags().Lookup("gain"))
	viper.BindPFlag("sdr.format", rootCmd.Flags().Lookup("fmt"))
	viper.BindPFlag("capture.output_dir", rootCmd.Flags().Lookup("out"))
	viper.BindPFlag("capture.seconds", rootCmd.Flags().Lookup("secs"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("wifi-capture")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runCapture is the main application logic
func runCapture() error {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	level := zerolog.InfoLevel
	if cfg.Logging.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsed
		}
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	sampleFormat, err := sdr.ParseFormat(cfg.SDR.Format)
	if err != nil {
		return err
	}

	freq, err := wifi.ChannelFrequency(cfg.SDR.Channel)
	if err != nil {
		return err
	}

	devices, err := sdr.Enumerate(cfg.SDR.DeviceArgs)
	if err != nil {
		return fmt.Errorf("device enumeration failed: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no SDR devices found for selector %q", cfg.SDR.DeviceArgs)
	}
	selected := devices[0]
	log.Info().
		Int("matches", len(devices)).
		Str("device", selected.String()).
		Msg("using first matching device")

	dev, err := sdr.Open(cfg.SDR.DeviceArgs)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	// Timestamp captured once; shared by the artifact names and the sidecar.
	started := time.Now()
	base := artifact.BasePath(cfg.Capture.OutputDir, cfg.SDR.Channel, freq, cfg.SDR.SampleRate, started)
	binPath := base + sampleFormat.Ext()
	sidecarPath := base + artifact.SidecarExt

	sess := capture.New(dev, capture.Config{
		Frequency:  freq,
		SampleRate: cfg.SDR.SampleRate,
		Bandwidth:  cfg.SDR.Bandwidth,
		Gain:       cfg.SDR.Gain,
		Format:     sampleFormat,
		Duration:   time.Duration(cfg.Capture.Seconds * float64(time.Second)),
	}, log.Logger)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("interrupt received, stopping capture")
		sess.Stop()
	}()

	res, err := sess.Run(binPath)
	if err != nil {
		return err
	}

	// Best-effort metadata: a failed sidecar write never invalidates the
	// completed binary capture.
	sidecar := artifact.Sidecar{
		Radio:        selected.Label,
		Driver:       selected.Driver,
		CenterHz:     artifact.Hertz(freq),
		SampleRate:   artifact.Hertz(cfg.SDR.SampleRate),
		Samples:      res.Samples,
		Format:       string(sampleFormat),
		TimestampUTC: artifact.Timestamp(started),
	}
	if err := artifact.WriteSidecar(sidecarPath, sidecar); err != nil {
		log.Error().Err(err).Str("path", sidecarPath).Msg("sidecar write failed; binary capture is intact")
	}

	log.Info().
		Uint64("samples", res.Samples).
		Str("file", binPath).
		Msg("capture complete")
	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}
