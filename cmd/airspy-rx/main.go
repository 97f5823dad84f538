// Command airspy-rx streams from a local airspy for a while and prints what it received.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"k8s.io/klog/v2"

	"github.com/racerxdl/spyadapter/airspy"
	"github.com/racerxdl/spyadapter/internal/config"
	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/internal/rx"
)

var (
	configPath = flag.String("config", "", "path of the YAML configuration")
	duration   = flag.Duration("duration", 0, "streaming time, overrides the configuration")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.FatalLogMsg("%v", err)
	}
	if *duration > 0 {
		cfg.Duration = *duration
	}

	closer, err := rx.SetupLogging(flag.CommandLine, cfg.Log)
	if err != nil {
		log.FatalLogMsg("%v", err)
	}
	defer closer.Close()
	defer klog.Flush()

	rx.StartMetrics(cfg.Metrics)

	if err := run(cfg); err != nil {
		log.ErrorLogMsg("%v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := airspy.Initialize(); err != nil {
		return err
	}
	defer airspy.DeInitialize()
	fmt.Printf("libairspy %s\n", airspy.GetLibraryVersion())

	serial, _ := cfg.Airspy.SerialNumber()
	dev, err := airspy.Open(serial)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := configure(dev, cfg.Airspy); err != nil {
		return err
	}

	fmt.Printf("Device: %s\n", dev.GetName())
	fmt.Printf("Firmware: %s\n", dev.GetVersionString())
	fmt.Printf("Part ID: 0x%016x\n", dev.GetPartID())
	fmt.Println("Available SampleRates:")
	for _, sr := range dev.GetAvailableSampleRates() {
		fmt.Printf("\t%s\n", rx.SampleRate(sr))
	}
	fmt.Printf("Tuned to %s at %s (%s)\n", rx.Frequency(dev.GetCenterFrequency()),
		rx.SampleRate(dev.GetSampleRate()), dev.GetSampleType())

	stats := rx.NewStats()
	dev.SetCallback(stats)

	if err := dev.Start(); err != nil {
		return err
	}
	start := time.Now()
	time.Sleep(cfg.Duration)
	if err := dev.Stop(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("Streamed for %s\n", elapsed.Round(time.Millisecond))
	fmt.Print(stats.Summary())
	kind, _ := airspy.SampleKindOf(dev.GetSampleType())
	if n := stats.Samples(kind); n > 0 {
		fmt.Printf("Effective rate: %s\n", rx.SampleRate(uint32(float64(n)/elapsed.Seconds())))
	}
	return nil
}

func configure(dev *airspy.Device, c config.AirspyConfig) error {
	if err := dev.SetSampleType(c.SampleTypeValue()); err != nil {
		return err
	}
	if c.SampleRate != 0 {
		if err := dev.SetSampleRate(c.SampleRate); err != nil {
			return err
		}
	}
	if err := dev.SetCenterFrequency(c.Frequency); err != nil {
		return err
	}
	if err := dev.SetLNAGain(c.LNAGain); err != nil {
		return err
	}
	if err := dev.SetMixerGain(c.MixerGain); err != nil {
		return err
	}
	if err := dev.SetVGAGain(c.VGAGain); err != nil {
		return err
	}
	if err := dev.SetAGC(c.AGC); err != nil {
		return err
	}
	return dev.SetBiasT(c.BiasT)
}
