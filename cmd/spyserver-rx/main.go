// Command spyserver-rx connects to a SpyServer, streams for a while and prints what it received.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"k8s.io/klog/v2"

	"github.com/racerxdl/spyadapter/internal/config"
	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/internal/rx"
	"github.com/racerxdl/spyadapter/spyserver"
)

var (
	configPath = flag.String("config", "", "path of the YAML configuration")
	duration   = flag.Duration("duration", 0, "streaming time, overrides the configuration")
	address    = flag.String("address", "", "spyserver host:port, overrides the configuration")
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
	if *address != "" {
		cfg.Spyserver.Address = *address
	}

	closer, err := rx.SetupLogging(flag.CommandLine, cfg.Log)
	if err != nil {
		log.FatalLogMsg("%v", err)
	}
	defer closer.Close()
	defer klog.Flush()

	rx.StartMetrics(cfg.Metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg.Spyserver, cfg.Duration); err != nil {
		log.ErrorLogMsg("%v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, c config.SpyserverConfig, d time.Duration) error {
	stats := rx.NewStats()
	client := spyserver.New(c.Address,
		spyserver.WithSoftwareID(c.SoftwareID),
		spyserver.WithConnectTimeout(c.ConnectTimeout),
		spyserver.WithCallback(stats),
	)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	fmt.Printf("Device: %s (serial %08x)\n", client.GetName(), client.GetDeviceSerial())
	fmt.Println("Available SampleRates:")
	for _, sr := range client.GetAvailableSampleRates() {
		fmt.Printf("\t%s\n", rx.SampleRate(sr))
	}
	if !client.CanControl() {
		fmt.Println("Server does not allow this client to change the device settings")
	}

	if err := configure(client, c); err != nil {
		return err
	}
	fmt.Printf("Tuned to %s at %s, tunable %s to %s\n",
		rx.Frequency(client.GetCenterFrequency()), rx.SampleRate(client.GetSampleRate()),
		rx.Frequency(client.GetMinimumTunableFrequency()), rx.Frequency(client.GetMaximumTunableFrequency()))

	if err := client.Start(); err != nil {
		return err
	}
	start := time.Now()

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}

	received := client.GetDownstreamBytes()
	if err := client.Stop(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("Streamed for %s, received %s (%s/s), %d buffers dropped\n",
		elapsed.Round(time.Millisecond), rx.Bytes(received),
		rx.Bytes(uint64(float64(received)/elapsed.Seconds())), client.GetDroppedBuffers())
	fmt.Print(stats.Summary())
	return nil
}

func configure(client *spyserver.Client, c config.SpyserverConfig) error {
	if err := client.SetStreamingMode(c.StreamingModeValue()); err != nil {
		return err
	}
	if err := client.SetCenterFrequency(c.Frequency); err != nil {
		return err
	}
	if c.SampleRate != 0 {
		if err := client.SetSampleRate(c.SampleRate); err != nil {
			return err
		}
	}
	if err := client.SetDisplayPixels(c.DisplayPixels); err != nil {
		return err
	}
	if c.Gain != 0 {
		return client.SetGain(c.Gain)
	}
	return nil
}
