// Package rx holds the plumbing shared by the receiver command line tools.
package rx

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/klog/v2"

	"github.com/racerxdl/spyadapter/internal/config"
	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/internal/metrics"
	"github.com/racerxdl/spyadapter/spytypes"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging applies the configured verbosity unless -v was given on the command line,
// and sends klog output to a rotating file when one is configured.
func SetupLogging(fs *flag.FlagSet, c config.LogConfig) (io.Closer, error) {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			explicit = true
		}
	})
	if !explicit && c.Verbosity > 0 {
		if err := fs.Set("v", strconv.Itoa(c.Verbosity)); err != nil {
			return nil, fmt.Errorf("failed to set verbosity: %w", err)
		}
	}

	if c.File == "" {
		return nopCloser{}, nil
	}

	out := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
	}
	klog.LogToStderr(false)
	klog.SetOutput(out)
	return out, nil
}

// StartMetrics serves the Prometheus endpoint in the background when enabled.
func StartMetrics(c config.MetricsConfig) {
	if c.Listen == "" {
		return
	}
	go func() {
		log.DefaultLog("serving metrics on %s%s", c.Listen, c.Path)
		if err := metrics.Serve(c.Listen, c.Path); err != nil {
			log.ErrorLogMsg("metrics server stopped: %v", err)
		}
	}()
}

// Stats is a spytypes.Callback that tallies what it receives.
type Stats struct {
	mu      sync.Mutex
	buffers map[spytypes.SampleKind]uint64
	samples map[spytypes.SampleKind]uint64
	syncs   uint64
}

func NewStats() *Stats {
	return &Stats{
		buffers: map[spytypes.SampleKind]uint64{},
		samples: map[spytypes.SampleKind]uint64{},
	}
}

func (s *Stats) OnData(kind spytypes.SampleKind, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == spytypes.DeviceSync {
		s.syncs++
		log.DebugLogMsg("got device sync")
		return
	}
	n := spytypes.Len(data)
	s.buffers[kind]++
	s.samples[kind] += uint64(n)
	log.TraceLogMsg("received %d %s samples", n, kind)
}

// Samples returns the samples received of kind.
func (s *Stats) Samples(kind spytypes.SampleKind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples[kind]
}

// Summary renders one line per sample kind received.
func (s *Stats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for kind := spytypes.SamplesComplex64; kind <= spytypes.FFTUInt8; kind++ {
		if s.buffers[kind] == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s samples in %s buffers\n", kind,
			humanize.Comma(int64(s.samples[kind])), humanize.Comma(int64(s.buffers[kind])))
	}
	if s.syncs > 0 {
		fmt.Fprintf(&b, "device syncs: %d\n", s.syncs)
	}
	return b.String()
}

// Frequency renders hz with an SI prefix, "106.3 MHz".
func Frequency(hz uint32) string {
	return humanize.SI(float64(hz), "Hz")
}

// SampleRate renders sps with an SI prefix, "2.5 Msps".
func SampleRate(sps uint32) string {
	return humanize.SI(float64(sps), "sps")
}

// Bytes renders n as "9.4 MB".
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}
