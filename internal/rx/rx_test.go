package rx

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/racerxdl/spyadapter/internal/config"
	"github.com/racerxdl/spyadapter/spytypes"
)

func TestStats(t *testing.T) {
	t.Parallel()

	s := NewStats()
	s.OnData(spytypes.SamplesComplex64, make([]complex64, 600))
	s.OnData(spytypes.SamplesComplex64, make([]complex64, 400))
	s.OnData(spytypes.FFTUInt8, make([]uint8, 2000))
	s.OnData(spytypes.DeviceSync, nil)

	assert.Equal(t, uint64(1000), s.Samples(spytypes.SamplesComplex64))
	assert.Zero(t, s.Samples(spytypes.SamplesComplex32))

	summary := s.Summary()
	assert.Contains(t, summary, "complex64: 1,000 samples in 2 buffers")
	assert.Contains(t, summary, "fft-uint8: 2,000 samples in 1 buffers")
	assert.Contains(t, summary, "device syncs: 1")
	assert.NotContains(t, summary, "complex-int16")
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "106.3 MHz", Frequency(106300000))
	assert.Equal(t, "2.5 Msps", SampleRate(2500000))
	assert.Equal(t, "9.4 MB", Bytes(9400000))
}

func TestSetupLoggingVerbosity(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	klog.InitFlags(fs)
	require.NoError(t, fs.Parse(nil))

	closer, err := SetupLogging(fs, config.LogConfig{Verbosity: 3})
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	assert.Equal(t, "3", fs.Lookup("v").Value.String())

	fs = flag.NewFlagSet("explicit", flag.ContinueOnError)
	klog.InitFlags(fs)
	require.NoError(t, fs.Parse([]string{"-v=5"}))

	_, err = SetupLogging(fs, config.LogConfig{Verbosity: 2})
	require.NoError(t, err)
	assert.Equal(t, "5", fs.Lookup("v").Value.String())
}

func TestSetupLoggingFile(t *testing.T) {
	fs := flag.NewFlagSet("file", flag.ContinueOnError)
	klog.InitFlags(fs)
	require.NoError(t, fs.Parse(nil))

	path := filepath.Join(t.TempDir(), "rx.log")
	closer, err := SetupLogging(fs, config.LogConfig{File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		klog.LogToStderr(true)
		_ = closer.Close()
	})

	klog.Info("written to the rotating file")
	klog.Flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "written to the rotating file"))
}
