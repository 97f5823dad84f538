package spyserver

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racerxdl/spyadapter/internal/metrics"
	"github.com/racerxdl/spyadapter/spytypes"
)

type command struct {
	typ  uint32
	body []byte
}

// fakeServer is the server end of a net.Pipe. Commands are read on one goroutine
// and messages are written on another so neither side can block the other.
type fakeServer struct {
	t        *testing.T
	conn     net.Conn
	commands chan command
	out      chan []byte

	info deviceInfo
	sync clientSync
	// silent servers never answer the hello.
	silent bool
}

func newFakeServer(t *testing.T) *fakeServer {
	return &fakeServer{
		t:        t,
		commands: make(chan command, 256),
		out:      make(chan []byte, 64),
		info: deviceInfo{
			DeviceType:           DeviceAirspyOne,
			DeviceSerial:         0x1234,
			MaximumSampleRate:    10000000,
			MaximumBandwidth:     9000000,
			DecimationStageCount: 4,
			GainStageCount:       22,
			MaximumGainIndex:     21,
			MinimumFrequency:     24000000,
			MaximumFrequency:     1750000000,
		},
		sync: clientSync{
			CanControl:                1,
			Gain:                      5,
			DeviceCenterFrequency:     106300000,
			IQCenterFrequency:         106300000,
			MinimumIQCenterFrequency:  24000000,
			MaximumIQCenterFrequency:  1750000000,
			MinimumFFTCenterFrequency: 25000000,
			MaximumFFTCenterFrequency: 1740000000,
		},
	}
}

func (s *fakeServer) dialer() Dialer {
	return DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		client, server := net.Pipe()
		s.conn = server
		go s.readCommands()
		go s.writeMessages()
		return client, nil
	})
}

func (s *fakeServer) readCommands() {
	defer close(s.commands)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(s.conn, hdr[:]); err != nil {
			return
		}
		c := command{
			typ:  binary.LittleEndian.Uint32(hdr[0:]),
			body: make([]byte, binary.LittleEndian.Uint32(hdr[4:])),
		}
		if _, err := io.ReadFull(s.conn, c.body); err != nil {
			return
		}
		s.commands <- c

		if c.typ == cmdHello && !s.silent {
			s.send(msgTypeDeviceInfo, 0, structWords(s.info))
			if s.info.DeviceType != DeviceInvalid {
				s.send(msgTypeClientSync, 0, structWords(s.sync))
			}
		}
	}
}

func (s *fakeServer) writeMessages() {
	for b := range s.out {
		if _, err := s.conn.Write(b); err != nil {
			return
		}
	}
}

func (s *fakeServer) send(msgType, seq uint32, body []byte) {
	s.out <- frame(msgType, seq, body)
}

func (s *fakeServer) next() command {
	s.t.Helper()
	select {
	case c, ok := <-s.commands:
		require.True(s.t, ok, "connection closed")
		return c
	case <-time.After(2 * time.Second):
		require.FailNow(s.t, "no command received")
	}
	return command{}
}

func (s *fakeServer) expectSetting(setting uint32, params ...uint32) {
	s.t.Helper()
	c := s.next()
	assert.Equal(s.t, uint32(cmdSetSetting), c.typ)
	assert.Equal(s.t, encodeWords(append([]uint32{setting}, params...)...), c.body)
}

// skipHandshake drains the hello and the settings pushed after the handshake.
func (s *fakeServer) skipHandshake() {
	s.t.Helper()
	for i := 0; i < 8; i++ {
		s.next()
	}
}

func structWords(v interface{}) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

type delivery struct {
	kind spytypes.SampleKind
	data interface{}
}

func recorder() (spytypes.Callback, chan delivery) {
	ch := make(chan delivery, 32)
	return spytypes.CallbackFunc(func(kind spytypes.SampleKind, data interface{}) {
		ch <- delivery{kind, data}
	}), ch
}

func receive(t *testing.T, ch chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no data delivered")
	}
	return delivery{}
}

func connect(t *testing.T, s *fakeServer, opts ...Option) *Client {
	t.Helper()
	c := New("pipe-"+t.Name(), append([]Option{WithDialer(s.dialer())}, opts...)...)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func TestConnect(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	c := connect(t, s, WithSoftwareID("tester"))

	hello := s.next()
	assert.Equal(t, uint32(cmdHello), hello.typ)
	assert.Equal(t, append(encodeWords(ProtocolVersion), "tester"...), hello.body)

	s.expectSetting(settingStreamingMode, StreamModeIQOnly)
	s.expectSetting(settingIqFormat, StreamFormatInt16)
	s.expectSetting(settingFFTFormat, StreamFormatUint8)
	s.expectSetting(settingFFTDisplayPixels, defaultDisplayPixels)
	s.expectSetting(settingFFTDbOffset, 0)
	s.expectSetting(settingFFTDbRange, defaultFFTRange)
	s.expectSetting(settingFFTDecimation, 1)

	assert.True(t, c.IsConnected())
	assert.Equal(t, DeviceAirspyOneName, c.GetName())
	assert.Equal(t, uint32(0x1234), c.GetDeviceSerial())
	assert.Equal(t, []uint32{10000000, 5000000, 2500000, 1250000}, c.GetAvailableSampleRates())
	assert.True(t, c.CanControl())
	assert.Equal(t, uint32(5), c.GetGain())
	assert.Equal(t, uint32(106300000), c.GetDeviceCenterFrequency())
	assert.Equal(t, uint32(24000000), c.GetMinimumTunableFrequency())
	assert.Equal(t, uint32(1750000000), c.GetMaximumTunableFrequency())

	// a second Connect on a live session is a no-op.
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Disconnect())
	assert.False(t, c.IsConnected())
	assert.Equal(t, DeviceInvalidName, c.GetName())
}

func TestConnectPushesOfflineFrequency(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	c := New("pipe-offline", WithDialer(s.dialer()))
	require.NoError(t, c.SetCenterFrequency(433920000))
	require.NoError(t, c.Connect(context.Background()))
	defer c.Disconnect()

	s.skipHandshake()
	s.expectSetting(settingIqFrequency, 433920000)
}

func TestConnectNoDevice(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	s.info.DeviceType = DeviceInvalid
	c := New("pipe-nodevice", WithDialer(s.dialer()))

	err := c.Connect(context.Background())
	assert.True(t, errors.Is(err, ErrNoDevice))
	assert.False(t, c.IsConnected())
}

func TestConnectHandshakeTimeout(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	s.silent = true
	c := New("pipe-silent", WithDialer(s.dialer()), WithConnectTimeout(50*time.Millisecond))

	err := c.Connect(context.Background())
	assert.True(t, errors.Is(err, ErrHandshakeTimeout))
	assert.False(t, c.IsConnected())
}

func TestConnectDialError(t *testing.T) {
	t.Parallel()

	refused := errors.New("connection refused")
	c := New("pipe-refused", WithDialer(DialerFunc(func(context.Context, string, string) (net.Conn, error) {
		return nil, refused
	})))

	err := c.Connect(context.Background())
	assert.True(t, errors.Is(err, refused))
	assert.False(t, c.IsConnected())
}

func TestConnectProtocolMismatch(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	s.silent = true
	c := New("pipe-mismatch", WithDialer(s.dialer()))

	go func() {
		<-s.commands
		s.out <- encodeHeader(messageHeader{ProtocolID: 3 << 24, MessageType: msgTypeDeviceInfo})
	}()

	err := c.Connect(context.Background())
	assert.True(t, errors.Is(err, ErrProtocolVersion))
	assert.False(t, c.IsConnected())
}

func TestStreamingDelivery(t *testing.T) {
	t.Parallel()

	cb, ch := recorder()
	s := newFakeServer(t)
	c := connect(t, s, WithCallback(cb))
	assert.Equal(t, spytypes.DeviceSync, receive(t, ch).kind)

	s.send(msgTypeInt16IQ, 0, []byte{1, 0, 2, 0, 3, 0, 4, 0})
	d := receive(t, ch)
	assert.Equal(t, spytypes.SamplesComplex32, d.kind)
	assert.Equal(t, []spytypes.ComplexInt16{{Real: 1, Imag: 2}, {Real: 3, Imag: 4}}, d.data)

	s.send(msgTypeUint8IQ, 1, []byte{127, 128})
	d = receive(t, ch)
	assert.Equal(t, spytypes.SamplesComplexUInt8, d.kind)
	assert.Equal(t, []spytypes.ComplexUInt8{{Real: 127, Imag: 128}}, d.data)

	s.send(msgTypeFloatIQ, 2, []byte{0, 0, 0x80, 0x3F, 0, 0, 0x80, 0x3F})
	d = receive(t, ch)
	assert.Equal(t, spytypes.SamplesComplex64, d.kind)
	assert.Equal(t, []complex64{complex(1, 1)}, d.data)

	s.send(msgTypeUint8FFT, 100, []byte{10, 20, 30})
	d = receive(t, ch)
	assert.Equal(t, spytypes.FFTUInt8, d.kind)
	assert.Equal(t, []byte{10, 20, 30}, d.data)

	// empty stream bodies are still delivered.
	s.send(msgTypeUint8IQ, 3, nil)
	d = receive(t, ch)
	assert.Equal(t, spytypes.SamplesComplexUInt8, d.kind)
	assert.Equal(t, 0, spytypes.Len(d.data))

	assert.Zero(t, c.GetDroppedBuffers())
}

func TestStreamingDroppedBuffers(t *testing.T) {
	t.Parallel()

	cb, ch := recorder()
	s := newFakeServer(t)
	c := connect(t, s, WithCallback(cb))
	receive(t, ch)

	s.send(msgTypeInt16IQ, 0, nil)
	s.send(msgTypeInt16IQ, 3, nil)
	// fft sequence numbers are not tracked.
	s.send(msgTypeUint8FFT, 50, nil)
	for i := 0; i < 3; i++ {
		receive(t, ch)
	}

	assert.Equal(t, uint32(2), c.GetDroppedBuffers())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SpyserverDroppedBuffers.WithLabelValues("pipe-"+t.Name())))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SpyserverMessages.WithLabelValues("pipe-"+t.Name(), "int16_iq")))
}

func TestSettings(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	c := connect(t, s)
	s.skipHandshake()

	require.NoError(t, c.SetSampleRate(2500000))
	s.expectSetting(settingIqDecimation, 2)
	assert.Equal(t, uint32(2500000), c.GetSampleRate())
	assert.Equal(t, uint32(2), c.GetDecimationStage())

	assert.True(t, errors.Is(c.SetSampleRate(123), ErrInvalidValue))

	assert.True(t, errors.Is(c.SetDecimationStage(4), ErrInvalidValue))
	require.NoError(t, c.SetDecimationStage(3))
	s.expectSetting(settingIqDecimation, 3)
	assert.Equal(t, uint32(1250000), c.GetSampleRate())

	assert.True(t, errors.Is(c.SetGain(22), ErrInvalidValue))
	require.NoError(t, c.SetGain(21))
	s.expectSetting(settingGain, 21)
	assert.Equal(t, uint32(21), c.GetGain())

	require.NoError(t, c.SetCenterFrequency(433920000))
	s.expectSetting(settingIqFrequency, 433920000)
	assert.Equal(t, uint32(433920000), c.GetCenterFrequency())
	// unchanged values are not resent.
	require.NoError(t, c.SetCenterFrequency(433920000))

	require.NoError(t, c.SetDisplayPixels(50))
	s.expectSetting(settingFFTDisplayPixels, MinDisplayPixels)
	require.NoError(t, c.SetDisplayPixels(1<<20))
	s.expectSetting(settingFFTDisplayPixels, MaxDisplayPixels)
	assert.Equal(t, uint32(MaxDisplayPixels), c.GetDisplayPixels())

	require.NoError(t, c.SetDisplayRange(200))
	s.expectSetting(settingFFTDbRange, MaxFFTDBRange)
	require.NoError(t, c.SetDisplayOffset(-20))
	s.expectSetting(settingFFTDbOffset, uint32(0xFFFFFFEC))
	assert.Equal(t, int32(-20), c.GetDisplayOffset())

	assert.True(t, errors.Is(c.SetStreamingMode(7), ErrInvalidValue))
	require.NoError(t, c.SetStreamingMode(StreamModeFFTIQ))
	s.expectSetting(settingStreamingMode, StreamModeFFTIQ)
	s.expectSetting(settingFFTFrequency, 433920000)
	s.expectSetting(settingFFTDecimation, 1)
	assert.Equal(t, uint32(433920000), c.GetDisplayCenterFrequency())

	require.NoError(t, c.SetDisplaySampleRate(5000000))
	s.expectSetting(settingFFTDecimation, 1)
	assert.Equal(t, uint32(5000000), c.GetDisplaySampleRate())
	assert.Equal(t, uint32(4000000), c.GetDisplayBandwidth())
	assert.True(t, errors.Is(c.SetDisplayDecimationStage(4), ErrInvalidValue))
	assert.True(t, errors.Is(c.SetDisplaySampleRate(1), ErrInvalidValue))
}

func TestStartStopPing(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	c := connect(t, s)
	s.skipHandshake()

	require.NoError(t, c.Start())
	s.expectSetting(settingStreamingEnabled, 1)
	assert.True(t, c.IsStreaming())
	// already streaming
	require.NoError(t, c.Start())

	require.NoError(t, c.Ping())
	ping := s.next()
	assert.Equal(t, uint32(cmdPing), ping.typ)
	assert.Empty(t, ping.body)

	require.NoError(t, c.Stop())
	s.expectSetting(settingStreamingEnabled, 0)
	assert.False(t, c.IsStreaming())
}

func TestNotConnected(t *testing.T) {
	t.Parallel()

	c := New("pipe-offline-calls")
	assert.True(t, errors.Is(c.Start(), ErrNotConnected))
	assert.True(t, errors.Is(c.Ping(), ErrNotConnected))
	assert.True(t, errors.Is(c.SetSampleRate(10000000), ErrNotConnected))
	assert.True(t, errors.Is(c.SetGain(0), ErrNotConnected))
	assert.NoError(t, c.Stop())
	assert.NoError(t, c.Disconnect())

	require.NoError(t, c.SetDisplayPixels(4096))
	assert.Equal(t, uint32(4096), c.GetDisplayPixels())
	assert.Equal(t, uint32(StreamModeIQOnly), c.GetStreamingMode())
}

func TestServerClosesConnection(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	c := connect(t, s)
	s.skipHandshake()

	require.NoError(t, s.conn.Close())
	assert.Eventually(t, func() bool { return !c.IsConnected() }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(c.Start(), ErrNotConnected))

	assert.Empty(t, c.GetAvailableSampleRates())
	assert.Zero(t, c.GetSampleRate())
	assert.Zero(t, c.GetDeviceCenterFrequency())
	assert.Zero(t, c.GetMinimumTunableFrequency())
	assert.Zero(t, c.GetMaximumTunableFrequency())
	assert.False(t, c.CanControl())
}

func TestConnectConcurrent(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	pipe := s.dialer()
	var dials atomic.Int32
	slow := DialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		dials.Add(1)
		time.Sleep(30 * time.Millisecond)
		return pipe.DialContext(ctx, network, address)
	})
	c := New("pipe-concurrent", WithDialer(slow))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- c.Connect(context.Background()) }()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, int32(1), dials.Load())
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Disconnect())
	closed := make(chan struct{})
	go func() {
		for range s.commands {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server connection still open after Disconnect")
	}
}

func TestTunableLimits(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		mode     uint32
		min, max uint32
	}{
		"iq":     {StreamModeIQOnly, 24000000, 1750000000},
		"fft":    {StreamModeFFTOnly, 25000000, 1740000000},
		"fft+iq": {StreamModeFFTIQ, 25000000, 1740000000},
	} {
		s := newFakeServer(t)
		c := New("pipe-limits-"+name, WithDialer(s.dialer()))
		require.NoError(t, c.SetStreamingMode(tc.mode), name)
		require.NoError(t, c.Connect(context.Background()), name)

		assert.Equal(t, tc.min, c.GetMinimumTunableFrequency(), name)
		assert.Equal(t, tc.max, c.GetMaximumTunableFrequency(), name)
		require.NoError(t, c.Disconnect(), name)
	}
}

func TestSampleRatesCapped(t *testing.T) {
	t.Parallel()

	s := newFakeServer(t)
	s.info.DecimationStageCount = 40
	c := connect(t, s)

	rates := c.GetAvailableSampleRates()
	require.Len(t, rates, 32)
	assert.Equal(t, uint32(10000000), rates[0])
	assert.Equal(t, uint32(10000000>>31), rates[31])
	assert.True(t, errors.Is(c.SetDecimationStage(32), ErrInvalidValue))
}

func TestIgnoredMessages(t *testing.T) {
	t.Parallel()

	cb, ch := recorder()
	s := newFakeServer(t)
	c := connect(t, s, WithCallback(cb))
	assert.Equal(t, spytypes.DeviceSync, receive(t, ch).kind)

	s.send(msgTypeInt24IQ, 0, []byte{1, 2, 3, 4, 5, 6})
	s.send(999, 7, []byte{1})
	s.send(msgTypeReadSetting, 0, nil)
	s.send(msgTypeUint8IQ, 1, []byte{1, 2})

	d := receive(t, ch)
	assert.Equal(t, spytypes.SamplesComplexUInt8, d.kind)
	select {
	case d := <-ch:
		assert.Fail(t, "unexpected delivery", "%v", d.kind)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Zero(t, c.GetDroppedBuffers())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SpyserverMessages.WithLabelValues("pipe-"+t.Name(), "unknown_999")))
}

func TestDownstreamBytesReset(t *testing.T) {
	t.Parallel()

	cb, ch := recorder()
	s := newFakeServer(t)
	c := connect(t, s, WithCallback(cb))
	receive(t, ch)
	s.skipHandshake()
	assert.NotZero(t, c.GetDownstreamBytes())

	require.NoError(t, c.Start())
	s.expectSetting(settingStreamingEnabled, 1)
	assert.Zero(t, c.GetDownstreamBytes())

	s.send(msgTypeUint8FFT, 0, []byte{1, 2, 3})
	receive(t, ch)
	assert.Equal(t, uint64(messageHeaderSize+3), c.GetDownstreamBytes())

	require.NoError(t, c.Stop())
	assert.Zero(t, c.GetDownstreamBytes())
}
