// Package spyserver is a SpyServer client that supports receiving IQ and FFT data.
package spyserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/internal/metrics"
	"github.com/racerxdl/spyadapter/spytypes"
)

// DefaultConnectTimeout bounds the dial and the wait for device info and client sync.
const DefaultConnectTimeout = 4 * time.Second

var (
	ErrNoDevice         = errors.New("spyserver: server is up but no device is available")
	ErrHandshakeTimeout = errors.New("spyserver: server didn't send the device capability and synchronization info")
	ErrInvalidValue     = errors.New("spyserver: invalid value")
	ErrNotConnected     = errors.New("spyserver: not connected")
)

// Dialer opens the transport to the server. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (d DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return d(ctx, network, address)
}

// Option configures a Client.
type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(f *Client) { f.dialer = d }
}

func WithConnectTimeout(timeout time.Duration) Option {
	return func(f *Client) { f.connectTimeout = timeout }
}

func WithSoftwareID(id string) Option {
	return func(f *Client) { f.softwareID = id }
}

func WithCallback(cb spytypes.Callback) Option {
	return func(f *Client) { f.callback = cb }
}

// Client is a spyserver connection handler. It is safe for concurrent use.
// The callback runs on the receive goroutine and must not call Disconnect.
type Client struct {
	address        string
	softwareID     string
	dialer         Dialer
	connectTimeout time.Duration

	// connectMu serializes Connect so concurrent callers share one session.
	connectMu sync.Mutex

	mu        sync.Mutex
	callback  spytypes.Callback
	conn      net.Conn
	logCtx    context.Context
	done      chan struct{}
	handshake chan struct{}
	signalled bool
	closing   bool
	loopErr   error

	gotDeviceInfo bool
	gotSyncInfo   bool
	deviceInfo    deviceInfo
	canControl    bool
	streaming     bool
	streamingMode uint32
	gain          uint32

	availableSampleRates []uint32

	lastSequenceNumber uint32
	droppedBuffers     uint32
	downStreamBytes    uint64

	minimumTunableFrequency uint32
	maximumTunableFrequency uint32
	deviceCenterFrequency   uint32
	channelCenterFrequency  uint32
	displayCenterFrequency  uint32

	currentSampleRate           uint32
	currentDisplaySampleRate    uint32
	channelDecimationStageCount uint32
	displayDecimationStageCount uint32
	displayOffset               int32
	displayRange                int32
	displayPixels               uint32
}

// New creates a client for the server at address (host:port).
// Example: New("airspy.com:5555")
func New(address string, opts ...Option) *Client {
	f := &Client{
		address:        address,
		softwareID:     DefaultSoftwareID,
		dialer:         &net.Dialer{},
		connectTimeout: DefaultConnectTimeout,
		logCtx:         context.Background(),

		displayRange:                defaultFFTRange,
		displayPixels:               defaultDisplayPixels,
		streamingMode:               StreamModeIQOnly,
		displayDecimationStageCount: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.cleanup()
	return f
}

// region Connection

// Connect dials the server, says hello and waits for the device info and client sync.
// Then it pushes the stream settings to the server. Concurrent calls wait for the first
// one and return nil when it established the session.
func (f *Client) Connect(ctx context.Context) error {
	f.connectMu.Lock()
	defer f.connectMu.Unlock()

	f.mu.Lock()
	connected := f.conn != nil
	f.mu.Unlock()
	if connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.connectTimeout)
	defer cancel()

	logCtx := log.WithID(context.Background(), uuid.NewString())
	log.DebugLog(logCtx, "connecting to %s", f.address)

	conn, err := f.dialer.DialContext(ctx, "tcp", f.address)
	if err != nil {
		return fmt.Errorf("spyserver: dial %s: %w", f.address, err)
	}

	handshake := make(chan struct{})
	done := make(chan struct{})

	f.mu.Lock()
	f.cleanup()
	f.conn = conn
	f.logCtx = logCtx
	f.handshake = handshake
	f.done = done
	f.signalled = false
	f.closing = false
	f.loopErr = nil
	f.mu.Unlock()

	go f.readLoop(conn, done)

	f.mu.Lock()
	err = f.sayHelloLocked()
	f.mu.Unlock()
	if err != nil {
		_ = f.Disconnect()
		return err
	}

	log.DebugLog(logCtx, "connected, waiting for device info")
	select {
	case <-handshake:
	case <-done:
		f.mu.Lock()
		err = f.loopErr
		f.mu.Unlock()
		if err == nil {
			err = io.EOF
		}
		return fmt.Errorf("spyserver: connection lost during handshake: %w", err)
	case <-ctx.Done():
		_ = f.Disconnect()
		return fmt.Errorf("%w: %v", ErrHandshakeTimeout, ctx.Err())
	}

	f.mu.Lock()
	if f.deviceInfo.DeviceType == DeviceInvalid {
		f.mu.Unlock()
		_ = f.Disconnect()
		return ErrNoDevice
	}
	err = f.onConnectLocked()
	name := DeviceName[f.deviceInfo.DeviceType]
	canControl := f.canControl
	f.mu.Unlock()
	if err != nil {
		_ = f.Disconnect()
		return err
	}
	if !canControl {
		log.WarningLog(logCtx, "%s does not allow this client to change the device settings", f.address)
	}

	log.UsefulLog(logCtx, "connected to %s: %s", f.address, name)
	return nil
}

// Disconnect closes the connection and waits for the receive goroutine to exit.
func (f *Client) Disconnect() error {
	f.mu.Lock()
	conn, done, logCtx := f.conn, f.done, f.logCtx
	if conn == nil {
		f.mu.Unlock()
		return nil
	}
	f.closing = true
	f.conn = nil
	f.mu.Unlock()

	log.DebugLog(logCtx, "disconnecting from %s", f.address)
	err := conn.Close()
	<-done
	return err
}

// sayHelloLocked sends the protocol version and the software id.
func (f *Client) sayHelloLocked() error {
	payload := append(encodeWords(ProtocolVersion), f.softwareID...)
	return f.sendCommandLocked(cmdHello, payload)
}

// cleanup returns the session state to its defaults. Caller holds mu or owns f.
func (f *Client) cleanup() {
	f.deviceInfo = deviceInfo{}
	f.gain = 0
	f.canControl = false
	f.gotDeviceInfo = false
	f.gotSyncInfo = false

	f.lastSequenceNumber = 0xFFFFFFFF
	f.droppedBuffers = 0
	f.downStreamBytes = 0

	f.availableSampleRates = nil
	f.currentSampleRate = 0
	f.currentDisplaySampleRate = 0
	f.channelDecimationStageCount = 0
	f.minimumTunableFrequency = 0
	f.maximumTunableFrequency = 0
	f.deviceCenterFrequency = 0

	f.streaming = false
}

// onConnectLocked pushes the stream settings and computes the available sample rates.
func (f *Client) onConnectLocked() error {
	settings := [][]uint32{
		{settingStreamingMode, f.streamingMode},
		{settingIqFormat, StreamFormatInt16},
		{settingFFTFormat, StreamFormatUint8},
		{settingFFTDisplayPixels, f.displayPixels},
		{settingFFTDbOffset, uint32(f.displayOffset)},
		{settingFFTDbRange, uint32(f.displayRange)},
		{settingFFTDecimation, f.displayDecimationStageCount},
	}
	if f.channelCenterFrequency != 0 {
		settings = append(settings, []uint32{settingIqFrequency, f.channelCenterFrequency})
	}
	for _, s := range settings {
		if err := f.setSettingLocked(s[0], s[1:]...); err != nil {
			return err
		}
	}

	stages := f.deviceInfo.DecimationStageCount
	if stages > 32 {
		stages = 32
	}
	rates := make([]uint32, stages)
	for i := range rates {
		rates[i] = f.deviceInfo.MaximumSampleRate >> uint(i)
	}
	f.availableSampleRates = rates
	return nil
}

// endregion
// region Wire

func (f *Client) sendCommandLocked(cmd uint32, payload []byte) error {
	if f.conn == nil {
		return ErrNotConnected
	}
	if _, err := f.conn.Write(encodeCommand(cmd, payload)); err != nil {
		return fmt.Errorf("spyserver: send command %d: %w", cmd, err)
	}
	return nil
}

func (f *Client) setSettingLocked(setting uint32, params ...uint32) error {
	log.TraceLogMsg("spyserver: set setting %d = %v", setting, params)
	return f.sendCommandLocked(cmdSetSetting, encodeWords(append([]uint32{setting}, params...)...))
}

// pushLocked sends a setting when connected. Offline changes are applied on the next Connect.
func (f *Client) pushLocked(setting uint32, params ...uint32) error {
	if f.conn == nil {
		return nil
	}
	return f.setSettingLocked(setting, params...)
}

func (f *Client) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	var p parser
	buffer := make([]byte, 64*1024)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			metrics.SpyserverBytes.WithLabelValues(f.address).Add(float64(n))
			f.mu.Lock()
			f.downStreamBytes += uint64(n)
			f.mu.Unlock()

			if perr := p.feed(buffer[:n], f.handleMessage); perr != nil {
				err = perr
			}
		}
		if err != nil {
			f.finish(conn, err)
			return
		}
	}
}

func (f *Client) finish(conn net.Conn, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closing && !errors.Is(err, io.EOF) {
		log.ErrorLog(f.logCtx, "error receiving data from %s: %v", f.address, err)
	}
	f.loopErr = err
	if f.conn == conn {
		_ = conn.Close()
		f.conn = nil
	}
	f.cleanup()
	log.DebugLog(f.logCtx, "receive loop for %s closed", f.address)
}

func (f *Client) handleMessage(m *message) error {
	t := m.header.MessageType
	metrics.SpyserverMessages.WithLabelValues(f.address, messageTypeName(t)).Inc()

	switch t {
	case msgTypeDeviceInfo:
		return f.processDeviceInfo(m.body)
	case msgTypeClientSync:
		if err := f.processClientSync(m.body); err != nil {
			return err
		}
		f.emit(spytypes.DeviceSync, nil)
		return nil
	case msgTypePong:
		log.TraceLogMsg("spyserver: pong from %s", f.address)
		return nil
	}

	cb := f.streamMessage(m.header)

	if cb == nil {
		return nil
	}

	switch t {
	case msgTypeUint8IQ:
		cb.OnData(spytypes.SamplesComplexUInt8, decodeUint8IQ(m.body))
	case msgTypeInt16IQ:
		cb.OnData(spytypes.SamplesComplex32, decodeInt16IQ(m.body))
	case msgTypeFloatIQ:
		cb.OnData(spytypes.SamplesComplex64, decodeFloatIQ(m.body))
	case msgTypeUint8FFT:
		cb.OnData(spytypes.FFTUInt8, m.body)
	default:
		log.TraceLogMsg("spyserver: ignoring %s message", messageTypeName(t))
	}
	return nil
}

// streamMessage does the sequence accounting of h and returns the callback to deliver to.
func (f *Client) streamMessage(h messageHeader) spytypes.Callback {
	f.mu.Lock()
	defer f.mu.Unlock()

	if isIQMessage(h.MessageType) {
		gap := h.SequenceNumber - f.lastSequenceNumber - 1
		f.lastSequenceNumber = h.SequenceNumber
		if gap > 0 {
			f.droppedBuffers += gap
			metrics.SpyserverDroppedBuffers.WithLabelValues(f.address).Add(float64(gap))
			log.DebugLog(f.logCtx, "lost %d buffers from %s", gap, f.address)
		}
	}
	return f.callback
}

func (f *Client) emit(kind spytypes.SampleKind, data interface{}) {
	f.mu.Lock()
	cb := f.callback
	f.mu.Unlock()
	if cb != nil {
		cb.OnData(kind, data)
	}
}

func (f *Client) processDeviceInfo(body []byte) error {
	var info deviceInfo
	if err := decodeWords(body, &info); err != nil {
		return fmt.Errorf("spyserver: decode device info: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceInfo = info
	f.gotDeviceInfo = true
	log.DebugLog(f.logCtx, "device info: %+v", info)
	f.signalLocked()
	return nil
}

func (f *Client) processClientSync(body []byte) error {
	var cs clientSync
	if err := decodeWords(body, &cs); err != nil {
		return fmt.Errorf("spyserver: decode client sync: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.canControl = cs.CanControl != 0
	f.gain = cs.Gain
	f.deviceCenterFrequency = cs.DeviceCenterFrequency
	f.displayCenterFrequency = cs.FFTCenterFrequency

	if f.fftEnabledLocked() {
		f.minimumTunableFrequency = cs.MinimumFFTCenterFrequency
		f.maximumTunableFrequency = cs.MaximumFFTCenterFrequency
	} else {
		f.minimumTunableFrequency = cs.MinimumIQCenterFrequency
		f.maximumTunableFrequency = cs.MaximumIQCenterFrequency
	}

	f.gotSyncInfo = true
	f.signalLocked()
	return nil
}

// signalLocked releases Connect once the handshake messages are in.
func (f *Client) signalLocked() {
	if f.signalled || f.handshake == nil || !f.gotDeviceInfo {
		return
	}
	if f.deviceInfo.DeviceType == DeviceInvalid || f.gotSyncInfo {
		f.signalled = true
		close(f.handshake)
	}
}

// endregion
