package spyserver

import (
	"fmt"

	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/spytypes"
)

func (f *Client) fftEnabledLocked() bool {
	return f.streamingMode == StreamModeFFTOnly || f.streamingMode == StreamModeFFTIQ
}

func (f *Client) setStreamStateLocked() error {
	if f.streaming {
		return f.setSettingLocked(settingStreamingEnabled, 1)
	}
	return f.setSettingLocked(settingStreamingEnabled, 0)
}

// Start starts the streaming process (if not already started)
func (f *Client) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}
	if f.streaming {
		return nil
	}

	log.DebugLog(f.logCtx, "starting streaming")
	f.streaming = true
	f.downStreamBytes = 0
	if err := f.setStreamStateLocked(); err != nil {
		f.streaming = false
		return err
	}
	return nil
}

// Stop stop the streaming process (if started)
func (f *Client) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.streaming || f.conn == nil {
		f.streaming = false
		return nil
	}

	log.DebugLog(f.logCtx, "stopping streaming")
	f.streaming = false
	f.downStreamBytes = 0
	return f.setStreamStateLocked()
}

// Ping sends a ping command. The server answers with a pong message.
func (f *Client) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCommandLocked(cmdPing, nil)
}

// region Settings

// SetSampleRate sets the sample rate of the IQ Channel in Hertz.
// Check the available sample rates using GetAvailableSampleRates.
func (f *Client) SetSampleRate(sampleRate uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}

	for i, rate := range f.availableSampleRates {
		if rate != sampleRate {
			continue
		}
		if err := f.setSettingLocked(settingIqDecimation, uint32(i)); err != nil {
			return err
		}
		f.channelDecimationStageCount = uint32(i)
		f.currentSampleRate = sampleRate
		if f.fftEnabledLocked() && f.currentDisplaySampleRate == 0 {
			return f.setDisplayDecimationLocked(uint32(i))
		}
		return nil
	}

	return fmt.Errorf("%w: sample rate %d", ErrInvalidValue, sampleRate)
}

// SetDecimationStage sets the sample rate by using the number of decimation stages.
// Each decimation stage decimates by two, then the total decimation will be defined by 2^stages.
// This is the same as SetSampleRate, but SetSampleRate instead, looks at a pre-filled table of all 2^stages
// decimations that the server supports and applies into the original device sample rate.
func (f *Client) SetDecimationStage(decimation uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}
	if decimation >= uint32(len(f.availableSampleRates)) {
		return fmt.Errorf("%w: decimation stage %d", ErrInvalidValue, decimation)
	}

	if err := f.setSettingLocked(settingIqDecimation, decimation); err != nil {
		return err
	}
	f.channelDecimationStageCount = decimation
	f.currentSampleRate = f.availableSampleRates[decimation]
	return nil
}

// SetDisplaySampleRate sets the sample rate of the FFT Channel in Hertz.
func (f *Client) SetDisplaySampleRate(sampleRate uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}

	for i, rate := range f.availableSampleRates {
		if rate == sampleRate {
			return f.setDisplayDecimationLocked(uint32(i))
		}
	}
	return fmt.Errorf("%w: display sample rate %d", ErrInvalidValue, sampleRate)
}

// SetDisplayDecimationStage sets the sample rate of the FFT Channel by using the number of decimation stages.
// Each decimation stage decimates by two, then the total decimation will be defined by 2^stages.
func (f *Client) SetDisplayDecimationStage(decimation uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}
	if decimation >= uint32(len(f.availableSampleRates)) {
		return fmt.Errorf("%w: display decimation stage %d", ErrInvalidValue, decimation)
	}
	return f.setDisplayDecimationLocked(decimation)
}

func (f *Client) setDisplayDecimationLocked(decimation uint32) error {
	if err := f.setSettingLocked(settingFFTDecimation, decimation); err != nil {
		return err
	}
	f.displayDecimationStageCount = decimation
	f.currentDisplaySampleRate = f.availableSampleRates[decimation]
	return nil
}

// SetGain sets the gain stage of the server.
// The actual gain in dB varies from device to device.
func (f *Client) SetGain(gain uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return ErrNotConnected
	}
	if gain > f.deviceInfo.MaximumGainIndex {
		return fmt.Errorf("%w: gain %d over %d", ErrInvalidValue, gain, f.deviceInfo.MaximumGainIndex)
	}

	if err := f.setSettingLocked(settingGain, gain); err != nil {
		return err
	}
	f.gain = gain
	return nil
}

// SetCenterFrequency sets the IQ Channel Center Frequency in Hertz.
func (f *Client) SetCenterFrequency(centerFrequency uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channelCenterFrequency == centerFrequency {
		return nil
	}

	if err := f.pushLocked(settingIqFrequency, centerFrequency); err != nil {
		return err
	}
	f.channelCenterFrequency = centerFrequency
	if f.fftEnabledLocked() && f.displayCenterFrequency == 0 {
		return f.setDisplayCenterFrequencyLocked(centerFrequency)
	}
	return nil
}

// SetDisplayCenterFrequency sets the FFT Channel Center Frequency in Hertz.
func (f *Client) SetDisplayCenterFrequency(centerFrequency uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setDisplayCenterFrequencyLocked(centerFrequency)
}

func (f *Client) setDisplayCenterFrequencyLocked(centerFrequency uint32) error {
	if f.displayCenterFrequency == centerFrequency {
		return nil
	}
	if err := f.pushLocked(settingFFTFrequency, centerFrequency); err != nil {
		return err
	}
	f.displayCenterFrequency = centerFrequency
	return nil
}

// SetDisplayOffset sets the FFT Display offset in dB, clamped to ±MaxFFTDBOffset.
func (f *Client) SetDisplayOffset(offset int32) error {
	offset = clamp(offset, -MaxFFTDBOffset, MaxFFTDBOffset)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayOffset == offset {
		return nil
	}
	if err := f.pushLocked(settingFFTDbOffset, uint32(offset)); err != nil {
		return err
	}
	f.displayOffset = offset
	return nil
}

// SetDisplayRange sets the FFT Display range in dB, clamped to MinFFTDBRange..MaxFFTDBRange.
func (f *Client) SetDisplayRange(dispRange int32) error {
	dispRange = clamp(dispRange, MinFFTDBRange, MaxFFTDBRange)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayRange == dispRange {
		return nil
	}
	if err := f.pushLocked(settingFFTDbRange, uint32(dispRange)); err != nil {
		return err
	}
	f.displayRange = dispRange
	return nil
}

// SetDisplayPixels sets the FFT Display width in pixels, clamped to MinDisplayPixels..MaxDisplayPixels.
func (f *Client) SetDisplayPixels(pixels uint32) error {
	pixels = clamp(pixels, MinDisplayPixels, MaxDisplayPixels)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.displayPixels == pixels {
		return nil
	}
	if err := f.pushLocked(settingFFTDisplayPixels, pixels); err != nil {
		return err
	}
	f.displayPixels = pixels
	return nil
}

// SetStreamingMode sets the streaming mode of the server.
// The valid values are StreamModeIQOnly, StreamModeFFTOnly, StreamModeFFTIQ
func (f *Client) SetStreamingMode(streamMode uint32) error {
	switch streamMode {
	case StreamModeIQOnly, StreamModeFFTOnly, StreamModeFFTIQ:
	default:
		return fmt.Errorf("%w: streaming mode %d", ErrInvalidValue, streamMode)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamingMode == streamMode {
		return nil
	}

	if err := f.pushLocked(settingStreamingMode, streamMode); err != nil {
		return err
	}
	f.streamingMode = streamMode

	if !f.fftEnabledLocked() {
		return nil
	}
	if f.displayCenterFrequency == 0 {
		if err := f.setDisplayCenterFrequencyLocked(f.channelCenterFrequency); err != nil {
			return err
		}
	}
	return f.pushLocked(settingFFTDecimation, f.displayDecimationStageCount)
}

// SetCallback sets the callbacks for server data
func (f *Client) SetCallback(cb spytypes.Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callback = cb
}

// endregion
// region Getters

// GetName returns the name of the active device in spyserver
func (f *Client) GetName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return DeviceName[f.deviceInfo.DeviceType]
}

func (f *Client) GetDeviceSerial() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceInfo.DeviceSerial
}

// GetSampleRate returns the sample rate of the IQ channel in Hertz
func (f *Client) GetSampleRate() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentSampleRate
}

// GetDecimationStage returns the decimation stage of the IQ channel.
func (f *Client) GetDecimationStage() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channelDecimationStageCount
}

// GetAvailableSampleRates returns a list of available sample rates for the current connection.
func (f *Client) GetAvailableSampleRates() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.availableSampleRates...)
}

// GetCenterFrequency returns the IQ Channel Center Frequency in Hz
func (f *Client) GetCenterFrequency() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channelCenterFrequency
}

// GetDeviceCenterFrequency returns the tuner frequency reported by the last client sync.
func (f *Client) GetDeviceCenterFrequency() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceCenterFrequency
}

// GetDisplayCenterFrequency returns the FFT Display Center Frequency in Hertz
func (f *Client) GetDisplayCenterFrequency() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayCenterFrequency
}

// GetDisplayOffset returns the FFT Display offset in dB
func (f *Client) GetDisplayOffset() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayOffset
}

// GetDisplayRange returns the FFT Display range in dB
func (f *Client) GetDisplayRange() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayRange
}

// GetDisplayPixels returns the FFT Display width in pixels
func (f *Client) GetDisplayPixels() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayPixels
}

// GetDisplaySampleRate returns the sample rate of FFT Channel in Hertz
func (f *Client) GetDisplaySampleRate() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentDisplaySampleRate
}

// GetDisplayBandwidth returns the effective bandwidth of the FFT Channel in Hertz.
// For calculating the frequency of each FFT Pixel Column, you should use this as total FFT Bandwidth.
func (f *Client) GetDisplayBandwidth() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint32(uint64(f.currentDisplaySampleRate) * 8 / 10)
}

// GetStreamingMode returns the streaming mode of the server.
func (f *Client) GetStreamingMode() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamingMode
}

// GetGain returns the current gain stage of the server.
func (f *Client) GetGain() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gain
}

// GetMinimumTunableFrequency returns the lowest center frequency of the active stream.
func (f *Client) GetMinimumTunableFrequency() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minimumTunableFrequency
}

// GetMaximumTunableFrequency returns the highest center frequency of the active stream.
func (f *Client) GetMaximumTunableFrequency() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maximumTunableFrequency
}

// GetDroppedBuffers returns the IQ buffers lost in this session.
func (f *Client) GetDroppedBuffers() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.droppedBuffers
}

// GetDownstreamBytes returns the bytes received since streaming started.
func (f *Client) GetDownstreamBytes() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downStreamBytes
}

// CanControl tells whether the server lets this client change the device settings.
func (f *Client) CanControl() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canControl
}

func (f *Client) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil
}

func (f *Client) IsStreaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

// endregion

func clamp[T int32 | uint32](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
