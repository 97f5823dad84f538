// Package airspy drives an Airspy R2 / Mini through the spywrap adapter.
package airspy

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/spytypes"
	"github.com/racerxdl/spyadapter/spywrap"
)

const (
	MinCenterFrequency = 24000000
	MaxCenterFrequency = 1750000000

	DefaultCenterFrequency = 106300000
	DefaultLNAGain         = 8
	DefaultMixerGain       = 5
	DefaultVGAGain         = 5
)

// Library is the native airspy library seen through an adapter.
type Library struct {
	adapter *spywrap.Adapter
	version string
}

// NewLibrary returns a Library over a.
func NewLibrary(a *spywrap.Adapter) *Library {
	return &Library{adapter: a, version: "x.x.x"}
}

var defaultLibrary = NewLibrary(spywrap.Default)

// GetLibraryVersion Returns the native library version.
// Requires Initialize to be called.
func GetLibraryVersion() string {
	return defaultLibrary.GetLibraryVersion()
}

// Initialize initializes the native airspy library
// It is required to call this once when starting the application
func Initialize() error {
	return defaultLibrary.Initialize()
}

// DeInitialize cleans up the native library
// It is required to call this before closing the application
func DeInitialize() {
	defaultLibrary.DeInitialize()
}

// Open opens the device with the given serial number, or the first available one when serial is 0.
func Open(serial uint64) (*Device, error) {
	return defaultLibrary.Open(serial)
}

func (l *Library) GetLibraryVersion() string {
	return l.version
}

func (l *Library) Initialize() error {
	if err := check("init", l.adapter.Init()); err != nil {
		return err
	}

	v := l.adapter.LibVersion()
	l.version = fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
	log.DefaultLog("libairspy %s initialized", l.version)
	return nil
}

func (l *Library) DeInitialize() {
	l.adapter.Exit()
}

func (l *Library) Open(serial uint64) (*Device, error) {
	var res *spywrap.OpenResult
	if serial == 0 {
		res = l.adapter.OpenDevice()
	} else {
		res = l.adapter.OpenDeviceBySerial(serial)
	}
	defer l.adapter.ReleaseOpenResult(res)

	if err := check("open", res.Result); err != nil {
		return nil, err
	}
	if res.Device == nil {
		return nil, &StatusError{Op: "open", Code: spywrap.AirspyErrorOther}
	}

	dev := &Device{
		adapter:  l.adapter,
		instance: res.Device,
	}
	if err := dev.probe(); err != nil {
		l.adapter.Close(res.Device)
		return nil, err
	}

	log.DefaultLog("opened %s (firmware %q)", dev.name, dev.versionString)
	log.ExtendedLogMsg("%s: part id 0x%016x, %d sample rates", dev.name, dev.partID, len(dev.sampleRates))
	return dev, nil
}

type callbackBox struct {
	cb spytypes.Callback
}

// Device is an open airspy. Its methods are not safe for concurrent use, except
// SetCallback which may be called while streaming.
type Device struct {
	adapter       *spywrap.Adapter
	instance      spywrap.DeviceHandle
	boardID       uint8
	serial        uint64
	partID        uint64
	name          string
	serialLabel   string
	versionString string
	sampleRates   []uint32

	centerFrequency uint32
	sampleRate      uint32
	sampleType      spywrap.SampleType

	lnaGain uint8
	vgaGain uint8
	mixGain uint8

	cb  atomic.Pointer[callbackBox]
	ctx unsafe.Pointer
}

// probe reads the board identity and applies the default settings.
func (f *Device) probe() error {
	var r int

	// region Get Board ID
	f.boardID, r = f.adapter.BoardIDRead(f.instance)
	if err := check("board_id_read", r); err != nil {
		return err
	}
	// endregion
	// region Get Version String
	f.versionString, r = f.adapter.VersionStringRead(f.instance)
	if err := check("version_string_read", r); err != nil {
		return err
	}
	// endregion
	// region Get Serial and Part Number
	s, r := f.adapter.BoardPartIDSerialNoRead(f.instance)
	if err := check("board_partid_serialno_read", r); err != nil {
		return err
	}

	f.serial = spywrap.UnpackSerialNumber(s.SerialNo[:])
	f.partID = spywrap.UnpackPartNumber(s.PartID[:])
	f.name = fmt.Sprintf("Airspy(%d) 0x%x", f.boardID, f.serial)
	f.serialLabel = fmt.Sprintf("%016x", f.serial)
	// endregion
	// region Get Available SampleRates
	f.sampleRates, r = f.adapter.GetSampleRates(f.instance)
	if err := check("get_samplerates", r); err != nil {
		return err
	}
	if len(f.sampleRates) == 0 {
		return &StatusError{Op: "get_samplerates", Code: spywrap.AirspyErrorOther}
	}
	// endregion
	// region Defaults
	if err := f.SetSampleType(spywrap.AirspySampleFloat32Iq); err != nil {
		return err
	}
	if err := f.SetCenterFrequency(DefaultCenterFrequency); err != nil {
		return err
	}
	if err := f.SetSampleRate(f.sampleRates[0]); err != nil {
		return err
	}
	if err := f.SetLNAGain(DefaultLNAGain); err != nil {
		return err
	}
	if err := f.SetMixerGain(DefaultMixerGain); err != nil {
		return err
	}
	return f.SetVGAGain(DefaultVGAGain)
	// endregion
}

// Close stops streaming and closes the device.
// The native handle is closed even when stopping fails.
func (f *Device) Close() error {
	stopErr := f.Stop()
	return errors.Join(stopErr, check("close", f.adapter.Close(f.instance)))
}

func (f *Device) GetName() string {
	return f.name
}

func (f *Device) GetSerial() uint64 {
	return f.serial
}

func (f *Device) GetPartID() uint64 {
	return f.partID
}

func (f *Device) GetBoardID() uint8 {
	return f.boardID
}

func (f *Device) GetVersionString() string {
	return f.versionString
}

func (f *Device) GetAvailableSampleRates() []uint32 {
	return f.sampleRates
}

func (f *Device) GetCenterFrequency() uint32 {
	return f.centerFrequency
}

func (f *Device) GetSampleRate() uint32 {
	return f.sampleRate
}

func (f *Device) GetSampleType() spywrap.SampleType {
	return f.sampleType
}

// SetSampleRate changes the sample rate, restarting the stream around the change if needed.
func (f *Device) SetSampleRate(sampleRate uint32) error {
	if f.sampleRate == sampleRate {
		return nil
	}

	restart := f.IsStreaming()
	if restart {
		if err := f.Stop(); err != nil {
			return err
		}
	}

	if err := check("set_samplerate", f.adapter.SetSampleRate(f.instance, sampleRate)); err != nil {
		return err
	}
	f.sampleRate = sampleRate

	if restart {
		return f.Start()
	}
	return nil
}

// SetCenterFrequency tunes the device; the frequency is clamped to the tuner range.
func (f *Device) SetCenterFrequency(centerFrequency uint32) error {
	if centerFrequency < MinCenterFrequency {
		centerFrequency = MinCenterFrequency
	}

	if centerFrequency > MaxCenterFrequency {
		centerFrequency = MaxCenterFrequency
	}

	if f.centerFrequency == centerFrequency {
		return nil
	}
	if err := check("set_freq", f.adapter.SetFreq(f.instance, centerFrequency)); err != nil {
		return err
	}
	f.centerFrequency = centerFrequency
	return nil
}

// IsStreaming asks the driver whether rx is running.
func (f *Device) IsStreaming() bool {
	return f.adapter.IsStreaming(f.instance) == spywrap.AirspyTrue
}

// SetAGC toggles both LNA and mixer AGC. Turning it off restores the manual gains.
func (f *Device) SetAGC(agc bool) error {
	val := boolValue(agc)

	if err := check("set_mixer_agc", f.adapter.SetMixerAGC(f.instance, val)); err != nil {
		return err
	}
	if err := check("set_lna_agc", f.adapter.SetLNAAGC(f.instance, val)); err != nil {
		return err
	}
	if agc {
		return nil
	}

	if err := f.SetLNAGain(f.lnaGain); err != nil {
		return err
	}
	return f.SetMixerGain(f.mixGain)
}

func (f *Device) SetLNAGain(gain uint8) error {
	if err := check("set_lna_gain", f.adapter.SetLNAGain(f.instance, gain)); err != nil {
		return err
	}
	f.lnaGain = gain
	return nil
}

func (f *Device) SetVGAGain(gain uint8) error {
	if err := check("set_vga_gain", f.adapter.SetVGAGain(f.instance, gain)); err != nil {
		return err
	}
	f.vgaGain = gain
	return nil
}

func (f *Device) SetMixerGain(gain uint8) error {
	if err := check("set_mixer_gain", f.adapter.SetMixerGain(f.instance, gain)); err != nil {
		return err
	}
	f.mixGain = gain
	return nil
}

func (f *Device) GetLNAGain() uint8 {
	return f.lnaGain
}

func (f *Device) GetVGAGain() uint8 {
	return f.vgaGain
}

func (f *Device) GetMixerGain() uint8 {
	return f.mixGain
}

// SetLinearityGain applies the combined linearity gain preset (0..21).
func (f *Device) SetLinearityGain(gain uint8) error {
	return check("set_linearity_gain", f.adapter.SetLinearityGain(f.instance, gain))
}

// SetSensitivityGain applies the combined sensitivity gain preset (0..21).
func (f *Device) SetSensitivityGain(gain uint8) error {
	return check("set_sensitivity_gain", f.adapter.SetSensitivityGain(f.instance, gain))
}

func (f *Device) SetBiasT(biast bool) error {
	return check("set_rf_bias", f.adapter.SetRFBias(f.instance, boolValue(biast)))
}

func (f *Device) SetSampleType(sampleType spywrap.SampleType) error {
	if err := check("set_sample_type", f.adapter.SetSampleType(f.instance, sampleType)); err != nil {
		return err
	}
	f.sampleType = sampleType
	return nil
}

// SetCallback sets the receiver of the decoded samples. nil discards them.
func (f *Device) SetCallback(cb spytypes.Callback) {
	if cb == nil {
		f.cb.Store(nil)
		return
	}
	f.cb.Store(&callbackBox{cb: cb})
}

func boolValue(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
