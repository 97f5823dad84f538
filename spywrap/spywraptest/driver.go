// Package spywraptest provides an in-memory spywrap.Driver for tests.
package spywraptest

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/racerxdl/spyadapter/spywrap"
)

// Frame is one transfer the fake driver delivers.
// Data holds []complex64, []float32, []int16, []uint16 or []byte.
type Frame struct {
	Type    spywrap.SampleType
	Data    interface{}
	Dropped uint64
}

// Device is a fake airspy board. The exported configuration fields record the last
// value the driver was asked to set.
type Device struct {
	Serial      uint64
	PartID      uint64
	BoardID     uint8
	Version     string
	SampleRates []uint32

	// Pending frames are delivered from inside StartRx, before it returns.
	Pending []Frame

	SampleRate      uint32
	SampleType      spywrap.SampleType
	Frequency       uint32
	LNAGain         uint8
	MixerGain       uint8
	VGAGain         uint8
	LinearityGain   uint8
	SensitivityGain uint8
	LNAAGC          uint8
	MixerAGC        uint8
	RFBias          uint8

	open      bool
	streaming bool
	ctx       unsafe.Pointer
}

// Driver implements spywrap.Driver over a fixed set of devices.
type Driver struct {
	mu      sync.Mutex
	devices []*Device
	boxes   map[unsafe.Pointer]bool

	Version spywrap.LibVersion

	// FailOn makes the named Driver method return the mapped status code.
	FailOn map[string]int

	Inits, Exits int
	Opens, Frees int
	DoubleFrees  int
}

// New returns a driver owning devices.
func New(devices ...*Device) *Driver {
	return &Driver{
		devices: devices,
		boxes:   map[unsafe.Pointer]bool{},
		Version: spywrap.LibVersion{Major: 1, Minor: 0, Revision: 10},
		FailOn:  map[string]int{},
	}
}

// NewDevice returns a board with sensible defaults for serial.
func NewDevice(serial uint64) *Device {
	return &Device{
		Serial:      serial,
		PartID:      0x6906002B00000030,
		BoardID:     spywrap.AirspyBoardIdProtoAirspy,
		Version:     "AirSpy NOS v1.0.0-rc10-6-g4008185 2020-05-08",
		SampleRates: []uint32{10000000, 2500000},
	}
}

// Handle returns the native handle the driver hands out for dev.
func Handle(dev *Device) spywrap.DeviceHandle {
	return spywrap.DeviceHandle(unsafe.Pointer(dev))
}

// Outstanding returns the number of open results not freed yet.
func (d *Driver) Outstanding() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Opens - d.Frees
}

// Streaming reports whether dev is streaming.
func (d *Driver) Streaming(dev *Device) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return dev.streaming
}

// Open reports whether dev is open.
func (d *Driver) Open(dev *Device) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return dev.open
}

func (d *Driver) lookup(h spywrap.DeviceHandle) *Device {
	for _, dev := range d.devices {
		if Handle(dev) == h {
			return dev
		}
	}
	return nil
}

func (d *Driver) failure(op string) (int, bool) {
	code, ok := d.FailOn[op]
	return code, ok
}

func (d *Driver) box(dev *Device, code int) *spywrap.OpenResult {
	d.Opens++
	token := unsafe.Pointer(new(byte))
	d.boxes[token] = true

	var h spywrap.DeviceHandle
	if dev != nil {
		dev.open = true
		h = Handle(dev)
	}
	return spywrap.NewOpenResult(h, code, token)
}

func (d *Driver) Init() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, ok := d.failure("Init"); ok {
		return code
	}
	d.Inits++
	return spywrap.AirspySuccess
}

func (d *Driver) Exit() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Exits++
	return spywrap.AirspySuccess
}

func (d *Driver) LibVersion() spywrap.LibVersion {
	return d.Version
}

func (d *Driver) OpenDevice() *spywrap.OpenResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, ok := d.failure("OpenDevice"); ok {
		return d.box(nil, code)
	}
	for _, dev := range d.devices {
		if !dev.open {
			return d.box(dev, spywrap.AirspySuccess)
		}
	}
	return d.box(nil, spywrap.AirspyErrorNotFound)
}

func (d *Driver) OpenDeviceBySerial(serialNumber uint64) *spywrap.OpenResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, ok := d.failure("OpenDeviceBySerial"); ok {
		return d.box(nil, code)
	}
	for _, dev := range d.devices {
		if dev.Serial != serialNumber {
			continue
		}
		if dev.open {
			return d.box(nil, spywrap.AirspyErrorBusy)
		}
		return d.box(dev, spywrap.AirspySuccess)
	}
	return d.box(nil, spywrap.AirspyErrorNotFound)
}

func (d *Driver) FreeOpenResult(r *spywrap.OpenResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.boxes[r.Box()] {
		d.DoubleFrees++
		return
	}
	delete(d.boxes, r.Box())
	d.Frees++
}

func (d *Driver) Close(h spywrap.DeviceHandle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev == nil || !dev.open {
		return spywrap.AirspyErrorInvalidParam
	}
	dev.open = false
	dev.streaming = false
	dev.ctx = nil
	return spywrap.AirspySuccess
}

func (d *Driver) BoardIDRead(h spywrap.DeviceHandle) (uint8, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev == nil {
		return spywrap.AirspyBoardIdInvalid, spywrap.AirspyErrorInvalidParam
	}
	if code, ok := d.failure("BoardIDRead"); ok {
		return 0, code
	}
	return dev.BoardID, spywrap.AirspySuccess
}

func (d *Driver) VersionStringRead(h spywrap.DeviceHandle) (string, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev == nil {
		return "", spywrap.AirspyErrorInvalidParam
	}
	if code, ok := d.failure("VersionStringRead"); ok {
		return "", code
	}
	return dev.Version, spywrap.AirspySuccess
}

func (d *Driver) BoardPartIDSerialNoRead(h spywrap.DeviceHandle) (spywrap.PartIDSerialNo, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev == nil {
		return spywrap.PartIDSerialNo{}, spywrap.AirspyErrorInvalidParam
	}
	if code, ok := d.failure("BoardPartIDSerialNoRead"); ok {
		return spywrap.PartIDSerialNo{}, code
	}
	return spywrap.PartIDSerialNo{
		PartID:   [2]uint32{uint32(dev.PartID), uint32(dev.PartID >> 32)},
		SerialNo: [4]uint32{0, 0, uint32(dev.Serial), uint32(dev.Serial >> 32)},
	}, spywrap.AirspySuccess
}

func (d *Driver) GetSampleRates(h spywrap.DeviceHandle) ([]uint32, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev == nil {
		return nil, spywrap.AirspyErrorInvalidParam
	}
	if code, ok := d.failure("GetSampleRates"); ok {
		return nil, code
	}
	return append([]uint32(nil), dev.SampleRates...), spywrap.AirspySuccess
}

// set runs fn on the device behind h unless op is configured to fail.
func (d *Driver) set(op string, h spywrap.DeviceHandle, fn func(dev *Device) int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev == nil || !dev.open {
		return spywrap.AirspyErrorInvalidParam
	}
	if code, ok := d.failure(op); ok {
		return code
	}
	return fn(dev)
}

func (d *Driver) SetSampleRate(h spywrap.DeviceHandle, sampleRate uint32) int {
	return d.set("SetSampleRate", h, func(dev *Device) int {
		for i, rate := range dev.SampleRates {
			// libairspy accepts either the rate in Hz or its index in the list.
			if rate == sampleRate || uint32(i) == sampleRate {
				dev.SampleRate = rate
				return spywrap.AirspySuccess
			}
		}
		return spywrap.AirspyErrorInvalidParam
	})
}

func (d *Driver) SetSampleType(h spywrap.DeviceHandle, sampleType spywrap.SampleType) int {
	return d.set("SetSampleType", h, func(dev *Device) int {
		if sampleType < 0 || sampleType >= spywrap.AirspySampleEnd {
			return spywrap.AirspyErrorInvalidParam
		}
		dev.SampleType = sampleType
		return spywrap.AirspySuccess
	})
}

func (d *Driver) SetFreq(h spywrap.DeviceHandle, freqHz uint32) int {
	return d.set("SetFreq", h, func(dev *Device) int {
		dev.Frequency = freqHz
		return spywrap.AirspySuccess
	})
}

func gain(dst *uint8, value, limit uint8) int {
	if value > limit {
		return spywrap.AirspyErrorInvalidParam
	}
	*dst = value
	return spywrap.AirspySuccess
}

func (d *Driver) SetLNAGain(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetLNAGain", h, func(dev *Device) int { return gain(&dev.LNAGain, value, 15) })
}

func (d *Driver) SetMixerGain(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetMixerGain", h, func(dev *Device) int { return gain(&dev.MixerGain, value, 15) })
}

func (d *Driver) SetVGAGain(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetVGAGain", h, func(dev *Device) int { return gain(&dev.VGAGain, value, 15) })
}

func (d *Driver) SetLinearityGain(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetLinearityGain", h, func(dev *Device) int { return gain(&dev.LinearityGain, value, 21) })
}

func (d *Driver) SetSensitivityGain(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetSensitivityGain", h, func(dev *Device) int { return gain(&dev.SensitivityGain, value, 21) })
}

func (d *Driver) SetLNAAGC(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetLNAAGC", h, func(dev *Device) int { return gain(&dev.LNAAGC, value, 1) })
}

func (d *Driver) SetMixerAGC(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetMixerAGC", h, func(dev *Device) int { return gain(&dev.MixerAGC, value, 1) })
}

func (d *Driver) SetRFBias(h spywrap.DeviceHandle, value uint8) int {
	return d.set("SetRFBias", h, func(dev *Device) int { return gain(&dev.RFBias, value, 1) })
}

// StartRx marks the device as streaming and synchronously delivers its pending frames.
func (d *Driver) StartRx(h spywrap.DeviceHandle, ctx unsafe.Pointer) int {
	d.mu.Lock()
	dev := d.lookup(h)
	if dev == nil || !dev.open {
		d.mu.Unlock()
		return spywrap.AirspyErrorInvalidParam
	}
	if code, ok := d.failure("StartRx"); ok {
		d.mu.Unlock()
		return code
	}
	if dev.streaming {
		d.mu.Unlock()
		return spywrap.AirspyErrorBusy
	}
	dev.streaming = true
	dev.ctx = ctx
	pending := dev.Pending
	dev.Pending = nil
	d.mu.Unlock()

	for _, f := range pending {
		if d.deliver(dev, f) != 0 {
			break
		}
	}
	return spywrap.AirspySuccess
}

// Emit delivers f to a streaming device as the driver thread would.
// It returns the trampoline result, or AirspyErrorStreamingStopped when dev is not streaming.
func (d *Driver) Emit(dev *Device, f Frame) int {
	d.mu.Lock()
	streaming := dev.streaming
	d.mu.Unlock()
	if !streaming {
		return spywrap.AirspyErrorStreamingStopped
	}
	return d.deliver(dev, f)
}

func (d *Driver) deliver(dev *Device, f Frame) int {
	d.mu.Lock()
	ctx := dev.ctx
	d.mu.Unlock()

	samples, count := samplesOf(f)
	t := spywrap.Transfer{
		Device:         Handle(dev),
		Ctx:            ctx,
		Samples:        samples,
		SampleCount:    count,
		DroppedSamples: f.Dropped,
		SampleType:     f.Type,
	}
	r := spywrap.CallbackTrampoline(&t)
	runtime.KeepAlive(f.Data)

	if r != 0 {
		d.mu.Lock()
		dev.streaming = false
		d.mu.Unlock()
	}
	return r
}

func samplesOf(f Frame) (unsafe.Pointer, int) {
	iq := f.Type == spywrap.AirspySampleFloat32Iq || f.Type == spywrap.AirspySampleInt16Iq
	switch data := f.Data.(type) {
	case []complex64:
		if len(data) > 0 {
			return unsafe.Pointer(&data[0]), len(data)
		}
	case []float32:
		if len(data) > 0 {
			if iq {
				return unsafe.Pointer(&data[0]), len(data) / 2
			}
			return unsafe.Pointer(&data[0]), len(data)
		}
	case []int16:
		if len(data) > 0 {
			if iq {
				return unsafe.Pointer(&data[0]), len(data) / 2
			}
			return unsafe.Pointer(&data[0]), len(data)
		}
	case []uint16:
		if len(data) > 0 {
			return unsafe.Pointer(&data[0]), len(data)
		}
	case []byte:
		if len(data) > 0 {
			return unsafe.Pointer(&data[0]), len(data)
		}
	}
	return nil, 0
}

func (d *Driver) StopRx(h spywrap.DeviceHandle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, ok := d.failure("StopRx"); ok {
		return code
	}
	dev := d.lookup(h)
	if dev == nil {
		return spywrap.AirspyErrorInvalidParam
	}
	dev.streaming = false
	dev.ctx = nil
	return spywrap.AirspySuccess
}

func (d *Driver) IsStreaming(h spywrap.DeviceHandle) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	dev := d.lookup(h)
	if dev != nil && dev.streaming {
		return spywrap.AirspyTrue
	}
	return spywrap.AirspySuccess
}

var _ spywrap.Driver = (*Driver)(nil)
