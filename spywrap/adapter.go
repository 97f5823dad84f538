package spywrap

import (
	"unsafe"

	"github.com/racerxdl/spyadapter/internal/log"
)

// Adapter exposes a Driver through the boxed calls the rest of the module uses.
// All Driver methods are available on it directly.
type Adapter struct {
	Driver
}

// Default is the adapter over the native library.
var Default = New(Native())

// New wraps d.
func New(d Driver) *Adapter {
	return &Adapter{Driver: d}
}

// OpenDevice opens the first available airspy.
// The status is not checked: a failed open still returns a record carrying the code.
func (a *Adapter) OpenDevice() *OpenResult {
	res := a.Driver.OpenDevice()
	log.DebugLogMsg("airspy_open: %s (%d)", ErrorName(res.Result), res.Result)
	return res
}

// OpenDeviceBySerial opens the airspy with the given serial number.
// An unknown serial is reported through Result, never as a panic.
func (a *Adapter) OpenDeviceBySerial(serialNumber uint64) *OpenResult {
	res := a.Driver.OpenDeviceBySerial(serialNumber)
	log.DebugLogMsg("airspy_open_sn 0x%016x: %s (%d)", serialNumber, ErrorName(res.Result), res.Result)
	return res
}

// ReleaseOpenResult frees the allocation behind r. It does not close r.Device.
// Releasing nil or an already released record is a no-op.
func (a *Adapter) ReleaseOpenResult(r *OpenResult) {
	if r == nil || r.released {
		return
	}
	r.released = true
	a.Driver.FreeOpenResult(r)
	r.box = nil
}

// StartStreaming starts rx on dev with the package trampoline as the native callback.
// ctx comes back untouched in every Transfer.Ctx; it must stay valid until streaming
// stops and, since C keeps it, it must not point to Go memory.
func (a *Adapter) StartStreaming(dev DeviceHandle, ctx unsafe.Pointer) int {
	return a.Driver.StartRx(dev, ctx)
}

// FreeOpenResult routes through ReleaseOpenResult so a record is never freed twice.
func (a *Adapter) FreeOpenResult(r *OpenResult) {
	a.ReleaseOpenResult(r)
}
