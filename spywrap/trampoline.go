package spywrap

import (
	"sync/atomic"
	"unsafe"

	"github.com/racerxdl/spyadapter/internal/log"
)

// Callback receives every completed transfer. A non-zero return stops streaming.
// It runs on a driver owned thread.
type Callback func(ctx unsafe.Pointer, transfer *Transfer) int

var registered atomic.Pointer[Callback]

// RegisterCallback installs the process wide callback used by CallbackTrampoline.
// Register before starting a stream; the slot is shared by every device, which tell
// their transfers apart through the stream context.
func RegisterCallback(cb Callback) {
	if cb == nil {
		registered.Store(nil)
		return
	}
	registered.Store(&cb)
}

// CallbackTrampoline is the native rx callback. It forwards the transfer context and
// the transfer to the registered callback and returns its result unchanged.
// Without a registered callback it returns 1 so the driver stops.
func CallbackTrampoline(transfer *Transfer) int {
	cb := registered.Load()
	if cb == nil {
		log.TraceLogMsg("airspy transfer dropped: no callback registered")
		return 1
	}
	return (*cb)(transfer.Ctx, transfer)
}
