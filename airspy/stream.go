package airspy

import (
	"unsafe"

	"github.com/mattn/go-pointer"

	"github.com/racerxdl/spyadapter/internal/log"
	"github.com/racerxdl/spyadapter/internal/metrics"
	"github.com/racerxdl/spyadapter/spytypes"
	"github.com/racerxdl/spyadapter/spywrap"
)

// Start starts streaming. Samples go to the callback set with SetCallback.
func (f *Device) Start() error {
	if f.ctx != nil && f.IsStreaming() {
		return nil
	}
	f.releaseContext()

	spywrap.RegisterCallback(dispatch)

	// C keeps the context for the whole session, so it gets a go-pointer handle instead of f.
	ctx := pointer.Save(f)
	if err := check("start_rx", f.adapter.StartStreaming(f.instance, ctx)); err != nil {
		pointer.Unref(ctx)
		return err
	}
	f.ctx = ctx

	log.DebugLogMsg("%s: streaming started", f.name)
	return nil
}

// Stop stops streaming (if started).
func (f *Device) Stop() error {
	var err error
	if f.IsStreaming() {
		err = check("stop_rx", f.adapter.StopRx(f.instance))
		log.DebugLogMsg("%s: streaming stopped", f.name)
	}
	f.releaseContext()
	return err
}

func (f *Device) releaseContext() {
	if f.ctx != nil {
		pointer.Unref(f.ctx)
		f.ctx = nil
	}
}

// dispatch is the process wide spywrap callback. Every device started by this
// package is reached through the context handle of its transfers.
func dispatch(ctx unsafe.Pointer, transfer *spywrap.Transfer) int {
	f, ok := pointer.Restore(ctx).(*Device)
	if !ok || f == nil {
		log.WarningLogMsg("airspy transfer with unknown context %p", ctx)
		return 1
	}
	return f.onTransfer(transfer)
}

func (f *Device) onTransfer(transfer *spywrap.Transfer) int {
	metrics.AirspyTransfers.WithLabelValues(f.serialLabel).Inc()
	metrics.AirspySamples.WithLabelValues(f.serialLabel).Add(float64(transfer.SampleCount))
	if transfer.DroppedSamples > 0 {
		metrics.AirspyDroppedSamples.WithLabelValues(f.serialLabel).Add(float64(transfer.DroppedSamples))
		log.TraceLogMsg("%s: driver dropped %d samples", f.name, transfer.DroppedSamples)
	}

	box := f.cb.Load()
	if box == nil {
		return 0
	}

	kind, data, ok := decodeSamples(transfer)
	if !ok {
		log.WarningLogMsg("%s: unknown sample type %d received", f.name, transfer.SampleType)
		return 1
	}

	box.cb.OnData(kind, data)
	return 0
}

var sampleKinds = map[spywrap.SampleType]spytypes.SampleKind{
	spywrap.AirspySampleFloat32Iq:   spytypes.SamplesComplex64,
	spywrap.AirspySampleFloat32Real: spytypes.SamplesFloat32,
	spywrap.AirspySampleInt16Iq:     spytypes.SamplesComplex32,
	spywrap.AirspySampleInt16Real:   spytypes.SamplesInt16,
	spywrap.AirspySampleUint16Real:  spytypes.SamplesUInt16,
	spywrap.AirspySampleRaw:         spytypes.SamplesBytes,
}

// SampleKindOf returns the kind the callback receives for sample type t.
func SampleKindOf(t spywrap.SampleType) (spytypes.SampleKind, bool) {
	k, ok := sampleKinds[t]
	return k, ok
}

// decodeSamples copies the transfer samples out of driver memory.
func decodeSamples(transfer *spywrap.Transfer) (spytypes.SampleKind, interface{}, bool) {
	kind, ok := SampleKindOf(transfer.SampleType)
	if !ok {
		return 0, nil, false
	}

	p, n := transfer.Samples, transfer.SampleCount
	switch transfer.SampleType {
	case spywrap.AirspySampleFloat32Iq:
		return kind, copySamples[complex64](p, n), true
	case spywrap.AirspySampleFloat32Real:
		return kind, copySamples[float32](p, n), true
	case spywrap.AirspySampleInt16Iq:
		return kind, copySamples[spytypes.ComplexInt16](p, n), true
	case spywrap.AirspySampleInt16Real:
		return kind, copySamples[int16](p, n), true
	case spywrap.AirspySampleUint16Real:
		return kind, copySamples[uint16](p, n), true
	default:
		return kind, copySamples[byte](p, n), true
	}
}

func copySamples[T any](p unsafe.Pointer, n int) []T {
	out := make([]T, n)
	if p != nil && n > 0 {
		copy(out, unsafe.Slice((*T)(p), n))
	}
	return out
}
