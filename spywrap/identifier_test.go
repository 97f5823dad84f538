package spywrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnpackIdentifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		words  []uint32
		serial uint64
		part   uint64
	}{
		{
			name:   "distinct words",
			words:  []uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444},
			serial: 0x4444444433333333,
			part:   0x2222222211111111,
		},
		{
			name:   "zero",
			words:  []uint32{0, 0, 0, 0},
			serial: 0,
			part:   0,
		},
		{
			name:   "low words only",
			words:  []uint32{0xDEADBEEF, 0, 0xCAFEBABE, 0},
			serial: 0x00000000CAFEBABE,
			part:   0x00000000DEADBEEF,
		},
		{
			name:   "all ones",
			words:  []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
			serial: 0xFFFFFFFFFFFFFFFF,
			part:   0xFFFFFFFFFFFFFFFF,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.serial, UnpackSerialNumber(tt.words))
			assert.Equal(t, tt.part, UnpackPartNumber(tt.words))
		})
	}
}

func TestUnpackPartNumberTwoWords(t *testing.T) {
	t.Parallel()

	// part_id is only two words wide on the board.
	assert.Equal(t, uint64(0x6906002B00000030), UnpackPartNumber([]uint32{0x00000030, 0x6906002B}))
}

func TestUnpackShortInputPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { UnpackSerialNumber([]uint32{1, 2}) })
}

func TestCharStringToString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AirSpy", CharStringToString([]byte{'A', 'i', 'r', 'S', 'p', 'y', 0, 'x'}))
	assert.Equal(t, "abc", CharStringToString([]byte("abc")))
	assert.Equal(t, "", CharStringToString([]byte{0, 'a'}))
	assert.Equal(t, "", CharStringToString(nil))
}

func TestErrorName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AIRSPY_SUCCESS", ErrorName(AirspySuccess))
	assert.Equal(t, "AIRSPY_ERROR_NOT_FOUND", ErrorName(AirspyErrorNotFound))
	assert.Equal(t, "AIRSPY_ERROR_STREAMING_STOPPED", ErrorName(AirspyErrorStreamingStopped))
	assert.Equal(t, "airspy unknown error", ErrorName(-12345))
	assert.Equal(t, "AIRSPY", BoardIDName(AirspyBoardIdProtoAirspy))
	assert.Equal(t, "Invalid Board ID", BoardIDName(AirspyBoardIdInvalid))
}

func TestParseSampleType(t *testing.T) {
	t.Parallel()

	for st := AirspySampleFloat32Iq; st < AirspySampleEnd; st++ {
		got, err := ParseSampleType(st.String())
		assert.NoError(t, err)
		assert.Equal(t, st, got)
	}

	_, err := ParseSampleType("int24-iq")
	assert.Error(t, err)
}
