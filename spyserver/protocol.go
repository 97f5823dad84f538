package spyserver

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DefaultSoftwareID is the software ID sent to SpyServer in the hello command.
// Use WithSoftwareID to announce your own application name.
const DefaultSoftwareID = "SpyAdapter 1.0"

// ProtocolVersion packed into a integer.
// Defined by ((major) << 24) | ((minor) << 16) | (revision)
const ProtocolVersion = ((2) << 24) | ((0) << 16) | (1558)

const maxMessageBodySize = 1 << 20

// MaxDisplayPixels is the max possible pixels for Spyserver FFT width
const MaxDisplayPixels = 1 << 15

// MinDisplayPixels is the min possible pixels for Spyserver FFT width
const MinDisplayPixels = 100

// MaxFFTDBRange is the maximum dB Value for FFT Range
const MaxFFTDBRange = 150

// MinFFTDBRange is the minimum dB Value for FFT Range
const MinFFTDBRange = 10

// MaxFFTDBOffset bounds the FFT offset in both directions.
const MaxFFTDBOffset = 100

const defaultFFTRange = 127
const defaultDisplayPixels = 2000

// DeviceIds IDs of the devices in spyserver
const (
	DeviceInvalid   = 0
	DeviceAirspyOne = 1
	DeviceAirspyHf  = 2
	DeviceRtlsdr    = 3
)

// DeviceNames names of the devices
const (
	DeviceInvalidName   = "Invalid Device"
	DeviceAirspyOneName = "Airspy Mini / R2"
	DeviceAirspyHFName  = "Airspy HF / HF+"
	DeviceRtlsdrName    = "RTLSDR"
)

// DeviceName list of device names by their ids
var DeviceName = map[uint32]string{
	DeviceInvalid:   DeviceInvalidName,
	DeviceAirspyOne: DeviceAirspyOneName,
	DeviceAirspyHf:  DeviceAirspyHFName,
	DeviceRtlsdr:    DeviceRtlsdrName,
}

const (
	cmdHello      = 0
	cmdGetSetting = 1
	cmdSetSetting = 2
	cmdPing       = 3
)

const (
	settingStreamingMode    = 0
	settingStreamingEnabled = 1
	settingGain             = 2

	settingIqFormat     = 100
	settingIqFrequency  = 101
	settingIqDecimation = 102

	settingFFTFormat        = 200
	settingFFTFrequency     = 201
	settingFFTDecimation    = 202
	settingFFTDbOffset      = 203
	settingFFTDbRange       = 204
	settingFFTDisplayPixels = 205
)

// StreamTypes is a enum that defines which stream types the spyserver supports.
const (
	StreamTypeStatus = 0
	StreamTypeIQ     = 1
	StreamTypeAF     = 2
	StreamTypeFFT    = 4
)

const (
	// StreamModeIQOnly only enables IQ Channel
	StreamModeIQOnly = StreamTypeIQ

	// StreamModeFFTOnly only enables FFT Channel
	StreamModeFFTOnly = StreamTypeFFT

	// StreamModeFFTIQ enables both IQ and FFT Channels
	StreamModeFFTIQ = StreamTypeFFT | StreamTypeIQ
)

const (
	StreamFormatUint8 = 1
	StreamFormatInt16 = 2
	StreamFormatFloat = 4
)

const (
	msgTypeDeviceInfo  = 0
	msgTypeClientSync  = 1
	msgTypePong        = 2
	msgTypeReadSetting = 3

	msgTypeUint8IQ = 100
	msgTypeInt16IQ = 101
	msgTypeInt24IQ = 102
	msgTypeFloatIQ = 103

	msgTypeUint8FFT = 301
)

var messageTypeNames = map[uint32]string{
	msgTypeDeviceInfo:  "device_info",
	msgTypeClientSync:  "client_sync",
	msgTypePong:        "pong",
	msgTypeReadSetting: "read_setting",
	msgTypeUint8IQ:     "uint8_iq",
	msgTypeInt16IQ:     "int16_iq",
	msgTypeInt24IQ:     "int24_iq",
	msgTypeFloatIQ:     "float_iq",
	msgTypeUint8FFT:    "uint8_fft",
}

func messageTypeName(t uint32) string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%d", t)
}

// iq messages carry the sequence numbers used for drop accounting.
func isIQMessage(t uint32) bool {
	return t >= msgTypeUint8IQ && t <= msgTypeFloatIQ
}

type commandHeader struct {
	CommandType uint32
	BodySize    uint32
}

type messageHeader struct {
	ProtocolID     uint32
	MessageType    uint32
	StreamType     uint32
	SequenceNumber uint32
	BodySize       uint32
}

const messageHeaderSize = 20

type deviceInfo struct {
	DeviceType           uint32
	DeviceSerial         uint32
	MaximumSampleRate    uint32
	MaximumBandwidth     uint32
	DecimationStageCount uint32
	GainStageCount       uint32
	MaximumGainIndex     uint32
	MinimumFrequency     uint32
	MaximumFrequency     uint32
	Resolution           uint32
	MinimumIQDecimation  uint32
	ForcedIQFormat       uint32
}

type clientSync struct {
	CanControl                uint32
	Gain                      uint32
	DeviceCenterFrequency     uint32
	IQCenterFrequency         uint32
	FFTCenterFrequency        uint32
	MinimumIQCenterFrequency  uint32
	MaximumIQCenterFrequency  uint32
	MinimumFFTCenterFrequency uint32
	MaximumFFTCenterFrequency uint32
}

func decodeHeader(b []byte) messageHeader {
	return messageHeader{
		ProtocolID:     binary.LittleEndian.Uint32(b[0:]),
		MessageType:    binary.LittleEndian.Uint32(b[4:]),
		StreamType:     binary.LittleEndian.Uint32(b[8:]),
		SequenceNumber: binary.LittleEndian.Uint32(b[12:]),
		BodySize:       binary.LittleEndian.Uint32(b[16:]),
	}
}

func encodeHeader(h messageHeader) []byte {
	b := make([]byte, messageHeaderSize)
	binary.LittleEndian.PutUint32(b[0:], h.ProtocolID)
	binary.LittleEndian.PutUint32(b[4:], h.MessageType)
	binary.LittleEndian.PutUint32(b[8:], h.StreamType)
	binary.LittleEndian.PutUint32(b[12:], h.SequenceNumber)
	binary.LittleEndian.PutUint32(b[16:], h.BodySize)
	return b
}

// encodeCommand builds a command frame with a little endian uint32 payload.
func encodeCommand(cmd uint32, payload []byte) []byte {
	h := commandHeader{CommandType: cmd, BodySize: uint32(len(payload))}
	b := make([]byte, 8, 8+len(payload))
	binary.LittleEndian.PutUint32(b[0:], h.CommandType)
	binary.LittleEndian.PutUint32(b[4:], h.BodySize)
	return append(b, payload...)
}

func encodeWords(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

// decodeWords fills the uint32 fields of v from body. Older servers send shorter
// structures, the missing trailing fields are left at zero.
func decodeWords(body []byte, v interface{}) error {
	padded := make([]byte, binary.Size(v))
	copy(padded, body)
	return binary.Read(bytes.NewReader(padded), binary.LittleEndian, v)
}

func protocolMajorMinor(v uint32) (uint8, uint8) {
	return uint8(v >> 24), uint8(v >> 16)
}
