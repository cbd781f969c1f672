package h2

import (
	"sync"

	"github.com/coreh2/h2/h2utils"
)

// SettingID identifies a single SETTINGS parameter.
//
// https://tools.ietf.org/html/rfc7540#section-6.5.2
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

// Default values for parameters a peer hasn't overridden.
//
// https://tools.ietf.org/html/rfc7540#section-6.5.2
const (
	DefaultHeaderTableSize      = 4096
	DefaultInitialWindowSize    = 65535
	DefaultMaxHeaderListSize    = 1 << 32 - 1 // unbounded, per spec
	MaxWindowSize               = 1<<31 - 1
)

type settingEntry struct {
	id    SettingID
	value uint32
}

// Settings represents a SETTINGS frame: either a set of parameter
// updates, or (when Ack is set) the empty acknowledgement of one.
//
// https://tools.ietf.org/html/rfc7540#section-6.5
type Settings struct {
	ack     bool
	entries []settingEntry
}

var settingsPool = sync.Pool{New: func() interface{} { return &Settings{} }}

func acquireSettings() *Settings { return settingsPool.Get().(*Settings) }
func releaseSettings(s *Settings) {
	s.Reset()
	settingsPool.Put(s)
}

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() {
	s.ack = false
	s.entries = s.entries[:0]
}

func (s *Settings) Ack() bool     { return s.ack }
func (s *Settings) SetAck(v bool) { s.ack = v }

// Add appends a parameter/value pair to be sent.
func (s *Settings) Add(id SettingID, value uint32) {
	s.entries = append(s.entries, settingEntry{id, value})
}

// Each calls fn once per parameter/value pair carried by the frame, in
// wire order, as required when applying updates to INITIAL_WINDOW_SIZE.
func (s *Settings) Each(fn func(id SettingID, value uint32)) {
	for _, e := range s.entries {
		fn(e.id, e.value)
	}
}

func (s *Settings) Deserialize(fr *FrameHeader) error {
	if fr.Stream() != 0 {
		return NewConnectionError(ProtocolError, "SETTINGS frame must be on stream 0")
	}

	if fr.Flags().Has(FlagAck) {
		if len(fr.payload) != 0 {
			return NewConnectionError(FrameSizeError, "SETTINGS ack must be empty")
		}
		s.ack = true
		return nil
	}

	payload := fr.payload
	for len(payload) > 0 {
		id := SettingID(uint16(payload[0])<<8 | uint16(payload[1]))
		value := h2utils.BytesToUint32(payload[2:6])

		if err := validateSetting(id, value); err != nil {
			return err
		}

		s.entries = append(s.entries, settingEntry{id, value})
		payload = payload[6:]
	}

	return nil
}

func validateSetting(id SettingID, value uint32) error {
	switch id {
	case SettingEnablePush:
		if value > 1 {
			return NewConnectionError(ProtocolError, "SETTINGS_ENABLE_PUSH must be 0 or 1")
		}
	case SettingInitialWindowSize:
		if value > MaxWindowSize {
			return NewConnectionError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE exceeds maximum")
		}
	case SettingMaxFrameSize:
		if value < DefaultMaxFrameSize || value > MaxFrameSizeCeiling {
			return NewConnectionError(ProtocolError, "SETTINGS_MAX_FRAME_SIZE out of range")
		}
	}
	return nil
}

func (s *Settings) Serialize(fr *FrameHeader) {
	if s.ack {
		fr.SetFlags(fr.Flags().Add(FlagAck))
		fr.setPayload(nil)
		return
	}

	buf := make([]byte, 0, len(s.entries)*6)
	for _, e := range s.entries {
		buf = append(buf, byte(e.id>>8), byte(e.id))
		buf = h2utils.AppendUint32Bytes(buf, e.value)
	}
	fr.setPayload(buf)
}
