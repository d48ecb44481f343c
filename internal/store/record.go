// Package store persists the probe target in the node's fixed binary record:
//
//	offset 0  int32 little-endian  check period in seconds
//	offset 4  up to 64 bytes       probe address, NUL terminated
//
// The layout matches the EEPROM image written by the node's earlier
// firmware, so records can be carried over byte for byte.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// Record geometry.
const (
	periodSize    = 4
	addressOffset = periodSize
	RecordSize    = periodSize + watchdog.MaxAddressLen + 1
)

// Store errors.
var (
	ErrNoRecord = errors.New("no stored record")
	ErrCorrupt  = errors.New("corrupt stored record")
)

// Encode renders t as a RecordSize byte record. The tail after the
// terminator is zero-filled.
func Encode(t watchdog.ProbeTarget) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[0:periodSize], uint32(int32(t.PeriodSeconds)))
	copy(buf[addressOffset:], t.Address)
	return buf, nil
}

// Decode parses a record. An address with no terminator inside the record is
// cut at MaxAddressLen bytes, as the firmware did when reading it back.
func Decode(buf []byte) (watchdog.ProbeTarget, error) {
	if len(buf) < RecordSize {
		return watchdog.ProbeTarget{}, fmt.Errorf("%w: %d bytes, want %d", ErrCorrupt, len(buf), RecordSize)
	}

	period := int32(binary.LittleEndian.Uint32(buf[0:periodSize]))

	addr := buf[addressOffset : addressOffset+watchdog.MaxAddressLen+1]
	if i := bytes.IndexByte(addr, 0); i >= 0 {
		addr = addr[:i]
	} else {
		addr = addr[:watchdog.MaxAddressLen]
	}

	t := watchdog.ProbeTarget{Address: string(addr), PeriodSeconds: int(period)}
	if err := t.Validate(); err != nil {
		return watchdog.ProbeTarget{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return t, nil
}
