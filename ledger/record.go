package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const recordVersionV1 = 1

const (
	flagRotated byte = 1 << iota
	flagRevoked
	flagReuseDetected
)

// Record is the tracked state of one issued refresh token. The jti is the
// storage key and is not repeated inside the record.
type Record struct {
	UserID        string
	DeviceID      string
	TokenHash     [32]byte
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RotatedAt     time.Time
	RevokedAt     time.Time
	ReuseDetected bool
}

// Rotated reports whether the record has been superseded.
func (r *Record) Rotated() bool { return !r.RotatedAt.IsZero() }

// Revoked reports whether the record has been explicitly killed.
func (r *Record) Revoked() bool { return !r.RevokedAt.IsZero() }

// Expired reports whether the underlying token has passed its expiry.
func (r *Record) Expired(now time.Time) bool { return now.After(r.ExpiresAt) }

func encodeRecord(record *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)

	var flags byte
	if record.Rotated() {
		flags |= flagRotated
	}
	if record.Revoked() {
		flags |= flagRevoked
	}
	if record.ReuseDetected {
		flags |= flagReuseDetected
	}
	buf.WriteByte(flags)

	for _, ts := range []time.Time{record.IssuedAt, record.ExpiresAt, record.RotatedAt, record.RevokedAt} {
		var unix int64
		if !ts.IsZero() {
			unix = ts.Unix()
		}
		if err := binary.Write(&buf, binary.BigEndian, unix); err != nil {
			return nil, err
		}
	}

	for _, field := range []string{record.UserID, record.DeviceID} {
		if len(field) > 65535 {
			return nil, errors.New("ledger: record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	buf.Write(record.TokenHash[:])

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordVersionV1 {
		return nil, errors.New("ledger: invalid record version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &Record{
		ReuseDetected: flags&flagReuseDetected != 0,
	}

	var issued, expires, rotated, revoked int64
	for _, dst := range []*int64{&issued, &expires, &rotated, &revoked} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}
	record.IssuedAt = time.Unix(issued, 0)
	record.ExpiresAt = time.Unix(expires, 0)
	if flags&flagRotated != 0 {
		record.RotatedAt = time.Unix(rotated, 0)
	}
	if flags&flagRevoked != 0 {
		record.RevokedAt = time.Unix(revoked, 0)
	}

	for _, dst := range []*string{&record.UserID, &record.DeviceID} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		field := make([]byte, length)
		if _, err := io.ReadFull(reader, field); err != nil {
			return nil, err
		}
		*dst = string(field)
	}

	if _, err := io.ReadFull(reader, record.TokenHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
