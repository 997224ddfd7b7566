package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	sessionFormatVersionCurrent = 1

	indexFormatVersionCurrent = 1

	maxUserAgentLen = 512
)

// Encode serializes s. The session id is the storage key and is not encoded.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if err := writeString8(&buf, "accountID", s.AccountID); err != nil {
		return nil, err
	}

	ua := s.Device.UserAgent
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(ua))); err != nil {
		return nil, err
	}
	buf.WriteString(ua)

	if err := writeString8(&buf, "ip", s.Device.IP); err != nil {
		return nil, err
	}
	if err := writeString8(&buf, "label", s.Device.Label); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastAccess.UnixNano()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{}

	if s.AccountID, err = readString8(reader); err != nil {
		return nil, err
	}

	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return nil, err
	}
	if uaLen > maxUserAgentLen {
		return nil, errors.New("user agent too long")
	}
	ua := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, ua); err != nil {
		return nil, err
	}
	s.Device.UserAgent = string(ua)

	if s.Device.IP, err = readString8(reader); err != nil {
		return nil, err
	}
	if s.Device.Label, err = readString8(reader); err != nil {
		return nil, err
	}

	var created, last int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &last); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	s.LastAccess = time.Unix(0, last).UTC()

	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}
	return s, nil
}

// encodeIndex serializes an account's session id list.
func encodeIndex(ids []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(indexFormatVersionCurrent)
	if len(ids) > 0xFFFF {
		return nil, errors.New("session index too large")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(ids))); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := writeString8(&buf, "sessionID", id); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeIndex(data []byte) ([]string, error) {
	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != indexFormatVersionCurrent {
		return nil, fmt.Errorf("unsupported session index version %d", version)
	}
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	ids := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		id, err := readString8(reader)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeString8(buf *bytes.Buffer, field, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("%s too long", field)
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
