package session

import (
	"testing"
	"time"
)

// FuzzSessionDecode exercises the binary session decoder with arbitrary inputs.
func FuzzSessionDecode(f *testing.F) {
	sess := &Session{
		AccountID:  "01HZX3Q9K7M2N4P6R8S0T2V4W6",
		CreatedAt:  time.Unix(1700000000, 0),
		LastAccess: time.Unix(1700003600, 0),
		Device:     DeviceInfo{UserAgent: "curl/8.0", IP: "10.0.0.1", Label: "laptop"},
	}
	encoded, err := Encode(sess)
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}
	if len(encoded) > 30 {
		f.Add(encoded[:30])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("re-encode of decoded session failed: %v", err)
		}
	})
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	if _, err := Decode([]byte{99}); err == nil {
		t.Fatal("expected unsupported schema version error")
	}
}

func TestEncodeTruncatesLongUserAgent(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	blob, err := Encode(&Session{AccountID: "a1", Device: DeviceInfo{UserAgent: string(long)}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Device.UserAgent) != maxUserAgentLen {
		t.Fatalf("user agent length %d, want %d", len(got.Device.UserAgent), maxUserAgentLen)
	}
}

func TestIndexRoundTrip(t *testing.T) {
	blob, err := encodeIndex([]string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("encodeIndex: %v", err)
	}
	ids, err := decodeIndex(blob)
	if err != nil || len(ids) != 3 || ids[2] != "ccc" {
		t.Fatalf("decodeIndex = %v, %v", ids, err)
	}
}
