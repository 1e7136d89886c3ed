package dicom

import "testing"

func TestDecodeStringWithCharacterSetDefault(t *testing.T) {
	got := DecodeStringWithCharacterSet([]byte("DOE^JOHN "), "")
	if got != "DOE^JOHN" {
		t.Errorf("got %q, want %q", got, "DOE^JOHN")
	}
}

func TestDecodeStringWithCharacterSetLatin1(t *testing.T) {
	// 0xE9 in ISO-8859-1 is e-acute.
	got := DecodeStringWithCharacterSet([]byte{0xE9}, "ISO_IR 100")
	if got != "é" {
		t.Errorf("got %q, want é", got)
	}
}

func TestDecodeStringWithCharacterSetUnrecognised(t *testing.T) {
	got := DecodeStringWithCharacterSet([]byte("PLAIN"), "ISO 2022 IR 87")
	if got != "PLAIN" {
		t.Errorf("got %q, want %q (raw passthrough)", got, "PLAIN")
	}
}
