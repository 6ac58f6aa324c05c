package dnwire

import "testing"

func TestIntegerRoundTrip(t *testing.T) {
	cases := []struct {
		value uint64
		size  int
		big   bool
	}{
		{0xAABBCCDD, 4, false},
		{0xAABBCCDD, 4, true},
		{0x00, 1, false},
		{0xFF, 1, false},
		{0x1234, 2, true},
	}

	for _, c := range cases {
		encoded := IntegerToBytes(c.value, c.size, c.big)
		if len(encoded) != c.size {
			t.Fatalf("IntegerToBytes(%#x, %d, %v) length = %d, want %d", c.value, c.size, c.big, len(encoded), c.size)
		}
		decoded := BytesToInteger(encoded, c.big)
		if decoded != c.value {
			t.Errorf("round trip of %#x (size %d big %v) = %#x", c.value, c.size, c.big, decoded)
		}
	}
}

func TestIntegerToBytesLittleEndianLayout(t *testing.T) {
	got := IntegerToBytes(0xAABBCCDD, 4, false)
	want := []byte{0xDD, 0xCC, 0xBB, 0xAA}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IntegerToBytes little endian = % X, want % X", got, want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	encoded := StringToBytes("Test")
	want := []byte{4, 'T', 'e', 's', 't'}
	if len(encoded) != len(want) {
		t.Fatalf("StringToBytes length = %d, want %d", len(encoded), len(want))
	}
	for i := range want {
		if encoded[i] != want[i] {
			t.Fatalf("StringToBytes = % X, want % X", encoded, want)
		}
	}

	decoded, err := BytesToString(encoded)
	if err != nil {
		t.Fatalf("BytesToString: %v", err)
	}
	if decoded != "Test" {
		t.Errorf("BytesToString = %q, want %q", decoded, "Test")
	}
}

func TestBytesToStringTrimsTrailingNUL(t *testing.T) {
	stream := []byte{4, 'T', 'e', 's', 0, 0}
	decoded, err := BytesToString(stream)
	if err != nil {
		t.Fatalf("BytesToString: %v", err)
	}
	if decoded != "Tes" {
		t.Errorf("BytesToString = %q, want %q", decoded, "Tes")
	}
}

func TestBytesToStringTooShort(t *testing.T) {
	if _, err := BytesToString([]byte{10, 'a'}); err == nil {
		t.Fatal("expected error for truncated string stream")
	}
}

func TestStringToBytesTruncatesTo255(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	encoded := StringToBytes(string(long))
	if len(encoded) != 255 {
		t.Fatalf("StringToBytes length = %d, want 255", len(encoded))
	}
}
