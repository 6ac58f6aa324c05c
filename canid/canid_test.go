package canid

import "testing"

func TestToCANKnownValue(t *testing.T) {
	got, err := ToCAN(Group2, 4, 1)
	if err != nil {
		t.Fatalf("ToCAN: %v", err)
	}
	if got != 0x40C {
		t.Errorf("ToCAN(Group2, 4, 1) = 0x%03X, want 0x40C", got)
	}
}

func TestFromCANKnownValue(t *testing.T) {
	group, msgID, mac, err := FromCAN(0x40B)
	if err != nil {
		t.Fatalf("FromCAN: %v", err)
	}
	if group != Group2 || msgID != 3 || mac != 1 {
		t.Errorf("FromCAN(0x40B) = (%d, %d, %d), want (2, 3, 1)", group, msgID, mac)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		group Group
		msgID int
		mac   int
	}{
		{Group1, 0, 0},
		{Group1, 15, 63},
		{Group2, 0, 0},
		{Group2, 7, 63},
		{Group3, 0, 0},
		{Group3, 6, 63},
		{Group4, 0, 0},
		{Group4, 47, 0},
	}

	for _, c := range cases {
		id, err := ToCAN(c.group, c.msgID, c.mac)
		if err != nil {
			t.Fatalf("ToCAN(%v, %d, %d): %v", c.group, c.msgID, c.mac, err)
		}

		group, msgID, mac, err := FromCAN(id)
		if err != nil {
			t.Fatalf("FromCAN(0x%03X): %v", id, err)
		}
		if group != c.group || msgID != c.msgID || (c.group != Group4 && mac != c.mac) {
			t.Errorf("round trip of (%v, %d, %d) -> 0x%03X -> (%v, %d, %d)",
				c.group, c.msgID, c.mac, id, group, msgID, mac)
		}
	}
}

func TestToCANRejectsOutOfRange(t *testing.T) {
	if _, err := ToCAN(Group1, 16, 0); err == nil {
		t.Error("expected error for group 1 message id 16")
	}
	if _, err := ToCAN(Group2, 8, 0); err == nil {
		t.Error("expected error for group 2 message id 8")
	}
	if _, err := ToCAN(Group3, 7, 0); err == nil {
		t.Error("expected error for group 3 message id 7")
	}
	if _, err := ToCAN(Group1, 0, 64); err == nil {
		t.Error("expected error for mac 64")
	}
}

func TestFromCANRejectsReservedRange(t *testing.T) {
	if _, _, _, err := FromCAN(0x7F5); err == nil {
		t.Error("expected error for reserved CAN id range")
	}
}
