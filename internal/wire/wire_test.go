package wire

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 40}
	for _, v := range cases {
		b := AppendVarint(nil, v)
		got, n, err := ConsumeVarint(b)
		if err != nil {
			t.Fatalf("ConsumeVarint(%d): %v", v, err)
		}
		if n != len(b) || got != v {
			t.Fatalf("roundtrip %d: got %d, consumed %d/%d", v, got, n, len(b))
		}
	}
}

func TestTagRoundTrip(t *testing.T) {
	b := AppendTag(nil, 7, BytesType)
	num, typ, n, err := ConsumeTag(b)
	if err != nil {
		t.Fatal(err)
	}
	if num != 7 || typ != BytesType || n != len(b) {
		t.Fatalf("got num=%d typ=%d n=%d", num, typ, n)
	}
}

func TestResourceTypeRoundTrip(t *testing.T) {
	b := AppendTag(nil, 3, ResourceType)
	b = AppendVarint(b, 42)
	num, typ, n, err := ConsumeTag(b)
	if err != nil {
		t.Fatal(err)
	}
	if typ != ResourceType || num != 3 {
		t.Fatalf("got num=%d typ=%d", num, typ)
	}
	v, vn, err := ConsumeVarint(b[n:])
	if err != nil || v != 42 || n+vn != len(b) {
		t.Fatalf("resource index roundtrip failed: v=%d err=%v", v, err)
	}
}

func TestConsumeVarintEOF(t *testing.T) {
	_, _, err := ConsumeVarint(nil)
	if err == nil {
		t.Fatal("expected error on empty input")
	}
	if !IsEOF(err) {
		t.Fatalf("expected EOF-classified error, got %v", err)
	}
}

func TestConsumeFieldValueSkipsResource(t *testing.T) {
	b := AppendVarint(nil, 9)
	n, err := ConsumeFieldValue(1, ResourceType, b)
	if err != nil || n != len(b) {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
