package codec

import (
	"errors"
	"testing"
)

type payload struct {
	Name  string         `msgpack:"name"`
	Count int            `msgpack:"count"`
	Tags  map[string]any `msgpack:"tags,omitempty"`
}

func TestRoundTrip(t *testing.T) {
	in := payload{Name: "x", Count: 3, Tags: map[string]any{"k": "v"}}
	raw, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != version {
		t.Fatalf("version byte = %d", raw[0])
	}

	var out payload
	if err := Decode(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || out.Count != in.Count || out.Tags["k"] != "v" {
		t.Fatalf("round trip = %+v", out)
	}
}

func TestDecodeRejects(t *testing.T) {
	if err := Decode(nil, &payload{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty payload: %v", err)
	}
	if err := Decode([]byte{99, 0}, &payload{}); err == nil {
		t.Fatal("unknown version accepted")
	}
}
