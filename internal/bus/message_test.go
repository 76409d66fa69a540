package bus

import "testing"

func TestExtractTimestampFieldFloat64(t *testing.T) {
	ts, err := ExtractTimestampField(map[string]any{"timestamp": float64(1700000000000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != 1700000000000 {
		t.Errorf("got %d, want 1700000000000", ts)
	}
}

func TestExtractTimestampFieldMissing(t *testing.T) {
	if _, err := ExtractTimestampField(map[string]any{}); err == nil {
		t.Error("expected an error for a missing timestamp field")
	}
}

func TestExtractTimestampFieldWrongType(t *testing.T) {
	if _, err := ExtractTimestampField(map[string]any{"timestamp": "not a number"}); err == nil {
		t.Error("expected an error for a non-numeric timestamp field")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type payload struct {
		Symbol string `json:"symbol"`
		Price  float64 `json:"price"`
	}
	in := payload{Symbol: "XRPUSD", Price: 0.55}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var out payload
	if err := Decode(data, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestHistoricalTopic(t *testing.T) {
	got := HistoricalTopic("trades_historical_", "20260730120000")
	want := "trades_historical_20260730120000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
