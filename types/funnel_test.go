package types

import (
	"encoding/json"
	"testing"
)

func TestStepStatsWireShape(t *testing.T) {
	stats := StepStats{
		"0": {StartTime: "2025-06-01T12:00:00Z", ViewTime: 42.5, Completed: true},
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"0":{"start_time":"2025-06-01T12:00:00Z","view_time":42.5,"completed":true}}`
	if string(raw) != want {
		t.Errorf("wire form = %s, want %s", raw, want)
	}

	var back StepStats
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["0"] != stats["0"] {
		t.Errorf("round trip = %+v, want %+v", back["0"], stats["0"])
	}
}

func TestStepStatsCloneDoesNotAlias(t *testing.T) {
	orig := StepStats{"0": {StartTime: "2025-06-01T12:00:00Z"}}
	c := orig.Clone()
	c["0"] = StepStat{StartTime: "2025-06-01T12:00:00Z", Completed: true}
	c["1"] = StepStat{StartTime: "2025-06-01T12:05:00Z"}

	if orig["0"].Completed {
		t.Error("mutating the clone changed the original entry")
	}
	if _, ok := orig["1"]; ok {
		t.Error("adding to the clone grew the original map")
	}
}

func TestContentKindValid(t *testing.T) {
	for _, k := range []ContentKind{KindText, KindPhoto, KindVideo, KindAudio, KindDocument} {
		if !k.Valid() {
			t.Errorf("%q reported invalid", k)
		}
	}
	if ContentKind("sticker").Valid() {
		t.Error("sticker reported valid")
	}
}
