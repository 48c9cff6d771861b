package domain

import (
	"encoding/json"
	"testing"
)

func TestSummarySerializationPreservesReportingState(t *testing.T) {
	x := formalLock(0, "com.example.A", "x")
	y := formalLock(0, "com.example.A", "y")

	st := Bottom().OnUI().Acquire(x, procM, locAt(3)).Acquire(y, procM, locAt(4))
	sum := MakeSummary(st)

	data, err := json.Marshal(sum)
	if err != nil {
		t.Fatal(err)
	}
	var back Summary
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}

	if back.Pairs.Len() != sum.Pairs.Len() {
		t.Fatalf("pairs after round-trip = %d, want %d", back.Pairs.Len(), sum.Pairs.Len())
	}
	if !back.UIThread.IsTrue() {
		t.Error("thread flag lost")
	}
	for i, p := range back.Pairs.All() {
		q := sum.Pairs.All()[i]
		if p.Fingerprint() != q.Fingerprint() {
			t.Errorf("pair %d fingerprint changed: %q vs %q", i, p.Fingerprint(), q.Fingerprint())
		}
	}
}
