package leads

import (
	"testing"
	"time"
)

func TestMergeAdvancedKeepsHighestIndexAndConcurrentAdds(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := SequenceInstance{Trigger: "NuevoLead", StartTime: start, Index: 1}
	b := SequenceInstance{Trigger: "LetraEnviada", StartTime: start.Add(time.Hour), Index: 0}

	current := []SequenceInstance{a, b}
	advanced := []SequenceInstance{{Trigger: "NuevoLead", StartTime: start, Index: 2}}

	merged := MergeAdvanced(current, advanced)
	if len(merged) != 2 {
		t.Fatalf("expected both instances, got %+v", merged)
	}
	if merged[0].Index != 2 {
		t.Fatalf("expected advanced index 2, got %d", merged[0].Index)
	}
	if merged[1].Trigger != "LetraEnviada" {
		t.Fatal("concurrently added instance lost")
	}
}

func TestMergeAdvancedCompletedWinsAndIsPruned(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	current := []SequenceInstance{{Trigger: "NuevoLead", StartTime: start, Index: 3}}
	advanced := []SequenceInstance{{Trigger: "NuevoLead", StartTime: start, Index: 3, Completed: true}}

	if merged := MergeAdvanced(current, advanced); len(merged) != 0 {
		t.Fatalf("completed instance should be pruned, got %+v", merged)
	}
}

func TestMergeAdvancedNeverLowersIndex(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	current := []SequenceInstance{{Trigger: "NuevoLead", StartTime: start, Index: 5}}
	advanced := []SequenceInstance{{Trigger: "NuevoLead", StartTime: start, Index: 4}}

	if merged := MergeAdvanced(current, advanced); merged[0].Index != 5 {
		t.Fatalf("index went backwards: %+v", merged)
	}
}

func TestAttributesExposeSpanishKeys(t *testing.T) {
	attrs := Lead{Name: "Ana María", Phone: "525512345678"}.Attributes()
	if attrs["nombre"] != "Ana María" || attrs["telefono"] != "525512345678" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
}
