
package multiroom

import "testing"

// TestS4SpeciesClassifier covers spec.md §8 scenario S4.
func TestS4SpeciesClassifier(t *testing.T) {
	labels := []string{"CO", "COOUT", "NO3", "H2O2", "OH_reactivity", "J4", "r17", "AVSOFT", "PART100", "O2", "M"}
	wantIndoor := map[string]bool{"CO": true, "NO3": true, "H2O2": true, "PART100": true}
	wantSidecar := map[string]bool{"COOUT": true}

	c := NewSpeciesClassifier(labels)
	for i, name := range labels {
		switch c.ClassOf(i) {
		case Indoor:
			if !wantIndoor[name] {
				t.Errorf("%q classified INDOOR, want not", name)
			}
		case OutdoorSidecar:
			if !wantSidecar[name] {
				t.Errorf("%q classified OUTDOOR_SIDECAR, want not", name)
			}
		case Reserved:
			if wantIndoor[name] || wantSidecar[name] {
				t.Errorf("%q classified RESERVED, want INDOOR or OUTDOOR_SIDECAR", name)
			}
		}
	}
	if len(c.IndoorIndices()) != len(wantIndoor) {
		t.Errorf("IndoorIndices = %v, want %d entries", c.IndoorIndices(), len(wantIndoor))
	}
	if len(c.OutdoorSidecarIndices()) != len(wantSidecar) {
		t.Errorf("OutdoorSidecarIndices = %v, want %d entries", c.OutdoorSidecarIndices(), len(wantSidecar))
	}

	coOutIdx := -1
	coIdx := -1
	for i, name := range labels {
		if name == "COOUT" {
			coOutIdx = i
		}
		if name == "CO" {
			coIdx = i
		}
	}
	if got := c.PairedIndoorIndex(coOutIdx); got != coIdx {
		t.Errorf("PairedIndoorIndex(COOUT) = %d, want %d (CO)", got, coIdx)
	}
}

// TestSpeciesClassificationTotality covers spec.md §8's totality property:
// every label falls into exactly one of the three classes.
func TestSpeciesClassificationTotality(t *testing.T) {
	labels := []string{"CO", "COOUT", "NO3", "H2O2", "OH_reactivity", "J4", "r17", "AVSOFT", "PART100", "O2", "M", "NOXSURF", "YIELDX", "vdO3"}
	c := NewSpeciesClassifier(labels)
	seen := make(map[int]bool)
	for _, i := range c.IndoorIndices() {
		seen[i] = true
	}
	for _, i := range c.OutdoorSidecarIndices() {
		if seen[i] {
			t.Errorf("index %d counted in both Indoor and OutdoorSidecar", i)
		}
		seen[i] = true
	}
	for _, i := range c.ReservedIndices() {
		if seen[i] {
			t.Errorf("index %d counted in more than one class", i)
		}
		seen[i] = true
	}
	if len(seen) != len(labels) {
		t.Errorf("classified %d of %d labels; every label must fall into exactly one class", len(seen), len(labels))
	}
}

func TestPairedIndoorIndexUnpaired(t *testing.T) {
	c := NewSpeciesClassifier([]string{"XYZOUT", "NO3"})
	if got := c.PairedIndoorIndex(0); got != -1 {
		t.Errorf("PairedIndoorIndex for an unpaired sidecar = %d, want -1", got)
	}
}
