package tone

import "testing"

func TestRGB_DistinctPerTone(t *testing.T) {
	seen := map[[3]int]Tone{}
	for _, tn := range []Tone{Neutral, Info, Success, Warning, Danger} {
		r, g, b := tn.RGB()
		key := [3]int{r, g, b}
		if other, dup := seen[key]; dup {
			t.Errorf("%s and %s share a color", tn, other)
		}
		seen[key] = tn
	}
}

func TestRGB_UnknownFallsBackToNeutral(t *testing.T) {
	r1, g1, b1 := Tone("mauve").RGB()
	r2, g2, b2 := Neutral.RGB()
	if r1 != r2 || g1 != g2 || b1 != b2 {
		t.Error("expected unknown tone to render as neutral")
	}
}
