package fallback

import "testing"

func approxEqual(a, b float64) bool {
	const eps = 1e-9
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func TestRedistributeWeightsSpreadsFailedModelShare(t *testing.T) {
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.25, "irony": 0.15, "emotions": 0.10}
	alive := map[string]bool{"bart": true, "sentiment": true, "emotions": true}

	out := RedistributeWeights(weights, alive, "bart", 0.70)

	if _, ok := out["irony"]; ok {
		t.Error("a non-alive model should not appear in the redistributed weights")
	}
	var total float64
	for _, w := range out {
		total += w
	}
	if !approxEqual(total, 1.0) {
		t.Errorf("redistributed weights sum to %v, want 1.0", total)
	}
	if out["bart"] <= weights["bart"] {
		t.Errorf("bart's share should grow after irony's weight is redistributed, got %v", out["bart"])
	}
}

func TestRedistributeWeightsRespectsPrimaryCeiling(t *testing.T) {
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.25, "irony": 0.15, "emotions": 0.10}
	alive := map[string]bool{"bart": true, "sentiment": true}

	out := RedistributeWeights(weights, alive, "bart", 0.70)

	if out["bart"] > 0.70+1e-9 {
		t.Errorf("bart's share = %v, should not exceed the 0.70 ceiling", out["bart"])
	}
	var total float64
	for _, w := range out {
		total += w
	}
	if !approxEqual(total, 1.0) {
		t.Errorf("redistributed weights sum to %v, want 1.0", total)
	}
}

func TestRedistributeWeightsNoFailuresPassesThrough(t *testing.T) {
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.25, "irony": 0.15, "emotions": 0.10}
	alive := map[string]bool{"bart": true, "sentiment": true, "irony": true, "emotions": true}

	out := RedistributeWeights(weights, alive, "bart", 0.70)

	for name, w := range weights {
		if !approxEqual(out[name], w) {
			t.Errorf("weight for %s = %v, want unchanged %v", name, out[name], w)
		}
	}
}

func TestRedistributeWeightsOnlyPrimaryAliveKeepsExcess(t *testing.T) {
	weights := map[string]float64{"bart": 0.5, "sentiment": 0.25, "irony": 0.15, "emotions": 0.10}
	alive := map[string]bool{"bart": true}

	out := RedistributeWeights(weights, alive, "bart", 0.70)

	if !approxEqual(out["bart"], 1.0) {
		t.Errorf("bart's share = %v, want 1.0 when it is the only surviving model", out["bart"])
	}
}
