package fallback

import "sort"

// RedistributeWeights implements spec §4.7's "Weight redistribution":
// when a non-primary model is tripped or has failed this request, its
// weight is spread proportionally across the remaining enabled,
// successful models so weights still sum to 1.0 (modulo floating-point
// tolerance). The primary's share grows but never exceeds ceiling;
// excess spills to the next-highest-weight surviving model.
//
// weights is the configured static weight per model name; alive is the
// set of models that are enabled and succeeded this request (or, for
// breaker gating, are not currently tripped). Models absent from alive
// have their weight redistributed away. The primary model's name must be
// given explicitly since it is exempt from being redistributed away
// itself (a primary failure is handled as a CriticalModelFailure, not a
// redistribution case).
func RedistributeWeights(weights map[string]float64, alive map[string]bool, primary string, ceiling float64) map[string]float64 {
	var failedWeight float64
	var aliveTotal float64
	for name, w := range weights {
		if alive[name] {
			aliveTotal += w
		} else {
			failedWeight += w
		}
	}

	out := make(map[string]float64, len(weights))
	if aliveTotal <= 0 || failedWeight <= 0 {
		for name, w := range weights {
			if alive[name] {
				out[name] = w
			}
		}
		return normalize(out)
	}

	for name, w := range weights {
		if !alive[name] {
			continue
		}
		share := w + failedWeight*(w/aliveTotal)
		out[name] = share
	}

	if primaryShare, ok := out[primary]; ok && primaryShare > ceiling {
		excess := primaryShare - ceiling
		out[primary] = ceiling
		spillTo := highestWeightOther(out, primary)
		if spillTo != "" {
			out[spillTo] += excess
		} else {
			// No other surviving model to absorb the excess (primary is
			// the only one alive); the ceiling cannot be honored without
			// losing mass, so let the primary keep it.
			out[primary] = primaryShare
		}
	}

	return normalize(out)
}

// highestWeightOther returns the name with the largest weight in w,
// excluding exclude, or "" if none remain.
func highestWeightOther(w map[string]float64, exclude string) string {
	names := make([]string, 0, len(w))
	for name := range w {
		if name != exclude {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Slice(names, func(i, j int) bool {
		if w[names[i]] != w[names[j]] {
			return w[names[i]] > w[names[j]]
		}
		return names[i] < names[j] // deterministic tie-break
	})
	return names[0]
}

// normalize rescales weights to sum to exactly 1.0 when they drift due to
// floating point accumulation, preserving relative proportions.
func normalize(w map[string]float64) map[string]float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		return w
	}
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v / total
	}
	return out
}
