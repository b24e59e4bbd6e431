package simulate

import (
	"math"
	"math/rand"
	"sort"
)

// Strengths assigns every name a hidden rating spread evenly over
// [1500-spread/2, 1500+spread/2] in an order shuffled by seed.
func Strengths(names []string, spread float64, seed int64) map[string]float64 {
	shuffled := append([]string(nil), names...)
	sort.Strings(shuffled)
	r := rand.New(rand.NewSource(seed)) //nolint:gosec // simulation only
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	out := make(map[string]float64, len(shuffled))
	n := len(shuffled)
	for i, name := range shuffled {
		pos := 0.5
		if n > 1 {
			pos = float64(i) / float64(n-1)
		}
		out[name] = 1500 - spread/2 + pos*spread
	}
	return out
}

// WinProbability is the chance a beats b given hidden strengths, on the
// same logistic scale the engine uses.
func WinProbability(sa, sb float64) float64 {
	return 1 / (1 + math.Pow(10, (sb-sa)/400))
}

// Concordance is the share of item pairs with distinct strengths that the
// ratings order the same way. 1 means the ranking recovered the strengths.
func Concordance(strengths, ratings map[string]float64) float64 {
	names := make([]string, 0, len(strengths))
	for n := range strengths {
		if _, ok := ratings[n]; ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	var pairs, agree int
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			ds := strengths[names[i]] - strengths[names[j]]
			if ds == 0 {
				continue
			}
			pairs++
			if dr := ratings[names[i]] - ratings[names[j]]; dr*ds > 0 {
				agree++
			}
		}
	}
	if pairs == 0 {
		return 1
	}
	return float64(agree) / float64(pairs)
}
