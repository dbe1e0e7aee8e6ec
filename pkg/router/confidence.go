package router

import "github.com/tablechat-ai/tablechat/pkg/models"

// confidence turns a sorted candidate list into a [0,1] confidence for the
// best candidate. High scores or clear gaps to the runner-up mean high
// confidence; near-ties are penalized.
func confidence(candidates []models.ScoredTable, crossTableIntent bool) float64 {
	if len(candidates) == 0 {
		return 0
	}
	best := candidates[0].Score
	second := 0
	if len(candidates) > 1 {
		second = candidates[1].Score
	}
	gap := best - second
	gapRatio := 1.0
	if best > 0 {
		gapRatio = float64(gap) / float64(best)
	}

	var conf float64
	switch {
	case best >= 70:
		conf = 0.85
	case best >= 50 && gapRatio >= 0.15:
		conf = 0.85
	case gap >= 30:
		conf = 0.85
	default:
		magnitude := float64(best) / 100.0
		if magnitude > 1 {
			magnitude = 1
		}
		gapConf := gapRatio * 3
		if gapConf > 1 {
			gapConf = 1
		}
		conf = 0.6*magnitude + 0.4*gapConf
		if len(candidates) > 1 && gapRatio < 0.1 {
			conf -= 0.15
		}
	}

	if crossTableIntent && best >= 40 {
		conf += 0.25
	}
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

// needsClarification is true only for genuine ambiguity: a moderate best
// score with a runner-up breathing down its neck.
func needsClarification(candidates []models.ScoredTable) bool {
	if len(candidates) < 2 {
		return false
	}
	best := candidates[0].Score
	second := candidates[1].Score
	if best < 30 || best >= 200 {
		return false
	}
	gapRatio := float64(best-second) / float64(best)
	if gapRatio < 0.10 {
		return true
	}
	return gapRatio < 0.15 && best >= 35 && second >= 35
}

// ClarificationOptions returns the candidates worth asking the user about:
// everything scoring at least 40% of the best, capped at five.
func ClarificationOptions(candidates []models.ScoredTable) []models.ScoredTable {
	if len(candidates) == 0 {
		return nil
	}
	threshold := candidates[0].Score * 40 / 100
	var out []models.ScoredTable
	for _, c := range candidates {
		if c.Score >= threshold {
			out = append(out, c)
		}
		if len(out) == 5 {
			break
		}
	}
	return out
}
