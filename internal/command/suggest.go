package command

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// suggest returns the candidate closest to token. A candidate that token is a
// prefix of always wins over an edit-distance match.
func suggest(token string, candidates []string) (string, bool) {
	if token == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, cand := range candidates {
		var dist int
		switch {
		case strings.HasPrefix(cand, token) && len(token) >= 2:
			dist = 0
		default:
			dist = levenshtein.ComputeDistance(token, cand)
			if dist == 0 || dist > suggestionLimit(len(cand)) {
				continue
			}
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && cand < best) {
			best, bestDist = cand, dist
		}
	}
	return best, bestDist >= 0
}

func suggestionLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
