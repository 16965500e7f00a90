package graph

// levenshtein computes the classic edit distance between a and b, used to
// offer "did you mean" suggestions for unknown task names.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	return prev[len(br)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// nearestMatch returns the known name closest to target by Levenshtein
// distance, if within maxDistance, along with its distance.
func nearestMatch(target string, known []string, maxDistance int) (string, int, bool) {
	best := ""
	bestDist := maxDistance + 1
	for _, k := range known {
		d := levenshtein(target, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}
	if bestDist > maxDistance {
		return "", 0, false
	}
	return best, bestDist, true
}
