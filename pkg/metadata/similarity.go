package metadata

// similarityRatio measures how alike two strings are as
// 2*M / (len(a)+len(b)), where M is the total length of the matching
// blocks found by the Ratcliff-Obershelp algorithm: repeatedly take the
// longest common substring and recurse into the unmatched pieces on
// either side of it. Returns a value in [0, 1]; identical strings score
// 1.0 and fully disjoint strings score 0.0.
func similarityRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	// Positions of every rune in b, ascending.
	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}

	matched := 0
	type span struct{ alo, ahi, blo, bhi int }
	stack := []span{{0, len(ra), 0, len(rb)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, j, k := longestMatch(ra, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		stack = append(stack, span{s.alo, i, s.blo, j})
		stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
	}

	return 2.0 * float64(matched) / float64(total)
}

// longestMatch finds the longest block of runes common to ra[alo:ahi] and
// b[blo:bhi], preferring the earliest position in ra on ties.
func longestMatch(ra []rune, b2j map[rune][]int, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range b2j[ra[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestk
}
