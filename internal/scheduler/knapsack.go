package scheduler

// maxCountSubset picks the subset of candidate weights that fits into
// the capacity vector while maximizing the number of items chosen. Ties
// between equal-count solutions go to the lexicographically first index
// set: candidates are taken in order and a dynamic-programming cell is
// only overwritten by a strictly better count.
//
// The state space is the product of (capacity[i]+1) over all dimensions,
// flattened into a single index. Daily budgets are single-digit-ish, so
// the table stays tiny.
func maxCountSubset(weights [][]int, capacity []int) []int {
	dims := len(capacity)
	total := 1
	stride := make([]int, dims)
	for i := 0; i < dims; i++ {
		stride[i] = total
		total *= capacity[i] + 1
	}

	count := make([]int, total)
	chosen := make([][]int, total)
	for s := 1; s < total; s++ {
		count[s] = -1 // unreachable
	}

	for idx, w := range weights {
		offset := 0
		fits := true
		for i := 0; i < dims; i++ {
			if w[i] > capacity[i] {
				fits = false
				break
			}
			offset += w[i] * stride[i]
		}
		if !fits {
			continue
		}
		// 0/1 knapsack: walk states downward so each item is used once.
		// A zero-weight item maps a state onto itself, which still takes
		// it exactly once.
		for s := total - 1; s >= 0; s-- {
			if count[s] < 0 || !fitsState(s, w, capacity, stride, dims) {
				continue
			}
			to := s + offset
			if count[s]+1 > count[to] {
				count[to] = count[s] + 1
				chosen[to] = append(append([]int(nil), chosen[s]...), idx)
			}
		}
	}

	var best []int
	bestCount := 0
	for s := 0; s < total; s++ {
		switch {
		case count[s] > bestCount:
			bestCount, best = count[s], chosen[s]
		case count[s] == bestCount && count[s] > 0 && lexLess(chosen[s], best):
			best = chosen[s]
		}
	}
	return best
}

// fitsState reports whether adding weight w to the consumption encoded
// by flat state s stays within capacity in every dimension.
func fitsState(s int, w, capacity, stride []int, dims int) bool {
	for i := dims - 1; i >= 0; i-- {
		used := s
		if i+1 < dims {
			used %= stride[i+1]
		}
		used /= stride[i]
		if used+w[i] > capacity[i] {
			return false
		}
	}
	return true
}

// lexLess orders index sets lexicographically, shorter-prefix first.
func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
