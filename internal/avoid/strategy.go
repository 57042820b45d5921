package avoid

import "sort"

// Strategy picks an escape heading in degrees from the flagged sectors.
// Sectors are 1-based; n is the number of sectors in a full turn.
type Strategy interface {
	Heading(flagged []int, n int, sectorDeg float64) (float64, bool)
}

// GapStrategy steers into the widest run of free sectors, Divisor of the
// way past the obstacle that bounds it.
type GapStrategy struct {
	Divisor float64
}

func (g GapStrategy) Heading(flagged []int, n int, sectorDeg float64) (float64, bool) {
	s := uniqueSorted(flagged)
	if len(s) == 0 || n <= 0 {
		return 0, false
	}
	div := g.Divisor
	if div <= 0 {
		div = 3
	}

	// gaps between consecutive flagged sectors, wrapping past the last
	best, bestGap := 0, -1
	for i := range s {
		var gap int
		if i == len(s)-1 {
			gap = s[0] - s[i] + n
		} else {
			gap = s[i+1] - s[i]
		}
		if gap > bestGap {
			best, bestGap = i, gap
		}
	}

	angle := sectorDeg * (float64(bestGap)/div + float64(s[best]))
	if angle > 360 {
		angle -= 360
	}
	sector := int(angle / sectorDeg)
	return float64(sector) * sectorDeg, true
}

func uniqueSorted(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	j := 0
	for i, v := range out {
		if i == 0 || v != out[j-1] {
			out[j] = v
			j++
		}
	}
	return out[:j]
}
