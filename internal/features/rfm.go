package features

import (
	"fmt"
	"sort"

	"churncli/pkg/contracts/domain"
)

// RFMSegment holds the quantile-based recency/frequency/monetary scores
// of one customer plus the combined segment label (e.g. "432").
type RFMSegment struct {
	CustomerID string `json:"customer_id"`
	RScore     int    `json:"r_score"`
	FScore     int    `json:"f_score"`
	MScore     int    `json:"m_score"`
	Segment    string `json:"segment"`
}

// RFMSegments buckets customers into n quantile segments per dimension.
// Lower recency scores higher; higher frequency and monetary score
// higher. Output follows the input row order.
func RFMSegments(rows []domain.CustomerFeatures, n int) []RFMSegment {
	if len(rows) == 0 || n < 2 {
		return nil
	}

	recency := make([]float64, len(rows))
	frequency := make([]float64, len(rows))
	monetary := make([]float64, len(rows))
	for i, r := range rows {
		recency[i] = float64(r.RecencyDays)
		frequency[i] = float64(r.Frequency)
		monetary[i] = r.TotalSpend
	}

	rBreaks := quantileBreaks(recency, n)
	fBreaks := quantileBreaks(frequency, n)
	mBreaks := quantileBreaks(monetary, n)

	segments := make([]RFMSegment, len(rows))
	for i, r := range rows {
		// Recency is inverted: the most recent quantile gets the top score.
		// Bucket count is len(breaks)+1, so the inversion pivots on +2.
		rScore := len(rBreaks) + 2 - bucket(recency[i], rBreaks)
		fScore := bucket(frequency[i], fBreaks)
		mScore := bucket(monetary[i], mBreaks)
		segments[i] = RFMSegment{
			CustomerID: r.CustomerID,
			RScore:     rScore,
			FScore:     fScore,
			MScore:     mScore,
			Segment:    fmt.Sprintf("%d%d%d", rScore, fScore, mScore),
		}
	}
	return segments
}

// quantileBreaks returns the interior quantile breakpoints for n
// buckets, with duplicate breakpoints collapsed (ties in the data can
// produce fewer than n distinct buckets).
func quantileBreaks(values []float64, n int) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var breaks []float64
	for i := 1; i < n; i++ {
		q := quantile(sorted, float64(i)/float64(n))
		if len(breaks) == 0 || q > breaks[len(breaks)-1] {
			breaks = append(breaks, q)
		}
	}
	return breaks
}

// bucket returns the 1-based bucket index of v given interior breaks.
func bucket(v float64, breaks []float64) int {
	b := 1
	for _, br := range breaks {
		if v > br {
			b++
		}
	}
	return b
}

// quantile computes the linearly interpolated q-quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
