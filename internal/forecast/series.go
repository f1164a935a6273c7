package forecast

import (
	"math"
	"slices"
	"time"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// PreparedSeries 일별 연속 시계열 (결측 없음)
type PreparedSeries struct {
	Start  time.Time // UTC 자정
	Values []float64
}

// Len returns the number of calendar days covered.
func (s PreparedSeries) Len() int { return len(s.Values) }

// End returns the last covered date (zero when empty).
func (s PreparedSeries) End() time.Time {
	if len(s.Values) == 0 {
		return time.Time{}
	}
	return s.Start.AddDate(0, 0, len(s.Values)-1)
}

// DateAt returns the calendar date of index i.
func (s PreparedSeries) DateAt(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// PrepareSeries sorts observations, averages same-day duplicates, and fills
// every calendar day between the first and last date by linear interpolation.
// Non-finite rates are discarded.
func PrepareSeries(obs []contracts.RateObservation) PreparedSeries {
	daily := dailyMeans(obs)
	if len(daily) == 0 {
		return PreparedSeries{}
	}

	dates := make([]time.Time, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	start := dates[0]
	n := dayIndex(start, dates[len(dates)-1]) + 1
	values := make([]float64, n)

	prevIdx := -1
	for _, d := range dates {
		idx := dayIndex(start, d)
		values[idx] = daily[d]
		if prevIdx >= 0 && idx-prevIdx > 1 {
			// 구간 선형 보간
			lo, hi := values[prevIdx], values[idx]
			span := float64(idx - prevIdx)
			for k := prevIdx + 1; k < idx; k++ {
				values[k] = lo + (hi-lo)*float64(k-prevIdx)/span
			}
		}
		prevIdx = idx
	}

	return PreparedSeries{Start: start, Values: values}
}

// DistinctDates counts calendar days carrying at least one finite rate.
func DistinctDates(obs []contracts.RateObservation) int {
	return len(dailyMeans(obs))
}

func dailyMeans(obs []contracts.RateObservation) map[time.Time]float64 {
	type acc struct {
		sum float64
		n   int
	}
	byDay := make(map[time.Time]*acc)
	for _, o := range obs {
		if math.IsNaN(o.Rate) || math.IsInf(o.Rate, 0) {
			continue
		}
		d := truncateDay(o.Date)
		a, ok := byDay[d]
		if !ok {
			a = &acc{}
			byDay[d] = a
		}
		a.sum += o.Rate
		a.n++
	}

	out := make(map[time.Time]float64, len(byDay))
	for d, a := range byDay {
		out[d] = a.sum / float64(a.n)
	}
	return out
}

// truncateDay keeps the calendar date as recorded and normalises it to UTC
// midnight.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayIndex(start, d time.Time) int {
	return int(math.Round(d.Sub(start).Hours() / 24))
}
