// Package breeding summarizes clutch records over a reporting period.
package breeding

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/erazemk/perutnina/internal/model"
)

// WeightGainPerOffspring converts the average offspring count to the
// weight gain figure shown on the dashboard.
const WeightGainPerOffspring = 50

// MaxCustomPeriod bounds custom reporting ranges.
const MaxCustomPeriod = 366 * 24 * time.Hour

// Period is a half-open [From, To) reporting window.
type Period struct {
	From time.Time
	To   time.Time
}

// ParsePeriod resolves a period selector relative to now. kind is "7",
// "30", "90" or "custom"; custom periods take from and to as YYYY-MM-DD,
// both inclusive.
func ParsePeriod(kind, from, to string, now time.Time) (Period, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	end := today.Add(24 * time.Hour)

	switch kind {
	case "", "7", "30", "90":
		days := 7
		if kind != "" {
			days, _ = strconv.Atoi(kind)
		}
		return Period{From: end.AddDate(0, 0, -days), To: end}, nil
	case "custom":
		f, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return Period{}, fmt.Errorf("invalid from date %q", from)
		}
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return Period{}, fmt.Errorf("invalid to date %q", to)
		}
		p := Period{From: f, To: t.Add(24 * time.Hour)}
		if !p.To.After(p.From) {
			return Period{}, fmt.Errorf("from date must not be after to date")
		}
		if p.To.Sub(p.From) > MaxCustomPeriod {
			return Period{}, fmt.Errorf("custom period longer than %d days", int(MaxCustomPeriod.Hours()/24))
		}
		return p, nil
	}
	return Period{}, fmt.Errorf("unknown period %q", kind)
}

// Point is one day of the chart series. HatchRate and MortalityRate are
// only defined when eggs were set: otherwise HasRates is false and both are
// zero, so a day without clutches never reads as total loss.
type Point struct {
	Day              time.Time `json:"day"`
	Records          int       `json:"records"`
	EggsSet          int       `json:"eggsSet"`
	EggsHatched      int       `json:"eggsHatched"`
	HatchRate        float64   `json:"hatchRate"`
	MortalityRate    float64   `json:"mortalityRate"`
	HasRates         bool      `json:"hasRates"`
	AverageOffspring float64   `json:"averageOffspring"`
	WeightGain       float64   `json:"weightGain"`
}

// Summary is the derived series and its totals for one period.
type Summary struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Points  []Point   `json:"points"`
	Overall Point     `json:"overall"`
}

// Summarize derives rates for each day and for the whole period.
func Summarize(p Period, days []model.BreedingDay) Summary {
	s := Summary{From: p.From, To: p.To, Points: make([]Point, 0, len(days))}

	var total model.BreedingDay
	for _, d := range days {
		s.Points = append(s.Points, derive(d))
		total.Records += d.Records
		total.EggsSet += d.EggsSet
		total.EggsHatched += d.EggsHatched
		total.OffspringCount += d.OffspringCount
	}
	total.Day = p.From
	s.Overall = derive(total)
	return s
}

func derive(d model.BreedingDay) Point {
	pt := Point{
		Day:         d.Day,
		Records:     d.Records,
		EggsSet:     d.EggsSet,
		EggsHatched: d.EggsHatched,
	}
	if d.EggsSet > 0 {
		pt.HasRates = true
		pt.HatchRate = round2(float64(d.EggsHatched) / float64(d.EggsSet) * 100)
		pt.MortalityRate = round2(100 - pt.HatchRate)
	}
	if d.Records > 0 {
		pt.AverageOffspring = round2(float64(d.OffspringCount) / float64(d.Records))
		pt.WeightGain = round2(pt.AverageOffspring * WeightGainPerOffspring)
	}
	return pt
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
