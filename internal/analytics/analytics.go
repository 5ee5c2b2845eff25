// Package analytics derives frequency, trend, and correlation statistics
// from an entry collection. Every function is pure: no I/O, no state, and
// identical input yields identical output regardless of insertion order.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/starkell/halsa/internal/models"
)

// Correlation direction classification.
const (
	TypePositive = "positive"
	TypeNegative = "negative"
	TypeNeutral  = "neutral"
)

// normalizationDivisor converts a mean difference into a 0-1 strength: half
// the 1-10 factor range, so a difference of 5+ units reads as maximal.
// neutralCutoff is the strength below which a direction is reported neutral.
// Both are fixed calibration constants carried over from the original design.
const (
	normalizationDivisor = 5.0
	neutralCutoff        = 0.20
	minQualifyingDays    = 3
)

// SymptomFrequency aggregates one symptom name across all entries.
type SymptomFrequency struct {
	Name            string  `json:"name"`
	Count           int     `json:"count"`
	Category        string  `json:"category"`
	AverageSeverity float64 `json:"averageSeverity"`
}

// SeverityTrend summarizes a single day.
type SeverityTrend struct {
	Date            string  `json:"date"`
	AverageSeverity float64 `json:"averageSeverity"`
	MaxSeverity     int     `json:"maxSeverity"`
	SymptomCount    int     `json:"symptomCount"`
}

// Correlation is one directional signal between a symptom and a context
// factor.
type Correlation struct {
	Factor   string  `json:"factor"`
	Strength float64 `json:"strength"`
	Type     string  `json:"type"`
}

// SymptomCorrelations groups the factor signals for one symptom.
type SymptomCorrelations struct {
	Symptom      string        `json:"symptom"`
	Correlations []Correlation `json:"correlations"`
}

// WeekSummary aggregates one calendar week (Sunday start).
type WeekSummary struct {
	WeekStart       string  `json:"weekStart"`
	AverageSeverity float64 `json:"averageSeverity"`
	SymptomCount    int     `json:"symptomCount"`
	MostCommon      string  `json:"mostCommon"`
}

// SymptomFrequencies aggregates every symptom occurrence by name: occurrence
// count, category (from the first occurrence seen), and mean severity.
// Ordered descending by count, ties by name for stable output.
func SymptomFrequencies(entries []models.SymptomEntry) []SymptomFrequency {
	type acc struct {
		count         int
		totalSeverity int
		category      string
	}
	byName := make(map[string]*acc)
	for _, entry := range entries {
		for _, sym := range entry.Symptoms {
			a := byName[sym.Name]
			if a == nil {
				a = &acc{category: sym.Category}
				byName[sym.Name] = a
			}
			a.count++
			a.totalSeverity += sym.Severity
		}
	}

	out := make([]SymptomFrequency, 0, len(byName))
	for name, a := range byName {
		out = append(out, SymptomFrequency{
			Name:            name,
			Count:           a.count,
			Category:        a.category,
			AverageSeverity: round1(float64(a.totalSeverity) / float64(a.count)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SeverityTrends emits one record per entry: mean and maximum severity for
// that day (0 when no symptoms were logged) and the symptom count. Ordered
// ascending by date.
func SeverityTrends(entries []models.SymptomEntry) []SeverityTrend {
	out := make([]SeverityTrend, 0, len(entries))
	for _, entry := range entries {
		total, max := 0, 0
		for _, sym := range entry.Symptoms {
			total += sym.Severity
			if sym.Severity > max {
				max = sym.Severity
			}
		}
		avg := 0.0
		if len(entry.Symptoms) > 0 {
			avg = round1(float64(total) / float64(len(entry.Symptoms)))
		}
		out = append(out, SeverityTrend{
			Date:            entry.Date,
			AverageSeverity: avg,
			MaxSeverity:     max,
			SymptomCount:    len(entry.Symptoms),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Correlations computes, for every distinct symptom name, a directional
// signal against each context factor: stress, sleep, and exercise. Only days
// with recorded context factors qualify. A factor is skipped when fewer than
// three qualifying days exist or when either partition (days with the
// symptom, days without) is empty. Symptoms with no surviving factor are
// omitted entirely.
func Correlations(entries []models.SymptomEntry) []SymptomCorrelations {
	names := distinctSymptomNames(entries)

	out := make([]SymptomCorrelations, 0, len(names))
	for _, name := range names {
		var signals []Correlation
		for _, factor := range []string{"stress", "sleep", "exercise"} {
			if c := correlate(entries, name, factor); c != nil {
				signals = append(signals, *c)
			}
		}
		if len(signals) > 0 {
			out = append(out, SymptomCorrelations{Symptom: name, Correlations: signals})
		}
	}
	return out
}

func correlate(entries []models.SymptomEntry, symptomName, factor string) *Correlation {
	var with, without []float64
	qualifying := 0
	for _, entry := range entries {
		if entry.ContextFactors == nil {
			continue
		}
		qualifying++
		value := factorValue(entry.ContextFactors, factor)
		if hasSymptom(entry, symptomName) {
			with = append(with, value)
		} else {
			without = append(without, value)
		}
	}
	if qualifying < minQualifyingDays || len(with) == 0 || len(without) == 0 {
		return nil
	}

	difference := mean(with) - mean(without)
	strength := round2(math.Min(math.Abs(difference)/normalizationDivisor, 1))

	var kind string
	switch {
	case strength < neutralCutoff:
		kind = TypeNeutral
	case factor == "sleep":
		// Inverted on purpose: less sleep co-occurring with the symptom is
		// the adverse direction and reads as positive.
		kind = TypeNegative
		if difference < 0 {
			kind = TypePositive
		}
	default:
		kind = TypeNegative
		if difference > 0 {
			kind = TypePositive
		}
	}

	return &Correlation{
		Factor:   factorLabel(factor),
		Strength: strength,
		Type:     kind,
	}
}

// WeeklySummary groups entries into calendar weeks starting on Sunday and
// summarizes each week: mean severity over all symptoms logged that week,
// total symptom count, and the most frequent symptom name (ties broken by
// first-encountered order). Ordered ascending by week-start date.
func WeeklySummary(entries []models.SymptomEntry) []WeekSummary {
	weeks := make(map[string][]models.SymptomEntry)
	for _, entry := range entries {
		day, err := time.Parse(models.DateLayout, entry.Date)
		if err != nil {
			continue
		}
		start := day.AddDate(0, 0, -int(day.Weekday()))
		key := start.Format(models.DateLayout)
		weeks[key] = append(weeks[key], entry)
	}

	keys := make([]string, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]WeekSummary, 0, len(keys))
	for _, weekStart := range keys {
		weekEntries := weeks[weekStart]

		total, count := 0, 0
		counts := make(map[string]int)
		var order []string
		for _, entry := range weekEntries {
			for _, sym := range entry.Symptoms {
				total += sym.Severity
				count++
				if _, seen := counts[sym.Name]; !seen {
					order = append(order, sym.Name)
				}
				counts[sym.Name]++
			}
		}

		avg := 0.0
		if count > 0 {
			avg = round1(float64(total) / float64(count))
		}
		mostCommon := "None"
		best := 0
		for _, name := range order {
			if counts[name] > best {
				best = counts[name]
				mostCommon = name
			}
		}

		out = append(out, WeekSummary{
			WeekStart:       weekStart,
			AverageSeverity: avg,
			SymptomCount:    count,
			MostCommon:      mostCommon,
		})
	}
	return out
}

// SymptomsByCategory counts symptom occurrences per category.
func SymptomsByCategory(entries []models.SymptomEntry) map[string]int {
	out := make(map[string]int)
	for _, entry := range entries {
		for _, sym := range entry.Symptoms {
			out[sym.Category]++
		}
	}
	return out
}

func distinctSymptomNames(entries []models.SymptomEntry) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, entry := range entries {
		for _, sym := range entry.Symptoms {
			if _, ok := seen[sym.Name]; !ok {
				seen[sym.Name] = struct{}{}
				names = append(names, sym.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func hasSymptom(entry models.SymptomEntry, name string) bool {
	for _, sym := range entry.Symptoms {
		if sym.Name == name {
			return true
		}
	}
	return false
}

func factorValue(cf *models.ContextFactors, factor string) float64 {
	switch factor {
	case "stress":
		return float64(cf.Stress)
	case "sleep":
		return cf.Sleep
	default: // exercise
		if cf.Exercise {
			return 1
		}
		return 0
	}
}

func factorLabel(factor string) string {
	switch factor {
	case "stress":
		return "Stress"
	case "sleep":
		return "Sleep"
	default:
		return "Exercise"
	}
}

func mean(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func round2(x float64) float64 { return math.Round(x*100) / 100 }
