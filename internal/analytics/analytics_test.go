package analytics

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/starkell/halsa/internal/models"
)

func sym(name string, severity int, category string) models.Symptom {
	return models.Symptom{Name: name, Severity: severity, Category: category}
}

func entry(date string, symptoms ...models.Symptom) models.SymptomEntry {
	return models.SymptomEntry{Date: date, Symptoms: symptoms}
}

func withContext(e models.SymptomEntry, stress int, sleep float64, exercise bool) models.SymptomEntry {
	e.ContextFactors = &models.ContextFactors{Stress: stress, Sleep: sleep, Exercise: exercise}
	return e
}

func TestSymptomFrequencies(t *testing.T) {
	entries := []models.SymptomEntry{
		entry("2026-03-01", sym("Headache", 7, "pain"), sym("Nausea", 4, "digestive")),
		entry("2026-03-02", sym("Headache", 6, "pain")),
		entry("2026-03-03", sym("Fatigue", 5, "energy")),
	}

	got := SymptomFrequencies(entries)
	want := []SymptomFrequency{
		{Name: "Headache", Count: 2, Category: "pain", AverageSeverity: 6.5},
		{Name: "Fatigue", Count: 1, Category: "energy", AverageSeverity: 5},
		{Name: "Nausea", Count: 1, Category: "digestive", AverageSeverity: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
}

func TestSymptomFrequencies_Empty(t *testing.T) {
	if got := SymptomFrequencies(nil); len(got) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
}

func TestSeverityTrends(t *testing.T) {
	entries := []models.SymptomEntry{
		entry("2026-03-02", sym("Headache", 8, "pain"), sym("Nausea", 3, "digestive")),
		entry("2026-03-01", sym("Fatigue", 4, "energy")),
		entry("2026-03-03"), // logged day with no symptoms
	}

	got := SeverityTrends(entries)
	want := []SeverityTrend{
		{Date: "2026-03-01", AverageSeverity: 4, MaxSeverity: 4, SymptomCount: 1},
		{Date: "2026-03-02", AverageSeverity: 5.5, MaxSeverity: 8, SymptomCount: 2},
		{Date: "2026-03-03", AverageSeverity: 0, MaxSeverity: 0, SymptomCount: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
}

// Seven logged days: headache on the four short-sleep high-stress days, clear
// on the three rested days. Sleep should read as a positive signal despite
// the lower mean, and stress as a strong positive one.
func TestCorrelations_SleepInversion(t *testing.T) {
	var entries []models.SymptomEntry
	for i := 1; i <= 4; i++ {
		e := entry(fmt.Sprintf("2026-03-%02d", i), sym("Headache", 7, "pain"))
		entries = append(entries, withContext(e, 8, 5, false))
	}
	for i := 5; i <= 7; i++ {
		e := entry(fmt.Sprintf("2026-03-%02d", i))
		entries = append(entries, withContext(e, 3, 8, false))
	}

	got := Correlations(entries)
	if len(got) != 1 || got[0].Symptom != "Headache" {
		t.Fatalf("got %+v", got)
	}

	byFactor := make(map[string]Correlation)
	for _, c := range got[0].Correlations {
		byFactor[c.Factor] = c
	}

	stress := byFactor["Stress"]
	if stress.Type != TypePositive || stress.Strength != 1 {
		t.Errorf("stress = %+v, want positive strength 1", stress)
	}

	// Mean sleep is lower on symptom days; the sign inversion makes that a
	// positive correlation. |5-8|/5 = 0.6.
	sleep := byFactor["Sleep"]
	if sleep.Type != TypePositive || sleep.Strength != 0.6 {
		t.Errorf("sleep = %+v, want positive strength 0.6", sleep)
	}

	// Exercise is identical across both partitions, so the signal is neutral.
	exercise := byFactor["Exercise"]
	if exercise.Type != TypeNeutral || exercise.Strength != 0 {
		t.Errorf("exercise = %+v, want neutral strength 0", exercise)
	}
}

func TestCorrelations_NeutralBelowCutoff(t *testing.T) {
	entries := []models.SymptomEntry{
		withContext(entry("2026-03-01", sym("Headache", 5, "pain")), 5, 7, false),
		withContext(entry("2026-03-02", sym("Headache", 5, "pain")), 6, 7, false),
		withContext(entry("2026-03-03"), 5, 7, false),
		withContext(entry("2026-03-04"), 6, 7, false),
	}

	got := Correlations(entries)
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
	for _, c := range got[0].Correlations {
		if c.Factor == "Stress" && c.Type != TypeNeutral {
			t.Errorf("stress = %+v, want neutral: |5.5-5.5| is below the cutoff", c)
		}
	}
}

func TestCorrelations_TooFewQualifyingDays(t *testing.T) {
	// Only two days carry context factors; the third has none and does not
	// qualify.
	entries := []models.SymptomEntry{
		withContext(entry("2026-03-01", sym("Headache", 7, "pain")), 8, 5, false),
		withContext(entry("2026-03-02"), 3, 8, false),
		entry("2026-03-03", sym("Headache", 6, "pain")),
	}

	if got := Correlations(entries); len(got) != 0 {
		t.Errorf("got %+v, want none below three qualifying days", got)
	}
}

func TestCorrelations_EmptyPartition(t *testing.T) {
	// The symptom occurs on every qualifying day, so the without-partition is
	// empty and no signal can be derived.
	entries := []models.SymptomEntry{
		withContext(entry("2026-03-01", sym("Headache", 7, "pain")), 8, 5, false),
		withContext(entry("2026-03-02", sym("Headache", 6, "pain")), 7, 6, false),
		withContext(entry("2026-03-03", sym("Headache", 8, "pain")), 9, 4, false),
	}

	if got := Correlations(entries); len(got) != 0 {
		t.Errorf("got %+v, want none with an empty partition", got)
	}
}

func TestWeeklySummary(t *testing.T) {
	// 2026-03-01 is a Sunday; 2026-03-08 starts the next week.
	entries := []models.SymptomEntry{
		entry("2026-03-01", sym("Headache", 6, "pain"), sym("Nausea", 4, "digestive")),
		entry("2026-03-04", sym("Headache", 8, "pain")),
		entry("2026-03-08", sym("Fatigue", 3, "energy")),
	}

	got := WeeklySummary(entries)
	want := []WeekSummary{
		{WeekStart: "2026-03-01", AverageSeverity: 6, SymptomCount: 3, MostCommon: "Headache"},
		{WeekStart: "2026-03-08", AverageSeverity: 3, SymptomCount: 1, MostCommon: "Fatigue"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
}

func TestWeeklySummary_MidweekGroupsToPriorSunday(t *testing.T) {
	// A lone Wednesday entry belongs to the week starting the prior Sunday.
	got := WeeklySummary([]models.SymptomEntry{
		entry("2026-03-11", sym("Headache", 5, "pain")),
	})
	if len(got) != 1 || got[0].WeekStart != "2026-03-08" {
		t.Errorf("got %+v, want week start 2026-03-08", got)
	}
}

func TestWeeklySummary_TiesByFirstEncounter(t *testing.T) {
	got := WeeklySummary([]models.SymptomEntry{
		entry("2026-03-01", sym("Nausea", 4, "digestive")),
		entry("2026-03-02", sym("Headache", 6, "pain")),
	})
	if len(got) != 1 || got[0].MostCommon != "Nausea" {
		t.Errorf("got %+v, want tie broken by first encounter", got)
	}
}

func TestWeeklySummary_NoSymptoms(t *testing.T) {
	got := WeeklySummary([]models.SymptomEntry{entry("2026-03-01")})
	if len(got) != 1 || got[0].MostCommon != "None" || got[0].AverageSeverity != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestSymptomsByCategory(t *testing.T) {
	entries := []models.SymptomEntry{
		entry("2026-03-01", sym("Headache", 6, "pain"), sym("Nausea", 4, "digestive")),
		entry("2026-03-02", sym("Migraine", 8, "pain")),
	}
	got := SymptomsByCategory(entries)
	if got["pain"] != 2 || got["digestive"] != 1 {
		t.Errorf("got %+v", got)
	}
}

// Entry order must not affect any derived statistic.
func TestOrderIndependence(t *testing.T) {
	forward := []models.SymptomEntry{
		withContext(entry("2026-03-01", sym("Headache", 7, "pain")), 8, 5, false),
		withContext(entry("2026-03-02", sym("Headache", 6, "pain")), 7, 6, true),
		withContext(entry("2026-03-03", sym("Nausea", 4, "digestive")), 3, 8, true),
		withContext(entry("2026-03-04"), 2, 8, false),
	}
	reversed := make([]models.SymptomEntry, len(forward))
	for i, e := range forward {
		reversed[len(forward)-1-i] = e
	}

	if !reflect.DeepEqual(SymptomFrequencies(forward), SymptomFrequencies(reversed)) {
		t.Error("frequencies depend on entry order")
	}
	if !reflect.DeepEqual(SeverityTrends(forward), SeverityTrends(reversed)) {
		t.Error("trends depend on entry order")
	}
	if !reflect.DeepEqual(Correlations(forward), Correlations(reversed)) {
		t.Error("correlations depend on entry order")
	}
	if !reflect.DeepEqual(WeeklySummary(forward), WeeklySummary(reversed)) {
		t.Error("weekly summary depends on entry order")
	}
}
