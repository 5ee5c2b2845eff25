// Package demo generates a synthetic entry collection for demo mode.
package demo

import (
	"math/rand"
	"time"

	"github.com/starkell/halsa/internal/models"
)

// Days is the size of the generated collection.
const Days = 14

// Generate returns a deterministic 14-day entry collection ending on the
// given day. The same day and seed always produce the same entries.
func Generate(today time.Time, seed int64) []models.SymptomEntry {
	rng := rand.New(rand.NewSource(seed))
	entries := make([]models.SymptomEntry, 0, Days)

	for i := Days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		date := day.Format(models.DateLayout)
		weekday := day.Weekday()
		isWeekend := weekday == time.Sunday || weekday == time.Saturday

		var entry models.SymptomEntry
		switch {
		case i%3 == 0:
			weekdayStress := 7 + rng.Intn(2)
			if isWeekend {
				weekdayStress = 3
			}
			entry = models.SymptomEntry{
				Date: date,
				Symptoms: []models.Symptom{
					{Name: "Headache", Severity: 6 + rng.Intn(3), Category: "pain"},
					{Name: "Fatigue", Severity: 5 + rng.Intn(3), Category: "mental"},
				},
				Notes: "Long day, poor sleep last night",
				ContextFactors: &models.ContextFactors{
					Stress:     weekdayStress,
					Sleep:      5 + rng.Float64()*2,
					Exercise:   false,
					Medication: []string{},
				},
			}
		case i%4 == 0:
			entry = models.SymptomEntry{
				Date: date,
				Symptoms: []models.Symptom{
					{Name: "Nausea", Severity: 4 + rng.Intn(3), Category: "digestive"},
					{Name: "Bloating", Severity: 5 + rng.Intn(2), Category: "digestive"},
				},
				Notes: "After eating lunch",
				ContextFactors: &models.ContextFactors{
					Stress:     5 + rng.Intn(3),
					Sleep:      6 + rng.Float64()*2,
					Exercise:   rng.Float64() > 0.5,
					Medication: []string{},
				},
			}
		case i%5 == 0:
			entry = models.SymptomEntry{
				Date: date,
				Symptoms: []models.Symptom{
					{Name: "Anxiety", Severity: 6 + rng.Intn(3), Category: "mental"},
					{Name: "Insomnia", Severity: 5 + rng.Intn(3), Category: "mental"},
				},
				Notes: "Work deadline approaching",
				ContextFactors: &models.ContextFactors{
					Stress:     8 + rng.Intn(2),
					Sleep:      4 + rng.Float64()*2,
					Exercise:   false,
					Medication: []string{},
				},
			}
		case rng.Float64() > 0.6:
			entry = models.SymptomEntry{
				Date: date,
				Symptoms: []models.Symptom{
					{Name: "Back pain", Severity: 4 + rng.Intn(2), Category: "pain"},
					{Name: "Fatigue", Severity: 4 + rng.Intn(2), Category: "mental"},
				},
				Notes: "Sitting at desk all day",
				ContextFactors: &models.ContextFactors{
					Stress:     5 + rng.Intn(3),
					Sleep:      6 + rng.Float64()*2,
					Exercise:   rng.Float64() > 0.7,
					Medication: []string{},
				},
			}
		default:
			entry = models.SymptomEntry{
				Date: date,
				Symptoms: []models.Symptom{
					{Name: "Fatigue", Severity: 2 + rng.Intn(2), Category: "mental"},
				},
				Notes: "Feeling better today",
				ContextFactors: &models.ContextFactors{
					Stress:     3 + rng.Intn(2),
					Sleep:      7 + rng.Float64()*1.5,
					Exercise:   true,
					Medication: []string{},
				},
			}
		}

		entries = append(entries, entry)
	}

	return entries
}
