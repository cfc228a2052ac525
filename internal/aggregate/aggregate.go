package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lubelogger-bridge/internal/lubelogger"
)

// Odometer is the most recent odometer reading known for a vehicle.
type Odometer struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Snapshot is the per-vehicle aggregate produced by one poll cycle. It is
// immutable once built; the coordinator publishes whole snapshots, never
// mutates them in place.
type Snapshot struct {
	Costs        map[lubelogger.Category]decimal.Decimal `json:"costs"`
	LastOdometer *Odometer                               `json:"last_odometer,omitempty"`
	NextReminder *Reminder                               `json:"next_reminder,omitempty"`
}

// Input carries everything Build needs. Now is caller-supplied so that
// due-day arithmetic is deterministic and testable.
type Input struct {
	Records   map[lubelogger.Category][]lubelogger.Record
	Reminders []lubelogger.Reminder
	Previous  *Odometer
	Now       time.Time
}

// Build computes a vehicle snapshot from raw server records. It is a pure
// function: same inputs and same Now always yield the same snapshot. The
// returned warnings describe data-quality issues (unparseable costs,
// dates, reminder fields) that degraded gracefully rather than failing
// the cycle.
func Build(in Input) (Snapshot, []string) {
	var warnings []string

	costs := make(map[lubelogger.Category]decimal.Decimal, len(lubelogger.CostCategories))
	for _, category := range lubelogger.CostCategories {
		total := decimal.Zero
		for _, record := range in.Records[category] {
			if strings.TrimSpace(record.Cost) == "" {
				warnings = append(warnings, fmt.Sprintf("%s record %d has no cost, counted as zero", category, record.ID))
				continue
			}
			cost, err := decimal.NewFromString(strings.TrimSpace(record.Cost))
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s record %d has unparseable cost %q, counted as zero", category, record.ID, record.Cost))
				continue
			}
			total = total.Add(cost)
		}
		costs[category] = total
	}

	last, odoWarnings := lastOdometer(in.Records, in.Previous)
	warnings = append(warnings, odoWarnings...)

	currentOdometer := 0.0
	if last != nil {
		currentOdometer = last.Value
	}
	next, remWarnings := nextReminder(in.Reminders, in.Now, currentOdometer)
	warnings = append(warnings, remWarnings...)

	return Snapshot{
		Costs:        costs,
		LastOdometer: last,
		NextReminder: next,
	}, warnings
}

// odometerCategories are the record types that carry a meaningful
// odometer field: explicit odometer records plus fuel and service
// records, which record the reading at fill-up or service time.
var odometerCategories = []lubelogger.Category{
	lubelogger.CategoryOdometer,
	lubelogger.CategoryFuel,
	lubelogger.CategoryService,
}

// lastOdometer selects the most recent reading by (date, then value)
// across all odometer-bearing record types, carrying forward the previous
// reading when the current cycle produced none.
func lastOdometer(records map[lubelogger.Category][]lubelogger.Record, previous *Odometer) (*Odometer, []string) {
	var warnings []string
	var best *Odometer

	for _, category := range odometerCategories {
		for _, record := range records[category] {
			value, ok := parseNumber(record.Odometer)
			if !ok || value <= 0 {
				continue
			}
			date, err := parseDate(record.Date)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s record %d has unparseable date %q, skipped for odometer tracking", category, record.ID, record.Date))
				continue
			}
			candidate := Odometer{Date: date, Value: value}
			if best == nil || candidate.Date.After(best.Date) ||
				(candidate.Date.Equal(best.Date) && candidate.Value > best.Value) {
				best = &candidate
			}
		}
	}

	if best == nil {
		return previous, warnings
	}
	return best, warnings
}

// dateLayouts covers the invariant format the server emits with the
// culture-invariant header, plus the slash form older server versions
// used for record dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// parseNumber tolerates thousands separators in numeric strings, which
// the server emits for odometer values in some locales.
func parseNumber(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
