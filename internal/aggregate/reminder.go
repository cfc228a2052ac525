package aggregate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"lubelogger-bridge/internal/lubelogger"
)

// Urgency is the server's ordered reminder urgency scale, least pressing
// first, so the zero value is the least urgent and comparisons with <
// follow the server's ordering.
type Urgency int

const (
	UrgencyNotUrgent Urgency = iota
	UrgencyUrgent
	UrgencyVeryUrgent
)

func (u Urgency) String() string {
	switch u {
	case UrgencyUrgent:
		return "Urgent"
	case UrgencyVeryUrgent:
		return "VeryUrgent"
	}
	return "NotUrgent"
}

// MarshalJSON emits the server's label so downstream consumers see the
// same vocabulary the server uses.
func (u Urgency) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// ParseUrgency maps the server's urgency labels onto the ordered scale.
// The server reports past-due reminders as their own label; they rank
// with VeryUrgent since nothing is more pressing than overdue.
func ParseUrgency(raw string) (Urgency, bool) {
	switch strings.ReplaceAll(strings.TrimSpace(raw), " ", "") {
	case "NotUrgent":
		return UrgencyNotUrgent, true
	case "Urgent":
		return UrgencyUrgent, true
	case "VeryUrgent", "PastDue":
		return UrgencyVeryUrgent, true
	}
	return UrgencyNotUrgent, false
}

// Metric declares which dimension a reminder is tracked on.
type Metric string

const (
	MetricDate     Metric = "Date"
	MetricOdometer Metric = "Odometer"
	MetricBoth     Metric = "Both"
)

// ParseMetric normalizes the server's metric labels.
func ParseMetric(raw string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "date":
		return MetricDate, true
	case "odometer":
		return MetricOdometer, true
	case "both":
		return MetricBoth, true
	}
	return "", false
}

// Reminder is the single next-due reminder retained in a snapshot.
// DueDays and DueDistance are recomputed at aggregation time relative to
// the cycle's date and last known odometer; negative values mean overdue.
type Reminder struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Urgency     Urgency    `json:"urgency"`
	Metric      Metric     `json:"metric"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	DueOdometer *float64   `json:"due_odometer,omitempty"`
	DueDays     *int       `json:"due_days,omitempty"`
	DueDistance *float64   `json:"due_distance,omitempty"`
	Tags        string     `json:"tags,omitempty"`
}

// Score is the reminder's effective due score: days for date-tracked
// reminders, distance for odometer-tracked ones, and the more pressing of
// the two for reminders tracked on both. The second return is false when
// the reminder is missing the fields its metric requires.
func (r *Reminder) Score() (float64, bool) {
	var days, distance float64
	hasDays := r.DueDays != nil
	hasDistance := r.DueDistance != nil
	if hasDays {
		days = float64(*r.DueDays)
	}
	if hasDistance {
		distance = *r.DueDistance
	}

	switch r.Metric {
	case MetricDate:
		if hasDays {
			return days, true
		}
	case MetricOdometer:
		if hasDistance {
			return distance, true
		}
	case MetricBoth:
		switch {
		case hasDays && hasDistance:
			return math.Min(days, distance), true
		case hasDays:
			return days, true
		case hasDistance:
			return distance, true
		}
	}
	return 0, false
}

// Overdue reports whether the reminder's effective due point has passed.
func (r *Reminder) Overdue() bool {
	score, ok := r.Score()
	return ok && score < 0
}

// nextReminder converts the raw reminders, derives due days and distance,
// and selects the one with the smallest effective due score. Ties break
// by highest urgency, then by lowest id for determinism. Reminders whose
// metric-required fields are missing are excluded.
func nextReminder(raw []lubelogger.Reminder, now time.Time, currentOdometer float64) (*Reminder, []string) {
	var warnings []string
	var best *Reminder
	var bestScore float64

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, item := range raw {
		reminder, warn := convertReminder(item, today, currentOdometer)
		warnings = append(warnings, warn...)
		if reminder == nil {
			continue
		}
		score, ok := reminder.Score()
		if !ok {
			warnings = append(warnings, fmt.Sprintf("reminder %d (%s) is missing fields for metric %s, excluded from selection", item.ID, item.Description, reminder.Metric))
			continue
		}
		if best == nil || score < bestScore ||
			(score == bestScore && reminder.Urgency > best.Urgency) ||
			(score == bestScore && reminder.Urgency == best.Urgency && reminder.ID < best.ID) {
			best = reminder
			bestScore = score
		}
	}
	return best, warnings
}

func convertReminder(item lubelogger.Reminder, today time.Time, currentOdometer float64) (*Reminder, []string) {
	var warnings []string

	metric, ok := ParseMetric(item.Metric)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("reminder %d has unknown metric %q, excluded", item.ID, item.Metric))
		return nil, warnings
	}
	urgency, ok := ParseUrgency(item.Urgency)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("reminder %d has unknown urgency %q, treated as NotUrgent", item.ID, item.Urgency))
	}

	reminder := &Reminder{
		ID:          item.ID,
		Description: item.Description,
		Urgency:     urgency,
		Metric:      metric,
		Tags:        item.Tags,
	}

	if strings.TrimSpace(item.DueDate) != "" {
		due, err := parseDate(item.DueDate)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("reminder %d has unparseable due date %q", item.ID, item.DueDate))
		} else {
			dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
			days := int(dueDay.Sub(today).Hours() / 24)
			reminder.DueDate = &dueDay
			reminder.DueDays = &days
		}
	}

	if value, ok := parseNumber(item.DueOdometer); ok && value > 0 {
		distance := value - currentOdometer
		reminder.DueOdometer = &value
		reminder.DueDistance = &distance
	}

	return reminder, warnings
}
