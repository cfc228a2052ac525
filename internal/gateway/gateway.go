package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lubelogger-bridge/internal/lubelogger"
)

// Writer is the slice of the LubeLogger client the gateway submits
// through.
type Writer interface {
	CreateRecord(ctx context.Context, vehicleID int64, kind lubelogger.WriteKind, payload map[string]any) error
}

// Directory resolves vehicle ids against the coordinator's directory.
type Directory interface {
	Resolve(vehicleID int64) (lubelogger.Vehicle, error)
}

// Gateway validates caller-supplied record requests, translates them into
// the server's payload shape, and submits them. Writes are independent of
// the polling cycle; a write followed immediately by a snapshot read may
// not reflect it until the coordinator's next cycle.
type Gateway struct {
	client Writer
	dir    Directory
}

// New creates a write gateway.
func New(client Writer, dir Directory) *Gateway {
	return &Gateway{client: client, dir: dir}
}

// OdometerRequest is a caller-supplied odometer reading.
type OdometerRequest struct {
	Date     string   `json:"date" binding:"required"`
	Odometer float64  `json:"odometer" binding:"required"`
	Notes    string   `json:"notes"`
	Tags     []string `json:"tags"`
}

// AddOdometer validates and submits an odometer record.
func (g *Gateway) AddOdometer(ctx context.Context, vehicleID int64, req OdometerRequest) error {
	if _, err := g.dir.Resolve(vehicleID); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	if req.Odometer <= 0 {
		return &lubelogger.ValidationError{Reason: fmt.Sprintf("odometer must be a positive number, got %v", req.Odometer)}
	}

	return g.client.CreateRecord(ctx, vehicleID, lubelogger.WriteOdometer, map[string]any{
		"date":     date,
		"odometer": req.Odometer,
		"notes":    req.Notes,
		"tags":     joinTags(req.Tags),
	})
}

// FuelRequest is a caller-supplied fuel or charge record. The server is
// agnostic to the physical unit, so one request type serves combustion
// fuel and EV energy alike.
type FuelRequest struct {
	Date         string   `json:"date" binding:"required"`
	Odometer     float64  `json:"odometer" binding:"required"`
	FuelConsumed float64  `json:"fuel_consumed"`
	Cost         float64  `json:"cost"`
	IsFillToFull *bool    `json:"is_fill_to_full"`
	MissedFuelUp bool     `json:"missed_fuel_up"`
	Notes        string   `json:"notes"`
	Tags         []string `json:"tags"`
}

// AddFuel validates and submits a fuel/charge record.
func (g *Gateway) AddFuel(ctx context.Context, vehicleID int64, req FuelRequest) error {
	if _, err := g.dir.Resolve(vehicleID); err != nil {
		return err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}
	if req.Odometer <= 0 {
		return &lubelogger.ValidationError{Reason: fmt.Sprintf("odometer must be a positive number, got %v", req.Odometer)}
	}
	if req.FuelConsumed < 0 {
		return &lubelogger.ValidationError{Reason: fmt.Sprintf("fuel_consumed must be non-negative, got %v", req.FuelConsumed)}
	}
	if req.Cost < 0 {
		return &lubelogger.ValidationError{Reason: fmt.Sprintf("cost must be non-negative, got %v", req.Cost)}
	}

	isFillToFull := true
	if req.IsFillToFull != nil {
		isFillToFull = *req.IsFillToFull
	}

	return g.client.CreateRecord(ctx, vehicleID, lubelogger.WriteFuel, map[string]any{
		"date":         date,
		"odometer":     req.Odometer,
		"fuelConsumed": req.FuelConsumed,
		"cost":         req.Cost,
		"isFillToFull": isFillToFull,
		"missedFuelUp": req.MissedFuelUp,
		"notes":        req.Notes,
		"tags":         joinTags(req.Tags),
	})
}

// ReminderRequest is a caller-supplied maintenance reminder.
type ReminderRequest struct {
	Description string   `json:"description" binding:"required"`
	DueDate     string   `json:"due_date"`
	DueOdometer *float64 `json:"due_odometer"`
	Metric      string   `json:"metric"`
	Notes       string   `json:"notes"`
	Tags        []string `json:"tags"`
}

// AddReminder validates and submits a maintenance reminder. The metric
// decides which due fields are required: Date needs a due date, Odometer
// a due odometer, and Both at least one of the two.
func (g *Gateway) AddReminder(ctx context.Context, vehicleID int64, req ReminderRequest) error {
	if _, err := g.dir.Resolve(vehicleID); err != nil {
		return err
	}
	if strings.TrimSpace(req.Description) == "" {
		return &lubelogger.ValidationError{Reason: "description is required"}
	}

	metric := req.Metric
	if metric == "" {
		metric = "Both"
	}
	if metric != "Date" && metric != "Odometer" && metric != "Both" {
		return &lubelogger.ValidationError{Reason: fmt.Sprintf("metric must be Date, Odometer or Both, got %q", metric)}
	}

	hasDate := strings.TrimSpace(req.DueDate) != ""
	hasOdometer := req.DueOdometer != nil
	switch {
	case metric == "Date" && !hasDate:
		return &lubelogger.ValidationError{Reason: "metric Date requires due_date"}
	case metric == "Odometer" && !hasOdometer:
		return &lubelogger.ValidationError{Reason: "metric Odometer requires due_odometer"}
	case metric == "Both" && !hasDate && !hasOdometer:
		return &lubelogger.ValidationError{Reason: "metric Both requires due_date or due_odometer"}
	}

	payload := map[string]any{
		"description": req.Description,
		"metric":      metric,
		"notes":       req.Notes,
		"tags":        joinTags(req.Tags),
	}
	if hasDate {
		date, err := parseDate(req.DueDate)
		if err != nil {
			return err
		}
		payload["dueDate"] = date
	}
	if hasOdometer {
		if *req.DueOdometer <= 0 {
			return &lubelogger.ValidationError{Reason: fmt.Sprintf("due_odometer must be a positive number, got %v", *req.DueOdometer)}
		}
		payload["dueOdometer"] = *req.DueOdometer
	}

	return g.client.CreateRecord(ctx, vehicleID, lubelogger.WriteReminder, payload)
}

// parseDate normalizes a caller-supplied date into the server's expected
// YYYY-MM-DD form.
func parseDate(raw string) (string, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return "", &lubelogger.ValidationError{Reason: fmt.Sprintf("date %q is not a valid YYYY-MM-DD calendar date", raw)}
	}
	return t.Format("2006-01-02"), nil
}

// joinTags comma-joins free-text labels; the server imposes no vocabulary
// and neither do we.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
