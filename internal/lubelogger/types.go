package lubelogger

import (
	"fmt"
	"strings"
)

// Category identifies a listable record type on the LubeLogger server.
type Category string

const (
	CategoryService  Category = "service"
	CategoryRepair   Category = "repair"
	CategoryUpgrade  Category = "upgrade"
	CategoryTax      Category = "tax"
	CategoryFuel     Category = "fuel"
	CategoryOdometer Category = "odometer"
)

// CostCategories are the categories whose records carry a cost that is
// summed into the per-vehicle totals. Odometer records are listable but
// carry no cost.
var CostCategories = []Category{
	CategoryService,
	CategoryRepair,
	CategoryUpgrade,
	CategoryTax,
	CategoryFuel,
}

// listPath returns the server endpoint that lists records of a category.
func (c Category) listPath() string {
	switch c {
	case CategoryService:
		return "/api/vehicle/servicerecords"
	case CategoryRepair:
		return "/api/vehicle/repairrecords"
	case CategoryUpgrade:
		return "/api/vehicle/upgraderecords"
	case CategoryTax:
		return "/api/vehicle/taxrecords"
	case CategoryFuel:
		return "/api/vehicle/gasrecords"
	case CategoryOdometer:
		return "/api/vehicle/odometerrecords"
	}
	return ""
}

// WriteKind identifies a record type the server accepts writes for.
type WriteKind string

const (
	WriteOdometer WriteKind = "odometer"
	WriteFuel     WriteKind = "fuel"
	WriteReminder WriteKind = "reminder"
)

func (k WriteKind) addPath() string {
	switch k {
	case WriteOdometer:
		return "/api/vehicle/odometerrecords/add"
	case WriteFuel:
		return "/api/vehicle/gasrecords/add"
	case WriteReminder:
		return "/api/vehicle/reminders/add"
	}
	return ""
}

// Vehicle is a vehicle as reported by the server's directory listing.
type Vehicle struct {
	ID           int64  `json:"id"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
	IsElectric   bool   `json:"isElectric"`
}

// DisplayName composes a human-readable label the way the server's own UI
// labels vehicles.
func (v Vehicle) DisplayName() string {
	parts := make([]string, 0, 3)
	if v.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", v.Year))
	}
	if v.Make != "" {
		parts = append(parts, v.Make)
	}
	if v.Model != "" {
		parts = append(parts, v.Model)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Vehicle %d", v.ID)
	}
	return strings.Join(parts, " ")
}

// Record is a raw record as returned by the per-category list endpoints.
// The server serializes numeric fields as strings; with the
// culture-invariant header set they arrive in invariant format. Parsing
// is left to the aggregator so that a malformed field degrades to a
// data-quality warning instead of a fetch failure.
type Record struct {
	ID           int64  `json:"id"`
	Date         string `json:"date"`
	Odometer     string `json:"odometer"`
	Cost         string `json:"cost"`
	Description  string `json:"description"`
	FuelConsumed string `json:"fuelConsumed"`
	Notes        string `json:"notes"`
}

// Reminder is a raw maintenance reminder from the reminders endpoint.
type Reminder struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
	Metric      string `json:"metric"`
	DueDate     string `json:"dueDate"`
	DueOdometer string `json:"dueOdometer"`
	Notes       string `json:"notes"`
	Tags        string `json:"tags"`
}
