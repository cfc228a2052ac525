package model

import "time"

// Vehicle mirrors a vehicle from the server's directory. The primary key
// is the server-assigned id; rows are never mutated locally beyond what a
// directory poll reports.
type Vehicle struct {
	ID           int64  `gorm:"primaryKey" json:"id"` // Upstream ID
	DisplayName  string `gorm:"size:256;not null" json:"display_name"`
	Make         string `gorm:"size:128" json:"make"`
	Model        string `gorm:"size:128" json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `gorm:"size:32" json:"license_plate"`
	IsElectric   bool   `json:"is_electric"`
	OdometerUnit string `gorm:"size:16" json:"odometer_unit"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
