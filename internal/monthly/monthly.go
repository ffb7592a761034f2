// Package monthly simulates and consolidates one month of short-term rental
// operations into the rows behind the monthly_consolidated view.
package monthly

import (
	"fmt"
	"time"
)

const (
	MonthLayout  = "2006-01"
	DaysPerMonth = 30
)

type Property struct {
	PropertyID string
	OwnerName  string
	City       string
	State      string
	Region     string
	Status     string
}

type Booking struct {
	PropertyID      string
	Month           string
	NumReservations int
	OccupiedDays    int
	GrossRevenue    float64
}

type Financial struct {
	PropertyID     string
	Month          string
	PlatformFeePct float64
	ExtraCost      float64
	GrossRevenue   float64
	NetRevenue     float64
	MarginPct      *float64
}

type Feedback struct {
	PropertyID          string
	Month               string
	AvgRating           *float64
	ComplaintCategories map[string]int
	SummaryAI           *string
}

// Dataset is everything one close writes for a month.
type Dataset struct {
	Month      string
	Properties []Property
	Bookings   []Booking
	Financials []Financial
	Feedbacks  []Feedback
}

// Consolidated is one property's row for a month. It carries the reporting
// columns plus OccupancyPct, which only the exports use.
type Consolidated struct {
	PropertyID          string
	OwnerName           string
	City                string
	State               string
	Region              string
	Month               string
	NumReservations     int
	OccupiedDays        int
	GrossRevenue        float64
	PlatformFeePct      *float64
	ExtraCost           *float64
	NetRevenue          *float64
	MarginPct           *float64
	OccupancyPct        float64
	AvgRating           *float64
	ComplaintCategories map[string]int
	SummaryAI           *string
}

type RankedProperty struct {
	PropertyID   string
	OwnerName    string
	GrossRevenue float64
	MarginPct    *float64
}

type KPIs struct {
	TotalGrossRevenue   float64
	TotalNetRevenue     float64
	AverageOccupancyPct float64
	TopByGrossRevenue   []RankedProperty
}

// CurrentMonth formats now as YYYY-MM in UTC.
func CurrentMonth(now time.Time) string {
	return now.UTC().Format(MonthLayout)
}

func ParseMonth(month string) (time.Time, error) {
	parsed, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: want YYYY-MM", month)
	}
	return parsed, nil
}

// SeedForMonth derives a stable seed (YYYYMM) so rerunning a close without an
// explicit seed rewrites the same figures.
func SeedForMonth(month string) (int64, error) {
	parsed, err := ParseMonth(month)
	if err != nil {
		return 0, err
	}
	return int64(parsed.Year()*100 + int(parsed.Month())), nil
}
