package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Room types.
const (
	RoomStandard = "Standard"
	RoomDeluxe   = "Deluxe"
	RoomSuite    = "Suite"
)

// Housekeeping states of a room.
const (
	HousekeepingClean       = "Clean"
	HousekeepingDirty       = "Dirty"
	HousekeepingMaintenance = "Under Maintenance"
)

var RoomTypes = []string{RoomStandard, RoomDeluxe, RoomSuite}

var HousekeepingStates = []string{HousekeepingClean, HousekeepingDirty, HousekeepingMaintenance}

// SeasonalRate overrides the base rate between two dates, both inclusive.
type SeasonalRate struct {
	SeasonName string          `json:"season_name"`
	StartDate  Date            `json:"start_date"`
	EndDate    Date            `json:"end_date"`
	Price      decimal.Decimal `json:"price"`
}

type Room struct {
	ID                 uint64          `json:"id"`
	RoomNumber         string          `json:"room_number"`
	RoomType           string          `json:"room_type"`
	BaseRate           decimal.Decimal `json:"base_rate"`
	SeasonalRates      []SeasonalRate  `json:"seasonal_rates"`
	IsAvailable        bool            `json:"is_available"`
	HousekeepingStatus string          `json:"housekeeping_status"`
	Amenities          []string        `json:"amenities"`
	Description        string          `json:"description"`
	Images             []string        `json:"images"`
	CreatedBy          *uint64         `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// RateFor returns the price of the first seasonal band containing the date,
// or the base rate. Only the calendar day of each value is compared.
func (r Room) RateFor(day time.Time) decimal.Decimal {
	d := truncateDay(day)
	for _, s := range r.SeasonalRates {
		if !d.Before(truncateDay(s.StartDate.Time)) && !d.After(truncateDay(s.EndDate.Time)) {
			return s.Price
		}
	}
	return r.BaseRate
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func OneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
