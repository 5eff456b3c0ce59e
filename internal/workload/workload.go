// Package workload turns the shop's working hours and its open orders into
// capacity figures, delivery estimates and delivery alerts.
package workload

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/swapnilkulkarni99salesforce/mobileAppDemo/internal/records"
)

// Level grades how much of this week's capacity open orders consume.
type Level string

const (
	LevelAvailable  Level = "AVAILABLE"
	LevelBusy       Level = "BUSY"
	LevelOverbooked Level = "OVERBOOKED"
)

// AlertLevel grades how close an order is to its promised delivery date.
type AlertLevel string

const (
	AlertUrgent   AlertLevel = "URGENT"
	AlertWarning  AlertLevel = "WARNING"
	AlertUpcoming AlertLevel = "UPCOMING"
)

const (
	availableBelowPercent = 70
	busyBelowPercent      = 90

	slotHorizonDays     = 30
	deliveryHorizonDays = 365
	warningWithinDays   = 3
	upcomingWithinDays  = 7

	// DateLayout is the day/month/year form order dates are entered in.
	DateLayout = "02/01/2006"
	isoLayout  = "2006-01-02"
)

// Status summarizes the load of the open orders against this week's hours.
type Status struct {
	UtilizationPercent     int     `json:"utilizationPercent"`
	PendingOrders          int     `json:"pendingOrders"`
	HoursNeeded            float64 `json:"hoursNeeded"`
	AvailableHoursThisWeek float64 `json:"availableHoursThisWeek"`
	DaysUntilNextSlot      int     `json:"daysUntilNextSlot"`
	Level                  Level   `json:"level"`
	Message                string  `json:"message"`
	CanAcceptOrders        bool    `json:"canAcceptOrders"`
	RecommendedCapacity    int     `json:"recommendedCapacity"`
}

// Alert flags an open order due within a week or already late.
type Alert struct {
	Order             records.Order `json:"order"`
	DaysUntilDelivery int           `json:"daysUntilDelivery"`
	Overdue           bool          `json:"overdue"`
	Level             AlertLevel    `json:"level"`
}

// IsActive reports whether order still needs work: status Pending or
// In Progress, in any letter case.
func IsActive(order records.Order) bool {
	status := strings.TrimSpace(order.Status)
	return strings.EqualFold(status, "Pending") || strings.EqualFold(status, "In Progress")
}

// ActiveOrders keeps the orders that still need work.
func ActiveOrders(orders []records.Order) []records.Order {
	active := make([]records.Order, 0, len(orders))
	for _, order := range orders {
		if IsActive(order) {
			active = append(active, order)
		}
	}
	return active
}

// Calculate grades the open orders against the hours left in the week that
// contains now, today through Saturday.
func Calculate(open []records.Order, config records.WorkloadConfig, now time.Time) Status {
	hoursNeeded := float64(len(open)) * config.TimePerOrderHours
	available := availableHoursThisWeek(config, now)

	utilization := 100
	if available > 0 {
		utilization = int(hoursNeeded / available * 100)
	}

	status := Status{
		UtilizationPercent:     utilization,
		PendingOrders:          len(open),
		HoursNeeded:            hoursNeeded,
		AvailableHoursThisWeek: available,
		DaysUntilNextSlot:      daysUntilNextSlot(hoursNeeded, config, now),
	}
	switch {
	case utilization < availableBelowPercent:
		status.Level = LevelAvailable
		status.Message = "You have good capacity available"
	case utilization < busyBelowPercent:
		status.Level = LevelBusy
		status.Message = "You're running at high capacity"
	default:
		status.Level = LevelOverbooked
		status.Message = "You're overbooked! Consider extending delivery dates"
	}
	status.CanAcceptOrders = status.Level != LevelOverbooked

	if remaining := available - hoursNeeded; remaining > 0 && config.TimePerOrderHours > 0 {
		status.RecommendedCapacity = int(remaining / config.TimePerOrderHours)
	}
	return status
}

// DeliveryDate estimates when a new order placed on start would be ready,
// working through the pending orders first and spending each day's hours in
// turn. Days with no hours are skipped; the walk gives up after a year.
func DeliveryDate(pending int, config records.WorkloadConfig, start time.Time) time.Time {
	remaining := float64(pending+1) * config.TimePerOrderHours
	day := startOfDay(start)
	for checked := 0; remaining > 0 && checked < deliveryHorizonDays; checked++ {
		remaining -= config.HoursFor(day.Weekday())
		if remaining > 0 {
			day = day.AddDate(0, 0, 1)
		}
	}
	return day
}

// Alerts lists the orders due within a week or overdue, soonest first.
// Days until delivery count whole days from now, truncated, so an order due
// at midnight tonight is urgent. Orders whose estimated delivery date cannot
// be read are left out.
func Alerts(orders []records.Order, now time.Time) []Alert {
	alerts := make([]Alert, 0)
	for _, order := range orders {
		due, ok := parseDate(order.EstimatedDeliveryDate, now.Location())
		if !ok {
			continue
		}
		days := int(due.Sub(now) / (24 * time.Hour))

		var level AlertLevel
		switch {
		case days <= 0:
			level = AlertUrgent
		case days <= warningWithinDays:
			level = AlertWarning
		case days <= upcomingWithinDays:
			level = AlertUpcoming
		default:
			continue
		}
		alerts = append(alerts, Alert{Order: order, DaysUntilDelivery: days, Overdue: days < 0, Level: level})
	}
	slices.SortStableFunc(alerts, func(a, b Alert) int {
		return cmp.Compare(a.DaysUntilDelivery, b.DaysUntilDelivery)
	})
	return alerts
}

func availableHoursThisWeek(config records.WorkloadConfig, now time.Time) float64 {
	day := startOfDay(now)
	total := 0.0
	for offset := 0; offset < 7-int(now.Weekday()); offset++ {
		total += config.HoursFor(day.AddDate(0, 0, offset).Weekday())
	}
	return total
}

func daysUntilNextSlot(hours float64, config records.WorkloadConfig, now time.Time) int {
	if hours <= 0 {
		return 0
	}
	day := startOfDay(now)
	checked := 0
	for hours > 0 && checked < slotHorizonDays {
		hours -= config.HoursFor(day.Weekday())
		if hours > 0 {
			day = day.AddDate(0, 0, 1)
			checked++
		}
	}
	return checked
}

func parseDate(raw string, location *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, isoLayout} {
		if parsed, err := time.ParseInLocation(layout, raw, location); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
