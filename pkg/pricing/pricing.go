// Package pricing is the pure pricing engine: no I/O, no clock, integer
// minor-unit arithmetic throughout. The same functions serve quoting and
// booking creation so the two can never drift.
package pricing

import (
	"time"

	"pedalo/pkg/model"
)

// DurationUnits returns the billable units for a window: elapsed time
// rounded up to whole hours. A 3h10m window bills as 4 units.
func DurationUnits(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	units := int64(d / time.Hour)
	if d%time.Hour != 0 {
		units++
	}
	return units
}

// OriginalAmount prices a window at the asset's hourly rate (minor units).
func OriginalAmount(hourlyRate int64, start, end time.Time) (units int64, amount int64) {
	units = DurationUnits(start, end)
	return units, units * hourlyRate
}

// Discount computes the discount a validated promotion yields on the
// original amount. Percentage discounts round half up at the paisa
// boundary and honor the promotion's cap; no discount ever exceeds the
// billable amount.
func Discount(p *model.Promotion, original int64) int64 {
	if p == nil || original <= 0 {
		return 0
	}

	var discount int64
	switch p.DiscountType {
	case model.DiscountPercentage:
		discount = (original*p.DiscountValue + 50) / 100
		if p.MaxDiscountAmount > 0 && discount > p.MaxDiscountAmount {
			discount = p.MaxDiscountAmount
		}
	case model.DiscountFixed:
		discount = p.DiscountValue
	default:
		return 0
	}

	if discount > original {
		discount = original
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}

// Taxes applies a whole-percent tax rate to the discounted amount,
// rounding half up.
func Taxes(netAmount int64, taxRatePercent int64) int64 {
	if netAmount <= 0 || taxRatePercent <= 0 {
		return 0
	}
	return (netAmount*taxRatePercent + 50) / 100
}

// FinalAmount reconstructs the payable amount from its components.
func FinalAmount(original, discount, taxes int64) int64 {
	return original - discount + taxes
}

// OvertimeMinutes returns the whole minutes by which the actual end
// exceeds the booked end, rounded up; zero when the ride ended on time.
func OvertimeMinutes(bookedEnd, actualEnd time.Time) int64 {
	over := actualEnd.Sub(bookedEnd)
	if over <= 0 {
		return 0
	}
	minutes := int64(over / time.Minute)
	if over%time.Minute != 0 {
		minutes++
	}
	return minutes
}

// OvertimeCharge prices overtime minutes at the asset's overtime hourly
// rate, prorated per minute and rounded half up at the paisa boundary.
func OvertimeCharge(bookedEnd, actualEnd time.Time, overtimeHourlyRate int64) (minutes int64, charge int64) {
	minutes = OvertimeMinutes(bookedEnd, actualEnd)
	if minutes == 0 || overtimeHourlyRate <= 0 {
		return minutes, 0
	}
	charge = (minutes*overtimeHourlyRate + 30) / 60
	return minutes, charge
}
