package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NotAvailable is displayed in place of values the appliance did not report
const NotAvailable = "N/A"

const bytesPerGB = 1024 * 1024 * 1024

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// naiveTimeLayouts are tried after RFC3339 and interpreted as UTC
var naiveTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Mon Jan 2 15:04:05 2006",
}

// FormatBytes converts a byte count to a human readable string like "1.50 GB"
func FormatBytes(b *int64) string {
	if b == nil {
		return NotAvailable
	}
	return FormatBytesValue(float64(*b))
}

// FormatBytesValue formats a raw byte value using base 1024 units up to PB
func FormatBytesValue(value float64) string {
	for _, unit := range byteUnits {
		if math.Abs(value) < 1024.0 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		if unit == "PB" {
			break
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", value)
}

// FormatUptime converts seconds to "<days>d <hours>h <minutes>m"
func FormatUptime(seconds *float64) string {
	if seconds == nil || *seconds < 0 || math.IsNaN(*seconds) || math.IsInf(*seconds, 0) {
		return NotAvailable
	}
	total := int64(*seconds)
	days := total / (24 * 3600)
	total %= 24 * 3600
	hours := total / 3600
	total %= 3600
	minutes := total / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// FormatPercent renders a percentage with two decimals or N/A
func FormatPercent(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%%", *p)
}

// Round rounds x to the given number of decimal places.
// Non-finite input is returned as 0 so it never reaches JSON output.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	factor := math.Pow(10, float64(places))
	return math.Round(x*factor) / factor
}

// Percent returns round(part/whole*100, 2) clamped to [0,100], or 0 when whole is not positive
func Percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	p := Round(float64(part)/float64(whole)*100, 2)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// BytesToGB converts bytes to gigabytes (base 1024) rounded to two decimals
func BytesToGB(b float64) float64 {
	return Round(b/bytesPerGB, 2)
}

// ParseSize converts size strings like "9.07T" or "512 KiB" to bytes
func ParseSize(sizeStr string) int64 {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0
	}

	// Split the number from the unit suffix
	end := strings.IndexFunc(sizeStr, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
	})
	numPart, unit := sizeStr, ""
	if end >= 0 {
		numPart, unit = sizeStr[:end], strings.TrimSpace(sizeStr[end:])
	}

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0
	}

	// Convert to bytes based on unit (case-insensitive, "iB" suffix accepted)
	switch strings.TrimSuffix(strings.ToUpper(unit), "IB") {
	case "B":
		return int64(value)
	case "K", "KB":
		return int64(value * 1024)
	case "M", "MB":
		return int64(value * 1024 * 1024)
	case "G", "GB":
		return int64(value * 1024 * 1024 * 1024)
	case "T", "TB":
		return int64(value * 1024 * 1024 * 1024 * 1024)
	case "P", "PB":
		return int64(value * 1024 * 1024 * 1024 * 1024 * 1024)
	default:
		// Unknown unit, return as-is
		return int64(value)
	}
}

// ParseApplianceTime normalizes the timestamp shapes returned by the appliance
// API into a UTC instant. Accepted inputs are RFC3339 strings, naive ISO
// strings (assumed UTC), {"$date": <unix ms>} objects and bare unix ms numbers.
func ParseApplianceTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case string:
		return parseTimeString(t)
	case float64:
		return fromUnixMillis(t)
	case int64:
		return fromUnixMillis(float64(t))
	case int:
		return fromUnixMillis(float64(t))
	case map[string]interface{}:
		if date, ok := t["$date"]; ok {
			return ParseApplianceTime(date)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// ParseApplianceTimePtr is ParseApplianceTime returning nil for unparseable input
func ParseApplianceTimePtr(v interface{}) *time.Time {
	t, ok := ParseApplianceTime(v)
	if !ok {
		return nil
	}
	return &t
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range naiveTimeLayouts {
		// Fractional seconds are accepted even though the layouts omit them
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func fromUnixMillis(ms float64) (time.Time, bool) {
	if ms <= 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}
