package vald

import "strings"

// unitSuffix maps the API's long unit names to the short suffixes used in
// destination column names.
var unitSuffix = map[string]string{
	"Centimeter":                       "cm",
	"Inch":                             "in",
	"Joule":                            "J",
	"Kilo":                             "kg",
	"Meter Per Second":                 "m/s",
	"Meter Per Second Per Second":      "m/s²",
	"Millisecond":                      "ms",
	"Second":                           "s",
	"Newton":                           "N",
	"Newton Per Centimeter":            "N/cm",
	"Newton Per Kilo":                  "N/kg",
	"Newton Per Meter":                 "N/m",
	"Newton Per Second":                "N/s",
	"Newton Per Second Per Centimeter": "N/s/cm",
	"Newton Per Second Per Kilo":       "N/s/kg",
	"Newton Second":                    "Ns",
	"Newton Second Per Kilo":           "Ns/kg",
	"Watt":                             "W",
	"Watt Per Kilo":                    "W/kg",
	"Watt Per Second":                  "W/s",
	"Watt Per Second Per Kilo":         "W/s/kg",
	"Percent":                          "%",
	"Pound":                            "lb",
	"RSIModified":                      "RSI_mod",
	"No Unit":                          "",
}

// UnitSuffix returns the short suffix for a unit name, or the name itself
// when unmapped.
func UnitSuffix(unit string) string {
	if short, ok := unitSuffix[unit]; ok {
		return short
	}
	return unit
}

// MetricID builds the destination-safe metric id for a result. Limb "Trial"
// is already implied by the Trial segment, so it is not repeated.
func MetricID(resultKey, limb, unit string) string {
	suffix := UnitSuffix(unit)
	var id string
	if limb == "Trial" || limb == "" {
		id = resultKey + "_Trial"
	} else {
		id = resultKey + "_" + limb + "_Trial"
	}
	if suffix != "" {
		id += "_" + suffix
	}
	return SanitizeMetricID(id)
}

// SanitizeMetricID replaces characters that are illegal in destination
// column names and trims trailing underscores.
func SanitizeMetricID(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, ".", "_")
	return strings.TrimRight(id, "_")
}
