package weather

import "fmt"

// WMO weather interpretation codes.
var wmoDescriptions = map[int]string{
	0: "clear sky",
	1: "mainly clear", 2: "partly cloudy", 3: "overcast",
	45: "foggy", 48: "icy fog",
	51: "light drizzle", 53: "drizzle", 55: "heavy drizzle",
	61: "light rain", 63: "rain", 65: "heavy rain",
	71: "light snow", 73: "snow", 75: "heavy snow",
	77: "snow grains",
	80: "showers", 81: "showers", 82: "heavy showers",
	85: "snow showers", 86: "heavy snow showers",
	95: "thunderstorm", 96: "thunderstorm w/hail", 99: "severe thunderstorm",
}

// Three-letter icons for the device's bitmap font.
var wmoIcons = map[int]string{
	0: "SUN",
	1: "SUN", 2: "FEW", 3: "OVC",
	45: "FOG", 48: "FOG",
	51: "DZL", 53: "DZL", 55: "DZL",
	61: "RAN", 63: "RAN", 65: "RAN",
	71: "SNW", 73: "SNW", 75: "SNW", 77: "SNW",
	80: "SHR", 81: "SHR", 82: "SHR",
	85: "SNS", 86: "SNS",
	95: "STM", 96: "STM", 99: "STM",
}

// Describe returns the condition text and icon for a WMO code.
func Describe(code int) (condition, icon string) {
	condition, ok := wmoDescriptions[code]
	if !ok {
		condition = fmt.Sprintf("code %d", code)
	}
	icon, ok = wmoIcons[code]
	if !ok {
		icon = "???"
	}
	return condition, icon
}
