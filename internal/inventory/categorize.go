package inventory

import "strings"

// Categorize suggests a default category for the given instrument name.
// It performs case-insensitive matching: exact match first, then substring
// match. Returns "" when nothing matches so the item stays uncategorized.
func Categorize(instrumentName string) string {
	name := strings.ToLower(strings.TrimSpace(instrumentName))
	if name == "" {
		return ""
	}

	// Phase 1: exact match
	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	// Phase 2: substring match (ordered more-specific first)
	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return ""
}

var exactMatch = map[string]string{
	// Audio
	"microphone":  "Audio",
	"mic":         "Audio",
	"mixer":       "Audio",
	"amplifier":   "Audio",
	"amp":         "Audio",
	"speaker":     "Audio",
	"subwoofer":   "Audio",
	"monitor":     "Audio",
	"di box":      "Audio",
	"headphones":  "Audio",
	"iem":         "Audio",
	"soundboard":  "Audio",
	"audio interface": "Audio",

	// Video
	"camera":    "Video",
	"camcorder": "Video",
	"projector": "Video",
	"switcher":  "Video",
	"capture card": "Video",
	"tripod":    "Video",
	"gimbal":    "Video",
	"teleprompter": "Video",

	// Lighting
	"spotlight":  "Lighting",
	"floodlight": "Lighting",
	"par can":    "Lighting",
	"dimmer":     "Lighting",
	"haze machine": "Lighting",
	"fog machine":  "Lighting",

	// Accessories
	"cable":     "Accessories",
	"stand":     "Accessories",
	"clamp":     "Accessories",
	"adapter":   "Accessories",
	"battery":   "Accessories",
	"batteries": "Accessories",
	"case":      "Accessories",
	"road case": "Accessories",
	"gaff tape": "Accessories",
}

var substringMatches = []struct {
	keyword  string
	category string
}{
	// Audio (longer keywords first so "wireless mic receiver" beats "receiver")
	{"wireless mic", "Audio"},
	{"lavalier", "Audio"},
	{"microphone", "Audio"},
	{"mixer", "Audio"},
	{"speaker", "Audio"},
	{"amplifier", "Audio"},
	{"in-ear", "Audio"},
	{"audio", "Audio"},
	{"mic", "Audio"},

	// Video
	{"camera", "Video"},
	{"projector", "Video"},
	{"hdmi switcher", "Video"},
	{"sdi", "Video"},
	{"lens", "Video"},
	{"video", "Video"},
	{"screen", "Video"},

	// Lighting
	{"led panel", "Lighting"},
	{"spotlight", "Lighting"},
	{"uplight", "Lighting"},
	{"light", "Lighting"},
	{"dmx", "Lighting"},

	// Accessories
	{"xlr", "Accessories"},
	{"hdmi cable", "Accessories"},
	{"extension cord", "Accessories"},
	{"cable", "Accessories"},
	{"stand", "Accessories"},
	{"mount", "Accessories"},
	{"charger", "Accessories"},
	{"adapter", "Accessories"},
}
