package googlecalendar

import (
	"strconv"
	"strings"
)

type rgb struct {
	r, g, b int
}

// eventColors is Google Calendar's fixed event palette keyed by colorId.
var eventColors = map[string]rgb{
	"1":  {0x79, 0x86, 0xcb}, // lavender
	"2":  {0x33, 0xb6, 0x79}, // sage
	"3":  {0x8e, 0x24, 0xaa}, // grape
	"4":  {0xe6, 0x7c, 0x73}, // flamingo
	"5":  {0xf6, 0xbf, 0x26}, // banana
	"6":  {0xf4, 0x51, 0x1e}, // tangerine
	"7":  {0x03, 0x9b, 0xe5}, // peacock
	"8":  {0x61, 0x61, 0x61}, // graphite
	"9":  {0x3f, 0x51, 0xb5}, // blueberry
	"10": {0x0b, 0x80, 0x43}, // basil
	"11": {0xd5, 0x00, 0x00}, // tomato
}

// NearestColorID maps a "#rrggbb" hint onto the closest palette entry.
// Unparseable hints yield "" so the calendar default applies.
func NearestColorID(hex string) string {
	c, ok := parseHex(hex)
	if !ok {
		return ""
	}

	bestID := ""
	bestDistance := -1

	for id := 1; id <= len(eventColors); id++ {
		key := strconv.Itoa(id)
		p := eventColors[key]

		dr, dg, db := c.r-p.r, c.g-p.g, c.b-p.b
		distance := dr*dr + dg*dg + db*db

		if bestDistance < 0 || distance < bestDistance {
			bestID = key
			bestDistance = distance
		}
	}

	return bestID
}

func parseHex(hex string) (rgb, bool) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	if len(hex) != 6 {
		return rgb{}, false
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rgb{}, false
	}

	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}
