// internal/engine/entities.go
package engine

import (
	"regexp"
	"strconv"
	"strings"

	"advisor-engine/internal/models"
)

// Entities maps slot names to extracted values. Absent slots are omitted.
type Entities map[string]string

const (
	SlotDay            = "day"
	SlotPlatform       = "platform"
	SlotDuration       = "duration"
	SlotBrandName      = "brandName"
	SlotIndustry       = "industry"
	SlotObjective      = "objective"
	SlotTargetAudience = "targetAudience"
)

var (
	dayPattern      = regexp.MustCompile(`\bday\s*#?\s*(\d{1,3})\b`)
	durationPattern = regexp.MustCompile(`\b(\d{1,3})\s*(minutes|minute|mins|min|hours|hour|hrs|hr)\b`)

	// canonical platform name keyed by normalized token
	platforms = map[string]string{
		"linkedin":   "linkedin",
		"instagram":  "instagram",
		"insta":      "instagram",
		"ig":         "instagram",
		"tiktok":     "tiktok",
		"facebook":   "facebook",
		"fb":         "facebook",
		"youtube":    "youtube",
		"twitter":    "twitter",
		"threads":    "threads",
		"pinterest":  "pinterest",
		"email":      "email",
		"newsletter": "newsletter",
		"podcast":    "podcast",
		"blog":       "blog",
	}
)

// ExtractEntities derives slots from the raw text and the situational data.
// Text wins over profile data for the same slot.
func ExtractEntities(input string, data models.SituationalData) Entities {
	out := Entities{}
	lower := strings.ToLower(truncateRunes(input, DefaultMaxInputRunes))

	if m := dayPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			out[SlotDay] = strconv.Itoa(n)
		}
	}
	if _, ok := out[SlotDay]; !ok && data.CurrentDay > 0 {
		out[SlotDay] = strconv.Itoa(data.CurrentDay)
	}

	if m := durationPattern.FindStringSubmatch(lower); m != nil {
		unit := "min"
		if strings.HasPrefix(m[2], "h") {
			unit = "h"
		}
		out[SlotDuration] = m[1] + unit
	}

	for _, tok := range strings.Fields(normalize(lower)) {
		if p, ok := platforms[tok]; ok {
			out[SlotPlatform] = p
			break
		}
	}

	setIfPresent(out, SlotBrandName, data.BrandName)
	setIfPresent(out, SlotIndustry, data.Industry)
	setIfPresent(out, SlotObjective, data.Objective)
	setIfPresent(out, SlotTargetAudience, data.TargetAudience)
	return out
}

func setIfPresent(e Entities, slot, value string) {
	if v := strings.TrimSpace(value); v != "" {
		e[slot] = v
	}
}

// Day returns the day slot as an int, or 0 when absent.
func (e Entities) Day() int {
	n, err := strconv.Atoi(e[SlotDay])
	if err != nil {
		return 0
	}
	return n
}
