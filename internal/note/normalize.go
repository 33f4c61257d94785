package note

import (
	"regexp"
	"strings"
)

// pattern maps free text matching re to a canonical token.
type pattern struct {
	re    *regexp.Regexp
	token string
}

// painQualityPatterns are tried in order; the first match wins.
var painQualityPatterns = []pattern{
	{regexp.MustCompile(`(?i)burn`), "burning"},
	{regexp.MustCompile(`(?i)sharp`), "sharp"},
	{regexp.MustCompile(`(?i)stab`), "stabbing"},
	{regexp.MustCompile(`(?i)shoot|radiat|electric`), "shooting"},
	{regexp.MustCompile(`(?i)throb|puls`), "throbbing"},
	{regexp.MustCompile(`(?i)tingl|pins and needles|numb`), "tingling"},
	{regexp.MustCompile(`(?i)ach|sore`), "aching"},
	{regexp.MustCompile(`(?i)dull`), "dull"},
	{regexp.MustCompile(`(?i)cramp`), "cramping"},
}

var painPatternPatterns = []pattern{
	{regexp.MustCompile(`(?i)constant|continuous|persistent`), "constant"},
	{regexp.MustCompile(`(?i)intermittent|comes and goes|on and off|occasional`), "intermittent"},
	{regexp.MustCompile(`(?i)morning`), "morning"},
	{regexp.MustCompile(`(?i)night|evening`), "night"},
	{regexp.MustCompile(`(?i)activity|movement|with use`), "activity-dependent"},
}

func matchToken(patterns []pattern, s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, p := range patterns {
		if p.re.MatchString(s) {
			return p.token
		}
	}
	return strings.ToLower(s)
}

// NormalizePainQuality maps a free-text pain description to a pain quality
// token. Unrecognized text is returned trimmed and lowercased.
func NormalizePainQuality(s string) string {
	return matchToken(painQualityPatterns, s)
}

// NormalizePainPattern maps a free-text temporal description to a pain
// pattern token. Unrecognized text is returned trimmed and lowercased.
func NormalizePainPattern(s string) string {
	return matchToken(painPatternPatterns, s)
}

var (
	mmtFractionRegex = regexp.MustCompile(`^[0-5][+-]?/5$`)
	mmtBareRegex     = regexp.MustCompile(`^[0-5][+-]?$`)
	spaceRegex       = regexp.MustCompile(`\s+`)
)

// mmtBareOverrides covers bare grades that sit outside the /5 scale or read
// better as the neighbouring grade.
var mmtBareOverrides = map[string]string{
	"3+": "4-/5",
	"5-": "4+/5",
	"5+": "5/5",
}

var mmtWords = map[string]string{
	"normal": "5/5",
	"wnl":    "5/5",
	"good":   "4/5",
	"fair":   "3/5",
	"poor":   "2/5",
	"trace":  "1/5",
	"zero":   "0/5",
}

// NormalizeMmtGrade maps a manual muscle test grade to the "N/5" form.
// Grades already in that form are returned unchanged; anything it cannot
// read is returned trimmed.
func NormalizeMmtGrade(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	compact := spaceRegex.ReplaceAllString(trimmed, "")
	if mmtFractionRegex.MatchString(compact) {
		return compact
	}
	if mmtBareRegex.MatchString(compact) {
		if v, ok := mmtBareOverrides[compact]; ok {
			return v
		}
		return compact + "/5"
	}
	if v, ok := mmtWords[strings.ToLower(compact)]; ok {
		return v
	}
	return trimmed
}

var (
	perDayRegex   = regexp.MustCompile(`(?i)^(\d+)\s*(?:x|times)\s*(?:(?:per|a|/)\s*)?(?:day|daily)$`)
	perWeekRegex  = regexp.MustCompile(`(?i)^(\d+)\s*(?:x|times)\s*(?:(?:per|a|/)\s*)?(?:week|wk)$`)
	dailyRegex    = regexp.MustCompile(`(?i)^(?:daily|every day|once a day)$`)
	durationRegex = regexp.MustCompile(`(?i)^(\d+)\s*-?\s*(day|week|wk|month|mo)s?$`)
)

// MapFrequencyToEnum maps free-text visit frequency ("3x per week") to its
// canonical token ("3x-week"). Canonical tokens and unrecognized text come
// back trimmed and lowercased.
func MapFrequencyToEnum(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	compact := strings.ReplaceAll(lower, "-", " ")
	if m := perWeekRegex.FindStringSubmatch(compact); m != nil {
		return m[1] + "x-week"
	}
	if m := perDayRegex.FindStringSubmatch(compact); m != nil {
		return m[1] + "x-day"
	}
	if dailyRegex.MatchString(compact) {
		return "daily"
	}
	return lower
}

// MapDurationToEnum maps free-text plan duration ("6 weeks") to its
// canonical token ("6-weeks", "1-week", "3-months").
func MapDurationToEnum(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	m := durationRegex.FindStringSubmatch(lower)
	if m == nil {
		return lower
	}
	n := m[1]
	unit := m[2]
	switch unit {
	case "wk":
		unit = "week"
	case "mo":
		unit = "month"
	}
	if n != "1" {
		unit += "s"
	}
	return n + "-" + unit
}
