package note

import "strings"

// VitalsNarrative renders the non-empty vital signs as one sentence in the
// fixed order BP, HR, RR, Temp, SpO2, Pain. It returns "" when no vital is
// set.
func VitalsNarrative(v *Vitals) string {
	if v == nil {
		return ""
	}
	fields := []struct {
		label string
		value FlexString
	}{
		{"BP", v.BP},
		{"HR", v.HR},
		{"RR", v.RR},
		{"Temp", v.Temp},
		{"SpO2", v.SpO2},
		{"Pain", v.Pain},
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(string(f.value)); s != "" {
			parts = append(parts, f.label+" "+s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Vitals: " + strings.Join(parts, ", ")
}
