package note

import (
	"testing"
)

func TestNormalizePainQuality(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "burning sensation", input: "Burning sensation", want: "burning"},
		{name: "sharp", input: "sharp with reaching", want: "sharp"},
		{name: "stabbing", input: "stabs when I twist", want: "stabbing"},
		{name: "radiating", input: "radiates down the leg", want: "shooting"},
		{name: "electric", input: "electric shock", want: "shooting"},
		{name: "throbbing", input: "Pulsing", want: "throbbing"},
		{name: "pins and needles", input: "pins and needles", want: "tingling"},
		{name: "numbness", input: "numbness in fingers", want: "tingling"},
		{name: "sore", input: "sore", want: "aching"},
		{name: "dull", input: "DULL", want: "dull"},
		{name: "cramping", input: "cramps at night", want: "cramping"},
		{name: "unrecognized passes through lowercased", input: "  Pressure  ", want: "pressure"},
		{name: "empty", input: "", want: ""},
		{name: "whitespace", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePainQuality(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePainQuality(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizePainQuality(got); again != got {
				t.Errorf("NormalizePainQuality not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizePainPattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Constant ache", "constant"},
		{"comes and goes", "intermittent"},
		{"worse in the morning", "morning"},
		{"evenings", "night"},
		{"with use", "activity-dependent"},
		{"activity-dependent", "activity-dependent"},
		{"Random", "random"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizePainPattern(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePainPattern(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizePainPattern(got); again != got {
				t.Errorf("NormalizePainPattern not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeMmtGrade(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "3+ rounds up", input: "3+", want: "4-/5"},
		{name: "bare 5", input: "5", want: "5/5"},
		{name: "already normalized", input: "4/5", want: "4/5"},
		{name: "normalized with modifier", input: "4-/5", want: "4-/5"},
		{name: "spaces removed", input: " 4 / 5 ", want: "4/5"},
		{name: "bare with minus", input: "4-", want: "4-/5"},
		{name: "5-", input: "5-", want: "4+/5"},
		{name: "5+", input: "5+", want: "5/5"},
		{name: "zero", input: "0", want: "0/5"},
		{name: "word normal", input: "Normal", want: "5/5"},
		{name: "word wnl", input: "WNL", want: "5/5"},
		{name: "word fair", input: "fair", want: "3/5"},
		{name: "word trace", input: "trace", want: "1/5"},
		{name: "out of range passes through", input: "7", want: "7"},
		{name: "garbage passes through trimmed", input: "  not tested ", want: "not tested"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMmtGrade(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeMmtGrade(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeMmtGrade(got); again != got {
				t.Errorf("NormalizeMmtGrade not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestMapFrequencyToEnum(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3x per week", "3x-week"},
		{"3x/week", "3x-week"},
		{"2 times a week", "2x-week"},
		{"3x-week", "3x-week"},
		{"2x per day", "2x-day"},
		{"Daily", "daily"},
		{"  As Needed ", "as needed"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := MapFrequencyToEnum(tt.input)
			if got != tt.want {
				t.Errorf("MapFrequencyToEnum(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := MapFrequencyToEnum(got); again != got {
				t.Errorf("MapFrequencyToEnum not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestMapDurationToEnum(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"6 weeks", "6-weeks"},
		{"1 week", "1-week"},
		{"6-weeks", "6-weeks"},
		{"8 wks", "8-weeks"},
		{"3 months", "3-months"},
		{"1 month", "1-month"},
		{"Until discharge", "until discharge"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := MapDurationToEnum(tt.input)
			if got != tt.want {
				t.Errorf("MapDurationToEnum(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := MapDurationToEnum(got); again != got {
				t.Errorf("MapDurationToEnum not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestVitalsNarrative(t *testing.T) {
	t.Run("fixed order", func(t *testing.T) {
		got := VitalsNarrative(&Vitals{HR: "72", BP: "120/80", Pain: "3"})
		want := "Vitals: BP 120/80, HR 72, Pain 3"
		if got != want {
			t.Errorf("VitalsNarrative() = %q, want %q", got, want)
		}
	})

	t.Run("all vitals", func(t *testing.T) {
		got := VitalsNarrative(&Vitals{BP: "118/76", HR: "68", RR: "14", Temp: "98.6", SpO2: "99%", Pain: "2"})
		want := "Vitals: BP 118/76, HR 68, RR 14, Temp 98.6, SpO2 99%, Pain 2"
		if got != want {
			t.Errorf("VitalsNarrative() = %q, want %q", got, want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := VitalsNarrative(&Vitals{HR: "  "}); got != "" {
			t.Errorf("VitalsNarrative() = %q, want empty", got)
		}
		if got := VitalsNarrative(nil); got != "" {
			t.Errorf("VitalsNarrative(nil) = %q, want empty", got)
		}
	})
}
