package note

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString is a string field that also accepts JSON numbers and booleans.
// Case records written by different generators disagree on whether values
// like age or a goniometry reading are strings or numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case 't', 'f':
		b, err := strconv.ParseBool(string(trimmed))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", trimmed)
		}
		*f = FlexString(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("expected string or number, got %.20s", trimmed)
		}
		*f = FlexString(n.String())
	}
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// TextOrList holds a field that may be authored as one string or a list of
// strings. Items is non-nil only for the list form.
type TextOrList struct {
	Text  string
	Items []string
}

// IsList reports whether the value was a JSON array.
func (t TextOrList) IsList() bool {
	return t.Items != nil
}

// Join returns the trimmed text, or the non-blank trimmed items joined by sep.
func (t TextOrList) Join(sep string) string {
	if !t.IsList() {
		return strings.TrimSpace(t.Text)
	}
	parts := make([]string, 0, len(t.Items))
	for _, item := range t.Items {
		if s := strings.TrimSpace(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (t TextOrList) MarshalJSON() ([]byte, error) {
	if t.IsList() {
		return json.Marshal(t.Items)
	}
	return json.Marshal(t.Text)
}

func (t *TextOrList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*t = TextOrList{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		var items []FlexString
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		t.Items = make([]string, len(items))
		for i, item := range items {
			t.Items[i] = string(item)
		}
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return err
	}
	t.Text = string(s)
	return nil
}
