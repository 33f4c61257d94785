package reconcile

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ptnote/ptnote/internal/note"
)

// mergeMeta copies the case title and, for generated cases, writes a
// one-line HPI from the snapshot.
func mergeMeta(d *note.Draft, src source) error {
	c := src.c
	fill(&d.NoteTitle, c.Meta.Title)

	if !c.Meta.Generated || !blank(d.Subjective.HistoryOfPresentIllness) {
		return nil
	}
	age := strings.TrimSpace(c.Snapshot.Age.String())
	sex := strings.TrimSpace(c.Snapshot.Sex)
	title := strings.TrimSpace(c.Meta.Title)
	if age == "" || sex == "" || title == "" {
		return nil
	}
	d.Subjective.HistoryOfPresentIllness = fmt.Sprintf("%s-year-old %s presenting with %s.",
		age, capitalize(sex), strings.ToLower(title))
	return nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
