package ops

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/note"
)

// Export formats
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var formatExt = map[string]string{
	FormatMarkdown: ".md",
	FormatHTML:     ".html",
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Target
	Format          string // markdown (default) or html
	Path            string // optional, default: ~/.ptnote/exports/<title>-<case>-<encounter>-<timestamp>.<ext>
	AllowIncomplete bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string           `json:"path"`
	Format     string           `json:"format"`
	Bytes      int              `json:"bytes"`
	ExportedAt int64            `json:"exported_at"`
	Lint       *note.LintResult `json:"lint"`
}

// Export renders the session's draft as a SOAP note and writes it to a file.
// Notes missing required sections are refused unless AllowIncomplete is set.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = FormatMarkdown
	}
	ext, ok := formatExt[format]
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown format %q (expected markdown or html)", input.Format))
	}

	sess, err := openSession(ctx, env, input.Target, nil)
	if err != nil {
		return nil, err
	}
	draft := sess.Draft()

	lint := note.Lint(draft)
	if !lint.Valid && !input.AllowIncomplete {
		return nil, errors.NewNoteIncomplete(lint.MissingSections)
	}

	body, err := renderNote(draft, format)
	if err != nil {
		return nil, err
	}

	now := env.now()
	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(draft.NoteTitle, sess.CaseID(), sess.EncounterID(), ext, now.Format("2006-01-02T150405"))
		if err != nil {
			return nil, err
		}
	}

	// Default paths are validated too; titles are user-controlled.
	if err := ValidateExportPath(exportPath, ext, env.Config); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("export")
	}
	if err := writeFileAtomic(exportPath, body); err != nil {
		return nil, err
	}

	env.Logger.Info().Str("path", exportPath).Str("format", format).Msg("note exported")
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Bytes:      len(body),
		ExportedAt: now.Unix(),
		Lint:       lint,
	}, nil
}

func renderNote(d *note.Draft, format string) ([]byte, error) {
	md := note.RenderMarkdown(d)
	if format == FormatMarkdown {
		return []byte(md), nil
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	buf.WriteString(html.EscapeString(titleOrDefault(d.NoteTitle)))
	buf.WriteString("</title>\n</head>\n<body>\n")
	renderer := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("render html: %w", err))
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return "SOAP Note"
	}
	return title
}

// writeFileAtomic writes data to a temp file beside path and renames it into
// place, so an existing file survives a failed export.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	// On Windows, os.Rename fails if the destination exists. Fail and keep the
	// existing file rather than delete-then-rename.
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// defaultExportPath builds ~/.ptnote/exports/<title>-<case>-<encounter>-<timestamp><ext>.
func defaultExportPath(title, caseID, encounterID, ext, timestamp string) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := SanitizeForFilename(titleOrDefault(title)) + "-" + SanitizeForFilename(caseID) + "-" + SanitizeForFilename(encounterID)
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, timestamp, ext)), nil
}
