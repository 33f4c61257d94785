package main

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ptnote/ptnote/internal/errors"
	"github.com/ptnote/ptnote/internal/mcp"
	"github.com/ptnote/ptnote/internal/ops"
	"github.com/ptnote/ptnote/internal/session"
)

// maxStdinBytes caps draft and case JSON read from stdin.
const maxStdinBytes = 4 << 20

// newCLIApp creates the CLI application with all commands. env may be nil
// when only help or version output is needed.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "ptnote",
		Usage:   "SOAP note simulator for physical therapy education",
		Version: Version,
		Commands: []*cli.Command{
			openCmd(env),
			saveCmd(env),
			resetCmd(env),
			lintCmd(env),
			exportCmd(env),
			draftsCmd(env),
			fetchCmd(env),
			deleteCmd(env),
			migrateCmd(env),
			caseCmd(env),
			toolsCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "encounter", Aliases: []string{"e"}, Value: "eval", Usage: "Encounter id"},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "student", Usage: "Editor mode: student|faculty|key"},
	}
}

func withTargetFlags(flags ...cli.Flag) []cli.Flag {
	return append(targetFlags(), flags...)
}

// targetFrom reads the case id argument and the target flags.
func targetFrom(c *cli.Context) (ops.Target, error) {
	if c.NArg() < 1 {
		return ops.Target{}, errors.NewInvalidRequest("case id argument is required")
	}
	return ops.Target{
		CaseID:      c.Args().First(),
		EncounterID: c.String("encounter"),
		Mode:        c.String("mode"),
	}, nil
}

func addressFrom(c *cli.Context) (ops.DraftAddress, error) {
	if c.NArg() < 1 {
		return ops.DraftAddress{}, errors.NewInvalidRequest("case id argument is required")
	}
	return ops.DraftAddress{CaseID: c.Args().First(), EncounterID: c.String("encounter")}, nil
}

func openCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Open a draft and print it",
		ArgsUsage: "<case-id>",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			target, err := targetFrom(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Open(c.Context, env, ops.OpenInput{Target: target})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func saveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a draft (reads draft JSON from stdin when piped)",
		ArgsUsage: "<case-id>",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			target, err := targetFrom(c)
			if err != nil {
				return outputError(err)
			}
			input := ops.SaveInput{Target: target}
			if stdinHasData() {
				text, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				if text != "" {
					input.Draft = json.RawMessage(text)
				}
			}
			output, err := ops.Save(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func resetCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Reset a draft to the empty template",
		ArgsUsage: "<case-id>",
		Flags: withTargetFlags(
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		),
		Action: func(c *cli.Context) error {
			target, err := targetFrom(c)
			if err != nil {
				return outputError(err)
			}
			local := *env
			if c.Bool("yes") {
				local.Confirm = func(context.Context, string) (bool, error) { return true, nil }
			} else {
				local.Confirm = promptConfirm(os.Stdin, os.Stderr)
			}
			output, err := ops.Reset(c.Context, &local, ops.ResetInput{Target: target})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func lintCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Report missing required note sections",
		ArgsUsage: "<case-id>",
		Flags:     targetFlags(),
		Action: func(c *cli.Context) error {
			target, err := targetFrom(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Lint(c.Context, env, ops.LintInput{Target: target})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a draft as Markdown or HTML",
		ArgsUsage: "<case-id>",
		Flags: withTargetFlags(
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: ops.FormatMarkdown, Usage: "Output format: markdown|html"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.ptnote/exports/...)"},
			&cli.BoolFlag{Name: "allow-incomplete", Usage: "Export even when required sections are missing"},
		),
		Action: func(c *cli.Context) error {
			target, err := targetFrom(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Export(c.Context, env, ops.ExportInput{
				Target:          target,
				Format:          c.String("format"),
				Path:            c.String("path"),
				AllowIncomplete: c.Bool("allow-incomplete"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func draftsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "drafts",
		Usage: "List saved drafts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "case", Aliases: []string{"c"}, Usage: "Only drafts for this case id"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListDrafts(c.Context, env, ops.ListDraftsInput{
				CaseID: c.String("case"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func fetchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Print a saved draft as stored",
		ArgsUsage: "<case-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "encounter", Aliases: []string{"e"}, Value: "eval", Usage: "Encounter id"},
		},
		Action: func(c *cli.Context) error {
			addr, err := addressFrom(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.FetchDraft(c.Context, env, ops.FetchDraftInput{DraftAddress: addr})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func deleteCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a saved draft",
		ArgsUsage: "<case-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "encounter", Aliases: []string{"e"}, Value: "eval", Usage: "Encounter id"},
		},
		Action: func(c *cli.Context) error {
			addr, err := addressFrom(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.DeleteDraft(c.Context, env, ops.DeleteDraftInput{DraftAddress: addr})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func migrateCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Move a saved draft to another case id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Value: "new", Usage: "Source case id"},
			&cli.StringFlag{Name: "to", Required: true, Usage: "Destination case id"},
			&cli.StringFlag{Name: "encounter", Aliases: []string{"e"}, Value: "eval", Usage: "Encounter id"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.MigrateDraftKey(c.Context, env, ops.MigrateDraftKeyInput{
				FromCaseID:  c.String("from"),
				ToCaseID:    c.String("to"),
				EncounterID: c.String("encounter"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func caseCmd(env *ops.Env) *cli.Command {
	modeFlag := func(value string) cli.Flag {
		return &cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: value, Usage: "Editor mode: student|faculty|key"}
	}
	return &cli.Command{
		Name:  "case",
		Usage: "Read and author case records",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a case record",
				ArgsUsage: "<case-id>",
				Flags:     []cli.Flag{modeFlag("student")},
				Action: func(c *cli.Context) error {
					output, err := ops.GetCase(c.Context, env, ops.GetCaseInput{ID: c.Args().First(), Mode: c.String("mode")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List case summaries",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListCases(c.Context, env, ops.ListCasesInput{Limit: c.Int("limit"), Offset: c.Int("offset")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "create",
				Usage: "Create a case (reads case JSON from stdin when piped)",
				Flags: []cli.Flag{modeFlag("faculty")},
				Action: func(c *cli.Context) error {
					data, err := optionalStdin()
					if err != nil {
						return outputError(err)
					}
					output, err := ops.CreateCase(c.Context, env, ops.CreateCaseInput{Mode: c.String("mode"), Case: data})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "update",
				Usage:     "Replace a case record (reads case JSON from stdin)",
				ArgsUsage: "<case-id>",
				Flags:     []cli.Flag{modeFlag("faculty")},
				Action: func(c *cli.Context) error {
					data, err := optionalStdin()
					if err != nil {
						return outputError(err)
					}
					if len(data) == 0 {
						return outputError(errors.NewInvalidRequest("case JSON must be piped via stdin"))
					}
					output, err := ops.UpdateCase(c.Context, env, ops.UpdateCaseInput{ID: c.Args().First(), Mode: c.String("mode"), Case: data})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

func toolsCmd() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List the MCP tool names",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"tools": mcp.AllToolNames()})
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var nErr *errors.NoteError
	if stderrors.As(err, &nErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// promptConfirm asks on out and reads a y/N answer from in.
func promptConfirm(in io.Reader, out io.Writer) session.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(_ context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// optionalStdin returns piped stdin, or nil when stdin is a terminal.
func optionalStdin() (json.RawMessage, error) {
	if !stdinHasData() {
		return nil, nil
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if text == "" {
		return nil, nil
	}
	return json.RawMessage(text), nil
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
