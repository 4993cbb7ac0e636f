// Package tools exposes the virtual file system to the model as function tools.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jivzik/uigen/internal/diff"
	"github.com/jivzik/uigen/internal/errinfo"
	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/toolmsg"
	"github.com/jivzik/uigen/internal/vfs"
)

// Definitions lists the tools offered to the model on every generation turn.
var Definitions = []llm.Tool{
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name: toolmsg.ToolStrReplaceEditor,
			Description: `View, create and edit files in the virtual file system.
- view: show a file with line numbers (optionally a view_range of [start, end], end -1 for EOF) or list a directory
- create: create a new file with file_text; parent directories are created as needed
- str_replace: replace every occurrence of old_str with new_str
- insert: insert new_str after line insert_line (0 inserts at the top)
- undo_edit: revert the most recent edit to the file`,
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "enum": ["view", "create", "str_replace", "insert", "undo_edit"]},
					"path": {"type": "string", "description": "Absolute path, e.g. /App.jsx"},
					"file_text": {"type": "string", "description": "Content for create"},
					"insert_line": {"type": "integer", "description": "Line after which to insert (insert only)"},
					"new_str": {"type": "string", "description": "Replacement or inserted text"},
					"old_str": {"type": "string", "description": "Text to replace (str_replace only)"},
					"view_range": {"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 2}
				},
				"required": ["command", "path"]
			}`),
		},
	},
	{
		Type: "function",
		Function: llm.FunctionDef{
			Name:        toolmsg.ToolFileManager,
			Description: "Rename (move) or delete files and directories. Renaming creates missing parent directories; deleting a directory removes everything inside it.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "enum": ["rename", "delete"]},
					"path": {"type": "string", "description": "Path of the file or directory"},
					"new_path": {"type": "string", "description": "Destination path (rename only)"}
				},
				"required": ["command", "path"]
			}`),
		},
	},
}

// Handler executes tool calls against one project's file system and keeps the
// pre-edit content of every path it touches.
type Handler struct {
	fs       *vfs.FileSystem
	baseline map[string]string
	order    []string
}

func NewHandler(fs *vfs.FileSystem) *Handler {
	return &Handler{fs: fs, baseline: make(map[string]string)}
}

func (h *Handler) Execute(call llm.ToolCall) (string, error) {
	switch call.Function.Name {
	case toolmsg.ToolStrReplaceEditor:
		return h.editor(call.Function.Arguments)
	case toolmsg.ToolFileManager:
		return h.fileManager(call.Function.Arguments)
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Function.Name)
	}
}

type editorArgs struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	FileText   string `json:"file_text"`
	InsertLine *int   `json:"insert_line"`
	NewStr     string `json:"new_str"`
	OldStr     string `json:"old_str"`
	ViewRange  []int  `json:"view_range"`
}

func (h *Handler) editor(argsJSON string) (string, error) {
	var args editorArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", validationError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if strings.TrimSpace(args.Path) == "" {
		return "", validationError("path is required")
	}
	p := vfs.Normalize(args.Path)
	switch args.Command {
	case "view":
		start, end := 0, 0
		if len(args.ViewRange) == 2 {
			start, end = args.ViewRange[0], args.ViewRange[1]
		} else if len(args.ViewRange) != 0 {
			return "", validationError("view_range must have two elements")
		}
		return h.fs.View(p, start, end)
	case "create":
		h.track(p)
		if err := h.fs.CreateFile(p, args.FileText); err != nil {
			return "", err
		}
		return fmt.Sprintf("File created: %s", p), nil
	case "str_replace":
		h.track(p)
		before, _ := h.fs.ReadFile(p)
		count, err := h.fs.ReplaceInFile(p, args.OldStr, args.NewStr)
		if err != nil {
			return "", err
		}
		after, _ := h.fs.ReadFile(p)
		return fmt.Sprintf("Replaced %d occurrence(s) in %s (%s)", count, p, diff.Summarize(before, after)), nil
	case "insert":
		if args.InsertLine == nil {
			return "", validationError("insert_line is required")
		}
		h.track(p)
		if err := h.fs.InsertInFile(p, *args.InsertLine, args.NewStr); err != nil {
			return "", err
		}
		return fmt.Sprintf("Text inserted at line %d in %s", *args.InsertLine, p), nil
	case "undo_edit":
		if _, err := h.fs.UndoEdit(p); err != nil {
			return "", err
		}
		return fmt.Sprintf("Reverted last edit to %s", p), nil
	default:
		return "", validationError(fmt.Sprintf("unknown command %q", args.Command))
	}
}

func (h *Handler) fileManager(argsJSON string) (string, error) {
	var args struct {
		Command string `json:"command"`
		Path    string `json:"path"`
		NewPath string `json:"new_path"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", validationError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if strings.TrimSpace(args.Path) == "" {
		return "", validationError("path is required")
	}
	p := vfs.Normalize(args.Path)
	switch args.Command {
	case "rename":
		if strings.TrimSpace(args.NewPath) == "" {
			return "", validationError("new_path is required for rename")
		}
		target := vfs.Normalize(args.NewPath)
		moved := h.subtree(p)
		for _, file := range moved {
			h.track(file)
		}
		if err := h.fs.Rename(p, target); err != nil {
			return "", err
		}
		// Destinations are new files only once the move has happened.
		for _, file := range moved {
			h.trackAs(target+strings.TrimPrefix(file, p), "")
		}
		return fmt.Sprintf("Successfully renamed %s to %s", p, target), nil
	case "delete":
		for _, file := range h.subtree(p) {
			h.track(file)
		}
		if err := h.fs.Delete(p); err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully deleted %s", p), nil
	default:
		return "", validationError(fmt.Sprintf("unknown command %q", args.Command))
	}
}

// track records the content p had before this handler first modified it.
func (h *Handler) track(p string) {
	if _, seen := h.baseline[p]; seen {
		return
	}
	content, _ := h.fs.ReadFile(p)
	h.baseline[p] = content
	h.order = append(h.order, p)
}

func (h *Handler) trackAs(p, content string) {
	if _, seen := h.baseline[p]; seen {
		return
	}
	h.baseline[p] = content
	h.order = append(h.order, p)
}

// subtree returns p itself when it is a file, or every file below it.
func (h *Handler) subtree(p string) []string {
	if node, ok := h.fs.Stat(p); ok && node.Type == vfs.TypeFile {
		return []string{p}
	}
	var out []string
	for _, file := range h.fs.Files() {
		if p == "/" || strings.HasPrefix(file, p+"/") {
			out = append(out, file)
		}
	}
	return out
}

// Change describes how one file differs from its content before the first tool call.
type Change struct {
	Path      string      `json:"path"`
	Stats     diff.Stats  `json:"stats"`
	Hunks     []diff.Hunk `json:"hunks,omitempty"`
	Truncated bool        `json:"truncated,omitempty"`
}

// Changes reports every touched file whose content differs from its baseline.
func (h *Handler) Changes() []Change {
	var out []Change
	for _, p := range h.order {
		before := h.baseline[p]
		after, _ := h.fs.ReadFile(p)
		if before == after {
			continue
		}
		hunks, truncated := diff.TextDiffWithLimit(before, after, diff.MaxDiffLines)
		out = append(out, Change{
			Path:      p,
			Stats:     diff.Summarize(before, after),
			Hunks:     hunks,
			Truncated: truncated,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func validationError(detail string) error {
	return errinfo.ValidationFailed(errinfo.PhaseChat, detail)
}

// IsValidation reports whether err came from malformed tool arguments rather
// than from the file system.
func IsValidation(err error) bool {
	var info *errinfo.ErrorInfo
	return errors.As(err, &info) && info.ErrorCode == errinfo.CodeValidationFailed
}
