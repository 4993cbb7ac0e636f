// Package toolmsg turns tool invocations into the short status lines shown
// under assistant messages.
package toolmsg

import (
	"fmt"

	"github.com/jivzik/uigen/internal/llm"
)

const (
	ToolStrReplaceEditor = "str_replace_editor"
	ToolFileManager      = "file_manager"
)

// Icon is a lucide icon name.
type Icon string

const (
	IconEye       Icon = "eye"
	IconFilePlus  Icon = "file-plus"
	IconEdit      Icon = "edit"
	IconUndo      Icon = "undo"
	IconFileInput Icon = "file-input"
	IconTrash     Icon = "trash-2"
	IconFileText  Icon = "file-text"
	IconLoader    Icon = "loader-2"
)

type Message struct {
	Action string `json:"action"`
	Target string `json:"target"`
	Icon   Icon   `json:"icon"`
}

// For returns the status line for inv. ok is false when the tool is unknown
// or its arguments lack a string command and path.
func For(inv llm.ToolInvocation) (msg Message, ok bool) {
	if inv.Args == nil {
		return Message{}, false
	}
	command, hasCommand := inv.Args["command"].(string)
	path, hasPath := inv.Args["path"].(string)
	if !hasCommand || !hasPath {
		return Message{}, false
	}
	switch inv.ToolName {
	case ToolStrReplaceEditor:
		return strReplaceMessage(command, path), true
	case ToolFileManager:
		if command != "rename" && command != "delete" {
			return Message{}, false
		}
		return fileManagerMessage(command, path, inv.Args["new_path"]), true
	default:
		return Message{}, false
	}
}

func strReplaceMessage(command, path string) Message {
	switch command {
	case "view":
		return Message{Action: "Viewing", Target: path, Icon: IconEye}
	case "create":
		return Message{Action: "Creating", Target: path, Icon: IconFilePlus}
	case "str_replace", "insert":
		return Message{Action: "Editing", Target: path, Icon: IconEdit}
	case "undo_edit":
		return Message{Action: "Undoing changes to", Target: path, Icon: IconUndo}
	default:
		return Message{Action: "Modifying", Target: path, Icon: IconFileText}
	}
}

func fileManagerMessage(command, path string, newPath any) Message {
	if command == "delete" {
		return Message{Action: "Deleting", Target: path, Icon: IconTrash}
	}
	target := path
	if truthy(newPath) {
		target = fmt.Sprintf("%s → %s", path, display(newPath))
	}
	return Message{Action: "Renaming", Target: target, Icon: IconFileInput}
}

// truthy treats empty strings, zero numbers, false and nil as absent.
func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case string:
		return typed != ""
	case bool:
		return typed
	case float64:
		return typed != 0
	case int:
		return typed != 0
	default:
		return true
	}
}

func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
