package toolmsg

import (
	"bytes"
	"html/template"

	"github.com/jivzik/uigen/internal/llm"
)

// Badge is the view model for a single tool invocation badge.
type Badge struct {
	Complete bool   `json:"complete"`
	ToolName string `json:"toolName"`
	Known    bool   `json:"known"`
	Message  `json:"message"`
}

func BadgeFor(inv llm.ToolInvocation) Badge {
	msg, ok := For(inv)
	return Badge{
		Complete: inv.State == llm.StateResult,
		ToolName: inv.ToolName,
		Known:    ok,
		Message:  msg,
	}
}

// Label is the plain-text form of the badge.
func (b Badge) Label() string {
	if !b.Known {
		return b.ToolName
	}
	return b.Action + " " + b.Target
}

var badgeTemplate = template.Must(template.New("badge").Parse(
	`<div class="inline-flex items-center gap-2 mt-2 px-3 py-1.5 bg-neutral-50 rounded-lg text-xs{{if not .Known}} font-mono{{end}} border border-neutral-200">` +
		`{{if .Complete}}<div class="w-2 h-2 rounded-full bg-emerald-500"></div>` +
		`{{else}}<i data-lucide="loader-2" class="w-3 h-3 animate-spin text-blue-600"></i>{{end}}` +
		`{{if .Known}}<i data-lucide="{{.Icon}}" class="w-3 h-3 text-neutral-600"></i>` +
		`<span class="text-neutral-700">{{.Action}} <span class="font-mono">{{.Target}}</span></span>` +
		`{{else}}<span class="text-neutral-700">{{.ToolName}}</span>{{end}}` +
		`</div>`))

func RenderHTML(inv llm.ToolInvocation) (template.HTML, error) {
	var buf bytes.Buffer
	if err := badgeTemplate.Execute(&buf, BadgeFor(inv)); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
