package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jivzik/uigen/internal/llm"
	"github.com/jivzik/uigen/internal/toolmsg"
)

const MockProviderID = "mock"

// MockProvider scripts a small component build so the app works without an
// API key: create the component, polish it, wire it into /App.jsx, then summarize.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) ID() string { return MockProviderID }

func (p *MockProvider) Model() string { return "mock" }

func (p *MockProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, _ []llm.Tool) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	component := mockComponentFor(lastUserMessageChat(messages))
	step := toolResultsAfterLastUser(messages)
	callID := fmt.Sprintf("call_mock_%d", countToolResults(messages)+1)
	path := "/components/" + component.name + ".jsx"

	switch step {
	case 0:
		return mockToolTurn(fmt.Sprintf("I'll create a %s component for you.", component.title), callID, toolmsg.ToolStrReplaceEditor, map[string]any{
			"command":   "create",
			"path":      path,
			"file_text": component.source,
		}), nil
	case 1:
		return mockToolTurn("Let me soften the corners a little.", callID, toolmsg.ToolStrReplaceEditor, map[string]any{
			"command": "str_replace",
			"path":    path,
			"old_str": "rounded-lg",
			"new_str": "rounded-xl",
		}), nil
	case 2:
		return mockToolTurn("Now I'll render it from the app entrypoint.", callID, toolmsg.ToolStrReplaceEditor, map[string]any{
			"command":   "create",
			"path":      "/App.jsx",
			"file_text": mockApp(component.name),
		}), nil
	default:
		return llm.ChatResponse{
			Content: fmt.Sprintf(
				"I've created a %s component in %s and rendered it from /App.jsx. This is a static response: add an Anthropic API key to generate components with Claude.",
				component.title, path,
			),
			FinishReason: "stop",
		}, nil
	}
}

func mockToolTurn(text, callID, tool string, args map[string]any) llm.ChatResponse {
	raw, _ := json.Marshal(args)
	return llm.ChatResponse{
		Content: text,
		ToolCalls: []llm.ToolCall{{
			ID:       callID,
			Type:     "function",
			Function: llm.ToolCallFunction{Name: tool, Arguments: string(raw)},
		}},
		FinishReason: "tool_calls",
	}
}

type mockComponent struct {
	name   string
	title  string
	source string
}

func mockComponentFor(prompt string) mockComponent {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "form"):
		return mockComponent{name: "ContactForm", title: "contact form", source: contactFormSource}
	case strings.Contains(lower, "card"):
		return mockComponent{name: "Card", title: "card", source: cardSource}
	default:
		return mockComponent{name: "Counter", title: "counter", source: counterSource}
	}
}

func mockApp(name string) string {
	return fmt.Sprintf(`import %[1]s from '@/components/%[1]s';

export default function App() {
  return (
    <div className="min-h-screen flex items-center justify-center bg-gray-100 p-4">
      <%[1]s />
    </div>
  );
}
`, name)
}

func lastUserMessageChat(messages []llm.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func toolResultsAfterLastUser(messages []llm.ChatMessage) int {
	count := 0
	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case llm.RoleUser:
			return count
		case llm.RoleTool:
			count++
		}
	}
	return count
}

func countToolResults(messages []llm.ChatMessage) int {
	count := 0
	for _, msg := range messages {
		if msg.Role == llm.RoleTool {
			count++
		}
	}
	return count
}

const counterSource = `import { useState } from 'react';

export default function Counter() {
  const [count, setCount] = useState(0);

  return (
    <div className="bg-white rounded-lg shadow-md p-6 w-64 text-center">
      <h2 className="text-xl font-semibold mb-4">Counter</h2>
      <p className="text-4xl font-bold mb-6">{count}</p>
      <div className="flex justify-center gap-2">
        <button
          onClick={() => setCount(count - 1)}
          className="px-4 py-2 bg-red-500 text-white rounded-lg hover:bg-red-600"
        >
          Decrease
        </button>
        <button
          onClick={() => setCount(0)}
          className="px-4 py-2 bg-gray-500 text-white rounded-lg hover:bg-gray-600"
        >
          Reset
        </button>
        <button
          onClick={() => setCount(count + 1)}
          className="px-4 py-2 bg-green-500 text-white rounded-lg hover:bg-green-600"
        >
          Increase
        </button>
      </div>
    </div>
  );
}
`

const contactFormSource = `import { useState } from 'react';

export default function ContactForm() {
  const [form, setForm] = useState({ name: '', email: '', message: '' });
  const [sent, setSent] = useState(false);

  const update = (field) => (e) => setForm({ ...form, [field]: e.target.value });

  const submit = (e) => {
    e.preventDefault();
    setSent(true);
  };

  if (sent) {
    return <p className="bg-white rounded-lg shadow-md p-6 text-green-600">Thanks, {form.name}!</p>;
  }

  return (
    <form onSubmit={submit} className="bg-white rounded-lg shadow-md p-6 w-80 space-y-4">
      <h2 className="text-xl font-semibold">Contact us</h2>
      <input
        className="w-full border rounded-lg px-3 py-2"
        placeholder="Name"
        value={form.name}
        onChange={update('name')}
      />
      <input
        className="w-full border rounded-lg px-3 py-2"
        placeholder="Email"
        type="email"
        value={form.email}
        onChange={update('email')}
      />
      <textarea
        className="w-full border rounded-lg px-3 py-2"
        placeholder="Message"
        rows={4}
        value={form.message}
        onChange={update('message')}
      />
      <button type="submit" className="w-full bg-blue-500 text-white rounded-lg py-2 hover:bg-blue-600">
        Send
      </button>
    </form>
  );
}
`

const cardSource = `export default function Card({
  title = 'Mountain retreat',
  description = 'A quiet cabin with a view of the valley.',
  image = 'https://images.unsplash.com/photo-1500530855697-b586d89ba3ee?w=600',
}) {
  return (
    <div className="bg-white rounded-lg shadow-md overflow-hidden w-80">
      <img src={image} alt={title} className="w-full h-48 object-cover" />
      <div className="p-6">
        <h3 className="text-lg font-semibold mb-2">{title}</h3>
        <p className="text-gray-600 mb-4">{description}</p>
        <button className="bg-blue-500 text-white rounded-lg px-4 py-2 hover:bg-blue-600">
          Learn more
        </button>
      </div>
    </div>
  );
}
`
