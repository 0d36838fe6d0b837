// ABOUTME: Exports a conversation as a standalone HTML page or Markdown
// ABOUTME: Message bodies are Markdown rendered with goldmark; raw HTML is dropped

package transcript

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/curphey/fpl-sub000/internal/conversation"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.message { border-radius: 0.5rem; padding: 0.5rem 1rem; margin: 1rem 0; }
.user { background: #eef3ff; }
.assistant { background: #f6f6f6; }
.meta { color: #777; font-size: 0.8rem; }
.tool { font-family: monospace; font-size: 0.85rem; }
.tool.error { color: #b00020; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}<section class="message {{.Role}}">
<div class="meta">{{.Label}} · {{.Time}}</div>
{{if .Thinking}}<details><summary>Thinking</summary>{{.Thinking}}</details>
{{end}}{{range .Tools}}<div class="tool {{.Status}}">{{.Name}}: {{.Status}}{{if .Error}} ({{.Error}}){{end}}</div>
{{end}}{{.Body}}
</section>
{{end}}</body>
</html>
`))

type pageData struct {
	Title    string
	Messages []messageView
}

type messageView struct {
	Role     string
	Label    string
	Time     string
	Thinking template.HTML
	Tools    []toolView
	Body     template.HTML
}

type toolView struct {
	Name   string
	Status string
	Error  string
}

// WriteHTML writes conv as an HTML page. A message still streaming is skipped.
func WriteHTML(w io.Writer, title string, conv conversation.Conversation) error {
	data := pageData{Title: title}
	for _, m := range conv {
		if m.IsStreaming {
			continue
		}
		body, err := render(m.Content)
		if err != nil {
			return err
		}
		view := messageView{
			Role:  string(m.Role),
			Label: label(m.Role),
			Time:  m.Timestamp.Format(time.RFC1123),
			Body:  body,
		}
		if m.Thinking != nil && *m.Thinking != "" {
			if view.Thinking, err = render(*m.Thinking); err != nil {
				return err
			}
		}
		for _, tc := range m.ToolCalls {
			view.Tools = append(view.Tools, toolView{Name: tc.Name, Status: string(tc.Status), Error: tc.Error})
		}
		data.Messages = append(data.Messages, view)
	}

	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}

// WriteMarkdown writes conv as a Markdown document. A message still
// streaming is skipped.
func WriteMarkdown(w io.Writer, title string, conv conversation.Conversation) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", title)
	for _, m := range conv {
		if m.IsStreaming {
			continue
		}
		fmt.Fprintf(&buf, "\n## %s (%s)\n\n", label(m.Role), m.Timestamp.Format(time.RFC1123))
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&buf, "> tool `%s`: %s\n", tc.Name, tc.Status)
		}
		if len(m.ToolCalls) > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(strings.TrimSpace(m.Content))
		buf.WriteString("\n")
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

func render(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func label(role conversation.Role) string {
	if role == conversation.RoleUser {
		return "You"
	}
	return "Assistant"
}
