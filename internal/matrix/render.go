// ABOUTME: Builds Matrix message content from outgoing chat messages
// ABOUTME: Markdown becomes formatted_body via goldmark; thread roots get a tinted title

package matrix

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/helpdesk-bridge/internal/chat"
)

// renderMarkdown converts Markdown to HTML. Raw HTML in the input is omitted from the output.
func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// messageContent builds the event content for msg. A prompt lists its
// options below the text so clients without reaction support can still read them.
func messageContent(msg chat.Outgoing) (*event.MessageEventContent, error) {
	body := msg.Text
	if len(msg.Options) > 0 {
		var sb strings.Builder
		sb.WriteString(msg.Text)
		sb.WriteString("\n")
		for _, opt := range msg.Options {
			fmt.Fprintf(&sb, "\n%s  %s", opt.Key, opt.Label)
		}
		body = sb.String()
	}

	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    body,
	}
	if len(msg.Options) > 0 {
		content.MsgType = event.MsgNotice
	}

	if msg.Format == chat.FormatMarkdown {
		formatted, err := renderMarkdown(body)
		if err != nil {
			return nil, fmt.Errorf("rendering markdown: %w", err)
		}
		content.Format = event.FormatHTML
		content.FormattedBody = formatted
	}

	if msg.ReplyTo != "" {
		root := id.EventID(msg.ReplyTo)
		content.RelatesTo = (&event.RelatesTo{}).SetThread(root, root)
	}

	return content, nil
}

// threadRootContent builds the root message of a support thread.
func threadRootContent(req chat.ThreadRequest) *event.Content {
	title := html.EscapeString(req.Title)
	if req.Color != "" {
		title = fmt.Sprintf(`<font data-mx-color="%s"><strong>%s</strong></font>`, html.EscapeString(req.Color), title)
	} else {
		title = "<strong>" + title + "</strong>"
	}

	body := req.Title
	formatted := title
	if req.InitialText != "" {
		body += "\n" + req.InitialText
		formatted += "<br>" + html.EscapeString(req.InitialText)
	}

	return &event.Content{
		Parsed: &event.MessageEventContent{
			MsgType:       event.MsgText,
			Body:          body,
			Format:        event.FormatHTML,
			FormattedBody: formatted,
		},
		Raw: map[string]any{
			ticketKey: ticketTag{Conversation: string(req.Correlation)}.raw(),
		},
	}
}
