package usecase

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

//go:embed prompt/chat_system.md
var chatSystemPromptTmpl string

var chatSystemPrompt = template.Must(template.New("chat_system").Parse(chatSystemPromptTmpl))

//go:embed prompt/distill.md
var distillPromptTmpl string

var distillPrompt = template.Must(template.New("distill").Parse(distillPromptTmpl))

type promptQuote struct {
	Label string
	Line  string
}

type chatPromptData struct {
	Quotes    []promptQuote
	Headlines []string
	Facts     string
}

// buildChatSystemPrompt renders the snapshot in label order followed by the caller's facts
func buildChatSystemPrompt(snapshot *model.MarketSnapshot, labels []string, facts string) string {
	data := chatPromptData{Facts: facts}
	if snapshot != nil {
		for _, label := range labels {
			if line, ok := snapshot.Quotes[label]; ok {
				data.Quotes = append(data.Quotes, promptQuote{Label: label, Line: line})
			}
		}
		data.Headlines = snapshot.Headlines
	}

	var buf bytes.Buffer
	if err := chatSystemPrompt.Execute(&buf, data); err != nil {
		return "You are TickerChat, a financial news assistant for Indian markets."
	}
	return buf.String()
}

type distillPromptData struct {
	Facts     string
	User      string
	Assistant string
}

func buildDistillPrompt(facts, user, assistant string) (string, error) {
	var buf bytes.Buffer
	if err := distillPrompt.Execute(&buf, distillPromptData{Facts: facts, User: user, Assistant: assistant}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
