package llm

import (
	"context"
	"iter"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
)

// Iterator adapts a gollem.LLMClient whose session already yields discrete text
// fragments. No line framing is involved.
type Iterator struct {
	name     string
	endpoint string
	model    string
	client   gollem.LLMClient
}

var _ interfaces.GenerationProvider = &Iterator{}

// NewIterator creates a native iterator provider. A nil client yields a provider
// that reports no credential and is skipped by the chain.
func NewIterator(name, endpoint, model string, client gollem.LLMClient) *Iterator {
	return &Iterator{
		name:     name,
		endpoint: endpoint,
		model:    model,
		client:   client,
	}
}

func (p *Iterator) Attempt() model.ProviderAttempt {
	return model.ProviderAttempt{
		Name:              p.name,
		Endpoint:          p.endpoint,
		Model:             p.model,
		Protocol:          types.ProtocolNativeIterator,
		CredentialPresent: p.client != nil,
	}
}

// renderTranscript flattens prior turns into one text input; the session itself
// starts empty for every request.
func renderTranscript(turns []model.Turn) string {
	if len(turns) == 1 {
		return turns[0].Content
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, turn := range turns[:len(turns)-1] {
		b.WriteString(turn.Role.String())
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	last := turns[len(turns)-1]
	b.WriteString("\nReply to the latest ")
	b.WriteString(last.Role.String())
	b.WriteString(" message:\n")
	b.WriteString(last.Content)
	return b.String()
}

func (p *Iterator) Generate(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error) {
	if p.client == nil {
		return nil, goerr.New("provider has no client", goerr.V("provider", p.name))
	}
	if len(req.Turns) == 0 {
		return nil, goerr.New("no turns to send", goerr.V("provider", p.name))
	}

	var opts []gollem.SessionOption
	if req.SystemPrompt != "" {
		opts = append(opts, gollem.WithSessionSystemPrompt(req.SystemPrompt))
	}

	streamCtx, cancel := context.WithCancel(ctx)

	session, err := p.client.NewSession(streamCtx, opts...)
	if err != nil {
		cancel()
		return nil, goerr.Wrap(classifyError(err), "failed to create LLM session",
			goerr.V("provider", p.name),
			goerr.V("cause", err.Error()))
	}

	ch, err := session.Stream(streamCtx, []gollem.Input{gollem.Text(renderTranscript(req.Turns))})
	if err != nil {
		cancel()
		return nil, goerr.Wrap(classifyError(err), "failed to start stream",
			goerr.V("provider", p.name),
			goerr.V("cause", err.Error()))
	}
	if ch == nil {
		cancel()
		return nil, goerr.Wrap(ErrUpstream, "provider returned no stream", goerr.V("provider", p.name))
	}

	return model.NewIteratorGeneration(p.name, fragments(streamCtx, cancel, ch)), nil
}

func fragments(ctx context.Context, cancel context.CancelFunc, ch <-chan *gollem.Response) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer cancel()

		for resp := range ch {
			if resp == nil {
				continue
			}
			if resp.Error != nil {
				yield("", goerr.Wrap(classifyError(resp.Error), "stream failed",
					goerr.V("cause", resp.Error.Error())))
				return
			}
			for _, text := range resp.Texts {
				if text == "" {
					continue
				}
				if !yield(text, nil) {
					return
				}
			}
		}

		if err := ctx.Err(); err != nil {
			yield("", goerr.Wrap(err, "stream interrupted"))
		}
	}
}
