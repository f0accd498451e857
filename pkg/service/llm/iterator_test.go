package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"github.com/secmon-lab/tickerchat/pkg/service/llm"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	streamFn func(ctx context.Context, input []gollem.Input) (<-chan *gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return &gollem.Response{}, nil
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.streamFn(ctx, input)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.newSessionFn(ctx, options...)
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func streamOf(texts ...[]string) <-chan *gollem.Response {
	ch := make(chan *gollem.Response, len(texts))
	for _, t := range texts {
		ch <- &gollem.Response{Texts: t}
	}
	close(ch)
	return ch
}

func TestIteratorGenerate(t *testing.T) {
	t.Run("yields every text fragment in order", func(t *testing.T) {
		var received []gollem.Input
		client := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					streamFn: func(ctx context.Context, input []gollem.Input) (<-chan *gollem.Response, error) {
						received = input
						return streamOf([]string{"NIFTY"}, []string{" is", ""}, []string{" up"}), nil
					},
				}, nil
			},
		}

		p := llm.NewIterator("gemini", "vertexai:proj/us-central1", "gemini-2.5-flash", client)
		gen, err := p.Generate(context.Background(), &model.GenerationRequest{
			SystemPrompt: "sys",
			Turns:        []model.Turn{model.UserTurn("What's NIFTY today?")},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, gen.Kind).Equal(model.GenerationNativeIterator)
		gt.Array(t, received).Length(1)

		var got []string
		for text, err := range gen.Fragments {
			gt.NoError(t, err).Required()
			got = append(got, text)
		}
		gt.Value(t, got).Equal([]string{"NIFTY", " is", " up"})
	})

	t.Run("stops at an in-stream error", func(t *testing.T) {
		client := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					streamFn: func(ctx context.Context, input []gollem.Input) (<-chan *gollem.Response, error) {
						ch := make(chan *gollem.Response, 3)
						ch <- &gollem.Response{Texts: []string{"partial"}}
						ch <- &gollem.Response{Error: errors.New("upstream stream failed")}
						ch <- &gollem.Response{Texts: []string{" after-error"}}
						close(ch)
						return ch, nil
					},
				}, nil
			},
		}

		p := llm.NewIterator("gemini", "", "m", client)
		gen, err := p.Generate(context.Background(), &model.GenerationRequest{Turns: []model.Turn{model.UserTurn("x")}})
		gt.NoError(t, err).Required()

		var texts []string
		var errs []error
		for text, err := range gen.Fragments {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			texts = append(texts, text)
		}
		gt.Value(t, texts).Equal([]string{"partial"})
		gt.Array(t, errs).Length(1)
		gt.Error(t, errs[0]).Is(llm.ErrUpstream)
	})

	t.Run("quota error from session is classified", func(t *testing.T) {
		client := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					streamFn: func(ctx context.Context, input []gollem.Input) (<-chan *gollem.Response, error) {
						return nil, errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
					},
				}, nil
			},
		}

		p := llm.NewIterator("gemini", "", "m", client)
		_, err := p.Generate(context.Background(), &model.GenerationRequest{Turns: []model.Turn{model.UserTurn("x")}})
		gt.Value(t, err).NotNil()
		gt.Error(t, err).Is(llm.ErrQuotaExhausted)
	})

	t.Run("session creation failure is upstream", func(t *testing.T) {
		client := &mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		}

		p := llm.NewIterator("gemini", "", "m", client)
		_, err := p.Generate(context.Background(), &model.GenerationRequest{Turns: []model.Turn{model.UserTurn("x")}})
		gt.Error(t, err).Is(llm.ErrUpstream)
	})

	t.Run("nil client reports no credential", func(t *testing.T) {
		p := llm.NewIterator("gemini", "", "m", nil)
		gt.Bool(t, p.Attempt().CredentialPresent).False()
		gt.Value(t, p.Attempt().Protocol).Equal(types.ProtocolNativeIterator)
	})
}

func TestRenderTranscript(t *testing.T) {
	got := llm.RenderTranscript([]model.Turn{
		model.UserTurn("hi"),
		model.AssistantTurn("hello"),
		model.UserTurn("NIFTY?"),
	})
	gt.String(t, got).Contains("user: hi\n")
	gt.String(t, got).Contains("assistant: hello\n")
	gt.String(t, got).Contains("Reply to the latest user message:\nNIFTY?")

	gt.Value(t, llm.RenderTranscript([]model.Turn{model.UserTurn("only")})).Equal("only")
}
