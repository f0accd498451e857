package usecase_test

import (
	"context"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
)

// mockProvider is a scripted GenerationProvider that counts calls
type mockProvider struct {
	name       string
	credential bool
	generateFn func(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error)

	mu       sync.Mutex
	calls    int
	requests []*model.GenerationRequest
}

func (p *mockProvider) Attempt() model.ProviderAttempt {
	return model.ProviderAttempt{
		Name:              p.name,
		Protocol:          types.ProtocolLineFramed,
		CredentialPresent: p.credential,
	}
}

func (p *mockProvider) Generate(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error) {
	p.mu.Lock()
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.generateFn(ctx, req)
}

func (p *mockProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func toProviders(ps []*mockProvider) []interfaces.GenerationProvider {
	out := make([]interfaces.GenerationProvider, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	return out
}

// frames builds a line framed body whose deltas are the given strings
func frames(deltas ...string) string {
	var b strings.Builder
	for _, d := range deltas {
		b.WriteString(`data: {"choices":[{"delta":{"content":`)
		b.WriteString(quoteJSON(d))
		b.WriteString("}}]}\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func quoteJSON(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func streamingProvider(name string, deltas ...string) *mockProvider {
	return &mockProvider{
		name:       name,
		credential: true,
		generateFn: func(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error) {
			return model.NewLineFramedGeneration(name, io.NopCloser(strings.NewReader(frames(deltas...)))), nil
		},
	}
}

func failingProvider(name string, err error) *mockProvider {
	return &mockProvider{
		name:       name,
		credential: true,
		generateFn: func(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error) {
			return nil, err
		},
	}
}

func iteratorProvider(name string, fragments ...string) *mockProvider {
	return &mockProvider{
		name:       name,
		credential: true,
		generateFn: func(ctx context.Context, req *model.GenerationRequest) (*model.Generation, error) {
			return model.NewIteratorGeneration(name, fragmentSeq(fragments, nil)), nil
		},
	}
}

func fragmentSeq(fragments []string, tail error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
		}
		if tail != nil {
			yield("", tail)
		}
	}
}

// chunkReader returns the data in fixed size reads, then an optional error
type chunkReader struct {
	data []byte
	size int
	err  error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := min(r.size, len(r.data), len(p))
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

// recordingResponder captures what the chat use case delivers
type recordingResponder struct {
	streamed  bool
	replied   bool
	sessionID model.ChatSessionID
	body      strings.Builder
	reply     string
	failAfter int
	writes    int
}

type responderSink struct{ r *recordingResponder }

func (s responderSink) Write(p []byte) (int, error) {
	s.r.writes++
	if s.r.failAfter > 0 && s.r.writes > s.r.failAfter {
		return 0, io.ErrClosedPipe
	}
	return s.r.body.Write(p)
}

func (r *recordingResponder) Stream(sessionID model.ChatSessionID) io.Writer {
	r.streamed = true
	r.sessionID = sessionID
	return responderSink{r: r}
}

func (r *recordingResponder) Reply(sessionID model.ChatSessionID, text string) error {
	r.replied = true
	r.sessionID = sessionID
	r.reply = text
	return nil
}

// scriptedSession is a gollem Session whose stream replays fixed responses
type scriptedSession struct {
	responses []*gollem.Response
}

func (s *scriptedSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return &gollem.Response{}, nil
}

func (s *scriptedSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	ch := make(chan *gollem.Response, len(s.responses))
	for _, r := range s.responses {
		ch <- r
	}
	close(ch)
	return ch, nil
}

func (s *scriptedSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *scriptedSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *scriptedSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *scriptedSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *scriptedSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// scriptedClient hands out one scriptedSession per NewSession call
type scriptedClient struct {
	responses []*gollem.Response
}

func (c *scriptedClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &scriptedSession{responses: c.responses}, nil
}

func (c *scriptedClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}
