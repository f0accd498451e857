package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
	"github.com/secmon-lab/tickerchat/pkg/utils/safe"
)

const (
	streamReadBufferSize = 4096
	frameDataMarker      = "data:"
	frameDoneSentinel    = "[DONE]"
)

// StreamResult is the outcome of forwarding one generation
type StreamResult struct {
	// Text is the effective assistant text used for persistence and distillation
	Text string
	// Raw is exactly what was forwarded to the sink
	Raw string
	// Interrupted is set when the upstream failed mid-stream
	Interrupted bool
	// Aborted is set when the sink stopped accepting bytes
	Aborted bool
}

// State maps the result to the terminal turn state
func (r *StreamResult) State() types.TurnState {
	switch {
	case r.Aborted:
		return types.TurnStateAborted
	case r.Interrupted:
		return types.TurnStateFailed
	default:
		return types.TurnStateCompleted
	}
}

// streamAccumulator forwards fragments and keeps exactly what was delivered
type streamAccumulator struct {
	ctx     context.Context
	sink    io.Writer
	buf     strings.Builder
	aborted bool
}

// forward writes the fragment first and appends it only when the whole fragment
// reached the sink
func (a *streamAccumulator) forward(fragment string) bool {
	if a.aborted {
		return false
	}
	if fragment == "" {
		return true
	}
	if !safe.WriteString(a.ctx, a.sink, fragment) {
		a.aborted = true
		return false
	}
	a.buf.WriteString(fragment)
	return true
}

// Normalize forwards a line framed or iterator generation to sink. Immediate
// generations are returned without touching sink.
func Normalize(ctx context.Context, gen *model.Generation, sink io.Writer) *StreamResult {
	acc := &streamAccumulator{ctx: ctx, sink: sink}
	result := &StreamResult{}

	switch gen.Kind {
	case model.GenerationLineFramed:
		defer safe.Close(ctx, gen.Body)
		result.Interrupted = readLineFramed(ctx, gen.Body, acc)
	case model.GenerationNativeIterator:
		result.Interrupted = readFragments(ctx, gen, acc)
	case model.GenerationImmediate:
		result.Raw = gen.Text
		result.Text = gen.Text
		return result
	}

	result.Aborted = acc.aborted
	result.Raw = acc.buf.String()
	result.Text = effectiveText(result.Raw)
	return result
}

// readLineFramed returns true when reading failed before EOF
func readLineFramed(ctx context.Context, body io.Reader, acc *streamAccumulator) bool {
	logger := logging.From(ctx)
	if body == nil {
		return false
	}

	buf := make([]byte, streamReadBufferSize)
	var carry []byte

	for {
		n, err := body.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			for {
				idx := bytes.IndexByte(carry, '\n')
				if idx < 0 {
					break
				}
				line := string(carry[:idx])
				carry = carry[idx+1:]
				if !acc.forward(parseFrame(ctx, line)) {
					return false
				}
			}
		}

		if err == io.EOF {
			if len(carry) > 0 {
				acc.forward(parseFrame(ctx, string(carry)))
			}
			return false
		}
		if err != nil {
			logger.Warn("stream read failed", slog.Any("error", err))
			return true
		}
	}
}

type frameChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseFrame returns the delta text of one line, or "" when the line carries none
func parseFrame(ctx context.Context, line string) string {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, frameDataMarker) {
		return ""
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, frameDataMarker))
	if payload == "" || payload == frameDoneSentinel {
		return ""
	}

	var chunk frameChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		logging.From(ctx).Debug("skip malformed frame", slog.String("payload", payload))
		return ""
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
		return ""
	}
	return *chunk.Choices[0].Delta.Content
}

// readFragments returns true when the iterator yielded an error
func readFragments(ctx context.Context, gen *model.Generation, acc *streamAccumulator) bool {
	if gen.Fragments == nil {
		return false
	}
	for text, err := range gen.Fragments {
		if err != nil {
			logging.From(ctx).Warn("stream iteration failed", slog.Any("error", err))
			return true
		}
		if !acc.forward(text) {
			return false
		}
	}
	return false
}

// effectiveText unwraps a model reply that came back as {"reply": "..."}
func effectiveText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw
	}

	var wrapped struct {
		Reply *string `json:"reply"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil || wrapped.Reply == nil {
		return raw
	}
	return *wrapped.Reply
}
