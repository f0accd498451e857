package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
)

func TestParseFrame(t *testing.T) {
	testCases := []struct {
		name string
		line string
		want string
	}{
		{name: "delta content", line: `data: {"choices":[{"delta":{"content":"NIFTY"}}]}`, want: "NIFTY"},
		{name: "no space after marker", line: `data:{"choices":[{"delta":{"content":"x"}}]}`, want: "x"},
		{name: "surrounding whitespace", line: "  data: {\"choices\":[{\"delta\":{\"content\":\" up\"}}]}\r", want: " up"},
		{name: "done sentinel", line: "data: [DONE]", want: ""},
		{name: "blank line", line: "   ", want: ""},
		{name: "comment line", line: ": keep-alive", want: ""},
		{name: "missing marker", line: `{"choices":[{"delta":{"content":"x"}}]}`, want: ""},
		{name: "malformed json", line: `data: {"choices":[{"delta":`, want: ""},
		{name: "role only delta", line: `data: {"choices":[{"delta":{"role":"assistant"}}]}`, want: ""},
		{name: "empty choices", line: `data: {"choices":[]}`, want: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, usecase.ParseFrame(tc.line)).Equal(tc.want)
		})
	}
}

func TestNormalizeLineFramedArbitrarySplits(t *testing.T) {
	body := frames("NIFTY", " is", " up", " 0.5%", " — ₹ strong", "\nnext line")
	want := "NIFTY is up 0.5% — ₹ strong\nnext line"

	for size := 1; size <= len(body); size++ {
		var sink bytes.Buffer
		gen := model.NewLineFramedGeneration("p", &chunkReader{data: []byte(body), size: size})

		result := usecase.Normalize(context.Background(), gen, &sink)
		if sink.String() != want || result.Text != want || result.Raw != want {
			t.Fatalf("split size %d: forwarded=%q text=%q", size, sink.String(), result.Text)
		}
		gt.Bool(t, result.Interrupted).False()
		gt.Value(t, result.State()).Equal(types.TurnStateCompleted)
	}
}

func TestNormalizeSkipsMalformedFrame(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":"A"}}]}` + "\n" +
		`data: {"choices":[{"delta":{"content":` + "\n" +
		`data: {"choices":[{"delta":{"content":"B"}}]}` + "\n"

	var sink bytes.Buffer
	result := usecase.Normalize(context.Background(),
		model.NewLineFramedGeneration("p", io.NopCloser(strings.NewReader(body))), &sink)

	gt.Value(t, sink.String()).Equal("AB")
	gt.Value(t, result.Text).Equal("AB")
	gt.Bool(t, result.Interrupted).False()
}

func TestNormalizeProcessesUnterminatedLastLine(t *testing.T) {
	body := `data: {"choices":[{"delta":{"content":"A"}}]}` + "\n" +
		`data: {"choices":[{"delta":{"content":"B"}}]}`

	var sink bytes.Buffer
	result := usecase.Normalize(context.Background(),
		model.NewLineFramedGeneration("p", io.NopCloser(strings.NewReader(body))), &sink)
	gt.Value(t, result.Text).Equal("AB")
}

func TestNormalizeReadFailureKeepsAccumulation(t *testing.T) {
	body := frames("partial", " answer")
	body = body[:strings.Index(body, "data: [DONE]")]
	reader := &chunkReader{data: []byte(body), size: 7, err: errors.New("connection reset")}

	var sink bytes.Buffer
	result := usecase.Normalize(context.Background(), model.NewLineFramedGeneration("p", reader), &sink)

	gt.Bool(t, result.Interrupted).True()
	gt.Value(t, result.Text).Equal("partial answer")
	gt.Value(t, sink.String()).Equal("partial answer")
	gt.Value(t, result.State()).Equal(types.TurnStateFailed)
}

type limitedWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.limit--
	return w.buf.Write(p)
}

func TestNormalizeStopsOnSinkFailure(t *testing.T) {
	sink := &limitedWriter{limit: 2}
	result := usecase.Normalize(context.Background(),
		model.NewLineFramedGeneration("p", io.NopCloser(strings.NewReader(frames("a", "b", "c", "d")))), sink)

	gt.Bool(t, result.Aborted).True()
	gt.Value(t, result.Text).Equal("ab")
	gt.Value(t, sink.buf.String()).Equal("ab")
	gt.Value(t, result.State()).Equal(types.TurnStateAborted)
}

func TestNormalizeIterator(t *testing.T) {
	t.Run("forwards each fragment", func(t *testing.T) {
		var sink bytes.Buffer
		gen := model.NewIteratorGeneration("gemini", fragmentSeq([]string{"NIFTY", "", " is", " up"}, nil))

		result := usecase.Normalize(context.Background(), gen, &sink)
		gt.Value(t, sink.String()).Equal("NIFTY is up")
		gt.Value(t, result.Text).Equal("NIFTY is up")
	})

	t.Run("error mid stream keeps accumulation", func(t *testing.T) {
		var sink bytes.Buffer
		gen := model.NewIteratorGeneration("gemini", fragmentSeq([]string{"half"}, errors.New("stream broken")))

		result := usecase.Normalize(context.Background(), gen, &sink)
		gt.Bool(t, result.Interrupted).True()
		gt.Value(t, result.Text).Equal("half")
	})

	t.Run("sink failure stops iteration", func(t *testing.T) {
		sink := &limitedWriter{limit: 1}
		gen := model.NewIteratorGeneration("gemini", fragmentSeq([]string{"a", "b", "c"}, nil))

		result := usecase.Normalize(context.Background(), gen, sink)
		gt.Bool(t, result.Aborted).True()
		gt.Value(t, result.Text).Equal("a")
	})
}

func TestNormalizeImmediateDoesNotWrite(t *testing.T) {
	var sink bytes.Buffer
	result := usecase.Normalize(context.Background(), model.NewImmediateGeneration("sorry"), &sink)
	gt.Value(t, sink.Len()).Equal(0)
	gt.Value(t, result.Text).Equal("sorry")
}

func TestEffectiveText(t *testing.T) {
	gt.Value(t, usecase.EffectiveText(`{"reply":"NIFTY is up"}`)).Equal("NIFTY is up")
	gt.Value(t, usecase.EffectiveText(` {"reply": "x"} `)).Equal("x")
	gt.Value(t, usecase.EffectiveText(`{"answer":"x"}`)).Equal(`{"answer":"x"}`)
	gt.Value(t, usecase.EffectiveText(`{"reply": 3}`)).Equal(`{"reply": 3}`)
	gt.Value(t, usecase.EffectiveText(`{broken`)).Equal(`{broken`)
	gt.Value(t, usecase.EffectiveText("plain text")).Equal("plain text")
}

func TestNormalizeSubstitutesReplyObject(t *testing.T) {
	var sink bytes.Buffer
	body := frames(`{"reply":`, `"NIFTY is up"}`)
	result := usecase.Normalize(context.Background(),
		model.NewLineFramedGeneration("p", io.NopCloser(strings.NewReader(body))), &sink)

	gt.Value(t, sink.String()).Equal(`{"reply":"NIFTY is up"}`)
	gt.Value(t, result.Raw).Equal(`{"reply":"NIFTY is up"}`)
	gt.Value(t, result.Text).Equal("NIFTY is up")
}
