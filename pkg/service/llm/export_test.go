package llm

// RenderTranscript is exported for testing
var RenderTranscript = renderTranscript
