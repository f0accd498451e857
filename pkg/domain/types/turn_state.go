package types

// TurnState is the lifecycle state of one chat turn. It is only used for logging.
type TurnState string

const (
	TurnStateIdle              TurnState = "idle"
	TurnStateContextGathering  TurnState = "context_gathering"
	TurnStateProviderSelection TurnState = "provider_selection"
	TurnStateStreaming         TurnState = "streaming"
	TurnStateCompleted         TurnState = "completed"
	TurnStateFailed            TurnState = "failed"
	TurnStateAborted           TurnState = "aborted"
	TurnStatePersisting        TurnState = "persisting"
	TurnStateDistilling        TurnState = "memory_distillation"
)

// IsTerminal reports whether the turn finished generating
func (s TurnState) IsTerminal() bool {
	switch s {
	case TurnStateCompleted, TurnStateFailed, TurnStateAborted:
		return true
	default:
		return false
	}
}
