package prompt

// Stage is the session-1 turn-budget state. It is recomputed from the message
// list on every request and never stored.
type Stage int

const (
	StageEliciting Stage = iota
	StageDelivering
)

func (s Stage) String() string {
	switch s {
	case StageEliciting:
		return "eliciting"
	case StageDelivering:
		return "delivering"
	default:
		return "unknown"
	}
}
