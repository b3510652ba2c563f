// ABOUTME: Named steps of the support negotiation and the moves allowed between them
// ABOUTME: Pending.State derives the current step; CanTransition guards the lifecycle

package negotiation

// State is a step of the support negotiation.
type State string

const (
	// StateIdle means the conversation has no negotiation and no ticket.
	StateIdle State = "idle"
	// StateAwaitingLanguage means the language prompt is out.
	StateAwaitingLanguage State = "awaiting_language"
	// StateAwaitingCategory means the category prompt is out.
	StateAwaitingCategory State = "awaiting_category"
	// StateCreatingThread means the thread root was requested and its echo
	// has not arrived yet.
	StateCreatingThread State = "creating_thread"
	// StateBound means the conversation has an open ticket.
	StateBound State = "bound"
)

var transitions = map[State]map[State]bool{
	StateIdle: {
		StateAwaitingLanguage: true,
	},
	StateAwaitingLanguage: {
		StateAwaitingCategory: true,
		StateIdle:             true,
	},
	StateAwaitingCategory: {
		StateCreatingThread: true,
		StateIdle:           true,
	},
	StateCreatingThread: {
		StateBound: true,
		StateIdle:  true,
	},
	StateBound: {
		StateIdle: true,
	},
}

// CanTransition reports whether a negotiation may move from one state to another.
func CanTransition(from, to State) bool {
	return transitions[from][to]
}
