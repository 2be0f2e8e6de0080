package forum

// ItemState is the lifecycle of one post in board state.
type ItemState int

const (
	StateUnloaded ItemState = iota
	StateLoaded
	StateMutating
	StateLoadedWithError
)

func (s ItemState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateMutating:
		return "mutating"
	case StateLoadedWithError:
		return "loaded_with_error"
	default:
		return "unloaded"
	}
}

type itemState struct {
	state ItemState
	err   error
}
