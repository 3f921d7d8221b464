package feature

// Kind tags a Message.
type Kind int

const (
	KindRefresh Kind = iota
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindRefresh:
		return "refresh"
	case KindTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Message is the only thing that travels from notifiers to the dispatch loop.
// ID is set for KindRefresh only.
type Message struct {
	Kind Kind
	ID   ID
}

// Refresh asks the loop to refresh the feature with the given id.
func Refresh(id ID) Message { return Message{Kind: KindRefresh, ID: id} }

// Terminate asks the loop to stop.
func Terminate() Message { return Message{Kind: KindTerminate} }
