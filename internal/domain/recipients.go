package domain

// Recipients selects the audience of an outbound message relative to the
// connection whose event produced it.
type Recipients int

const (
	// RecipientsAll delivers to every connection, the originator included.
	RecipientsAll Recipients = iota
	// RecipientsOthers delivers to every connection except the originator.
	RecipientsOthers
	// RecipientsOriginator delivers to the originator only.
	RecipientsOriginator
)

func (r Recipients) String() string {
	switch r {
	case RecipientsAll:
		return "all"
	case RecipientsOthers:
		return "others"
	case RecipientsOriginator:
		return "originator"
	default:
		return "unknown"
	}
}
