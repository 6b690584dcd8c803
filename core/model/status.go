package model

// ConfirmationStatus is network reported progress of a transaction
type ConfirmationStatus int

const (
	StatusUnknown ConfirmationStatus = iota
	StatusProcessed
	StatusConfirmed
	StatusFinalized
	StatusErrored
)

func (s ConfirmationStatus) String() string {
	switch s {
	case StatusProcessed:
		return "processed"
	case StatusConfirmed:
		return "confirmed"
	case StatusFinalized:
		return "finalized"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsSuccess reports whether transaction can be considered landed
func (s ConfirmationStatus) IsSuccess() bool {
	return s == StatusConfirmed || s == StatusFinalized
}

// IsTerminal reports whether polling this transaction any further is pointless
func (s ConfirmationStatus) IsTerminal() bool {
	return s.IsSuccess() || s == StatusErrored
}
