package model

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

type ProgressKind string

const (
	ProgressIdle      ProgressKind = "idle"
	ProgressSending   ProgressKind = "sending"
	ProgressCompleted ProgressKind = "completed"
	ProgressFailed    ProgressKind = "failed"
)

// Progress is event emitted by the upload pipeline
type Progress struct {
	Kind    ProgressKind     `json:"kind"`
	Sent    int              `json:"sent,omitempty"`
	Total   int              `json:"total,omitempty"`
	Account solana.PublicKey `json:"account"`
	Reason  string           `json:"reason,omitempty"`
}

func Idle() Progress {
	return Progress{Kind: ProgressIdle}
}

func Sending(sent, total int) Progress {
	return Progress{Kind: ProgressSending, Sent: sent, Total: total}
}

func Completed(account solana.PublicKey) Progress {
	return Progress{Kind: ProgressCompleted, Account: account}
}

func Failed(reason string) Progress {
	return Progress{Kind: ProgressFailed, Reason: reason}
}

func (p Progress) IsTerminal() bool {
	return p.Kind == ProgressCompleted || p.Kind == ProgressFailed
}

func (p Progress) String() string {
	switch p.Kind {
	case ProgressSending:
		return fmt.Sprintf("sending %d/%d", p.Sent, p.Total)
	case ProgressCompleted:
		return fmt.Sprintf("completed %s", p.Account)
	case ProgressFailed:
		return fmt.Sprintf("failed: %s", p.Reason)
	default:
		return string(p.Kind)
	}
}
