package model

import (
	"time"

	"github.com/google/uuid"
)

// State is position of an upload session in the write-and-confirm pipeline
type State string

const (
	StateCreatingAccount             State = "creating_account"
	StateAwaitingAccountConfirmation State = "awaiting_account_confirmation"
	StateSendingChunks               State = "sending_chunks"
	StateConfirmingChunks            State = "confirming_chunks"
	StateRetryingChunks              State = "retrying_chunks"
	StateCompleted                   State = "completed"
	StateFailed                      State = "failed"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Session is journal record of one upload
type Session struct {
	ID              uuid.UUID
	Account         string
	Authority       string
	PayloadSize     int
	PayloadChecksum string
	ChunkSize       int
	ChunkCount      int
	Confirmed       int
	Round           int
	State           State
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewSession(account, authority string, payloadSize, chunkSize, chunkCount int, checksum string) Session {
	now := time.Now().UTC()

	return Session{
		ID:              uuid.New(),
		Account:         account,
		Authority:       authority,
		PayloadSize:     payloadSize,
		PayloadChecksum: checksum,
		ChunkSize:       chunkSize,
		ChunkCount:      chunkCount,
		State:           StateCreatingAccount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
