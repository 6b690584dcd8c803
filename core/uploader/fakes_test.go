package uploader

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/pyropy/bufwriter/core/model"
	"github.com/pyropy/bufwriter/core/network"
	"github.com/pyropy/bufwriter/core/txbuilder"
)

// statusFunc decides status of a sent write. attempt counts sends of the same offset starting at 1.
type statusFunc func(offset uint32, attempt int) *network.SignatureStatus

var confirmed = &network.SignatureStatus{Slot: 1, Commitment: network.CommitmentConfirmed}

func failed(reason string) *network.SignatureStatus {
	return &network.SignatureStatus{Slot: 1, Commitment: network.CommitmentProcessed, Err: reason}
}

type sentTx struct {
	tx      *solana.Transaction
	write   *model.Chunk
	attempt int
}

// fakeNetwork is in memory ledger. Writes resolve by writeStatus, every other
// transaction resolves to createStatus.
type fakeNetwork struct {
	mu sync.Mutex

	minimumBalance uint64
	balanceErr     error
	createStatus   *network.SignatureStatus
	writeStatus    statusFunc
	// missing accounts are reported as not existing
	missing map[solana.PublicKey]bool
	// blockhashErr is returned by the blockhashFailAt-th blockhash fetch, 0 fails every fetch
	blockhashErr    error
	blockhashFailAt int

	calls          int
	blockhashCalls int
	blockhash      byte
	sent           map[solana.Signature]*sentTx
	attempts       map[uint32]int
	writes         []model.Chunk
	others         []*solana.Transaction
}

var _ network.Network = (*fakeNetwork)(nil)

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		minimumBalance: 1_000_000,
		createStatus:   confirmed,
		writeStatus: func(uint32, int) *network.SignatureStatus {
			return confirmed
		},
		missing:  make(map[solana.PublicKey]bool),
		sent:     make(map[solana.Signature]*sentTx),
		attempts: make(map[uint32]int),
	}
}

func (f *fakeNetwork) LatestBlockhash(_ context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.blockhashCalls++
	if f.blockhashErr != nil && (f.blockhashFailAt == 0 || f.blockhashFailAt == f.blockhashCalls) {
		return solana.Hash{}, f.blockhashErr
	}

	f.blockhash++

	var h solana.Hash
	for i := range h {
		h[i] = f.blockhash
	}

	return h, nil
}

func (f *fakeNetwork) MinimumBalance(_ context.Context, _ uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	return f.minimumBalance, f.balanceErr
}

func (f *fakeNetwork) AccountExists(_ context.Context, account solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	return !f.missing[account], nil
}

func (f *fakeNetwork) Send(_ context.Context, tx *solana.Transaction, _ network.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	sig := txbuilder.SignatureOf(tx)
	entry := &sentTx{tx: tx}

	if chunk, ok := writeOf(tx); ok {
		f.attempts[chunk.Offset]++
		entry.write = &chunk
		entry.attempt = f.attempts[chunk.Offset]
		f.writes = append(f.writes, chunk)
	} else {
		f.others = append(f.others, tx)
	}

	f.sent[sig] = entry
	return sig, nil
}

func (f *fakeNetwork) SignatureStatuses(_ context.Context, signatures []solana.Signature) ([]*network.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	out := make([]*network.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		entry, ok := f.sent[sig]
		switch {
		case !ok:
			out[i] = nil
		case entry.write != nil:
			out[i] = f.writeStatus(entry.write.Offset, entry.attempt)
		default:
			out[i] = f.createStatus
		}
	}

	return out, nil
}

func (f *fakeNetwork) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeNetwork) sendsOf(offset uint32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[offset]
}

func (f *fakeNetwork) writeSignatures(offset uint32) []solana.Signature {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []solana.Signature{}
	for sig, entry := range f.sent {
		if entry.write != nil && entry.write.Offset == offset {
			out = append(out, sig)
		}
	}

	return out
}

// landed returns chunks whose write transaction resolved as confirmed
func (f *fakeNetwork) landed() []model.Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []model.Chunk{}
	for _, entry := range f.sent {
		if entry.write == nil {
			continue
		}

		st := f.writeStatus(entry.write.Offset, entry.attempt)
		if st != nil && st.Err == nil && st.Commitment == network.CommitmentConfirmed {
			out = append(out, *entry.write)
		}
	}

	return out
}

func writeOf(tx *solana.Transaction) (model.Chunk, bool) {
	for _, ix := range tx.Message.Instructions {
		programID, err := tx.Message.Program(ix.ProgramIDIndex)
		if err != nil || !programID.Equals(solana.BPFLoaderUpgradeableProgramID) {
			continue
		}

		if offset, data, ok := txbuilder.DecodeWrite(ix.Data); ok {
			return model.Chunk{Offset: offset, Data: data}, true
		}
	}

	return model.Chunk{}, false
}
