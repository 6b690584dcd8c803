package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pyropy/bufwriter/core/constants"
	"github.com/pyropy/bufwriter/core/faults"
	"github.com/pyropy/bufwriter/core/model"
	"github.com/pyropy/bufwriter/core/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	finalized = &network.SignatureStatus{Commitment: network.CommitmentFinalized}
	confirmed = &network.SignatureStatus{Commitment: network.CommitmentConfirmed}
	processed = &network.SignatureStatus{Commitment: network.CommitmentProcessed}
	noLevel   = &network.SignatureStatus{}
	errored   = &network.SignatureStatus{Commitment: network.CommitmentConfirmed, Err: "InstructionError"}
)

// fakeQuerier answers with scripted statuses; the n-th poll of a signature gets the n-th
// entry of its script, the last entry repeats.
type fakeQuerier struct {
	mu       sync.Mutex
	scripts  map[solana.Signature][]*network.SignatureStatus
	polls    map[solana.Signature]int
	failures int
	// failErr replaces the default StatusQueryFailed error of scripted failures
	failErr  error
	calls    int
	maxBatch int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		scripts: map[solana.Signature][]*network.SignatureStatus{},
		polls:   map[solana.Signature]int{},
	}
}

func (f *fakeQuerier) script(sig solana.Signature, statuses ...*network.SignatureStatus) {
	f.scripts[sig] = statuses
}

func (f *fakeQuerier) SignatureStatuses(_ context.Context, sigs []solana.Signature) ([]*network.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(sigs) > f.maxBatch {
		f.maxBatch = len(sigs)
	}

	if f.failures > 0 {
		f.failures--
		if f.failErr != nil {
			return nil, f.failErr
		}
		return nil, faults.Newf(faults.CodeStatusQueryFailed, "fake", "unavailable")
	}

	out := make([]*network.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		script := f.scripts[sig]
		n := f.polls[sig]
		f.polls[sig]++

		switch {
		case len(script) == 0:
			out[i] = nil
		case n < len(script):
			out[i] = script[n]
		default:
			out[i] = script[len(script)-1]
		}
	}

	return out, nil
}

func sigOf(i int) solana.Signature {
	var s solana.Signature
	s[0] = byte(i)
	s[1] = byte(i >> 8)
	s[63] = 1
	return s
}

func sigs(n int) []solana.Signature {
	out := make([]solana.Signature, n)
	for i := range out {
		out[i] = sigOf(i)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status *network.SignatureStatus
		want   model.ConfirmationStatus
	}{
		{"missing", nil, model.StatusUnknown},
		{"no level", noLevel, model.StatusUnknown},
		{"processed", processed, model.StatusProcessed},
		{"confirmed", confirmed, model.StatusConfirmed},
		{"finalized", finalized, model.StatusFinalized},
		{"error wins", errored, model.StatusErrored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status))
		})
	}
}

func TestTrackNeverExceedsBatchCeiling(t *testing.T) {
	for _, n := range []int{1, 255, 256, 257, 1000, 1500} {
		q := newFakeQuerier()
		for _, s := range sigs(n) {
			q.script(s, finalized)
		}

		tr := NewTracker(q, Config{BatchSize: 10_000, Attempts: 1})
		res, err := tr.Track(context.Background(), sigs(n))
		require.NoError(t, err)

		assert.LessOrEqual(t, q.maxBatch, constants.MAX_SIGNATURE_STATUS_BATCH, "n=%d", n)
		assert.Len(t, res.Confirmed, n)
		assert.Empty(t, res.Retry())
	}
}

func TestTrackUsesConfiguredBatchSize(t *testing.T) {
	q := newFakeQuerier()
	tr := NewTracker(q, Config{BatchSize: constants.DEFAULT_STATUS_BATCH_SIZE, Attempts: 1})

	_, err := tr.Track(context.Background(), sigs(600))
	require.NoError(t, err)

	assert.Equal(t, constants.DEFAULT_STATUS_BATCH_SIZE, q.maxBatch)
	assert.Equal(t, 3, q.calls)
}

func TestTrackPartitions(t *testing.T) {
	q := newFakeQuerier()
	all := sigs(5)
	q.script(all[0], finalized)
	q.script(all[1], confirmed)
	q.script(all[2], errored)
	q.script(all[3], processed)
	// all[4] never seen

	tr := NewTracker(q, Config{Attempts: 3})
	res, err := tr.Track(context.Background(), all)
	require.NoError(t, err)

	assert.ElementsMatch(t, all[:2], res.Confirmed)
	assert.Equal(t, []solana.Signature{all[2]}, res.Errored)
	assert.ElementsMatch(t, all[3:], res.Pending)
	assert.ElementsMatch(t, all[2:], res.Retry())
}

func TestTrackStopsPollingResolvedSignatures(t *testing.T) {
	q := newFakeQuerier()
	all := sigs(2)
	q.script(all[0], finalized)
	q.script(all[1], nil, processed, confirmed)

	tr := NewTracker(q, Config{Attempts: 10})
	res, err := tr.Track(context.Background(), all)
	require.NoError(t, err)

	assert.ElementsMatch(t, all, res.Confirmed)
	assert.Equal(t, 1, q.polls[all[0]])
	assert.Equal(t, 3, q.polls[all[1]])
}

func TestTrackQueryFailureIsTransient(t *testing.T) {
	q := newFakeQuerier()
	all := sigs(3)
	for _, s := range all {
		q.script(s, finalized)
	}
	q.failures = 2

	tr := NewTracker(q, Config{Attempts: 3})
	res, err := tr.Track(context.Background(), all)
	require.NoError(t, err)
	assert.Len(t, res.Confirmed, 3)

	q = newFakeQuerier()
	q.failures = 5
	tr = NewTracker(q, Config{Attempts: 3})
	res, err = tr.Track(context.Background(), all)
	require.NoError(t, err)
	assert.ElementsMatch(t, all, res.Pending)
}

func TestTrackUncodedQueryErrorIsTransient(t *testing.T) {
	q := newFakeQuerier()
	q.failures = 1
	q.failErr = errors.New("connection reset by peer")
	all := sigs(2)
	q.script(all[0], confirmed)
	q.script(all[1], confirmed)

	tr := NewTracker(q, Config{Attempts: 3})
	res, err := tr.Track(context.Background(), all)
	require.NoError(t, err)
	assert.Len(t, res.Confirmed, 2)
	assert.Equal(t, 2, q.calls)
}

func TestTrackFatalQueryErrorAborts(t *testing.T) {
	q := newFakeQuerier()
	q.failures = 1
	q.failErr = faults.Newf(faults.CodeRpcTransport, "fake", "tls handshake failed")

	tr := NewTracker(q, Config{Attempts: 5})
	_, err := tr.Track(context.Background(), sigs(3))
	assert.ErrorIs(t, err, faults.ErrRpcTransport)
	assert.Equal(t, 1, q.calls)
}

func TestAwaitConfirmationFatalQueryErrorAborts(t *testing.T) {
	q := newFakeQuerier()
	q.failures = 1
	q.failErr = faults.Newf(faults.CodeRpcTransport, "fake", "tls handshake failed")

	tr := NewTracker(q, Config{})
	err := tr.AwaitConfirmation(context.Background(), sigOf(1), 5, 0, faults.CodeAccountCreationRejected)
	assert.ErrorIs(t, err, faults.ErrRpcTransport)
	assert.Equal(t, 1, q.calls)
}

func TestTrackCanceled(t *testing.T) {
	q := newFakeQuerier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTracker(q, Config{Attempts: 5, Interval: time.Second})
	_, err := tr.Track(ctx, sigs(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAwaitConfirmation(t *testing.T) {
	sig := sigOf(1)

	q := newFakeQuerier()
	q.script(sig, nil, processed, finalized)
	tr := NewTracker(q, Config{})
	require.NoError(t, tr.AwaitConfirmation(context.Background(), sig, 5, 0, faults.CodeAccountCreationRejected))

	q = newFakeQuerier()
	q.script(sig, errored)
	tr = NewTracker(q, Config{})
	err := tr.AwaitConfirmation(context.Background(), sig, 5, 0, faults.CodeAccountCreationRejected)
	assert.ErrorIs(t, err, faults.ErrAccountCreationRejected)

	q = newFakeQuerier()
	q.script(sig, processed)
	tr = NewTracker(q, Config{})
	err = tr.AwaitConfirmation(context.Background(), sig, 3, 0, faults.CodeAccountCreationRejected)
	assert.ErrorIs(t, err, faults.ErrConfirmationTimeout)
	assert.Equal(t, 3, q.polls[sig])
}

func TestAwaitConfirmationCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTracker(newFakeQuerier(), Config{})
	err := tr.AwaitConfirmation(ctx, sigOf(1), 3, time.Second, faults.CodeAccountCreationRejected)
	assert.True(t, errors.Is(err, context.Canceled))
}
