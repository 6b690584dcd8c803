package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pyropy/bufwriter/core/constants"
	"github.com/pyropy/bufwriter/core/faults"
	"github.com/pyropy/bufwriter/core/model"
	"github.com/pyropy/bufwriter/core/network"
	"github.com/pyropy/bufwriter/lib/logger"
	"github.com/pyropy/bufwriter/lib/utils"
	"golang.org/x/sync/errgroup"
)

var log, _ = logger.New("tracker")

type Config struct {
	// BatchSize is number of signatures per status query, capped at protocol ceiling
	BatchSize int
	// Attempts is how many times one batch is polled before unconfirmed signatures are conceded
	Attempts int
	Interval time.Duration
	// Parallel limits how many batches are polled at the same time
	Parallel int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 || c.BatchSize > constants.MAX_SIGNATURE_STATUS_BATCH {
		c.BatchSize = constants.MAX_SIGNATURE_STATUS_BATCH
	}
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	if c.Interval < 0 {
		c.Interval = 0
	}
	if c.Parallel <= 0 {
		c.Parallel = 4
	}

	return c
}

// Result partitions tracked signatures
type Result struct {
	Confirmed []solana.Signature
	Errored   []solana.Signature
	// Pending were never seen as confirmed nor errored
	Pending []solana.Signature
}

// Retry returns signatures eligible for resubmission
func (r Result) Retry() []solana.Signature {
	out := make([]solana.Signature, 0, len(r.Errored)+len(r.Pending))
	out = append(out, r.Errored...)
	return append(out, r.Pending...)
}

func (r *Result) merge(o Result) {
	r.Confirmed = append(r.Confirmed, o.Confirmed...)
	r.Errored = append(r.Errored, o.Errored...)
	r.Pending = append(r.Pending, o.Pending...)
}

type Tracker struct {
	net network.StatusQuerier
	cfg Config
}

func NewTracker(net network.StatusQuerier, cfg Config) *Tracker {
	return &Tracker{
		net: net,
		cfg: cfg.withDefaults(),
	}
}

// Classify maps network status to confirmation status. Missing status and
// status without commitment level are unknown, error field wins over commitment.
func Classify(st *network.SignatureStatus) model.ConfirmationStatus {
	if st == nil {
		return model.StatusUnknown
	}

	if st.Err != nil {
		return model.StatusErrored
	}

	switch st.Commitment {
	case network.CommitmentProcessed:
		return model.StatusProcessed
	case network.CommitmentConfirmed:
		return model.StatusConfirmed
	case network.CommitmentFinalized:
		return model.StatusFinalized
	default:
		return model.StatusUnknown
	}
}

// Track polls statuses of signatures in batches and partitions them.
// Transient query failures count as used attempts. Cancellation and
// fatal query failures are returned as error.
func (t *Tracker) Track(ctx context.Context, signatures []solana.Signature) (Result, error) {
	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Parallel)

	for i, batch := range utils.Batch(signatures, t.cfg.BatchSize) {
		i, batch := i, batch
		g.Go(func() error {
			r, err := t.trackBatch(gctx, i, batch)
			if err != nil {
				return err
			}

			mu.Lock()
			result.merge(r)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return result, nil
}

func (t *Tracker) trackBatch(ctx context.Context, batchIdx int, batch []solana.Signature) (Result, error) {
	var result Result

	remaining := make([]solana.Signature, len(batch))
	copy(remaining, batch)

	for attempt := 1; attempt <= t.cfg.Attempts && len(remaining) > 0; attempt++ {
		statuses, err := t.query(ctx, remaining)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if !faults.IsTransient(err) {
				return Result{}, err
			}

			log.Warnw("track", "status", "status query failed", "batch", batchIdx, "attempt", attempt, "err", err)
		} else {
			unresolved := remaining[:0:0]
			for i, sig := range remaining {
				switch status := Classify(statuses[i]); {
				case status.IsSuccess():
					result.Confirmed = append(result.Confirmed, sig)
				case status == model.StatusErrored:
					log.Debugw("track", "status", "transaction errored", "signature", sig, "err", statuses[i].Err)
					result.Errored = append(result.Errored, sig)
				default:
					unresolved = append(unresolved, sig)
				}
			}

			remaining = unresolved
		}

		if len(remaining) == 0 || attempt == t.cfg.Attempts {
			break
		}

		if err := utils.Sleep(ctx, t.cfg.Interval); err != nil {
			return Result{}, err
		}
	}

	result.Pending = append(result.Pending, remaining...)
	return result, nil
}

// query fetches statuses of one batch. Errors without a code are tagged
// StatusQueryFailed, coded errors keep the category of their code.
func (t *Tracker) query(ctx context.Context, signatures []solana.Signature) ([]*network.SignatureStatus, error) {
	statuses, err := t.net.SignatureStatuses(ctx, signatures)
	if err != nil {
		if faults.CodeOf(err) == "" {
			return nil, faults.New(faults.CodeStatusQueryFailed, "track", err)
		}
		return nil, err
	}

	if len(statuses) != len(signatures) {
		return nil, faults.Newf(faults.CodeStatusQueryFailed, "track",
			"got %d statuses for %d signatures", len(statuses), len(signatures))
	}

	return statuses, nil
}

// AwaitConfirmation polls single signature until it is confirmed or errored.
// Errored transaction yields rejectCode error, running out of attempts yields ConfirmationTimeout.
func (t *Tracker) AwaitConfirmation(ctx context.Context, sig solana.Signature, attempts int, interval time.Duration, rejectCode faults.Code) error {
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		statuses, err := t.query(ctx, []solana.Signature{sig})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !faults.IsTransient(err) {
				return err
			}

			log.Warnw("await", "status", "status query failed", "signature", sig, "attempt", attempt, "err", err)
		} else {
			switch status := Classify(statuses[0]); {
			case status.IsSuccess():
				return nil
			case status == model.StatusErrored:
				return faults.New(rejectCode, "await confirmation", fmt.Errorf("transaction %s failed: %v", sig, statuses[0].Err))
			}
		}

		if attempt < attempts {
			if err := utils.Sleep(ctx, interval); err != nil {
				return err
			}
		}
	}

	return faults.Newf(faults.CodeConfirmationTimeout, "await confirmation",
		"transaction %s not confirmed after %d attempts", sig, attempts)
}
