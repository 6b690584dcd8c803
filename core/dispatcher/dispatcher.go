package dispatcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pyropy/bufwriter/core/network"
	"github.com/pyropy/bufwriter/core/txbuilder"
	"github.com/pyropy/bufwriter/lib/logger"
	"github.com/pyropy/bufwriter/lib/utils"
	"golang.org/x/sync/errgroup"
)

var log, _ = logger.New("dispatcher")

type Config struct {
	Send network.SendOptions
	// Delay is pause between two submissions
	Delay time.Duration
	// Concurrency bounds number of submissions in flight
	Concurrency int
}

// ProgressFunc is called before each transaction is handed off
type ProgressFunc func(sent, total int)

// Dispatcher hands transactions to the network without waiting for results.
// Whether a transaction landed is decided by polling its signature later.
type Dispatcher struct {
	sender network.Sender
	cfg    Config

	group     errgroup.Group
	submitted atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(sender network.Sender, cfg Config) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	d := &Dispatcher{
		sender: sender,
		cfg:    cfg,
	}
	d.group.SetLimit(cfg.Concurrency)

	return d
}

// Dispatch submits txs in order, reporting progress before every hand off.
// It returns once the last transaction is handed off, submissions may still be in flight.
// Only cancellation of ctx is returned as error.
func (d *Dispatcher) Dispatch(ctx context.Context, txs []*solana.Transaction, progress ProgressFunc) error {
	total := len(txs)

	for i, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if progress != nil {
			progress(i+1, total)
		}

		tx := tx
		d.group.Go(func() error {
			d.submit(ctx, tx)
			return nil
		})

		if i < total-1 {
			if err := utils.Sleep(ctx, d.cfg.Delay); err != nil {
				return err
			}
		}
	}

	return nil
}

func (d *Dispatcher) submit(ctx context.Context, tx *solana.Transaction) {
	d.submitted.Add(1)

	sig, err := d.sender.Send(ctx, tx, d.cfg.Send)
	if err != nil {
		d.failed.Add(1)
		log.Debugw("submit", "status", "submission failed", "signature", txbuilder.SignatureOf(tx), "err", err)
		return
	}

	log.Debugw("submit", "status", "submitted", "signature", sig)
}

// Wait blocks until every handed off submission returned
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

// Stats returns number of submissions attempted and failed so far
func (d *Dispatcher) Stats() (submitted, failed int64) {
	return d.submitted.Load(), d.failed.Load()
}
