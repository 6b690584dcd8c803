package progress

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pyropy/bufwriter/core/model"
	"github.com/pyropy/bufwriter/lib/logger"
)

var log, _ = logger.New("progress")

// Sink receives every progress event read from the reporter
type Sink interface {
	Publish(ctx context.Context, p model.Progress) error
}

type LogSink struct{}

func (LogSink) Publish(_ context.Context, p model.Progress) error {
	switch p.Kind {
	case model.ProgressSending:
		log.Infow("progress", "status", "sending", "sent", p.Sent, "total", p.Total)
	case model.ProgressCompleted:
		log.Infow("progress", "status", "completed", "account", p.Account)
	case model.ProgressFailed:
		log.Errorw("progress", "status", "failed", "reason", p.Reason)
	default:
		log.Infow("progress", "status", string(p.Kind))
	}

	return nil
}

// Outcome summarizes consumed event stream
type Outcome struct {
	Completed bool
	Account   solana.PublicKey
	Reason    string
	Last      model.Progress
}

// Consume reads events until terminal event or channel close and forwards them to sinks.
// Stream closed without Completed event is reported as failure. Sink errors are logged.
func Consume(ctx context.Context, events <-chan model.Progress, sinks ...Sink) Outcome {
	var outcome Outcome

	for {
		select {
		case <-ctx.Done():
			outcome.Reason = ctx.Err().Error()
			return outcome
		case p, ok := <-events:
			if !ok {
				if !outcome.Completed && outcome.Reason == "" {
					outcome.Reason = "progress stream closed before completion"
				}
				return outcome
			}

			outcome.Last = p
			for _, s := range sinks {
				if err := s.Publish(ctx, p); err != nil {
					log.Warnw("progress", "status", "sink publish failed", "kind", p.Kind, "err", err)
				}
			}

			switch p.Kind {
			case model.ProgressCompleted:
				outcome.Completed = true
				outcome.Account = p.Account
				return outcome
			case model.ProgressFailed:
				outcome.Reason = p.Reason
				return outcome
			}
		}
	}
}
