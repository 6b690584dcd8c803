package progress

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/pyropy/bufwriter/core/model"
)

// Reporter is single producer event channel of one upload session.
// Sends never block: when consumer falls behind intermediate events are dropped,
// terminal event is always delivered exactly once and closes the channel.
type Reporter struct {
	mu      sync.Mutex
	events  chan model.Progress
	done    bool
	dropped int
}

func NewReporter(buffer int) *Reporter {
	if buffer <= 0 {
		buffer = 1
	}

	return &Reporter{
		events: make(chan model.Progress, buffer),
	}
}

// Events returns channel consumed by the caller
func (r *Reporter) Events() <-chan model.Progress {
	return r.events
}

func (r *Reporter) Idle() {
	r.emit(model.Idle())
}

func (r *Reporter) Sending(sent, total int) {
	r.emit(model.Sending(sent, total))
}

func (r *Reporter) Complete(account solana.PublicKey) {
	r.finish(model.Completed(account))
}

// Fail emits generic failure notification
func (r *Reporter) Fail(err error) {
	reason := "upload failed"
	if err != nil {
		reason = err.Error()
	}

	r.finish(model.Failed(reason))
}

// Dropped returns number of non terminal events consumer never saw
func (r *Reporter) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *Reporter) emit(p model.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}

	select {
	case r.events <- p:
	default:
		r.dropped++
	}
}

func (r *Reporter) finish(p model.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return
	}
	r.done = true

	for {
		select {
		case r.events <- p:
			close(r.events)
			return
		default:
		}

		// make room by evicting oldest queued event
		select {
		case <-r.events:
			r.dropped++
		default:
		}
	}
}
