package uploader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/pyropy/bufwriter/core/chunker"
	"github.com/pyropy/bufwriter/core/config"
	"github.com/pyropy/bufwriter/core/constants"
	"github.com/pyropy/bufwriter/core/dispatcher"
	"github.com/pyropy/bufwriter/core/faults"
	"github.com/pyropy/bufwriter/core/journal"
	"github.com/pyropy/bufwriter/core/model"
	"github.com/pyropy/bufwriter/core/network"
	"github.com/pyropy/bufwriter/core/progress"
	"github.com/pyropy/bufwriter/core/tracker"
	"github.com/pyropy/bufwriter/core/txbuilder"
	"github.com/pyropy/bufwriter/lib/checksum"
	"github.com/pyropy/bufwriter/lib/logger"
	"github.com/pyropy/bufwriter/lib/utils"
)

var log, _ = logger.New("uploader")

var (
	ErrBufferNotFound = errors.New("buffer account not found")
)

// Uploader writes payloads into freshly created buffer accounts and drives
// every chunk to confirmation, re-signing unconfirmed chunks each round.
type Uploader struct {
	net     network.Network
	builder *txbuilder.Builder
	tracker *tracker.Tracker
	cfg     config.Upload
	journal journal.Journal
}

// NewUploader creates uploader. Journal may be nil.
func NewUploader(net network.Network, builder *txbuilder.Builder, cfg config.Upload, j journal.Journal) *Uploader {
	return &Uploader{
		net:     net,
		builder: builder,
		cfg:     cfg,
		journal: j,
		tracker: tracker.NewTracker(net, tracker.Config{
			BatchSize: cfg.StatusBatchSize,
			Attempts:  cfg.PollAttempts,
			Interval:  cfg.PollInterval,
		}),
	}
}

func (u *Uploader) sendOptions() network.SendOptions {
	return network.SendOptions{
		SkipPreflight: u.cfg.SkipPreflight,
		MaxRetries:    u.cfg.MaxSendRetries,
		Encoding:      solana.EncodingBase64,
	}
}

func (u *Uploader) chunkSize() (int, error) {
	limit := txbuilder.MaxChunkSize(u.builder.Fees())

	switch {
	case u.cfg.ChunkSize == 0:
		return limit, nil
	case u.cfg.ChunkSize < 0 || u.cfg.ChunkSize > limit:
		return 0, faults.Newf(faults.CodeInvalidConfig, "upload",
			"chunk size %d outside of 1..%d", u.cfg.ChunkSize, limit)
	default:
		return u.cfg.ChunkSize, nil
	}
}

// Upload writes payload into a new buffer account and returns its address.
// Reporter receives Idle first, Sending while chunks are handed off and
// exactly one terminal event.
func (u *Uploader) Upload(ctx context.Context, payload []byte, reporter *progress.Reporter, opts ...UploadOption) (solana.PublicKey, error) {
	reporter.Idle()

	account, err := u.upload(ctx, payload, reporter, buildUploadOptions(opts))
	if err != nil {
		reporter.Fail(err)
		return solana.PublicKey{}, err
	}

	reporter.Complete(account)
	return account, nil
}

func (u *Uploader) upload(ctx context.Context, payload []byte, reporter *progress.Reporter, opts UploadOptions) (solana.PublicKey, error) {
	if len(payload) == 0 {
		return solana.PublicKey{}, faults.Newf(faults.CodeInvalidPayloadLength, "upload", "payload is empty")
	}

	chunkSize, err := u.chunkSize()
	if err != nil {
		return solana.PublicKey{}, err
	}

	buffer, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, faults.New(faults.CodeBuildFailed, "generate buffer keypair", err)
	}
	account := buffer.PublicKey()

	chunks := chunker.Split(payload, chunkSize)
	session := model.NewSession(account.String(), u.builder.Authority().String(),
		len(payload), chunkSize, len(chunks), checksum.CalculateCheckSum(payload))
	if opts.SessionID != uuid.Nil {
		session.ID = opts.SessionID
	}
	u.record(ctx, &session)

	if err := u.createAccount(ctx, &session, buffer, len(payload)); err != nil {
		u.fail(ctx, &session, err)
		return solana.PublicKey{}, err
	}

	if err := u.writeChunks(ctx, &session, account, chunks, reporter); err != nil {
		u.fail(ctx, &session, err)
		return solana.PublicKey{}, err
	}

	u.transition(ctx, &session, model.StateCompleted)
	return account, nil
}

func (u *Uploader) createAccount(ctx context.Context, session *model.Session, buffer solana.PrivateKey, payloadLen int) error {
	blockhash, err := u.net.LatestBlockhash(ctx)
	if err != nil {
		return wrap(faults.CodeAnchorFetchFailed, "fetch blockhash", err)
	}

	lamports, err := u.net.MinimumBalance(ctx, uint64(payloadLen)+constants.FUNDING_EXTRA_SPACE)
	if err != nil {
		return wrap(faults.CodeFundingQueryFailed, "minimum balance", err)
	}

	if lamports == 0 {
		return faults.Newf(faults.CodeZeroFunding, "minimum balance", "network reported zero lamports for %d bytes", payloadLen)
	}

	tx, err := u.builder.CreateBuffer(buffer, lamports, payloadLen, blockhash)
	if err != nil {
		return err
	}

	sig, err := u.net.Send(ctx, tx, u.sendOptions())
	if err != nil {
		return wrap(faults.CodeRpcTransport, "send create buffer", err)
	}

	log.Infow("create account", "status", "submitted", "session", session.ID, "account", session.Account, "lamports", lamports, "signature", sig)
	u.transition(ctx, session, model.StateAwaitingAccountConfirmation)

	return u.tracker.AwaitConfirmation(ctx, sig, u.cfg.AccountPollAttempts, u.cfg.AccountPollInterval,
		faults.CodeAccountCreationRejected)
}

// writeChunks runs retry rounds until every chunk is confirmed. Chunks are
// identified by offset, signatures only live for the round that produced them.
func (u *Uploader) writeChunks(ctx context.Context, session *model.Session, account solana.PublicKey, chunks []model.Chunk, reporter *progress.Reporter) error {
	d := dispatcher.NewDispatcher(u.net, dispatcher.Config{
		Send:        u.sendOptions(),
		Delay:       u.cfg.SendDelay,
		Concurrency: u.cfg.Concurrency,
	})
	defer func() {
		d.Wait()
		submitted, failed := d.Stats()
		log.Infow("write chunks", "status", "submissions drained", "session", session.ID, "submitted", submitted, "failed", failed)
	}()

	pending := chunks
	for round := 1; len(pending) > 0; round++ {
		if u.cfg.MaxRounds > 0 && round > u.cfg.MaxRounds {
			return faults.Newf(faults.CodeRetryBudgetExhausted, "write chunks",
				"%d of %d chunks unconfirmed after %d rounds", len(pending), len(chunks), u.cfg.MaxRounds)
		}

		session.Round = round
		if round == 1 {
			u.transition(ctx, session, model.StateSendingChunks)
		} else {
			u.transition(ctx, session, model.StateRetryingChunks)
		}

		txs, inflight, err := u.signRound(ctx, account, pending)
		if err != nil {
			return err
		}

		if err := d.Dispatch(ctx, txs, reporter.Sending); err != nil {
			return err
		}

		if err := utils.Sleep(ctx, u.cfg.SettleDelay); err != nil {
			return err
		}

		u.transition(ctx, session, model.StateConfirmingChunks)

		signatures := make([]solana.Signature, 0, len(txs))
		for _, tx := range txs {
			signatures = append(signatures, txbuilder.SignatureOf(tx))
		}

		result, err := u.tracker.Track(ctx, signatures)
		if err != nil {
			return err
		}

		pending = retryChunks(result, inflight)
		session.Confirmed = len(chunks) - len(pending)

		log.Infow("write chunks", "status", "round finished", "session", session.ID, "round", round,
			"confirmed", len(result.Confirmed), "errored", len(result.Errored), "pending", len(result.Pending))
	}

	return nil
}

// signRound builds write transactions of pending chunks against a fresh blockhash
func (u *Uploader) signRound(ctx context.Context, account solana.PublicKey, pending []model.Chunk) ([]*solana.Transaction, map[solana.Signature]model.Chunk, error) {
	blockhash, err := u.net.LatestBlockhash(ctx)
	if err != nil {
		return nil, nil, wrap(faults.CodeAnchorFetchFailed, "fetch blockhash", err)
	}

	txs := make([]*solana.Transaction, 0, len(pending))
	inflight := make(map[solana.Signature]model.Chunk, len(pending))

	for _, chunk := range pending {
		tx, err := u.builder.Write(account, chunk, blockhash)
		if err != nil {
			return nil, nil, err
		}

		txs = append(txs, tx)
		inflight[txbuilder.SignatureOf(tx)] = chunk
	}

	return txs, inflight, nil
}

// retryChunks maps retry eligible signatures of the current round back to
// chunks, in ascending offset order. Signatures outside the round are ignored.
func retryChunks(result tracker.Result, inflight map[solana.Signature]model.Chunk) []model.Chunk {
	retry := make(map[uint32]model.Chunk)
	for _, sig := range result.Retry() {
		chunk, ok := inflight[sig]
		if !ok {
			log.Debugw("write chunks", "status", "ignoring unknown signature", "signature", sig)
			continue
		}
		retry[chunk.Offset] = chunk
	}

	// confirmed wins when the same offset is reported both ways
	for _, sig := range result.Confirmed {
		if chunk, ok := inflight[sig]; ok {
			delete(retry, chunk.Offset)
		}
	}

	pending := make([]model.Chunk, 0, len(retry))
	for _, chunk := range retry {
		pending = append(pending, chunk)
	}
	chunker.SortByOffset(pending)

	return pending
}

// SetBufferAuthority hands buffer over to newAuthority and waits for confirmation
func (u *Uploader) SetBufferAuthority(ctx context.Context, buffer, newAuthority solana.PublicKey) (solana.Signature, error) {
	exists, err := u.net.AccountExists(ctx, buffer)
	if err != nil {
		return solana.Signature{}, wrap(faults.CodeRpcTransport, "get buffer account", err)
	}

	if !exists {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrBufferNotFound, buffer)
	}

	blockhash, err := u.net.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, wrap(faults.CodeAnchorFetchFailed, "fetch blockhash", err)
	}

	tx, err := u.builder.SetBufferAuthority(buffer, newAuthority, blockhash)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := u.net.Send(ctx, tx, u.sendOptions())
	if err != nil {
		return solana.Signature{}, wrap(faults.CodeRpcTransport, "send set authority", err)
	}

	log.Infow("set authority", "status", "submitted", "buffer", buffer, "authority", newAuthority, "signature", sig)

	err = u.tracker.AwaitConfirmation(ctx, sig, u.cfg.AccountPollAttempts, u.cfg.AccountPollInterval,
		faults.CodeAuthorityChangeRejected)
	if err != nil {
		return solana.Signature{}, err
	}

	return sig, nil
}

func (u *Uploader) transition(ctx context.Context, session *model.Session, state model.State) {
	session.State = state
	u.record(ctx, session)
}

func (u *Uploader) fail(ctx context.Context, session *model.Session, err error) {
	session.Error = err.Error()
	log.Errorw("upload", "status", "failed", "session", session.ID, "account", session.Account,
		"round", session.Round, "code", faults.CodeOf(err), "err", err)
	u.transition(ctx, session, model.StateFailed)
}

func (u *Uploader) record(ctx context.Context, session *model.Session) {
	session.UpdatedAt = time.Now().UTC()

	log.Infow("upload", "status", string(session.State), "session", session.ID, "account", session.Account,
		"round", session.Round, "confirmed", session.Confirmed, "chunks", session.ChunkCount)

	if u.journal == nil {
		return
	}

	// journal must not abort an upload
	if err := u.journal.Put(context.WithoutCancel(ctx), *session); err != nil {
		log.Warnw("upload", "status", "journal write failed", "session", session.ID, "err", err)
	}
}

// wrap tags err with code unless it already carries one
func wrap(code faults.Code, op string, err error) error {
	if faults.CodeOf(err) != "" {
		return err
	}

	return faults.New(code, op, err)
}
