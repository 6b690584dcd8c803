package ledger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pyropy/bufwriter/core/faults"
	"github.com/pyropy/bufwriter/core/network"
	"github.com/pyropy/bufwriter/lib/logger"
)

var log, _ = logger.New("ledger")

type Config struct {
	URL string
	// RetryMax is number of HTTP level retries on 429 and 5xx responses, 0 disables them
	RetryMax int
	Timeout  time.Duration
}

// Client implements network.Network on top of solana json rpc
type Client struct {
	rpc *rpc.Client
	url string
}

var _ network.Network = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		rpc: rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(cfg.URL, &jsonrpc.RPCClientOpts{
			HTTPClient: newHTTPClient(cfg),
		})),
		url: cfg.URL,
	}
}

func newHTTPClient(cfg Config) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Debugw("rpc", "status", "retrying request", "url", req.URL.String(), "attempt", attempt)
		}
	}

	hc := client.StandardClient()
	hc.Timeout = cfg.Timeout

	return hc
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, faults.New(faults.CodeAnchorFetchFailed, "getLatestBlockhash", err)
	}

	if res == nil || res.Value == nil {
		return solana.Hash{}, faults.Newf(faults.CodeAnchorFetchFailed, "getLatestBlockhash", "empty response")
	}

	return res.Value.Blockhash, nil
}

func (c *Client) MinimumBalance(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, size, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, faults.New(faults.CodeFundingQueryFailed, "getMinimumBalanceForRentExemption", err)
	}

	return lamports, nil
}

func (c *Client) Send(ctx context.Context, tx *solana.Transaction, opts network.SendOptions) (solana.Signature, error) {
	maxRetries := opts.MaxRetries
	encoding := opts.Encoding
	if encoding == "" {
		encoding = solana.EncodingBase64
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		Encoding:            encoding,
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: rpc.CommitmentFinalized,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, faults.New(faults.CodeRpcTransport, "sendTransaction", err)
	}

	return sig, nil
}

func (c *Client) SignatureStatuses(ctx context.Context, signatures []solana.Signature) ([]*network.SignatureStatus, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		return nil, faults.New(faults.CodeStatusQueryFailed, "getSignatureStatuses", err)
	}

	statuses := make([]*network.SignatureStatus, len(res.Value))
	for i, v := range res.Value {
		if v == nil {
			continue
		}

		statuses[i] = &network.SignatureStatus{
			Slot:       v.Slot,
			Commitment: toCommitment(v.ConfirmationStatus),
			Err:        v.Err,
		}
	}

	return statuses, nil
}

// Balance returns lamports held by account
func (c *Client) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, faults.New(faults.CodeRpcTransport, "getBalance", err)
	}

	return res.Value, nil
}

// AccountExists reports whether account holds any data on chain
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, account)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, faults.New(faults.CodeRpcTransport, "getAccountInfo", err)
	}

	return true, nil
}

func toCommitment(s rpc.ConfirmationStatusType) network.Commitment {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return network.CommitmentProcessed
	case rpc.ConfirmationStatusConfirmed:
		return network.CommitmentConfirmed
	case rpc.ConfirmationStatusFinalized:
		return network.CommitmentFinalized
	default:
		return network.CommitmentNone
	}
}
