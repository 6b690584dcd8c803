package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/pyropy/bufwriter/core/config"
	"github.com/pyropy/bufwriter/core/journal"
	"github.com/pyropy/bufwriter/core/progress"
	"github.com/pyropy/bufwriter/core/txbuilder"
	"github.com/pyropy/bufwriter/core/uploader"
	"github.com/pyropy/bufwriter/rpc/ledger"
	"github.com/urfave/cli/v2"
)

var writeCmd = &cli.Command{
	Name:  "write",
	Usage: "Upload file into a new buffer account",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file-path",
			Required: true,
			Usage:    "Path to program binary you want to upload",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Bytes written per transaction, 0 picks the largest that fits",
		},
		&cli.IntFlag{
			Name:  "max-rounds",
			Usage: "Retry rounds before giving up, 0 retries until done",
		},
		&cli.Uint64Flag{
			Name:  "unit-price",
			Usage: "Compute unit price in micro lamports",
		},
		&cli.BoolFlag{
			Name:  "no-fees",
			Usage: "Do not prepend compute budget instructions",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		if ctx.IsSet("chunk-size") {
			cfg.Upload.ChunkSize = ctx.Int("chunk-size")
		}
		if ctx.IsSet("max-rounds") {
			cfg.Upload.MaxRounds = ctx.Int("max-rounds")
		}
		if ctx.IsSet("unit-price") {
			cfg.Fees.UnitPrice = ctx.Uint64("unit-price")
		}
		if ctx.Bool("no-fees") {
			cfg.Fees = config.Fees{}
		}

		filePath := ctx.String("file-path")
		payload, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}

		authority, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.Keypair.Path)
		if err != nil {
			return err
		}

		store, err := journal.NewStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		net := newLedgerClient(cfg)
		fees := txbuilder.Fees{UnitLimit: cfg.Fees.UnitLimit, UnitPrice: cfg.Fees.UnitPrice}
		u := uploader.NewUploader(net, txbuilder.NewBuilder(authority, fees), cfg.Upload, store)

		sessionID := uuid.New()
		sinks := []progress.Sink{progress.LogSink{}}
		if cfg.Kafka.Brokers != "" {
			ks, err := progress.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, sessionID)
			if err != nil {
				return err
			}
			defer ks.Close()
			sinks = append(sinks, ks)
		}

		log.Infow("write", "status", "starting", "session", sessionID, "file", filePath, "size", units.HumanSize(float64(len(payload))),
			"rpc", net.URL(), "authority", authority.PublicKey())

		reporter := progress.NewReporter(cfg.Upload.ProgressBuffer)
		done := make(chan error, 1)
		go func() {
			_, err := u.Upload(ctx.Context, payload, reporter, uploader.WithSessionID(sessionID))
			done <- err
		}()

		outcome := progress.Consume(ctx.Context, reporter.Events(), sinks...)
		if err := <-done; err != nil {
			return err
		}

		if !outcome.Completed {
			return errors.New(outcome.Reason)
		}

		fmt.Println(outcome.Account)
		return nil
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "List upload sessions",
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		store, err := journal.NewStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.All(ctx.Context)
		if err != nil {
			return err
		}

		for _, s := range sessions {
			fmt.Printf("%s  %s  %-30s  %-44s  %8s  %d/%d chunks  round %d\n",
				s.CreatedAt.Format("2006-01-02 15:04:05"), s.ID, s.State, s.Account,
				units.HumanSize(float64(s.PayloadSize)), s.Confirmed, s.ChunkCount, s.Round)
		}

		return nil
	},
}

var balanceCmd = &cli.Command{
	Name:  "balance",
	Usage: "Show balance of an account, defaults to the authority",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "account",
			Usage: "Account address",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		var account solana.PublicKey
		if ctx.IsSet("account") {
			account, err = solana.PublicKeyFromBase58(ctx.String("account"))
		} else {
			var authority solana.PrivateKey
			authority, err = solana.PrivateKeyFromSolanaKeygenFile(cfg.Keypair.Path)
			account = authority.PublicKey()
		}
		if err != nil {
			return err
		}

		lamports, err := newLedgerClient(cfg).Balance(ctx.Context, account)
		if err != nil {
			return err
		}

		fmt.Printf("%s  %d lamports (%.9f SOL)\n", account, lamports, float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
		return nil
	},
}

var setAuthorityCmd = &cli.Command{
	Name:  "set-authority",
	Usage: "Hand buffer account over to a new authority",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "buffer",
			Required: true,
			Usage:    "Buffer account address",
		},
		&cli.StringFlag{
			Name:     "new-authority",
			Required: true,
			Usage:    "Address of the new buffer authority",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		buffer, err := solana.PublicKeyFromBase58(ctx.String("buffer"))
		if err != nil {
			return err
		}

		newAuthority, err := solana.PublicKeyFromBase58(ctx.String("new-authority"))
		if err != nil {
			return err
		}

		authority, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.Keypair.Path)
		if err != nil {
			return err
		}

		fees := txbuilder.Fees{UnitLimit: cfg.Fees.UnitLimit, UnitPrice: cfg.Fees.UnitPrice}
		u := uploader.NewUploader(newLedgerClient(cfg), txbuilder.NewBuilder(authority, fees), cfg.Upload, nil)

		sig, err := u.SetBufferAuthority(ctx.Context, buffer, newAuthority)
		if err != nil {
			return err
		}

		fmt.Println(sig)
		return nil
	},
}

func newLedgerClient(cfg *config.Config) *ledger.Client {
	return ledger.NewClient(ledger.Config{
		URL:      cfg.RPC.URL,
		RetryMax: cfg.RPC.RetryMax,
		Timeout:  cfg.RPC.Timeout,
	})
}
