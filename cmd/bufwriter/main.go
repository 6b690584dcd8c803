package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pyropy/bufwriter/core/config"
	"github.com/pyropy/bufwriter/lib/logger"
	"github.com/urfave/cli/v2"
)

var log, _ = logger.New("bufwriter")

func main() {
	app := &cli.App{
		Name:  "bufwriter",
		Usage: "Write program bytes into upgradeable loader buffer accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rpc-url",
				Usage: "JSON RPC endpoint of the cluster",
			},
			&cli.StringFlag{
				Name:  "keypair",
				Usage: "Path to authority keypair file, defaults to solana cli keypair",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Path to session journal",
			},
			&cli.StringFlag{
				Name:  "kafka-brokers",
				Usage: "Comma separated kafka brokers progress events are published to",
			},
		},
		Commands: []*cli.Command{
			writeCmd,
			listCmd,
			balanceCmd,
			setAuthorityCmd,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Errorw("bufwriter", "status", "failed", "err", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads env config and applies flags set on the command line
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("rpc-url") {
		cfg.RPC.URL = ctx.String("rpc-url")
	}
	if ctx.IsSet("keypair") {
		cfg.Keypair.Path = ctx.String("keypair")
	}
	if ctx.IsSet("store") {
		cfg.Store.Path = ctx.String("store")
	}
	if ctx.IsSet("kafka-brokers") {
		cfg.Kafka.Brokers = ctx.String("kafka-brokers")
	}

	if cfg.Keypair.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.Keypair.Path = filepath.Join(home, ".config", "solana", "id.json")
	}

	return cfg, nil
}
