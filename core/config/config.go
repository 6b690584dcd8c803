package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BUFWRITER"

// Config is read from BUFWRITER_ prefixed env variables, e.g. BUFWRITER_RPC_URL
// or BUFWRITER_UPLOAD_MAX_ROUNDS. Keys are derived from field names so bare
// names like PATH are never consulted.
type Config struct {
	RPC struct {
		URL      string        `default:"https://api.devnet.solana.com"`
		RetryMax int           `split_words:"true" default:"3"`
		Timeout  time.Duration `default:"30s"`
	}
	Keypair struct {
		Path string
	}
	Store struct {
		Path string `default:".bufwriter"`
	}
	Fees   Fees
	Upload Upload
	Kafka  struct {
		Brokers string
		Topic   string `default:"bufwriter.progress"`
	}
}

type Fees struct {
	UnitLimit uint32 `split_words:"true" default:"25000"`
	UnitPrice uint64 `split_words:"true" default:"550000"`
}

type Upload struct {
	// ChunkSize 0 picks largest chunk that fits a transaction
	ChunkSize       int           `split_words:"true" default:"0"`
	SkipPreflight   bool          `split_words:"true" default:"true"`
	MaxSendRetries  uint          `split_words:"true" default:"3"`
	SendDelay       time.Duration `split_words:"true" default:"25ms"`
	Concurrency     int           `default:"64"`
	SettleDelay     time.Duration `split_words:"true" default:"5s"`
	StatusBatchSize int           `split_words:"true" default:"250"`
	PollAttempts    int           `split_words:"true" default:"10"`
	PollInterval    time.Duration `split_words:"true" default:"200ms"`
	// MaxRounds 0 retries until every chunk is confirmed
	MaxRounds           int           `split_words:"true" default:"20"`
	AccountPollAttempts int           `split_words:"true" default:"60"`
	AccountPollInterval time.Duration `split_words:"true" default:"500ms"`
	ProgressBuffer      int           `split_words:"true" default:"1500"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process(envPrefix, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
