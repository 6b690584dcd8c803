package constants

import "time"

const (
	// PACKET_DATA_SIZE is the largest serialized transaction the network accepts
	PACKET_DATA_SIZE = 1232

	// CHUNK_SIZE_BYTES fills a write transaction that carries no compute budget instructions
	CHUNK_SIZE_BYTES = 1012

	// FEE_CHUNK_SIZE_BYTES leaves room for compute budget program key and its two instructions
	FEE_CHUNK_SIZE_BYTES = 960

	// BUFFER_METADATA_SIZE is the loader's buffer header (enum tag + optional authority)
	BUFFER_METADATA_SIZE = 37

	// FUNDING_EXTRA_SPACE is added to payload size when asking for minimum balance
	FUNDING_EXTRA_SPACE = 45

	// MAX_SIGNATURE_STATUS_BATCH is protocol ceiling for getSignatureStatuses
	MAX_SIGNATURE_STATUS_BATCH = 256

	DEFAULT_STATUS_BATCH_SIZE = 250

	DEFAULT_UNIT_LIMIT = 25_000
	DEFAULT_UNIT_PRICE = 550_000

	DEFAULT_MAX_SEND_RETRIES = 3
	DEFAULT_CONCURRENCY      = 64
	DEFAULT_MAX_ROUNDS       = 20

	DEFAULT_POLL_ATTEMPTS         = 10
	DEFAULT_ACCOUNT_POLL_ATTEMPTS = 60

	DEFAULT_PROGRESS_BUFFER = 1500
)

const (
	DEFAULT_SEND_DELAY            = 25 * time.Millisecond
	DEFAULT_SETTLE_DELAY          = 5 * time.Second
	DEFAULT_POLL_INTERVAL         = 200 * time.Millisecond
	DEFAULT_ACCOUNT_POLL_INTERVAL = 500 * time.Millisecond
)
