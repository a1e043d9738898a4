package config

import "time"

type Config struct {
	CatalogPath   string
	Namespace     string
	ChunkSize     int
	CommitPolicy  Policy
	ProgressEvery int
	LedgerPath    string
	Timezone      string
	Storage       StorageConfig
	Retry         RetryConfig
	Schedule      ScheduleConfig
	Events        EventsConfig
	Notify        NotifyConfig
}

// Policy decides what happens to a dataset when a chunk upload fails.
type Policy string

const (
	// PolicyBestEffort skips failed chunks and still writes a manifest for
	// what was stored.
	PolicyBestEffort Policy = "best-effort"
	// PolicyAtomic aborts the dataset on the first failed chunk; no manifest
	// is written.
	PolicyAtomic Policy = "atomic"
)

type StorageConfig struct {
	// OutputDir, when set, writes objects to the local filesystem instead of
	// a bucket.
	OutputDir string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type RetryConfig struct {
	MaxRetries  int
	InitBackoff time.Duration
	MaxBackoff  time.Duration
}

type ScheduleConfig struct {
	Spec        string
	MetricsAddr string
}

type EventsConfig struct {
	NATSURL string
}

type NotifyConfig struct {
	Provider string
	Token    string
	Target   string
}
