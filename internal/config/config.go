package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultNamespace = "https://wikidata.org/"
	DefaultBucket    = "graphdb-lakehouse-prod"
	DefaultChunkSize = 250_000
)

func Load() (*Config, error) {
	catalogPath := os.Getenv("GRAPHCOL_CATALOG")
	if catalogPath == "" {
		catalogPath = "datasets.yml"
	}

	namespace := os.Getenv("GRAPHCOL_NAMESPACE")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	chunkSize := DefaultChunkSize
	if v := os.Getenv("GRAPHCOL_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("GRAPHCOL_CHUNK_SIZE must be a positive integer, got %q", v)
		}
		chunkSize = n
	}

	policy, err := ParsePolicy(os.Getenv("GRAPHCOL_COMMIT_POLICY"))
	if err != nil {
		return nil, err
	}

	progressEvery := 100_000
	if n, err := strconv.Atoi(os.Getenv("GRAPHCOL_PROGRESS_EVERY")); err == nil && n > 0 {
		progressEvery = n
	}

	ledgerPath := os.Getenv("GRAPHCOL_LEDGER")
	if ledgerPath == "" {
		ledgerPath = "graphcol.db"
	}

	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}

	storageConfig, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	notifyConfig, err := loadNotifyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		CatalogPath:   catalogPath,
		Namespace:     namespace,
		ChunkSize:     chunkSize,
		CommitPolicy:  policy,
		ProgressEvery: progressEvery,
		LedgerPath:    ledgerPath,
		Timezone:      timezone,
		Storage:       storageConfig,
		Retry:         loadRetryConfig(),
		Schedule:      loadScheduleConfig(),
		Events:        EventsConfig{NATSURL: os.Getenv("NATS_URL")},
		Notify:        notifyConfig,
	}, nil
}

// ParsePolicy maps a policy name to a Policy. Empty means best-effort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyBestEffort:
		return PolicyBestEffort, nil
	case PolicyAtomic:
		return PolicyAtomic, nil
	default:
		return "", fmt.Errorf("unknown commit policy %q (want %s or %s)", s, PolicyBestEffort, PolicyAtomic)
	}
}

func loadStorageConfig() (StorageConfig, error) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		bucket = DefaultBucket
	}

	cfg := StorageConfig{
		OutputDir: os.Getenv("GRAPHCOL_OUTPUT_DIR"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Bucket:    bucket,
		Region:    os.Getenv("S3_REGION"),
		UseSSL:    os.Getenv("S3_USE_SSL") != "false",
	}

	if cfg.OutputDir == "" && cfg.Endpoint == "" {
		return cfg, fmt.Errorf("either GRAPHCOL_OUTPUT_DIR or S3_ENDPOINT must be set")
	}
	if cfg.OutputDir == "" && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return cfg, fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required with S3_ENDPOINT")
	}

	return cfg, nil
}

func loadRetryConfig() RetryConfig {
	retries := 3
	if n, err := strconv.Atoi(os.Getenv("UPLOAD_RETRIES")); err == nil && n >= 0 {
		retries = n
	}

	initBackoff := 200 * time.Millisecond
	if d, err := time.ParseDuration(os.Getenv("UPLOAD_BACKOFF")); err == nil && d > 0 {
		initBackoff = d
	}

	return RetryConfig{
		MaxRetries:  retries,
		InitBackoff: initBackoff,
		MaxBackoff:  10 * time.Second,
	}
}

func loadScheduleConfig() ScheduleConfig {
	addr := os.Getenv("GRAPHCOL_METRICS_ADDR")
	if addr == "" {
		addr = ":9102"
	}

	return ScheduleConfig{
		Spec:        os.Getenv("GRAPHCOL_SCHEDULE"),
		MetricsAddr: addr,
	}
}

func loadNotifyConfig() (NotifyConfig, error) {
	telegramToken := os.Getenv("TELEGRAM_TOKEN")
	discordToken := os.Getenv("DISCORD_TOKEN")

	switch {
	case telegramToken != "" && discordToken != "":
		return NotifyConfig{}, fmt.Errorf("set only one of TELEGRAM_TOKEN and DISCORD_TOKEN")
	case telegramToken != "":
		return NotifyConfig{Provider: "telegram", Token: telegramToken, Target: os.Getenv("TELEGRAM_CHAT_ID")}, nil
	case discordToken != "":
		return NotifyConfig{Provider: "discord", Token: discordToken, Target: os.Getenv("DISCORD_CHANNEL_ID")}, nil
	}

	return NotifyConfig{}, nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ApplyCatalog lets catalog-level settings override the environment defaults.
func (c *Config) ApplyCatalog(cat *Catalog) {
	if cat.Namespace != "" {
		c.Namespace = cat.Namespace
	}
	if cat.ChunkSize > 0 {
		c.ChunkSize = cat.ChunkSize
	}
}
