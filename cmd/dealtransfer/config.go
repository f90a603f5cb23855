package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	webhookURL    string
	sourceStageID string
	targetStageID string
	batchSize     int
	dailyLimit    int
	startHour     int
	pollInterval  time.Duration
	passTimeout   time.Duration
	acquireWait   time.Duration
	runOnStart    bool
	timezone      string
	location      *time.Location

	crmRPS     float64
	crmTimeout time.Duration

	logFile      string
	counterStore string
	counterFile  string

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	statsRedis    bool
	statsTTL      time.Duration

	statusAddr string
}

// fileConfig é o formato do arquivo opcional apontado por CONFIG_FILE.
// Variáveis de ambiente têm precedência sobre o arquivo.
type fileConfig struct {
	WebhookURL     string   `yaml:"webhook_url"`
	SourceStageID  string   `yaml:"source_stage_id"`
	TargetStageID  string   `yaml:"target_stage_id"`
	BatchSize      int      `yaml:"batch_size"`
	DailyLimit     int      `yaml:"daily_limit"`
	StartHour      *int     `yaml:"start_hour"`
	PollInterval   string   `yaml:"poll_interval"`
	PassTimeout    string   `yaml:"pass_timeout"`
	AcquireTimeout string   `yaml:"acquire_timeout"`
	RunOnStart     *bool    `yaml:"run_on_start"`
	Timezone       string   `yaml:"timezone"`
	CRMRPS         *float64 `yaml:"crm_rps"`
	CRMTimeout     string   `yaml:"crm_timeout"`
	LogFile        string   `yaml:"log_file"`
	CounterStore   string   `yaml:"counter_store"`
	CounterFile    string   `yaml:"counter_file"`
	Redis          struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		Stats    *bool  `yaml:"stats"`
		StatsTTL string `yaml:"stats_ttl"`
	} `yaml:"redis"`
	StatusAddr string `yaml:"status_addr"`
}

func defaultConfig() config {
	return config{
		batchSize:    3,
		dailyLimit:   30,
		startHour:    12,
		pollInterval: 10 * time.Minute,
		timezone:     "Local",
		crmRPS:       2,
		crmTimeout:   30 * time.Second,
		logFile:      "deal-transfer.log",
		counterStore: "file",
		counterFile:  "daily-counter.json",
		redisPrefix:  "dealtransfer",
		statsTTL:     30 * 24 * time.Hour,
	}
}

func readConfig() (config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return config{}, err
		}
	}

	var env envReader
	cfg.webhookURL = env.stringDefault("CRM_WEBHOOK_URL", cfg.webhookURL)
	cfg.sourceStageID = env.stringDefault("SOURCE_STAGE_ID", cfg.sourceStageID)
	cfg.targetStageID = env.stringDefault("TARGET_STAGE_ID", cfg.targetStageID)
	cfg.batchSize = env.intDefault("BATCH_SIZE", cfg.batchSize)
	cfg.dailyLimit = env.intDefault("DAILY_LIMIT", cfg.dailyLimit)
	cfg.startHour = env.intDefault("START_HOUR", cfg.startHour)
	cfg.pollInterval = env.durationDefault("POLL_INTERVAL", cfg.pollInterval)
	cfg.passTimeout = env.durationDefault("PASS_TIMEOUT", cfg.passTimeout)
	cfg.acquireWait = env.durationDefault("ACQUIRE_TIMEOUT", cfg.acquireWait)
	cfg.runOnStart = env.boolDefault("RUN_ON_START", cfg.runOnStart)
	cfg.timezone = env.stringDefault("TIMEZONE", cfg.timezone)

	cfg.crmRPS = env.floatDefault("CRM_RPS", cfg.crmRPS)
	cfg.crmTimeout = env.durationDefault("CRM_TIMEOUT", cfg.crmTimeout)

	cfg.logFile = env.stringDefault("LOG_FILE", cfg.logFile)
	cfg.counterStore = strings.ToLower(env.stringDefault("COUNTER_STORE", cfg.counterStore))
	cfg.counterFile = env.stringDefault("COUNTER_FILE", cfg.counterFile)

	cfg.redisAddr = env.stringDefault("REDIS_ADDR", cfg.redisAddr)
	cfg.redisPassword = env.stringDefault("REDIS_PASSWORD", cfg.redisPassword)
	cfg.redisDB = env.intDefault("REDIS_DB", cfg.redisDB)
	cfg.redisPrefix = env.stringDefault("REDIS_PREFIX", cfg.redisPrefix)
	cfg.statsRedis = env.boolDefault("STATS_REDIS_ENABLED", cfg.statsRedis)
	cfg.statsTTL = env.durationDefault("STATS_REDIS_TTL", cfg.statsTTL)

	cfg.statusAddr = env.stringDefault("STATUS_ADDR", cfg.statusAddr)

	if err := env.err(); err != nil {
		return config{}, err
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (cfg *config) validate() error {
	if strings.TrimSpace(cfg.webhookURL) == "" {
		return errors.New("CRM_WEBHOOK_URL is required")
	}
	if cfg.sourceStageID == "" || cfg.targetStageID == "" {
		return errors.New("SOURCE_STAGE_ID and TARGET_STAGE_ID are required")
	}
	if cfg.sourceStageID == cfg.targetStageID {
		return errors.New("SOURCE_STAGE_ID and TARGET_STAGE_ID must differ")
	}
	if cfg.batchSize <= 0 {
		return errors.New("BATCH_SIZE must be > 0")
	}
	if cfg.dailyLimit <= 0 {
		return errors.New("DAILY_LIMIT must be > 0")
	}
	if cfg.startHour < 0 || cfg.startHour > 23 {
		return errors.New("START_HOUR must be between 0 and 23")
	}
	if cfg.pollInterval <= 0 {
		return errors.New("POLL_INTERVAL must be > 0")
	}
	if cfg.passTimeout < 0 {
		return errors.New("PASS_TIMEOUT must be >= 0")
	}
	if cfg.acquireWait < 0 {
		return errors.New("ACQUIRE_TIMEOUT must be >= 0")
	}

	loc, err := time.LoadLocation(cfg.timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", cfg.timezone, err)
	}
	cfg.location = loc

	switch cfg.counterStore {
	case "file":
		if cfg.counterFile == "" {
			return errors.New("COUNTER_FILE is required when COUNTER_STORE=file")
		}
	case "redis":
		if strings.TrimSpace(cfg.redisAddr) == "" {
			return errors.New("REDIS_ADDR is required when COUNTER_STORE=redis")
		}
	case "memory":
	default:
		return fmt.Errorf("COUNTER_STORE must be file, redis or memory, got %q", cfg.counterStore)
	}
	if cfg.statsRedis && strings.TrimSpace(cfg.redisAddr) == "" {
		return errors.New("REDIS_ADDR is required when STATS_REDIS_ENABLED=true")
	}
	return nil
}

// usesRedis indica se algum componente precisa de conexão com o Redis.
func (cfg config) usesRedis() bool {
	return cfg.counterStore == "redis" || cfg.statsRedis
}

func applyFile(cfg *config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.webhookURL, fc.WebhookURL)
	setString(&cfg.sourceStageID, fc.SourceStageID)
	setString(&cfg.targetStageID, fc.TargetStageID)
	setInt(&cfg.batchSize, fc.BatchSize)
	setInt(&cfg.dailyLimit, fc.DailyLimit)
	setPtr(&cfg.startHour, fc.StartHour)
	if err := setDuration(&cfg.pollInterval, "poll_interval", fc.PollInterval); err != nil {
		return err
	}
	if err := setDuration(&cfg.passTimeout, "pass_timeout", fc.PassTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.acquireWait, "acquire_timeout", fc.AcquireTimeout); err != nil {
		return err
	}
	setPtr(&cfg.runOnStart, fc.RunOnStart)
	setString(&cfg.timezone, fc.Timezone)
	setPtr(&cfg.crmRPS, fc.CRMRPS)
	if err := setDuration(&cfg.crmTimeout, "crm_timeout", fc.CRMTimeout); err != nil {
		return err
	}
	setString(&cfg.logFile, fc.LogFile)
	setString(&cfg.counterStore, strings.ToLower(fc.CounterStore))
	setString(&cfg.counterFile, fc.CounterFile)
	setString(&cfg.redisAddr, fc.Redis.Addr)
	setString(&cfg.redisPassword, fc.Redis.Password)
	setPtr(&cfg.redisDB, fc.Redis.DB)
	setString(&cfg.redisPrefix, fc.Redis.Prefix)
	setPtr(&cfg.statsRedis, fc.Redis.Stats)
	if err := setDuration(&cfg.statsTTL, "redis.stats_ttl", fc.Redis.StatsTTL); err != nil {
		return err
	}
	setString(&cfg.statusAddr, fc.StatusAddr)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// setPtr aplica valores do arquivo que podem ser zero ou false.
func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config file: invalid %s %q: %w", name, v, err)
	}
	*dst = d
	return nil
}

// envReader lê variáveis de ambiente sobre os valores já carregados.
// Valores presentes mas inválidos são acumulados e devolvidos por err.
type envReader struct {
	errs []error
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) invalid(k, v string, err error) {
	r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", k, v, err))
}

func (r *envReader) stringDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (r *envReader) intDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(k, v, err)
		return def
	}
	return i
}

func (r *envReader) floatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.invalid(k, v, err)
		return def
	}
	return f
}

func (r *envReader) boolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.invalid(k, v, err)
		return def
	}
	return b
}

func (r *envReader) durationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid(k, v, err)
		return def
	}
	return d
}
