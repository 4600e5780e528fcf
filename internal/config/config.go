// Package config loads and validates the cuanbot configuration with
// precedence ENV > file > defaults.
package config

import (
	"os"
	"time"
)

// AppConfig holds the full runtime configuration of the daemon.
type AppConfig struct {
	// Directories
	DataDir   string `yaml:"dataDir"`   // videos, temp audio, analytics DB, exports
	AssetsDir string `yaml:"assetsDir"` // backgrounds/ and music/ subdirectories

	// HTTP server
	ListenAddr string `yaml:"listenAddr"`
	PublicURL  string `yaml:"publicURL"` // external base URL Tasker uses to pull videos
	APIToken   string `yaml:"apiToken"`  // optional bearer token for the write API

	// OpenAI
	OpenAIBase  string `yaml:"openaiBase"`
	OpenAIKey   string `yaml:"-"`
	OpenAIModel string `yaml:"openaiModel"`

	// ElevenLabs
	ElevenLabsBase string `yaml:"elevenlabsBase"`
	ElevenLabsKey  string `yaml:"-"`

	// Telegram
	TelegramBase   string `yaml:"telegramBase"`
	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"telegramChatID"`

	// Trend sources
	TrendsBase   string        `yaml:"trendsBase"`
	TokboardBase string        `yaml:"tokboardBase"`
	TrendsTTL    time.Duration `yaml:"trendsTTL"`
	TrendsGeo    string        `yaml:"trendsGeo"`

	// Cache backend ("" = in-memory)
	RedisAddr string `yaml:"redisAddr"`

	// Scheduling
	Timezone        string `yaml:"timezone"`
	ActiveHours     string `yaml:"activeHours"` // "HH:MM=weight,..." audience activity table
	SchedulesPerDay int    `yaml:"schedulesPerDay"`

	// Media
	FFmpegPath  string `yaml:"ffmpegPath"`
	FFprobePath string `yaml:"ffprobePath"`
	Watermark   string `yaml:"watermark"`

	// Storage quotas
	VideoQuotaMB int `yaml:"videoQuotaMB"`
	KeepVideos   int `yaml:"keepVideos"`
	LogQuotaMB   int `yaml:"logQuotaMB"`
	KeepLogs     int `yaml:"keepLogs"`

	// Outbound HTTP behavior
	HTTPTimeout   time.Duration `yaml:"httpTimeout"`
	RetryAttempts int           `yaml:"retryAttempts"`
	RetryWait     time.Duration `yaml:"retryWait"`

	// Logging
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	// Version is injected by the daemon, never configured.
	Version string `yaml:"-"`
}

// Defaults returns the built-in configuration tuned for the TechCuan
// production setup (Jakarta audience, 100MB video quota, 3 posts a day).
func Defaults() AppConfig {
	return AppConfig{
		DataDir:         "./data",
		AssetsDir:       "./assets",
		ListenAddr:      defaultListenAddr(),
		OpenAIBase:      "https://api.openai.com",
		OpenAIModel:     "gpt-3.5-turbo",
		ElevenLabsBase:  "https://api.elevenlabs.io",
		TelegramBase:    "https://api.telegram.org",
		TrendsBase:      "https://trends.google.com",
		TokboardBase:    "https://www.tokboard.com",
		TrendsTTL:       30 * time.Minute,
		TrendsGeo:       "ID",
		Timezone:        "Asia/Jakarta",
		ActiveHours:     "07:00=0.7,12:00=0.6,19:00=1.0,21:00=0.9,23:00=0.5",
		SchedulesPerDay: 3,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		Watermark:       "@TechCuan",
		VideoQuotaMB:    100,
		KeepVideos:      5,
		LogQuotaMB:      50,
		KeepLogs:        3,
		HTTPTimeout:     30 * time.Second,
		RetryAttempts:   3,
		RetryWait:       2 * time.Second,
		LogLevel:        "info",
		LogService:      "cuanbot",
	}
}

// defaultListenAddr honors the PORT variable injected by PaaS platforms
// such as Render.
func defaultListenAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

// FromEnv overlays environment variables onto cfg and returns the result.
func FromEnv(cfg AppConfig) AppConfig {
	cfg.DataDir = ParseString("CUANBOT_DATA", cfg.DataDir)
	cfg.AssetsDir = ParseString("CUANBOT_ASSETS", cfg.AssetsDir)
	cfg.ListenAddr = ParseString("CUANBOT_LISTEN", cfg.ListenAddr)
	cfg.PublicURL = ParseString("CUANBOT_PUBLIC_URL", cfg.PublicURL)
	cfg.APIToken = ParseString("CUANBOT_API_TOKEN", cfg.APIToken)

	cfg.OpenAIBase = ParseString("CUANBOT_OPENAI_BASE", cfg.OpenAIBase)
	cfg.OpenAIKey = ParseString("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIModel = ParseString("CUANBOT_OPENAI_MODEL", cfg.OpenAIModel)

	cfg.ElevenLabsBase = ParseString("CUANBOT_ELEVENLABS_BASE", cfg.ElevenLabsBase)
	cfg.ElevenLabsKey = ParseString("ELEVENLABS_API_KEY", cfg.ElevenLabsKey)

	cfg.TelegramBase = ParseString("CUANBOT_TELEGRAM_BASE", cfg.TelegramBase)
	cfg.TelegramToken = ParseString("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.TelegramChatID = ParseString("TELEGRAM_CHAT_ID", cfg.TelegramChatID)

	cfg.TrendsBase = ParseString("CUANBOT_TRENDS_BASE", cfg.TrendsBase)
	cfg.TokboardBase = ParseString("CUANBOT_TOKBOARD_BASE", cfg.TokboardBase)
	cfg.TrendsTTL = ParseDuration("CUANBOT_TRENDS_TTL", cfg.TrendsTTL)
	cfg.TrendsGeo = ParseString("CUANBOT_TRENDS_GEO", cfg.TrendsGeo)

	cfg.RedisAddr = ParseString("CUANBOT_REDIS_ADDR", cfg.RedisAddr)

	cfg.Timezone = ParseString("CUANBOT_TZ", cfg.Timezone)
	cfg.ActiveHours = ParseString("CUANBOT_ACTIVE_HOURS", cfg.ActiveHours)
	cfg.SchedulesPerDay = ParseInt("CUANBOT_SCHEDULES_PER_DAY", cfg.SchedulesPerDay)

	cfg.FFmpegPath = ParseString("CUANBOT_FFMPEG", cfg.FFmpegPath)
	cfg.FFprobePath = ParseString("CUANBOT_FFPROBE", cfg.FFprobePath)
	cfg.Watermark = ParseString("CUANBOT_WATERMARK", cfg.Watermark)

	cfg.VideoQuotaMB = ParseInt("CUANBOT_VIDEO_QUOTA_MB", cfg.VideoQuotaMB)
	cfg.KeepVideos = ParseInt("CUANBOT_KEEP_VIDEOS", cfg.KeepVideos)
	cfg.LogQuotaMB = ParseInt("CUANBOT_LOG_QUOTA_MB", cfg.LogQuotaMB)
	cfg.KeepLogs = ParseInt("CUANBOT_KEEP_LOGS", cfg.KeepLogs)

	cfg.HTTPTimeout = ParseDuration("CUANBOT_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.RetryAttempts = ParseInt("CUANBOT_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryWait = ParseDuration("CUANBOT_RETRY_WAIT", cfg.RetryWait)

	cfg.LogLevel = ParseString("CUANBOT_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("LOG_SERVICE", cfg.LogService)

	return cfg
}
