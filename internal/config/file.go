package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration with precedence ENV > file > defaults.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a loader for the optional YAML config file at path.
// An empty path skips the file layer entirely.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load builds the effective configuration and validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.path != "" {
		fileCfg, err := readFile(l.path)
		if err != nil {
			return AppConfig{}, err
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg = FromEnv(cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func readFile(path string) (AppConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's --config flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("config file %q does not exist: %w", path, err)
		}
		return AppConfig{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// merge overlays non-zero file values onto the defaults.
func merge(base, file AppConfig) AppConfig {
	out := base
	if file.DataDir != "" {
		out.DataDir = file.DataDir
	}
	if file.AssetsDir != "" {
		out.AssetsDir = file.AssetsDir
	}
	if file.ListenAddr != "" {
		out.ListenAddr = file.ListenAddr
	}
	if file.PublicURL != "" {
		out.PublicURL = file.PublicURL
	}
	if file.APIToken != "" {
		out.APIToken = file.APIToken
	}
	if file.OpenAIBase != "" {
		out.OpenAIBase = file.OpenAIBase
	}
	if file.OpenAIModel != "" {
		out.OpenAIModel = file.OpenAIModel
	}
	if file.ElevenLabsBase != "" {
		out.ElevenLabsBase = file.ElevenLabsBase
	}
	if file.TelegramBase != "" {
		out.TelegramBase = file.TelegramBase
	}
	if file.TelegramChatID != "" {
		out.TelegramChatID = file.TelegramChatID
	}
	if file.TrendsBase != "" {
		out.TrendsBase = file.TrendsBase
	}
	if file.TokboardBase != "" {
		out.TokboardBase = file.TokboardBase
	}
	if file.TrendsTTL != 0 {
		out.TrendsTTL = file.TrendsTTL
	}
	if file.TrendsGeo != "" {
		out.TrendsGeo = file.TrendsGeo
	}
	if file.RedisAddr != "" {
		out.RedisAddr = file.RedisAddr
	}
	if file.Timezone != "" {
		out.Timezone = file.Timezone
	}
	if file.ActiveHours != "" {
		out.ActiveHours = file.ActiveHours
	}
	if file.SchedulesPerDay != 0 {
		out.SchedulesPerDay = file.SchedulesPerDay
	}
	if file.FFmpegPath != "" {
		out.FFmpegPath = file.FFmpegPath
	}
	if file.FFprobePath != "" {
		out.FFprobePath = file.FFprobePath
	}
	if file.Watermark != "" {
		out.Watermark = file.Watermark
	}
	if file.VideoQuotaMB != 0 {
		out.VideoQuotaMB = file.VideoQuotaMB
	}
	if file.KeepVideos != 0 {
		out.KeepVideos = file.KeepVideos
	}
	if file.LogQuotaMB != 0 {
		out.LogQuotaMB = file.LogQuotaMB
	}
	if file.KeepLogs != 0 {
		out.KeepLogs = file.KeepLogs
	}
	if file.HTTPTimeout != 0 {
		out.HTTPTimeout = file.HTTPTimeout
	}
	if file.RetryAttempts != 0 {
		out.RetryAttempts = file.RetryAttempts
	}
	if file.RetryWait != 0 {
		out.RetryWait = file.RetryWait
	}
	if file.LogLevel != "" {
		out.LogLevel = file.LogLevel
	}
	if file.LogService != "" {
		out.LogService = file.LogService
	}
	return out
}
