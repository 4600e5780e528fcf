// SPDX-License-Identifier: MIT

// Package jobs orchestrates one full production cycle: topic, caption,
// narration, video composition, engagement snapshot, analytics, notification.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/techcuan/cuanbot/internal/assets"
	"github.com/techcuan/cuanbot/internal/elevenlabs"
	"github.com/techcuan/cuanbot/internal/log"
	"github.com/techcuan/cuanbot/internal/media"
	"github.com/techcuan/cuanbot/internal/metrics"
	"github.com/techcuan/cuanbot/internal/openai"
	"github.com/techcuan/cuanbot/internal/tiktok"
)

// ErrBusy is returned when a cycle is requested while one is running.
var ErrBusy = errors.New("production cycle already running")

// Caption suffix appended to every caption, AI-disclosure per the channel's
// house rules.
const captionSuffix = "#KontenDibuatDenganAI"

var interactionSuggestions = []string{
	"Tonton 5-10 video di For You Page.",
	"Sukai 2-3 video terkait teknologi.",
	"Komentari 1-2 video dengan 'Keren!'",
	"Share 1 video ke WhatsApp.",
}

// Topics picks a topic to produce for.
type Topics interface {
	Pick(ctx context.Context) string
}

// Captioner generates narration text and hashtags.
type Captioner interface {
	Caption(ctx context.Context, topic string) (string, error)
	Hashtags(ctx context.Context, topic string) (string, error)
}

// Speech renders narration audio to a file.
type Speech interface {
	Synthesize(ctx context.Context, text, outPath string) (elevenlabs.Voice, error)
}

// VideoRunner executes an ffmpeg invocation.
type VideoRunner interface {
	Run(ctx context.Context, args []string) error
}

// DurationProber reads a media file's duration in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// AssetPicker serves random backgrounds and music beds.
type AssetPicker interface {
	RandomBackground() (string, bool)
	RandomMusic() (string, bool)
}

// EngagementScraper fetches public counters for a published page.
type EngagementScraper interface {
	Engagement(ctx context.Context, url string) (tiktok.Stats, error)
}

// Recorder persists performance rows.
type Recorder interface {
	Record(ctx context.Context, title, hashtags string, stats tiktok.Stats) error
	ExportCSV(ctx context.Context, csvPath string) error
}

// Notifier delivers operator messages.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Deps wires the pipeline stages together.
type Deps struct {
	Topics     Topics
	Captions   Captioner
	Speech     Speech
	Runner     VideoRunner
	Prober     DurationProber
	Assets     AssetPicker
	Engagement EngagementScraper
	Analytics  Recorder
	Notify     Notifier

	DataDir   string
	PublicURL string
	Watermark string

	VideoQuota assets.Quota
	LogQuota   assets.Quota

	// Rand drives style and suggestion picks; nil uses the global source.
	Rand *rand.Rand
}

// Status is the last (or current) cycle's outcome, served by the API.
type Status struct {
	JobID      string       `json:"job_id"`
	Running    bool         `json:"running"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitempty"`
	Topic      string       `json:"topic,omitempty"`
	Caption    string       `json:"caption,omitempty"`
	Voice      string       `json:"voice,omitempty"`
	VideoURL   string       `json:"video_url,omitempty"`
	Engagement tiktok.Stats `json:"engagement"`
	Error      string       `json:"error,omitempty"`
}

// Producer runs production cycles, one at a time.
type Producer struct {
	deps Deps

	mu      sync.Mutex
	running bool
	last    Status
}

// NewProducer creates a producer over deps.
func NewProducer(deps Deps) *Producer {
	return &Producer{deps: deps}
}

// Busy reports whether a cycle is currently running.
func (p *Producer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status returns the last known cycle state.
func (p *Producer) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Produce runs one full cycle. Concurrent calls beyond the first return
// ErrBusy; the pipeline holds exclusive use of ffmpeg and the temp dirs.
func (p *Producer) Produce(ctx context.Context) (Status, error) {
	// A caller that already minted a job ID (the API handler) keeps it.
	jobID := log.JobIDFromContext(ctx)
	if jobID == "" {
		jobID = uuid.New().String()
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return Status{}, ErrBusy
	}
	p.running = true
	p.last = Status{JobID: jobID, Running: true, StartedAt: time.Now()}
	p.mu.Unlock()

	ctx = log.ContextWithJobID(ctx, jobID)
	logger := log.WithComponentFromContext(ctx, "jobs")

	start := time.Now()
	status, err := p.run(ctx, jobID, logger)
	status.JobID = jobID
	status.Running = false
	status.StartedAt = start
	status.FinishedAt = time.Now()

	metrics.ObserveCycleDuration(time.Since(start).Seconds())
	if err != nil {
		status.Error = err.Error()
		metrics.IncCycle("failure")
		logger.Error().Err(err).Str("event", "cycle.failed").Msg("production cycle failed")
		p.notify(ctx, fmt.Sprintf("❌ Gagal proses konten: %s", err))
	} else {
		metrics.IncCycle("success")
		logger.Info().
			Str("event", "cycle.done").
			Str("topic", status.Topic).
			Str(log.FieldVideoURL, status.VideoURL).
			Dur("elapsed", time.Since(start)).
			Msg("production cycle finished")
	}

	p.mu.Lock()
	p.running = false
	p.last = status
	p.mu.Unlock()

	return status, err
}

func (p *Producer) run(ctx context.Context, jobID string, logger *zerolog.Logger) (Status, error) {
	var status Status

	// Housekeeping before each cycle keeps the disk inside its quotas.
	if err := p.stage(ctx, "quota", func(ctx context.Context) error {
		if _, err := p.deps.VideoQuota.Enforce(ctx); err != nil {
			return fmt.Errorf("video quota: %w", err)
		}
		if _, err := p.deps.LogQuota.Enforce(ctx); err != nil {
			return fmt.Errorf("log quota: %w", err)
		}
		return nil
	}); err != nil {
		return status, err
	}

	var topic string
	_ = p.stage(ctx, "trends", func(ctx context.Context) error {
		topic = p.deps.Topics.Pick(ctx)
		return nil
	})
	status.Topic = topic
	logger.Info().Str("event", "cycle.start").Str("topic", topic).Msg("starting production cycle")

	// Caption and hashtags degrade to deterministic fallbacks rather than
	// aborting the cycle.
	var narration, hashtags string
	_ = p.stage(ctx, "caption", func(ctx context.Context) error {
		var err error
		narration, err = p.deps.Captions.Caption(ctx, topic)
		if err != nil {
			logger.Warn().Err(err).Str("event", "caption.fallback").Msg("caption generation failed, using fallback")
			narration = openai.FallbackCaption(topic)
		}
		hashtags, err = p.deps.Captions.Hashtags(ctx, topic)
		if err != nil {
			hashtags = openai.FallbackHashtags
		}
		return nil
	})
	caption := fmt.Sprintf("%s\n%s %s", narration, hashtags, captionSuffix)
	status.Caption = caption

	base := videoBaseName(topic, jobID)
	audioPath := filepath.Join(p.deps.DataDir, "temp_audio", base+".mp3")
	videoPath := filepath.Join(p.deps.DataDir, "videos", base+".mp4")
	defer p.cleanupTemp(ctx, audioPath)

	if err := p.stage(ctx, "tts", func(ctx context.Context) error {
		voice, err := p.deps.Speech.Synthesize(ctx, narration, audioPath)
		if err != nil {
			return fmt.Errorf("synthesize narration: %w", err)
		}
		status.Voice = voice.Label
		return nil
	}); err != nil {
		return status, err
	}

	var duration float64
	if err := p.stage(ctx, "probe", func(ctx context.Context) error {
		var err error
		duration, err = p.deps.Prober.Duration(ctx, audioPath)
		if err != nil {
			return fmt.Errorf("probe narration: %w", err)
		}
		return nil
	}); err != nil {
		return status, err
	}

	if err := p.stage(ctx, "compose", func(ctx context.Context) error {
		spec := p.buildSpec(topic, caption, audioPath, videoPath, duration)
		if err := p.deps.Runner.Run(ctx, media.BuildArgs(spec)); err != nil {
			return fmt.Errorf("compose video: %w", err)
		}
		return nil
	}); err != nil {
		return status, err
	}

	videoURL := strings.TrimRight(p.deps.PublicURL, "/") + "/videos/" + filepath.Base(videoPath)
	status.VideoURL = videoURL

	// Engagement is best-effort: a fresh page often has no counters yet.
	var stats tiktok.Stats
	_ = p.stage(ctx, "engagement", func(ctx context.Context) error {
		var err error
		stats, err = p.deps.Engagement.Engagement(ctx, videoURL)
		if err != nil {
			logger.Warn().Err(err).Str("event", "engagement.unavailable").Msg("engagement scrape failed, recording zeros")
			stats = tiktok.Stats{}
		}
		return nil
	})
	status.Engagement = stats
	metrics.RecordEngagementViews(stats.Views)

	if err := p.stage(ctx, "record", func(ctx context.Context) error {
		if err := p.deps.Analytics.Record(ctx, topic, hashtags, stats); err != nil {
			return fmt.Errorf("record analytics: %w", err)
		}
		csvPath := filepath.Join(p.deps.DataDir, "analytics.csv")
		if err := p.deps.Analytics.ExportCSV(ctx, csvPath); err != nil {
			logger.Warn().Err(err).Str("event", "analytics.export_failed").Msg("csv export failed")
		}
		return nil
	}); err != nil {
		return status, err
	}

	p.notify(ctx, p.readyMessage(videoURL, caption, stats))
	return status, nil
}

// buildSpec assembles the composition spec with randomized presentation.
func (p *Producer) buildSpec(topic, caption, audioPath, videoPath string, duration float64) media.Spec {
	background, haveBackground := p.deps.Assets.RandomBackground()
	music, _ := p.deps.Assets.RandomMusic()

	spec := media.Spec{
		NarrationPath: audioPath,
		MusicPath:     music,
		Title:         stripHashtags(topic),
		Subtitle:      firstLine(caption),
		Watermark:     p.deps.Watermark,
		Style:         media.RandomStyle(p.deps.Rand),
		Duration:      duration,
		OutPath:       videoPath,
	}
	if haveBackground {
		spec.BackgroundPath = background
		spec.BackgroundIsImage = isImage(background)
	}
	return spec
}

func (p *Producer) readyMessage(videoURL, caption string, stats tiktok.Stats) string {
	// Truncate by runes; a byte cut could split an emoji and Telegram
	// rejects invalid UTF-8.
	head := caption
	if runes := []rune(head); len(runes) > 90 {
		head = string(runes[:90])
	}
	suggestion := interactionSuggestions[p.intn(len(interactionSuggestions))]
	return fmt.Sprintf(
		"📹 Video siap diunggah!\nLink: %s\nCaption: %s\nEngagement Awal: views=%d likes=%d comments=%d shares=%d\nSaran Interaksi:\n- %s\nTasker akan mengunggah otomatis ke TikTok!",
		videoURL, head, stats.Views, stats.Likes, stats.Comments, stats.Shares, suggestion)
}

func (p *Producer) notify(ctx context.Context, text string) {
	if p.deps.Notify == nil {
		return
	}
	if err := p.deps.Notify.Send(ctx, text); err != nil {
		log.WithComponentFromContext(ctx, "jobs").Warn().
			Err(err).
			Str("event", "notify.failed").
			Msg("telegram notification failed")
	}
}

// cleanupTemp removes the narration audio; the video stays on disk until the
// quota evicts it, since Tasker pulls it over HTTP after the notification.
func (p *Producer) cleanupTemp(ctx context.Context, audioPath string) {
	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		log.WithComponentFromContext(ctx, "jobs").Warn().
			Err(err).
			Str(log.FieldPath, audioPath).
			Msg("temp audio cleanup failed")
	}
}

func (p *Producer) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveStageDuration(name, time.Since(start).Seconds())
	if err != nil {
		metrics.IncCycleFailure(name)
	}
	return err
}

func (p *Producer) intn(n int) int {
	if p.deps.Rand != nil {
		return p.deps.Rand.Intn(n)
	}
	return rand.Intn(n)
}

// stripHashtags removes trailing hashtag words so the on-video title stays
// readable.
func stripHashtags(topic string) string {
	words := strings.Fields(topic)
	var kept []string
	for _, w := range words {
		if strings.HasPrefix(w, "#") {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return topic
	}
	return strings.Join(kept, " ")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
