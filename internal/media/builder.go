// Package media composes vertical videos with ffmpeg: argument builders are
// pure functions, execution and probing live in the runner and prober.
package media

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	// Vertical TikTok canvas.
	Width  = 1080
	Height = 1920
	FPS    = 24
)

// Filter names applied to the background. "none" leaves colors untouched.
var ColorFilters = []string{"vintage", "neon", "cinematic", "none"}

var titleFonts = []string{"Arial", "Helvetica", "Impact", "Roboto", "Comic-Sans-MS", "Montserrat", "Poppins"}
var titleColors = []string{"white", "yellow", "cyan", "red", "lime", "orange"}

// Title y-position expressions; one is chosen per video so titles do not all
// sit in the same spot.
var titleAnimations = []string{
	"mod(t*50\\,h)",
	"h/2-text_h/2",
	"h/2+100*t/%DUR%",
}

// Style holds the per-video randomized presentation choices.
type Style struct {
	Font      string
	Color     string
	Animation int // index into titleAnimations
	Filter    string
}

// RandomStyle draws a presentation style. Pass a non-nil rng for determinism.
func RandomStyle(rng *rand.Rand) Style {
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	return Style{
		Font:      titleFonts[intn(len(titleFonts))],
		Color:     titleColors[intn(len(titleColors))],
		Animation: intn(len(titleAnimations)),
		Filter:    ColorFilters[intn(len(ColorFilters))],
	}
}

// Spec describes one composition job.
type Spec struct {
	// BackgroundPath is a video or still image; empty renders a black canvas.
	BackgroundPath    string
	BackgroundIsImage bool

	NarrationPath string
	MusicPath     string // optional bed, mixed at 0.2 volume

	Title     string
	Subtitle  string
	Watermark string

	Style    Style
	Duration float64 // seconds, from probing the narration

	OutPath string
}

// BuildArgs translates a Spec into a single ffmpeg invocation.
func BuildArgs(spec Spec) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// Input 0: background.
	switch {
	case spec.BackgroundPath == "":
		args = append(args, "-f", "lavfi", "-i",
			fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%.2f", Width, Height, FPS, spec.Duration))
	case spec.BackgroundIsImage:
		args = append(args, "-loop", "1", "-i", spec.BackgroundPath)
	default:
		args = append(args, "-stream_loop", "-1", "-i", spec.BackgroundPath)
	}

	// Input 1: narration; input 2: optional music bed.
	args = append(args, "-i", spec.NarrationPath)
	if spec.MusicPath != "" {
		args = append(args, "-stream_loop", "-1", "-i", spec.MusicPath)
	}

	args = append(args, "-filter_complex", buildFilterGraph(spec))
	args = append(args, "-map", "[vout]", "-map", "[aout]")
	args = append(args,
		"-t", fmt.Sprintf("%.2f", spec.Duration),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-r", fmt.Sprintf("%d", FPS),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		spec.OutPath,
	)
	return args
}

// buildFilterGraph assembles the video chain (scale, color filter, title,
// subtitle, watermark, fades) and the audio mix.
func buildFilterGraph(spec Spec) string {
	var video []string

	// Fill the vertical canvas regardless of source aspect.
	video = append(video, fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		Width, Height, Width, Height))

	if eq := colorFilterExpr(spec.Style.Filter); eq != "" {
		video = append(video, eq)
	}

	if spec.Title != "" {
		video = append(video, titleDrawtext(spec))
	}
	if spec.Subtitle != "" {
		video = append(video, subtitleDrawtext(spec.Subtitle))
	}
	if spec.Watermark != "" {
		video = append(video, watermarkDrawtext(spec.Watermark, spec.Duration))
	}

	fadeOutStart := spec.Duration - 0.5
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	video = append(video,
		"fade=t=in:st=0:d=0.5",
		fmt.Sprintf("fade=t=out:st=%.2f:d=0.5", fadeOutStart))

	graph := "[0:v]" + strings.Join(video, ",") + "[vout];"

	if spec.MusicPath != "" {
		graph += "[2:a]volume=0.2[bed];[1:a][bed]amix=inputs=2:duration=first[aout]"
	} else {
		graph += "[1:a]anull[aout]"
	}
	return graph
}

func colorFilterExpr(name string) string {
	switch name {
	case "vintage":
		return "eq=brightness=0.04:contrast=1.2:saturation=0.8"
	case "neon":
		return "eq=brightness=0.08:contrast=1.3:saturation=1.2"
	case "cinematic":
		return "eq=brightness=0.02:contrast=1.1:saturation=0.9"
	default:
		return ""
	}
}

func titleDrawtext(spec Spec) string {
	anim := titleAnimations[spec.Style.Animation%len(titleAnimations)]
	anim = strings.ReplaceAll(anim, "%DUR%", fmt.Sprintf("%.2f", spec.Duration))
	return fmt.Sprintf(
		"drawtext=text='%s':font=%s:fontsize=70:fontcolor=%s:x=(w-text_w)/2:y=%s:alpha='min(t/0.3\\,1)'",
		escapeDrawtext(WrapTitle(spec.Title, 20)), spec.Style.Font, spec.Style.Color, anim)
}

func subtitleDrawtext(text string) string {
	// Rune-based cut keeps multibyte captions valid UTF-8 for drawtext.
	if runes := []rune(text); len(runes) > 100 {
		text = string(runes[:100])
	}
	return fmt.Sprintf(
		"drawtext=text='%s':font=Arial:fontsize=30:fontcolor=white:box=1:boxcolor=black@0.8:x=(w-text_w)/2:y=h-100",
		escapeDrawtext(text))
}

// watermarkDrawtext pins the handle to the bottom corner, switching sides
// halfway through.
func watermarkDrawtext(text string, duration float64) string {
	return fmt.Sprintf(
		"drawtext=text='%s':font=Arial:fontsize=30:fontcolor=white:box=1:boxcolor=black@0.7:x='if(lt(t\\,%.2f)\\,w-text_w-20\\,20)':y=h-50:alpha='min(t/0.2\\,1)*0.7'",
		escapeDrawtext(text), duration/2)
}

// WrapTitle hard-wraps at word boundaries so 70pt text fits the canvas.
func WrapTitle(s string, width int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

// escapeDrawtext escapes the characters drawtext treats specially. The text
// sits inside single quotes, so an apostrophe closes the quote, escapes
// itself, and reopens.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `'\''`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}
