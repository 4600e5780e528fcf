// SPDX-License-Identifier: MIT

package jobs

import (
	"crypto/sha1" // #nosec G505 -- name disambiguation, not security
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// slugify converts a topic into a filesystem-safe, human-readable slug.
// Example: "Tips cuan dengan AI #AICuan" → "tips-cuan-dengan-ai-aicuan"
func slugify(topic string) string {
	if topic == "" {
		return "video"
	}

	s := strings.ToLower(topic)

	var result strings.Builder
	lastWasDash := false
	for _, r := range s {
		if (unicode.IsLetter(r) && r < unicode.MaxASCII) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash {
			result.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.Trim(result.String(), "-")
	slug = regexp.MustCompile(`-+`).ReplaceAllString(slug, "-")

	if len(slug) > 40 {
		slug = slug[:40]
		slug = strings.TrimRight(slug, "-")
	}
	if slug == "" {
		return "video"
	}
	return slug
}

// videoBaseName combines the topic slug with a short job-ID hash so repeated
// topics never collide on disk.
func videoBaseName(topic, jobID string) string {
	sum := sha1.Sum([]byte(jobID)) // #nosec G401
	return slugify(topic) + "-" + hex.EncodeToString(sum[:])[:6]
}
