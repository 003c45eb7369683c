package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a download name of the form
// resumes_{mode}_{request_id}_{YYYY-MM-DD}.{ext}.
func BuildFilename(mode, requestID, ext string, now time.Time) string {
	parts := []string{"resumes", SanitizeFilename(mode)}
	if id := SanitizeFilename(requestID); id != "" {
		parts = append(parts, id)
	}
	parts = append(parts, now.Format("2006-01-02"))
	return fmt.Sprintf("%s.%s", strings.Join(parts, "_"), ext)
}
