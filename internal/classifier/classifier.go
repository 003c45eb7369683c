// Package classifier decides which extraction strategy applies to an uploaded file.
package classifier

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"resumeanalyzer/internal/domain"
)

// sniffLimit is how many leading bytes are inspected for magic numbers.
const sniffLimit = 3072

// Classify returns the FileKind for a document. The file extension decides
// when it is a supported one; otherwise the leading bytes are sniffed.
func Classify(filename string, data []byte) (domain.FileKind, error) {
	if kind, ok := domain.AllowedExtensions[extension(filename)]; ok {
		return kind, nil
	}

	ct := ContentType(data)
	if kind, ok := domain.AllowedContentTypes[ct]; ok {
		return kind, nil
	}

	return "", domain.NewExtractionError(domain.ExtractionUnsupportedFormat,
		fmt.Errorf("file %q has unsupported type %s", filename, ct))
}

// ContentType sniffs the MIME type from the leading bytes, normalised to one
// of the AllowedContentTypes keys when a parent type matches.
func ContentType(data []byte) string {
	if len(data) > sniffLimit {
		data = data[:sniffLimit]
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for ct := range domain.AllowedContentTypes {
			if m.Is(ct) {
				return ct
			}
		}
	}
	return detected.String()
}

func extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
