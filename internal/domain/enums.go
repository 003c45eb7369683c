package domain

// FileKind is the extraction strategy chosen for an uploaded document.
type FileKind string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindImage FileKind = "image"
)

// AllowedExtensions maps file extensions (without dot) to FileKind.
var AllowedExtensions = map[string]FileKind{
	"pdf":  FileKindPDF,
	"png":  FileKindImage,
	"jpg":  FileKindImage,
	"jpeg": FileKindImage,
	"tif":  FileKindImage,
	"tiff": FileKindImage,
	"bmp":  FileKindImage,
	"webp": FileKindImage,
}

// AllowedContentTypes maps sniffed MIME content types to FileKind.
var AllowedContentTypes = map[string]FileKind{
	"application/pdf": FileKindPDF,
	"image/png":       FileKindImage,
	"image/jpeg":      FileKindImage,
	"image/tiff":      FileKindImage,
	"image/bmp":       FileKindImage,
	"image/webp":      FileKindImage,
}

// Mode selects how a batch is evaluated.
type Mode string

const (
	ModeRanking Mode = "ranking"
	ModeSummary Mode = "summary"
)

// Source records which extraction tier produced a document's text.
type Source string

const (
	SourceNative Source = "native"
	SourceOCR    Source = "ocr"
)

// DocumentState tracks a single document through the analysis pipeline.
type DocumentState string

const (
	StatePending          DocumentState = "pending"
	StateExtracting       DocumentState = "extracting"
	StateExtracted        DocumentState = "extracted"
	StateExtractionFailed DocumentState = "extraction_failed"
	StateEvaluating       DocumentState = "evaluating"
	StateEvaluated        DocumentState = "evaluated"
	StateEvalFailed       DocumentState = "eval_failed"
)

var stateTransitions = map[DocumentState][]DocumentState{
	StatePending:    {StateExtracting},
	StateExtracting: {StateExtracted, StateExtractionFailed},
	StateExtracted:  {StateEvaluating},
	StateEvaluating: {StateEvaluated, StateEvalFailed},
}

// CanTransition reports whether a document may move from s to next.
func (s DocumentState) CanTransition(next DocumentState) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s DocumentState) IsTerminal() bool {
	return s == StateEvaluated || s == StateExtractionFailed || s == StateEvalFailed
}

// Succeeded reports whether the document finished with a result.
func (s DocumentState) Succeeded() bool {
	return s == StateEvaluated
}

// ExtractionCode classifies why text could not be produced for a document.
type ExtractionCode string

const (
	ExtractionCorruptFile       ExtractionCode = "CORRUPT_FILE"
	ExtractionNoPages           ExtractionCode = "NO_PAGES"
	ExtractionEmptyDocument     ExtractionCode = "EMPTY_DOCUMENT"
	ExtractionUnsupportedFormat ExtractionCode = "UNSUPPORTED_FORMAT"
)

// LLMCode classifies a failed interaction with the generative model.
type LLMCode string

const (
	LLMTimeout         LLMCode = "TIMEOUT"
	LLMRateLimited     LLMCode = "RATE_LIMITED"
	LLMNetworkError    LLMCode = "NETWORK_ERROR"
	LLMServiceError    LLMCode = "SERVICE_ERROR"
	LLMMalformedJSON   LLMCode = "MALFORMED_JSON"
	LLMSchemaViolation LLMCode = "SCHEMA_VIOLATION"
)

// LogStatus is the outcome recorded on an audit entry.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)
