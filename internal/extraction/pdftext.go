package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"resumeanalyzer/internal/domain"
)

// ErrUnsupportedPDF means the file is a readable PDF whose text layer cannot
// be read natively (encrypted, for instance). Callers fall back to OCR.
var ErrUnsupportedPDF = errors.New("pdf text layer is not readable")

// wordGapKerning is the TJ displacement, in thousandths of an em, treated as a space.
const wordGapKerning = 200

var disableConfigDir sync.Once

// PDFTextReader reads embedded page text with pdfcpu.
type PDFTextReader struct{}

// NewPDFTextReader returns a NativeTextReader backed by pdfcpu.
func NewPDFTextReader() *PDFTextReader {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFTextReader{}
}

// ReadPages returns one raw string per page in document order. Unreadable
// files fail with CORRUPT_FILE; a page whose content stream cannot be read
// yields an empty string.
func (r *PDFTextReader) ReadPages(ctx context.Context, data []byte) (pages []string, err error) {
	defer func() {
		// pdfcpu panics on some malformed cross reference tables.
		if rec := recover(); rec != nil {
			pages = nil
			err = domain.NewExtractionError(domain.ExtractionCorruptFile, fmt.Errorf("pdfcpu panic: %v", rec))
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedPDF, err)
		}
		return nil, domain.NewExtractionError(domain.ExtractionCorruptFile, fmt.Errorf("pdfcpu read: %w", err))
	}
	if pdfCtx.PageCount == 0 {
		return nil, domain.NewExtractionError(domain.ExtractionNoPages, errors.New("pdf has no pages"))
	}

	pages = make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, extractPageText(pdfCtx, pageNr))
	}
	return pages, nil
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

// extractPageText extracts text from a single PDF page via pdfcpu content stream.
func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// textFromContentStream walks a page content stream and collects the strings
// shown by the Tj, TJ, ' and " operators. Positioning operators become line
// breaks or spaces.
func textFromContentStream(data []byte) string {
	var (
		sb       strings.Builder
		operands []string
		inArray  bool
		array    strings.Builder
	)

	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, next := readLiteralString(data, i)
			i = next
			if inArray {
				array.WriteString(s)
			} else {
				operands = append(operands, s)
			}
		case c == '<' && i+1 < len(data) && data[i+1] != '<':
			s, next, ok := readHexString(data, i)
			if !ok {
				return sb.String()
			}
			i = next
			if inArray {
				array.WriteString(s)
			} else {
				operands = append(operands, s)
			}
		case c == '[':
			inArray = true
			array.Reset()
			i++
		case c == ']':
			inArray = false
			operands = append(operands, array.String())
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case isDelimiterSpace(c):
			i++
		default:
			start := i
			for i < len(data) && !isDelimiterSpace(data[i]) && !strings.ContainsRune("()<>[]/%", rune(data[i])) {
				i++
			}
			if i == start {
				i++
				continue
			}
			tok := string(data[start:i])
			if inArray {
				// Large negative kerning inside TJ arrays usually separates words.
				if v, err := strconv.ParseFloat(tok, 64); err == nil && v <= -wordGapKerning {
					array.WriteByte(' ')
				}
				continue
			}
			switch tok {
			case "Tj", "TJ":
				for _, s := range operands {
					sb.WriteString(s)
				}
			case "'", "\"":
				newline()
				for _, s := range operands {
					sb.WriteString(s)
				}
			case "Td", "TD", "T*", "Tm", "ET":
				newline()
			}
			if !isNumber(tok) {
				operands = operands[:0]
			}
		}
	}
	return sb.String()
}

// readLiteralString decodes a balanced (...) literal starting at data[start]
// and returns the text plus the index just past the closing parenthesis.
func readLiteralString(data []byte, start int) (string, int) {
	var buf []byte
	depth := 0
	i := start
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b', 'f', '\n':
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					buf = append(buf, byte(val))
				} else {
					buf = append(buf, e)
				}
			}
		case c == '(':
			if depth > 0 {
				buf = append(buf, c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return decodePDFText(buf), i + 1
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
		i++
	}
	return decodePDFText(buf), i
}

// readHexString decodes a <...> hex literal starting at data[start] and
// returns the text plus the index just past the closing bracket. Whitespace
// between digits is ignored and an odd final digit is padded with zero.
// Strings holding two-byte glyph ids (composite fonts) decode to "".
func readHexString(data []byte, start int) (string, int, bool) {
	end := bytes.IndexByte(data[start:], '>')
	if end < 0 {
		return "", len(data), false
	}
	end += start

	var (
		buf  []byte
		hi   byte
		half bool
	)
	for _, c := range data[start+1 : end] {
		v, ok := hexNibble(c)
		if !ok {
			continue
		}
		if half {
			buf = append(buf, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		buf = append(buf, hi<<4)
	}

	if !hasUTF16BOM(buf) && hasControlBytes(buf) {
		return "", end + 1, true
	}
	return decodePDFText(buf), end + 1, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF
}

func hasControlBytes(b []byte) bool {
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return true
		}
	}
	return false
}

// decodePDFText converts a PDF text string to UTF-8. Strings starting with
// the UTF-16BE byte order mark are decoded as such, everything else is
// treated as PDFDocEncoding, which matches Latin-1 for printable text.
func decodePDFText(b []byte) string {
	if hasUTF16BOM(b) {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func isDelimiterSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isNumber(tok string) bool {
	if tok == "" {
		return false
	}
	for i, r := range tok {
		if (r < '0' || r > '9') && r != '.' && !(i == 0 && (r == '-' || r == '+')) {
			return false
		}
	}
	return true
}
