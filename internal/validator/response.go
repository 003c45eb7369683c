// Package validator turns raw model output into a typed EvaluationResult or
// a classified LLMError.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"resumeanalyzer/internal/domain"
	"resumeanalyzer/internal/prompt"
)

// ResponseValidator checks model responses against the per-mode JSON Schema.
type ResponseValidator struct {
	ranking *jsonschema.Schema
	summary *jsonschema.Schema
}

// New compiles the ranking and summary schemas.
func New() (*ResponseValidator, error) {
	ranking, err := compile("ranking.json", prompt.RankingSchema)
	if err != nil {
		return nil, err
	}
	summary, err := compile("summary.json", prompt.SummarySchema)
	if err != nil {
		return nil, err
	}
	return &ResponseValidator{ranking: ranking, summary: summary}, nil
}

func compile(name, schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return s, nil
}

type rankingPayload struct {
	Score         float64 `json:"score"`
	Justification string  `json:"justification"`
	Name          string  `json:"name"`
	Title         string  `json:"title"`
}

// Validate parses raw for the given mode. Parse failures are MALFORMED_JSON,
// missing or mistyped keys and out of range scores are SCHEMA_VIOLATION.
func (v *ResponseValidator) Validate(mode domain.Mode, filename, raw string) (*domain.EvaluationResult, error) {
	cleaned := StripFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, domain.NewLLMError(domain.LLMMalformedJSON, err)
	}

	switch mode {
	case domain.ModeRanking:
		if err := v.ranking.Validate(doc); err != nil {
			return nil, schemaViolation(err)
		}
		var p rankingPayload
		if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
			return nil, schemaViolation(err)
		}
		if strings.TrimSpace(p.Justification) == "" {
			return nil, schemaViolation(errors.New("justification is blank"))
		}
		return &domain.EvaluationResult{
			Mode: domain.ModeRanking,
			Ranking: &domain.RankingEntry{
				Filename:      filename,
				Score:         p.Score,
				Justification: strings.TrimSpace(p.Justification),
				Name:          strings.TrimSpace(p.Name),
				Title:         strings.TrimSpace(p.Title),
			},
		}, nil

	case domain.ModeSummary:
		if err := v.summary.Validate(doc); err != nil {
			return nil, schemaViolation(err)
		}
		var s domain.Summary
		if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
			return nil, schemaViolation(err)
		}
		normalizeSummary(&s)
		return &domain.EvaluationResult{Mode: domain.ModeSummary, Summary: &s}, nil

	default:
		return nil, fmt.Errorf("validator: unknown mode %q", mode)
	}
}

func schemaViolation(err error) error {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return domain.NewLLMError(domain.LLMSchemaViolation, errors.New(describe(ve)))
	}
	return domain.NewLLMError(domain.LLMSchemaViolation, err)
}

// describe flattens the leaf causes of a validation error into one line.
func describe(ve *jsonschema.ValidationError) string {
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}

func normalizeSummary(s *domain.Summary) {
	s.Name = strings.TrimSpace(s.Name)
	s.Title = strings.TrimSpace(s.Title)
	s.Summary = strings.TrimSpace(s.Summary)
	if s.Technologies == nil {
		s.Technologies = []string{}
	}
	if s.Experiences == nil {
		s.Experiences = []string{}
	}
	if s.Education == nil {
		s.Education = []string{}
	}
}

// StripFences removes markdown code fences and stray backticks around a
// response. The content inside is returned untouched.
func StripFences(raw string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if nl := strings.IndexByte(raw, '\n'); nl >= 0 && !strings.ContainsAny(raw[:nl], "{[") {
			// drop the info string, e.g. ```json
			raw = raw[nl+1:]
		} else {
			raw = strings.TrimPrefix(strings.TrimPrefix(raw, "JSON"), "json")
		}
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
