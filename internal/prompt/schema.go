package prompt

import "strconv"

// Score bounds for ranking mode, inclusive.
const (
	ScoreMin = 0
	ScoreMax = 100
)

// SummaryKeys are the keys every summary response must carry.
var SummaryKeys = []string{"name", "title", "technologies", "experiences", "education", "summary"}

// RankingSchema is the JSON Schema a ranking response must satisfy.
var RankingSchema = `{
  "type": "object",
  "required": ["score", "justification"],
  "properties": {
    "score": {"type": "number", "minimum": ` + strconv.Itoa(ScoreMin) + `, "maximum": ` + strconv.Itoa(ScoreMax) + `},
    "justification": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "title": {"type": "string"}
  }
}`

// SummarySchema is the JSON Schema a summary response must satisfy.
var SummarySchema = `{
  "type": "object",
  "required": ["name", "title", "technologies", "experiences", "education", "summary"],
  "properties": {
    "name": {"type": "string"},
    "title": {"type": "string"},
    "technologies": {"type": "array", "items": {"type": "string"}},
    "experiences": {"type": "array", "items": {"type": "string"}},
    "education": {"type": "array", "items": {"type": "string"}},
    "summary": {"type": "string"}
  }
}`
