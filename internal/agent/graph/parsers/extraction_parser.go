package parsers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leadline-ai/engine/internal/agent/model"
	errx "github.com/leadline-ai/engine/internal/core/error"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 128 * 1024 // 128KB
	maxRecords    = 200        // maximum number of records to process
	maxTupleLen   = 4 * 1024   // 4KB per tuple
	maxErrSnippet = 200        // limit error snippet size
)

// Extraction is the parsed structured output of the extraction model.
type Extraction struct {
	Profile model.CandidateProfile
	// ParsingMetadata records truncation, capping and per-record errors.
	ParsingMetadata map[string]any
}

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	// enforce a sane upper bound per record
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	// remove the outermost parens only
	inner := s[1 : len(s)-1]
	parts := strings.SplitN(inner, tupDelim, 5)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.TrimSpace(parts[0]), Parts: parts}, nil
}

func mustValidUTF8(s string, name string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s invalid utf8", name)
	}
	return nil
}

func parseFloat(s string, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse: %w", name, err)
	}
	return v, nil
}

func parseFloatInRange(s, name string, min, max float64) (float64, error) {
	v, err := parseFloat(s, name)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s invalid number", name)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return v, nil
}

// ParseExtraction parses the delimiter-tuple output of the extraction model
// into a CandidateProfile. Individually malformed records are skipped and
// noted; the call only fails when no usable signal was found at all.
func ParseExtraction(content string) (ex *Extraction, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "extraction_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("extraction parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			ex = nil
		}
	}()

	// content length guard
	truncated := false
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "extraction_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		truncated = true
	}
	// honor completion delimiter if present
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	ex = &Extraction{
		Profile: model.CandidateProfile{
			ExtractedAt: time.Now().UTC(),
		},
		ParsingMetadata: map[string]any{},
	}

	addErr := func(msg string) {
		v, _ := ex.ParsingMetadata["parsing_errors"].([]string)
		v = append(v, msg)
		ex.ParsingMetadata["parsing_errors"] = v
	}

	if truncated {
		ex.ParsingMetadata["truncated"] = true
	}

	var (
		explicitConfidence *float64
		tupleConfidences   []float64
		parsedRecords      int
	)

	records := strings.Split(content, recDelim)
	processed := 0
	for _, rec := range records {
		if processed >= maxRecords {
			ex.ParsingMetadata["records_capped"] = true
			logx.Warn().
				Str("component", "extraction_parser").
				Int("max_records", maxRecords).
				Msg("record processing capped")
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" || rec == endDelim {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "name":
			if len(rt.Parts) < 3 {
				addErr("name: insufficient parts")
				continue
			}
			full := strings.TrimSpace(rt.Parts[1])
			if err := mustValidUTF8(full, "name.value"); err != nil || full == "" {
				addErr("name: invalid value utf8")
				continue
			}
			conf, err := parseFloatInRange(rt.Parts[2], "name.confidence", 0, 1)
			if err != nil {
				addErr("name: invalid confidence")
				continue
			}
			ex.Profile.FullName = full
			tupleConfidences = append(tupleConfidences, conf)
			parsedRecords++

		case "experience":
			if len(rt.Parts) < 3 {
				addErr("experience: insufficient parts")
				continue
			}
			years, err := parseFloatInRange(rt.Parts[1], "experience.years", 0, 80)
			if err != nil {
				addErr("experience: invalid years")
				continue
			}
			conf, err := parseFloatInRange(rt.Parts[2], "experience.confidence", 0, 1)
			if err != nil {
				addErr("experience: invalid confidence")
				continue
			}
			ex.Profile.YearsExperience = &years
			tupleConfidences = append(tupleConfidences, conf)
			parsedRecords++

		case "skill":
			if len(rt.Parts) < 4 {
				addErr("skill: insufficient parts")
				continue
			}
			skillName := strings.ToLower(strings.TrimSpace(rt.Parts[1]))
			if err := mustValidUTF8(skillName, "skill.name"); err != nil || skillName == "" {
				addErr("skill: invalid name utf8")
				continue
			}
			kind, ok := parseSkillKind(rt.Parts[2])
			if !ok {
				addErr("skill: unknown kind")
				continue
			}
			conf, err := parseFloatInRange(rt.Parts[3], "skill.confidence", 0, 1)
			if err != nil {
				addErr("skill: invalid confidence")
				continue
			}
			ex.Profile.Skills = append(ex.Profile.Skills, model.Skill{
				Name:   skillName,
				Kind:   kind,
				Weight: conf,
			})
			tupleConfidences = append(tupleConfidences, conf)
			parsedRecords++

		case "training":
			if len(rt.Parts) < 3 {
				addErr("training: insufficient parts")
				continue
			}
			willing := strings.TrimSpace(rt.Parts[1]) == "1"
			conf, err := parseFloatInRange(rt.Parts[2], "training.confidence", 0, 1)
			if err != nil {
				addErr("training: invalid confidence")
				continue
			}
			ex.Profile.WillingToTrain = &willing
			tupleConfidences = append(tupleConfidences, conf)
			parsedRecords++

		case "confidence":
			if len(rt.Parts) < 2 {
				addErr("confidence: insufficient parts")
				continue
			}
			conf, err := parseFloatInRange(rt.Parts[1], "confidence.value", 0, 1)
			if err != nil {
				addErr("confidence: invalid value")
				continue
			}
			explicitConfidence = &conf
			parsedRecords++

		default:
			// ignore unknown type but record a hint
			addErr("unknown tuple type")
		}
	}

	if parsedRecords == 0 {
		return nil, fmt.Errorf("no parseable extraction records")
	}

	// Overall confidence: the model's explicit value wins, otherwise the
	// mean of per-tuple confidences.
	switch {
	case explicitConfidence != nil:
		ex.Profile.Confidence = *explicitConfidence
	case len(tupleConfidences) > 0:
		sum := 0.0
		for _, c := range tupleConfidences {
			sum += c
		}
		ex.Profile.Confidence = sum / float64(len(tupleConfidences))
	}

	return ex, nil
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

func parseSkillKind(s string) (model.SkillKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "technical", "tech":
		return model.SkillTechnical, true
	case "soft":
		return model.SkillSoft, true
	default:
		return "", false
	}
}
