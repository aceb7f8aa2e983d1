package scorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sethvargo/go-retry"

	"github.com/leadline-ai/engine/internal/agent/graph/parsers"
	"github.com/leadline-ai/engine/internal/agent/graph/prompts"
	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// Scoring shape constants: how raw extraction signals map onto the capped
// sub-scores. Each weighted skill contributes up to pointsPerSkill; full
// experience credit is reached at yearsForFullCredit.
const (
	pointsPerSkill     = 10.0
	yearsForFullCredit = 8.0
)

// Scorer consumes accumulated conversation text and produces structured
// candidate attributes plus a composite 0-100 score with a tri-state status.
// Extract is idempotent given the same input content and model determinism
// settings; persistence is the caller's responsibility.
type Scorer struct {
	chatModel  einomodel.BaseChatModel
	modelName  string
	cfg        model.ScoringConfig
	required   []string
	timeout    time.Duration
	maxRetries int
}

func New(chatModel einomodel.BaseChatModel, modelCfg model.ExtractionModelConfig, cfg model.ScoringConfig) *Scorer {
	timeout := 30 * time.Second
	if d, err := time.ParseDuration(modelCfg.Timeout); err == nil && d > 0 {
		timeout = d
	}
	var required []string
	for _, f := range strings.Split(cfg.RequiredFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			required = append(required, f)
		}
	}
	return &Scorer{
		chatModel:  chatModel,
		modelName:  modelCfg.Model,
		cfg:        cfg,
		required:   required,
		timeout:    timeout,
		maxRetries: modelCfg.MaxRetries,
	}
}

// Extract runs the extraction model over the conversation text and scores
// the result. On model or parse failure it returns a degraded result
// (pending_review, all required fields missing) together with the error so
// the caller can flag the step; the lead is never left unscored silently.
func (s *Scorer) Extract(ctx context.Context, leadID, conversationText string) (model.QualificationResult, *model.CandidateProfile, model.Usage, error) {
	systemPrompt, err := prompts.RenderExtractionSystem(ctx)
	if err != nil {
		return s.fallbackResult(leadID), nil, model.Usage{}, err
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(conversationText),
	}

	out, err := s.generate(ctx, msgs)
	if err != nil {
		logx.Error().Err(err).Str("lead_id", leadID).Msg("extraction model call failed")
		return s.fallbackResult(leadID), nil, model.Usage{}, err
	}
	usage := model.UsageFromMessage(out, s.modelName)

	extraction, err := parsers.ParseExtraction(out.Content)
	if err != nil {
		logx.Warn().Err(err).Str("lead_id", leadID).Msg("unparseable extraction output")
		return s.fallbackResult(leadID), nil, usage, fmt.Errorf("parse extraction: %w", err)
	}

	profile := extraction.Profile
	result := s.Score(leadID, &profile)
	logx.Debug().
		Str("lead_id", leadID).
		Float64("overall_score", result.OverallScore).
		Str("status", string(result.Status)).
		Float64("confidence", result.ExtractionConfidence).
		Msg("lead scored")
	return result, &profile, usage, nil
}

func (s *Scorer) generate(ctx context.Context, msgs []*schema.Message) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out *schema.Message
	backoff := retry.WithMaxRetries(uint64(s.maxRetries), retry.NewExponential(300*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		m, err := s.chatModel.Generate(ctx, msgs)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = m
		return nil
	})
	return out, err
}

// Score computes the three capped sub-scores and applies the status policy.
func (s *Scorer) Score(leadID string, p *model.CandidateProfile) model.QualificationResult {
	var technical, soft float64
	for _, sk := range p.Skills {
		switch sk.Kind {
		case model.SkillTechnical:
			technical += pointsPerSkill * sk.Weight
		case model.SkillSoft:
			soft += pointsPerSkill * sk.Weight
		}
	}
	technical = clamp(technical, 0, s.cfg.TechnicalCap)
	soft = clamp(soft, 0, s.cfg.SoftSkillCap)

	var experience float64
	if p.YearsExperience != nil {
		experience = clamp(*p.YearsExperience/yearsForFullCredit, 0, 1) * s.cfg.ExperienceCap
	}

	overall := clamp(technical+soft+experience, 0, 100)
	missing := s.missingInfo(p)

	result := model.QualificationResult{
		LeadID:               leadID,
		TechnicalScore:       technical,
		SoftSkillScore:       soft,
		ExperienceScore:      experience,
		OverallScore:         overall,
		MissingInfo:          missing,
		ExtractionConfidence: p.Confidence,
		UpdatedAt:            time.Now().UTC(),
	}
	result.Status = s.decideStatus(overall, missing, p)
	return result
}

// decideStatus applies the threshold policy. A low-confidence extraction
// forces pending_review: a confident disqualification must not rest on a
// weak extraction.
func (s *Scorer) decideStatus(overall float64, missing []string, p *model.CandidateProfile) model.QualificationStatus {
	if p.Confidence < s.cfg.ConfidenceFloor {
		return model.StatusPendingReview
	}
	if overall < s.cfg.DisqualifyThreshold || s.hardDisqualified(p) {
		return model.StatusDisqualified
	}
	if overall >= s.cfg.QualifyThreshold && len(missing) == 0 {
		return model.StatusQualified
	}
	return model.StatusPendingReview
}

// hardDisqualified reports zero stated relevant experience with no
// willingness-to-train signal.
func (s *Scorer) hardDisqualified(p *model.CandidateProfile) bool {
	if p.YearsExperience == nil || *p.YearsExperience > 0 {
		return false
	}
	return p.WillingToTrain == nil || !*p.WillingToTrain
}

func (s *Scorer) missingInfo(p *model.CandidateProfile) []string {
	var missing []string
	for _, f := range s.required {
		switch f {
		case "full_name":
			if strings.TrimSpace(p.FullName) == "" {
				missing = append(missing, f)
			}
		case "years_experience":
			if p.YearsExperience == nil {
				missing = append(missing, f)
			}
		case "skills":
			if len(p.Skills) == 0 {
				missing = append(missing, f)
			}
		default:
			// unknown required fields can never be satisfied
			missing = append(missing, f)
		}
	}
	return missing
}

func (s *Scorer) fallbackResult(leadID string) model.QualificationResult {
	missing := make([]string, len(s.required))
	copy(missing, s.required)
	return model.QualificationResult{
		LeadID:      leadID,
		Status:      model.StatusPendingReview,
		MissingInfo: missing,
		UpdatedAt:   time.Now().UTC(),
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
