package model

import (
	"time"
)

// QualificationStatus is the tri-state outcome of scoring a lead.
type QualificationStatus string

const (
	StatusQualified     QualificationStatus = "qualified"
	StatusDisqualified  QualificationStatus = "disqualified"
	StatusPendingReview QualificationStatus = "pending_review"
)

// SkillKind distinguishes the two scored skill categories.
type SkillKind string

const (
	SkillTechnical SkillKind = "technical"
	SkillSoft      SkillKind = "soft"
)

// Skill is a single named skill or self-reported attribute found in the
// conversation, with the extraction model's confidence as weight.
type Skill struct {
	Name   string    `json:"name"`
	Kind   SkillKind `json:"kind"`
	Weight float64   `json:"weight"`
}

// CandidateProfile is the structured extraction produced from accumulated
// conversation text. Pointer fields distinguish "not mentioned" from an
// explicit zero.
type CandidateProfile struct {
	FullName        string    `json:"full_name,omitempty"`
	YearsExperience *float64  `json:"years_experience,omitempty"`
	Skills          []Skill   `json:"skills,omitempty"`
	WillingToTrain  *bool     `json:"willing_to_train,omitempty"`
	Confidence      float64   `json:"confidence"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

// Clone returns a deep copy of the profile.
func (p CandidateProfile) Clone() CandidateProfile {
	cp := p
	cp.Skills = make([]Skill, len(p.Skills))
	copy(cp.Skills, p.Skills)
	if p.YearsExperience != nil {
		v := *p.YearsExperience
		cp.YearsExperience = &v
	}
	if p.WillingToTrain != nil {
		v := *p.WillingToTrain
		cp.WillingToTrain = &v
	}
	return cp
}

// QualificationResult is the scorer output, persisted one row per lead.
type QualificationResult struct {
	LeadID               string              `json:"lead_id"`
	TechnicalScore       float64             `json:"technical_score"`
	SoftSkillScore       float64             `json:"soft_skill_score"`
	ExperienceScore      float64             `json:"experience_score"`
	OverallScore         float64             `json:"overall_score"`
	Status               QualificationStatus `json:"status"`
	MissingInfo          []string            `json:"missing_info,omitempty"`
	ExtractionConfidence float64             `json:"extraction_confidence"`
	UpdatedAt            time.Time           `json:"updated_at"`
}
