package model

// ================ Config ================
// All policy constants (thresholds, caps, budgets) live here as envconfig
// defaults so operators can change them without a code change.

type ConversationConfig struct {
	TTL string `envconfig:"CHECKPOINT_TTL" default:"720h"`

	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"20"`
	}
	Extraction struct {
		// MinNewTurns is how many unscored user messages must accrue
		// before the router sends a step through the scorer.
		MinNewTurns int `envconfig:"CONVERSATION_EXTRACTION_MIN_NEW_TURNS" default:"2"`
		MaxAttempts int `envconfig:"CONVERSATION_EXTRACTION_MAX_ATTEMPTS" default:"2"`
	}
	Tools struct {
		MaxPasses int    `envconfig:"CONVERSATION_TOOL_MAX_PASSES" default:"4"`
		Timeout   string `envconfig:"CONVERSATION_TOOL_TIMEOUT" default:"10s"`
	}
	Step struct {
		// MaxIterations bounds node executions within one step; exceeding
		// it fails closed into escalation.
		MaxIterations int `envconfig:"CONVERSATION_STEP_MAX_ITERATIONS" default:"12"`
	}
}

type ExtractionModelConfig struct {
	Model       string  `envconfig:"EXTRACTION_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"EXTRACTION_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"EXTRACTION_TEMPERATURE" default:"0.0"`
	Timeout     string  `envconfig:"EXTRACTION_TIMEOUT" default:"30s"`
	MaxRetries  int     `envconfig:"EXTRACTION_MAX_RETRIES" default:"2"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
	Timeout     string  `envconfig:"RESPONSE_TIMEOUT" default:"45s"`
	MaxRetries  int     `envconfig:"RESPONSE_MAX_RETRIES" default:"2"`
}

type ResponsePromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"recruiting agency"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"Northgate Talent"`
	Tone         string `envconfig:"PROMPT_TONE" default:"warm, concise, professional"`
}

type RouterConfig struct {
	// Intents maps intent names to confidence in "name:confidence" list
	// form, matching the NLU intent config format used elsewhere.
	Intents string `envconfig:"ROUTER_INTENTS" default:"greet:0.3, apply_intent:0.9, inquiry_intent:0.7, schedule_intent:0.8, handoff_intent:0.9"`
	// Keywords maps intent names to '|'-separated trigger words.
	Keywords string `envconfig:"ROUTER_KEYWORDS" default:"greet=hello|hi|hey|good morning;apply_intent=apply|job|position|role|resume|cv|opening|vacancy;inquiry_intent=salary|benefit|company|culture|remote|office|policy;schedule_intent=schedule|interview|availability|calendar|meet;handoff_intent=human|person|manager|agent|complaint"`
	// Fallback is used when no keyword matches.
	Fallback           string  `envconfig:"ROUTER_FALLBACK_INTENT" default:"inquiry_intent"`
	FallbackConfidence float64 `envconfig:"ROUTER_FALLBACK_CONFIDENCE" default:"0.4"`
}

type ScoringConfig struct {
	QualifyThreshold    float64 `envconfig:"SCORING_QUALIFY_THRESHOLD" default:"70"`
	DisqualifyThreshold float64 `envconfig:"SCORING_DISQUALIFY_THRESHOLD" default:"30"`
	TechnicalCap        float64 `envconfig:"SCORING_TECHNICAL_CAP" default:"40"`
	SoftSkillCap        float64 `envconfig:"SCORING_SOFT_SKILL_CAP" default:"40"`
	ExperienceCap       float64 `envconfig:"SCORING_EXPERIENCE_CAP" default:"20"`
	ConfidenceFloor     float64 `envconfig:"SCORING_CONFIDENCE_FLOOR" default:"0.5"`
	// RequiredFields must all be present before a lead can be qualified.
	RequiredFields string `envconfig:"SCORING_REQUIRED_FIELDS" default:"full_name,years_experience,skills"`
}

type RetrievalConfig struct {
	JobPostingsThreshold float64 `envconfig:"RETRIEVAL_JOB_POSTINGS_THRESHOLD" default:"0.7"`
	CompanyDocsThreshold float64 `envconfig:"RETRIEVAL_COMPANY_DOCS_THRESHOLD" default:"0.7"`
	MaxResults           int     `envconfig:"RETRIEVAL_MAX_RESULTS" default:"3"`
	Timeout              string  `envconfig:"RETRIEVAL_TIMEOUT" default:"10s"`
	MaxRetries           int     `envconfig:"RETRIEVAL_MAX_RETRIES" default:"2"`
}
