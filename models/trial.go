package models

import "encoding/json"

// Role — сторона судебного процесса.
type Role string

const (
	RoleProsecutor Role = "prosecutor"
	RoleDefender   Role = "defender"
)

// Phase — текущая фаза процесса с точки зрения зрителя.
type Phase string

const (
	PhaseIntake           Phase = "INTAKE"
	PhaseEpochProsecutor  Phase = "EPOCH_PROSECUTOR"
	PhaseEpochDefender    Phase = "EPOCH_DEFENDER"
	PhaseEpochUser        Phase = "EPOCH_USER"
	PhaseFinalUserVerdict Phase = "FINAL_USER_VERDICT"
	PhaseFinalVerdict     Phase = "FINAL_VERDICT"
)

// RawEvent — одно сырое событие из SSE потока бэкенда.
// Бэкенд шлёт разные наборы полей в зависимости от фазы,
// поэтому все поля опциональны.
type RawEvent struct {
	Phase  string      `json:"phase"`
	Status string      `json:"status,omitempty"`
	Error  string      `json:"error,omitempty"`
	Claim  string      `json:"claim,omitempty"`
	Claims []ClaimInfo `json:"claims,omitempty"`

	// Фаза investigation: три легальных кодировки одного и того же
	Evidence      []EvidenceItem `json:"evidence,omitempty"`
	Sources       []EvidenceItem `json:"sources,omitempty"`
	EvidenceCount *int           `json:"evidence_count,omitempty"`

	// Фаза trial
	Agent      string  `json:"agent,omitempty"`
	Round      int     `json:"round,omitempty"`
	Argument   string  `json:"argument,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Финальные фазы
	Verdict        *Verdict        `json:"verdict,omitempty"`
	AwarenessScore *AwarenessScore `json:"awareness_score,omitempty"`
	Education      json.RawMessage `json:"education,omitempty"`
}

// ClaimInfo — утверждение, извлечённое бэкендом из исходного контента.
type ClaimInfo struct {
	Text string `json:"text"`
}

// EvidenceItem — одна улика следствия.
type EvidenceItem struct {
	Source  string  `json:"source"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"` // 0-10
}

// UnmarshalJSON принимает также поля source_url/text —
// бэкенд использует их в сырых данных следователя.
func (e *EvidenceItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Source    string  `json:"source"`
		SourceURL string  `json:"source_url"`
		Summary   string  `json:"summary"`
		Text      string  `json:"text"`
		Score     float64 `json:"score"`
		CredScore float64 `json:"credibility_score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Source = raw.Source
	if e.Source == "" {
		e.Source = raw.SourceURL
	}
	e.Summary = raw.Summary
	if e.Summary == "" {
		e.Summary = raw.Text
	}
	e.Score = raw.Score
	if e.Score == 0 && raw.CredScore != 0 {
		e.Score = raw.CredScore
	}
	return nil
}

// RoundArgument — аргумент одной из сторон в конкретном раунде.
// Пара (Role, Round) уникальна в рамках одного дела.
type RoundArgument struct {
	Role       Role    `json:"role"`
	Round      int     `json:"round"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Verdict — финальный вердикт. Две формы в одном типе:
// обычный вердикт жюри (Score/Category/IndividualVerdicts)
// или ускоренный (Mode == "fasttrack", FinalVerdict/Reasoning).
type Verdict struct {
	Mode string `json:"mode,omitempty"`

	// Вердикт жюри
	Score              int            `json:"score,omitempty"` // 0-100
	Category           string         `json:"category,omitempty"`
	Summary            string         `json:"summary,omitempty"`
	IndividualVerdicts []JurorVerdict `json:"individual_verdicts,omitempty"`

	// Fast-track
	FinalVerdict string   `json:"final_verdict,omitempty"` // VERIFIED | FAKE | UNCERTAIN
	Confidence   int      `json:"confidence,omitempty"`    // 0-100
	Reasoning    string   `json:"reasoning,omitempty"`
	KeyFindings  []string `json:"key_findings,omitempty"`
}

// IsFastTrack сообщает, что вердикт вынесен без полного жюри.
func (v *Verdict) IsFastTrack() bool {
	return v != nil && v.Mode == "fasttrack"
}

// JurorVerdict — мнение одного присяжного.
type JurorVerdict struct {
	JurorID         int      `json:"juror_id"`
	Model           string   `json:"model"`
	ConfidenceScore float64  `json:"confidence_score"`
	TopReasons      []string `json:"top_3_reasons"`
	KeyEvidence     string   `json:"key_evidence,omitempty"`
}

// AwarenessScore — оценка внимательности зрителя по его суждениям.
type AwarenessScore struct {
	Score    float64 `json:"score"` // 0-10
	Feedback string  `json:"feedback"`
}

// Допустимые суждения зрителя о раунде.
const (
	JudgementPlausible  = "plausible"
	JudgementMisleading = "misleading"
	JudgementNotSure    = "not_sure"
	JudgementNeutral    = "neutral"
)

// CoerceJudgement приводит произвольную строку к допустимому суждению.
// Бэкенд делает то же самое — незнакомые значения становятся neutral.
func CoerceJudgement(label string) string {
	switch label {
	case JudgementPlausible, JudgementMisleading, JudgementNotSure, JudgementNeutral:
		return label
	case "not sure":
		return JudgementNotSure
	default:
		return JudgementNeutral
	}
}

// UserJudgement — суждение зрителя о завершённом раунде.
type UserJudgement struct {
	Round int    `json:"round"`
	Label string `json:"label"`
}

// UserPrediction — финальная догадка зрителя перед оглашением вердикта.
type UserPrediction struct {
	Verdict    string `json:"verdict"`    // real | fake
	Confidence string `json:"confidence"` // low | medium | high
}

// ViewModel — всё, что нужно рендереру прямо сейчас.
// Чистая проекция леджера и машины фаз, без побочных эффектов.
type ViewModel struct {
	CaseID    string `json:"case_id"`
	Phase     Phase  `json:"phase"`
	Round     int    `json:"round"`
	MaxRounds int    `json:"max_rounds"`

	Claim    string         `json:"claim"`
	Evidence []EvidenceItem `json:"evidence"`

	CurrentArgument *RoundArgument  `json:"current_argument,omitempty"`
	Transcript      []RoundArgument `json:"transcript"`
	Judgements      []UserJudgement `json:"judgements"`

	CanContinue       bool `json:"can_continue"`
	AwaitingJudgement bool `json:"awaiting_judgement"`
	Deliberating      bool `json:"deliberating"`
	VerdictPending    bool `json:"verdict_pending"`
	Complete          bool `json:"complete"`

	Verdict    *Verdict        `json:"verdict,omitempty"`
	Awareness  *AwarenessScore `json:"awareness_score,omitempty"`
	Education  json.RawMessage `json:"education,omitempty"`
	Prediction *UserPrediction `json:"user_prediction,omitempty"`

	StreamError string `json:"stream_error,omitempty"`
}
