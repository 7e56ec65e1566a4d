package services

import (
	"encoding/json"
	"log"

	"trial-viewer/models"
)

type argKey struct {
	role  models.Role
	round int
}

// Ledger — авторитетная запись всех фактов одного дела.
// Поля двигаются только из "нет" в "есть" либо идемпотентно
// подтверждаются; откатов назад не бывает. Единственные исключения —
// claim (last-write-wins) и evidence (бэкенд шлёт нарастающие снапшоты
// целиком, поэтому замена, не слияние).
//
// Сам по себе не потокобезопасен: все мутации идут строго
// последовательно из цикла потребления Case под его мьютексом.
type Ledger struct {
	claim    string
	evidence []models.EvidenceItem

	arguments map[argKey]models.RoundArgument
	argOrder  []argKey // порядок первых вставок, для транскрипта

	verdict   *models.Verdict
	awareness *models.AwarenessScore
	education json.RawMessage

	deliberating bool
	complete     bool
	streamError  string

	judgements []models.UserJudgement
	prediction *models.UserPrediction
}

func NewLedger(claimPlaceholder string) *Ledger {
	return &Ledger{
		claim:     claimPlaceholder,
		arguments: make(map[argKey]models.RoundArgument),
	}
}

// SetClaim — безусловная перезапись. Утверждение не привязано к раундам,
// поэтому последнее слово бэкенда и есть истина.
func (l *Ledger) SetClaim(text string) {
	l.claim = text
}

func (l *Ledger) Claim() string {
	return l.claim
}

// SetEvidence — полная замена списка улик очередным снапшотом.
func (l *Ledger) SetEvidence(items []models.EvidenceItem) {
	l.evidence = make([]models.EvidenceItem, len(items))
	copy(l.evidence, items)
}

// Evidence возвращает копию списка улик.
func (l *Ledger) Evidence() []models.EvidenceItem {
	out := make([]models.EvidenceItem, len(l.evidence))
	copy(out, l.evidence)
	return out
}

// EvidenceReady — готовность следствия: улики есть.
func (l *Ledger) EvidenceReady() bool {
	return len(l.evidence) > 0
}

// RecordArgument вставляет аргумент, если пары (role, round) ещё нет.
// Возвращает true для действительно новой вставки — по этому признаку
// вызывающий решает, пересчитывать ли готовность переходов.
// Повторная доставка того же ключа — тихий no-op, первый текст побеждает.
func (l *Ledger) RecordArgument(arg models.RoundArgument) bool {
	key := argKey{role: arg.Role, round: arg.Round}
	if _, exists := l.arguments[key]; exists {
		return false
	}
	l.arguments[key] = arg
	l.argOrder = append(l.argOrder, key)
	return true
}

// HasArgument — есть ли аргумент для (role, round).
func (l *Ledger) HasArgument(role models.Role, round int) bool {
	_, ok := l.arguments[argKey{role: role, round: round}]
	return ok
}

// Argument возвращает аргумент для (role, round), если он есть.
func (l *Ledger) Argument(role models.Role, round int) (models.RoundArgument, bool) {
	arg, ok := l.arguments[argKey{role: role, round: round}]
	return arg, ok
}

// Transcript — все аргументы в порядке первых вставок.
func (l *Ledger) Transcript() []models.RoundArgument {
	out := make([]models.RoundArgument, 0, len(l.argOrder))
	for _, key := range l.argOrder {
		out = append(out, l.arguments[key])
	}
	return out
}

// SetVerdict устанавливает вердикт. Повторная установка разрешена —
// исправленный финальный ответ должен дойти до зрителя — но это аномалия,
// которую мы логируем.
func (l *Ledger) SetVerdict(v *models.Verdict) {
	if l.verdict != nil {
		log.Printf("[LEDGER] ⚠ Аномалия: вердикт перезаписан повторным событием")
	}
	cp := *v
	l.verdict = &cp
}

func (l *Ledger) Verdict() *models.Verdict {
	if l.verdict == nil {
		return nil
	}
	cp := *l.verdict
	return &cp
}

// SetAwareness — та же семантика, что у SetVerdict.
func (l *Ledger) SetAwareness(a *models.AwarenessScore) {
	if l.awareness != nil {
		log.Printf("[LEDGER] ⚠ Аномалия: awareness score перезаписан повторным событием")
	}
	cp := *a
	l.awareness = &cp
}

func (l *Ledger) Awareness() *models.AwarenessScore {
	if l.awareness == nil {
		return nil
	}
	cp := *l.awareness
	return &cp
}

// SetEducation сохраняет образовательную панель как есть (opaque JSON).
func (l *Ledger) SetEducation(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	l.education = append(json.RawMessage(nil), raw...)
}

func (l *Ledger) Education() json.RawMessage {
	return l.education
}

// SetDeliberating отмечает, что жюри совещается.
func (l *Ledger) SetDeliberating() {
	l.deliberating = true
}

// Deliberating — жюри совещается, а вердикта ещё нет.
func (l *Ledger) Deliberating() bool {
	return l.deliberating && l.verdict == nil
}

// SetComplete — поток логически завершён (тег complete или EOF транспорта).
func (l *Ledger) SetComplete() {
	l.complete = true
}

func (l *Ledger) Complete() bool {
	return l.complete
}

// SetStreamError фиксирует фатальную ошибку канала. Ровно один раз.
func (l *Ledger) SetStreamError(msg string) {
	if l.streamError == "" {
		l.streamError = msg
	}
}

func (l *Ledger) StreamError() string {
	return l.streamError
}

// RecordJudgement добавляет принятое бэкендом суждение зрителя.
// Идемпотентно по раунду: повторная запись того же раунда — no-op.
func (l *Ledger) RecordJudgement(j models.UserJudgement) bool {
	if l.HasJudgement(j.Round) {
		return false
	}
	l.judgements = append(l.judgements, j)
	return true
}

// HasJudgement — принято ли суждение для раунда.
func (l *Ledger) HasJudgement(round int) bool {
	for _, j := range l.judgements {
		if j.Round == round {
			return true
		}
	}
	return false
}

// Judgements возвращает копию всех суждений зрителя.
func (l *Ledger) Judgements() []models.UserJudgement {
	out := make([]models.UserJudgement, len(l.judgements))
	copy(out, l.judgements)
	return out
}

// SetPrediction записывает финальную догадку зрителя.
// Фиксируется первая: передумать после нажатия кнопки нельзя.
func (l *Ledger) SetPrediction(p models.UserPrediction) {
	if l.prediction != nil {
		return
	}
	l.prediction = &p
}

func (l *Ledger) Prediction() *models.UserPrediction {
	if l.prediction == nil {
		return nil
	}
	cp := *l.prediction
	return &cp
}
