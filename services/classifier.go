package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	"trial-viewer/models"
)

// EventKind — распознанный тип события потока.
type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventClaim
	EventEvidence
	EventArgument
	EventDeliberation
	EventVerdict
	EventAwareness
	EventEducation
	EventComplete
)

// PhaseEvent — нормализованное событие после классификации.
// Claim заполняется независимо от Kind: бэкенд может прислать
// текст утверждения вместе с любым событием.
type PhaseEvent struct {
	Kind      EventKind
	Claim     string
	Evidence  []models.EvidenceItem
	Argument  *models.RoundArgument
	Verdict   *models.Verdict
	Awareness *models.AwarenessScore
	Education json.RawMessage
}

// Заглушки для кодировки evidence_count: бэкенд сообщил только число улик,
// содержимое ещё не пришло.
const (
	placeholderSummary = "Улика обработана следствием."
	placeholderScore   = 7
)

// Classifier превращает RawEvent в PhaseEvent.
// Незнакомые и кривые события не роняют пайплайн —
// они считаются и отбрасываются.
type Classifier struct {
	unrecognized atomic.Int64
}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Unrecognized возвращает число отброшенных событий.
func (c *Classifier) Unrecognized() int64 {
	return c.unrecognized.Load()
}

// Classify — чистое отображение сырого события в типизированное.
// Диспетчеризация по тегу phase.
func (c *Classifier) Classify(ev models.RawEvent) PhaseEvent {
	pe := PhaseEvent{Kind: EventUnrecognized, Claim: rideAlongClaim(ev)}

	switch ev.Phase {
	case "claim_extraction":
		pe.Kind = EventClaim

	case "investigation":
		items, ok := normalizeEvidence(ev)
		if !ok {
			c.drop(ev, "investigation без evidence/sources/evidence_count")
			return pe
		}
		pe.Kind = EventEvidence
		pe.Evidence = items

	case "trial":
		arg, ok := normalizeArgument(ev)
		if !ok {
			c.drop(ev, "trial с некорректными полями")
			return pe
		}
		pe.Kind = EventArgument
		pe.Argument = arg

	case "deliberation":
		pe.Kind = EventDeliberation

	case "verdict":
		if ev.Verdict == nil {
			c.drop(ev, "verdict без тела")
			return pe
		}
		pe.Kind = EventVerdict
		pe.Verdict = ev.Verdict

	case "awareness_score":
		if ev.AwarenessScore == nil {
			c.drop(ev, "awareness_score без тела")
			return pe
		}
		pe.Kind = EventAwareness
		pe.Awareness = ev.AwarenessScore

	case "education":
		pe.Kind = EventEducation
		pe.Education = ev.Education

	case "complete":
		pe.Kind = EventComplete

	default:
		c.drop(ev, "неизвестный тег фазы")
	}

	return pe
}

func (c *Classifier) drop(ev models.RawEvent, reason string) {
	n := c.unrecognized.Add(1)
	log.Printf("[CLASSIFIER] ⚠ Событие отброшено (%s): phase=%q, всего отброшено: %d", reason, ev.Phase, n)
}

// rideAlongClaim извлекает текст утверждения из любого события.
// Поддерживает и одиночное поле claim, и массив claims.
func rideAlongClaim(ev models.RawEvent) string {
	if ev.Claim != "" {
		return ev.Claim
	}
	if len(ev.Claims) > 0 {
		return ev.Claims[0].Text
	}
	return ""
}

// normalizeEvidence сводит три кодировки фазы investigation
// к одному списку улик.
func normalizeEvidence(ev models.RawEvent) ([]models.EvidenceItem, bool) {
	switch {
	case len(ev.Evidence) > 0:
		return ev.Evidence, true
	case len(ev.Sources) > 0:
		return ev.Sources, true
	case ev.EvidenceCount != nil:
		count := *ev.EvidenceCount
		if count < 0 {
			return nil, false
		}
		items := make([]models.EvidenceItem, count)
		for i := range items {
			items[i] = models.EvidenceItem{
				Source:  fmt.Sprintf("Источник улики %d", i+1),
				Summary: placeholderSummary,
				Score:   placeholderScore,
			}
		}
		return items, true
	}
	return nil, false
}

// normalizeArgument валидирует событие trial и приводит
// alias defendant к канонической роли defender.
func normalizeArgument(ev models.RawEvent) (*models.RoundArgument, bool) {
	var role models.Role
	switch ev.Agent {
	case "prosecutor":
		role = models.RoleProsecutor
	case "defender", "defendant":
		role = models.RoleDefender
	default:
		return nil, false
	}
	if ev.Round < 1 || ev.Argument == "" {
		return nil, false
	}
	return &models.RoundArgument{
		Role:       role,
		Round:      ev.Round,
		Text:       ev.Argument,
		Confidence: ev.Confidence,
	}, true
}
