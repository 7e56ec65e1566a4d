package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"trial-viewer/models"
)

// ClaimPlaceholder показывается, пока бэкенд не прислал утверждение.
const ClaimPlaceholder = "Загружаю утверждение…"

// Case — одно дело: канал событий, леджер и машина фаз с общим временем
// жизни. Все мутации идут строго последовательно — либо из цикла
// потребления потока, либо из действий зрителя — под одним мьютексом.
// Мьютекс нужен не для многописательской гонки (её нет по построению),
// а чтобы HTTP ручки могли брать согласованные снапшоты.
type Case struct {
	ID string

	mu         sync.Mutex
	ledger     *Ledger
	machine    *Machine
	closed     bool
	submitting bool

	classifier *Classifier
	stream     *EventStream
	gateway    *JudgementGateway

	subMu       sync.Mutex
	subscribers map[chan models.ViewModel]bool

	closeOnce sync.Once
	done      chan struct{}

	// вызывается один раз после завершения потока (архивирование)
	onFinished func(models.ViewModel)
}

func NewCase(id string, stream *EventStream, gateway *JudgementGateway, maxRounds int) *Case {
	return &Case{
		ID:          id,
		ledger:      NewLedger(ClaimPlaceholder),
		machine:     NewMachine(maxRounds),
		classifier:  NewClassifier(),
		stream:      stream,
		gateway:     gateway,
		subscribers: make(map[chan models.ViewModel]bool),
		done:        make(chan struct{}),
	}
}

// OnFinished задаёт колбэк, который получит финальный ViewModel
// после завершения потока. Задавать до Run.
func (c *Case) OnFinished(fn func(models.ViewModel)) {
	c.onFinished = fn
}

// Run открывает поток и крутит цикл потребления до завершения.
// Классификация и запись в леджер быстрые и синхронные — цикл доставки
// никогда не блокируется надолго.
func (c *Case) Run(ctx context.Context) {
	events, errs, err := c.stream.Open(ctx, c.ID)
	if err != nil {
		log.Printf("[CASE] ❌ Дело %s: поток не открылся: %v", c.ID, err)
		c.mu.Lock()
		c.ledger.SetStreamError(err.Error())
		c.mu.Unlock()
		c.notify()
		close(c.done)
		return
	}

	for ev := range events {
		c.apply(ev)
	}

	// Канал событий закрыт: либо complete/EOF, либо ошибка транспорта
	select {
	case err := <-errs:
		c.mu.Lock()
		c.ledger.SetStreamError(err.Error())
		c.mu.Unlock()
	default:
		c.mu.Lock()
		c.ledger.SetComplete()
		c.mu.Unlock()
	}
	c.notify()

	if c.onFinished != nil {
		c.onFinished(c.View())
	}
	close(c.done)
	log.Printf("[CASE] 🏁 Дело %s: поток отработан, отброшено событий: %d", c.ID, c.classifier.Unrecognized())
}

// Done закрывается, когда цикл потребления завершён.
func (c *Case) Done() <-chan struct{} {
	return c.done
}

// apply вносит одно классифицированное событие в леджер.
// Подписчики уведомляются только если в леджере что-то реально поменялось.
func (c *Case) apply(ev models.RawEvent) {
	pe := c.classifier.Classify(ev)

	c.mu.Lock()
	changed := false

	if pe.Claim != "" {
		c.ledger.SetClaim(pe.Claim)
		changed = true
	}

	switch pe.Kind {
	case EventEvidence:
		c.ledger.SetEvidence(pe.Evidence)
		changed = true
	case EventArgument:
		// Дубликат не создаёт вторую запись и не дёргает подписчиков
		if c.ledger.RecordArgument(*pe.Argument) {
			changed = true
		}
	case EventDeliberation:
		c.ledger.SetDeliberating()
		changed = true
	case EventVerdict:
		c.ledger.SetVerdict(pe.Verdict)
		changed = true
	case EventAwareness:
		c.ledger.SetAwareness(pe.Awareness)
		changed = true
	case EventEducation:
		c.ledger.SetEducation(pe.Education)
		changed = true
	case EventComplete:
		c.ledger.SetComplete()
		changed = true
	}

	c.mu.Unlock()

	if changed {
		c.notify()
	}
}

// View — текущая проекция для рендерера.
func (c *Case) View() models.ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Project(c.ID, c.ledger, c.machine)
}

// Advance двигает машину фаз по кнопке "дальше".
// Возвращает false, если переход сейчас не готов (это не ошибка).
func (c *Case) Advance() bool {
	c.mu.Lock()
	ok := c.machine.Advance(c.ledger)
	c.mu.Unlock()

	if ok {
		c.notify()
	}
	return ok
}

// SubmitJudgement отправляет суждение зрителя за текущий раунд.
// Сетевой вызов идёт вне мьютекса: доставка событий не приостанавливается,
// но машина не покинет EPOCH_USER, пока приём не подтверждён.
// Повторный вызов после успеха — no-op (безопасный ретрай).
func (c *Case) SubmitJudgement(ctx context.Context, label string) error {
	label = models.CoerceJudgement(label)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("дело %s уже закрыто", c.ID)
	}
	if c.machine.Phase() != models.PhaseEpochUser {
		c.mu.Unlock()
		return fmt.Errorf("суждение принимается только в фазе EPOCH_USER, сейчас %s", c.machine.Phase())
	}
	round := c.machine.Round()
	if c.ledger.HasJudgement(round) {
		c.mu.Unlock()
		return nil
	}
	if c.submitting {
		c.mu.Unlock()
		return fmt.Errorf("суждение за раунд %d уже отправляется", round)
	}
	c.submitting = true
	c.mu.Unlock()

	err := c.gateway.Submit(ctx, c.ID, round, label)

	c.mu.Lock()
	c.submitting = false
	if c.closed {
		// Дело закрыли, пока суждение летело — результат просто выбрасываем
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.ledger.RecordJudgement(models.UserJudgement{Round: round, Label: label})
	c.machine.Advance(c.ledger)
	c.mu.Unlock()

	c.notify()
	return nil
}

// SubmitPrediction записывает финальную догадку зрителя и двигает машину
// к оглашению вердикта. Пересылка на бэкенд — информационная, в фоне;
// её неуспех ничего не блокирует.
func (c *Case) SubmitPrediction(p models.UserPrediction) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("дело %s уже закрыто", c.ID)
	}
	if c.machine.Phase() != models.PhaseFinalUserVerdict {
		c.mu.Unlock()
		return fmt.Errorf("прогноз принимается только в фазе FINAL_USER_VERDICT, сейчас %s", c.machine.Phase())
	}
	c.ledger.SetPrediction(p)
	c.machine.Advance(c.ledger)
	c.mu.Unlock()

	c.notify()

	go func() {
		if err := c.gateway.SubmitPrediction(context.Background(), c.ID, p); err != nil {
			log.Printf("[CASE] ⚠ Прогноз для дела %s не доставлен: %v", c.ID, err)
		}
	}()
	return nil
}

// Subscribe отдаёт канал, в который будут падать свежие ViewModel.
// Медленный подписчик пропускает промежуточные снапшоты, но не
// блокирует доставку (как в logger.Broadcaster).
func (c *Case) Subscribe() chan models.ViewModel {
	ch := make(chan models.ViewModel, 8)
	c.subMu.Lock()
	c.subscribers[ch] = true
	c.subMu.Unlock()
	return ch
}

func (c *Case) Unsubscribe(ch chan models.ViewModel) {
	c.subMu.Lock()
	if c.subscribers[ch] {
		delete(c.subscribers, ch)
		close(ch)
	}
	c.subMu.Unlock()
}

func (c *Case) notify() {
	vm := c.View()
	c.subMu.Lock()
	for ch := range c.subscribers {
		select {
		case ch <- vm:
		default:
		}
	}
	c.subMu.Unlock()
}

// Close закрывает дело: гасит поток, отписывает подписчиков.
// Идемпотентен; безопасен во время летящего суждения — его результат
// будет отброшен.
func (c *Case) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.stream.Close()

		c.subMu.Lock()
		for ch := range c.subscribers {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.subMu.Unlock()

		log.Printf("[CASE] ✖ Дело %s закрыто", c.ID)
	})
}
