package logger

import (
	"io"
	"os"
	"sync"
)

// Broadcaster — io.Writer, который дублирует логи в консоль
// и во все подключённые админские WebSocket сессии.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan string]bool
}

var Instance = &Broadcaster{
	subscribers: make(map[chan string]bool),
}

func (b *Broadcaster) Write(p []byte) (n int, err error) {
	msg := string(p)

	os.Stdout.Write(p)

	b.mu.Lock()
	for ch := range b.subscribers {
		// Медленный подписчик теряет строки, но не тормозит логирование
		select {
		case ch <- msg:
		default:
		}
	}
	b.mu.Unlock()

	return len(p), nil
}

// Subscribe создает новый канал для получения логов
func (b *Broadcaster) Subscribe() chan string {
	ch := make(chan string, 100)
	b.mu.Lock()
	b.subscribers[ch] = true
	b.mu.Unlock()
	return ch
}

// Unsubscribe удаляет канал из рассылки
func (b *Broadcaster) Unsubscribe(ch chan string) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// GetWriter отдаёт writer для log.SetOutput
func GetWriter() io.Writer {
	return Instance
}
