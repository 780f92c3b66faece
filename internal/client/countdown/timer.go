// Package countdown реализует таймер повторной отправки SMS кода.
package countdown

import (
	"sync"
	"time"
)

// DefaultResend стандартная пауза перед повторной отправкой кода
const DefaultResend = 60

// State снимок состояния таймера
type State struct {
	Remaining int  // секунд до разрешения повторной отправки
	Sending   bool // запрос кода в процессе
}

// CanSend разрешена ли отправка
func (s State) CanSend() bool {
	return s.Remaining == 0 && !s.Sending
}

// Option настраивает Timer
type Option func(*Timer)

// WithInterval задает длительность одного шага (по умолчанию секунда)
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithOnChange регистрирует колбэк на каждое изменение состояния.
// Колбэк вызывается без блокировок таймера.
func WithOnChange(fn func(State)) Option {
	return func(t *Timer) {
		t.onChange = fn
	}
}

// Timer счетчик обратного отсчета. Один экземпляр на форму.
type Timer struct {
	onChange   func(State)
	stop       chan struct{}
	state      State
	interval   time.Duration
	generation uint64
	mu         sync.Mutex
	closed     bool
}

// New создает таймер в состоянии "можно отправлять"
func New(opts ...Option) *Timer {
	t := &Timer{interval: time.Second}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start запускает отсчет с seconds. Предыдущий отсчет отменяется.
// seconds <= 0 просто останавливает таймер.
func (t *Timer) Start(seconds int) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.stopLocked()
	if seconds < 0 {
		seconds = 0
	}
	t.state.Remaining = seconds

	if seconds > 0 {
		stop := make(chan struct{})
		t.stop = stop
		go t.run(stop, t.generation, t.interval)
	}

	snap := t.state
	t.mu.Unlock()

	t.notify(snap)
}

// Tick уменьшает остаток на единицу. Вызывается горутиной таймера;
// в тестах используется для симуляции времени.
func (t *Timer) Tick() {
	t.tick(0, false)
}

// SetSending выставляет флаг отправки
func (t *Timer) SetSending(sending bool) {
	t.mu.Lock()
	if t.closed || t.state.Sending == sending {
		t.mu.Unlock()
		return
	}
	t.state.Sending = sending
	snap := t.state
	t.mu.Unlock()

	t.notify(snap)
}

// CanSend разрешена ли отправка кода
func (t *Timer) CanSend() bool {
	return t.State().CanSend()
}

// Remaining секунд до разрешения отправки
func (t *Timer) Remaining() int {
	return t.State().Remaining
}

// State возвращает текущий снимок
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Close останавливает таймер. После возврата ни один тик не изменит состояние.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.stopLocked()
}

func (t *Timer) run(stop <-chan struct{}, gen uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := t.tick(gen, true); done {
				return
			}
		}
	}
}

// tick возвращает true, когда горутине пора завершиться
func (t *Timer) tick(gen uint64, fromTicker bool) bool {
	t.mu.Lock()
	// Тик от отмененного запуска игнорируется
	if t.closed || (fromTicker && gen != t.generation) {
		t.mu.Unlock()
		return true
	}
	if t.state.Remaining == 0 {
		t.mu.Unlock()
		return true
	}

	t.state.Remaining--
	done := t.state.Remaining == 0
	if done {
		t.stopLocked()
	}
	snap := t.state
	t.mu.Unlock()

	t.notify(snap)
	return done
}

// stopLocked отменяет текущую горутину; вызывается под mu
func (t *Timer) stopLocked() {
	t.generation++
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) notify(s State) {
	if t.onChange != nil {
		t.onChange(s)
	}
}
