package countdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newManual создает таймер с огромным интервалом, чтобы тикать вручную
func newManual(t *testing.T, opts ...Option) *Timer {
	t.Helper()
	timer := New(append([]Option{WithInterval(time.Hour)}, opts...)...)
	t.Cleanup(timer.Close)
	return timer
}

func TestTimer_Initial(t *testing.T) {
	timer := newManual(t)

	assert.True(t, timer.CanSend())
	assert.Equal(t, 0, timer.Remaining())
}

func TestTimer_SixtyTicks(t *testing.T) {
	timer := newManual(t)
	timer.Start(DefaultResend)
	assert.False(t, timer.CanSend())

	for i := 0; i < 59; i++ {
		timer.Tick()
	}
	assert.Equal(t, 1, timer.Remaining())
	assert.False(t, timer.CanSend())

	timer.Tick()
	assert.Equal(t, 0, timer.Remaining())
	assert.True(t, timer.CanSend())

	// Лишние тики не уходят в минус
	timer.Tick()
	assert.Equal(t, 0, timer.Remaining())
}

func TestTimer_SendingBlocksSend(t *testing.T) {
	timer := newManual(t)

	timer.SetSending(true)
	assert.False(t, timer.CanSend())
	assert.True(t, timer.State().Sending)

	timer.SetSending(false)
	assert.True(t, timer.CanSend())
}

func TestTimer_RestartDoesNotStack(t *testing.T) {
	timer := New(WithInterval(5 * time.Millisecond))
	defer timer.Close()

	timer.Start(1000)
	timer.Start(1000)
	timer.Start(1000)

	time.Sleep(60 * time.Millisecond)
	remaining := timer.Remaining()

	// Одна горутина: за ~60ms не больше ~12 шагов, три горутины дали бы втрое больше
	elapsed := 1000 - remaining
	assert.Greater(t, elapsed, 0)
	assert.Less(t, elapsed, 30)
}

func TestTimer_RealTicker(t *testing.T) {
	timer := New(WithInterval(2 * time.Millisecond))
	defer timer.Close()

	timer.Start(3)

	assert.Eventually(t, timer.CanSend, time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, timer.Remaining())
}

func TestTimer_CloseStopsTicks(t *testing.T) {
	timer := New(WithInterval(2 * time.Millisecond))

	timer.Start(1000)
	timer.Close()
	after := timer.Remaining()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, timer.Remaining())

	// После Close таймер не оживает
	timer.Start(5)
	timer.Tick()
	assert.Equal(t, after, timer.Remaining())
}

func TestTimer_StartZeroStops(t *testing.T) {
	timer := newManual(t)
	timer.Start(10)
	timer.Start(0)

	assert.True(t, timer.CanSend())
}

func TestTimer_OnChange(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []State
	)
	timer := newManual(t, WithOnChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	timer.SetSending(true)
	timer.SetSending(false)
	timer.Start(2)
	timer.Tick()
	timer.Tick()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 5)
	assert.True(t, seen[0].Sending)
	assert.Equal(t, 2, seen[2].Remaining)
	assert.True(t, seen[4].CanSend())
}
