package mbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Leegeev/mbus/pkg/config"
)

// OverflowPolicy определяет, что делать с новым сообщением при полной очереди.
type OverflowPolicy int

const (
	// DropOldest вытесняет самое старое сообщение.
	DropOldest OverflowPolicy = iota
	// DropNewest отбрасывает новое сообщение, очередь не меняется.
	DropNewest
)

// ParseOverflow переводит значение из конфигурации в политику.
func ParseOverflow(s string) (OverflowPolicy, error) {
	switch s {
	case config.OverflowDropOldest, "":
		return DropOldest, nil
	case config.OverflowDropNewest:
		return DropNewest, nil
	default:
		return 0, invalid("unknown overflow policy %q", s)
	}
}

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return config.OverflowDropOldest
	case DropNewest:
		return config.OverflowDropNewest
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// subscription — ограниченная FIFO-очередь одного подписчика.
type subscription struct {
	mu     sync.Mutex
	buf    []buffer // кольцевой буфер
	head   int      // индекс самого старого элемента
	count  int
	policy OverflowPolicy
	closed bool

	notify chan struct{} // cap 1: "в очереди что-то появилось"
	done   chan struct{} // закрывается в close()

	dropped atomic.Uint64
}

func newSubscription(capacity int, policy OverflowPolicy) *subscription {
	if capacity < 1 {
		capacity = 1
	}
	return &subscription{
		buf:    make([]buffer, capacity),
		policy: policy,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push кладёт сообщение в очередь по политике переполнения.
// accepted=false, если сообщение не попало в очередь; dropped=true, если что-то потеряно.
func (s *subscription) push(b buffer) (accepted, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, false
	}

	if s.count == len(s.buf) {
		if s.policy == DropNewest {
			s.dropped.Add(1)
			return false, true
		}
		s.buf[s.head] = buffer{}
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		dropped = true
		s.dropped.Add(1)
	}

	s.buf[(s.head+s.count)%len(s.buf)] = b
	s.count++
	s.signal()
	return true, dropped
}

// pop забирает самое старое сообщение без ожидания.
func (s *subscription) pop() (buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return buffer{}, false
	}
	b := s.buf[s.head]
	s.buf[s.head] = buffer{}
	s.head = (s.head + 1) % len(s.buf)
	s.count--

	// остаток должен разбудить следующего ждущего
	if s.count > 0 {
		s.signal()
	}
	return b, true
}

func (s *subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// wait ждёт сообщение до deadline, shutdown, close() или отмены ctx.
// nil-каналы не срабатывают никогда.
func (s *subscription) wait(ctx context.Context, deadline <-chan time.Time, shutdown <-chan struct{}) (buffer, error) {
	for {
		// exit закрывает shutdown раньше очередей: проверяем его отдельно,
		// иначе select выберет между готовыми каналами случайно
		select {
		case <-shutdown:
			return buffer{}, ErrShuttingDown
		default:
		}
		select {
		case <-s.done:
			return buffer{}, ErrClosed
		default:
		}

		if b, ok := s.pop(); ok {
			return b, nil
		}

		select {
		case <-s.notify:
		case <-shutdown:
			return buffer{}, ErrShuttingDown
		case <-s.done:
			// exit закрывает очереди после рассылки shutdown
			select {
			case <-shutdown:
				return buffer{}, ErrShuttingDown
			default:
				return buffer{}, ErrClosed
			}
		case <-deadline:
			return buffer{}, ErrTimeout
		case <-ctx.Done():
			return buffer{}, ctx.Err()
		}
	}
}

func (s *subscription) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *subscription) capacity() int { return len(s.buf) }

// close отключает очередь и будит ждущих. Повторный вызов ничего не делает.
func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	for i := range s.buf {
		s.buf[i] = buffer{}
	}
	s.head, s.count = 0, 0
}
