package mbus

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Leegeev/mbus/pkg/logger"
)

// Forever — таймаут Recv без ограничения по времени.
const Forever time.Duration = -1

// Role — роль дескриптора.
type Role int

const (
	RolePublisher Role = iota + 1
	RoleSubscriber
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Handle привязан к одной теме и одной роли.
// Действителен до Close или до Exit движка, который его выдал.
type Handle struct {
	engine *Engine
	gen    uint64
	topic  *topic
	role   Role

	subID uint64 // только для подписчика
	sub   *subscription

	closed atomic.Bool
}

func (h *Handle) Topic() string { return h.topic.name }

func (h *Handle) Role() Role { return h.role }

// check вызывается под engine.mu.RLock.
func (h *Handle) check(op string) error {
	e := h.engine
	if !e.initialized || h.gen != e.gen {
		return opError(op, h.topic.name, ErrNotInitialized)
	}
	if h.closed.Load() {
		return opError(op, h.topic.name, ErrClosed)
	}
	return nil
}

// Send копирует data и рассылает всем текущим подписчикам темы,
// заодно обновляя последнее значение. Никогда не блокируется на подписчиках.
func (h *Handle) Send(data []byte) error {
	const op = "send"
	if h == nil {
		return opError(op, "", invalid("nil handle"))
	}

	e := h.engine
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := h.check(op); err != nil {
		return err
	}
	if h.role != RolePublisher {
		return opError(op, h.topic.name, invalid("send on %s handle", h.role))
	}
	if limit := e.cfg.MaxPayload; limit > 0 && len(data) > limit {
		return opError(op, h.topic.name, fmt.Errorf("%w: payload is %d bytes, limit is %d", ErrResourceExhausted, len(data), limit))
	}

	if dropped := h.topic.send(data); dropped > 0 {
		e.logger.Debug("queue overflow", logger.Topic(h.topic.name), logger.Count("dropped", dropped))
	}
	return nil
}

// Recv забирает самое старое сообщение из очереди подписчика и передаёт его в fn.
//
// timeout == 0 — только проверить очередь; timeout < 0 (Forever) — ждать
// до сообщения или Exit; иначе ждать не дольше timeout и вернуть ErrTimeout.
func (h *Handle) Recv(timeout time.Duration, fn ReaderFunc) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	return h.recv(context.Background(), deadline, timeout == 0, fn)
}

// RecvContext ждёт сообщение до Exit или отмены ctx (тогда возвращает ctx.Err()).
func (h *Handle) RecvContext(ctx context.Context, fn ReaderFunc) error {
	return h.recv(ctx, nil, false, fn)
}

func (h *Handle) recv(ctx context.Context, deadline <-chan time.Time, poll bool, fn ReaderFunc) error {
	const op = "recv"
	if h == nil {
		return opError(op, "", invalid("nil handle"))
	}
	if fn == nil {
		return opError(op, h.topic.name, invalid("nil reader"))
	}

	e := h.engine
	e.mu.RLock()
	if err := h.check(op); err != nil {
		e.mu.RUnlock()
		return err
	}
	if h.role != RoleSubscriber {
		e.mu.RUnlock()
		return opError(op, h.topic.name, invalid("recv on %s handle", h.role))
	}
	shutdown := e.shutdown
	e.mu.RUnlock()

	var (
		b   buffer
		err error
	)
	if poll {
		var ok bool
		if b, ok = h.sub.pop(); !ok {
			err = ErrTimeout
		}
	} else {
		b, err = h.sub.wait(ctx, deadline, shutdown)
	}
	if err != nil {
		return opError(op, h.topic.name, err)
	}

	fn(b.data)
	return nil
}

// Peek передаёт в fn копию последнего отправленного значения, не изменяя его.
// Доступен обеим ролям. ErrNotFound, если в тему ещё ничего не отправляли.
func (h *Handle) Peek(fn ReaderFunc) error {
	const op = "peek"
	if h == nil {
		return opError(op, "", invalid("nil handle"))
	}
	if fn == nil {
		return opError(op, h.topic.name, invalid("nil reader"))
	}

	e := h.engine
	e.mu.RLock()
	if err := h.check(op); err != nil {
		e.mu.RUnlock()
		return err
	}
	b, ok := h.topic.peek()
	e.mu.RUnlock()

	if !ok {
		return opError(op, h.topic.name, ErrNotFound)
	}
	fn(b.data)
	return nil
}

// Pending — число сообщений в очереди подписчика.
func (h *Handle) Pending() int {
	if h.sub == nil {
		return 0
	}
	return h.sub.len()
}

// Close освобождает дескриптор: очередь подписчика удаляется из темы,
// ждущие в Recv получают ErrClosed, тема без дескрипторов удаляется.
// Повторный Close ничего не делает.
func (h *Handle) Close() error {
	const op = "close"
	if h == nil {
		return opError(op, "", invalid("nil handle"))
	}

	e := h.engine
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized || h.gen != e.gen {
		return opError(op, h.topic.name, ErrNotInitialized)
	}
	if h.closed.Swap(true) {
		return nil
	}

	if h.role == RoleSubscriber {
		h.topic.removeSubscriber(h.subID)
	} else {
		h.topic.removePublisher()
	}
	e.registry.release(h.topic)
	return nil
}
