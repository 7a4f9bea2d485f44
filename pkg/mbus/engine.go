// Package mbus — внутрипроцессная шина сообщений: именованные темы,
// очереди подписчиков с ограниченной ёмкостью и кэш последнего значения.
//
// Движок не запускает своих горутин: Send, Peek, Publish и Subscribe
// выполняются в потоке вызывающего, блокируется только Recv.
package mbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Leegeev/mbus/pkg/config"
	"github.com/Leegeev/mbus/pkg/logger"
)

// Engine владеет реестром тем и управляет жизненным циклом шины.
type Engine struct {
	mu          sync.RWMutex // защищает всё ниже
	initialized bool
	gen         uint64 // поколение; меняется при каждом Init
	cfg         config.Bus
	policy      OverflowPolicy
	registry    *registry
	shutdown    chan struct{} // закрывается в Exit

	logger *slog.Logger
}

// Option настраивает Engine.
type Option func(*Engine)

// WithLogger задаёт логгер движка. По умолчанию логи отбрасываются.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New создаёт неинициализированный движок.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logger.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logger.Component("mbus"))
	return e
}

// Init разбирает строку конфигурации и инициализирует движок.
func (e *Engine) Init(raw string) error {
	const op = "init"
	if e.Initialized() {
		return opError(op, "", ErrAlreadyInitialized)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		return opError(op, "", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	return e.InitWithConfig(cfg)
}

// InitWithConfig инициализирует движок уже разобранной конфигурацией.
func (e *Engine) InitWithConfig(cfg config.Bus) error {
	const op = "init"

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return opError(op, "", ErrAlreadyInitialized)
	}
	if err := cfg.Validate(); err != nil {
		return opError(op, "", fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	}
	policy, err := ParseOverflow(cfg.Overflow)
	if err != nil {
		return opError(op, "", err)
	}

	e.gen++
	e.cfg = cfg
	e.policy = policy
	e.registry = newRegistry(cfg.MaxTopicName, cfg.MaxTopics, e.logger)
	e.shutdown = make(chan struct{})
	e.initialized = true

	e.logger.Info("bus initialized",
		logger.Count("queue_capacity", cfg.QueueCapacity),
		slog.String("overflow", policy.String()),
	)
	return nil
}

// Exit будит всех ждущих в Recv, закрывает темы и делает все дескрипторы недействительными.
func (e *Engine) Exit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return opError("exit", "", ErrNotInitialized)
	}

	// сначала shutdown, чтобы ждущие вернули ErrShuttingDown, а не ErrClosed
	close(e.shutdown)
	n := e.registry.shutdown()

	e.registry = nil
	e.initialized = false

	e.logger.Info("bus stopped", logger.Count("topics", n))
	return nil
}

// Initialized сообщает, инициализирован ли движок.
func (e *Engine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Publish возвращает дескриптор издателя темы, создавая тему при необходимости.
func (e *Engine) Publish(name string) (*Handle, error) {
	const op = "publish"

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return nil, opError(op, name, ErrNotInitialized)
	}
	t, err := e.registry.acquire(name)
	if err != nil {
		return nil, opError(op, name, err)
	}
	t.addPublisher()

	return &Handle{engine: e, gen: e.gen, topic: t, role: RolePublisher}, nil
}

// Subscribe возвращает дескриптор подписчика с очередью ёмкости из конфигурации.
func (e *Engine) Subscribe(name string) (*Handle, error) {
	return e.SubscribeWithCapacity(name, 0)
}

// SubscribeWithCapacity — как Subscribe, но с собственной ёмкостью очереди.
// capacity == 0 означает значение из конфигурации.
func (e *Engine) SubscribeWithCapacity(name string, capacity int) (*Handle, error) {
	const op = "subscribe"

	if capacity < 0 {
		return nil, opError(op, name, invalid("negative queue capacity %d", capacity))
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return nil, opError(op, name, ErrNotInitialized)
	}
	if capacity == 0 {
		capacity = e.cfg.QueueCapacity
	}
	t, err := e.registry.acquire(name)
	if err != nil {
		return nil, opError(op, name, err)
	}
	id, sub := t.addSubscriber(capacity, e.policy)

	return &Handle{engine: e, gen: e.gen, topic: t, role: RoleSubscriber, subID: id, sub: sub}, nil
}

// Peek передаёт в fn копию последнего значения темы по имени.
// Тему не создаёт: для неизвестного имени возвращает ErrNotFound.
func (e *Engine) Peek(name string, fn ReaderFunc) error {
	const op = "peek"
	if fn == nil {
		return opError(op, name, invalid("nil reader"))
	}

	e.mu.RLock()
	if !e.initialized {
		e.mu.RUnlock()
		return opError(op, name, ErrNotInitialized)
	}
	t, err := e.registry.lookup(name)
	if err != nil {
		e.mu.RUnlock()
		return opError(op, name, err)
	}
	b, ok := t.peek()
	e.mu.RUnlock()

	if !ok {
		return opError(op, name, ErrNotFound)
	}
	fn(b.data)
	return nil
}

// Stats возвращает счётчики всех тем, отсортированные по имени.
func (e *Engine) Stats() []TopicStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return nil
	}
	return e.registry.snapshot()
}
