package mbus

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Leegeev/mbus/pkg/logger"
)

// registry — таблица тем по имени со счётчиком ссылок.
type registry struct {
	mu     sync.RWMutex      // защищает topics и refs при вытеснении
	topics map[string]*topic // одна тема на имя

	maxName   int
	maxTopics int
	logger    *slog.Logger
}

func newRegistry(maxName, maxTopics int, log *slog.Logger) *registry {
	return &registry{
		topics:    make(map[string]*topic),
		maxName:   maxName,
		maxTopics: maxTopics,
		logger:    log,
	}
}

func (r *registry) validate(name string) error {
	switch {
	case name == "":
		return invalid("topic name must not be empty")
	case len(name) > r.maxName:
		return invalid("topic name is %d bytes, limit is %d", len(name), r.maxName)
	case strings.IndexByte(name, 0) >= 0:
		return invalid("topic name contains NUL byte")
	}
	return nil
}

// acquire находит или создаёт тему и берёт на неё ссылку.
// Одновременные вызовы с одним именем получают один и тот же *topic.
func (r *registry) acquire(name string) (*topic, error) {
	if err := r.validate(name); err != nil {
		return nil, err
	}

	// release держит write lock, поэтому тема под RLock не может быть вытеснена
	r.mu.RLock()
	t, ok := r.topics[name]
	if ok {
		t.refs.Add(1)
	}
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok = r.topics[name]
	if !ok {
		if r.maxTopics > 0 && len(r.topics) >= r.maxTopics {
			return nil, fmt.Errorf("%w: topic limit %d reached", ErrResourceExhausted, r.maxTopics)
		}
		t = newTopic(name)
		r.topics[name] = t
		r.logger.Debug("topic created", logger.Topic(name))
	}
	t.refs.Add(1)
	return t, nil
}

// lookup возвращает тему без создания и без взятия ссылки.
func (r *registry) lookup(name string) (*topic, error) {
	if err := r.validate(name); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.topics[name]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// release отпускает ссылку; тема без ссылок удаляется из таблицы.
func (r *registry) release(t *topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.refs.Add(-1) > 0 {
		return
	}
	if cur, ok := r.topics[t.name]; ok && cur == t {
		delete(r.topics, t.name)
		t.shutdown()
		r.logger.Debug("topic evicted", logger.Topic(t.name))
	}
}

func (r *registry) snapshot() []TopicStats {
	r.mu.RLock()
	out := make([]TopicStats, 0, len(r.topics))
	for _, t := range r.topics {
		out = append(out, t.stats())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// shutdown закрывает все темы и очищает таблицу. Возвращает число тем.
func (r *registry) shutdown() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.topics)
	for name, t := range r.topics {
		t.shutdown()
		delete(r.topics, name)
	}
	return n
}
