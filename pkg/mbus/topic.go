package mbus

import (
	"sync"
	"sync/atomic"
)

// TopicStats — снимок счётчиков темы.
type TopicStats struct {
	Name         string
	Publishers   int
	Subscribers  int
	Sent         uint64
	Delivered    uint64
	Dropped      uint64
	HasLastValue bool
}

// topic хранит последнее значение и очереди подписчиков для одного имени.
type topic struct {
	name string
	refs atomic.Int64 // меняется под registry.mu (кроме быстрого пути acquire)

	mu         sync.RWMutex // защищает всё ниже
	publishers int
	subs       map[uint64]*subscription // подписчики по id
	nextID     uint64                   // автонумерация подписчиков
	last       *buffer                  // последнее отправленное значение

	sent      atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func newTopic(name string) *topic {
	return &topic{
		name:   name,
		subs:   make(map[uint64]*subscription),
		nextID: 1,
	}
}

func (t *topic) addPublisher() {
	t.mu.Lock()
	t.publishers++
	t.mu.Unlock()
}

func (t *topic) removePublisher() {
	t.mu.Lock()
	if t.publishers > 0 {
		t.publishers--
	}
	t.mu.Unlock()
}

// addSubscriber заводит новую пустую очередь.
func (t *topic) addSubscriber(capacity int, policy OverflowPolicy) (uint64, *subscription) {
	s := newSubscription(capacity, policy)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = s
	t.mu.Unlock()

	return id, s
}

// removeSubscriber убирает подписчика по id и закрывает его очередь.
func (t *topic) removeSubscriber(id uint64) {
	t.mu.Lock()
	s, ok := t.subs[id]
	delete(t.subs, id)
	t.mu.Unlock()

	if ok {
		s.close()
	}
}

// send обновляет последнее значение и рассылает копии всем очередям.
// Возвращает число потерянных из-за переполнения сообщений.
func (t *topic) send(data []byte) int {
	b := newBuffer(data)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = &b
	dropped := 0
	for _, s := range t.subs {
		accepted, lost := s.push(b.clone())
		if accepted {
			t.delivered.Add(1)
		}
		if lost {
			dropped++
		}
	}
	t.sent.Add(1)
	t.dropped.Add(uint64(dropped))
	return dropped
}

// peek возвращает копию последнего значения, не трогая его.
func (t *topic) peek() (buffer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.last == nil {
		return buffer{}, false
	}
	return t.last.clone(), true
}

// shutdown закрывает все очереди и забывает последнее значение.
func (t *topic) shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, s := range t.subs {
		s.close()
		delete(t.subs, id)
	}
	t.last = nil
}

func (t *topic) stats() TopicStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TopicStats{
		Name:         t.name,
		Publishers:   t.publishers,
		Subscribers:  len(t.subs),
		Sent:         t.sent.Load(),
		Delivered:    t.delivered.Load(),
		Dropped:      t.dropped.Load(),
		HasLastValue: t.last != nil,
	}
}
