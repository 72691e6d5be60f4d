package engine

import (
	"sync"
	"time"
)

type memoryEntry struct {
	engine    string
	expiresAt time.Time
}

// DomainMemory remembers the engine that last worked for each domain.
// Entries expire after ttl; expired entries are dropped on read and by an
// hourly sweep.
type DomainMemory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewDomainMemory starts a memory with the given ttl. Call Stop to end the
// sweep goroutine.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	m := &DomainMemory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Get returns the remembered engine for domain, or "".
func (m *DomainMemory) Get(domain string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[domain]
	if !ok {
		return ""
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, domain)
		return ""
	}
	return e.engine
}

func (m *DomainMemory) Set(domain, engine string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[domain] = memoryEntry{engine: engine, expiresAt: m.now().Add(m.ttl)}
}

func (m *DomainMemory) Delete(domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, domain)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (m *DomainMemory) Stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *DomainMemory) sweepLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *DomainMemory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for domain, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, domain)
		}
	}
}
