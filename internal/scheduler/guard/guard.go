package guard

import "sync"

// Guard prevents overlapping runs of the same named job inside one
// process. Multi-instance overlap is handled by the Redis lock when one
// is configured.
type Guard struct {
	mu      sync.Mutex
	running map[string]bool
}

func New() *Guard {
	return &Guard{running: make(map[string]bool)}
}

func (g *Guard) TryAcquire(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[name] {
		return false
	}
	g.running[name] = true
	return true
}

func (g *Guard) Release(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, name)
}
