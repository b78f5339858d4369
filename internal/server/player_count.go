package server

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// PlayerCount is shared by the listener, which reserves slots during login,
// and the tick loop, which frees them on removal. It also tracks which
// uuids hold a registered client so a full server can still admit a player
// replacing their own session.
type PlayerCount struct {
	n   atomic.Int32
	max int32

	mu     sync.Mutex
	online map[uuid.UUID]int
}

func NewPlayerCount(max int) *PlayerCount {
	return &PlayerCount{max: int32(max), online: map[uuid.UUID]int{}}
}

// TryAcquire reserves a slot. It fails once Max slots are taken.
func (p *PlayerCount) TryAcquire() bool {
	for {
		cur := p.n.Load()
		if cur >= p.max {
			return false
		}
		if p.n.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (p *PlayerCount) Release() {
	for {
		cur := p.n.Load()
		if cur <= 0 {
			return
		}
		if p.n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (p *PlayerCount) Get() int { return int(p.n.Load()) }
func (p *PlayerCount) Max() int { return int(p.max) }

func (p *PlayerCount) MarkOnline(id uuid.UUID) {
	p.mu.Lock()
	p.online[id]++
	p.mu.Unlock()
}

func (p *PlayerCount) MarkOffline(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online[id] <= 1 {
		delete(p.online, id)
		return
	}
	p.online[id]--
}

// Online reports whether a registered client currently holds id.
func (p *PlayerCount) Online(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[id] > 0
}
