package ecs

// EntityID identifies a live entity. IDs are never 0 (0 means "no entity") and
// are handed out again after the entity is destroyed.
type EntityID uint32

func (id EntityID) IsZero() bool { return id == 0 }

// EntityPool manages entity allocation with a free list. The slot index of an
// entity is id-1.
type EntityPool struct {
	alive     []bool
	freeList  []EntityID
	liveCount int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		alive:    make([]bool, 0, 1024),
		freeList: make([]EntityID, 0, 256),
	}
}

func (p *EntityPool) Create() EntityID {
	p.liveCount++
	if n := len(p.freeList); n > 0 {
		id := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.alive[id-1] = true
		return id
	}
	p.alive = append(p.alive, true)
	return EntityID(len(p.alive))
}

func (p *EntityPool) Alive(id EntityID) bool {
	if id == 0 || int(id) > len(p.alive) {
		return false
	}
	return p.alive[id-1]
}

// Destroy releases id for reuse. Destroying a dead id is a no-op.
func (p *EntityPool) Destroy(id EntityID) {
	if !p.Alive(id) {
		return
	}
	p.alive[id-1] = false
	p.liveCount--
	p.freeList = append(p.freeList, id)
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int {
	return p.liveCount
}
