package collective

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Group is an in-process rendezvous for size goroutine workers.
type Group struct {
	mu     sync.Mutex
	size   int
	rounds map[uint64]*round
}

type round struct {
	values  []float64
	arrived *Arrivals
	done    chan struct{}
	read    int
}

// NewGroup creates a group of size ranks.
func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: group size %d", ErrParticipantMismatch, size)
	}
	return &Group{
		size:   size,
		rounds: make(map[uint64]*round),
	}, nil
}

// Size returns the number of ranks in the group.
func (g *Group) Size() int { return g.size }

// Member returns the Gatherer for rank.
func (g *Group) Member(rank int) (*Member, error) {
	if rank < 0 || rank >= g.size {
		return nil, fmt.Errorf("%w: rank %d outside world of %d", ErrParticipantMismatch, rank, g.size)
	}
	return &Member{group: g, rank: rank}, nil
}

// Members returns one Gatherer per rank, indexed by rank.
func (g *Group) Members() []*Member {
	out := make([]*Member, g.size)
	for r := range out {
		out[r] = &Member{group: g, rank: r}
	}
	return out
}

func (g *Group) contribute(id uint64, rank int, v float64) (*round, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rounds[id]
	if !ok {
		r = &round{
			values:  make([]float64, g.size),
			arrived: NewArrivals(g.size),
			done:    make(chan struct{}),
		}
		g.rounds[id] = r
	}

	if err := r.arrived.Add(rank); err != nil {
		return nil, err
	}
	r.values[rank] = v
	if r.arrived.Complete() {
		close(r.done)
	}
	return r, nil
}

func (g *Group) release(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rounds[id]
	if !ok {
		return
	}
	r.read++
	if r.read == g.size {
		delete(g.rounds, id)
	}
}

// Member is one rank of a Group.
type Member struct {
	group *Group
	rank  int

	mu   sync.Mutex
	next uint64
}

var _ Gatherer = (*Member)(nil)

// Rank returns the member's rank.
func (m *Member) Rank() int { return m.rank }

// WorldSize returns the group size.
func (m *Member) WorldSize() int { return m.group.size }

// AllGather blocks until every rank contributed to the current round.
// A cancelled context fails the gather for this member only; the round stays
// open for the others.
func (m *Member) AllGather(ctx context.Context, v float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("all-gather", err)
	}

	m.mu.Lock()
	id := m.next
	m.next++
	m.mu.Unlock()

	r, err := m.group.contribute(id, m.rank, v)
	if err != nil {
		return nil, err
	}

	defer m.group.release(id)

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, wrap(fmt.Sprintf("round %d", id), ctx.Err())
	}
	return slices.Clone(r.values), nil
}
