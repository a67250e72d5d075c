// Flow-field keeps every roster in a process-wide table sharded by roster name.
// Each shard guards its slice of the table with one RWMutex, so operations on
// rosters living in different shards never contend. The roster list itself is
// not thread-safe; the shard lock is what gives each list its exclusive owner.

package registry

import (
	"cmp"
	"flag"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/jessonx/flow-field/pkg/list"
	"github.com/jessonx/flow-field/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shardCountFlag = flag.Int("roster_shard_count", runtime.NumCPU(),
		"The number of lock shards the roster table is split into.")

	rosterOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_ops_total",
		Help: "Total number of roster operations served.",
	}, []string{"op"})
	liveRosters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rosters",
		Help: "Number of rosters currently held by the registry.",
	})
)

// Entity is a roster member: a stable identifier plus a free-form attachment.
// Two entities are the same member exactly when their IDs match; Data rides
// along and never takes part in identity.
type Entity struct {
	ID   string
	Data string
}

// entityID is the identity extractor every roster list is built around.
func entityID(e Entity) string { return e.ID }

// compareEntities orders entities by ID byte order.
func compareEntities(x, y Entity) int { return cmp.Compare(x.ID, y.ID) }

// shard owns one slice of the roster table under a single lock.
type shard struct {
	mux     sync.RWMutex
	rosters map[string]*list.List[string, Entity]
}

// Registry is the sharded roster table. The zero value is not usable; build
// instances with New.
type Registry struct {
	shards []*shard
	logger *slog.Logger
}

// New builds an empty registry with the flag-configured shard count.
// A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	count := *shardCountFlag
	// Ensure there is at least one shard.
	if count <= 0 {
		utils.RaiseInvariant("registry", "negative_shard_count",
			"Invalid shard count has been given to the registry.", "shardCount", count)
		count = 1
	}
	r := &Registry{shards: make([]*shard, count), logger: logger}
	for i := range count {
		r.shards[i] = &shard{rosters: make(map[string]*list.List[string, Entity])}
	}
	return r
}

// getShard determines which shard a roster belongs to. It does this by hashing
// the roster name and using the modulo operator to map the hash value to a
// shard index.
func (r *Registry) getShard(roster string) *shard {
	return r.shards[xxhash.Sum64String(roster)%uint64(len(r.shards))]
}

// Add appends the entity to the named roster, creating the roster on first
// use. It reports whether the entity was linked in; adding an entity that is
// already a member changes nothing and returns false.
func (r *Registry) Add(roster string, e Entity) bool {
	rosterOps.WithLabelValues("add").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	if !exists {
		l = list.New(entityID, r.logger)
		s.rosters[roster] = l
		liveRosters.Inc()
		r.logger.Debug("Created roster.", "roster", roster, "listId", l.ID())
	}
	return l.Add(e)
}

// Has reports whether the entity is currently a member of the named roster.
// A missing roster holds nobody.
func (r *Registry) Has(roster string, e Entity) bool {
	rosterOps.WithLabelValues("has").Inc()
	s := r.getShard(roster)
	s.mux.RLock()
	defer s.mux.RUnlock()

	l, exists := s.rosters[roster]
	return exists && l.Has(e)
}

// Member returns the live member of the named roster carrying the given ID,
// complete with its Data attachment.
func (r *Registry) Member(roster, id string) (Entity, bool) {
	rosterOps.WithLabelValues("member").Inc()
	s := r.getShard(roster)
	s.mux.RLock()
	defer s.mux.RUnlock()

	l, exists := s.rosters[roster]
	if !exists {
		return Entity{}, false
	}
	return l.Get(id)
}

// Remove drops the entity from the named roster and reports whether it was a
// member. Removing from a missing roster returns false.
func (r *Registry) Remove(roster string, e Entity) bool {
	rosterOps.WithLabelValues("remove").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	return exists && l.Remove(e)
}

// MoveUp moves the entity one position toward the roster front. A missing
// roster or a non-member entity yields list.ErrNotMember.
func (r *Registry) MoveUp(roster string, e Entity) error {
	rosterOps.WithLabelValues("move_up").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	if !exists {
		return list.ErrNotMember
	}
	return l.MoveUp(e)
}

// MoveDown moves the entity one position toward the roster back. A missing
// roster or a non-member entity yields list.ErrNotMember.
func (r *Registry) MoveDown(roster string, e Entity) error {
	rosterOps.WithLabelValues("move_down").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	if !exists {
		return list.ErrNotMember
	}
	return l.MoveDown(e)
}

// Sort orders the roster by entity ID; descending flips the order. Sorting a
// missing roster is a no-op.
func (r *Registry) Sort(roster string, descending bool) {
	rosterOps.WithLabelValues("sort").Inc()
	var compare utils.CompareFn[Entity] = compareEntities
	if descending {
		compare = utils.Reverse(compare)
	}
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	if l, exists := s.rosters[roster]; exists {
		l.Sort(compare)
	}
}

// Members returns the roster's entity IDs front to back. A missing roster
// yields nil.
func (r *Registry) Members(roster string) []string {
	rosterOps.WithLabelValues("members").Inc()
	s := r.getShard(roster)
	s.mux.RLock()
	defer s.mux.RUnlock()

	l, exists := s.rosters[roster]
	if !exists {
		return nil
	}
	ids := make([]string, 0, l.Len())
	for id := range l.All() {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of members in the named roster, 0 when missing.
func (r *Registry) Len(roster string) int {
	rosterOps.WithLabelValues("len").Inc()
	s := r.getShard(roster)
	s.mux.RLock()
	defer s.mux.RUnlock()

	if l, exists := s.rosters[roster]; exists {
		return l.Len()
	}
	return 0
}

// Shift removes and returns the roster's front entity.
func (r *Registry) Shift(roster string) (Entity, bool) {
	rosterOps.WithLabelValues("shift").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	if !exists {
		return Entity{}, false
	}
	return l.Shift()
}

// Pop removes and returns the roster's back entity.
func (r *Registry) Pop(roster string) (Entity, bool) {
	rosterOps.WithLabelValues("pop").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	if !exists {
		return Entity{}, false
	}
	return l.Pop()
}

// Clear empties the named roster in one pass. The roster itself survives and
// keeps its recycled nodes; clearing a missing roster is a no-op.
func (r *Registry) Clear(roster string) {
	rosterOps.WithLabelValues("clear").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	if l, exists := s.rosters[roster]; exists {
		l.Clear()
	}
}

// Destroy tears the roster down and forgets its name, so a later Add starts a
// brand-new roster. It reports whether the roster existed.
func (r *Registry) Destroy(roster string) bool {
	rosterOps.WithLabelValues("destroy").Inc()
	s := r.getShard(roster)
	s.mux.Lock()
	defer s.mux.Unlock()

	l, exists := s.rosters[roster]
	if !exists {
		return false
	}
	l.Destroy()
	delete(s.rosters, roster)
	liveRosters.Dec()
	return true
}

// Dump logs the roster's chain layout at Debug level.
func (r *Registry) Dump(roster string) {
	rosterOps.WithLabelValues("dump").Inc()
	s := r.getShard(roster)
	s.mux.RLock()
	defer s.mux.RUnlock()

	if l, exists := s.rosters[roster]; exists {
		l.Dump()
	} else {
		r.logger.Debug("No such roster.", "roster", roster)
	}
}

// Rosters returns the names of every live roster, sorted so the listing does
// not depend on the shard layout.
func (r *Registry) Rosters() []string {
	rosterOps.WithLabelValues("rosters").Inc()
	names := make([]string, 0)
	for _, s := range r.shards {
		s.mux.RLock()
		names = append(names, slices.Collect(maps.Keys(s.rosters))...)
		s.mux.RUnlock()
	}
	slices.Sort(names)
	return names
}
