// Package pool rotates petitions through the unseen, court, seen and dead buckets.
//
// Every petition lives in one arena slot tagged with its bucket; each bucket is
// an ordered index set over the arena. The Scheduler is the only mutator.
package pool

import (
	"fmt"
	"math/rand"

	"github.com/rogersf/court-engine/internal/catalog"
	"github.com/rogersf/court-engine/internal/domain"
)

// Bucket is the pool a petition currently belongs to.
type Bucket uint8

const (
	Unseen Bucket = iota
	Court
	Seen
	Dead
	numBuckets
)

func (b Bucket) String() string {
	switch b {
	case Unseen:
		return "unseen"
	case Court:
		return "court"
	case Seen:
		return "seen"
	case Dead:
		return "dead"
	default:
		return fmt.Sprintf("bucket(%d)", uint8(b))
	}
}

// Petition is a session-scoped wrapper around an event definition.
type Petition struct {
	ID         int
	Def        *catalog.EventDefinition
	Bucket     Bucket
	DaysWaited int
}

// Counts is the size of each bucket.
type Counts struct {
	Unseen int `json:"unseen"`
	Court  int `json:"court"`
	Seen   int `json:"seen"`
	Dead   int `json:"dead"`
}

// Total is the number of petitions across all buckets.
func (c Counts) Total() int { return c.Unseen + c.Court + c.Seen + c.Dead }

// RefillReport describes one refill pass.
type RefillReport struct {
	Drawn    int `json:"drawn"`
	Recycled int `json:"recycled"`
	// UnderCapacity is set when content ran out before the court was full.
	UnderCapacity bool `json:"under_capacity"`
}

// Scheduler owns the petition arena and its buckets.
type Scheduler struct {
	rng     *rand.Rand
	arena   []*Petition
	buckets [numBuckets][]int
}

// New places one petition per definition into the unseen bucket.
func New(defs []*catalog.EventDefinition, rng *rand.Rand) *Scheduler {
	s := &Scheduler{rng: rng, arena: make([]*Petition, len(defs))}
	for i, d := range defs {
		s.arena[i] = &Petition{ID: i, Def: d, Bucket: Unseen}
		s.buckets[Unseen] = append(s.buckets[Unseen], i)
	}
	return s
}

// RefillCourt ages every court petition by one day, evicts those that waited
// longer than waitLimit into seen, then draws from unseen until the court
// holds capacity petitions. When unseen is empty the seen bucket is recycled
// into it; when both are empty the pass stops early.
func (s *Scheduler) RefillCourt(capacity, waitLimit int) ([]Petition, RefillReport) {
	var rep RefillReport
	var evicted []Petition

	var expired []int
	for _, id := range s.buckets[Court] {
		p := s.arena[id]
		p.DaysWaited++
		if p.DaysWaited > waitLimit {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.move(id, Seen)
		evicted = append(evicted, *s.arena[id])
	}

	for len(s.buckets[Court]) < capacity {
		if n := len(s.buckets[Unseen]); n > 0 {
			id := s.buckets[Unseen][s.rng.Intn(n)]
			s.move(id, Court)
			s.arena[id].DaysWaited = 0
			rep.Drawn++
			continue
		}
		if len(s.buckets[Seen]) > 0 {
			s.recycle()
			rep.Recycled++
			continue
		}
		break
	}
	rep.UnderCapacity = len(s.buckets[Court]) < capacity
	return evicted, rep
}

// Resolve removes a petition from court, retiring it to dead when lethal.
func (s *Scheduler) Resolve(id int, lethal bool) error {
	if id < 0 || id >= len(s.arena) || s.arena[id].Bucket != Court {
		return domain.ErrPetitionNotFound
	}
	if lethal {
		s.move(id, Dead)
	} else {
		s.move(id, Seen)
	}
	return nil
}

// Court returns the petitions in court in draw order.
func (s *Scheduler) Court() []Petition {
	out := make([]Petition, 0, len(s.buckets[Court]))
	for _, id := range s.buckets[Court] {
		out = append(out, *s.arena[id])
	}
	return out
}

// Get returns a copy of the petition with the given id.
func (s *Scheduler) Get(id int) (Petition, bool) {
	if id < 0 || id >= len(s.arena) {
		return Petition{}, false
	}
	return *s.arena[id], true
}

// Counts returns the size of each bucket.
func (s *Scheduler) Counts() Counts {
	return Counts{
		Unseen: len(s.buckets[Unseen]),
		Court:  len(s.buckets[Court]),
		Seen:   len(s.buckets[Seen]),
		Dead:   len(s.buckets[Dead]),
	}
}

// Exhausted reports whether no petition can ever reach the court again.
func (s *Scheduler) Exhausted() bool {
	return len(s.buckets[Court]) == 0 && len(s.buckets[Unseen]) == 0 && len(s.buckets[Seen]) == 0
}

// CheckInvariants verifies that every petition is a member of exactly the
// bucket it is tagged with.
func (s *Scheduler) CheckInvariants() error {
	seen := make([]int, len(s.arena))
	for b := Bucket(0); b < numBuckets; b++ {
		for _, id := range s.buckets[b] {
			if id < 0 || id >= len(s.arena) {
				return domain.NewGameError(domain.ErrPoolInvariant.Code, fmt.Sprintf("%s holds unknown petition %d", b, id))
			}
			if got := s.arena[id].Bucket; got != b {
				return domain.NewGameError(domain.ErrPoolInvariant.Code, fmt.Sprintf("petition %d listed in %s but tagged %s", id, b, got))
			}
			seen[id]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			return domain.NewGameError(domain.ErrPoolInvariant.Code, fmt.Sprintf("petition %d appears in %d buckets", id, n))
		}
	}
	return nil
}

// recycle moves the whole seen bucket back into unseen. Dead is untouched.
func (s *Scheduler) recycle() {
	for _, id := range s.buckets[Seen] {
		s.arena[id].Bucket = Unseen
		s.arena[id].DaysWaited = 0
	}
	s.buckets[Unseen] = append(s.buckets[Unseen], s.buckets[Seen]...)
	s.buckets[Seen] = s.buckets[Seen][:0]
}

func (s *Scheduler) move(id int, to Bucket) {
	p := s.arena[id]
	from := s.buckets[p.Bucket]
	for i, v := range from {
		if v == id {
			s.buckets[p.Bucket] = append(from[:i], from[i+1:]...)
			break
		}
	}
	p.Bucket = to
	s.buckets[to] = append(s.buckets[to], id)
}
