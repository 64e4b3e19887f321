package status

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store holds one Status per prompt id, guarded by a single mutex, and fans
// out every update to subscribers registered for that prompt id. It is the
// in-process source of truth; Broadcaster implementations (see redis.go) may
// additionally externalize updates but never read them back.
type Store struct {
	mu          sync.Mutex
	entries     map[string]*entry
	subscribers map[string]map[string]chan Status
	broadcaster Broadcaster
	ttl         time.Duration
}

// Broadcaster is notified of every committed status update, in addition to
// the in-memory subscriber fan-out. Publish is called synchronously after the
// store's mutex is released, so a slow broadcaster delays the Update call
// that triggered it but never holds up other callers waiting on the mutex.
type Broadcaster interface {
	Publish(ctx context.Context, promptID string, s Status)
}

// NewStore constructs an empty Store. broadcaster may be nil.
func NewStore(ttl time.Duration, broadcaster Broadcaster) *Store {
	return &Store{
		entries:     make(map[string]*entry),
		subscribers: make(map[string]map[string]chan Status),
		broadcaster: broadcaster,
		ttl:         ttl,
	}
}

// Get returns the current Status for promptID, or InitialStatus() if the
// prompt id has never been observed.
func (s *Store) Get(promptID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getUnsafe(promptID)
}

func (s *Store) getUnsafe(promptID string) Status {
	if e, ok := s.entries[promptID]; ok {
		return e.status
	}
	return InitialStatus()
}

// Update applies patch to promptID's status, auto-extending the avatar slot
// list to match the slide count whenever a slide structure is present, and
// notifies every live subscriber and the broadcaster (if any) with the
// resulting Status.
func (s *Store) Update(ctx context.Context, promptID string, patch StatusPatch) Status {
	return s.commit(ctx, promptID, func(base *Status) {
		applyPatch(promptID, base, patch)
	})
}

// IncrementSlideGeneration adds one to promptID's materialized-slide count.
// The increment happens inside the store's critical section, so concurrent
// materialization workers each observe a distinct count and the stored value
// never regresses.
func (s *Store) IncrementSlideGeneration(ctx context.Context, promptID string) Status {
	return s.commit(ctx, promptID, func(base *Status) {
		base.StepSlideGeneration++
	})
}

// commit runs mutate on promptID's status under the mutex, stores the
// result, and fans it out to subscribers and the broadcaster.
func (s *Store) commit(ctx context.Context, promptID string, mutate func(*Status)) Status {
	s.mu.Lock()
	base := s.getUnsafe(promptID)
	mutate(&base)

	s.entries[promptID] = &entry{status: base, lastUpdated: time.Now()}
	// Fan out in subscription order; refs are an increasing counter.
	refs := make([]string, 0, len(s.subscribers[promptID]))
	for ref := range s.subscribers[promptID] {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return len(refs[i]) < len(refs[j]) || (len(refs[i]) == len(refs[j]) && refs[i] < refs[j]) })
	subs := make([]chan Status, 0, len(refs))
	for _, ref := range refs {
		subs = append(subs, s.subscribers[promptID][ref])
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- base:
		default:
			// slow subscriber; drop rather than block the update path.
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.Publish(ctx, promptID, base)
	}
	return base
}

func applyPatch(promptID string, base *Status, patch StatusPatch) {
	if patch.StepUnderstanding != nil {
		base.StepUnderstanding = *patch.StepUnderstanding
	}
	if patch.StepLookup != nil {
		base.StepLookup = *patch.StepLookup
	}
	if patch.StepLectureScriptGeneration != nil {
		base.StepLectureScriptGeneration = *patch.StepLectureScriptGeneration
	}
	if patch.StepSlideStructureGeneration != nil {
		base.StepSlideStructureGeneration = *patch.StepSlideStructureGeneration
	}
	if patch.StepSlideGeneration != nil {
		base.StepSlideGeneration = *patch.StepSlideGeneration
	}
	if patch.StepSlidePostprocessing != nil {
		base.StepSlidePostprocessing = *patch.StepSlidePostprocessing
	}
	if patch.LectureSummary != nil {
		base.LectureSummary = patch.LectureSummary
	}
	if patch.SlideStructure != nil {
		base.SlideStructure = patch.SlideStructure
	}

	if base.SlideStructure != nil && len(base.StepsAvatarGeneration) < len(base.SlideStructure.Pages) {
		grow := len(base.SlideStructure.Pages) - len(base.StepsAvatarGeneration)
		for i := 0; i < grow; i++ {
			base.StepsAvatarGeneration = append(base.StepsAvatarGeneration, AvatarElementStatus{
				Audio: NotStarted,
				Video: NotStarted,
			})
		}
	}

	if len(patch.StepsAvatarGeneration) > 0 && len(base.StepsAvatarGeneration) > 0 {
		// Copy before writing slots; earlier published snapshots share the
		// old backing array.
		base.StepsAvatarGeneration = append([]AvatarElementStatus(nil), base.StepsAvatarGeneration...)
	}
	for k, v := range patch.StepsAvatarGeneration {
		idx, ok := parseSlideIndex(k)
		if !ok || idx < 0 || idx >= len(base.StepsAvatarGeneration) {
			log.Error().Str("promptId", promptID).Str("key", k).Msg("status: avatar generation patch key out of range, dropping")
			continue
		}
		base.StepsAvatarGeneration[idx] = v
	}
}

// Subscribe registers a channel that receives every future Status update for
// promptID, starting with the current status. The returned func unsubscribes
// and must be called exactly once.
func (s *Store) Subscribe(promptID string) (<-chan Status, func()) {
	ch := make(chan Status, 8)
	ref := newSubscriberRef()

	s.mu.Lock()
	if s.subscribers[promptID] == nil {
		s.subscribers[promptID] = make(map[string]chan Status)
	}
	s.subscribers[promptID][ref] = ch
	current := s.getUnsafe(promptID)
	s.mu.Unlock()

	select {
	case ch <- current:
	default:
	}

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers[promptID], ref)
		if len(s.subscribers[promptID]) == 0 {
			delete(s.subscribers, promptID)
		}
	}
	return ch, unsubscribe
}

// PurgeStale drops every entry whose last update is older than the store's
// TTL. Update does not call it; it runs periodically on a cron schedule so
// idle prompts are reclaimed even without further traffic.
func (s *Store) PurgeStale(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, e := range s.entries {
		if now.Sub(e.lastUpdated) > s.ttl {
			delete(s.entries, id)
			purged++
		}
	}
	return purged
}
