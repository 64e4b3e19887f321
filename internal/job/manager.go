// Package job tracks per-prompt progress through the slide-generation
// sub-pipeline: how many pages are required, how many have completed, and
// whether the deck has been uploaded to the post-processor.
package job

import (
	"sync"
	"time"
)

// Record is the per-prompt progress snapshot returned by GetStatus.
type Record struct {
	Total       int
	Achieved    int
	Error       bool
	Uploaded    bool
	WebURL      string
	PDFURL      string
	LastUpdated time.Time
}

// DerivedStatus summarizes a Record the way the slides status endpoint
// reports it: DONE iff uploaded, fully achieved and never errored; FAILED if
// an error was ever recorded; IN_PROGRESS otherwise.
func (r Record) DerivedStatus() string {
	switch {
	case r.Error:
		return "FAILED"
	case r.Uploaded && r.Achieved == r.Total:
		return "DONE"
	default:
		return "IN_PROGRESS"
	}
}

// Manager tracks one Record per prompt id behind a single mutex, evicting
// entries whose last update exceeds the configured TTL.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Record
	ttl  time.Duration
}

// NewManager constructs an empty Manager with the given eviction TTL.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{jobs: make(map[string]*Record), ttl: ttl}
}

// Init starts tracking promptId with the given required page count,
// replacing any prior record for the same id.
func (m *Manager) Init(promptID string, totalPages int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(time.Now())
	m.jobs[promptID] = &Record{Total: totalPages, LastUpdated: time.Now()}
}

// FinishPage records completion of one slide's materialization.
func (m *Manager) FinishPage(promptID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(time.Now())
	if r, ok := m.jobs[promptID]; ok {
		r.Achieved++
		r.LastUpdated = time.Now()
	}
}

// Fail marks promptId's job as terminally errored. A prior successful
// upload is not retracted.
func (m *Manager) Fail(promptID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(time.Now())
	if r, ok := m.jobs[promptID]; ok {
		r.Error = true
		r.LastUpdated = time.Now()
	}
}

// FinishUpload records that the deck has been persisted by the
// post-processor. webURL/pdfURL are frozen from this point on.
func (m *Manager) FinishUpload(promptID, webURL, pdfURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(time.Now())
	if r, ok := m.jobs[promptID]; ok {
		r.Uploaded = true
		r.WebURL = webURL
		r.PDFURL = pdfURL
		r.LastUpdated = time.Now()
	}
}

// GetStatus returns a copy of promptId's Record, or ok=false when unknown
// (either never started or already evicted).
func (m *Manager) GetStatus(promptID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(time.Now())
	r, ok := m.jobs[promptID]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Evict removes entries older than the TTL. Called on every mutating
// operation (matching the eviction-on-every-call behavior this manager is
// grounded on) and additionally on a cron schedule so idle jobs are
// reclaimed between requests.
func (m *Manager) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictLocked(now)
}

func (m *Manager) evictLocked(now time.Time) int {
	evicted := 0
	for id, r := range m.jobs {
		if now.Sub(r.LastUpdated) > m.ttl {
			delete(m.jobs, id)
			evicted++
		}
	}
	return evicted
}
