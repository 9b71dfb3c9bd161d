// Package identity builds trust identities from periodic trust-debt
// reports. Loading is fail-open: when no usable report exists the loader
// hands back a fixed, moderately permissive default so the system is
// operable before the first report lands.
package identity

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/model"
	"github.com/wiber/intentguard/internal/trustdebt"
)

const (
	// DefaultTTL bounds how stale a cached identity may get before the
	// report is re-read.
	DefaultTTL = 5 * time.Minute

	// DefaultScore is the per-dimension and aggregate score of the default
	// identity: permissive enough for low-risk actions, short of the
	// trusted tiers.
	DefaultScore = 0.6
)

// Loader reads identities for subjects from one report path, caching each
// subject's identity for a TTL. The cache is never a source of truth; it
// is always re-derivable from the report.
type Loader struct {
	path string
	ttl  time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	id       *model.Identity
	loadedAt time.Time
}

// NewLoader creates a loader for the report at path. A non-positive ttl
// uses the default.
func NewLoader(path string, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Loader{
		path:  path,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// Path returns the report location this loader reads.
func (l *Loader) Path() string { return l.path }

// Load returns the subject's identity, from cache when fresh. It never
// fails: a missing or malformed report yields the default identity.
// Returned identities are shared snapshots; callers must not mutate them.
func (l *Loader) Load(subject string) *model.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.cache[subject]; ok && now.Sub(entry.loadedAt) < l.ttl {
		return entry.id
	}

	id := l.read(subject, now)
	l.cache[subject] = cacheEntry{id: id, loadedAt: now}
	return id
}

// Invalidate drops every cached identity so the next Load re-reads the
// report.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]cacheEntry)
}

func (l *Loader) read(subject string, now time.Time) *model.Identity {
	rep, err := trustdebt.LoadReport(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			// Absence is normal before the first report; anything else
			// deserves a diagnostic on the way to the default.
			fmt.Fprintf(os.Stderr, "identity: unusable trust report, using default: %v\n", err)
		}
		return defaultIdentity(subject, now)
	}
	return FromReport(subject, rep, now)
}

// FromReport builds an identity from a trust-debt report: per-dimension
// scores through the taxonomy, aggregate from the total-units grade curve.
func FromReport(subject string, rep *trustdebt.Report, observedAt time.Time) *model.Identity {
	return &model.Identity{
		SubjectID:      subject,
		Scores:         trustdebt.DimensionScores(rep),
		AggregateScore: trustdebt.BandScore(rep.TotalUnits),
		ObservedAt:     observedAt.UTC(),
	}
}

// DefaultIdentity is the identity used when no report is available: every
// dimension at DefaultScore, aggregate at DefaultScore.
func DefaultIdentity(subject string) *model.Identity {
	return defaultIdentity(subject, time.Now())
}

func defaultIdentity(subject string, now time.Time) *model.Identity {
	scores := make(map[string]float64, dimension.Count)
	for _, name := range dimension.Names() {
		scores[name] = DefaultScore
	}
	return &model.Identity{
		SubjectID:      subject,
		Scores:         scores,
		AggregateScore: DefaultScore,
		ObservedAt:     now.UTC(),
	}
}
