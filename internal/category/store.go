package category

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Labels returned by Name when there is no record to name.
const (
	NameUncategorized = "Uncategorized"
	NameUnknown       = "Unknown"
	NameLoading       = "Loading..."
)

type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Fetcher lists the flat category records of one scope.
type Fetcher interface {
	FetchCategories(ctx context.Context, scope Scope) ([]Record, error)
}

type FetcherFunc func(ctx context.Context, scope Scope) ([]Record, error)

func (f FetcherFunc) FetchCategories(ctx context.Context, scope Scope) ([]Record, error) {
	return f(ctx, scope)
}

type Option func(*Store)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLazyLoad lets Name start a background load of the default scope when
// the store has never been loaded.
func WithLazyLoad(enabled bool) Option {
	return func(s *Store) {
		s.lazyLoad = enabled
	}
}

// WithDefaultScope sets the scope loaded lazily by Name. A scope that does
// not normalize turns lazy loading off.
func WithDefaultScope(scope Scope) Option {
	return func(s *Store) {
		s.defaultScope = scope
	}
}

// Store caches the categories of the last loaded scope and answers tree,
// path and name queries against them. Safe for concurrent use.
type Store struct {
	fetcher      Fetcher
	log          logrus.FieldLogger
	metrics      *Metrics
	lazyLoad     bool
	defaultScope Scope

	flights     singleflight.Group
	background  sync.WaitGroup
	lazyRunning atomic.Bool
	// waiting counts callers blocked on an in-flight fetch.
	waiting atomic.Int64

	mu      sync.RWMutex
	records []Record
	index   map[uint]int
	tree    []*TreeNode
	loaded  Scope
	hasData bool
	status  Status
	// want is the scope of the most recent load that went to the fetcher;
	// only its result may be committed.
	want  Scope
	epoch uint64
}

func NewStore(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		fetcher:      fetcher,
		log:          logrus.StandardLogger(),
		defaultScope: PaperScope(),
		status:       StatusEmpty,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.lazyLoad {
		scope, err := s.defaultScope.Normalize()
		if err != nil {
			s.log.WithError(err).WithField("scope", s.defaultScope.String()).Warn("默认分类范围无效，已关闭延迟加载")
			s.lazyLoad = false
		} else {
			s.defaultScope = scope
		}
	}
	return s
}

// Load returns the categories of scope, fetching them unless scope is the
// one already cached and force is false. Concurrent loads of the same scope
// share one fetch. The fetch itself cannot be cancelled: if ctx ends first
// Load returns ctx.Err() and the fetch still completes in the background.
func (s *Store) Load(ctx context.Context, scope Scope, force bool) ([]Record, error) {
	scope, err := scope.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !force && s.status == StatusReady && s.hasData && s.loaded == scope {
		records := cloneRecords(s.records)
		s.mu.Unlock()
		s.metrics.cacheHit()
		return records, nil
	}
	s.status = StatusLoading
	s.want = scope
	epoch := s.epoch
	s.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	leader := false
	key := fmt.Sprintf("%d/%s", epoch, scope)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		leader = true
		return s.fetch(fetchCtx, scope, epoch)
	})

	s.waiting.Add(1)
	defer s.waiting.Add(-1)

	select {
	case res := <-ch:
		if res.Shared && !leader {
			s.metrics.coalesced()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneRecords(res.Val.([]Record)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refresh reloads scope even if it is cached.
func (s *Store) Refresh(ctx context.Context, scope Scope) ([]Record, error) {
	return s.Load(ctx, scope, true)
}

func (s *Store) fetch(ctx context.Context, scope Scope, epoch uint64) ([]Record, error) {
	s.metrics.fetch(scope.Kind)
	records, err := s.fetcher.FetchCategories(ctx, scope)
	if err != nil {
		s.metrics.failure(scope.Kind)
		loadErr := &LoadError{Scope: scope, Err: err}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.isCurrent(scope, epoch) {
			s.records = nil
			s.index = nil
			s.tree = nil
			s.status = StatusFailed
		}
		s.log.WithError(err).WithField("scope", scope.String()).Error("加载分类失败")
		return nil, loadErr
	}

	records = cloneRecords(records)
	tree := BuildTree(records)
	index := make(map[uint]int, len(records))
	for i, rec := range records {
		if _, dup := index[rec.ID]; !dup {
			index[rec.ID] = i
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrent(scope, epoch) {
		s.metrics.discarded()
		s.log.WithFields(logrus.Fields{
			"scope":  scope.String(),
			"wanted": s.want.String(),
		}).Debug("丢弃过期的分类结果")
		return records, nil
	}

	s.records = records
	s.index = index
	s.tree = tree
	s.loaded = scope
	s.hasData = true
	s.status = StatusReady
	s.log.WithFields(logrus.Fields{
		"scope": scope.String(),
		"count": len(records),
	}).Debug("分类已加载")
	return records, nil
}

func (s *Store) isCurrent(scope Scope, epoch uint64) bool {
	return s.epoch == epoch && s.want == scope
}

// Name returns the name of the category id. Lookups never fail: id 0 is
// NameUncategorized and a missing id is NameUnknown. With lazy loading
// enabled, a lookup on a never-loaded store starts a background load of the
// default scope and returns NameLoading; callers that need a real answer
// should call Load first.
func (s *Store) Name(id uint) string {
	if id == 0 {
		return NameUncategorized
	}

	s.mu.RLock()
	rec, ok := s.lookup(id)
	status := s.status
	s.mu.RUnlock()

	if ok {
		return rec.Name
	}
	if status == StatusEmpty && s.lazyLoad {
		s.startLazyLoad()
		return NameLoading
	}
	return NameUnknown
}

func (s *Store) startLazyLoad() {
	if !s.lazyRunning.CompareAndSwap(false, true) {
		return
	}
	s.metrics.lazyLoad()
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.lazyRunning.Store(false)
		if _, err := s.Load(context.Background(), s.defaultScope, false); err != nil {
			s.log.WithError(err).Warn("后台加载分类失败")
		}
	}()
}

// Wait blocks until background loads started by Name have finished.
func (s *Store) Wait() {
	s.background.Wait()
}

// Find returns a copy of the cached record with the given id.
func (s *Store) Find(id uint) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lookup(id)
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

func (s *Store) lookup(id uint) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Path returns the chain of records from the root down to id, inclusive.
// It is empty when id is 0 or not cached.
func (s *Store) Path(id uint) []Record {
	path := []Record{}
	if id == 0 {
		return path
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uint]struct{})
	cur, ok := s.lookup(id)
	for ok {
		if _, loop := seen[cur.ID]; loop {
			break
		}
		seen[cur.ID] = struct{}{}
		path = append(path, cur.clone())
		if cur.ParentID == nil {
			break
		}
		cur, ok = s.lookup(*cur.ParentID)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Tree returns the cached forest. Callers must not modify it.
func (s *Store) Tree() []*TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return []*TreeNode{}
	}
	return s.tree
}

// All returns a copy of the cached records in the order they were fetched.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LoadedScope reports the scope of the last successful load.
func (s *Store) LoadedScope() (Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded, s.hasData
}

// Reset empties the store, e.g. after the active team changes. Results of
// loads still in flight are dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = nil
	s.tree = nil
	s.loaded = Scope{}
	s.hasData = false
	s.want = Scope{}
	s.status = StatusEmpty
	s.epoch++
}
