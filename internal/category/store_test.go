package category

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher serves canned records per scope. A scope with a gate blocks
// until the gate is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	data    map[Scope][]Record
	errs    map[Scope]error
	gates   map[Scope]chan struct{}
	calls   map[Scope]int
	started chan Scope
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:    map[Scope][]Record{},
		errs:    map[Scope]error{},
		gates:   map[Scope]chan struct{}{},
		calls:   map[Scope]int{},
		started: make(chan Scope, 16),
	}
}

func (f *fakeFetcher) FetchCategories(ctx context.Context, scope Scope) ([]Record, error) {
	f.mu.Lock()
	f.calls[scope]++
	gate := f.gates[scope]
	f.mu.Unlock()

	f.started <- scope
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[scope]; err != nil {
		return nil, err
	}
	return f.data[scope], nil
}

func (f *fakeFetcher) set(scope Scope, records []Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[scope] = records
}

func (f *fakeFetcher) fail(scope Scope, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[scope] = err
}

func (f *fakeFetcher) gate(scope Scope) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[scope] = ch
	return ch
}

func (f *fakeFetcher) callCount(scope Scope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[scope]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeFetcher) waitStarted(t *testing.T, want Scope) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %s never started", want)
	}
}

func quietLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

func newTestStore(f Fetcher, opts ...Option) *Store {
	return NewStore(f, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestStore_StartsEmpty(t *testing.T) {
	s := newTestStore(newFakeFetcher())

	assert.Equal(t, StatusEmpty, s.Status())
	assert.Empty(t, s.All())
	assert.Empty(t, s.Tree())
	_, ok := s.LoadedScope()
	assert.False(t, ok)
}

func TestStore_Load_CacheHit(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)
	ctx := context.Background()

	first, err := s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)
	second, err := s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, f.callCount(PaperScope()))
	assert.Equal(t, first, second)
	assert.Equal(t, StatusReady, s.Status())

	// callers get their own slice
	first[0].Name = "changed"
	assert.Equal(t, "AI", s.All()[0].Name)
}

func TestStore_Load_ForceRefetches(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)
	ctx := context.Background()

	_, err := s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)

	f.set(PaperScope(), []Record{{ID: 10, Name: "Fresh"}})
	records, err := s.Refresh(ctx, PaperScope())
	require.NoError(t, err)

	assert.Equal(t, 2, f.callCount(PaperScope()))
	require.Len(t, records, 1)
	assert.Equal(t, "Fresh", s.Name(10))
	assert.Equal(t, NameUnknown, s.Name(1))
}

func TestStore_Load_ScopeSensitive(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	f.set(ReferenceScope(1), []Record{{ID: 50, Name: "Team one"}})
	f.set(ReferenceScope(2), []Record{{ID: 60, Name: "Team two"}})
	s := newTestStore(f)
	ctx := context.Background()

	for _, scope := range []Scope{PaperScope(), ReferenceScope(1), ReferenceScope(2), PaperScope()} {
		_, err := s.Load(ctx, scope, false)
		require.NoError(t, err)
		loaded, ok := s.LoadedScope()
		require.True(t, ok)
		assert.Equal(t, scope, loaded)
	}

	assert.Equal(t, 2, f.callCount(PaperScope()))
	assert.Equal(t, 1, f.callCount(ReferenceScope(1)))
	assert.Equal(t, 1, f.callCount(ReferenceScope(2)))
	assert.Equal(t, "AI", s.Name(1))
}

func TestStore_Load_PaperScopeIgnoresTeam(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)
	ctx := context.Background()

	_, err := s.Load(ctx, Scope{Kind: KindPaper, TeamID: 3}, false)
	require.NoError(t, err)
	_, err = s.Load(ctx, Scope{Kind: KindPaper, TeamID: 8}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, f.totalCalls())
}

func TestStore_Load_MissingTeamLeavesStateUnchanged(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)
	ctx := context.Background()

	_, err := s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)

	_, err = s.Load(ctx, ReferenceScope(0), false)
	require.ErrorIs(t, err, ErrMissingScopeParameter)

	assert.Equal(t, 1, f.totalCalls())
	assert.Equal(t, StatusReady, s.Status())
	assert.Len(t, s.All(), 3)
}

func TestStore_Load_FailureIsolationAndRecovery(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)
	ctx := context.Background()

	_, err := s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)

	transportErr := errors.New("connection refused")
	f.fail(ReferenceScope(3), transportErr)

	_, err = s.Load(ctx, ReferenceScope(3), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCategoryLoadFailed)
	assert.ErrorIs(t, err, transportErr)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ReferenceScope(3), loadErr.Scope)

	assert.Equal(t, StatusFailed, s.Status())
	assert.Empty(t, s.All())
	assert.Empty(t, s.Tree())
	assert.Equal(t, NameUnknown, s.Name(1))

	f.fail(ReferenceScope(3), nil)
	f.set(ReferenceScope(3), []Record{{ID: 70, Name: "Recovered"}})

	records, err := s.Load(ctx, ReferenceScope(3), false)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, StatusReady, s.Status())
	assert.Equal(t, "Recovered", s.Name(70))
}

func TestStore_Load_FailureIsLogged(t *testing.T) {
	f := newFakeFetcher()
	f.fail(PaperScope(), errors.New("boom"))
	log, hook := logtest.NewNullLogger()
	s := NewStore(f, WithLogger(log))

	_, err := s.Load(context.Background(), PaperScope(), false)
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "paper", entry.Data["scope"])
}

func TestStore_Load_CoalescesConcurrentCalls(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	gate := f.gate(PaperScope())
	m, err := NewMetrics("test", nil)
	require.NoError(t, err)
	s := newTestStore(f, WithMetrics(m))
	ctx := context.Background()

	type result struct {
		records []Record
		err     error
	}
	results := make(chan result, 2)
	load := func() {
		records, err := s.Load(ctx, PaperScope(), false)
		results <- result{records, err}
	}

	go load()
	f.waitStarted(t, PaperScope())
	go load()
	// both callers must be parked on the same fetch before it completes
	require.Eventually(t, func() bool { return s.waiting.Load() == 2 }, 2*time.Second, time.Millisecond)
	close(gate)

	a := <-results
	b := <-results
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Equal(t, a.records, b.records)
	assert.Len(t, a.records, 3)
	assert.Equal(t, 1, f.callCount(PaperScope()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Coalesced))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheHits))
}

func TestStore_Load_DiscardsStaleResult(t *testing.T) {
	f := newFakeFetcher()
	a, b := ReferenceScope(1), ReferenceScope(2)
	f.set(a, []Record{{ID: 1, Name: "from A"}})
	f.set(b, []Record{{ID: 2, Name: "from B"}})
	gateA := f.gate(a)
	s := newTestStore(f)
	ctx := context.Background()

	done := make(chan []Record, 1)
	go func() {
		records, err := s.Load(ctx, a, false)
		assert.NoError(t, err)
		done <- records
	}()
	f.waitStarted(t, a)

	_, err := s.Load(ctx, b, false)
	require.NoError(t, err)
	f.waitStarted(t, b)

	close(gateA)
	recordsA := <-done

	// A's caller still sees its own data
	require.Len(t, recordsA, 1)
	assert.Equal(t, "from A", recordsA[0].Name)

	loaded, ok := s.LoadedScope()
	require.True(t, ok)
	assert.Equal(t, b, loaded)
	assert.Equal(t, StatusReady, s.Status())
	assert.Equal(t, "from B", s.Name(2))
	assert.Equal(t, NameUnknown, s.Name(1))
}

func TestStore_Load_DiscardsStaleFailure(t *testing.T) {
	f := newFakeFetcher()
	a, b := ReferenceScope(1), ReferenceScope(2)
	f.fail(a, errors.New("connection reset"))
	f.set(b, []Record{{ID: 2, Name: "from B"}})
	gateA := f.gate(a)
	s := newTestStore(f)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(ctx, a, false)
		done <- err
	}()
	f.waitStarted(t, a)

	_, err := s.Load(ctx, b, false)
	require.NoError(t, err)
	f.waitStarted(t, b)

	close(gateA)
	errA := <-done

	// A's caller still gets its own failure
	assert.ErrorIs(t, errA, ErrCategoryLoadFailed)

	loaded, ok := s.LoadedScope()
	require.True(t, ok)
	assert.Equal(t, b, loaded)
	assert.Equal(t, StatusReady, s.Status())
	require.Len(t, s.All(), 1)
	assert.Equal(t, "from B", s.Name(2))
}

func TestStore_ReturnedRecordsAreCopies(t *testing.T) {
	f := newFakeFetcher()
	desc := json.RawMessage(`"machine learning"`)
	f.set(PaperScope(), []Record{
		{ID: 1, Name: "AI"},
		{ID: 2, Name: "ML", ParentID: uintPtr(1), Extra: map[string]json.RawMessage{"description": desc}},
	})
	s := newTestStore(f)

	records, err := s.Load(context.Background(), PaperScope(), false)
	require.NoError(t, err)
	require.Len(t, records, 2)

	*records[1].ParentID = 12345
	records[1].Extra["description"][1] = 'X'
	records[1].Extra["paper_count"] = json.RawMessage(`9`)

	all := s.All()
	*all[1].ParentID = 777
	delete(all[1].Extra, "description")

	path := s.Path(2)
	require.Len(t, path, 2)
	assert.Equal(t, "AI", path[0].Name)

	rec, ok := s.Find(2)
	require.True(t, ok)
	require.NotNil(t, rec.ParentID)
	assert.Equal(t, uint(1), *rec.ParentID)
	assert.Len(t, rec.Extra, 1)
	assert.JSONEq(t, `"machine learning"`, string(rec.Extra["description"]))

	// the fetcher's own slice is not shared either
	assert.Equal(t, uint(1), *f.data[PaperScope()][1].ParentID)
}

func TestStore_Load_CallerCancelDoesNotAbortFetch(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	gate := f.gate(PaperScope())
	s := newTestStore(f)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := s.Load(ctx, PaperScope(), false)
		errs <- err
	}()
	f.waitStarted(t, PaperScope())

	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)
	assert.Equal(t, StatusLoading, s.Status())

	close(gate)
	require.Eventually(t, func() bool {
		return s.Status() == StatusReady
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, s.All(), 3)
}

func TestStore_Reset(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)
	ctx := context.Background()

	_, err := s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)

	s.Reset()

	assert.Equal(t, StatusEmpty, s.Status())
	assert.Empty(t, s.All())
	assert.Empty(t, s.Tree())
	_, ok := s.LoadedScope()
	assert.False(t, ok)

	_, err = s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.callCount(PaperScope()))
}

func TestStore_Reset_DropsInFlightResult(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	gate := f.gate(PaperScope())
	s := newTestStore(f)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.Load(context.Background(), PaperScope(), false)
		assert.NoError(t, err)
	}()
	f.waitStarted(t, PaperScope())

	s.Reset()
	close(gate)
	<-done

	assert.Equal(t, StatusEmpty, s.Status())
	assert.Empty(t, s.All())
}

func TestStore_Name(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)

	_, err := s.Load(context.Background(), PaperScope(), false)
	require.NoError(t, err)

	assert.Equal(t, NameUncategorized, s.Name(0))
	assert.Equal(t, "ML", s.Name(2))
	assert.Equal(t, NameUnknown, s.Name(99))
	assert.Equal(t, NameUnknown, s.Name(9999))
}

func TestStore_Name_NoLazyLoadByDefault(t *testing.T) {
	f := newFakeFetcher()
	s := newTestStore(f)

	assert.Equal(t, NameUnknown, s.Name(1))
	s.Wait()
	assert.Equal(t, 0, f.totalCalls())
	assert.Equal(t, StatusEmpty, s.Status())
}

func TestStore_Name_LazyLoad(t *testing.T) {
	f := newFakeFetcher()
	team := ReferenceScope(5)
	f.set(team, []Record{{ID: 1, Name: "Survey"}})
	s := newTestStore(f, WithLazyLoad(true), WithDefaultScope(team))

	assert.Equal(t, NameLoading, s.Name(1))
	s.Wait()

	assert.Equal(t, "Survey", s.Name(1))
	assert.Equal(t, 1, f.callCount(team))
	loaded, _ := s.LoadedScope()
	assert.Equal(t, team, loaded)
}

func TestStore_Name_LazyLoadWithInvalidDefaultScope(t *testing.T) {
	f := newFakeFetcher()
	log, hook := logtest.NewNullLogger()
	s := NewStore(f, WithLogger(log), WithLazyLoad(true), WithDefaultScope(ReferenceScope(0)))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	for i := 0; i < 3; i++ {
		assert.Equal(t, NameUnknown, s.Name(1))
		s.Wait()
	}
	assert.Equal(t, 0, f.totalCalls())
	assert.Equal(t, StatusEmpty, s.Status())
}

func TestStore_Path(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), []Record{
		{ID: 1, Name: "AI"},
		{ID: 2, Name: "ML", ParentID: uintPtr(1)},
		{ID: 3, Name: "Deep Learning", ParentID: uintPtr(2)},
		{ID: 4, Name: "Orphan", ParentID: uintPtr(99)},
	})
	s := newTestStore(f)

	records, err := s.Load(context.Background(), PaperScope(), false)
	require.NoError(t, err)

	for _, rec := range records {
		path := s.Path(rec.ID)
		require.NotEmpty(t, path)
		assert.Equal(t, rec.ID, path[len(path)-1].ID)
		for i := 1; i < len(path); i++ {
			require.NotNil(t, path[i].ParentID)
			assert.Equal(t, path[i-1].ID, *path[i].ParentID)
		}
	}

	names := func(path []Record) []string {
		out := make([]string, len(path))
		for i, r := range path {
			out[i] = r.Name
		}
		return out
	}
	assert.Equal(t, []string{"AI", "ML", "Deep Learning"}, names(s.Path(3)))
	assert.Equal(t, []string{"Orphan"}, names(s.Path(4)))
	assert.Empty(t, s.Path(0))
	assert.Empty(t, s.Path(42))
}

func TestStore_Path_StopsOnCycle(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), []Record{
		{ID: 1, Name: "A", ParentID: uintPtr(2)},
		{ID: 2, Name: "B", ParentID: uintPtr(1)},
	})
	s := newTestStore(f)

	_, err := s.Load(context.Background(), PaperScope(), false)
	require.NoError(t, err)

	assert.Len(t, s.Path(1), 2)
}

func TestStore_Tree(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	s := newTestStore(f)

	_, err := s.Load(context.Background(), PaperScope(), false)
	require.NoError(t, err)

	tree := s.Tree()
	require.Len(t, tree, 2)
	assert.Equal(t, "AI", tree[0].Record.Name)
	assert.Equal(t, "Orphan", tree[1].Record.Name)
	assert.Equal(t, 3, CountForest(tree))
}

func TestStore_Metrics(t *testing.T) {
	f := newFakeFetcher()
	f.set(PaperScope(), sampleRecords())
	f.fail(ReferenceScope(1), errors.New("down"))
	reg := prometheus.NewRegistry()
	m, err := NewMetrics("test", reg)
	require.NoError(t, err)
	s := newTestStore(f, WithMetrics(m))
	ctx := context.Background()

	_, err = s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)
	_, err = s.Load(ctx, PaperScope(), false)
	require.NoError(t, err)
	_, err = s.Load(ctx, ReferenceScope(1), false)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("paper")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fetches.WithLabelValues("reference")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("reference")))

	_, err = NewMetrics("test", reg)
	assert.Error(t, err, "duplicate registration")
}
