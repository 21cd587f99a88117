package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

type fakeBuffer struct {
	mu        sync.Mutex
	queue     []domain.Article
	fillCalls int
	fillBatch int // articles added per RequestFill
	resets    []string
}

func (f *fakeBuffer) Drain(_ context.Context, n int) []domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.queue) {
		n = len(f.queue)
	}
	out := make([]domain.Article, n)
	copy(out, f.queue[:n])
	f.queue = f.queue[n:]
	return out
}

func (f *fakeBuffer) RequestFill(_ context.Context, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fillCalls++
	for i := 0; i < f.fillBatch; i++ {
		f.queue = append(f.queue, domain.Article{ID: fmt.Sprintf("filled-%d-%d", f.fillCalls, i)})
	}
}

func (f *fakeBuffer) Reset(language string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	f.resets = append(f.resets, language)
}

func (f *fakeBuffer) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

type fakeLangCache struct {
	mu      sync.Mutex
	changes []string
}

func (f *fakeLangCache) ChangeLanguage(language string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, language)
}

type fakeRecommender struct {
	mu    sync.Mutex
	calls []string // languages passed to Generate
	done  chan struct{}
}

func (f *fakeRecommender) Generate(_ context.Context, language string, _ []domain.Interaction) []domain.Recommendation {
	f.mu.Lock()
	f.calls = append(f.calls, language)
	f.mu.Unlock()
	if f.done != nil {
		select {
		case f.done <- struct{}{}:
		default:
		}
	}
	return nil
}

type fakeInteractionStore struct {
	mu           sync.Mutex
	interactions []domain.Interaction
	recentErr    error
	cleanups     int
}

func (f *fakeInteractionStore) RecentInteractions(context.Context, string, int, time.Duration) ([]domain.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.interactions, nil
}

func (f *fakeInteractionStore) CleanupInteractions(context.Context, time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return 3, nil
}

func newTestScheduler(buf *fakeBuffer, cache *fakeLangCache, rec *fakeRecommender, store *fakeInteractionStore) *Scheduler {
	// long tickers keep periodic work out of the way unless a test wants it
	return NewScheduler(buf, cache, rec, store, "en", Config{
		RefreshInterval: time.Hour,
		CleanupInterval: time.Hour,
	})
}

func TestScheduler_Load(t *testing.T) {
	buf := &fakeBuffer{queue: []domain.Article{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}}
	s := newTestScheduler(buf, &fakeLangCache{}, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	articles, err := s.Load(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "a1", articles[0].ID)
	assert.Equal(t, "a2", articles[1].ID)
	assert.Equal(t, 1, buf.Len())
}

func TestScheduler_Load_FillsEmptyBuffer(t *testing.T) {
	buf := &fakeBuffer{fillBatch: 5}
	s := newTestScheduler(buf, &fakeLangCache{}, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	articles, err := s.Load(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, articles, 3)
	assert.Equal(t, 1, buf.fillCalls, "empty buffer triggers a synchronous fill before draining")
}

func TestScheduler_Prefetch(t *testing.T) {
	buf := &fakeBuffer{fillBatch: 5}
	s := newTestScheduler(buf, &fakeLangCache{}, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	require.NoError(t, s.Prefetch(context.Background()))

	assert.Eventually(t, func() bool {
		buf.mu.Lock()
		defer buf.mu.Unlock()
		return buf.fillCalls == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_ChangeLanguage(t *testing.T) {
	buf := &fakeBuffer{queue: []domain.Article{{ID: "a1", Language: "en"}}}
	cache := &fakeLangCache{}
	rec := &fakeRecommender{done: make(chan struct{}, 1)}
	s := newTestScheduler(buf, cache, rec, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	require.NoError(t, s.ChangeLanguage(context.Background(), "fr"))

	assert.Equal(t, "fr", s.Language())
	assert.Equal(t, []string{"fr"}, cache.changes)
	assert.Equal(t, []string{"fr"}, buf.resets)
	assert.Zero(t, buf.Len(), "buffer cleared on language change")

	// the switch schedules a recommendation refresh for the new language
	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("expected a recommendation refresh after language change")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"fr"}, rec.calls)
}

func TestScheduler_ChangeLanguage_SameLanguageIsNoop(t *testing.T) {
	buf := &fakeBuffer{queue: []domain.Article{{ID: "a1"}}}
	cache := &fakeLangCache{}
	s := newTestScheduler(buf, cache, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	require.NoError(t, s.ChangeLanguage(context.Background(), "en"))
	assert.Empty(t, cache.changes)
	assert.Empty(t, buf.resets)
	assert.Equal(t, 1, buf.Len())
}

func TestScheduler_ChangeLanguage_Unsupported(t *testing.T) {
	s := newTestScheduler(&fakeBuffer{}, &fakeLangCache{}, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	err := s.ChangeLanguage(context.Background(), "tlh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestScheduler_Load_StaleLanguageDiscarded(t *testing.T) {
	buf := &fakeBuffer{queue: []domain.Article{{ID: "a1"}}}
	s := newTestScheduler(buf, &fakeLangCache{}, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())
	defer s.Stop()

	// a load tagged with the old language arrives after the switch completed
	require.NoError(t, s.ChangeLanguage(context.Background(), "de"))

	reply := make(chan Response, 1)
	require.NoError(t, s.Submit(context.Background(), Request{Type: RequestLoad, Language: "en", Count: 1, Reply: reply}))

	select {
	case resp := <-reply:
		assert.Equal(t, ResponseError, resp.Type)
		assert.Contains(t, resp.Error, "language changed")
	case <-time.After(time.Second):
		t.Fatal("expected a response for the stale request")
	}
}

func TestScheduler_RefreshRecommendations(t *testing.T) {
	rec := &fakeRecommender{done: make(chan struct{}, 1)}
	store := &fakeInteractionStore{interactions: []domain.Interaction{
		{ArticleID: "a1", Type: domain.InteractionLike, Language: "en", Timestamp: time.Now()},
	}}
	s := newTestScheduler(&fakeBuffer{}, &fakeLangCache{}, rec, store)
	s.Start(context.Background())
	defer s.Stop()

	s.RefreshRecommendations()

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("expected a recommendation run")
	}
}

func TestScheduler_RefreshRecommendations_StoreFailureDegrades(t *testing.T) {
	rec := &fakeRecommender{done: make(chan struct{}, 1)}
	store := &fakeInteractionStore{recentErr: errors.New("database locked")}
	s := newTestScheduler(&fakeBuffer{}, &fakeLangCache{}, rec, store)
	s.Start(context.Background())
	defer s.Stop()

	s.RefreshRecommendations()

	// the run still happens, with no interactions
	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("expected a recommendation run despite the store failure")
	}
}

func TestScheduler_CleanupWorker(t *testing.T) {
	store := &fakeInteractionStore{}
	s := NewScheduler(&fakeBuffer{}, &fakeLangCache{}, &fakeRecommender{}, store, "en", Config{
		RefreshInterval: time.Hour,
		CleanupInterval: 20 * time.Millisecond,
	})
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.cleanups >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_StopDrainsCleanly(t *testing.T) {
	s := newTestScheduler(&fakeBuffer{fillBatch: 1}, &fakeLangCache{}, &fakeRecommender{}, &fakeInteractionStore{})
	s.Start(context.Background())

	_, err := s.Load(context.Background(), 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
