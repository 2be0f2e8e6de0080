package forum

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/identity"
	"launchpad/internal/models"
	"launchpad/internal/store"
)

var (
	alice = identity.Identity{ID: "user_alice0001", Name: "StartupGuru1"}
	bob   = identity.Identity{ID: "user_bob000002", Name: "CodeMaster2"}
)

func seedPosts(now time.Time) []models.Post {
	return []models.Post{
		{
			ID:        1,
			Title:     "Solar roofs for renters",
			Content:   "Community solar subscriptions without owning the roof.",
			Author:    "Maya",
			Category:  "Climate",
			Flag:      models.FlagQuestion,
			Upvotes:   7,
			CreatedAt: now.Add(-30 * time.Minute),
			UserID:    alice.ID,
			SecretKey: "open-sesame",
		},
		{
			ID:        2,
			Title:     "Payroll API for freelancers",
			Content:   "One integration for payouts in forty countries.",
			Author:    "Leo",
			Category:  "FinTech",
			Flag:      models.FlagOpinion,
			Upvotes:   15,
			CreatedAt: now.Add(-3 * time.Hour),
		},
		{
			ID:        3,
			Title:     "Tutoring marketplace",
			Content:   "Matching students with physics tutors, solar system included.",
			Author:    "Ines",
			Category:  "EdTech",
			Flag:      models.FlagQuestion,
			Upvotes:   2,
			CreatedAt: now.Add(-50 * time.Hour),
		},
	}
}

func newTestBoard(t *testing.T) (*Board, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.Seed(seedPosts(time.Now())...)
	b := NewBoard(ms, WithSyncInterval(time.Hour))
	t.Cleanup(b.Close)
	require.NoError(t, b.Refresh(context.Background(), store.OrderCreatedAt))
	return b, ms
}

func failOn(target store.Op) store.Hook {
	return func(ctx context.Context, op store.Op) error {
		if op == target {
			return errors.New("connection reset")
		}
		return nil
	}
}

func TestRefreshNormalizesRows(t *testing.T) {
	b, _ := newTestBoard(t)

	posts := b.Posts()
	require.Len(t, posts, 3+5)

	first := posts[0]
	assert.Equal(t, "1", first.Ref())
	assert.True(t, first.IsReal)
	assert.Equal(t, "startup, innovation", first.Tags)
	assert.Equal(t, "Seed", first.FundingStage)
	assert.Equal(t, "Remote", first.Location)
	assert.Equal(t, "Pre-Revenue", first.Revenue)
	assert.Equal(t, "https://images.unsplash.com/photo-1550000000000?w=500&h=300&fit=crop", first.ImageURL)
	assert.Equal(t, "https://images.unsplash.com/photo-1550000000001?w=500&h=300&fit=crop", posts[1].ImageURL)

	for i, p := range posts {
		assert.Equal(t, i < 3, p.IsReal, "stored posts come before fixtures")
	}
}

func TestRefreshFailureKeepsPreviousState(t *testing.T) {
	b, ms := newTestBoard(t)
	before := b.Posts()

	ms.SetHook(failOn(store.OpListPosts))
	err := b.Refresh(context.Background(), store.OrderUpvotes)
	require.Error(t, err)

	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, store.OpListPosts, se.Op)
	assert.Equal(t, before, b.Posts())
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	ms.SetHook(func(ctx context.Context, op store.Op) error {
		if op == store.OpListPosts && calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	})

	slow := make(chan error, 1)
	go func() { slow <- b.Refresh(ctx, store.OrderCreatedAt) }()
	<-entered

	require.NoError(t, b.Refresh(ctx, store.OrderCreatedAt))
	require.NoError(t, ms.DeletePost(ctx, 2))
	close(release)
	require.NoError(t, <-slow)

	_, ok := b.Get("2")
	assert.True(t, ok, "the older response must not replace the newer one")
}

func TestRefreshIfStale(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	var lists atomic.Int32
	ms.SetHook(func(ctx context.Context, op store.Op) error {
		if op == store.OpListPosts {
			lists.Add(1)
		}
		return nil
	})

	require.NoError(t, b.RefreshIfStale(ctx, store.OrderCreatedAt, time.Minute))
	assert.EqualValues(t, 0, lists.Load())

	require.NoError(t, b.RefreshIfStale(ctx, store.OrderUpvotes, time.Minute))
	assert.EqualValues(t, 1, lists.Load())

	require.NoError(t, b.RefreshIfStale(ctx, store.OrderUpvotes, 0))
	assert.EqualValues(t, 2, lists.Load())
}

func TestFreshenIgnoresOrder(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	var lists atomic.Int32
	ms.SetHook(func(ctx context.Context, op store.Op) error {
		if op == store.OpListPosts {
			lists.Add(1)
		}
		return nil
	})

	require.NoError(t, b.Refresh(ctx, store.OrderUpvotes))
	require.NoError(t, b.Freshen(ctx, time.Minute))
	assert.EqualValues(t, 1, lists.Load())
	assert.Equal(t, "2", b.Posts()[0].Ref(), "still in upvote order")
}

func TestConcurrentFreshenSharesOneFetch(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var lists atomic.Int32
	ms.SetHook(func(ctx context.Context, op store.Op) error {
		if op == store.OpListPosts && lists.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Freshen(ctx, 0))
		}()
	}
	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, lists.Load())
}

func TestRefreshIfStaleFollowsClock(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Seed(seedPosts(time.Now())...)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBoard(ms, WithSyncInterval(time.Hour), WithClock(func() time.Time { return now }))
	t.Cleanup(b.Close)
	ctx := context.Background()

	assert.True(t, b.RefreshedAt().IsZero())
	require.NoError(t, b.RefreshIfStale(ctx, store.OrderCreatedAt, time.Minute))
	assert.Equal(t, now, b.RefreshedAt())

	now = now.Add(30 * time.Second)
	require.NoError(t, b.RefreshIfStale(ctx, store.OrderCreatedAt, time.Minute))
	assert.Equal(t, now.Add(-30*time.Second), b.RefreshedAt())

	now = now.Add(time.Minute)
	require.NoError(t, b.RefreshIfStale(ctx, store.OrderCreatedAt, time.Minute))
	assert.Equal(t, now, b.RefreshedAt())
}

func TestUpvotesConvergeAfterFlush(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Upvote("1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, ok := b.Get("1")
	require.True(t, ok)
	assert.Equal(t, 7+n, p.Upvotes)

	state, _ := b.State("1")
	assert.Equal(t, StateMutating, state)

	require.NoError(t, b.Flush(ctx))

	stored, err := ms.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 7+n, stored.Upvotes)

	state, err = b.State("1")
	assert.Equal(t, StateLoaded, state)
	assert.NoError(t, err)
}

func TestUpvoteReturnsNewValue(t *testing.T) {
	b, _ := newTestBoard(t)

	n, err := b.Upvote("2")
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	n, err = b.Upvote("2")
	require.NoError(t, err)
	assert.Equal(t, 17, n)
}

func TestUpvoteFailureIsNotRolledBack(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()
	ms.SetHook(failOn(store.OpUpdatePost))

	n, err := b.Upvote("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, b.Flush(ctx))

	p, _ := b.Get("3")
	assert.Equal(t, 3, p.Upvotes)

	state, lastErr := b.State("3")
	assert.Equal(t, StateLoadedWithError, state)
	assert.Error(t, lastErr)

	// With the write settled, the next refresh shows the stored value again.
	ms.SetHook(nil)
	require.NoError(t, b.Refresh(ctx, store.OrderCreatedAt))
	p, _ = b.Get("3")
	assert.Equal(t, 2, p.Upvotes)
}

func TestRefreshKeepsOutstandingUpvotes(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	_, err := b.Upvote("2")
	require.NoError(t, err)

	// The write has not been sent yet, the store still says 15.
	require.NoError(t, b.Refresh(ctx, store.OrderUpvotes))
	p, _ := b.Get("2")
	assert.Equal(t, 16, p.Upvotes)

	require.NoError(t, b.Flush(ctx))
	stored, err := ms.GetPost(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 16, stored.Upvotes)
}

func TestFixturesAreReadOnly(t *testing.T) {
	b, _ := newTestBoard(t)
	ctx := context.Background()

	before, ok := b.Get("f1")
	require.True(t, ok)

	_, err := b.Upvote("f1")
	assert.ErrorIs(t, err, ErrFixtureReadOnly)
	assert.ErrorIs(t, b.Delete(ctx, "f1", alice, ""), ErrFixtureReadOnly)
	_, err = b.Update(ctx, "f1", alice, "", PostInput{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, ErrFixtureReadOnly)
	assert.ErrorIs(t, b.Authorize("f1", alice, ""), ErrFixtureReadOnly)

	after, _ := b.Get("f1")
	assert.Equal(t, before, after)
}

func TestUnknownRefs(t *testing.T) {
	b, _ := newTestBoard(t)

	for _, ref := range []string{"f99", "404", "abc", ""} {
		_, err := b.Upvote(ref)
		assert.ErrorIs(t, err, ErrNotFound, ref)
		state, _ := b.State(ref)
		assert.Equal(t, StateUnloaded, state, ref)
	}
}

func TestDeleteRemovesOnlyOnSuccess(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	ms.SetHook(failOn(store.OpDeletePost))
	err := b.Delete(ctx, "1", alice, "")
	require.Error(t, err)

	_, ok := b.Get("1")
	assert.True(t, ok)
	state, lastErr := b.State("1")
	assert.Equal(t, StateLoadedWithError, state)
	assert.Error(t, lastErr)

	ms.SetHook(nil)
	require.NoError(t, b.Delete(ctx, "1", alice, ""))

	_, ok = b.Get("1")
	assert.False(t, ok)
	_, err = ms.GetPost(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	state, _ = b.State("1")
	assert.Equal(t, StateUnloaded, state)
}

func TestAuthorize(t *testing.T) {
	b, _ := newTestBoard(t)

	assert.NoError(t, b.Authorize("1", alice, ""))
	assert.ErrorIs(t, b.Authorize("1", bob, ""), ErrNotOwner)
	assert.ErrorIs(t, b.Authorize("1", bob, "guess"), ErrSecretKeyMismatch)
	assert.ErrorIs(t, b.Authorize("1", bob, "Open-Sesame"), ErrSecretKeyMismatch)
	assert.NoError(t, b.Authorize("1", bob, "open-sesame"))

	// No owner and no key: nobody gets in, not even with an empty key.
	assert.ErrorIs(t, b.Authorize("2", bob, ""), ErrNotOwner)
	assert.ErrorIs(t, b.Authorize("2", alice, "anything"), ErrSecretKeyMismatch)
}

func TestOtherIdentityCannotChangePostWithoutKey(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	edit := PostInput{Title: "Hijacked", Content: "nope"}
	_, err := b.Update(ctx, "1", bob, "", edit)
	assert.True(t, IsAuthError(err))
	assert.ErrorIs(t, b.Delete(ctx, "1", bob, "wrong"), ErrSecretKeyMismatch)

	stored, err := ms.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Solar roofs for renters", stored.Title)

	updated, err := b.Update(ctx, "1", bob, "open-sesame", edit)
	require.NoError(t, err)
	assert.Equal(t, "Hijacked", updated.Title)
	require.NoError(t, b.Delete(ctx, "1", bob, "open-sesame"))
}

func TestFilter(t *testing.T) {
	b, _ := newTestBoard(t)

	bySearch := b.Filter(Query{Search: "SOLAR"})
	require.NotEmpty(t, bySearch)
	for _, p := range bySearch {
		haystack := strings.ToLower(p.Title + p.Content + p.Author)
		assert.Contains(t, haystack, "solar")
	}

	byFlag := b.Filter(Query{Flag: models.FlagQuestion})
	require.NotEmpty(t, byFlag)
	for _, p := range byFlag {
		assert.Equal(t, models.FlagQuestion, p.Flag)
	}

	both := b.Filter(Query{Search: "solar", Flag: models.FlagQuestion})
	refs := func(posts []models.Post) map[string]bool {
		m := make(map[string]bool)
		for _, p := range posts {
			m[p.Ref()] = true
		}
		return m
	}
	searchRefs, flagRefs := refs(bySearch), refs(byFlag)
	for ref := range refs(both) {
		assert.True(t, searchRefs[ref] && flagRefs[ref], ref)
	}
	assert.Len(t, both, 2)

	byAuthor := b.Filter(Query{Search: "leo"})
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "2", byAuthor[0].Ref())

	byCategory := b.Filter(Query{Category: "Climate"})
	for _, p := range byCategory {
		assert.Equal(t, "Climate", p.Category)
	}
	assert.Len(t, byCategory, 2)

	assert.Empty(t, b.Filter(Query{Search: "nonexistent-term"}))
}

func TestSortOrders(t *testing.T) {
	b, _ := newTestBoard(t)

	byVotes := b.Filter(Query{Sort: store.OrderUpvotes})
	require.Len(t, byVotes, 8)
	for i := 1; i < len(byVotes); i++ {
		assert.GreaterOrEqual(t, byVotes[i-1].Upvotes, byVotes[i].Upvotes)
	}

	byTime := b.Filter(Query{Sort: store.OrderCreatedAt})
	for i := 1; i < len(byTime); i++ {
		assert.False(t, byTime[i].CreatedAt.After(byTime[i-1].CreatedAt))
	}
}

func TestCreateAppearsFirst(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	p, err := b.Create(ctx, alice, PostInput{
		Title:    "  Acme  ",
		Content:  "Rockets for everyone.",
		Category: "Other",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", p.Title)
	assert.Equal(t, alice.Name, p.Author)
	assert.Equal(t, alice.ID, p.UserID)

	newest := b.Filter(Query{Sort: store.OrderCreatedAt})
	require.NotEmpty(t, newest)
	assert.Equal(t, "Acme", newest[0].Title)
	assert.Equal(t, models.Counters{}, newest[0].Counters())
	assert.Equal(t, "Acme", b.Posts()[0].Title)

	stored, err := ms.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", stored.Title)
}

func TestCreateValidation(t *testing.T) {
	b, _ := newTestBoard(t)
	ctx := context.Background()

	cases := []struct {
		field string
		in    PostInput
	}{
		{"title", PostInput{Content: "c", Category: "SaaS"}},
		{"content", PostInput{Title: "t", Content: "   ", Category: "SaaS"}},
		{"category", PostInput{Title: "t", Content: "c"}},
		{"flag", PostInput{Title: "t", Content: "c", Category: "SaaS", Flag: "Rant"}},
	}
	for _, tc := range cases {
		_, err := b.Create(ctx, alice, tc.in)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, tc.field)
		assert.Equal(t, tc.field, verr.Field)
	}

	_, err := b.Create(ctx, identity.Identity{ID: "user_nobody000"}, PostInput{Title: "t", Content: "c", Category: "SaaS"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "author", verr.Field)
}

func TestCreateFailureLeavesStateAlone(t *testing.T) {
	b, ms := newTestBoard(t)
	ms.SetHook(failOn(store.OpCreatePost))

	_, err := b.Create(context.Background(), alice, PostInput{Title: "t", Content: "c", Category: "SaaS"})
	require.Error(t, err)
	assert.Len(t, b.Posts(), 8)
}

func TestUpdate(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	p, err := b.Update(ctx, "1", alice, "", PostInput{
		Title:    " Solar roofs, v2 ",
		Content:  "Now with batteries.",
		Category: "  ",
		Location: "  Lisbon ",
		Website:  "",
	})
	require.NoError(t, err)
	assert.Equal(t, "Solar roofs, v2", p.Title)
	assert.Equal(t, "Other", p.Category)
	assert.Equal(t, "Lisbon", p.Location)

	stored, err := ms.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Other", stored.Category)
	assert.Equal(t, "Lisbon", stored.Location)
	assert.Equal(t, 7, stored.Upvotes)

	_, err = b.Update(ctx, "1", alice, "", PostInput{Title: "   ", Content: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestRepost(t *testing.T) {
	b, ms := newTestBoard(t)
	ctx := context.Background()

	long := strings.Repeat("é", 150)
	src, err := b.Create(ctx, alice, PostInput{Title: "Origin", Content: long, Category: "SaaS"})
	require.NoError(t, err)

	p, err := b.Repost(ctx, bob, src.Ref())
	require.NoError(t, err)
	assert.Equal(t, "🔄 Repost: Origin", p.Title)
	assert.Equal(t, `Building on this discussion: "`+strings.Repeat("é", 100)+`..."`, p.Content)
	assert.Equal(t, models.FlagDiscussion, p.Flag)
	assert.Equal(t, "SaaS", p.Category)
	assert.Equal(t, bob.ID, p.UserID)
	require.NotNil(t, p.RepostID)
	assert.Equal(t, src.ID, *p.RepostID)

	stored, err := ms.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, stored.Title)

	fromFixture, err := b.Repost(ctx, bob, "f2")
	require.NoError(t, err)
	assert.Nil(t, fromFixture.RepostID)
	assert.True(t, strings.HasPrefix(fromFixture.Title, "🔄 Repost: ThreadLoop"))
}

func TestCategories(t *testing.T) {
	b, _ := newTestBoard(t)

	cats := b.Categories()
	counts := make(map[string]int)
	total := 0
	for _, c := range cats {
		counts[c.Name] = c.Count
		total += c.Count
	}
	assert.Equal(t, 2, counts["Climate"])
	assert.Equal(t, 2, counts["FinTech"])
	assert.Equal(t, 1, counts["EdTech"])
	assert.Equal(t, 8, total)
	for i := 1; i < len(cats); i++ {
		assert.GreaterOrEqual(t, cats[i-1].Count, cats[i].Count)
	}
}

func TestCloseDrainsQueuedWrites(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Seed(seedPosts(time.Now())...)
	b := NewBoard(ms, WithSyncInterval(time.Hour))
	ctx := context.Background()
	require.NoError(t, b.Refresh(ctx, store.OrderCreatedAt))

	for i := 0; i < 3; i++ {
		_, err := b.Upvote("2")
		require.NoError(t, err)
	}
	b.Close()

	stored, err := ms.GetPost(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 18, stored.Upvotes)

	// Flush after Close returns at once.
	require.NoError(t, b.Flush(ctx))
}

func TestUpvotesRacingCloseAllSettle(t *testing.T) {
	ctx := context.Background()
	for round := 0; round < 20; round++ {
		ms := store.NewMemoryStore()
		ms.Seed(seedPosts(time.Now())...)
		b := NewBoard(ms, WithSyncInterval(time.Millisecond))
		require.NoError(t, b.Refresh(ctx, store.OrderCreatedAt))

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					_, _ = b.Upvote("2")
				}
			}()
		}
		b.Close()
		wg.Wait()

		state, _ := b.State("2")
		assert.NotEqual(t, StateMutating, state, "round %d", round)
		b.sync.mu.Lock()
		assert.Empty(t, b.sync.pending, "round %d", round)
		b.sync.mu.Unlock()
	}
}
