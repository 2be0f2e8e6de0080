// Package forum holds the client-side state of the forum: the merged post
// list with its optimistic counters, and per-post comment threads.
package forum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"launchpad/internal/fixtures"
	"launchpad/internal/identity"
	"launchpad/internal/logger"
	"launchpad/internal/metrics"
	"launchpad/internal/models"
	"launchpad/internal/store"
)

const (
	defaultTags         = "startup, innovation"
	defaultFundingStage = "Seed"
	defaultLocation     = "Remote"
	defaultRevenue      = "Pre-Revenue"
	placeholderPhotoID  = 1550000000000
	repostExcerptRunes  = 100
)

var errWriteDropped = errors.New("counter write dropped")

// Query filters and orders the merged list. Empty fields do not filter; an
// empty Sort keeps the merge order.
type Query struct {
	Search   string
	Flag     models.Flag
	Category string
	Sort     store.Order
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// inflight is the latest local value of counters whose write is outstanding.
type inflight struct {
	upvotes    int
	views      int
	hasUpvotes bool
	hasViews   bool
	seq        uint64
}

// Board is the list state of the forum. Stored posts come first, followed
// by the read-only fixtures.
type Board struct {
	store        store.Store
	log          *logrus.Entry
	now          func() time.Time
	syncInterval time.Duration

	mu            sync.RWMutex
	remote        []models.Post
	fixtures      []models.Post
	order         store.Order
	refreshedAt   time.Time
	generation    uint64
	states        map[string]itemState
	inflight      map[uint]inflight
	seq           uint64
	localComments map[string][]models.Comment

	sync      *counterSync
	refreshes singleflight.Group
}

type Option func(*Board)

func WithLogger(log *logrus.Entry) Option {
	return func(b *Board) { b.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithSyncInterval sets how often queued counter writes are sent.
func WithSyncInterval(d time.Duration) Option {
	return func(b *Board) { b.syncInterval = d }
}

// NewBoard starts a board with only the fixtures loaded. Call Refresh to
// fetch stored posts and Close to stop the counter sync worker.
func NewBoard(st store.Store, opts ...Option) *Board {
	b := &Board{
		store:         st,
		now:           time.Now,
		syncInterval:  500 * time.Millisecond,
		order:         store.OrderCreatedAt,
		states:        make(map[string]itemState),
		inflight:      make(map[uint]inflight),
		localComments: make(map[string][]models.Comment),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Component("board")
	}
	b.fixtures = fixtures.Posts(b.now())
	b.sync = newCounterSync(b, b.syncInterval)
	return b
}

// Refresh reloads stored posts. On failure the previous state is kept and
// the error is returned. A response that arrives after a newer Refresh has
// started is discarded.
func (b *Board) Refresh(ctx context.Context, order store.Order) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.mu.Unlock()

	posts, err := b.store.ListPosts(ctx, store.ListOptions{OrderBy: order})

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		metrics.StaleRefreshes.Inc()
		b.log.WithField("generation", gen).Debug("discarding stale refresh")
		return nil
	}
	if err != nil {
		recordStoreError(err)
		b.log.WithError(err).Warn("refresh failed, keeping previous posts")
		return fmt.Errorf("refresh posts: %w", err)
	}

	states := make(map[string]itemState)
	for i := range posts {
		posts[i] = b.floorLocked(normalize(posts[i], i))
		ref := posts[i].Ref()
		if st, ok := b.states[ref]; ok && st.state == StateMutating {
			states[ref] = st
		}
	}

	b.remote = posts
	b.states = states
	b.order = order
	b.refreshedAt = b.now()
	return nil
}

// RefreshIfStale refreshes when the last good refresh is older than maxAge
// or used a different order.
func (b *Board) RefreshIfStale(ctx context.Context, order store.Order, maxAge time.Duration) error {
	b.mu.RLock()
	fresh := b.freshLocked(maxAge) && b.order == order
	b.mu.RUnlock()
	if fresh {
		return nil
	}
	return b.sharedRefresh(ctx, order)
}

// Freshen is RefreshIfStale for callers that sort locally: a refresh
// younger than maxAge counts whatever its order, and a stale board is
// refetched in the order it already has.
func (b *Board) Freshen(ctx context.Context, maxAge time.Duration) error {
	b.mu.RLock()
	fresh, order := b.freshLocked(maxAge), b.order
	b.mu.RUnlock()
	if fresh {
		return nil
	}
	return b.sharedRefresh(ctx, order)
}

func (b *Board) freshLocked(maxAge time.Duration) bool {
	return !b.refreshedAt.IsZero() && b.now().Sub(b.refreshedAt) < maxAge
}

// sharedRefresh joins a refresh of the same order that is already running.
func (b *Board) sharedRefresh(ctx context.Context, order store.Order) error {
	_, err, _ := b.refreshes.Do(string(order), func() (interface{}, error) {
		return nil, b.Refresh(ctx, order)
	})
	return err
}

// RefreshedAt is the time of the last successful refresh, zero before the first.
func (b *Board) RefreshedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.refreshedAt
}

// normalize fills the display defaults of a fetched row. index is the
// row's position in the fetched list.
func normalize(p models.Post, index int) models.Post {
	if strings.TrimSpace(p.Tags) == "" {
		p.Tags = defaultTags
	}
	if p.FundingStage == "" {
		p.FundingStage = defaultFundingStage
	}
	if p.Location == "" {
		p.Location = defaultLocation
	}
	if p.Revenue == "" {
		p.Revenue = defaultRevenue
	}
	if p.ImageURL == "" {
		p.ImageURL = fmt.Sprintf("https://images.unsplash.com/photo-%d?w=500&h=300&fit=crop", placeholderPhotoID+index)
	}
	p.Upvotes = max(p.Upvotes, 0)
	p.CommentsCount = max(p.CommentsCount, 0)
	p.Views = max(p.Views, 0)
	p.IsReal = true
	return p
}

// floorLocked keeps a fetched row from showing less than a counter value
// that is still being written.
func (b *Board) floorLocked(p models.Post) models.Post {
	inf, ok := b.inflight[p.ID]
	if !ok {
		return p
	}
	if inf.hasUpvotes && p.Upvotes < inf.upvotes {
		p.Upvotes = inf.upvotes
	}
	if inf.hasViews && p.Views < inf.views {
		p.Views = inf.views
	}
	return p
}

// Posts returns the merged list: stored posts in fetch order, then fixtures.
func (b *Board) Posts() []models.Post {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Post, 0, len(b.remote)+len(b.fixtures))
	out = append(out, b.remote...)
	return append(out, b.fixtures...)
}

// Filter returns the merged posts matching every set field of q.
func (b *Board) Filter(q Query) []models.Post {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	var out []models.Post
	for _, p := range b.Posts() {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) &&
			!strings.Contains(strings.ToLower(p.Author), needle) {
			continue
		}
		if q.Flag != models.FlagNone && p.Flag != q.Flag {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}
	if q.Sort != "" {
		SortPosts(out, q.Sort)
	}
	return out
}

// SortPosts orders posts descending by upvotes or creation time. Equal keys
// keep their relative order.
func SortPosts(posts []models.Post, order store.Order) {
	sort.SliceStable(posts, func(i, j int) bool {
		if order == store.OrderUpvotes {
			return posts[i].Upvotes > posts[j].Upvotes
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// Categories counts the merged posts per category, most used first.
func (b *Board) Categories() []CategoryCount {
	counts := make(map[string]int)
	for _, p := range b.Posts() {
		name := p.Category
		if name == "" {
			name = defaultCategory
		}
		counts[name]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get looks ref up in local state.
func (b *Board) Get(ref string) (models.Post, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lookupLocked(ref)
}

func (b *Board) lookupLocked(ref string) (models.Post, bool) {
	id, fixture, err := models.ParseRef(ref)
	if err != nil {
		return models.Post{}, false
	}
	if fixture {
		for _, p := range b.fixtures {
			if p.ID == id {
				return p, true
			}
		}
		return models.Post{}, false
	}
	if i := b.indexLocked(id); i >= 0 {
		return b.remote[i], true
	}
	return models.Post{}, false
}

func (b *Board) indexLocked(id uint) int {
	for i := range b.remote {
		if b.remote[i].ID == id {
			return i
		}
	}
	return -1
}

// resolve finds ref locally or loads it from the store. Fixtures resolve
// to ErrFixtureReadOnly: callers use it before mutating.
func (b *Board) resolve(ctx context.Context, ref string) (models.Post, error) {
	id, fixture, err := models.ParseRef(ref)
	if err != nil {
		return models.Post{}, ErrNotFound
	}
	b.mu.RLock()
	p, ok := b.lookupLocked(ref)
	b.mu.RUnlock()
	if fixture {
		if ok {
			return models.Post{}, ErrFixtureReadOnly
		}
		return models.Post{}, ErrNotFound
	}
	if ok {
		return p, nil
	}
	return b.fetch(ctx, id)
}

// fetch loads a stored post and merges it into local state.
func (b *Board) fetch(ctx context.Context, id uint) (models.Post, error) {
	p, err := b.store.GetPost(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			recordStoreError(err)
		}
		return models.Post{}, fmt.Errorf("get post %d: %w", id, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upsertLocked(*p), nil
}

func (b *Board) upsertLocked(p models.Post) models.Post {
	if i := b.indexLocked(p.ID); i >= 0 {
		p = b.floorLocked(normalize(p, i))
		b.remote[i] = p
		return p
	}
	p = b.floorLocked(normalize(p, len(b.remote)))
	b.remote = append([]models.Post{p}, b.remote...)
	return p
}

// IsOwner reports whether who created p.
func IsOwner(p models.Post, who identity.Identity) bool {
	return p.UserID != "" && p.UserID == who.ID
}

// Authorize checks whether who may edit or delete ref. The secret key is a
// UX gate compared in plain text; an empty stored key never matches.
func (b *Board) Authorize(ref string, who identity.Identity, key string) error {
	b.mu.RLock()
	p, ok := b.lookupLocked(ref)
	b.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if !p.IsReal {
		return ErrFixtureReadOnly
	}
	return authorize(p, who, key)
}

func authorize(p models.Post, who identity.Identity, key string) error {
	if IsOwner(p, who) {
		return nil
	}
	if key == "" {
		return ErrNotOwner
	}
	if p.SecretKey == "" || key != p.SecretKey {
		return ErrSecretKeyMismatch
	}
	return nil
}

// Upvote increments the counter locally and returns the new value at once.
// The store is updated in the background; a failed write is logged and
// not rolled back.
func (b *Board) Upvote(ref string) (int, error) {
	n, err := b.bump(ref, CounterUpvotes)
	if err != nil {
		return 0, err
	}
	metrics.UpvotesTotal.Inc()
	return n, nil
}

func (b *Board) bump(ref string, c Counter) (int, error) {
	id, fixture, err := models.ParseRef(ref)
	if err != nil {
		return 0, ErrNotFound
	}

	b.mu.Lock()
	if fixture {
		_, ok := b.lookupLocked(ref)
		b.mu.Unlock()
		if ok {
			return 0, ErrFixtureReadOnly
		}
		return 0, ErrNotFound
	}
	i := b.indexLocked(id)
	if i < 0 {
		b.mu.Unlock()
		return 0, ErrNotFound
	}

	p := &b.remote[i]
	inf := b.inflight[id]
	var n int
	switch c {
	case CounterViews:
		p.Views++
		n = p.Views
		inf.views, inf.hasViews = n, true
	default:
		p.Upvotes++
		n = p.Upvotes
		inf.upvotes, inf.hasUpvotes = n, true
	}
	b.seq++
	inf.seq = b.seq
	b.inflight[id] = inf
	b.beginLocked(increment(ref, c))
	b.mu.Unlock()

	b.sync.Schedule(id)
	return n, nil
}

// pendingWrite snapshots the counters to send for post id.
func (b *Board) pendingWrite(id uint) (models.PostPatch, uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	inf, ok := b.inflight[id]
	if !ok {
		return models.PostPatch{}, 0, false
	}
	var patch models.PostPatch
	if inf.hasUpvotes {
		v := inf.upvotes
		patch.Upvotes = &v
	}
	if inf.hasViews {
		v := inf.views
		patch.Views = &v
	}
	return patch, inf.seq, true
}

// settleWrite records the outcome of the write taken at seq.
func (b *Board) settleWrite(id uint, seq uint64, err error) {
	ref := strconv.FormatUint(uint64(id), 10)
	if err != nil {
		metrics.CounterSyncFailures.Inc()
		recordStoreError(err)
		b.log.WithError(err).WithField("ref", ref).Warn("counter write failed, keeping local value")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	inf, ok := b.inflight[id]
	if !ok {
		return
	}
	latest := inf.seq == seq
	if latest {
		delete(b.inflight, id)
	}
	if b.indexLocked(id) < 0 {
		return
	}
	if err != nil || latest {
		b.settleLocked(increment(ref, inf.counter()), err)
	}
}

func (b *Board) dropWrite(id uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inflight, id)
	if b.indexLocked(id) >= 0 {
		ref := strconv.FormatUint(uint64(id), 10)
		b.settleLocked(increment(ref, CounterUpvotes), errWriteDropped)
	}
}

func (inf inflight) counter() Counter {
	if inf.hasUpvotes {
		return CounterUpvotes
	}
	return CounterViews
}

func (b *Board) beginLocked(m Mutation) {
	b.states[m.Ref] = itemState{state: StateMutating}
	b.log.WithField("mutation", m).Debug("mutation started")
}

// settleLocked applies the outcome of m to local state. A failure never
// restores the previous value; it is only noted on the item.
func (b *Board) settleLocked(m Mutation, err error) {
	b.log.WithField("mutation", m).WithError(err).Debug("mutation settled")
	switch {
	case err != nil:
		b.states[m.Ref] = itemState{state: StateLoadedWithError, err: err}
	case m.Compensate == CompensateRemoveOnSuccess:
		delete(b.states, m.Ref)
		if id, _, perr := models.ParseRef(m.Ref); perr == nil {
			if i := b.indexLocked(id); i >= 0 {
				b.remote = append(b.remote[:i], b.remote[i+1:]...)
			}
			delete(b.inflight, id)
		}
		b.invalidateLocked()
	default:
		b.states[m.Ref] = itemState{state: StateLoaded}
	}
}

// invalidateLocked makes refreshes already in flight stale; their
// responses predate a local create or delete.
func (b *Board) invalidateLocked() {
	b.generation++
}

// State reports the lifecycle state of ref and the last mutation error.
func (b *Board) State(ref string) (ItemState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if st, ok := b.states[ref]; ok {
		return st.state, st.err
	}
	if _, ok := b.lookupLocked(ref); ok {
		return StateLoaded, nil
	}
	return StateUnloaded, nil
}

// Delete removes ref from the store, then from local state. When the store
// call fails the post stays and the error is returned.
func (b *Board) Delete(ctx context.Context, ref string, who identity.Identity, key string) error {
	p, err := b.resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := authorize(p, who, key); err != nil {
		return err
	}

	m := deletion(ref)
	b.mu.Lock()
	b.beginLocked(m)
	b.mu.Unlock()

	err = b.store.DeletePost(ctx, p.ID)

	b.mu.Lock()
	b.settleLocked(m, err)
	b.mu.Unlock()

	if err != nil {
		recordStoreError(err)
		b.log.WithError(err).WithField("ref", ref).Warn("delete failed, post kept")
		return fmt.Errorf("delete post %s: %w", ref, err)
	}
	b.log.WithField("ref", ref).Info("post deleted")
	return nil
}

// Create validates in, stores it as a post owned by who and puts it at the
// front of local state.
func (b *Board) Create(ctx context.Context, who identity.Identity, in PostInput) (models.Post, error) {
	in = in.trimmed()
	if in.Author == "" {
		in.Author = who.Name
	}
	if err := in.validateCreate(); err != nil {
		return models.Post{}, err
	}
	p := in.post()
	p.UserID = who.ID
	return b.insert(ctx, p)
}

func (b *Board) insert(ctx context.Context, p models.Post) (models.Post, error) {
	p.Upvotes, p.CommentsCount, p.Views = 0, 0, 0
	if err := b.store.CreatePost(ctx, &p); err != nil {
		recordStoreError(err)
		b.log.WithError(err).Warn("create post failed")
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}

	b.mu.Lock()
	p = normalize(p, 0)
	b.remote = append([]models.Post{p}, b.remote...)
	b.invalidateLocked()
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{"ref": p.Ref(), "user_id": p.UserID}).Info("post created")
	return p, nil
}

// Update replaces the editable fields of ref. Blank optional fields are
// cleared, a blank category becomes "Other".
func (b *Board) Update(ctx context.Context, ref string, who identity.Identity, key string, in PostInput) (models.Post, error) {
	p, err := b.resolve(ctx, ref)
	if err != nil {
		return models.Post{}, err
	}
	if err := authorize(p, who, key); err != nil {
		return models.Post{}, err
	}
	in = in.trimmed()
	if err := in.validateCommon(); err != nil {
		return models.Post{}, err
	}

	patch := in.patch()
	if err := b.store.UpdatePost(ctx, p.ID, patch); err != nil {
		recordStoreError(err)
		b.log.WithError(err).WithField("ref", ref).Warn("update failed")
		return models.Post{}, fmt.Errorf("update post %s: %w", ref, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(p.ID)
	if i < 0 {
		patch.Apply(&p)
		return normalize(p, 0), nil
	}
	patch.Apply(&b.remote[i])
	b.remote[i] = normalize(b.remote[i], i)
	return b.remote[i], nil
}

// Repost creates a discussion post by who that quotes ref.
func (b *Board) Repost(ctx context.Context, who identity.Identity, ref string) (models.Post, error) {
	src, err := b.resolve(ctx, ref)
	if errors.Is(err, ErrFixtureReadOnly) {
		src, _ = b.Get(ref)
	} else if err != nil {
		return models.Post{}, err
	}

	excerpt := src.Content
	if utf8.RuneCountInString(excerpt) > repostExcerptRunes {
		excerpt = string([]rune(excerpt)[:repostExcerptRunes])
	}
	p := models.Post{
		Title:    "🔄 Repost: " + src.Title,
		Content:  `Building on this discussion: "` + excerpt + `..."`,
		Author:   who.Name,
		Category: src.Category,
		Tags:     src.Tags,
		Flag:     models.FlagDiscussion,
		UserID:   who.ID,
	}
	if src.IsReal {
		id := src.ID
		p.RepostID = &id
	}
	return b.insert(ctx, p)
}

// Flush waits for queued counter writes to be attempted.
func (b *Board) Flush(ctx context.Context) error {
	return b.sync.Flush(ctx)
}

// Close sends outstanding counter writes and stops the sync worker.
func (b *Board) Close() {
	b.sync.Close()
}

func recordStoreError(err error) {
	op := "unknown"
	var se *store.Error
	if errors.As(err, &se) {
		op = string(se.Op)
	}
	metrics.StoreErrors.WithLabelValues(op).Inc()
}
