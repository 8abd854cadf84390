package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOwner = common.HexToAddress("0x66b57885E8E9D84742faBda0cE6E3496055b012d")

func makeAssets(collection string, from, n int) []Asset {
	out := make([]Asset, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, Asset{
			Address:      "0xAbCdEf0000000000000000000000000000000001",
			TokenID:      fmt.Sprintf("%d", i),
			ChainID:      1,
			CollectionID: collection,
		})
	}
	return out
}

type pageCall struct {
	id   string
	opts PageOptions
}

type fakeSource struct {
	mu      sync.Mutex
	pages   map[string]Page
	errs    map[string]error
	calls   []pageCall
	entered chan struct{}
	release chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[string]Page{}, errs: map[string]error{}}
}

func (f *fakeSource) AssetsByCollectionAndOwner(ctx context.Context, id string, owner common.Address, opts PageOptions) (Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageCall{id: id, opts: opts})
	entered, release := f.entered, f.release
	page, err := f.pages[opts.Cursor], f.errs[opts.Cursor]
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return page, err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeVerified struct {
	calls atomic.Int32
	names []string
	err   error
}

func (f *fakeVerified) VerifiedBy(context.Context, string) ([]string, error) {
	f.calls.Add(1)
	return f.names, f.err
}

func TestLoadAssetsTwoPages(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4), NextCursor: "p2"}
	src.pages["p2"] = Page{Data: makeAssets("c1", 4, 20)}

	c := NewCache(testOwner, src, nil)
	col := Collection{ID: "c1", ChainID: 1}

	c.LoadAssets(context.Background(), col)
	st := c.GetAssets("c1")
	assert.Len(t, st.Assets, 4)
	assert.Equal(t, "p2", st.Cursor)
	assert.False(t, st.Finished)
	assert.False(t, st.Loading)

	c.LoadAssets(context.Background(), col)
	st = c.GetAssets("c1")
	assert.Len(t, st.Assets, 24)
	assert.True(t, st.Finished)
	assert.False(t, st.Loading)

	require.Len(t, src.calls, 2)
	assert.Equal(t, PageOptions{Cursor: "", Size: FirstPageSize, ChainID: 1}, src.calls[0].opts)
	assert.Equal(t, PageOptions{Cursor: "p2", Size: PageSize, ChainID: 1}, src.calls[1].opts)

	c.LoadAssets(context.Background(), col)
	assert.Equal(t, 2, src.callCount())
}

func TestLoadAssetsEmptyIDIsNoop(t *testing.T) {
	src := newFakeSource()
	c := NewCache(testOwner, src, nil)

	c.LoadAssets(context.Background(), Collection{ChainID: 1})
	assert.Equal(t, 0, src.callCount())
	assert.Empty(t, c.Collections())
}

func TestLoadAssetsSingleInFlight(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4), NextCursor: "p2"}
	src.entered = make(chan struct{}, 1)
	src.release = make(chan struct{})

	c := NewCache(testOwner, src, nil)
	col := Collection{ID: "c1", ChainID: 1}

	done := make(chan struct{})
	go func() {
		c.LoadAssets(context.Background(), col)
		close(done)
	}()

	select {
	case <-src.entered:
	case <-time.After(time.Second):
		t.Fatal("first fetch never started")
	}

	assert.True(t, c.GetAssets("c1").Loading)
	c.LoadAssets(context.Background(), col)
	assert.Equal(t, 1, src.callCount())

	close(src.release)
	<-done

	st := c.GetAssets("c1")
	assert.False(t, st.Loading)
	assert.Len(t, st.Assets, 4)
}

func TestLoadAssetsFailureResetsToIdle(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4), NextCursor: "p2"}
	src.errs["p2"] = errors.New("rate limited")

	c := NewCache(testOwner, src, nil)
	col := Collection{ID: "c1", ChainID: 1}

	c.LoadAssets(context.Background(), col)
	c.LoadAssets(context.Background(), col)

	st := c.GetAssets("c1")
	assert.False(t, st.Loading)
	assert.False(t, st.Finished)
	assert.Equal(t, "p2", st.Cursor)
	assert.Equal(t, "rate limited", st.Error)
	assert.Len(t, st.Assets, 4)

	delete(src.errs, "p2")
	src.pages["p2"] = Page{Data: makeAssets("c1", 4, 2)}
	c.LoadAssets(context.Background(), col)

	st = c.GetAssets("c1")
	assert.Empty(t, st.Error)
	assert.True(t, st.Finished)
	assert.Len(t, st.Assets, 6)
	assert.Equal(t, "p2", src.calls[2].opts.Cursor)
	assert.Equal(t, PageSize, src.calls[2].opts.Size)
}

func TestLoadAssetsRejectsStuckCursor(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4), NextCursor: "p2"}
	src.pages["p2"] = Page{Data: makeAssets("c1", 4, 4), NextCursor: "p2"}

	c := NewCache(testOwner, src, nil)
	col := Collection{ID: "c1"}
	c.LoadAssets(context.Background(), col)
	c.LoadAssets(context.Background(), col)

	st := c.GetAssets("c1")
	assert.Len(t, st.Assets, 4)
	assert.Equal(t, ErrCursorNotAdvanced.Error(), st.Error)
}

func TestLoadAssetsDedupAcrossPages(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4), NextCursor: "p2"}
	src.pages["p2"] = Page{Data: makeAssets("c1", 2, 4)}

	c := NewCache(testOwner, src, nil)
	c.LoadAssets(context.Background(), Collection{ID: "c1"})
	c.LoadAssets(context.Background(), Collection{ID: "c1"})

	assert.Len(t, c.GetAssets("c1").Assets, 6)
}

func TestLoadAssetsMonotonic(t *testing.T) {
	src := newFakeSource()
	sizes := []int{4, 20, 20, 7}
	from := 0
	for i, n := range sizes {
		cursor := ""
		if i > 0 {
			cursor = fmt.Sprintf("p%d", i)
		}
		next := ""
		if i < len(sizes)-1 {
			next = fmt.Sprintf("p%d", i+1)
		}
		src.pages[cursor] = Page{Data: makeAssets("c1", from, n), NextCursor: next}
		from += n
	}

	c := NewCache(testOwner, src, nil)
	prev, total := 0, 0
	for _, n := range sizes {
		c.LoadAssets(context.Background(), Collection{ID: "c1"})
		total += n
		got := len(c.GetAssets("c1").Assets)
		assert.GreaterOrEqual(t, got, prev)
		assert.Equal(t, total, got)
		prev = got
	}
	assert.True(t, c.GetAssets("c1").Finished)
}

func TestCollectionsAreIndependent(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("x", 0, 4), NextCursor: "p2"}

	c := NewCache(testOwner, src, nil)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			c.LoadAssets(context.Background(), Collection{ID: id})
		}(id)
	}
	wg.Wait()

	assert.Equal(t, []string{"a", "b", "c"}, c.Collections())
	for _, id := range []string{"a", "b", "c"} {
		assert.Len(t, c.GetAssets(id).Assets, 4)
	}
}

func TestHiddenFilter(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4)}

	c := NewCache(testOwner, src, nil)
	c.LoadAssets(context.Background(), Collection{ID: "c1"})

	c.SetHidden([]string{"0xabcdef0000000000000000000000000000000001_1", "0XABCDEF0000000000000000000000000000000001_3"})

	first := c.GetAssets("c1")
	require.Len(t, first.Assets, 2)
	assert.Equal(t, "0", first.Assets[0].TokenID)
	assert.Equal(t, "2", first.Assets[1].TokenID)

	second := c.GetAssets("c1")
	assert.Same(t, &first.Assets[0], &second.Assets[0])
	assert.Equal(t, 1, c.recomputes)

	c.SetHidden([]string{"0xABCDEF0000000000000000000000000000000001_3", "0xabcdef0000000000000000000000000000000001_1"})
	c.GetAssets("c1")
	assert.Equal(t, 1, c.recomputes)

	c.SetHidden(nil)
	assert.Len(t, c.GetAssets("c1").Assets, 4)
	assert.Equal(t, 2, c.recomputes)
}

func TestHiddenFilterLeavesAccumulatedState(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4), NextCursor: "p2"}
	src.pages["p2"] = Page{Data: makeAssets("c1", 4, 1)}

	c := NewCache(testOwner, src, nil)
	c.LoadAssets(context.Background(), Collection{ID: "c1"})
	c.SetHidden([]string{makeAssets("c1", 0, 1)[0].Key()})
	assert.Len(t, c.GetAssets("c1").Assets, 3)

	// page size depends on accumulated, not visible, assets
	c.LoadAssets(context.Background(), Collection{ID: "c1"})
	assert.Equal(t, PageSize, src.calls[1].opts.Size)
	assert.Len(t, c.GetAssets("c1").Assets, 4)
}

func TestVerifiedByMemoized(t *testing.T) {
	v := &fakeVerified{names: nil}
	c := NewCache(testOwner, nil, v)

	_, ok := c.GetVerifiedBy("c1")
	assert.False(t, ok)

	c.LoadVerifiedBy(context.Background(), "c1")
	c.LoadVerifiedBy(context.Background(), "c1")
	c.LoadVerifiedBy(context.Background(), "")

	names, ok := c.GetVerifiedBy("c1")
	assert.True(t, ok)
	assert.Empty(t, names)
	assert.EqualValues(t, 1, v.calls.Load())
}

func TestVerifiedByFailureRetries(t *testing.T) {
	v := &fakeVerified{err: errors.New("down")}
	c := NewCache(testOwner, nil, v)

	c.LoadVerifiedBy(context.Background(), "c1")
	_, ok := c.GetVerifiedBy("c1")
	assert.False(t, ok)

	v.err = nil
	v.names = []string{"OpenSea", "LooksRare"}
	c.LoadVerifiedBy(context.Background(), "c1")

	names, ok := c.GetVerifiedBy("c1")
	assert.True(t, ok)
	assert.Equal(t, []string{"OpenSea", "LooksRare"}, names)
	assert.EqualValues(t, 2, v.calls.Load())
}

type fakeHidden struct {
	feed event.Feed
	keys map[string][]string
}

func (f *fakeHidden) Keys(user string) []string { return f.keys[user] }

func (f *fakeHidden) SubscribeUpdates(ch chan<- HiddenUpdate) event.Subscription {
	return f.feed.Subscribe(ch)
}

func TestWatchHidden(t *testing.T) {
	src := newFakeSource()
	src.pages[""] = Page{Data: makeAssets("c1", 0, 4)}
	c := NewCache(testOwner, src, nil)
	c.LoadAssets(context.Background(), Collection{ID: "c1"})

	hidden := &fakeHidden{keys: map[string][]string{"alice": {makeAssets("c1", 0, 1)[0].Key()}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.WatchHidden(ctx, "alice", hidden) }()

	require.Eventually(t, func() bool { return len(c.GetAssets("c1").Assets) == 3 }, time.Second, 5*time.Millisecond)

	// wait for the subscription before sending
	require.Eventually(t, func() bool {
		return hidden.feed.Send(HiddenUpdate{User: "bob", Keys: nil}) > 0
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, c.GetAssets("c1").Assets, 3)

	hidden.feed.Send(HiddenUpdate{User: "alice", Keys: nil})
	require.Eventually(t, func() bool { return len(c.GetAssets("c1").Assets) == 4 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
