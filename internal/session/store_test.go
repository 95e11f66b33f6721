package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierloop/internal/flow"
)

func TestStore_Update(t *testing.T) {
	st := NewStore()
	now := time.Now()
	require.NoError(t, st.Insert(newSession("b", Identity{Name: "B"}, now), nil))
	require.NoError(t, st.Insert(newSession("a", Identity{Name: "A"}, now), nil))
	assert.Error(t, st.Insert(newSession("a", Identity{}, now), nil), "duplicate id")
	assert.Equal(t, []string{"a", "b"}, st.IDs())
	assert.Equal(t, 2, st.Len())

	before, err := st.Get("a")
	require.NoError(t, err)

	snap, err := st.Update("a", func(s *Session) (bool, error) {
		s.Presented = append(s.Presented, "q1")
		return false, nil
	}, nil)
	require.NoError(t, err)
	assert.Same(t, before, snap, "unchanged sessions are not republished")
	assert.Empty(t, snap.Presented)

	_, err = st.Update("a", func(s *Session) (bool, error) {
		s.State = flow.State{Phase: flow.PhaseEnd}
		return true, errors.New("boom")
	}, nil)
	require.Error(t, err)
	cur, _ := st.Get("a")
	assert.Equal(t, flow.Initial, cur.State, "failed updates are discarded")

	snap, err = st.Update("a", func(s *Session) (bool, error) {
		s.Presented = append(s.Presented, "q1")
		return true, nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, []string{"q1"}, snap.Presented)
	assert.Empty(t, before.Presented, "earlier snapshots never change")

	_, err = st.Update("zz", func(*Session) (bool, error) { return true, nil }, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get("zz")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_CommitHookRunsUnderLock(t *testing.T) {
	st := NewStore()
	var mu sync.Mutex
	var seen []int
	hook := func(snap *Session) {
		mu.Lock()
		seen = append(seen, snap.Version)
		mu.Unlock()
	}
	require.NoError(t, st.Insert(newSession("a", Identity{}, time.Now()), hook))

	skipped := false
	_, err := st.Update("a", func(*Session) (bool, error) { return false, nil }, func(*Session) { skipped = true })
	require.NoError(t, err)
	assert.False(t, skipped, "no hook without a commit")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Update("a", func(*Session) (bool, error) { return true, nil }, func(snap *Session) {
				time.Sleep(time.Millisecond)
				hook(snap)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := make([]int, 21)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, seen, "hooks run in commit order")
}
