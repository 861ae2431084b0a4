package segsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	fetched := MemberSet{"b": "b@example.com", "c": "c@example.com"}
	cached := []string{"a", "b"}

	d := Diff(fetched, cached)

	assert.Equal(t, []string{"c"}, d.Joined)
	assert.Equal(t, []string{"a"}, d.Left)
	assert.False(t, d.Empty())
}

func TestDiff_NoChanges(t *testing.T) {
	fetched := MemberSet{"a": "a@example.com", "b": "b@example.com"}

	d := Diff(fetched, []string{"b", "a"})

	assert.Empty(t, d.Joined)
	assert.Empty(t, d.Left)
	assert.True(t, d.Empty())
}

func TestDiff_EmptyCache(t *testing.T) {
	fetched := MemberSet{"x": "x@example.com"}

	d := Diff(fetched, nil)

	assert.Equal(t, []string{"x"}, d.Joined)
	assert.Empty(t, d.Left)
}

func TestDiff_EmptyFetch(t *testing.T) {
	d := Diff(MemberSet{}, []string{"a", "b"})

	assert.Empty(t, d.Joined)
	assert.Equal(t, []string{"a", "b"}, d.Left)
}

func TestDiff_JoinedAndLeftAreDisjoint(t *testing.T) {
	fetched := MemberSet{"a": "", "b": "", "c": "", "d": ""}
	cached := []string{"c", "d", "e", "f"}

	d := Diff(fetched, cached)

	assert.Equal(t, []string{"a", "b"}, d.Joined)
	assert.Equal(t, []string{"e", "f"}, d.Left)
	for _, j := range d.Joined {
		assert.NotContains(t, d.Left, j)
	}
}

func TestDiff_SortedOutput(t *testing.T) {
	fetched := MemberSet{"z": "", "m": "", "a": ""}

	d := Diff(fetched, nil)

	assert.Equal(t, []string{"a", "m", "z"}, d.Joined)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "reconciling", StateReconciling.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "aborted", StateAborted.String())
	assert.Equal(t, "unknown", State(99).String())
}
