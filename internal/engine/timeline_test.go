package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ligdichat/client/internal/engine"
	"ligdichat/client/internal/models"
)

func TestTimelineAppendDeduplicatesByID(t *testing.T) {
	tl := engine.NewTimeline()

	assert.True(t, tl.Append(msg(100, 1, 1, "hi")))
	assert.False(t, tl.Append(msg(100, 1, 1, "hi")), "same id twice is one entry")
	assert.True(t, tl.Append(msg(101, 1, 2, "yo")))

	msgs := tl.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, int64(100), msgs[0].ID)
	assert.Equal(t, int64(101), msgs[1].ID)
}

func TestTimelineKeepsArrivalOrder(t *testing.T) {
	tl := engine.NewTimeline()

	// Arrival order wins even when timestamps disagree.
	older := msg(2, 1, 1, "second")
	newer := msg(1, 1, 1, "first")
	older.CreatedAt = newer.CreatedAt.Add(-1000)

	tl.Append(newer)
	tl.Append(older)

	msgs := tl.Messages()
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.Equal(t, int64(2), msgs[1].ID)
}

func TestTimelineRemove(t *testing.T) {
	tl := engine.NewTimeline()
	tl.Append(msg(100, 1, 1, "a"))
	tl.Append(msg(101, 1, 2, "b"))

	assert.True(t, tl.Remove(100))
	assert.False(t, tl.Remove(100), "second removal is a no-op")
	assert.Equal(t, 1, tl.Len())

	// A removed id may legitimately reappear (it is gone from the set).
	assert.True(t, tl.Append(msg(100, 1, 1, "a")))
}

func TestTimelineReplaceSwapsHistory(t *testing.T) {
	tl := engine.NewTimeline()
	tl.Append(msg(1, 1, 1, "stale"))

	tl.Replace([]models.Message{
		msg(10, 2, 1, "a"),
		msg(11, 2, 2, "b"),
		msg(10, 2, 1, "a"), // duplicate within the fetch itself
	})

	msgs := tl.Messages()
	assert.Len(t, msgs, 2)
	assert.Equal(t, int64(10), msgs[0].ID)
	assert.Equal(t, int64(11), msgs[1].ID)
	assert.False(t, tl.Remove(1), "replaced history forgets old ids")
}
