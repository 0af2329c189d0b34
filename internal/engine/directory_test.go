package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ligdichat/client/internal/engine"
	"ligdichat/client/internal/models"
)

func TestDirectoryUpsertFrontInsertsUnknown(t *testing.T) {
	d := engine.NewDirectory()
	d.Seed([]models.Conversation{conv1, conv2})

	fresh := models.Conversation{ID: 9, UserA: userA, UserB: models.User{ID: 9, Email: "z@x"}}
	d.Upsert(fresh)

	list := d.List()
	require.Len(t, list, 3)
	assert.Equal(t, int64(9), list[0].ID, "freshly started conversations list newest-first")
	assert.Equal(t, int64(1), list[1].ID)
}

func TestDirectoryUpsertUpdatesInPlace(t *testing.T) {
	d := engine.NewDirectory()
	d.Seed([]models.Conversation{conv1, conv2})

	updated := conv2
	preview := models.Preview{Content: "hello", CreatedAt: time.Now()}
	updated.LastMessage = &preview
	d.Upsert(updated)

	list := d.List()
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID, "known conversations keep their position")
	require.NotNil(t, list[1].LastMessage)
	assert.Equal(t, "hello", list[1].LastMessage.Content)
}

func TestDirectoryPreviewIsLastWriteWins(t *testing.T) {
	d := engine.NewDirectory()
	d.Seed([]models.Conversation{conv1})

	newer := models.Preview{Content: "newer", CreatedAt: time.Now()}
	older := models.Preview{Content: "older", CreatedAt: newer.CreatedAt.Add(-time.Hour)}

	assert.True(t, d.UpsertPreview(1, newer))
	// A late push for an older message still overwrites: no timestamp
	// comparison happens, the processing order alone decides.
	assert.True(t, d.UpsertPreview(1, older))

	conv, ok := d.Get(1)
	require.True(t, ok)
	assert.Equal(t, "older", conv.LastMessage.Content)
}

func TestDirectoryDropPreview(t *testing.T) {
	d := engine.NewDirectory()
	d.Seed([]models.Conversation{conv1})

	shown := models.Preview{Content: "bye", CreatedAt: time.Now()}
	require.True(t, d.UpsertPreview(1, shown))

	// A different value is not what the list shows, so nothing clears.
	other := models.Preview{Content: "bye", CreatedAt: shown.CreatedAt.Add(-time.Minute)}
	assert.False(t, d.DropPreview(1, other))

	assert.True(t, d.DropPreview(1, shown))
	conv, ok := d.Get(1)
	require.True(t, ok)
	assert.Nil(t, conv.LastMessage)

	assert.False(t, d.DropPreview(1, shown), "already cleared")
	assert.False(t, d.DropPreview(42, shown), "unknown conversation")
}

func TestDirectoryPreviewForUnknownConversation(t *testing.T) {
	d := engine.NewDirectory()
	d.Seed([]models.Conversation{conv1})

	assert.False(t, d.UpsertPreview(42, models.Preview{Content: "ghost"}))
	assert.Equal(t, 1, d.Len())
}
