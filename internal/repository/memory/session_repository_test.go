package memory

import (
	"testing"

	"doqulio-chat/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_OrderIsNewestFirst(t *testing.T) {
	repo := NewSessionRepository()
	repo.Save(&entity.ChatSession{Id: "a"})
	repo.Save(&entity.ChatSession{Id: "b"})
	repo.Save(&entity.ChatSession{Id: "c"})

	// Re-saving an existing session keeps its position.
	repo.Save(&entity.ChatSession{Id: "a", Title: "renamed"})

	ids := []string{}
	for _, s := range repo.List() {
		ids = append(ids, s.Id)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	first, ok := repo.First()
	require.True(t, ok)
	assert.Equal(t, "c", first.Id)

	got, ok := repo.Get("a")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)
}

func TestSessionRepository_Delete(t *testing.T) {
	repo := NewSessionRepository()
	repo.Save(&entity.ChatSession{Id: "a"})
	repo.Save(&entity.ChatSession{Id: "b"})

	assert.True(t, repo.Delete("b"))
	assert.False(t, repo.Delete("b"))
	assert.False(t, repo.Delete("missing"))
	assert.Equal(t, 1, repo.Count())

	_, ok := repo.Get("b")
	assert.False(t, ok)

	assert.True(t, repo.Delete("a"))
	_, ok = repo.First()
	assert.False(t, ok)
	assert.Empty(t, repo.List())
}
