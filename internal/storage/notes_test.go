package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph-mcp/pkg/types"
)

func TestFetchNotesNewestFirst(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first, err := store.CreateNote(ctx, CreateNoteParams{Content: "first"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := store.CreateNote(ctx, CreateNoteParams{Content: "second"})
	require.NoError(t, err)

	notes, err := store.FetchNotes(ctx, FetchNotesParams{})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)
	assert.Equal(t, first.ID, notes[1].ID)
}

func TestFetchNotesByKeyContext(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateNote(ctx, CreateNoteParams{Content: "work note", KeyContext: strPtr("Work")})
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, CreateNoteParams{Content: "home note", KeyContext: strPtr("Home")})
	require.NoError(t, err)

	notes, err := store.FetchNotes(ctx, FetchNotesParams{KeyContext: strPtr("Work")})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "work note", notes[0].Content)
}

func TestFetchNotesContextMethods(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateNote(ctx, CreateNoteParams{Content: "both", Contexts: []string{"Work", "Urgent"}})
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, CreateNoteParams{Content: "work only", Contexts: []string{"Work"}})
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, CreateNoteParams{Content: "urgent only", Contexts: []string{"Urgent"}})
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, CreateNoteParams{Content: "neither"})
	require.NoError(t, err)

	// AND: every context must be linked.
	notes, err := store.FetchNotes(ctx, FetchNotesParams{
		Contexts: []string{"Work", "Urgent"},
		Method:   MatchAll,
	})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "both", notes[0].Content)

	// OR: any one context suffices.
	notes, err = store.FetchNotes(ctx, FetchNotesParams{
		Contexts: []string{"Work", "Urgent"},
		Method:   MatchAny,
	})
	require.NoError(t, err)
	assert.Len(t, notes, 3)
}

func TestFetchNotesByIDs(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	a, err := store.CreateNote(ctx, CreateNoteParams{Content: "a", Contexts: []string{"X"}})
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, CreateNoteParams{Content: "b"})
	require.NoError(t, err)

	notes, err := store.FetchNotesByIDs(ctx, []string{a.ID, "no-such-id"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, a.ID, notes[0].ID)
	assert.Equal(t, []string{"X"}, notes[0].Contexts)
}

func TestFetchNotesByIDsEmpty(t *testing.T) {
	store := setupTestDB(t)

	notes, err := store.FetchNotesByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestGetFilterOptions(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CreateNote(ctx, CreateNoteParams{
		Content:  "a",
		Tags:     []string{"go", "db"},
		NoteType: noteTypePtr(types.NoteTypeTodo),
		Status:   statusPtr(types.StatusOpen),
		Contexts: []string{"Work"},
	})
	require.NoError(t, err)
	_, err = store.CreateNote(ctx, CreateNoteParams{
		Content:  "b",
		Tags:     []string{"go"},
		NoteType: noteTypePtr(types.NoteTypePlain),
		Contexts: []string{"Home"},
	})
	require.NoError(t, err)

	opts, err := store.GetFilterOptions(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Home", "Work"}, opts.Contexts)
	assert.Equal(t, []string{"db", "go"}, opts.Tags)
	assert.Equal(t, []string{"note", "todo"}, opts.NoteTypes)
	assert.Equal(t, []string{"open"}, opts.Statuses)
}

func TestGetFilterOptionsEmptyStore(t *testing.T) {
	store := setupTestDB(t)

	opts, err := store.GetFilterOptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opts.Contexts)
	assert.Empty(t, opts.Tags)
	assert.Empty(t, opts.NoteTypes)
	assert.Empty(t, opts.Statuses)
}

func TestStringSliceCodec(t *testing.T) {
	assert.Nil(t, encodeStringSlice(nil))
	assert.Nil(t, encodeStringSlice([]string{}))

	encoded := encodeStringSlice([]string{"a", "b"})
	require.NotNil(t, encoded)
	assert.Equal(t, []string{"a", "b"}, decodeStringSlice(encoded.(string)))

	// Malformed stored values decode to absent, not an error.
	assert.Nil(t, decodeStringSlice("not json"))
	assert.Nil(t, decodeStringSlice(""))
}
