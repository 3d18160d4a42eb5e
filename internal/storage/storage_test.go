package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NotesAI/internal/kv"
	"NotesAI/internal/model"
)

// --- helpers ---

type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	s := New(mem, nil)
	clock := &tickClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clock.now
	require.NoError(t, s.InitializeStorage(context.Background()))
	return s, mem
}

func indexOf(t *testing.T, mem *kv.Memory, key string) []string {
	t.Helper()
	raw, ok, err := mem.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(raw), &ids))
	return ids
}

func ptr[T any](v T) *T { return &v }

// failingKV возвращает ошибку на Set после заданного числа успешных записей.
type failingKV struct {
	*kv.Memory
	setsLeft int
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setsLeft <= 0 {
		return errors.New("disk full")
	}
	f.setsLeft--
	return f.Memory.Set(ctx, key, value)
}

// --- tests ---

func TestInitializeStorage_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	n, err := s.CreateNote(ctx, model.NoteInput{Title: "keep"})
	require.NoError(t, err)

	require.NoError(t, s.InitializeStorage(ctx))
	assert.Equal(t, []string{n.ID}, indexOf(t, mem, NotesListKey), "повторная инициализация не должна сбрасывать индекс")
	assert.Empty(t, indexOf(t, mem, CategoriesListKey))
}

func TestCreateNote_IndexConsistency(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	created, err := s.CreateNote(ctx, model.NoteInput{Title: "Groceries", Body: "Milk, eggs"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.False(t, created.IsDeleted)
	assert.NotNil(t, created.Images)
	assert.NotNil(t, created.ChecklistItems)

	ids := indexOf(t, mem, NotesListKey)
	count := 0
	for _, id := range ids {
		if id == created.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)

	got, err := s.GetNoteByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)
}

func TestCreateNote_RegeneratesCollidingID(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	require.NoError(t, mem.Set(ctx, NotePrefix+"taken", "{}"))

	seq := []string{"taken", "fresh"}
	s.newID = func() string {
		id := seq[0]
		seq = seq[1:]
		return id
	}
	n, err := s.CreateNote(ctx, model.NoteInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", n.ID)

	s.newID = func() string { return "taken" }
	_, err = s.CreateNote(ctx, model.NoteInput{Title: "y"})
	assert.ErrorIs(t, err, ErrIDCollision)
}

func TestCreateNote_Validation(t *testing.T) {
	s, _ := newTestStore(t)
	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	_, err := s.CreateNote(context.Background(), model.NoteInput{Title: string(long)})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestGetAllNotes_IdempotentAndOrphanTolerant(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	a, err := s.CreateNote(ctx, model.NoteInput{Title: "a"})
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, model.NoteInput{Title: "b", Body: "привет, мир"})
	require.NoError(t, err)

	first, err := s.GetAllNotes(ctx)
	require.NoError(t, err)
	second, err := s.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)

	// осиротевший id в индексе и битая сущность
	ids := append(indexOf(t, mem, NotesListKey), "ghost")
	b, _ := json.Marshal(ids)
	require.NoError(t, mem.Set(ctx, NotesListKey, string(b)))
	require.NoError(t, mem.Set(ctx, NotePrefix+a.ID, "{not json"))

	all, err := s.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "b", all[0].Title)
	st := s.Stats()
	assert.Equal(t, int64(2), st.OrphanedIndexEntries)
	assert.Equal(t, int64(1), st.CorruptEntities)
}

func TestUpdateNote(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t", Color: ptr("yellow"), CategoryID: ptr("c1")})
	require.NoError(t, err)

	upd, err := s.UpdateNote(ctx, n.ID, model.NotePatch{
		Title:          ptr("new"),
		Color:          model.Null(),
		ChecklistItems: &[]model.ChecklistItem{{ID: "i1", Text: "milk"}},
	})
	require.NoError(t, err)
	require.NotNil(t, upd)
	assert.Equal(t, "new", upd.Title)
	assert.Nil(t, upd.Color)
	assert.Equal(t, "c1", *upd.CategoryID, "незаданное поле не трогается")
	assert.Len(t, upd.ChecklistItems, 1)
	assert.True(t, upd.UpdatedAt.After(n.UpdatedAt))
	assert.Equal(t, n.CreatedAt, upd.CreatedAt)

	missing, err := s.UpdateNote(ctx, "nope", model.NotePatch{Title: ptr("x")})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSoftDeleteReversible(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t", Body: "b", Images: []string{"file:///a.png"}})
	require.NoError(t, err)

	del, err := s.DeleteNote(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, del.IsDeleted)

	restored, err := s.RestoreNote(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)

	want := *n
	want.UpdatedAt = restored.UpdatedAt
	assert.Equal(t, want, *restored)

	got, err := s.DeleteNote(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPermanentlyDeleteNote_Final(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t"})
	require.NoError(t, err)

	ok, err := s.PermanentlyDeleteNote(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetNoteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NotContains(t, indexOf(t, mem, NotesListKey), n.ID)
	_, exists, _ := mem.Get(ctx, NotePrefix+n.ID)
	assert.False(t, exists)

	ok, err = s.PermanentlyDeleteNote(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermanentlyDeleteNote_IndexFirst(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	fk := &failingKV{Memory: mem, setsLeft: 100}
	s := New(fk, nil)
	require.NoError(t, s.InitializeStorage(ctx))
	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t"})
	require.NoError(t, err)

	// запись индекса падает: сущность должна остаться на месте
	fk.setsLeft = 0
	_, err = s.PermanentlyDeleteNote(ctx, n.ID)
	require.Error(t, err)
	_, exists, _ := mem.Get(ctx, NotePrefix+n.ID)
	assert.True(t, exists)
}

func TestCreateNote_EntityBeforeIndex(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	fk := &failingKV{Memory: mem, setsLeft: 2}
	s := New(fk, nil)
	require.NoError(t, s.InitializeStorage(ctx)) // две записи индексов

	fk.setsLeft = 1 // сущность запишется, индекс нет
	_, err := s.CreateNote(ctx, model.NoteInput{Title: "t"})
	require.Error(t, err)

	all, err := s.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, s.Stats().OrphanedIndexEntries, "индекс не должен ссылаться на несуществующую сущность")
}

func TestToggles(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t"})
	require.NoError(t, err)

	fav, err := s.ToggleFavorite(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, fav.IsFavorite)
	fav, err = s.ToggleFavorite(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, fav.IsFavorite)

	arch, err := s.ToggleArchive(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, arch.IsArchived)
	assert.False(t, arch.IsDeleted)

	moved, err := s.SetNoteCategory(ctx, n.ID, ptr("c9"))
	require.NoError(t, err)
	assert.Equal(t, "c9", *moved.CategoryID)
	moved, err = s.SetNoteCategory(ctx, n.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.CategoryID)

	locked, err := s.SetLocked(ctx, n.ID, moved.UpdatedAt, true, false, "cipher")
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	assert.False(t, locked.SoftLocked)
	assert.Equal(t, "cipher", locked.Body)

	missing, err := s.ToggleFavorite(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestConditionalWrites_RejectStaleReads(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t", Body: "plain"})
	require.NoError(t, err)
	stale := n.UpdatedAt

	// правка между чтением и записью блокировки
	edited, err := s.UpdateNote(ctx, n.ID, model.NotePatch{Body: ptr("fresh edit")})
	require.NoError(t, err)
	before, _, _ := mem.Get(ctx, NotePrefix+n.ID)

	_, err = s.SetLocked(ctx, n.ID, stale, true, false, "cipher-of-stale-body")
	assert.ErrorIs(t, err, ErrNoteChanged)
	_, err = s.UpdateNoteIf(ctx, n.ID, stale, model.NotePatch{Title: ptr("x")}, false)
	assert.ErrorIs(t, err, ErrNoteChanged)
	after, _, _ := mem.Get(ctx, NotePrefix+n.ID)
	assert.Equal(t, before, after, "отклонённая запись не меняет документ")

	soft, err := s.SetLocked(ctx, n.ID, edited.UpdatedAt, true, true, "fresh edit")
	require.NoError(t, err)
	assert.True(t, soft.SoftLocked)

	// новое тело зашифровано: признак мягкой блокировки снимается
	upd, err := s.UpdateNoteIf(ctx, n.ID, soft.UpdatedAt, model.NotePatch{Body: ptr("v2:abc")}, false)
	require.NoError(t, err)
	assert.True(t, upd.IsLocked)
	assert.False(t, upd.SoftLocked)

	unlocked, err := s.SetLocked(ctx, n.ID, upd.UpdatedAt, false, true, "plain again")
	require.NoError(t, err)
	assert.False(t, unlocked.SoftLocked, "soft учитывается только при блокировке")

	missing, err := s.SetLocked(ctx, "nope", stale, true, false, "x")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestToggleFavorite_ConcurrentCallersSerialized(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	n, err := s.CreateNote(ctx, model.NoteInput{Title: "t"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ToggleFavorite(ctx, n.ID)
		}()
	}
	wg.Wait()

	got, err := s.GetNoteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFavorite, "чётное число переключений возвращает исходное значение")
}

func TestCreateNote_ConcurrentIndexUpdates(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateNote(ctx, model.NoteInput{Title: fmt.Sprintf("n%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, indexOf(t, mem, NotesListKey), 20)
}

func TestEmptyTrash(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	keep, err := s.CreateNote(ctx, model.NoteInput{Title: "keep"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		n, err := s.CreateNote(ctx, model.NoteInput{Title: "trash"})
		require.NoError(t, err)
		_, err = s.DeleteNote(ctx, n.ID)
		require.NoError(t, err)
	}

	purged, err := s.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, purged)
	assert.Equal(t, []string{keep.ID}, indexOf(t, mem, NotesListKey))

	purged, err = s.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestCategories_CreateOrderAndUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	work, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Work", Color: "blue"})
	require.NoError(t, err)
	assert.Equal(t, 0, work.OrderIndex)
	home, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Home"})
	require.NoError(t, err)
	assert.Equal(t, 1, home.OrderIndex)
	first, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Pinned", OrderIndex: ptr(0)})
	require.NoError(t, err)

	all, err := s.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// равный order_index — по created_at
	assert.Equal(t, []string{work.ID, first.ID, home.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	upd, err := s.UpdateCategory(ctx, home.ID, model.CategoryPatch{Name: ptr("House"), Icon: model.Value("home")})
	require.NoError(t, err)
	assert.Equal(t, "House", upd.Name)
	assert.Equal(t, "home", *upd.Icon)

	_, err = s.UpdateCategory(ctx, home.ID, model.CategoryPatch{Name: ptr("")})
	assert.Error(t, err)
	_, err = s.CreateCategory(ctx, model.CategoryInput{})
	assert.Error(t, err)

	missing, err := s.UpdateCategory(ctx, "nope", model.CategoryPatch{Name: ptr("x")})
	assert.NoError(t, err)
	assert.Nil(t, missing)
	got, err := s.GetCategoryByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteCategory_ClearsReferences(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	c, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Work"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.CreateNote(ctx, model.NoteInput{Title: "n", CategoryID: ptr(c.ID)})
		require.NoError(t, err)
	}
	other, err := s.CreateNote(ctx, model.NoteInput{Title: "other"})
	require.NoError(t, err)

	found, reassigned, err := s.DeleteCategory(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, reassigned)

	notes, err := s.GetAllNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 4, "заметки не удаляются вместе с категорией")
	for _, n := range notes {
		assert.False(t, n.InCategory(c.ID))
		assert.Nil(t, n.CategoryID)
	}
	assert.NotContains(t, indexOf(t, mem, CategoriesListKey), c.ID)
	_, exists, _ := mem.Get(ctx, CategoryPrefix+c.ID)
	assert.False(t, exists)

	untouched, err := s.GetNoteByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.UpdatedAt, untouched.UpdatedAt)

	found, _, err = s.DeleteCategory(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteCategory_Reassign(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	from, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Old"})
	require.NoError(t, err)
	to, err := s.CreateCategory(ctx, model.CategoryInput{Name: "New"})
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, model.NoteInput{Title: "n", CategoryID: ptr(from.ID)})
	require.NoError(t, err)

	_, reassigned, err := s.DeleteCategory(ctx, from.ID, ptr(to.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, reassigned)
	got, err := s.GetNoteByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, to.ID, *got.CategoryID)

	// несуществующая цель — ссылка очищается
	n2, err := s.CreateNote(ctx, model.NoteInput{Title: "n2", CategoryID: ptr(to.ID)})
	require.NoError(t, err)
	_, _, err = s.DeleteCategory(ctx, to.ID, ptr("ghost"))
	require.NoError(t, err)
	got, err = s.GetNoteByID(ctx, n2.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestUpdateCategoriesOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var ids []string
	for _, name := range []string{"one", "two", "three", "four"} {
		c, err := s.CreateCategory(ctx, model.CategoryInput{Name: name})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	id1, id2, id3, id4 := ids[0], ids[1], ids[2], ids[3]

	ordered, err := s.UpdateCategoriesOrder(ctx, []string{id3, id1, id2})
	require.NoError(t, err)
	require.Len(t, ordered, 4)

	all, err := s.GetAllCategories(ctx)
	require.NoError(t, err)
	var got []string
	for i, c := range all {
		got = append(got, c.ID)
		assert.Equal(t, i, c.OrderIndex)
	}
	assert.Equal(t, []string{id3, id1, id2, id4}, got, "неупомянутые категории встают в конец")

	_, err = s.UpdateCategoriesOrder(ctx, []string{id1, "ghost"})
	assert.ErrorIs(t, err, ErrUnknownCategory)
	_, err = s.UpdateCategoriesOrder(ctx, []string{id1, id1})
	assert.ErrorIs(t, err, ErrDuplicateCategory)

	after, err := s.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, after, "отклонённый порядок ничего не меняет")
}

func TestGetCategoryNoteCounts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	work, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Work"})
	require.NoError(t, err)
	empty, err := s.CreateCategory(ctx, model.CategoryInput{Name: "Empty"})
	require.NoError(t, err)

	_, err = s.CreateNote(ctx, model.NoteInput{Title: "a", CategoryID: ptr(work.ID)})
	require.NoError(t, err)
	b, err := s.CreateNote(ctx, model.NoteInput{Title: "b", CategoryID: ptr(work.ID)})
	require.NoError(t, err)
	c, err := s.CreateNote(ctx, model.NoteInput{Title: "c", CategoryID: ptr(work.ID)})
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, model.NoteInput{Title: "d"})
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, model.NoteInput{Title: "e", CategoryID: ptr("dangling")})
	require.NoError(t, err)

	_, err = s.DeleteNote(ctx, b.ID)
	require.NoError(t, err)
	_, err = s.ToggleArchive(ctx, c.ID)
	require.NoError(t, err)

	counts, err := s.GetCategoryNoteCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[work.ID])
	assert.Equal(t, 0, counts[empty.ID])
	assert.Equal(t, 3, counts[model.AllCategoryID])
	_, ok := counts["dangling"]
	assert.False(t, ok)
}
