package book

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklist/internal/isbn"
	"booklist/internal/testutil"
)

type countingObserver struct {
	valid, invalid int
}

func (o *countingObserver) ObserveValidation(out isbn.Outcome) {
	if out.Valid() {
		o.valid++
	} else {
		o.invalid++
	}
}

func intPtr(v int) *int { return &v }

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes, tags and dedupes isbns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		obs := &countingObserver{}
		svc := NewService(repo, obs)

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
			assert.Equal(t, []ISBN{
				{Number: testutil.ISBN13A, Type: isbn.ISBN13},
				{Number: testutil.ISBN10A, Type: isbn.ISBN10},
			}, b.ISBNs)
			b.ID = "8a1c6a9e-52cb-4b7e-9d0c-0d3c2f1b7a11"
			return nil
		})

		got, err := svc.Create(ctx, Input{
			Title:         "  Some Test Book ",
			Author:        "Dan Abnett",
			PublishedDate: "2011-11-11",
			Language:      "en",
			Pages:         intPtr(696),
			ISBNs:         []string{"978-0-316-42372-4", "0-316-42372-6", testutil.ISBN13A},
		})
		require.NoError(t, err)
		assert.Equal(t, "Some Test Book", got.Title)
		assert.Equal(t, "8a1c6a9e-52cb-4b7e-9d0c-0d3c2f1b7a11", got.ID)
		assert.Equal(t, 3, obs.valid)
	})

	t.Run("rejects invalid isbn before touching storage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		obs := &countingObserver{}
		svc := NewService(repo, obs)

		_, err := svc.Create(ctx, Input{Title: "x", ISBNs: []string{testutil.ISBN10A, "9780316423725"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, isbn.ErrChecksumMismatch)

		var verr *isbn.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, isbn.ChecksumMismatch, verr.Reason)
		assert.Equal(t, 1, obs.invalid)
	})

	t.Run("requires title", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewService(NewMockRepository(ctrl), nil)

		_, err := svc.Create(ctx, Input{Title: "   "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects non-positive pages", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewService(NewMockRepository(ctrl), nil)

		_, err := svc.Create(ctx, Input{Title: "x", Pages: intPtr(0)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("propagates duplicate isbn", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(ErrDuplicateISBN)

		_, err := svc.Create(ctx, Input{Title: "x", ISBNs: []string{testutil.ISBN13A}})
		assert.ErrorIs(t, err, ErrDuplicateISBN)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2022, 1, 6, 16, 37, 0, 0, time.UTC)

	t.Run("keeps identity and replaces fields", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		repo.EXPECT().Get(gomock.Any(), "id-1").Return(Book{ID: "id-1", Title: "Old", CreatedAt: created}, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
			assert.Equal(t, "id-1", b.ID)
			assert.Equal(t, created, b.CreatedAt)
			assert.Equal(t, "Titanicus", b.Title)
			assert.Equal(t, []ISBN{{Number: testutil.ISBN13C, Type: isbn.ISBN13}}, b.ISBNs)
			return nil
		})

		got, err := svc.Update(ctx, "id-1", Input{Title: "Titanicus", ISBNs: []string{testutil.ISBN13C}})
		require.NoError(t, err)
		assert.Equal(t, "Titanicus", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		repo.EXPECT().Get(gomock.Any(), "missing").Return(Book{}, ErrNotFound)

		_, err := svc.Update(ctx, "missing", Input{Title: "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_GetByISBN(t *testing.T) {
	ctx := context.Background()

	t.Run("looks up normalized number", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		repo.EXPECT().GetByISBN(gomock.Any(), testutil.ISBN10A).Return(Book{ID: "id-1"}, nil)

		got, err := svc.GetByISBN(ctx, "0-316-42372-6")
		require.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
	})

	t.Run("invalid isbn never reaches storage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewService(NewMockRepository(ctrl), nil)

		_, err := svc.GetByISBN(ctx, "837576325x")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, isbn.ErrNonNumericCheckCharacter)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("passes trimmed query", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		from := 2018
		repo.EXPECT().List(gomock.Any(), Query{Search: "Titanicus", DateFrom: &from, Limit: 20}).Return([]Book{{Title: "Titanicus"}}, 1, nil)

		books, total, err := svc.List(ctx, Query{Search: " Titanicus ", DateFrom: &from, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, books, 1)
	})

	t.Run("rejects inverted year range", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewService(NewMockRepository(ctrl), nil)

		from, to := 2019, 2018
		_, _, err := svc.List(ctx, Query{DateFrom: &from, DateTo: &to})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()

	imported := Book{
		Title:    "Mitologia Słowiańska",
		Author:   "Jakub Bobrowski",
		Language: "pl",
		Pages:    intPtr(160),
		ISBNs:    []ISBN{{Number: "83-7576-325-X"}, {Number: testutil.ISBN13B}},
	}

	t.Run("creates new book", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		repo.EXPECT().FindByISBNs(gomock.Any(), []string{testutil.ISBN10B, testutil.ISBN13B}).Return(Book{}, ErrNotFound)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
			assert.Equal(t, []ISBN{
				{Number: testutil.ISBN10B, Type: isbn.ISBN10},
				{Number: testutil.ISBN13B, Type: isbn.ISBN13},
			}, b.ISBNs)
			b.ID = "new"
			return nil
		})

		got, created, err := svc.Upsert(ctx, imported)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "new", got.ID)
	})

	t.Run("refreshes existing book and merges isbns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		existing := Book{
			ID:            "id-2",
			Title:         "Mitologia",
			PublishedDate: "2017",
			ISBNs:         []ISBN{{Number: testutil.ISBN13B, Type: isbn.ISBN13}},
		}
		repo.EXPECT().FindByISBNs(gomock.Any(), gomock.Any()).Return(existing, nil)
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
			assert.Equal(t, "id-2", b.ID)
			assert.Equal(t, "Mitologia Słowiańska", b.Title)
			assert.Equal(t, "2017", b.PublishedDate)
			assert.Equal(t, "Jakub Bobrowski", b.Author)
			assert.Equal(t, []ISBN{
				{Number: testutil.ISBN13B, Type: isbn.ISBN13},
				{Number: testutil.ISBN10B, Type: isbn.ISBN10},
			}, b.ISBNs)
			return nil
		})

		_, created, err := svc.Upsert(ctx, imported)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("requires a valid isbn", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := NewService(NewMockRepository(ctrl), nil)

		_, _, err := svc.Upsert(ctx, Book{Title: "x"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, _, err = svc.Upsert(ctx, Book{Title: "x", ISBNs: []ISBN{{Number: "123"}}})
		assert.ErrorIs(t, err, isbn.ErrInvalidLength)
	})

	t.Run("storage error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, nil)

		repo.EXPECT().FindByISBNs(gomock.Any(), gomock.Any()).Return(Book{}, context.DeadlineExceeded)

		_, _, err := svc.Upsert(ctx, imported)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSerialize(t *testing.T) {
	b := Book{
		Title:         "Titanicus",
		Author:        "Dan Abnett",
		PublishedDate: "2018-07-26",
		Language:      "en",
		Pages:         intPtr(512),
		CoverURL:      "https://covers.openlibrary.org/b/id/1-L.jpg",
	}

	got := Serialize(b)
	assert.Equal(t, "2018-07-26", got.PubDate)
	assert.Equal(t, "en", got.PubLang)
	assert.Equal(t, b.CoverURL, got.CoverLink)
	assert.NotNil(t, got.ISBN)
	assert.Len(t, SerializeAll([]Book{b, b}), 2)
}
