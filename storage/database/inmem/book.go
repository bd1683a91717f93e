package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/maktaba/core"
	"github.com/trezcool/maktaba/core/book"
)

type bookRepository struct {
	books        *bookTable
	reservations *reservationTable
}

var _ book.Repository = (*bookRepository)(nil) // interface compliance check

func NewBookRepository(db *DB) *bookRepository {
	return &bookRepository{books: db.book, reservations: db.reservation}
}

func (repo *bookRepository) CreateBook(_ context.Context, bk book.Book, _ ...core.DBExecutor) (book.Book, error) {
	repo.books.mutex.Lock()
	defer repo.books.mutex.Unlock()

	bk.ID = uuid.New().String()
	repo.books.table[bk.ID] = &bk
	return bk, nil
}

func (repo *bookRepository) GetBook(_ context.Context, filter book.GetFilter, _ ...core.DBExecutor) (book.Book, error) {
	repo.books.mutex.RLock()
	defer repo.books.mutex.RUnlock()

	if bk, ok := repo.books.table[filter.ID]; ok {
		return *bk, nil
	}
	return book.Book{}, book.ErrNotFound
}

func (repo *bookRepository) QueryBooks(
	_ context.Context,
	filter *book.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]book.Book, error) {
	repo.books.mutex.RLock()
	books := make([]book.Book, 0, len(repo.books.table))
	for _, bk := range repo.books.table {
		books = append(books, *bk)
	}
	repo.books.mutex.RUnlock()

	if filter != nil && !filter.IsEmpty() {
		matched := books[:0]
		for _, bk := range books {
			if matches(bk, filter) {
				matched = append(matched, bk)
			}
		}
		books = matched
	}

	orderBooks(books, ordering)
	return books, nil
}

func matches(bk book.Book, filter *book.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(bk.Title), s) &&
			!strings.Contains(strings.ToLower(bk.Author), s) {
			return false
		}
	}
	if len(filter.Tags) > 0 && !tagsOverlap(bk.Tags, filter.Tags) {
		return false
	}
	if filter.Available != nil && *filter.Available != (bk.AvailableCount() > 0) {
		return false
	}
	return true
}

func tagsOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func orderBooks(books []book.Book, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt.Before(books[j].CreatedAt) })
		return
	}

	sort.Slice(books, func(i, j int) bool {
		for _, ord := range ordering {
			var less, greater bool
			switch ord.Field {
			case "author":
				less, greater = books[i].Author < books[j].Author, books[i].Author > books[j].Author
			case "count":
				less, greater = books[i].Count < books[j].Count, books[i].Count > books[j].Count
			case "created_at":
				less = books[i].CreatedAt.Before(books[j].CreatedAt)
				greater = books[i].CreatedAt.After(books[j].CreatedAt)
			default: // title
				less, greater = books[i].Title < books[j].Title, books[i].Title > books[j].Title
			}
			if less || greater {
				if ord.Ascending {
					return less
				}
				return greater
			}
		}
		return false
	})
}

func (repo *bookRepository) UpdateBook(_ context.Context, bk book.Book, _ ...core.DBExecutor) (book.Book, error) {
	repo.books.mutex.Lock()
	defer repo.books.mutex.Unlock()

	if _, ok := repo.books.table[bk.ID]; !ok {
		return book.Book{}, book.ErrNotFound
	}
	repo.books.table[bk.ID] = &bk
	return bk, nil
}

func (repo *bookRepository) DeleteBooksByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.books.mutex.Lock()
	defer repo.books.mutex.Unlock()
	repo.reservations.mutex.Lock()
	defer repo.reservations.mutex.Unlock()

	var count int
	for _, id := range ids {
		if _, ok := repo.books.table[id]; !ok {
			continue
		}
		delete(repo.books.table, id)
		count++
		for key, res := range repo.reservations.table {
			if res.BookID == id {
				delete(repo.reservations.table, key)
			}
		}
	}
	return count, nil
}

func (repo *bookRepository) GetReservation(_ context.Context, bookID, userID string, _ ...core.DBExecutor) (book.Reservation, error) {
	repo.reservations.mutex.RLock()
	defer repo.reservations.mutex.RUnlock()

	if res, ok := repo.reservations.table[pairKey(bookID, userID)]; ok {
		return *res, nil
	}
	return book.Reservation{}, book.ErrReservationNotFound
}

func (repo *bookRepository) CreateReservation(_ context.Context, res book.Reservation, _ ...core.DBExecutor) (book.Reservation, error) {
	repo.reservations.mutex.Lock()
	defer repo.reservations.mutex.Unlock()

	res.ID = uuid.New().String()
	repo.reservations.table[pairKey(res.BookID, res.UserID)] = &res
	return res, nil
}

func (repo *bookRepository) UpdateReservation(_ context.Context, res book.Reservation, _ ...core.DBExecutor) (book.Reservation, error) {
	repo.reservations.mutex.Lock()
	defer repo.reservations.mutex.Unlock()

	key := pairKey(res.BookID, res.UserID)
	if _, ok := repo.reservations.table[key]; !ok {
		return book.Reservation{}, book.ErrReservationNotFound
	}
	repo.reservations.table[key] = &res
	return res, nil
}

func (repo *bookRepository) DeleteReservation(_ context.Context, bookID, userID string, _ ...core.DBExecutor) error {
	repo.reservations.mutex.Lock()
	defer repo.reservations.mutex.Unlock()

	delete(repo.reservations.table, pairKey(bookID, userID))
	return nil
}

func (repo *bookRepository) QueryReservationsByBook(_ context.Context, bookID string, _ ...core.DBExecutor) ([]book.Reservation, error) {
	return repo.queryReservations(func(res book.Reservation) bool { return res.BookID == bookID }), nil
}

func (repo *bookRepository) QueryReservationsByUser(_ context.Context, userID string, _ ...core.DBExecutor) ([]book.Reservation, error) {
	return repo.queryReservations(func(res book.Reservation) bool { return res.UserID == userID }), nil
}

func (repo *bookRepository) QueryAllReservations(_ context.Context, _ ...core.DBExecutor) ([]book.Reservation, error) {
	return repo.queryReservations(func(book.Reservation) bool { return true }), nil
}

func (repo *bookRepository) queryReservations(match func(book.Reservation) bool) []book.Reservation {
	repo.reservations.mutex.RLock()
	defer repo.reservations.mutex.RUnlock()

	var rss []book.Reservation
	for _, res := range repo.reservations.table {
		if match(*res) {
			rss = append(rss, *res)
		}
	}
	sort.Slice(rss, func(i, j int) bool { return rss[i].CreatedAt.Before(rss[j].CreatedAt) })
	return rss
}
