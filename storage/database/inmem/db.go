package inmemdb

import (
	"sync"

	"github.com/trezcool/maktaba/core/book"
	"github.com/trezcool/maktaba/core/user"
)

type (
	bookTable struct {
		mutex sync.RWMutex
		table map[string]*book.Book
	}

	// reservations are keyed by the (book, user) pair
	reservationTable struct {
		mutex sync.RWMutex
		table map[string]*book.Reservation
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	DB struct {
		book        *bookTable
		reservation *reservationTable
		user        *userTable
	}
)

func Open() *DB {
	return &DB{
		book:        &bookTable{table: make(map[string]*book.Book)},
		reservation: &reservationTable{table: make(map[string]*book.Reservation)},
		user:        &userTable{table: make(map[string]*user.User)},
	}
}

func pairKey(bookID, userID string) string {
	return bookID + "|" + userID
}
