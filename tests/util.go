package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/maktaba/core/book"
	"github.com/trezcool/maktaba/core/user"
)

func CreateUser(t *testing.T, repo user.Repository, fname, lname, email string, createdAt ...time.Time) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		FirstName: fname,
		LastName:  lname,
		Email:     email,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateBook(t *testing.T, repo book.Repository, title, author string, count int, tags ...string) book.Book {
	t.Helper()

	now := time.Now().UTC()
	bk, err := repo.CreateBook(context.Background(), book.Book{
		Title:     title,
		Author:    author,
		Tags:      tags,
		Count:     count,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBook(): %v", err)
	}
	return bk
}

func CreateReservation(t *testing.T, repo book.Repository, bk book.Book, userID string, endDate time.Time) book.Reservation {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := bk.TakeCopy(); err != nil {
		t.Fatalf("CreateReservation(): %v", err)
	}
	if _, err := repo.UpdateBook(ctx, bk); err != nil {
		t.Fatalf("CreateReservation(): %v", err)
	}
	res, err := repo.CreateReservation(ctx, book.Reservation{
		BookID:    bk.ID,
		UserID:    userID,
		EndDate:   endDate.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateReservation(): %v", err)
	}
	return res
}
