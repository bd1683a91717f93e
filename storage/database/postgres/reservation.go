package pgrepos

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/maktaba/core"
	"github.com/trezcool/maktaba/core/book"
)

const tableReservations = "reservation"

var reservationCols = []interface{}{
	"id", "book_id", "user_id", "end_date", "extension_count", "created_at", "updated_at",
}

func (repo bookRepository) scanReservation(row scanner) (book.Reservation, error) {
	var res book.Reservation
	err := row.Scan(
		&res.ID, &res.BookID, &res.UserID, &res.EndDate,
		&res.ExtensionCount, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return book.Reservation{}, err
	}
	return res, nil
}

func (repo bookRepository) GetReservation(ctx context.Context, bookID, userID string, exec ...core.DBExecutor) (book.Reservation, error) {
	if !validUUIDs(bookID, userID) {
		return book.Reservation{}, book.ErrReservationNotFound
	}

	query, args, err := dialect.From(tableReservations).Select(reservationCols...).
		Where(goqu.Ex{"book_id": bookID, "user_id": userID}).
		Prepared(true).ToSQL()
	if err != nil {
		return book.Reservation{}, errors.Wrap(err, "building reservation select")
	}

	res, err := repo.scanReservation(getExec(repo.exec, exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		return book.Reservation{}, trapNoRowsErr(err, book.ErrReservationNotFound, "finding reservation")
	}
	return res, nil
}

func (repo bookRepository) CreateReservation(ctx context.Context, res book.Reservation, exec ...core.DBExecutor) (book.Reservation, error) {
	res.ID = uuid.New().String()
	query, args, err := dialect.Insert(tableReservations).Rows(goqu.Record{
		"id":              res.ID,
		"book_id":         res.BookID,
		"user_id":         res.UserID,
		"end_date":        res.EndDate.UTC(),
		"extension_count": res.ExtensionCount,
		"created_at":      res.CreatedAt.UTC(),
		"updated_at":      res.UpdatedAt.UTC(),
	}).Prepared(true).ToSQL()
	if err != nil {
		return book.Reservation{}, errors.Wrap(err, "building reservation insert")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return book.Reservation{}, errors.Wrap(err, "inserting reservation")
	}
	return res, nil
}

func (repo bookRepository) UpdateReservation(ctx context.Context, res book.Reservation, exec ...core.DBExecutor) (book.Reservation, error) {
	query, args, err := dialect.Update(tableReservations).Set(goqu.Record{
		"end_date":        res.EndDate.UTC(),
		"extension_count": res.ExtensionCount,
		"updated_at":      res.UpdatedAt.UTC(),
	}).Where(goqu.Ex{"id": res.ID}).Prepared(true).ToSQL()
	if err != nil {
		return book.Reservation{}, errors.Wrap(err, "building reservation update")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return book.Reservation{}, errors.Wrap(err, "updating reservation")
	}
	return res, nil
}

func (repo bookRepository) DeleteReservation(ctx context.Context, bookID, userID string, exec ...core.DBExecutor) error {
	if !validUUIDs(bookID, userID) {
		return nil
	}

	query, args, err := dialect.Delete(tableReservations).
		Where(goqu.Ex{"book_id": bookID, "user_id": userID}).
		Prepared(true).ToSQL()
	if err != nil {
		return errors.Wrap(err, "building reservation delete")
	}
	// deleting an absent reservation affects 0 rows; not an error
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting reservation")
	}
	return nil
}

func (repo bookRepository) QueryReservationsByBook(ctx context.Context, bookID string, exec ...core.DBExecutor) ([]book.Reservation, error) {
	return repo.queryReservations(ctx, goqu.Ex{"book_id": bookID}, bookID, exec)
}

func (repo bookRepository) QueryReservationsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]book.Reservation, error) {
	return repo.queryReservations(ctx, goqu.Ex{"user_id": userID}, userID, exec)
}

func (repo bookRepository) QueryAllReservations(ctx context.Context, exec ...core.DBExecutor) ([]book.Reservation, error) {
	query, args, err := dialect.From(tableReservations).Select(reservationCols...).
		Order(goqu.I("created_at").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building reservations query")
	}
	return repo.selectReservations(ctx, query, args, exec)
}

func (repo bookRepository) queryReservations(ctx context.Context, where goqu.Ex, id string, exec []core.DBExecutor) ([]book.Reservation, error) {
	if !validUUIDs(id) {
		return nil, nil
	}

	query, args, err := dialect.From(tableReservations).Select(reservationCols...).
		Where(where).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building reservations query")
	}
	return repo.selectReservations(ctx, query, args, exec)
}

func (repo bookRepository) selectReservations(ctx context.Context, query string, args []interface{}, exec []core.DBExecutor) ([]book.Reservation, error) {
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying reservations")
	}
	defer func() { _ = rows.Close() }()

	var rss []book.Reservation
	for rows.Next() {
		res, err := repo.scanReservation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning reservation")
		}
		rss = append(rss, res)
	}
	return rss, errors.Wrap(rows.Err(), "querying reservations")
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
