package pgrepos

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maktaba/core"
	"github.com/trezcool/maktaba/core/book"
)

const tableBooks = "book"

var bookCols = []interface{}{
	"id", "title", "author", "description", "tags", "count", "taken_count", "created_at", "updated_at",
}

type bookRepository struct {
	exec core.DBExecutor
}

var _ book.Repository = (*bookRepository)(nil) // interface compliance check

func NewBookRepository(exec core.DBExecutor) *bookRepository {
	return &bookRepository{exec: exec}
}

func (repo bookRepository) scanBook(row scanner) (book.Book, error) {
	var bk book.Book
	var author, description null.String
	var tags pq.StringArray
	err := row.Scan(
		&bk.ID, &bk.Title, &author, &description, &tags,
		&bk.Count, &bk.TakenCount, &bk.CreatedAt, &bk.UpdatedAt,
	)
	if err != nil {
		return book.Book{}, err
	}
	bk.Author = author.String
	bk.Description = description.String
	if len(tags) > 0 {
		bk.Tags = tags
	}
	return bk, nil
}

func (repo bookRepository) bookRecord(bk book.Book) goqu.Record {
	return goqu.Record{
		"title":       bk.Title,
		"author":      null.NewString(bk.Author, bk.Author != ""),
		"description": null.NewString(bk.Description, bk.Description != ""),
		"tags":        pq.StringArray(bk.Tags),
		"count":       bk.Count,
		"taken_count": bk.TakenCount,
		"created_at":  bk.CreatedAt.UTC(),
		"updated_at":  bk.UpdatedAt.UTC(),
	}
}

func (repo bookRepository) CreateBook(ctx context.Context, bk book.Book, exec ...core.DBExecutor) (book.Book, error) {
	bk.ID = uuid.New().String()
	record := repo.bookRecord(bk)
	record["id"] = bk.ID

	query, args, err := dialect.Insert(tableBooks).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return book.Book{}, errors.Wrap(err, "building book insert")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return book.Book{}, errors.Wrap(err, "inserting book")
	}
	return bk, nil
}

func (repo bookRepository) GetBook(ctx context.Context, filter book.GetFilter, exec ...core.DBExecutor) (book.Book, error) {
	if _, err := uuid.Parse(filter.ID); err != nil {
		return book.Book{}, book.ErrNotFound
	}

	ds := dialect.From(tableBooks).Select(bookCols...).Where(goqu.Ex{"id": filter.ID})
	if filter.ForUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return book.Book{}, errors.Wrap(err, "building book select")
	}

	bk, err := repo.scanBook(getExec(repo.exec, exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		return book.Book{}, trapNoRowsErr(err, book.ErrNotFound, "finding book by ID")
	}
	return bk, nil
}

func (repo bookRepository) QueryBooks(
	ctx context.Context,
	filter *book.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]book.Book, error) {
	ds := dialect.From(tableBooks).Select(bookCols...)

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			ds = ds.Where(goqu.Or(goqu.C("title").ILike(val), goqu.C("author").ILike(val)))
		}
		if len(filter.Tags) > 0 {
			ds = ds.Where(goqu.L("tags && ?", pq.StringArray(filter.Tags)))
		}
		if filter.Available != nil {
			if *filter.Available {
				ds = ds.Where(goqu.L("taken_count < count"))
			} else {
				ds = ds.Where(goqu.L("taken_count >= count"))
			}
		}
	}

	for _, ord := range ordering {
		if ord.Ascending {
			ds = ds.OrderAppend(goqu.I(ord.Field).Asc())
		} else {
			ds = ds.OrderAppend(goqu.I(ord.Field).Desc())
		}
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building books query")
	}
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	defer func() { _ = rows.Close() }()

	var books []book.Book
	for rows.Next() {
		bk, err := repo.scanBook(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning book")
		}
		books = append(books, bk)
	}
	return books, errors.Wrap(rows.Err(), "querying books")
}

func (repo bookRepository) UpdateBook(ctx context.Context, bk book.Book, exec ...core.DBExecutor) (book.Book, error) {
	query, args, err := dialect.Update(tableBooks).
		Set(repo.bookRecord(bk)).
		Where(goqu.Ex{"id": bk.ID}).
		Prepared(true).ToSQL()
	if err != nil {
		return book.Book{}, errors.Wrap(err, "building book update")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return book.Book{}, errors.Wrap(err, "updating book")
	}
	return bk, nil
}

// DeleteBooksByID deletes books; their reservations cascade with the FK.
func (repo bookRepository) DeleteBooksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := dialect.Delete(tableBooks).Where(goqu.C("id").In(valid)).Prepared(true).ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "building books delete")
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting books")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting books")
	}
	return int(cnt), nil
}
