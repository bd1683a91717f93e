package pgrepos

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maktaba/core"
	"github.com/trezcool/maktaba/core/user"
)

const tableUsers = "user_account"

var userCols = []interface{}{
	"id", "first_name", "last_name", "email", "created_at", "updated_at",
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) scanUser(row scanner) (user.User, error) {
	var usr user.User
	var lastName, email null.String
	err := row.Scan(&usr.ID, &usr.FirstName, &lastName, &email, &usr.CreatedAt, &usr.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	usr.LastName = lastName.String
	usr.Email = email.String
	return usr, nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	query, args, err := dialect.Insert(tableUsers).Rows(goqu.Record{
		"id":         usr.ID,
		"first_name": usr.FirstName,
		"last_name":  null.NewString(usr.LastName, usr.LastName != ""),
		"email":      null.NewString(usr.Email, usr.Email != ""),
		"created_at": usr.CreatedAt.UTC(),
		"updated_at": usr.UpdatedAt.UTC(),
	}).Prepared(true).ToSQL()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user insert")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	query, args, err := dialect.From(tableUsers).Select(userCols...).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user select")
	}

	usr, err := repo.scanUser(getExec(repo.exec, exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context, exec ...core.DBExecutor) ([]user.User, error) {
	query, args, err := dialect.From(tableUsers).Select(userCols...).
		Order(goqu.I("created_at").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer func() { _ = rows.Close() }()

	var users []user.User
	for rows.Next() {
		usr, err := repo.scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning user")
		}
		users = append(users, usr)
	}
	return users, errors.Wrap(rows.Err(), "querying users")
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := dialect.Delete(tableUsers).Where(goqu.C("id").In(valid)).Prepared(true).ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "building users delete")
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
