package book

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/maktaba/core"
	"github.com/trezcool/maktaba/core/user"
)

var (
	// errors
	ErrNotFound            = errors.New("book not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// due-date reminders go out one day before the reservation expires
const reminderLead = 24 * time.Hour

const dueDateFormat = "Mon, 02 Jan 2006"

var nowFunc = time.Now // mockable

type (
	// Repository persists books and their reservation ledger. The optional
	// exec overrides the default executor so calls can join an enclosing
	// transaction.
	Repository interface {
		CreateBook(ctx context.Context, bk Book, exec ...core.DBExecutor) (Book, error)
		GetBook(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Book, error)
		// QueryBooks applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Book.Title or Book.Author.
		QueryBooks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Book, error)
		UpdateBook(ctx context.Context, bk Book, exec ...core.DBExecutor) (Book, error)
		// DeleteBooksByID also drops the deleted books' reservations.
		DeleteBooksByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		// GetReservation returns the active reservation for the (book, user)
		// pair, or ErrReservationNotFound.
		GetReservation(ctx context.Context, bookID, userID string, exec ...core.DBExecutor) (Reservation, error)
		CreateReservation(ctx context.Context, res Reservation, exec ...core.DBExecutor) (Reservation, error)
		UpdateReservation(ctx context.Context, res Reservation, exec ...core.DBExecutor) (Reservation, error)
		// DeleteReservation is a no-op if the pair has no reservation.
		DeleteReservation(ctx context.Context, bookID, userID string, exec ...core.DBExecutor) error
		QueryReservationsByBook(ctx context.Context, bookID string, exec ...core.DBExecutor) ([]Reservation, error)
		QueryReservationsByUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Reservation, error)
		QueryAllReservations(ctx context.Context, exec ...core.DBExecutor) ([]Reservation, error)
	}

	// Directory looks up reservation owners for display and notifications.
	// A missing entry degrades to a placeholder; it never fails a listing.
	Directory interface {
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error)
	}

	ServiceInterface interface {
		CreateBook(ctx context.Context, nb NewBook) (Book, error)
		GetByID(ctx context.Context, id string) (Book, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Book, error)
		UpdateBookInfo(ctx context.Context, id string, ub UpdateBook) (Book, error)
		Delete(ctx context.Context, ids ...string) error

		Reserve(ctx context.Context, bookID, userID string) (Reservation, error)
		Release(ctx context.Context, bookID, userID string) error
		Extend(ctx context.Context, bookID, userID string) (Reservation, error)
		ReservationsForBook(ctx context.Context, bookID string) ([]BookReservation, error)
		ReservationsForUser(ctx context.Context, userID string) ([]UserReservation, error)
		ScheduleReminders(ctx context.Context) error
	}

	Service struct {
		db        core.DB
		repo      Repository
		directory Directory
		mailSvc   core.EmailService
		scheduler core.JobScheduler
		conf      *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	directory Directory,
	mailSvc core.EmailService,
	scheduler core.JobScheduler,
	conf *core.Config,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		directory: directory,
		mailSvc:   mailSvc,
		scheduler: scheduler,
		conf:      conf,
	}
}

// NewServiceMock returns a Service without a transactional boundary;
// repositories are hit directly. For tests.
func NewServiceMock(
	repo Repository,
	directory Directory,
	mailSvc core.EmailService,
	scheduler core.JobScheduler,
	conf *core.Config,
) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		mailSvc:   mailSvc,
		scheduler: scheduler,
		conf:      conf,
	}
}

// runInTx runs fn within a single transaction so book counters and ledger
// mutations commit (or roll back) as one unit.
func (svc *Service) runInTx(ctx context.Context, fn func(exec ...core.DBExecutor) error) error {
	if svc.db == nil { // mock mode
		return fn()
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func reminderTag(bookID, userID string) string {
	return "reservation-reminder:" + bookID + ":" + userID
}

// Catalog

func (svc *Service) CreateBook(ctx context.Context, nb NewBook) (Book, error) {
	now := nowFunc().UTC()
	bk := Book{
		Title:       nb.Title,
		Author:      nb.Author,
		Description: nb.Description,
		Tags:        nb.Tags,
		Count:       nb.Count,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateBook(ctx, bk)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Book, error) {
	return svc.repo.GetBook(ctx, GetFilter{ID: id})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Book, error) {
	return svc.repo.QueryBooks(ctx, filter, ordering)
}

func (svc *Service) UpdateBookInfo(ctx context.Context, id string, ub UpdateBook) (Book, error) {
	var bk Book
	err := svc.runInTx(ctx, func(exec ...core.DBExecutor) error {
		var err error
		if bk, err = svc.repo.GetBook(ctx, GetFilter{ID: id, ForUpdate: true}, exec...); err != nil {
			return err
		}
		if ub.Count < bk.TakenCount {
			return core.NewValidationError(nil, core.FieldError{
				Field: "count", Error: "cannot be lower than the number of copies currently taken",
			})
		}
		bk.Title = ub.Title
		bk.Author = ub.Author
		bk.Description = ub.Description
		bk.Tags = ub.Tags
		bk.Count = ub.Count
		bk.UpdatedAt = nowFunc().UTC()
		bk, err = svc.repo.UpdateBook(ctx, bk, exec...)
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return bk, nil
}

// Delete removes books from the catalog; their reservations cascade and the
// matching reminders are canceled.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	var tags []string
	err := svc.runInTx(ctx, func(exec ...core.DBExecutor) error {
		for _, id := range ids {
			rss, err := svc.repo.QueryReservationsByBook(ctx, id, exec...)
			if err != nil {
				return err
			}
			for _, res := range rss {
				tags = append(tags, reminderTag(res.BookID, res.UserID))
			}
		}
		_, err := svc.repo.DeleteBooksByID(ctx, ids, exec...)
		return err
	})
	if err != nil {
		return err
	}
	for _, tag := range tags {
		svc.scheduler.Cancel(tag)
	}
	return nil
}

// Reservations

// Reserve grants userID a copy of bookID for one reservation period.
// Fails with ErrNotFound (missing book) or a ValidationError carrying
// ErrAlreadyReserved / ErrNoCopiesAvailable.
func (svc *Service) Reserve(ctx context.Context, bookID, userID string) (Reservation, error) {
	var bk Book
	var res Reservation
	err := svc.runInTx(ctx, func(exec ...core.DBExecutor) error {
		var err error
		// lock the book row; concurrent reserves of the last copy serialize here
		if bk, err = svc.repo.GetBook(ctx, GetFilter{ID: bookID, ForUpdate: true}, exec...); err != nil {
			return err
		}

		hasReservation := true
		if _, err = svc.repo.GetReservation(ctx, bookID, userID, exec...); err != nil {
			if errors.Cause(err) != ErrReservationNotFound {
				return err
			}
			hasReservation = false
		}

		if err = CanReserve(bk, hasReservation); err != nil {
			return core.NewValidationError(err)
		}
		if err = bk.TakeCopy(); err != nil {
			return core.NewValidationError(err)
		}
		if _, err = svc.repo.UpdateBook(ctx, bk, exec...); err != nil {
			return err
		}

		now := nowFunc().UTC()
		res, err = svc.repo.CreateReservation(ctx, Reservation{
			BookID:    bookID,
			UserID:    userID,
			EndDate:   InitialEndDate(now),
			CreatedAt: now,
			UpdatedAt: now,
		}, exec...)
		return err
	})
	if err != nil {
		return Reservation{}, err
	}

	svc.notify(ctx, bk, res, "Reservation confirmed")
	return res, nil
}

// Release returns userID's copy of bookID. Releasing an absent reservation is
// a no-op; a missing book is tolerated so deletion-cascade cleanup can never
// strand ledger entries.
func (svc *Service) Release(ctx context.Context, bookID, userID string) error {
	err := svc.runInTx(ctx, func(exec ...core.DBExecutor) error {
		bookExists := true
		bk, err := svc.repo.GetBook(ctx, GetFilter{ID: bookID, ForUpdate: true}, exec...)
		if err != nil {
			if errors.Cause(err) != ErrNotFound {
				return err
			}
			bookExists = false
		}

		if _, err = svc.repo.GetReservation(ctx, bookID, userID, exec...); err != nil {
			if errors.Cause(err) == ErrReservationNotFound {
				return nil // releasing twice in a row is fine
			}
			return err
		}
		if err = svc.repo.DeleteReservation(ctx, bookID, userID, exec...); err != nil {
			return err
		}
		if !bookExists {
			return nil
		}

		if err = bk.ReleaseCopy(); err != nil {
			return errors.Wrapf(err, "releasing copy of book %s", bookID)
		}
		_, err = svc.repo.UpdateBook(ctx, bk, exec...)
		return err
	})
	if err != nil {
		return err
	}

	svc.scheduler.Cancel(reminderTag(bookID, userID))
	return nil
}

// Extend renews userID's reservation of bookID by one period, counting from
// the current end date. Fails with ErrNotFound / ErrReservationNotFound, or a
// ValidationError carrying ErrExtensionLimitReached.
func (svc *Service) Extend(ctx context.Context, bookID, userID string) (Reservation, error) {
	var bk Book
	var res Reservation
	err := svc.runInTx(ctx, func(exec ...core.DBExecutor) error {
		var err error
		if bk, err = svc.repo.GetBook(ctx, GetFilter{ID: bookID, ForUpdate: true}, exec...); err != nil {
			return err
		}
		if res, err = svc.repo.GetReservation(ctx, bookID, userID, exec...); err != nil {
			return err
		}

		if err = CanExtend(res); err != nil {
			return core.NewValidationError(err)
		}
		res.EndDate = ExtendedEndDate(res.EndDate)
		res.ExtensionCount++
		res.UpdatedAt = nowFunc().UTC()
		res, err = svc.repo.UpdateReservation(ctx, res, exec...)
		return err
	})
	if err != nil {
		return Reservation{}, err
	}

	svc.notify(ctx, bk, res, "Reservation extended")
	return res, nil
}

// ReservationsForBook lists a book's reservations decorated with owner display
// data; owners missing from the directory come back as the Unknown placeholder.
func (svc *Service) ReservationsForBook(ctx context.Context, bookID string) ([]BookReservation, error) {
	if _, err := svc.repo.GetBook(ctx, GetFilter{ID: bookID}); err != nil {
		return nil, err
	}
	rss, err := svc.repo.QueryReservationsByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	views := make([]BookReservation, 0, len(rss))
	for _, res := range rss {
		usr, err := svc.directory.GetUserByID(ctx, res.UserID)
		if err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return nil, errors.Wrap(err, "looking up reservation owner")
			}
			usr = user.Unknown(res.UserID)
		}
		views = append(views, BookReservation{Reservation: res, UserName: usr.FullName(), UserEmail: usr.Email})
	}
	return views, nil
}

// ReservationsForUser lists a user's reservations decorated with book titles.
func (svc *Service) ReservationsForUser(ctx context.Context, userID string) ([]UserReservation, error) {
	rss, err := svc.repo.QueryReservationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]UserReservation, 0, len(rss))
	for _, res := range rss {
		bk, err := svc.repo.GetBook(ctx, GetFilter{ID: res.BookID})
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue // stale ledger entry, the book is gone
			}
			return nil, err
		}
		views = append(views, UserReservation{Reservation: res, BookTitle: bk.Title})
	}
	return views, nil
}

// ScheduleReminders rebuilds the due-date reminders from the ledger. Reminder
// timers live in process only; the API calls this on boot to recover them
// after a restart.
func (svc *Service) ScheduleReminders(ctx context.Context) error {
	rss, err := svc.repo.QueryAllReservations(ctx)
	if err != nil {
		return err
	}
	for _, res := range rss {
		bk, err := svc.repo.GetBook(ctx, GetFilter{ID: res.BookID})
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue // stale ledger entry, the book is gone
			}
			return err
		}
		usr, err := svc.directory.GetUserByID(ctx, res.UserID)
		if err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return errors.Wrap(err, "looking up reservation owner")
			}
			continue
		}
		if usr.Email == "" {
			continue
		}
		svc.scheduleReminder(bk, res, mail.Address{Name: usr.FullName(), Address: usr.Email})
	}
	return nil
}

// notify sends a confirmation email and (re)schedules the due-date reminder.
// Best effort; a reservation does not fail because its owner has no mailbox.
func (svc *Service) notify(ctx context.Context, bk Book, res Reservation, subject string) {
	usr, err := svc.directory.GetUserByID(ctx, res.UserID)
	if err != nil || usr.Email == "" {
		return
	}
	addr := mail.Address{Name: usr.FullName(), Address: usr.Email}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{addr},
		Subject: subject,
		BodyStr: fmt.Sprintf("Your reservation of %q is due on %s.", bk.Title, res.EndDate.Format(dueDateFormat)),
	})
	svc.scheduleReminder(bk, res, addr)
}

// scheduleReminder arms the due-date reminder for res; a pending timer under
// the same tag is replaced.
func (svc *Service) scheduleReminder(bk Book, res Reservation, addr mail.Address) {
	due := res.EndDate.Format(dueDateFormat)
	svc.scheduler.Schedule(reminderTag(res.BookID, res.UserID), res.EndDate.Add(-reminderLead), func() {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{addr},
			Subject: "Reservation due soon",
			BodyStr: fmt.Sprintf("Your reservation of %q is due on %s. Extend it or return the book.", bk.Title, due),
		})
	})
}
