package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maktaba/core"
	"github.com/trezcool/maktaba/core/book"
)

type bookApi struct {
	svc        book.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func registerBookAPI(
	g *echo.Group,
	svc book.ServiceInterface,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := bookApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	bg := g.Group("/books")
	bg.POST("", api.create)
	bg.GET("", api.query)

	// detail endpoints
	dg := bg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)

	// reservation endpoints
	rg := dg.Group("/reservations")
	rg.POST("", api.reserve)
	rg.DELETE("", api.release)
	rg.PUT("/extend", api.extend)
	rg.GET("", api.queryReservations)
}

// ReservationRequest identifies the user acting on a book's reservation.
type ReservationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (r *ReservationRequest) Validate(validate *validator.Validate) error {
	r.UserID = core.CleanString(r.UserID)
	return validate.Struct(r)
}

// Handlers

func (api *bookApi) create(ctx echo.Context) error {
	var data book.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	bk, err := api.svc.CreateBook(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating book")
	}
	return ctx.JSON(http.StatusCreated, bk)
}

func (api *bookApi) query(ctx echo.Context) error {
	filter := new(book.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	books, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	if books == nil {
		books = []book.Book{}
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *bookApi) retrieve(ctx echo.Context) error {
	bk, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusOK, bk)
}

func (api *bookApi) update(ctx echo.Context) error {
	id := ctx.Param("id")
	orig, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting book")
	}

	var data book.UpdateBook
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBook")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	bk, err := api.svc.UpdateBookInfo(ctx.Request().Context(), id, data)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating book")
	}
	return ctx.JSON(http.StatusOK, bk)
}

func (api *bookApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting book")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bookApi) reserve(ctx echo.Context) error {
	var data ReservationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReservationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Reserve(ctx.Request().Context(), ctx.Param("id"), data.UserID)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "reserving book")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *bookApi) release(ctx echo.Context) error {
	data := ReservationRequest{UserID: ctx.QueryParam("user_id")}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Release(ctx.Request().Context(), ctx.Param("id"), data.UserID); err != nil {
		return errors.Wrap(err, "releasing book")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bookApi) extend(ctx echo.Context) error {
	var data ReservationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReservationRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Extend(ctx.Request().Context(), ctx.Param("id"), data.UserID)
	if err != nil {
		switch errors.Cause(err) {
		case book.ErrNotFound, book.ErrReservationNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, "extending reservation")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *bookApi) queryReservations(ctx echo.Context) error {
	rss, err := api.svc.ReservationsForBook(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying book reservations")
	}
	if rss == nil {
		rss = []book.BookReservation{}
	}
	return ctx.JSON(http.StatusOK, rss)
}
