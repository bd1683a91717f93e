package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/maktaba/core/book"
	testutil "github.com/trezcool/maktaba/tests"
)

func Test_bookApi_create(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodPost, "/v1/books", []byte(`{"title": "Sapiens", "author": "Harari", "count": 3, "tags": ["history"]}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var bk book.Book
	if err := json.Unmarshal(rec.Body.Bytes(), &bk); err != nil {
		t.Fatalf("unmarshalling Book: %v", err)
	}
	if bk.ID == "" || bk.Title != "Sapiens" || bk.Author != "Harari" || bk.Count != 3 || bk.TakenCount != 0 {
		t.Errorf("created book = %+v", bk)
	}

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title": "this field is required",
				"count": "this field is required",
			}),
		},
		{
			name: "count must be positive", body: []byte(`{"title": "x", "count": -1}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"count": "count must be greater than 0"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/books", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_bookApi_query(t *testing.T) {
	app := setup(t)

	path := func(search string, available *bool, tags ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if available != nil {
			v.Add("available", strconv.FormatBool(*available))
		}
		for _, tag := range tags {
			v.Add("tag", tag)
		}
		return "/v1/books?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	usr := testutil.CreateUser(t, app.usrRepo, "Awe", "", "awe@test.cd")
	bk1 := testutil.CreateBook(t, app.bookRepo, "Sapiens", "Harari", 2, "history")
	bk2 := testutil.CreateBook(t, app.bookRepo, "Clean Code", "Martin", 1, "programming")
	bk3 := testutil.CreateBook(t, app.bookRepo, "The Histories", "Herodotus", 1, "history", "classics")
	testutil.CreateReservation(t, app.bookRepo, bk3, usr.ID, time.Now().Add(book.ReservationPeriod))
	bk3.TakenCount++

	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Get all", path: "/v1/books", wantData: marchallList(t, bk1, bk2, bk3)},
		{name: "search (unknown)", path: path("lol", nil), wantData: empty},
		{name: "search by title", path: path("sapiens", nil), wantData: marchallList(t, bk1)},
		{name: "search by author", path: path("HEROD", nil), wantData: marchallList(t, bk3)},
		{name: "tag (unknown)", path: path("", nil, "lol"), wantData: empty},
		{name: "tag=history", path: path("", nil, "history"), wantData: marchallList(t, bk1, bk3)},
		{name: "available=true", path: path("", bPtr(true)), wantData: marchallList(t, bk1, bk2)},
		{name: "available=false", path: path("", bPtr(false)), wantData: marchallList(t, bk3)},
		{name: "search + tag", path: path("histor", nil, "classics"), wantData: marchallList(t, bk3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.server.ServeHTTP(rec, req)
			tt.wantCode = http.StatusOK
			checkCodeAndData(t, tt, rec)
		})
	}

	// a malformed filter is rejected, not silently dropped
	t.Run("available=lol", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/books?available=lol")
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}

func Test_bookApi_retrieve(t *testing.T) {
	app := setup(t)

	bk := testutil.CreateBook(t, app.bookRepo, "Sapiens", "Harari", 2)

	tests := []httpTest{
		{name: "found", path: "/v1/books/" + bk.ID, wantCode: http.StatusOK, wantData: marchallObj(t, bk)},
		{name: "not found", path: "/v1/books/nope", wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_bookApi_update(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "Awe", "", "awe@test.cd")
	bk := testutil.CreateBook(t, app.bookRepo, "Sapiens", "Harari", 2)
	testutil.CreateReservation(t, app.bookRepo, bk, usr.ID, time.Now().Add(book.ReservationPeriod))

	req, rec := newRequest(http.MethodPut, "/v1/books/"+bk.ID, []byte(`{"title": "Sapiens: A Brief History", "count": 5}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got book.Book
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshalling Book: %v", err)
	}
	// zero fields keep their current value
	if got.Title != "Sapiens: A Brief History" || got.Author != "Harari" || got.Count != 5 || got.TakenCount != 1 {
		t.Errorf("updated book = %+v", got)
	}

	t.Run("count below taken copies", func(t *testing.T) {
		// take a second copy, then try to shrink the catalog below the 2 taken
		other := testutil.CreateUser(t, app.usrRepo, "King", "", "king@test.cd")
		cur, err := app.bookRepo.GetBook(context.Background(), book.GetFilter{ID: bk.ID})
		if err != nil {
			t.Fatalf("GetBook(): %v", err)
		}
		testutil.CreateReservation(t, app.bookRepo, cur, other.ID, time.Now().Add(book.ReservationPeriod))

		req, rec := newRequest(http.MethodPut, "/v1/books/"+bk.ID, []byte(`{"count": 1}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("not found", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newRequest(http.MethodPut, "/v1/books/nope", []byte(`{}`))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_bookApi_destroy(t *testing.T) {
	app := setup(t)

	bk := testutil.CreateBook(t, app.bookRepo, "Sapiens", "Harari", 2)

	req, rec := newRequest(http.MethodDelete, "/v1/books/"+bk.ID)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusNoContent)
	}

	req, rec = newRequest(http.MethodGet, "/v1/books/"+bk.ID)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
	}
}

func Test_bookApi_reservations(t *testing.T) {
	app := setup(t)

	usr1 := testutil.CreateUser(t, app.usrRepo, "Awe", "", "awe@test.cd")
	usr2 := testutil.CreateUser(t, app.usrRepo, "King", "Dog", "king@test.cd")
	bk := testutil.CreateBook(t, app.bookRepo, "Sapiens", "Harari", 1)

	reserveBody := func(userID string) []byte {
		return []byte(fmt.Sprintf(`{"user_id": %q}`, userID))
	}
	resPath := "/v1/books/" + bk.ID + "/reservations"

	// reserve the only copy
	req, rec := newRequest(http.MethodPost, resPath, reserveBody(usr1.ID))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var res book.Reservation
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshalling Reservation: %v", err)
	}
	if res.BookID != bk.ID || res.UserID != usr1.ID || res.ExtensionCount != 0 {
		t.Errorf("reservation = %+v", res)
	}
	if wantEnd := time.Now().Add(book.ReservationPeriod); res.EndDate.Sub(wantEnd) > time.Minute || wantEnd.Sub(res.EndDate) > time.Minute {
		t.Errorf("EndDate = %v, want about %v", res.EndDate, wantEnd)
	}

	tests := []httpTest{
		{
			name: "reserving twice fails", method: http.MethodPost, path: resPath, body: reserveBody(usr1.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: book.ErrAlreadyReserved.Error()}),
		},
		{
			name: "no copies left", method: http.MethodPost, path: resPath, body: reserveBody(usr2.ID),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: book.ErrNoCopiesAvailable.Error()}),
		},
		{
			name: "unknown book", method: http.MethodPost, path: "/v1/books/nope/reservations", body: reserveBody(usr1.ID),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "user_id required", method: http.MethodPost, path: resPath, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": "this field is required"}),
		},
		{
			name: "extend without reservation", method: http.MethodPut, path: resPath + "/extend", body: reserveBody(usr2.ID),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the extension ladder: three renewals, then the cap
	end := res.EndDate
	for i := 1; i <= book.MaxExtensions; i++ {
		req, rec = newRequest(http.MethodPut, resPath+"/extend", reserveBody(usr1.ID))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("extend #%d code = %v; body %s", i, rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling Reservation: %v", err)
		}
		end = end.Add(book.ReservationPeriod)
		if !res.EndDate.Equal(end) || res.ExtensionCount != i {
			t.Errorf("extend #%d = %+v, want EndDate %v, ExtensionCount %d", i, res, end, i)
		}
	}
	req, rec = newRequest(http.MethodPut, resPath+"/extend", reserveBody(usr1.ID))
	app.server.ServeHTTP(rec, req)
	wantCapErr := httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, httpErr{Error: book.ErrExtensionLimitReached.Error()}),
	}
	checkCodeAndData(t, wantCapErr, rec)

	// book & user reservation listings
	req, rec = newRequest(http.MethodGet, resPath)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var bookViews []book.BookReservation
	if err := json.Unmarshal(rec.Body.Bytes(), &bookViews); err != nil {
		t.Fatalf("unmarshalling BookReservations: %v", err)
	}
	if len(bookViews) != 1 || bookViews[0].UserName != "Awe" || bookViews[0].UserEmail != "awe@test.cd" {
		t.Errorf("book reservations = %+v", bookViews)
	}

	req, rec = newRequest(http.MethodGet, "/v1/users/"+usr1.ID+"/reservations")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var userViews []book.UserReservation
	if err := json.Unmarshal(rec.Body.Bytes(), &userViews); err != nil {
		t.Fatalf("unmarshalling UserReservations: %v", err)
	}
	if len(userViews) != 1 || userViews[0].BookTitle != bk.Title {
		t.Errorf("user reservations = %+v", userViews)
	}

	// release, twice; the second one is a no-op
	for i := 0; i < 2; i++ {
		req, rec = newRequest(http.MethodDelete, resPath+"?user_id="+usr1.ID)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("release #%d code = %v; body %s", i+1, rec.Code, rec.Body.String())
		}
	}

	// the copy is up for grabs again
	req, rec = newRequest(http.MethodPost, resPath, reserveBody(usr2.ID))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("reserve after release code = %v; body %s", rec.Code, rec.Body.String())
	}
}
