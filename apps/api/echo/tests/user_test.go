package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/maktaba/core/user"
	testutil "github.com/trezcool/maktaba/tests"
)

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodPost, "/v1/users", []byte(`{"first_name": "Awe", "last_name": "King", "email": "AWE@test.cd"}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling User: %v", err)
	}
	if usr.ID == "" || usr.FullName() != "Awe King" || usr.Email != "awe@test.cd" {
		t.Errorf("created user = %+v", usr)
	}

	tests := []httpTest{
		{
			name: "first_name required", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"first_name": "this field is required"}),
		},
		{
			name: "invalid email", body: []byte(`{"first_name": "Awe", "email": "lol"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	usr1 := testutil.CreateUser(t, app.usrRepo, "Awe", "", "awe@test.cd")
	usr2 := testutil.CreateUser(t, app.usrRepo, "King", "Dog", "king@test.cd")

	tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, usr1, usr2)}
	req, rec := newRequest(http.MethodGet, "/v1/users")
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "Awe", "", "awe@test.cd")

	tests := []httpTest{
		{name: "found", path: "/v1/users/" + usr.ID, wantCode: http.StatusOK, wantData: marchallObj(t, usr)},
		{name: "not found", path: "/v1/users/nope", wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "Awe", "", "awe@test.cd")

	req, rec := newRequest(http.MethodDelete, "/v1/users/"+usr.ID)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusNoContent)
	}

	req, rec = newRequest(http.MethodGet, "/v1/users/"+usr.ID)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
	}
}
