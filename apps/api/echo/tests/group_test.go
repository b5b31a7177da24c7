package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/trezcool/utetezi/apps/api/echo"
	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/group"
	"github.com/trezcool/utetezi/tests"
)

func Test_groupApi_groupCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect := testutil.CreateLecturer(t, usrRepo, "Lect", "lect@test.cd")
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", core.RoleStudent, true)

	tests := []httpTest{
		{
			name: "Auth required", body: marchallObj(t, group.NewGroup{Name: "G1"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Required fields", body: marchallObj(t, group.NewGroup{}), token: getToken(t, admin),
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"name":"this field is required"}}`),
		},
		{
			name: "Student cannot create", body: marchallObj(t, group.NewGroup{Name: "G1"}), token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Lecturer creates own group", token: getToken(t, lect),
			body:     marchallObj(t, group.NewGroup{Name: "Team Rocket", LecturerID: lect.ID}),
			wantCode: http.StatusCreated,
		},
		{
			name: "Admin creates", token: getToken(t, admin),
			body:     marchallObj(t, group.NewGroup{Name: "Team Plasma", Status: group.StatusAccepted, LecturerID: lect.ID}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/groups"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var grp group.Group
				if err := json.Unmarshal(rec.Body.Bytes(), &grp); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if grp.ID == "" || grp.GroupCode == "" {
					t.Errorf("failed! empty ID or GroupCode: %+v", grp)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_groupApi_groupQueryAndRetrieve(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect := testutil.CreateLecturer(t, usrRepo, "Lect", "lect@test.cd")

	g1 := testutil.CreateGroup(t, groupRepo, "Team Rocket", group.StatusAccepted, lect.ID)
	g2 := testutil.CreateGroup(t, groupRepo, "Team Plasma", group.StatusPending, "")

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/groups", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get all", path: "/v1/groups", token: adminToken, wantData: marchallList(t, g1, g2)},
		{name: "search (unknown)", path: "/v1/groups?search=lol", token: adminToken, wantData: empty},
		{name: "search", path: "/v1/groups?search=rocket", token: adminToken, wantData: marchallList(t, g1)},
		{name: "filter by status", path: "/v1/groups?status=pending", token: adminToken, wantData: marchallList(t, g2)},
		{name: "filter by lecturer", path: "/v1/groups?lecturer_id=" + lect.ID, token: adminToken, wantData: marchallList(t, g1)},
		{name: "retrieve", path: "/v1/groups/" + g1.ID, token: adminToken, wantData: marchallObj(t, g1)},
		{
			name: "retrieve (not found)", path: "/v1/groups/b92a5e8a-0000-0000-0000-000000000000", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_groupApi_groupJoinLeave(t *testing.T) {
	app := setup(t)

	lect := testutil.CreateLecturer(t, usrRepo, "Lect", "lect@test.cd")
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", core.RoleStudent, true)

	grp := testutil.CreateGroup(t, groupRepo, "Team Rocket", group.StatusAccepted, lect.ID)
	studentToken := getToken(t, student)

	t.Run("Students only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups/"+grp.ID+"/join", getToken(t, lect))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Unknown group", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups/b92a5e8a-0000-0000-0000-000000000000/join", studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Joined", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups/"+grp.ID+"/join", studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Joined group."})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Joining twice conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups/"+grp.ID+"/join", studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: group.ErrAlreadyMember.Error()})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Member listed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/groups/"+grp.ID, studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got group.Group
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(got.Members) != 1 || got.Members[0].UserID != student.ID {
			t.Errorf("failed! members = %+v; want %v", got.Members, student.ID)
		}
	})

	t.Run("Left", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups/"+grp.ID+"/leave", studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Left group."})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Leaving twice conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups/"+grp.ID+"/leave", studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: group.ErrNotMember.Error()})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_groupApi_groupUpdateAndDestroy(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect := testutil.CreateLecturer(t, usrRepo, "Lect", "lect@test.cd")
	other := testutil.CreateLecturer(t, usrRepo, "Other", "other@test.cd")

	grp := testutil.CreateGroup(t, groupRepo, "Team Rocket", group.StatusPending, lect.ID)

	t.Run("Non-owner cannot update", func(t *testing.T) {
		body := marchallObj(t, group.UpdateGroup{Status: group.StatusAccepted})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/groups/"+grp.ID, getToken(t, other), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Owner updates", func(t *testing.T) {
		body := marchallObj(t, group.UpdateGroup{Status: group.StatusAccepted})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/groups/"+grp.ID, getToken(t, lect), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var updated group.Group
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if updated.Status != group.StatusAccepted {
			t.Errorf("failed! status = %v; want %v", updated.Status, group.StatusAccepted)
		}
	})

	t.Run("Admin deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/groups/"+grp.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Group deleted."})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Already deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/groups/"+grp.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}
