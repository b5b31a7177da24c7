package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/volatiletech/null/v8"

	echoapi "github.com/trezcool/utetezi/apps/api/echo"
	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
	emailsvc "github.com/trezcool/utetezi/services/email"
	"github.com/trezcool/utetezi/tests"
)

func Test_defenseApi_defenseCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	secretary := testutil.CreateUser(t, usrRepo, "Sec", "sec@test.cd", "", core.RoleSecretary, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")
	grp := testutil.CreateGroup(t, groupRepo, "Group A", "accepted", lect1.ID)

	adminToken := getToken(t, admin)

	body := func(name, date, start, end string, groupIDs []string, lecturerIDs ...string) []byte {
		return marchallObj(t, defense.NewDefense{
			Name:        name,
			Date:        date,
			StartTime:   start,
			EndTime:     end,
			LecturerIDs: lecturerIDs,
			GroupIDs:    groupIDs,
		})
	}

	tests := []httpTest{
		{
			name: "Auth required", body: body("D1", "2021-06-07", "07:00", "09:00", nil, lect1.ID),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", body: body("D1", "2021-06-07", "07:00", "09:00", nil, lect1.ID),
			token: getToken(t, secretary), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Required fields", body: marchallObj(t, defense.NewDefense{}), token: adminToken,
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"name":"this field is required","date":"this field is required",` +
				`"start_time":"this field is required","end_time":"this field is required","lecturer_ids":"this field is required"}}`),
		},
		{
			name: "Off-schedule block rejected", body: body("D1", "2021-06-07", "08:00", "10:00", nil, lect1.ID),
			token: adminToken, wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"start_time":"time block must be one of the scheduled daily blocks"}}`),
		},
		{
			name: "Unknown lecturer rejected", body: body("D1", "2021-06-07", "07:00", "09:00", nil, "b92a5e8a-0000-0000-0000-000000000000"),
			token: adminToken, wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"lecturer_ids":"unknown lecturer"}}`),
		},
		{
			name: "Created", token: adminToken, wantCode: http.StatusCreated,
			body: body("Morning defense", "2021-06-07", "07:00", "09:00", []string{grp.ID}, lect1.ID, lect2.ID),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/defenses"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var def defense.Defense
				if err := json.Unmarshal(rec.Body.Bytes(), &def); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if def.ID == "" || def.DefenseCode == "" {
					t.Errorf("failed! empty ID or DefenseCode: %+v", def)
				}
				if def.Status != defense.StatusWaiting {
					t.Errorf("failed! status = %v; want %v", def.Status, defense.StatusWaiting)
				}
				if len(def.LecturerDefenses) != 2 {
					t.Errorf("failed! len(LecturerDefenses) = %d; want 2", len(def.LecturerDefenses))
				}
				if len(def.Groups) != 1 || def.Groups[0].ID != grp.ID {
					t.Errorf("failed! Groups = %+v; want group %v", def.Groups, grp.ID)
				}
				// each lecturer gets a notification
				if len(emailsvc.SentMessages) != 2 {
					t.Errorf("failed! len(SentMessages) = %d; want 2", len(emailsvc.SentMessages))
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_defenseApi_defenseCreateConflict(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")

	date := core.NewDate(2021, 6, 7)
	existing := testutil.CreateDefense(t, defRepo, "Booked", date,
		core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID)

	body := marchallObj(t, defense.NewDefense{
		Name:        "Clashing",
		Date:        "2021-06-07",
		StartTime:   "07:00",
		EndTime:     "09:00",
		LecturerIDs: []string{lect1.ID, lect2.ID},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/defenses", getToken(t, admin), body)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
	var respData struct {
		Errors    map[string]string  `json:"errors"`
		Conflicts []defense.Conflict `json:"conflicts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(respData.Conflicts) != 1 {
		t.Fatalf("failed! len(Conflicts) = %d; want 1", len(respData.Conflicts))
	}
	if c := respData.Conflicts[0]; c.LecturerID != lect1.ID || c.DefenseID != existing.ID {
		t.Errorf("failed! conflict = %+v; want lecturer %v on defense %v", c, lect1.ID, existing.ID)
	}
	if _, ok := respData.Errors["lecturer_ids"]; !ok {
		t.Errorf("failed! errors = %v; want lecturer_ids key", respData.Errors)
	}

	// same block, free lecturer only: no conflict
	body = marchallObj(t, defense.NewDefense{
		Name:        "Parallel",
		Date:        "2021-06-07",
		StartTime:   "07:00",
		EndTime:     "09:00",
		LecturerIDs: []string{lect2.ID},
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/defenses", getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func Test_defenseApi_defenseCheckTime(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")

	date := core.NewDate(2021, 6, 7)
	booked := testutil.CreateDefense(t, defRepo, "Booked", date,
		core.NewTimeOfDay(9, 30), core.NewTimeOfDay(11, 30), lect1.ID)

	adminToken := getToken(t, admin)

	path := func(date, start, end, exclude string, lecturerIDs ...string) string {
		v := make(url.Values)
		v.Set("date", date)
		v.Set("start_time", start)
		v.Set("end_time", end)
		if exclude != "" {
			v.Set("exclude_defense_id", exclude)
		}
		for _, id := range lecturerIDs {
			v.Add("lecturer_id", id)
		}
		return "/v1/defenses/check-time?" + v.Encode()
	}

	freeResp := marchallObj(t, echoapi.CheckTimeResponse{Conflicts: []defense.Conflict{}})
	busyResp := marchallObj(t, echoapi.CheckTimeResponse{
		Conflict: true,
		Conflicts: []defense.Conflict{{
			LecturerID:  lect1.ID,
			DefenseID:   booked.ID,
			DefenseCode: booked.DefenseCode,
			Block:       booked.TimeBlock,
		}},
	})

	tests := []httpTest{
		{name: "Auth required", path: path("2021-06-07", "09:30", "11:30", "", lect1.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Missing params", path: "/v1/defenses/check-time", token: adminToken,
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"lecturer_id":"this field is required","date":"this field is required",` +
				`"start_time":"this field is required","end_time":"this field is required"}}`),
		},
		{
			name: "Inverted block", path: path("2021-06-07", "11:30", "09:30", "", lect1.ID), token: adminToken,
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"start_time":"start time must be before end time"}}`),
		},
		{name: "Busy lecturer", path: path("2021-06-07", "09:30", "11:30", "", lect1.ID, lect2.ID), token: adminToken, wantData: busyResp},
		{name: "Partial overlap counts", path: path("2021-06-07", "10:00", "12:00", "", lect1.ID), token: adminToken, wantData: busyResp},
		{name: "Free lecturer", path: path("2021-06-07", "09:30", "11:30", "", lect2.ID), token: adminToken, wantData: freeResp},
		{name: "Other date is free", path: path("2021-06-08", "09:30", "11:30", "", lect1.ID), token: adminToken, wantData: freeResp},
		{name: "Adjacent block is free", path: path("2021-06-07", "07:00", "09:30", "", lect1.ID), token: adminToken, wantData: freeResp},
		{name: "Own defense excluded", path: path("2021-06-07", "09:30", "11:30", booked.ID, lect1.ID), token: adminToken, wantData: freeResp},
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

func Test_defenseApi_defenseQueryAndRetrieve(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	secretary := testutil.CreateUser(t, usrRepo, "Sec", "sec@test.cd", "", core.RoleSecretary, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")

	d1 := core.NewDate(2021, 6, 7)
	d2 := core.NewDate(2021, 6, 8)
	def1 := testutil.CreateDefense(t, defRepo, "Morning", d1, core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID)
	def2 := testutil.CreateDefense(t, defRepo, "Afternoon", d1, core.NewTimeOfDay(13, 0), core.NewTimeOfDay(15, 0), lect2.ID)
	def3 := testutil.CreateDefense(t, defRepo, "Next day", d2, core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID, lect2.ID)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/defenses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get all", path: "/v1/defenses", token: adminToken, wantData: marchallList(t, def1, def2, def3)},
		{name: "Any authed role may list", path: "/v1/defenses", token: getToken(t, secretary), wantData: marchallList(t, def1, def2, def3)},
		{name: "search (unknown)", path: "/v1/defenses?search=lol", token: adminToken, wantData: empty},
		{name: "search by name", path: "/v1/defenses?search=morn", token: adminToken, wantData: marchallList(t, def1)},
		{name: "search by code", path: "/v1/defenses?search=" + def2.DefenseCode, token: adminToken, wantData: marchallList(t, def2)},
		{name: "filter by date", path: "/v1/defenses?date=2021-06-07", token: adminToken, wantData: marchallList(t, def1, def2)},
		{name: "filter by lecturer", path: "/v1/defenses?lecturer_id=" + lect1.ID, token: adminToken, wantData: marchallList(t, def1, def3)},
		{name: "filter by status", path: "/v1/defenses?status=done", token: adminToken, wantData: empty},
		{name: "retrieve", path: "/v1/defenses/" + def1.ID, token: adminToken, wantData: marchallObj(t, def1)},
		{
			name: "retrieve (not found)", path: "/v1/defenses/b92a5e8a-0000-0000-0000-000000000000", token: adminToken,
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

func Test_defenseApi_defenseQueryMine(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", "", core.RoleStudent, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")

	d1 := core.NewDate(2021, 6, 7)
	def1 := testutil.CreateDefense(t, defRepo, "Mine", d1, core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID)
	testutil.CreateDefense(t, defRepo, "Not mine", d1, core.NewTimeOfDay(13, 0), core.NewTimeOfDay(15, 0), lect2.ID)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Lecturer required", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Own defenses only", token: getToken(t, lect1), wantCode: http.StatusOK, wantData: marchallList(t, def1)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/defenses/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_defenseApi_defenseUpdate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	secretary := testutil.CreateUser(t, usrRepo, "Sec", "sec@test.cd", "", core.RoleSecretary, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")

	date := core.NewDate(2021, 6, 7)
	def := testutil.CreateDefense(t, defRepo, "Morning", date, core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID)
	other := testutil.CreateDefense(t, defRepo, "Late", date, core.NewTimeOfDay(15, 30), core.NewTimeOfDay(17, 30), lect2.ID)

	adminToken := getToken(t, admin)

	t.Run("Admin required", func(t *testing.T) {
		body := marchallObj(t, defense.UpdateDefense{Name: "Renamed"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/defenses/"+def.ID, getToken(t, secretary), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Partial slot rejected", func(t *testing.T) {
		body := marchallObj(t, defense.UpdateDefense{StartTime: "09:30"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/defenses/"+def.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"end_time":"this field is required"}}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Move into taken slot rejected", func(t *testing.T) {
		body := marchallObj(t, defense.UpdateDefense{
			StartTime: "15:30", EndTime: "17:30", LecturerIDs: []string{lect1.ID, lect2.ID},
		})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/defenses/"+def.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
		}
		var respData struct {
			Conflicts []defense.Conflict `json:"conflicts"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(respData.Conflicts) != 1 || respData.Conflicts[0].DefenseID != other.ID {
			t.Errorf("failed! conflicts = %+v; want one on %v", respData.Conflicts, other.ID)
		}
	})

	t.Run("Own slot does not conflict", func(t *testing.T) {
		body := marchallObj(t, defense.UpdateDefense{Name: "Renamed", Status: defense.StatusDone})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/defenses/"+def.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var updated defense.Defense
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if updated.Name != "Renamed" || updated.Status != defense.StatusDone {
			t.Errorf("failed! got %+v", updated)
		}
		if updated.TimeBlock != def.TimeBlock {
			t.Errorf("failed! block = %v; want unchanged %v", updated.TimeBlock, def.TimeBlock)
		}
	})

	t.Run("Lecturers reconciled", func(t *testing.T) {
		body := marchallObj(t, defense.UpdateDefense{LecturerIDs: []string{lect2.ID}})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/defenses/"+other.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var updated defense.Defense
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(updated.LecturerDefenses) != 1 || updated.LecturerDefenses[0].LecturerID != lect2.ID {
			t.Errorf("failed! lecturer defenses = %+v; want only %v", updated.LecturerDefenses, lect2.ID)
		}
	})

	t.Run("Not found", func(t *testing.T) {
		body := marchallObj(t, defense.UpdateDefense{Name: "X"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/defenses/b92a5e8a-0000-0000-0000-000000000000", adminToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_defenseApi_defenseDestroy(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")

	date := core.NewDate(2021, 6, 7)
	def := testutil.CreateDefense(t, defRepo, "Morning", date, core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID)
	grp := testutil.CreateGroup(t, groupRepo, "Group A", "accepted", lect1.ID)
	if err := groupRepo.AssignDefense(context.Background(), []string{grp.ID}, null.StringFrom(def.ID)); err != nil {
		t.Fatalf("AssignDefense(): %v", err)
	}

	adminToken := getToken(t, admin)

	t.Run("Lecturer cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/defenses/"+def.ID, getToken(t, lect1))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/defenses/"+def.ID, adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Defense deleted."})}
		checkCodeAndData(t, tt, rec)

		// the defense is gone but the group survives with its reference cleared
		req, rec = newAuthRequest(http.MethodGet, "/v1/defenses/"+def.ID, adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; want %v", rec.Code, http.StatusNotFound)
		}
		grps, err := groupRepo.QueryGroups(context.Background(), nil, nil)
		if err != nil {
			t.Fatalf("QueryGroups(): %v", err)
		}
		if len(grps) != 1 || grps[0].DefenseID.Valid {
			t.Errorf("failed! groups = %+v; want one with cleared defense_id", grps)
		}
	})

	t.Run("Already deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/defenses/"+def.ID, adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Unknown defense", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/defenses/4ba1864b-2a0e-4c86-9d51-54a326bacf21", adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_defenseApi_recordScore(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", core.RoleAdmin, true)
	lect1 := testutil.CreateLecturer(t, usrRepo, "Lect1", "lect1@test.cd")
	lect2 := testutil.CreateLecturer(t, usrRepo, "Lect2", "lect2@test.cd")

	date := core.NewDate(2021, 6, 7)
	def := testutil.CreateDefense(t, defRepo, "Morning", date, core.NewTimeOfDay(7, 0), core.NewTimeOfDay(9, 0), lect1.ID, lect2.ID)

	var ldID string
	for _, ld := range def.LecturerDefenses {
		if ld.LecturerID == lect1.ID {
			ldID = ld.ID
		}
	}
	if ldID == "" {
		t.Fatalf("lecturer defense not found for %v", lect1.ID)
	}

	fPtr := func(f float64) *float64 { return &f }
	sPtr := func(s string) *string { return &s }
	path := "/v1/lecturer_defenses/" + ldID

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPatch, path, marchallObj(t, defense.ScoreUpdate{Point: fPtr(8)}))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Other lecturer cannot score", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Point: fPtr(8)})
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, lect2), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Point bounds", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Point: fPtr(10.5)})
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, lect1), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
		}
	})

	t.Run("Too many decimals", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Point: fPtr(7.777)})
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, lect1), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusUnprocessableEntity,
			wantData: []byte(`{"errors":{"point":"point must have at most 2 decimal places"}}`),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Owner scores", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Point: fPtr(8.25), Comment: sPtr("solid work")})
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, lect1), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var ld defense.LecturerDefense
		if err := json.Unmarshal(rec.Body.Bytes(), &ld); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !ld.Point.Valid || ld.Point.Float64 != 8.25 {
			t.Errorf("failed! point = %+v; want 8.25", ld.Point)
		}
		if !ld.Comment.Valid || ld.Comment.String != "solid work" {
			t.Errorf("failed! comment = %+v; want 'solid work'", ld.Comment)
		}
	})

	t.Run("Admin rescores", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Point: fPtr(9)})
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, admin), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var ld defense.LecturerDefense
		if err := json.Unmarshal(rec.Body.Bytes(), &ld); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !ld.Point.Valid || ld.Point.Float64 != 9 {
			t.Errorf("failed! point = %+v; want 9", ld.Point)
		}
		// comment untouched
		if !ld.Comment.Valid || ld.Comment.String != "solid work" {
			t.Errorf("failed! comment = %+v; want kept", ld.Comment)
		}
	})

	t.Run("Empty comment clears", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Comment: sPtr("")})
		req, rec := newAuthRequest(http.MethodPatch, path, getToken(t, lect1), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var ld defense.LecturerDefense
		if err := json.Unmarshal(rec.Body.Bytes(), &ld); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if ld.Comment.Valid {
			t.Errorf("failed! comment = %+v; want cleared", ld.Comment)
		}
	})

	t.Run("Not found", func(t *testing.T) {
		body := marchallObj(t, defense.ScoreUpdate{Point: fPtr(5)})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/lecturer_defenses/b92a5e8a-0000-0000-0000-000000000000", getToken(t, lect1), body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}
