package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	"github.com/trezcool/ratiba/core/user"
	testutil "github.com/trezcool/ratiba/tests"
)

const (
	school1 = "school-1"
	school2 = "school-2"
)

func adminPrincipal(schoolID string) user.Principal {
	return user.Principal{
		ID:       "admin-" + schoolID,
		Username: "admin",
		Email:    "admin@" + schoolID + ".test",
		SchoolID: schoolID,
		Roles:    []string{user.RoleAdminPrincipal},
	}
}

func teacherPrincipal(schoolID string) user.Principal {
	return user.Principal{
		ID:       "teacher-" + schoolID,
		Username: "mwalimu",
		Email:    "mwalimu@" + schoolID + ".test",
		SchoolID: schoolID,
		Roles:    []string{user.RoleTeacher},
	}
}

type fixtures struct {
	class    school.Class
	class2   school.Class
	teacher  school.Teacher
	teacher2 school.Teacher
	subject  school.Subject // taught by teacher
	subject2 school.Subject // taught by teacher2
	other    school.Class   // belongs to school2
}

func seed(t *testing.T) fixtures {
	f := fixtures{}
	f.class = testutil.CreateClass(t, db, school1, "Form 1A")
	f.class2 = testutil.CreateClass(t, db, school1, "Form 1B")
	f.teacher = testutil.CreateTeacher(t, db, school1, "Asha Juma", "asha@school1.test")
	f.teacher2 = testutil.CreateTeacher(t, db, school1, "Neema Bakari", "neema@school1.test")
	f.subject = testutil.CreateSubject(t, db, school1, "Mathematics", f.teacher.ID)
	f.subject2 = testutil.CreateSubject(t, db, school1, "History", f.teacher2.ID)
	f.other = testutil.CreateClass(t, db, school2, "Form 2A")
	return f
}

func newEntryBody(t *testing.T, classID, day, start, end, subjectID, teacherID, room string) []byte {
	return marchallObj(t, schedule.NewEntry{
		ClassID:   classID,
		Day:       schedule.Weekday(day),
		StartTime: start,
		EndTime:   end,
		SubjectID: subjectID,
		TeacherID: teacherID,
		Room:      room,
	})
}

func Test_scheduleApi_create(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))
	teacherToken := getToken(t, teacherPrincipal(school1))
	admin2Token := getToken(t, adminPrincipal(school2))

	existing := testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Monday, "08:00", "09:00")

	tests := []httpTest{
		{
			name: "no token", method: http.MethodPost, path: "/v1/timetable",
			body:     newEntryBody(t, f.class.ID, "MONDAY", "10:00", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "non-admin cannot create", method: http.MethodPost, path: "/v1/timetable", token: teacherToken,
			body:     newEntryBody(t, f.class.ID, "MONDAY", "10:00", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     marchallObj(t, map[string]string{"day": "MONDAY"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"class_id":   "this field is required",
				"start_time": "this field is required",
				"end_time":   "this field is required",
				"subject_id": "this field is required",
				"teacher_id": "this field is required",
			}),
		},
		{
			name: "invalid day", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class.ID, "FUNDAY", "10:00", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"day": "must be one of MONDAY, TUESDAY, WEDNESDAY, THURSDAY, FRIDAY, SATURDAY, SUNDAY",
			}),
		},
		{
			name: "invalid time format", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class.ID, "MONDAY", "8 o'clock", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"start_time": "must be a valid time in HH:mm format"}),
		},
		{
			name: "start not before end", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class.ID, "MONDAY", "11:00", "10:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "start time must be before end time"}),
		},
		{
			name: "zero length slot", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class.ID, "MONDAY", "10:00", "10:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "start time must be before end time"}),
		},
		{
			name: "unknown class", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, "nope", "MONDAY", "10:00", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"}),
		},
		{
			name: "other school's class reads as missing", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.other.ID, "MONDAY", "10:00", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"}),
		},
		{
			name: "admin of another school cannot reach the class", method: http.MethodPost, path: "/v1/timetable", token: admin2Token,
			body:     newEntryBody(t, f.class.ID, "MONDAY", "10:00", "11:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"}),
		},
		{
			name: "teacher not assigned to subject", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class.ID, "MONDAY", "10:00", "11:00", f.subject.ID, f.teacher2.ID, ""),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "teacher is not assigned to this subject"}),
		},
		{
			name: "ok", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class.ID, "tuesday", "10:00", "11:00", f.subject.ID, f.teacher.ID, "Lab 2"),
			wantCode: http.StatusCreated, extra: "created",
		},
		{
			name: "teacher already booked", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class2.ID, "MONDAY", "08:30", "09:30", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusConflict, extra: "conflict",
		},
		{
			name: "back-to-back slot is fine", method: http.MethodPost, path: "/v1/timetable", token: adminToken,
			body:     newEntryBody(t, f.class2.ID, "MONDAY", "09:00", "10:00", f.subject.ID, f.teacher.ID, ""),
			wantCode: http.StatusCreated, extra: "created",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			switch tt.extra {
			case "created":
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var entry schedule.Entry
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
				assert.NotEmpty(t, entry.ID)
				assert.Equal(t, "Mathematics", entry.SubjectName)
				assert.Equal(t, "Asha Juma", entry.TeacherName)
			case "conflict":
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp struct {
					Error       string         `json:"error"`
					Conflicting schedule.Entry `json:"conflicting_entry"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, existing.ID, resp.Conflicting.ID)
				assert.Contains(t, resp.Error, "already booked")
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_scheduleApi_createWeek(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))

	okWeek := marchallObj(t, schedule.NewWeek{
		ClassID: f.class.ID,
		Entries: []schedule.NewEntry{
			{Day: "MONDAY", StartTime: "08:00", EndTime: "09:00", SubjectID: f.subject.ID, TeacherID: f.teacher.ID},
			{Day: "MONDAY", StartTime: "09:00", EndTime: "10:00", SubjectID: f.subject2.ID, TeacherID: f.teacher2.ID},
			{Day: "FRIDAY", StartTime: "08:00", EndTime: "09:00", SubjectID: f.subject.ID, TeacherID: f.teacher.ID},
		},
	})
	clashingWeek := marchallObj(t, schedule.NewWeek{
		ClassID: f.class2.ID,
		Entries: []schedule.NewEntry{
			// sibling conflict: same teacher, overlapping TUESDAY slots
			{Day: "TUESDAY", StartTime: "08:00", EndTime: "10:00", SubjectID: f.subject.ID, TeacherID: f.teacher.ID},
			{Day: "TUESDAY", StartTime: "09:00", EndTime: "11:00", SubjectID: f.subject.ID, TeacherID: f.teacher.ID},
			// and a bad time range to check aggregation
			{Day: "WEDNESDAY", StartTime: "10:00", EndTime: "09:00", SubjectID: f.subject2.ID, TeacherID: f.teacher2.ID},
		},
	})
	inconsistentWeek := marchallObj(t, map[string]interface{}{
		"class_id": f.class.ID,
		"entries": []map[string]string{
			{"class_id": f.class2.ID, "day": "MONDAY", "start_time": "13:00", "end_time": "14:00",
				"subject_id": f.subject.ID, "teacher_id": f.teacher.ID},
		},
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/timetable/week", adminToken, okWeek)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var week schedule.WeekSchedule
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
		assert.Contains(t, week.Message, "Form 1A")
		assert.Equal(t, f.class.ID, week.Class.ID)
		require.Len(t, week.Entries, 3)
		for _, entry := range week.Entries {
			assert.NotEmpty(t, entry.ID)
			assert.Equal(t, f.class.ID, entry.ClassID)
		}
	})

	t.Run("all failures reported, nothing persisted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/timetable/week", adminToken, clashingWeek)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var resp struct {
			Error   string `json:"error"`
			Details []struct {
				Index int    `json:"index"`
				Error string `json:"error"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Details, 2)
		assert.Equal(t, 1, resp.Details[0].Index)
		assert.Contains(t, resp.Details[0].Error, "already booked")
		assert.Equal(t, 2, resp.Details[1].Index)

		// the batch must not have landed
		entries, err := entryRepo.FilterEntries(req.Context(), schedule.QueryFilter{ClassID: f.class2.ID})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("entry referencing another class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/timetable/week", adminToken, inconsistentWeek)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var resp struct {
			Details []struct {
				Error string `json:"error"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "entry does not reference the declared class", resp.Details[0].Error)
	})

	t.Run("empty batch", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"class_id": f.class.ID, "entries": []interface{}{}})
		req, rec := newAuthRequest(http.MethodPost, "/v1/timetable/week", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func Test_scheduleApi_query(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))
	teacherToken := getToken(t, teacherPrincipal(school1))

	e1 := testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Monday, "08:00", "09:00")
	e2 := testutil.CreateEntry(t, entryRepo, f.class2, f.subject, f.teacher, schedule.Tuesday, "08:00", "09:00")
	e3 := testutil.CreateEntry(t, entryRepo, f.class, f.subject2, f.teacher2, schedule.Monday, "09:00", "10:00")

	// an entry of another school must never show up
	otherSubject := testutil.CreateSubject(t, db, school2, "Physics", "")
	otherTeacher := testutil.CreateTeacher(t, db, school2, "Omar Said", "omar@school2.test")
	otherSubject.TeacherID = otherTeacher.ID
	db.AddSubject(otherSubject)
	testutil.CreateEntry(t, entryRepo, f.other, otherSubject, otherTeacher, schedule.Monday, "08:00", "09:00")

	display := func(e schedule.Entry, className, subjectName, teacherName string) schedule.Entry {
		e.ClassName, e.SubjectName, e.TeacherName = className, subjectName, teacherName
		return e
	}
	e1 = display(e1, "Form 1A", "Mathematics", "Asha Juma")
	e2 = display(e2, "Form 1B", "Mathematics", "Asha Juma")
	e3 = display(e3, "Form 1A", "History", "Neema Bakari")

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/timetable",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "all school entries", method: http.MethodGet, path: "/v1/timetable", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []schedule.Entry{e1, e2, e3})},
		{name: "readable by any school member", method: http.MethodGet, path: "/v1/timetable", token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []schedule.Entry{e1, e2, e3})},
		{name: "filter by class", method: http.MethodGet, path: "/v1/timetable?class_id=" + f.class.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []schedule.Entry{e1, e3})},
		{name: "filter by teacher", method: http.MethodGet, path: "/v1/timetable?teacher_id=" + f.teacher.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []schedule.Entry{e1, e2})},
		{name: "filter by day", method: http.MethodGet, path: "/v1/timetable?day=monday", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []schedule.Entry{e1, e3})},
		{name: "combined filters", method: http.MethodGet,
			path: "/v1/timetable?class_id=" + f.class.ID + "&teacher_id=" + f.teacher.ID + "&day=MONDAY", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, []schedule.Entry{e1})},
		{name: "no match", method: http.MethodGet, path: "/v1/timetable?day=SUNDAY", token: adminToken,
			wantCode: http.StatusOK, wantData: []byte("[]")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_scheduleApi_retrieve(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))
	admin2Token := getToken(t, adminPrincipal(school2))

	entry := testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Monday, "08:00", "09:00")
	entry.ClassName, entry.SubjectName, entry.TeacherName = "Form 1A", "Mathematics", "Asha Juma"

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/timetable/" + entry.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "ok", method: http.MethodGet, path: "/v1/timetable/" + entry.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, entry)},
		{name: "not found", method: http.MethodGet, path: "/v1/timetable/nope", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"})},
		{name: "invisible to other school", method: http.MethodGet, path: "/v1/timetable/" + entry.ID, token: admin2Token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_scheduleApi_update(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))
	teacherToken := getToken(t, teacherPrincipal(school1))

	entry := testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Monday, "08:00", "09:00")
	blocker := testutil.CreateEntry(t, entryRepo, f.class2, f.subject, f.teacher, schedule.Monday, "10:00", "11:00")

	t.Run("non-admin cannot update", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"start_time": "09:00", "end_time": "10:00"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/timetable/"+entry.ID, teacherToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("same slot keeps; only room changes", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"room": "Lab 3"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/timetable/"+entry.ID, adminToken, body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated schedule.Entry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Lab 3", updated.Room)
		assert.Equal(t, entry.StartTime, updated.StartTime)
	})

	t.Run("moving onto another slot conflicts", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"start_time": "10:30", "end_time": "11:30"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/timetable/"+entry.ID, adminToken, body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		var resp struct {
			Conflicting schedule.Entry `json:"conflicting_entry"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, blocker.ID, resp.Conflicting.ID)
	})

	t.Run("shifting within own slot is no conflict", func(t *testing.T) {
		// overlaps only the entry's own original slot
		body := marchallObj(t, map[string]string{"start_time": "08:30", "end_time": "09:30"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/timetable/"+entry.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("reassigning to an unrelated teacher fails", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"teacher_id": f.teacher2.ID})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/timetable/"+entry.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"room": "Lab 3"})
		req, rec := newAuthRequest(http.MethodPatch, "/v1/timetable/nope", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

func Test_scheduleApi_destroy(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))
	teacherToken := getToken(t, teacherPrincipal(school1))
	admin2Token := getToken(t, adminPrincipal(school2))

	entry := testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Monday, "08:00", "09:00")

	tests := []httpTest{
		{name: "no token", method: http.MethodDelete, path: "/v1/timetable/" + entry.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "non-admin cannot delete", method: http.MethodDelete, path: "/v1/timetable/" + entry.ID, token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "invisible to other school", method: http.MethodDelete, path: "/v1/timetable/" + entry.ID, token: admin2Token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"})},
		{name: "ok", method: http.MethodDelete, path: "/v1/timetable/" + entry.ID, token: adminToken,
			wantCode: http.StatusNoContent},
		{name: "already gone", method: http.MethodDelete, path: "/v1/timetable/" + entry.ID, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "timetable entry not found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			if tt.wantCode == http.StatusNoContent {
				assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_scheduleApi_byClass(t *testing.T) {
	app := setup(t)
	f := seed(t)

	adminToken := getToken(t, adminPrincipal(school1))
	admin2Token := getToken(t, adminPrincipal(school2))

	testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Wednesday, "08:00", "09:00")
	testutil.CreateEntry(t, entryRepo, f.class, f.subject2, f.teacher2, schedule.Monday, "08:00", "09:00")
	testutil.CreateEntry(t, entryRepo, f.class, f.subject, f.teacher, schedule.Monday, "09:00", "10:00")
	// other class noise
	testutil.CreateEntry(t, entryRepo, f.class2, f.subject, f.teacher, schedule.Monday, "08:00", "09:00")

	t.Run("full week grid", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.class.ID+"/timetable", adminToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Class        school.Class                `json:"class"`
			Timetable    map[string][]schedule.Entry `json:"timetable"`
			TotalEntries int                         `json:"total_entries"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, f.class.ID, resp.Class.ID)
		assert.Equal(t, 3, resp.TotalEntries)
		require.Len(t, resp.Timetable, 7) // all seven days, empty ones included
		assert.Len(t, resp.Timetable["MONDAY"], 2)
		assert.Len(t, resp.Timetable["WEDNESDAY"], 1)
		assert.Empty(t, resp.Timetable["SUNDAY"])

		// days come out in Monday-first order
		assert.Equal(t,
			[]string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"},
			timetableKeyOrder(t, rec.Body.Bytes()),
		)
	})

	t.Run("single day", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.class.ID+"/timetable?day=MONDAY", adminToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Timetable    map[string][]schedule.Entry `json:"timetable"`
			TotalEntries int                         `json:"total_entries"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.TotalEntries)
		assert.Len(t, resp.Timetable["MONDAY"], 2)
		assert.Empty(t, resp.Timetable["WEDNESDAY"])
	})

	t.Run("invalid day", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.class.ID+"/timetable?day=SOMEDAY", adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("unknown class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/nope/timetable", adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("invisible to other school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.class.ID+"/timetable", admin2Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

// timetableKeyOrder reads the raw JSON "timetable" object and returns its keys
// in wire order; map decoding would lose it.
func timetableKeyOrder(t *testing.T, raw []byte) []string {
	t.Helper()

	i := bytes.Index(raw, []byte(`"timetable":`))
	require.NotEqual(t, -1, i)
	dec := json.NewDecoder(bytes.NewReader(raw[i+len(`"timetable":`):]))

	tok, err := dec.Token() // opening brace
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	depth := 1
	for depth > 0 {
		tok, err = dec.Token()
		require.NoError(t, err)
		switch d := tok.(type) {
		case json.Delim:
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		case string:
			if depth == 1 {
				keys = append(keys, d)
			}
		}
	}
	return keys
}
