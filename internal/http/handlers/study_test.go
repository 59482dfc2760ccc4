package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/modules/studygen"
	pkgerrors "github.com/yungbote/studyforge-backend/internal/pkg/errors"
)

type stubGenerator struct {
	res *studygen.Result
	err error
	got studygen.Request
}

func (s *stubGenerator) Run(_ context.Context, req studygen.Request) (*studygen.Result, error) {
	s.got = req
	return s.res, s.err
}

type stubReader struct {
	view *studygen.StudyView
	run  *types.StudyGenerationRun
	err  error
}

func (s *stubReader) GetStudy(context.Context, uuid.UUID, uuid.UUID) (*studygen.StudyView, error) {
	return s.view, s.err
}

func (s *stubReader) GetRun(context.Context, uuid.UUID, uuid.UUID) (*types.StudyGenerationRun, error) {
	return s.run, s.err
}

func newStudyRouter(h *StudyHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/studies/generate", h.Generate)
	r.GET("/api/studies/:id", h.GetStudy)
	r.GET("/api/study-generation-runs/:id", h.GetRun)
	return r
}

func do(r http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestGenerateSuccess(t *testing.T) {
	studyID, runID := uuid.New(), uuid.New()
	gen := &stubGenerator{res: &studygen.Result{
		Success:        true,
		StudyID:        &studyID,
		Title:          "Hope in Anxious Seasons",
		RunID:          runID,
		UnitsPlanned:   10,
		UnitsPersisted: 9,
		Partial:        true,
	}}
	r := newStudyRouter(NewStudyHandler(gen, &stubReader{}))

	prefID, userID := uuid.NewString(), uuid.NewString()
	rec, body := do(r, http.MethodPost, "/api/studies/generate", fmt.Sprintf(`{"preference_id":%q,"user_id":%q}`, prefID, userID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, studyID.String(), body["study_id"])
	assert.Equal(t, runID.String(), rec.Header().Get(headerRunID))
	assert.Equal(t, "Hope in Anxious Seasons", body["title"])
	assert.Equal(t, true, body["partial"])
	assert.EqualValues(t, 9, body["units_persisted"])
	assert.NotContains(t, body, "error")
	assert.Equal(t, prefID, gen.got.PreferenceID)
	assert.Equal(t, userID, gen.got.UserID)
}

func TestGenerateErrorStatuses(t *testing.T) {
	studyID := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", &studygen.InvalidInputError{Field: "user_id", Reason: "is required"}, http.StatusBadRequest, "invalid_input"},
		{"not found", &studygen.NotFoundError{Resource: "preference", ID: "x"}, http.StatusNotFound, "not_found"},
		{"misconfigured", &studygen.ConfigurationError{Err: pkgerrors.ErrMisconfigured}, http.StatusInternalServerError, "configuration_error"},
		{"classification", &studygen.ClassificationError{Attempts: 2, Err: fmt.Errorf("bad json")}, http.StatusBadGateway, "generation_failed"},
		{"planning timeout", &studygen.PlanningError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "timeout"},
		{"empty study", &studygen.EmptyStudyError{StudyID: studyID, Planned: 10}, http.StatusBadGateway, "empty_study"},
		{"empty study after deadline", &studygen.EmptyStudyError{StudyID: studyID, Planned: 10, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "timeout"},
		{"persistence", &studygen.PersistenceError{Entity: "study", Err: fmt.Errorf("db down")}, http.StatusInternalServerError, "persistence_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &studygen.Result{Success: false, Error: tc.err.Error()}
			gen := &stubGenerator{res: res, err: tc.err}
			r := newStudyRouter(NewStudyHandler(gen, &stubReader{}))
			rec, body := do(r, http.MethodPost, "/api/studies/generate", `{"preference_id":"a","user_id":"b"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.err.Error(), body["error"])
			assert.Equal(t, tc.code, body["code"])
			assert.Empty(t, rec.Header().Get(headerRunID))
		})
	}
}

func TestGenerateRejectsBadBody(t *testing.T) {
	gen := &stubGenerator{}
	r := newStudyRouter(NewStudyHandler(gen, &stubReader{}))
	rec, body := do(r, http.MethodPost, "/api/studies/generate", `{"preference_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid_input", body["code"])
}

func TestGetStudy(t *testing.T) {
	userID := uuid.New()
	study := &types.Study{ID: uuid.New(), UserID: userID, Title: "Rest", TotalUnits: 2}
	reader := &stubReader{view: &studygen.StudyView{
		Study:        study,
		Units:        []studygen.UnitView{},
		Completeness: studygen.Completeness{UnitsPlanned: 2, UnitsPersisted: 1, Partial: true},
	}}
	r := newStudyRouter(NewStudyHandler(&stubGenerator{}, reader))

	rec, body := do(r, http.MethodGet, "/api/studies/"+study.ID.String()+"?user_id="+userID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	completeness := body["completeness"].(map[string]any)
	assert.Equal(t, true, completeness["partial"])
	assert.EqualValues(t, 2, completeness["units_planned"])

	rec, _ = do(r, http.MethodGet, "/api/studies/"+study.ID.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(r, http.MethodGet, "/api/studies/nope?user_id="+userID.String(), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reader.err = &studygen.NotFoundError{Resource: "study"}
	rec, body = do(r, http.MethodGet, "/api/studies/"+study.ID.String()+"?user_id="+userID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["error"].(map[string]any)["code"])
}

func TestGetRun(t *testing.T) {
	userID := uuid.New()
	run := &types.StudyGenerationRun{ID: uuid.New(), UserID: userID, State: "completed", Status: types.RunStatusSucceeded}
	r := newStudyRouter(NewStudyHandler(&stubGenerator{}, &stubReader{run: run}))

	rec, body := do(r, http.MethodGet, "/api/study-generation-runs/"+run.ID.String()+"?user_id="+userID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "succeeded", body["run"].(map[string]any)["status"])
}
