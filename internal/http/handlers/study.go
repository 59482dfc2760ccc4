package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/http/response"
	"github.com/yungbote/studyforge-backend/internal/modules/studygen"
	"github.com/yungbote/studyforge-backend/internal/pkg/apierr"
)

type StudyGenerator interface {
	Run(ctx context.Context, req studygen.Request) (*studygen.Result, error)
}

type StudyReader interface {
	GetStudy(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*studygen.StudyView, error)
	GetRun(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*types.StudyGenerationRun, error)
}

type StudyHandler struct {
	gen   StudyGenerator
	query StudyReader
}

func NewStudyHandler(gen StudyGenerator, query StudyReader) *StudyHandler {
	return &StudyHandler{gen: gen, query: query}
}

// headerRunID names the generation run a response belongs to.
const headerRunID = "X-Run-Id"

type generateResponse struct {
	*studygen.Result
	Code string `json:"code,omitempty"`
}

// POST /api/studies/generate
func (h *StudyHandler) Generate(c *gin.Context) {
	var req studygen.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, generateResponse{
			Result: &studygen.Result{Success: false, Error: "invalid request body: " + err.Error()},
			Code:   "invalid_input",
		})
		return
	}

	res, err := h.gen.Run(c.Request.Context(), req)
	if res != nil && res.RunID != uuid.Nil {
		c.Header(headerRunID, res.RunID.String())
	}
	if err != nil {
		ae := studyError(err)
		if res == nil {
			res = &studygen.Result{Success: false, Error: err.Error()}
		}
		c.JSON(ae.Status, generateResponse{Result: res, Code: ae.Code})
		return
	}
	response.RespondOK(c, generateResponse{Result: res})
}

// GET /api/studies/:id?user_id=
func (h *StudyHandler) GetStudy(c *gin.Context) {
	id, userID, ok := parseOwnedID(c, "invalid_study_id")
	if !ok {
		return
	}
	view, err := h.query.GetStudy(c.Request.Context(), id, userID)
	if err != nil {
		response.RespondAPIError(c, err, "get_study_failed")
		return
	}
	response.RespondOK(c, view)
}

// GET /api/study-generation-runs/:id?user_id=
func (h *StudyHandler) GetRun(c *gin.Context) {
	id, userID, ok := parseOwnedID(c, "invalid_run_id")
	if !ok {
		return
	}
	run, err := h.query.GetRun(c.Request.Context(), id, userID)
	if err != nil {
		response.RespondAPIError(c, err, "get_run_failed")
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

func parseOwnedID(c *gin.Context, code string) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := parseUserID(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return id, userID, true
}

func parseUserID(c *gin.Context) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query("user_id"))
	if raw == "" {
		return uuid.Nil, errors.New("user_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("user_id must be a UUID")
	}
	return id, nil
}

// studyError picks the HTTP status for a failed generation run.
func studyError(err error) *apierr.Error {
	var (
		cle *studygen.ClassificationError
		ple *studygen.PlanningError
		ese *studygen.EmptyStudyError
		pe  *studygen.PersistenceError
	)
	switch {
	case errors.As(err, &ese):
		if errors.Is(err, context.DeadlineExceeded) {
			return apierr.New(http.StatusGatewayTimeout, "timeout", err)
		}
		return apierr.New(http.StatusBadGateway, "empty_study", err)
	case errors.As(err, &cle), errors.As(err, &ple):
		if errors.Is(err, context.DeadlineExceeded) {
			return apierr.New(http.StatusGatewayTimeout, "timeout", err)
		}
		return apierr.New(http.StatusBadGateway, "generation_failed", err)
	case errors.As(err, &pe):
		return apierr.New(http.StatusInternalServerError, "persistence_error", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "timeout", err)
	default:
		return apierr.From(err, "generation_failed")
	}
}
