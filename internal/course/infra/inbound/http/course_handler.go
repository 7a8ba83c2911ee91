package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/hexacourses/internal/course/application"
	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	"github.com/davicafu/hexacourses/pkg/utils"
)

// CourseHandler encapsula los endpoints HTTP de carreras y participantes
type CourseHandler struct {
	courses      *application.CourseService
	participants *application.ParticipantService
	log          *zap.Logger
}

func NewCourseHandler(courses *application.CourseService, participants *application.ParticipantService, log *zap.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, participants: participants, log: log}
}

// ---------------- Handlers ----------------

// CreateCourse endpoint POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendInvalidBody(c, err)
		return
	}

	date, err := courseDomain.ParseDate(req.Date)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	course, err := h.courses.CreateCourse(c.Request.Context(), req.Name, date, req.Number)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCourseResponse(course))
}

// ListCourses endpoint GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courses.ListCourses(c.Request.Context())
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	out := make([]courseResponse, 0, len(courses))
	for _, course := range courses {
		out = append(out, toCourseResponse(course))
	}
	c.JSON(http.StatusOK, out)
}

// GetCourse endpoint GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	course, err := h.courses.GetCourseByID(c.Request.Context(), id)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourseResponse(course))
}

// UpdateCourse endpoint PUT /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendInvalidBody(c, err)
		return
	}

	changes := application.CourseChanges{Name: req.Name, Number: req.Number}
	if req.Date != nil {
		date, err := courseDomain.ParseDate(*req.Date)
		if err != nil {
			h.sendDomainError(c, err)
			return
		}
		changes.Date = &date
	}

	course, err := h.courses.UpdateCourse(c.Request.Context(), id, changes)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourseResponse(course))
}

// DeleteCourse endpoint DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	if err := h.courses.DeleteCourse(c.Request.Context(), id); err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddParticipant endpoint POST /api/courses/:id/participants
func (h *CourseHandler) AddParticipant(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendInvalidBody(c, err)
		return
	}

	p, err := h.participants.AddParticipant(c.Request.Context(), id, req.Name)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toParticipantResponse(p))
}

// ListParticipants endpoint GET /api/courses/:id/participants
func (h *CourseHandler) ListParticipants(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	ps, err := h.participants.ListParticipantsByCourse(c.Request.Context(), id)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParticipantResponses(ps))
}

// GetParticipant endpoint GET /api/participants/:id
func (h *CourseHandler) GetParticipant(c *gin.Context) {
	id, err := courseDomain.ParseParticipantID(c.Param("id"))
	if err != nil {
		h.sendDomainError(c, err)
		return
	}

	p, err := h.participants.GetParticipantByID(c.Request.Context(), id)
	if err != nil {
		h.sendDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toParticipantResponse(p))
}

func (h *CourseHandler) courseID(c *gin.Context) (courseDomain.CourseID, bool) {
	id, err := courseDomain.ParseCourseID(c.Param("id"))
	if err != nil {
		h.sendDomainError(c, err)
		return 0, false
	}
	return id, true
}

// sendInvalidBody no devuelve el detalle del binding: nombra tipos internos.
func (h *CourseHandler) sendInvalidBody(c *gin.Context, err error) {
	h.log.Debug("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	utils.SendBadRequest(c, "invalid request body")
}

// sendDomainError traduce los errores de dominio a código HTTP + código estable.
func (h *CourseHandler) sendDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, courseDomain.ErrDuplicateCourse):
		utils.SendError(c, http.StatusConflict, utils.CodeCourseDuplicated, "a course already exists for this date and number")
	case errors.Is(err, courseDomain.ErrCourseNotFound):
		utils.SendError(c, http.StatusNotFound, utils.CodeCourseNotFound, "course not found")
	case errors.Is(err, courseDomain.ErrParticipantNotFound):
		utils.SendError(c, http.StatusNotFound, utils.CodeParticipantNotFound, "participant not found")
	case errors.Is(err, courseDomain.ErrDuplicateDossard):
		utils.SendError(c, http.StatusConflict, utils.CodeDossardAlreadyUsed, "dossard already used in this course")
	case errors.Is(err, courseDomain.ErrValidation):
		utils.SendBadRequest(c, err.Error())
	default:
		h.log.Error("Unexpected error handling request",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		utils.SendInternalServerError(c)
	}
}
