package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-progress-api/internal/dto"
	"github.com/noah-isme/lms-progress-api/internal/service"
	"github.com/noah-isme/lms-progress-api/internal/utils"
)

// ProgressHandler exposes lesson progress recording and listing.
type ProgressHandler struct {
	service      service.ProgressService
	writeLimiter fiber.Handler
	logger       zerolog.Logger
}

// NewProgressHandler constructs a progress handler. writeLimiter guards the
// POST route and may be nil.
func NewProgressHandler(service service.ProgressService, writeLimiter fiber.Handler, logger zerolog.Logger) *ProgressHandler {
	if writeLimiter == nil {
		writeLimiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	return &ProgressHandler{
		service:      service,
		writeLimiter: writeLimiter,
		logger:       logger.With().Str("component", "progress_handler").Logger(),
	}
}

// Register wires progress routes.
func (h *ProgressHandler) Register(router fiber.Router) {
	router.Post("", h.writeLimiter, h.record)
	router.Get("", h.list)
	router.Get("/courses/:courseId", h.courseDetail)
}

// RegisterAdmin wires staff-only reconciliation routes.
func (h *ProgressHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/recompute", h.recompute)
}

func (h *ProgressHandler) record(c *fiber.Ctx) error {
	var payload dto.ProgressUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Record(c.UserContext(), authenticatedUser(c), payload)
	if err != nil {
		return h.writeError(c, err, "failed to record progress")
	}

	message := "Progress updated successfully"
	if result.Created {
		message = "Progress created successfully"
	}

	return c.Status(fiber.StatusOK).JSON(dto.ProgressRecordEnvelope{
		Success: true,
		Data:    result.Progress,
		Quiz:    result.Quiz,
		Message: message,
	})
}

func (h *ProgressHandler) list(c *fiber.Ctx) error {
	req, err := parseProgressListRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(c.UserContext(), authenticatedUser(c), req)
	if err != nil {
		return h.writeError(c, err, "failed to fetch progress")
	}

	return utils.SendSuccess(c, "progress retrieved", result)
}

func (h *ProgressHandler) courseDetail(c *fiber.Ctx) error {
	courseID, err := parsePathID(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.CourseDetail(c.UserContext(), authenticatedUser(c), courseID)
	if err != nil {
		return h.writeError(c, err, "failed to fetch course progress")
	}

	return utils.SendSuccess(c, "course progress retrieved", detail)
}

func (h *ProgressHandler) recompute(c *fiber.Ctx) error {
	var payload dto.RecomputeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	detail, err := h.service.Recompute(c.UserContext(), payload)
	if err != nil {
		return h.writeError(c, err, "failed to recompute progress")
	}

	requestLogger(h.logger, c).Info().
		Uint("actor_id", authenticatedUser(c).ID).
		Uint("student_id", payload.Student).
		Uint("course_id", payload.Course).
		Msg("progress recomputed")

	return utils.SendSuccess(c, "progress recomputed", detail)
}

func (h *ProgressHandler) writeError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrUnauthenticated):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrLessonNotFound), errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrLessonCourseMismatch):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func parseProgressListRequest(c *fiber.Ctx) (dto.ProgressListRequest, error) {
	var (
		req dto.ProgressListRequest
		err error
	)

	if req.StudentID, err = parseQueryUint(c, "user"); err != nil {
		return req, err
	}
	if req.CourseID, err = parseQueryUint(c, "course"); err != nil {
		return req, err
	}
	if req.LessonID, err = parseQueryUint(c, "lesson"); err != nil {
		return req, err
	}
	if req.IsCompleted, err = parseQueryBool(c, "isCompleted"); err != nil {
		return req, err
	}
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return req, errors.New("invalid page")
	}
	if req.Limit, err = parseQueryInt(c, "limit"); err != nil {
		return req, errors.New("invalid limit")
	}
	req.SortBy = c.Query("sortBy")
	req.SortOrder = c.Query("sortOrder")

	return req, nil
}
