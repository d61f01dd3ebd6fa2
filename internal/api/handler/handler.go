package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-be/internal/api/dto"
	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// ActorKey is the gin context key holding the acting *domain.User
const ActorKey = "actor"

// BookingService is the booking workflow used by the handlers
type BookingService interface {
	StoreJob(ctx context.Context, customer *domain.User, req domain.CreateJobRequest) (*domain.Job, error)
	GetJob(ctx context.Context, id int64) (*domain.JobDetail, error)
	UpdateJob(ctx context.Context, id int64, req domain.UpdateRequest, actor *domain.User) (*domain.UpdateResult, error)
	AcceptJob(ctx context.Context, jobID int64, translator *domain.User) (*domain.AcceptResult, error)
	AcceptJobWithID(ctx context.Context, jobID int64, translator *domain.User) (*domain.AcceptResult, error)
	CancelJob(ctx context.Context, jobID int64, actor *domain.User) (*domain.CancelResult, error)
	EndJob(ctx context.Context, jobID, userID int64) error
	CustomerNotCall(ctx context.Context, jobID int64) error
	Reopen(ctx context.Context, jobID, actorID int64) (*domain.ReopenResult, error)
	ResendNotifications(ctx context.Context, jobID int64) error
	ResendSMSNotifications(ctx context.Context, jobID int64) (int, error)
}

// Pinger reports whether the store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Service  string
	Bookings BookingService
	Users    UserFinder
	Store    Pinger
	LiveFeed http.HandlerFunc
}

// UserFinder resolves the acting user
type UserFinder interface {
	FindUser(ctx context.Context, id int64) (*domain.User, error)
}

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	logger   *slog.Logger
	bookings BookingService
}

// NewBookingHandler creates a new BookingHandler instance
func NewBookingHandler(deps *Dependencies) *BookingHandler {
	return &BookingHandler{
		logger:   deps.Logger,
		bookings: deps.Bookings,
	}
}

// Actor returns the user set by the actor middleware
func Actor(c *gin.Context) *domain.User {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// writeError maps workflow errors to HTTP status codes
func (h *BookingHandler) writeError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTransitionNotAllowed),
		errors.Is(err, domain.ErrNotAssigned),
		errors.Is(err, domain.ErrJobAlreadyAccepted),
		errors.Is(err, domain.ErrAlreadyBooked),
		errors.Is(err, domain.ErrActiveAssignmentExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrValidationRejected):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("operation", op),
			slog.Any("error", err),
		)
		c.JSON(status, dto.ErrorResponse{Error: "internal server error"})
		return
	}

	h.logger.Warn("Request rejected",
		slog.String("operation", op),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}
