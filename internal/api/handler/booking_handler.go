package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/booking-be/internal/api/dto"
	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	job, err := h.bookings.StoreJob(c.Request.Context(), Actor(c), req.ToDomain())
	if err != nil {
		h.writeError(c, "store_job", err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	detail, err := h.bookings.GetJob(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get_job", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// UpdateBooking handles PUT /api/v1/bookings/:id
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.bookings.UpdateJob(c.Request.Context(), id, req.ToDomain(), Actor(c))
	if err != nil {
		h.writeError(c, "update_job", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AcceptBooking handles POST /api/v1/bookings/accept
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	var req dto.AcceptBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id is required"})
		return
	}

	result, err := h.bookings.AcceptJob(c.Request.Context(), req.JobID, Actor(c))
	if err != nil {
		h.writeError(c, "accept_job", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AcceptBookingWithID handles POST /api/v1/bookings/:id/accept
func (h *BookingHandler) AcceptBookingWithID(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.AcceptJobWithID(c.Request.Context(), id, Actor(c))
	if err != nil {
		h.writeError(c, "accept_job_with_id", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.CancelJob(c.Request.Context(), id, Actor(c))
	if err != nil {
		h.writeError(c, "cancel_job", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// EndBooking handles POST /api/v1/bookings/:id/end
func (h *BookingHandler) EndBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	if err := h.bookings.EndJob(c.Request.Context(), id, Actor(c).ID); err != nil {
		h.writeError(c, "end_job", err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: domain.OutcomeSuccess})
}

// CustomerNotCall handles POST /api/v1/bookings/:id/customer-not-call
func (h *BookingHandler) CustomerNotCall(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	if err := h.bookings.CustomerNotCall(c.Request.Context(), id); err != nil {
		h.writeError(c, "customer_not_call", err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: domain.OutcomeSuccess})
}

// ReopenBooking handles POST /api/v1/bookings/:id/reopen
func (h *BookingHandler) ReopenBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	result, err := h.bookings.Reopen(c.Request.Context(), id, Actor(c).ID)
	if err != nil {
		h.writeError(c, "reopen", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ResendPush handles POST /api/v1/bookings/:id/notifications/push
func (h *BookingHandler) ResendPush(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	if err := h.bookings.ResendNotifications(c.Request.Context(), id); err != nil {
		h.writeError(c, "resend_notifications", err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: domain.OutcomeSuccess, Message: "Push sent"})
}

// ResendSMS handles POST /api/v1/bookings/:id/notifications/sms
func (h *BookingHandler) ResendSMS(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	sent, err := h.bookings.ResendSMSNotifications(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "resend_sms_notifications", err)
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{Status: domain.OutcomeSuccess, Message: "SMS sent", Sent: &sent})
}
