package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/middleware"
	"github.com/irfndi/skupulse/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// respondError maps service errors to HTTP statuses: malformed input is 400,
// a population that cannot support a pass is 422, everything else is 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validation   *utils.ValidationError
		insufficient *utils.InsufficientDataError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Message})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Insufficient data", Reason: insufficient.Reason})
	default:
		middleware.RecordError(c, err, "request failed")
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// parseDateParam reads a YYYY-MM-DD query parameter, falling back to def
// when absent.
func parseDateParam(c *gin.Context, name string, def time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, utils.NewValidationErrorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return date, nil
}

// Clock gives handlers the current calendar day in the business timezone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// Today returns the current date at midnight UTC, as dates are handled as
// plain calendar days.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now().In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func invalidBody(err error) error {
	return utils.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
}
