package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/services"
)

// DigestSender sends the manager digest for a date.
type DigestSender interface {
	Send(ctx context.Context, date time.Time) (*services.DigestReport, error)
}

// DigestHandler triggers the Telegram digest on demand.
type DigestHandler struct {
	digest DigestSender
	clock  Clock
	logger *logrus.Logger
}

func NewDigestHandler(digest DigestSender, clock Clock, logger *logrus.Logger) *DigestHandler {
	return &DigestHandler{
		digest: digest,
		clock:  clock,
		logger: logger,
	}
}

// SendDigest posts the digest for ?date= (default today).
func (h *DigestHandler) SendDigest(c *gin.Context) {
	date, err := parseDateParam(c, "date", h.clock.Today())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	report, err := h.digest.Send(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
