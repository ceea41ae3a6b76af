package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	"github.com/smallbiznis/planbilling/internal/billing"
	obslogger "github.com/smallbiznis/planbilling/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) Health(c *gin.Context) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type runBillingResponse struct {
	Result billing.TickResult `json:"result"`
	Error  string             `json:"error,omitempty"`
}

// RunBilling runs a tick synchronously. Per-membership failures are reported
// in the body; only a tick that could not start is a 500.
func (s *Server) RunBilling(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := s.billing.RunTick(ctx)
	if err != nil && result.Due == 0 {
		AbortWithError(c, err)
		return
	}

	resp := runBillingResponse{Result: result}
	if err != nil {
		resp.Error = err.Error()
	}
	obslogger.WithContext(ctx, s.log).Info("manual billing tick",
		zap.Int("due", result.Due),
		zap.Int("charged", result.Charged),
		zap.Int("errors", result.Errors),
	)
	c.JSON(http.StatusOK, resp)
}

type listAttemptsResponse struct {
	InvoiceUID string                  `json:"invoice_uid"`
	Attempts   []attemptdomain.Attempt `json:"attempts"`
}

func (s *Server) ListAttempts(c *gin.Context) {
	uid := strings.TrimSpace(c.Param("uid"))
	attempts, err := s.attempts.HistoryByInvoiceUID(c.Request.Context(), uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if attempts == nil {
		attempts = []attemptdomain.Attempt{}
	}
	c.JSON(http.StatusOK, listAttemptsResponse{InvoiceUID: uid, Attempts: attempts})
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	uid := strings.TrimSpace(c.Param("uid"))
	doc, err := s.receipts.Render(c.Request.Context(), uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="receipt-`+uid+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}
