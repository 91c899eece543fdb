package httpapi

import (
	"net/http"

	"chama_admin/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Options carries the secrets and identities the router needs.
type Options struct {
	AdminAPIToken         string
	AdminUserID           string
	PaymentCallbackSecret string
	Release               bool
}

func NewRouter(h *Handler, opts Options, logger *logrus.Entry) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestLogger(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/api/payments/callback", CallbackSecret(opts.PaymentCallbackSecret), h.PaymentCallback)

	api := r.Group("/api")
	api.Use(AdminAuth(opts.AdminAPIToken, opts.AdminUserID))
	{
		api.GET("/cycles", h.ListCycles)
		api.POST("/cycles", h.CreateCycle)
		api.GET("/cycles/export.xlsx", h.ExportCyclesXLSX)
		api.GET("/cycles/export.csv", h.ExportCyclesCSV)
		api.POST("/cycles/:id/end", h.EndCycle)
		api.GET("/cycles/:id/progress", h.CycleProgress)

		api.GET("/members", h.ListMembers)
		api.GET("/members/:id/balance", h.MemberBalance)
		api.GET("/members/:id/adjustments", h.ListAdjustments)
		api.POST("/members/:id/adjustments", h.ApplyAdjustment)

		api.POST("/contributions", h.RecordContribution)
		api.POST("/payments", h.RegisterPayment)

		api.GET("/withdrawals", h.ListWithdrawals)
		api.POST("/withdrawals", h.SubmitWithdrawal)
		api.POST("/withdrawals/:id/approve", h.ApproveWithdrawal)
		api.POST("/withdrawals/:id/reject", h.RejectWithdrawal)
	}

	return r
}
