package httpapi

import (
	"errors"
	"net/http"

	"chama_admin/internal/app"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/domain/withdrawal"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Handler serves the admin API on top of the application services.
type Handler struct {
	cycles        *app.CycleService
	members       *app.MemberService
	contributions *app.ContributionService
	payments      *app.PaymentService
	withdrawals   *app.WithdrawalService
	log           *logrus.Entry
}

func NewHandler(
	cycles *app.CycleService,
	members *app.MemberService,
	contributions *app.ContributionService,
	payments *app.PaymentService,
	withdrawals *app.WithdrawalService,
	log *logrus.Entry,
) *Handler {
	return &Handler{
		cycles:        cycles,
		members:       members,
		contributions: contributions,
		payments:      payments,
		withdrawals:   withdrawals,
		log:           log,
	}
}

type createCycleRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Notes     string `json:"notes"`
}

// ListCycles settles whatever has expired and returns the board.
func (h *Handler) ListCycles(c *gin.Context) {
	board, err := h.cycles.RefreshAndDetectExpired(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"board": board})
}

func (h *Handler) CreateCycle(c *gin.Context) {
	var req createCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	created, err := h.cycles.CreateCycle(c.Request.Context(), actorID(c), req.Name, req.StartDate, req.EndDate, req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, Response{"cycle": created})
}

// EndCycle settles the cycle now. Ending an ended cycle answers 409 with the
// cycle as it was settled.
func (h *Handler) EndCycle(c *gin.Context) {
	ended, err := h.cycles.EndCycle(c.Request.Context(), actorID(c), c.Param("id"))
	if errors.Is(err, app.ErrCycleAlreadyEnded) && ended != nil {
		c.JSON(http.StatusConflict, gin.H{
			"code":    CodeConflict,
			"message": app.Message(err),
			"data":    Response{"cycle": ended},
		})
		return
	}
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"cycle": ended})
}

func (h *Handler) CycleProgress(c *gin.Context) {
	cy, progress, err := h.cycles.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"cycle": cy, "progress": progress})
}

func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"members": members})
}

func (h *Handler) MemberBalance(c *gin.Context) {
	balance, err := h.members.Balance(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"balance": balance})
}

type adjustmentRequest struct {
	Type   member.AdjustmentKind `json:"type"`
	Amount decimal.Decimal       `json:"amount"`
	Reason string                `json:"reason"`
}

func (h *Handler) ApplyAdjustment(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	m, err := h.members.ApplyAdjustment(c.Request.Context(), actorID(c), c.Param("id"), req.Type, req.Amount, req.Reason)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"member": m})
}

// ListAdjustments returns a member's penalty and reward history.
func (h *Handler) ListAdjustments(c *gin.Context) {
	history, err := h.members.Adjustments(c.Request.Context(), c.Param("id"))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"adjustments": history})
}

type contributionRequest struct {
	MemberID         string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	ContributionDate string          `json:"contribution_date"`
	Notes            string          `json:"notes"`
}

func (h *Handler) RecordContribution(c *gin.Context) {
	var req contributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	recorded, err := h.contributions.Record(c.Request.Context(), actorID(c), req.MemberID, req.Amount, req.ContributionDate, req.Notes)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, Response{"contribution": recorded})
}

type paymentRequest struct {
	MemberID    string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
}

func (h *Handler) RegisterPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	t, err := h.payments.Register(c.Request.Context(), req.MemberID, req.Amount, req.PhoneNumber)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, Response{"payment": t})
}

// PaymentCallback receives gateway status updates.
func (h *Handler) PaymentCallback(c *gin.Context) {
	var notice app.PaymentNotice
	if err := c.ShouldBindJSON(&notice); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	t, err := h.payments.HandleCallback(c.Request.Context(), notice)
	if err != nil {
		h.log.WithError(err).WithField("reference", notice.MerchantReference).Warn("Payment callback rejected")
		ServiceError(c, err)
		return
	}
	Success(c, Response{"payment": t})
}

type withdrawalRequest struct {
	MemberID string          `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
}

func (h *Handler) SubmitWithdrawal(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	w, err := h.withdrawals.Submit(c.Request.Context(), req.MemberID, req.Amount, req.Reason)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, Response{"withdrawal": w})
}

// ListWithdrawals returns pending requests; ?all=true includes reviewed ones.
func (h *Handler) ListWithdrawals(c *gin.Context) {
	requests, err := h.withdrawals.List(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"withdrawals": requests})
}

func (h *Handler) ApproveWithdrawal(c *gin.Context) {
	w, err := h.withdrawals.Approve(c.Request.Context(), actorID(c), c.Param("id"))
	h.reviewed(c, w, err)
}

type rejectionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectWithdrawal(c *gin.Context) {
	var req rejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeInvalidParam, "Invalid request body")
		return
	}

	w, err := h.withdrawals.Reject(c.Request.Context(), actorID(c), c.Param("id"), req.Reason)
	h.reviewed(c, w, err)
}

// reviewed answers a review; a request decided earlier comes back as 409
// carrying its current state.
func (h *Handler) reviewed(c *gin.Context, w *withdrawal.Request, err error) {
	if errors.Is(err, app.ErrWithdrawalAlreadyReviewed) && w != nil {
		c.JSON(http.StatusConflict, gin.H{
			"code":    CodeConflict,
			"message": app.Message(err),
			"data":    Response{"withdrawal": w},
		})
		return
	}
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, Response{"withdrawal": w})
}
