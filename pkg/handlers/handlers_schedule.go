package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/audit"
	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/scheduler"
)

func parseMonth(year, month string) (int, int, error) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	if errY != nil || errM != nil {
		return 0, 0, fmt.Errorf("%w: %q-%q", scheduler.ErrInvalidMonth, year, month)
	}
	if err := scheduler.ValidateMonth(y, m); err != nil {
		return 0, 0, err
	}
	return y, m, nil
}

// Generate creates the month's missing services and suggests a member for each open one
func (h *Handler) Generate(c *gin.Context) {
	year, month, err := parseMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	who := actor(c)
	ctx := audit.WithAuthor(c.Request.Context(), who)
	start := time.Now()

	servicesCreated, err := h.Calendar.EnsureMonthServices(ctx, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Engine.Generate(ctx, year, month, who)
	if err != nil {
		h.fail(c, err)
		return
	}
	elapsed := time.Since(start)

	if h.Metrics != nil {
		h.Metrics.RecordGenerate(res.SuggestionsCreated, elapsed)
	}
	h.Log.Info("suggestions generated",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("actor", who),
		zap.Int("services_created", servicesCreated),
		zap.Bool("month_created", res.MonthCreated),
		zap.Int("suggestions_created", res.SuggestionsCreated),
		zap.Duration("duration", elapsed))
	h.RecordUsage(c, servicesCreated, res.SuggestionsCreated)

	c.JSON(http.StatusOK, models.GenerateResponse{
		Year:               year,
		Month:              month,
		ServicesCreated:    servicesCreated,
		MonthCreated:       res.MonthCreated,
		SuggestionsCreated: res.SuggestionsCreated,
	})
}

// Reconcile recomputes suggestions after an optional pivot service
func (h *Handler) Reconcile(c *gin.Context) {
	year, month, err := parseMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req models.ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	who := actor(c)
	ctx := audit.WithAuthor(c.Request.Context(), who)
	start := time.Now()

	changed, err := h.Engine.Reconcile(ctx, year, month, who, req.PivotServiceID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.reconciled(c, year, month, req.PivotServiceID, changed, time.Since(start))

	c.JSON(http.StatusOK, models.ReconcileResponse{ChangedServiceIDs: changed})
}

func (h *Handler) reconciled(c *gin.Context, year, month int, pivot uint, changed []uint, elapsed time.Duration) {
	if h.Metrics != nil {
		h.Metrics.RecordReconcile(len(changed), elapsed)
	}
	h.Log.Info("month reconciled",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Uint("pivot", pivot),
		zap.String("actor", actor(c)),
		zap.Uints("changed_services", changed),
		zap.Duration("duration", elapsed))
	h.RecordUsage(c, len(changed), len(changed))
}

// Ranking reports the top candidates of each service without changing anything
func (h *Handler) Ranking(c *gin.Context) {
	year, month, err := parseMonth(c.Param("year"), c.Param("month"))
	if err != nil {
		h.fail(c, err)
		return
	}
	top, err := strconv.Atoi(c.DefaultQuery("top", strconv.Itoa(scheduler.DefaultTopN)))
	if err != nil || top <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "top must be a positive integer"})
		return
	}

	start := time.Now()
	ranking, err := h.Engine.Rank(c.Request.Context(), year, month, top)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordRank(time.Since(start))
	}
	if len(ranking) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no services found for the specified month"})
		return
	}
	h.RecordUsage(c, len(ranking), 0)

	c.JSON(http.StatusOK, gin.H{
		"year":    year,
		"month":   month,
		"top":     top,
		"ranking": ranking,
	})
}

// MemberDuties lists a member's confirmed duties in a month
func (h *Handler) MemberDuties(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	year, month, err := parseMonth(c.Query("year"), c.Query("month"))
	if err != nil {
		h.fail(c, err)
		return
	}

	member, err := h.Repo.GetMember(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	duties, err := h.Repo.MemberMonthConfirmed(c.Request.Context(), id, year, month)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member": member,
		"year":   year,
		"month":  month,
		"duties": duties,
	})
}
