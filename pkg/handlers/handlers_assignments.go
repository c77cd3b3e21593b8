package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/audit"
	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
	"github.com/arnavshah/duty-roster-go/pkg/scheduler"
)

// ConfirmAssignment marks a row confirmed
func (h *Handler) ConfirmAssignment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	ctx := audit.WithAuthor(c.Request.Context(), actor(c))

	var out models.Assignment
	err := h.Repo.Transaction(ctx, func(tx repository.Repository) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		a.Service = nil
		if a.Status != models.StatusConfirmed {
			a.Status = models.StatusConfirmed
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return err
			}
		}
		out = *a
		return nil
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.Log.Info("assignment confirmed",
		zap.Uint("assignment_id", out.ID),
		zap.Uint("service_id", out.ServiceID),
		zap.Uint("member_id", out.MemberID),
		zap.String("actor", actor(c)))
	c.JSON(http.StatusOK, models.AssignmentResponse{Assignment: out, ChangedServiceIDs: []uint{}})
}

// ReplaceAssignment swaps the row's member, marks it replaced and reconciles the services after it
func (h *Handler) ReplaceAssignment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	who := actor(c)
	ctx := audit.WithAuthor(c.Request.Context(), who)
	start := time.Now()

	var (
		out  models.Assignment
		svc  *models.Service
		diff []uint
	)
	err := h.Repo.Transaction(ctx, func(tx repository.Repository) error {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.GetMember(ctx, req.MemberID); err != nil {
			return err
		}
		svc, err = tx.GetService(ctx, a.ServiceID)
		if err != nil {
			return err
		}
		for _, other := range svc.Assignments {
			if other.ID != a.ID && other.MemberID == req.MemberID {
				return ErrConflict
			}
		}

		a.Service = nil
		a.MemberID = req.MemberID
		a.Status = models.StatusReplaced
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return err
		}
		out = *a

		diff, err = scheduler.New(tx).Reconcile(ctx, svc.StartsAt.Year(), int(svc.StartsAt.Month()), who, svc.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.reconciled(c, svc.StartsAt.Year(), int(svc.StartsAt.Month()), svc.ID, diff, time.Since(start))

	c.JSON(http.StatusOK, models.AssignmentResponse{Assignment: out, ChangedServiceIDs: diff})
}

// AddAssignment puts a member on a service as confirmed, creating the row when needed.
// Regular services are reconciled afterwards when resuggest-on-add is enabled.
func (h *Handler) AddAssignment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req models.MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	who := actor(c)
	ctx := audit.WithAuthor(c.Request.Context(), who)
	start := time.Now()

	var (
		out      models.Assignment
		svc      *models.Service
		created  bool
		resynced bool
		diff     = []uint{}
	)
	err := h.Repo.Transaction(ctx, func(tx repository.Repository) error {
		var err error
		svc, err = tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.GetMember(ctx, req.MemberID); err != nil {
			return err
		}

		var existing *models.Assignment
		for i := range svc.Assignments {
			if svc.Assignments[i].MemberID == req.MemberID {
				existing = &svc.Assignments[i]
				break
			}
		}

		switch {
		case existing == nil:
			a := &models.Assignment{
				ServiceID: svc.ID,
				MemberID:  req.MemberID,
				Status:    models.StatusConfirmed,
			}
			if who != "" {
				a.CreatedBy = &who
			}
			created, err = tx.CreateAssignment(ctx, a)
			if err != nil {
				return err
			}
			if !created {
				return ErrConflict
			}
			out = *a
		case existing.Status != models.StatusConfirmed:
			existing.Status = models.StatusConfirmed
			if err := tx.UpdateAssignment(ctx, existing); err != nil {
				return err
			}
			out = *existing
		default:
			out = *existing
		}

		if svc.Type != models.ServiceRegular || !h.Scheduling.ResuggestOnAdd {
			return nil
		}
		resynced = true
		diff, err = scheduler.New(tx).Reconcile(ctx, svc.StartsAt.Year(), int(svc.StartsAt.Month()), who, svc.ID)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if resynced {
		h.reconciled(c, svc.StartsAt.Year(), int(svc.StartsAt.Month()), svc.ID, diff, time.Since(start))
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, models.AssignmentResponse{Assignment: out, ChangedServiceIDs: diff})
}
