package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/scheduler"
)

// ValidateInput checks a month request and reports what the month holds
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.MonthRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if err := scheduler.ValidateMonth(input.Year, input.Month); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	services, err := h.Repo.MonthServices(c.Request.Context(), input.Year, input.Month)
	if err != nil {
		h.fail(c, err)
		return
	}
	members, err := h.Repo.ActiveMembers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	if len(members) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one active member is required"})
		return
	}

	open := 0
	for _, svc := range services {
		if len(svc.MemberIDsWithStatus(models.StatusConfirmed)) == 0 {
			open++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"member_count":       len(members),
			"service_count":      len(services),
			"open_service_count": open,
		},
	})
}
