package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/arnavshah/duty-roster-go/pkg/models"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

type authorKey struct{}

// WithAuthor tags ctx with the identity changes made under it are attributed to
func WithAuthor(ctx context.Context, author string) context.Context {
	return context.WithValue(ctx, authorKey{}, author)
}

// AuthorFrom returns the identity set by WithAuthor, or ""
func AuthorFrom(ctx context.Context) string {
	author, _ := ctx.Value(authorKey{}).(string)
	return author
}

// Recorder writes an audit row for every saved assignment and keeps members.last_served_at
// pointing at each member's latest confirmed duty
type Recorder struct {
	countExtra bool
}

// NewRecorder returns a Recorder. countExtra makes extra services count as served.
func NewRecorder(countExtra bool) *Recorder {
	return &Recorder{countExtra: countExtra}
}

type assignmentSnapshot struct {
	ServiceID uint                    `json:"service_id"`
	MemberID  uint                    `json:"member_id"`
	Status    models.AssignmentStatus `json:"status"`
	CreatedBy *string                 `json:"created_by"`
}

func snapshot(a *models.Assignment) (datatypes.JSON, error) {
	if a == nil {
		return datatypes.JSON("null"), nil
	}
	raw, err := json.Marshal(assignmentSnapshot{
		ServiceID: a.ServiceID,
		MemberID:  a.MemberID,
		Status:    a.Status,
		CreatedBy: a.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// AssignmentSaved implements repository.AssignmentObserver
func (r *Recorder) AssignmentSaved(ctx context.Context, tx *gorm.DB, before, after *models.Assignment) error {
	if err := r.RefreshLastServed(ctx, tx, after.MemberID); err != nil {
		return err
	}
	if before != nil && before.MemberID != after.MemberID {
		if err := r.RefreshLastServed(ctx, tx, before.MemberID); err != nil {
			return err
		}
	}

	action := ActionUpdate
	if before == nil {
		action = ActionCreate
	}
	beforeJSON, err := snapshot(before)
	if err != nil {
		return fmt.Errorf("snapshot before: %w", err)
	}
	afterJSON, err := snapshot(after)
	if err != nil {
		return fmt.Errorf("snapshot after: %w", err)
	}

	entry := models.AuditLog{
		Action:   action,
		Table:    "assignments",
		RecordID: strconv.FormatUint(uint64(after.ID), 10),
		Before:   beforeJSON,
		After:    afterJSON,
	}
	if author := AuthorFrom(ctx); author != "" {
		entry.Author = &author
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// RefreshLastServed recomputes a member's last_served_at from their confirmed duties
func (r *Recorder) RefreshLastServed(ctx context.Context, tx *gorm.DB, memberID uint) error {
	q := tx.WithContext(ctx).
		Table("assignments").
		Joins("JOIN services ON services.id = assignments.service_id").
		Where("assignments.member_id = ? AND assignments.status = ?", memberID, models.StatusConfirmed)
	if !r.countExtra {
		q = q.Where("services.type = ?", models.ServiceRegular)
	}

	var latest []time.Time
	if err := q.Order("services.starts_at DESC").Limit(1).Pluck("services.starts_at", &latest).Error; err != nil {
		return fmt.Errorf("latest duty of member %d: %w", memberID, err)
	}

	var value *time.Time
	if len(latest) > 0 {
		at := latest[0].UTC()
		value = &at
	}
	if err := tx.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", memberID).
		Update("last_served_at", value).Error; err != nil {
		return fmt.Errorf("update last served of member %d: %w", memberID, err)
	}
	return nil
}
