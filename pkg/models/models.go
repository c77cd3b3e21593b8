package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Shift is the half of the day a service falls in
type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
)

// ServiceType separates the regular weekly services from ad-hoc extras
type ServiceType string

const (
	ServiceRegular ServiceType = "regular"
	ServiceExtra   ServiceType = "extra"
)

// AssignmentStatus is the lifecycle state of an assignment row
type AssignmentStatus string

const (
	StatusSuggested AssignmentStatus = "suggested"
	StatusConfirmed AssignmentStatus = "confirmed"
	StatusReplaced  AssignmentStatus = "replaced"
)

// Day is a calendar date key in YYYY-MM-DD form
type Day string

// DayOf returns the calendar date of t
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(time.DateOnly))
}

// Weekday numbers days Monday=0 through Sunday=6, the convention availability rows use
func Weekday(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}

// Member is a person who can be put on duty
type Member struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:120;not null;index" json:"name"`
	Nickname     *string    `gorm:"size:60" json:"nickname,omitempty"`
	Email        *string    `gorm:"size:254" json:"email,omitempty"`
	Active       bool       `gorm:"not null;index" json:"active"`
	MonthlyLimit int        `gorm:"not null;default:0" json:"monthly_limit"` // 0 means the configured default
	LastServedAt *time.Time `gorm:"index" json:"last_served_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Availabilities []Availability `gorm:"foreignKey:MemberID" json:"availabilities,omitempty"`
}

// DisplayName prefers the nickname
func (m Member) DisplayName() string {
	if m.Nickname != nil && *m.Nickname != "" {
		return *m.Nickname
	}
	return m.Name
}

// Availability declares that a member can serve on a weekday/shift.
// A member with no active rows is available for everything.
type Availability struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	MemberID uint  `gorm:"not null;uniqueIndex:uniq_availability_member_day_shift" json:"member_id"`
	Weekday  int   `gorm:"not null;uniqueIndex:uniq_availability_member_day_shift;check:weekday BETWEEN 0 AND 6" json:"weekday"`
	Shift    Shift `gorm:"size:10;not null;uniqueIndex:uniq_availability_member_day_shift" json:"shift"`
	Active   bool  `gorm:"not null" json:"active"`
}

// Service is a dated, timed duty slot. StartsAt holds the wall-clock date and time in UTC.
type Service struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	StartsAt  time.Time   `gorm:"not null;uniqueIndex" json:"starts_at"`
	Type      ServiceType `gorm:"size:12;not null;index" json:"type"`
	Label     *string     `gorm:"size:100" json:"label,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	Assignments []Assignment `gorm:"foreignKey:ServiceID" json:"assignments,omitempty"`
}

// Date returns the service's calendar date key
func (s Service) Date() Day {
	return DayOf(s.StartsAt)
}

// Shift derives morning/evening from the hour of day
func (s Service) Shift() Shift {
	if s.StartsAt.UTC().Hour() < 12 {
		return ShiftMorning
	}
	return ShiftEvening
}

// AfterFind puts StartsAt back in UTC; postgres drivers scan timestamptz into time.Local
func (s *Service) AfterFind(*gorm.DB) error {
	s.StartsAt = s.StartsAt.UTC()
	return nil
}

// MemberIDsWithStatus returns the members of the preloaded assignments carrying status, in row order
func (s Service) MemberIDsWithStatus(status AssignmentStatus) []uint {
	var ids []uint
	for _, a := range s.Assignments {
		if a.Status == status {
			ids = append(ids, a.MemberID)
		}
	}
	return ids
}

// Assignment pairs a member with a service. At most one row exists per (service, member).
type Assignment struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	ServiceID uint             `gorm:"not null;uniqueIndex:uniq_assignment_service_member;index:idx_assignment_service_status" json:"service_id"`
	MemberID  uint             `gorm:"not null;uniqueIndex:uniq_assignment_service_member;index:idx_assignment_member_status" json:"member_id"`
	Status    AssignmentStatus `gorm:"size:12;not null;index:idx_assignment_service_status;index:idx_assignment_member_status" json:"status"`
	CreatedBy *string          `gorm:"size:150" json:"created_by,omitempty"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	Service *Service `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"service,omitempty"`
	Member  *Member  `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"member,omitempty"`
}

// ScheduleMonth marks a month whose suggestions have been generated
type ScheduleMonth struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Year        int       `gorm:"not null;uniqueIndex:uniq_schedule_month" json:"year"`
	Month       int       `gorm:"not null;uniqueIndex:uniq_schedule_month" json:"month"`
	GeneratedAt time.Time `gorm:"autoCreateTime" json:"generated_at"`
	GeneratedBy *string   `gorm:"size:150" json:"generated_by,omitempty"`
}

// AuditLog records a before/after snapshot of a changed row
type AuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Action    string         `gorm:"size:50;not null;index:idx_audit_action_created" json:"action"`
	Table     string         `gorm:"column:table_name;size:50;not null;index:idx_audit_table_created" json:"table"`
	RecordID  string         `gorm:"size:50;not null" json:"record_id"`
	Before    datatypes.JSON `json:"before,omitempty"`
	After     datatypes.JSON `json:"after,omitempty"`
	Author    *string        `gorm:"size:150" json:"author,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_audit_action_created;index:idx_audit_table_created" json:"created_at"`
}

// ConfirmedDuty is one confirmed (instant, member) pair of a month's timeline
type ConfirmedDuty struct {
	At       time.Time
	MemberID uint
}

// MonthRequest identifies a month in request bodies
type MonthRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// GenerateResponse is the result of a generation pass
type GenerateResponse struct {
	Year               int  `json:"year"`
	Month              int  `json:"month"`
	ServicesCreated    int  `json:"services_created"`
	MonthCreated       bool `json:"month_created"`
	SuggestionsCreated int  `json:"suggestions_created"`
}

// ReconcileRequest optionally names the pivot service
type ReconcileRequest struct {
	PivotServiceID uint `json:"pivot_service_id"`
}

// ReconcileResponse lists the services whose rows changed
type ReconcileResponse struct {
	ChangedServiceIDs []uint `json:"changed_service_ids"`
}

// MemberRequest carries a member id in operator actions
type MemberRequest struct {
	MemberID uint `json:"member_id" binding:"required"`
}

// AssignmentResponse is returned by operator actions on a single row
type AssignmentResponse struct {
	Assignment        Assignment `json:"assignment"`
	ChangedServiceIDs []uint     `json:"changed_service_ids"`
}
