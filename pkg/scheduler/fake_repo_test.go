package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
)

// fakeRepo is an in-memory repository.Repository
type fakeRepo struct {
	members      []models.Member
	availability []models.Availability
	services     []models.Service
	assignments  []models.Assignment
	markers      map[[2]int]string

	defaultLimit int
	includeExtra bool
	nextID       uint

	creates int
	updates int
}

var _ repository.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{markers: make(map[[2]int]string), defaultLimit: 2}
}

func (f *fakeRepo) addMember(name string) models.Member {
	f.nextID++
	m := models.Member{ID: f.nextID, Name: name, Active: true}
	f.members = append(f.members, m)
	return m
}

func (f *fakeRepo) setLimit(id uint, limit int) {
	for i := range f.members {
		if f.members[i].ID == id {
			f.members[i].MonthlyLimit = limit
		}
	}
}

func (f *fakeRepo) deactivate(id uint) {
	for i := range f.members {
		if f.members[i].ID == id {
			f.members[i].Active = false
		}
	}
}

func (f *fakeRepo) addAvailability(memberID uint, weekday int, shift models.Shift) {
	f.nextID++
	f.availability = append(f.availability, models.Availability{
		ID: f.nextID, MemberID: memberID, Weekday: weekday, Shift: shift, Active: true,
	})
}

func (f *fakeRepo) addService(startsAt time.Time, typ models.ServiceType) models.Service {
	f.nextID++
	s := models.Service{ID: f.nextID, StartsAt: startsAt, Type: typ}
	f.services = append(f.services, s)
	return s
}

func (f *fakeRepo) addAssignment(serviceID, memberID uint, status models.AssignmentStatus) models.Assignment {
	f.nextID++
	a := models.Assignment{ID: f.nextID, ServiceID: serviceID, MemberID: memberID, Status: status}
	f.assignments = append(f.assignments, a)
	return a
}

func (f *fakeRepo) rowsFor(serviceID uint) []models.Assignment {
	var out []models.Assignment
	for _, a := range f.assignments {
		if a.ServiceID == serviceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRepo) service(id uint) (models.Service, bool) {
	for _, s := range f.services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func (f *fakeRepo) visible(s models.Service) bool {
	return f.includeExtra || s.Type == models.ServiceRegular
}

func (f *fakeRepo) ActiveMembers(context.Context) ([]models.Member, error) {
	var out []models.Member
	for _, m := range f.members {
		if m.Active {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) ActiveAvailability(_ context.Context, memberIDs []uint) (map[uint][]models.Availability, error) {
	wanted := make(map[uint]bool, len(memberIDs))
	for _, id := range memberIDs {
		wanted[id] = true
	}
	out := make(map[uint][]models.Availability)
	for _, a := range f.availability {
		if a.Active && wanted[a.MemberID] {
			out[a.MemberID] = append(out[a.MemberID], a)
		}
	}
	return out, nil
}

func (f *fakeRepo) MonthlyLimit(m models.Member) int {
	if m.MonthlyLimit > 0 {
		return m.MonthlyLimit
	}
	return f.defaultLimit
}

func (f *fakeRepo) MonthServices(_ context.Context, year, month int) ([]models.Service, error) {
	start, end := repository.MonthRange(year, month)
	var out []models.Service
	for _, s := range f.services {
		if s.StartsAt.Before(start) || !s.StartsAt.Before(end) || !f.visible(s) {
			continue
		}
		s.Assignments = f.rowsFor(s.ID)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) confirmed() []models.ConfirmedDuty {
	var out []models.ConfirmedDuty
	for _, a := range f.assignments {
		if a.Status != models.StatusConfirmed {
			continue
		}
		s, ok := f.service(a.ServiceID)
		if !ok || !f.visible(s) {
			continue
		}
		out = append(out, models.ConfirmedDuty{At: s.StartsAt, MemberID: a.MemberID})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

func (f *fakeRepo) monthConfirmed(year, month int) []models.ConfirmedDuty {
	start, end := repository.MonthRange(year, month)
	var out []models.ConfirmedDuty
	for _, d := range f.confirmed() {
		if !d.At.Before(start) && d.At.Before(end) {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeRepo) MemberMonthConfirmed(_ context.Context, memberID uint, year, month int) ([]models.Assignment, error) {
	start, end := repository.MonthRange(year, month)
	var out []models.Assignment
	for _, a := range f.assignments {
		s, ok := f.service(a.ServiceID)
		if a.MemberID != memberID || a.Status != models.StatusConfirmed || !ok {
			continue
		}
		if s.StartsAt.Before(start) || !s.StartsAt.Before(end) {
			continue
		}
		a.Service = &s
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) MonthConfirmedCounts(_ context.Context, year, month int) (map[uint]int, error) {
	counts := make(map[uint]int)
	for _, d := range f.monthConfirmed(year, month) {
		counts[d.MemberID]++
	}
	return counts, nil
}

func (f *fakeRepo) MonthDayBlock(_ context.Context, year, month int) (map[models.Day]map[uint]struct{}, error) {
	block := make(map[models.Day]map[uint]struct{})
	for _, d := range f.monthConfirmed(year, month) {
		day := models.DayOf(d.At)
		if block[day] == nil {
			block[day] = make(map[uint]struct{})
		}
		block[day][d.MemberID] = struct{}{}
	}
	return block, nil
}

func (f *fakeRepo) BaselineLastConfirmed(ctx context.Context, before time.Time) (map[uint]*time.Time, error) {
	out := make(map[uint]*time.Time)
	for _, d := range f.confirmed() {
		if !d.At.Before(before) {
			continue
		}
		at := d.At
		if prev := out[d.MemberID]; prev == nil || at.After(*prev) {
			out[d.MemberID] = &at
		}
	}
	members, _ := f.ActiveMembers(ctx)
	for _, m := range members {
		if _, ok := out[m.ID]; !ok {
			out[m.ID] = nil
		}
	}
	return out, nil
}

func (f *fakeRepo) MonthConfirmedTimeline(_ context.Context, year, month int) ([]models.ConfirmedDuty, error) {
	return f.monthConfirmed(year, month), nil
}

func (f *fakeRepo) LockAssignments(_ context.Context, serviceIDs []uint) ([]models.Assignment, error) {
	var out []models.Assignment
	for _, id := range serviceIDs {
		out = append(out, f.rowsFor(id)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ServiceID != out[j].ServiceID {
			return out[i].ServiceID < out[j].ServiceID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) CreateAssignment(_ context.Context, a *models.Assignment) (bool, error) {
	for _, existing := range f.assignments {
		if existing.ServiceID == a.ServiceID && existing.MemberID == a.MemberID {
			return false, nil
		}
	}
	f.nextID++
	a.ID = f.nextID
	f.assignments = append(f.assignments, *a)
	f.creates++
	return true, nil
}

func (f *fakeRepo) CreateAssignments(ctx context.Context, rows []models.Assignment) (int, error) {
	n := 0
	for i := range rows {
		created, err := f.CreateAssignment(ctx, &rows[i])
		if err != nil {
			return n, err
		}
		if created {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) UpdateAssignment(_ context.Context, a *models.Assignment) error {
	for _, other := range f.assignments {
		if other.ID != a.ID && other.ServiceID == a.ServiceID && other.MemberID == a.MemberID {
			return fmt.Errorf("unique violation: service %d member %d", a.ServiceID, a.MemberID)
		}
	}
	for i := range f.assignments {
		if f.assignments[i].ID == a.ID {
			f.assignments[i].MemberID = a.MemberID
			f.assignments[i].Status = a.Status
			f.assignments[i].CreatedBy = a.CreatedBy
			f.updates++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepo) EnsureScheduleMonth(_ context.Context, year, month int, actor string) (bool, error) {
	key := [2]int{year, month}
	if _, ok := f.markers[key]; ok {
		return false, nil
	}
	f.markers[key] = actor
	return true, nil
}

func (f *fakeRepo) GetAssignment(_ context.Context, id uint) (*models.Assignment, error) {
	for _, a := range f.assignments {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) GetService(_ context.Context, id uint) (*models.Service, error) {
	s, ok := f.service(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Assignments = f.rowsFor(id)
	return &s, nil
}

func (f *fakeRepo) GetMember(_ context.Context, id uint) (*models.Member, error) {
	for _, m := range f.members {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) Transaction(_ context.Context, fn func(repository.Repository) error) error {
	saved := append([]models.Assignment(nil), f.assignments...)
	savedMarkers := make(map[[2]int]string, len(f.markers))
	for k, v := range f.markers {
		savedMarkers[k] = v
	}
	if err := fn(f); err != nil {
		f.assignments = saved
		f.markers = savedMarkers
		return err
	}
	return nil
}
