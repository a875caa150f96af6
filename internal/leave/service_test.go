package leave_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/leave"
	"github.com/frahmantamala/leave-management/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockRepository keeps leave requests in insertion order.
type MockRepository struct {
	rows    []*leave.LeaveRequest
	err     error
	onWrite func()
}

func (m *MockRepository) Create(ctx context.Context, l *leave.LeaveRequest) error {
	if m.err != nil {
		return m.err
	}
	cp := *l
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, l := range m.rows {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, leave.ErrNotFound
}

func (m *MockRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*leave.LeaveRequest, error) {
	return m.List(ctx, leave.Query{EmployeeIDs: []string{employeeID}})
}

func (m *MockRepository) List(ctx context.Context, q leave.Query) ([]*leave.LeaveRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*leave.LeaveRequest{}
	for _, l := range m.rows {
		if q.EmployeeIDs != nil && !contains(q.EmployeeIDs, l.EmployeeID) {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockRepository) DeletePending(ctx context.Context, id, employeeID string) (bool, error) {
	if m.onWrite != nil {
		m.onWrite()
	}
	for i, l := range m.rows {
		if l.ID == id && l.EmployeeID == employeeID && l.Status == leave.StatusPending {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) TransitionStatus(ctx context.Context, id string, from, to leave.Status, at time.Time) (bool, error) {
	if m.onWrite != nil {
		m.onWrite()
	}
	for _, l := range m.rows {
		if l.ID == id && l.Status == from {
			l.Status = to
			l.UpdatedAt = at
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) add(id, employeeID string, status leave.Status) {
	day := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	m.rows = append(m.rows, &leave.LeaveRequest{
		ID: id, EmployeeID: employeeID, FromDate: day, ToDate: day,
		Type: leave.TypeSick, Reason: "flu", Status: status,
	})
}

func (m *MockRepository) status(id string) leave.Status {
	for _, l := range m.rows {
		if l.ID == id {
			return l.Status
		}
	}
	return ""
}

type MockUsers struct {
	users     map[string]*coreuser.User
	adminsErr error
}

func (m *MockUsers) GetByID(ctx context.Context, id string) (*coreuser.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

func (m *MockUsers) GetByIDs(ctx context.Context, ids []string) (map[string]*coreuser.User, error) {
	out := map[string]*coreuser.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *MockUsers) ListAdmins(ctx context.Context) ([]*coreuser.User, error) {
	if m.adminsErr != nil {
		return nil, m.adminsErr
	}
	var admins []*coreuser.User
	for _, u := range m.users {
		if u.IsAdmin() {
			admins = append(admins, u)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

func (m *MockUsers) SearchIDsByName(ctx context.Context, term string) ([]string, error) {
	ids := []string{}
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(term)) {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

type submitted struct {
	admins    []notification.Recipient
	applicant string
	details   notification.LeaveDetails
}

type MockNotifier struct {
	submitted []submitted
	changed   []notification.LeaveDetails
	owners    []notification.Recipient
	err       error
}

func (m *MockNotifier) LeaveSubmitted(ctx context.Context, admins []notification.Recipient, applicant string, d notification.LeaveDetails) error {
	m.submitted = append(m.submitted, submitted{admins: admins, applicant: applicant, details: d})
	return m.err
}

func (m *MockNotifier) LeaveStatusChanged(ctx context.Context, owner notification.Recipient, d notification.LeaveDetails) error {
	m.owners = append(m.owners, owner)
	m.changed = append(m.changed, d)
	return m.err
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var _ = Describe("Leave Service", func() {
	var (
		repo     *MockRepository
		users    *MockUsers
		notifier *MockNotifier
		service  *leave.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = &MockRepository{}
		users = &MockUsers{users: map[string]*coreuser.User{
			"emp-1":   {ID: "emp-1", Name: "Alice Smith", Email: "alice@example.com", Role: coreuser.RoleEmployee},
			"emp-2":   {ID: "emp-2", Name: "Bob Jones", Email: "bob@example.com", Role: coreuser.RoleEmployee},
			"admin-1": {ID: "admin-1", Name: "Carol", Email: "carol@example.com", Role: coreuser.RoleAdmin},
			"admin-2": {ID: "admin-2", Name: "Dan", Email: "dan@example.com", Role: coreuser.RoleAdmin},
		}}
		notifier = &MockNotifier{}
		service = leave.NewService(repo, users, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	Describe("Apply", func() {
		dto := leave.ApplyLeaveDTO{FromDate: "2025-06-02", ToDate: "2025-06-04", Type: "casual", Reason: "moving house"}

		It("persists a pending request and notifies every admin", func() {
			view, err := service.Apply(ctx, "emp-1", dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Status).To(Equal(leave.StatusPending))
			Expect(view.EmployeeID).To(Equal("emp-1"))
			Expect(view.Employee.Name).To(Equal("Alice Smith"))
			Expect(view.FromDate).To(Equal("2025-06-02"))
			Expect(repo.rows).To(HaveLen(1))

			Expect(notifier.submitted).To(HaveLen(1))
			Expect(notifier.submitted[0].applicant).To(Equal("Alice Smith"))
			Expect(notifier.submitted[0].admins).To(ConsistOf(
				notification.Recipient{Name: "Carol", Email: "carol@example.com"},
				notification.Recipient{Name: "Dan", Email: "dan@example.com"},
			))
			Expect(notifier.submitted[0].details.Reason).To(Equal("moving house"))
		})

		It("keeps the request when notification fails", func() {
			notifier.err = notification.ErrQueueFull
			_, err := service.Apply(ctx, "emp-1", dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.rows).To(HaveLen(1))
		})

		It("keeps the request when admins cannot be loaded", func() {
			users.adminsErr = errors.New("db down")
			_, err := service.Apply(ctx, "emp-1", dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.rows).To(HaveLen(1))
			Expect(notifier.submitted).To(BeEmpty())
		})

		It("rejects invalid input without persisting", func() {
			bad := dto
			bad.FromDate = "2025-06-05"
			_, err := service.Apply(ctx, "emp-1", bad)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(repo.rows).To(BeEmpty())
			Expect(notifier.submitted).To(BeEmpty())
		})

		It("wraps repository failures", func() {
			repo.err = errors.New("insert failed")
			_, err := service.Apply(ctx, "emp-1", dto)
			Expect(err).To(MatchError(ContainSubstring("insert failed")))
			_, isAppErr := internal.IsAppError(err)
			Expect(isAppErr).To(BeFalse())
		})
	})

	Describe("ListOwn", func() {
		It("returns only the actor's requests in insertion order", func() {
			repo.add("l-1", "emp-1", leave.StatusPending)
			repo.add("l-2", "emp-2", leave.StatusPending)
			repo.add("l-3", "emp-1", leave.StatusApproved)

			views, err := service.ListOwn(ctx, "emp-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))
			Expect(views[0].ID).To(Equal("l-1"))
			Expect(views[1].ID).To(Equal("l-3"))
			Expect(views[1].Employee).To(Equal(leave.EmployeeRef{ID: "emp-1", Name: "Alice Smith"}))
		})

		It("returns an empty list for a new employee", func() {
			views, err := service.ListOwn(ctx, "emp-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})
	})

	Describe("Cancel", func() {
		BeforeEach(func() {
			repo.add("l-1", "emp-1", leave.StatusPending)
			repo.add("l-2", "emp-1", leave.StatusApproved)
		})

		It("deletes a pending request once", func() {
			Expect(service.Cancel(ctx, "emp-1", "l-1")).To(Succeed())
			Expect(service.Cancel(ctx, "emp-1", "l-1")).To(MatchError(internal.ErrLeaveNotFound))
		})

		It("hides requests owned by someone else", func() {
			Expect(service.Cancel(ctx, "emp-2", "l-1")).To(MatchError(internal.ErrLeaveNotFound))
			Expect(repo.rows).To(HaveLen(2))
		})

		It("refuses to cancel a decided request", func() {
			Expect(service.Cancel(ctx, "emp-1", "l-2")).To(MatchError(internal.ErrLeaveNotPending))
		})

		It("reports not pending when an admin decides first", func() {
			repo.onWrite = func() { repo.rows[0].Status = leave.StatusRejected }
			Expect(service.Cancel(ctx, "emp-1", "l-1")).To(MatchError(internal.ErrLeaveNotPending))
			Expect(repo.status("l-1")).To(Equal(leave.StatusRejected))
		})
	})

	Describe("ListAll", func() {
		BeforeEach(func() {
			repo.add("l-1", "emp-1", leave.StatusPending)
			repo.add("l-2", "emp-2", leave.StatusApproved)
			repo.add("l-3", "emp-1", leave.StatusRejected)
		})

		ids := func(views []leave.LeaveView) []string {
			out := make([]string, len(views))
			for i, v := range views {
				out[i] = v.ID
			}
			return out
		}

		It("returns everything without filters", func() {
			views, err := service.ListAll(ctx, leave.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(views)).To(Equal([]string{"l-1", "l-2", "l-3"}))
			Expect(views[1].Employee.Name).To(Equal("Bob Jones"))
		})

		It("filters by employee and status", func() {
			views, err := service.ListAll(ctx, leave.ListFilter{EmployeeID: "emp-1", Status: "rejected"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(views)).To(Equal([]string{"l-3"}))
		})

		It("searches employee names ignoring case", func() {
			views, err := service.ListAll(ctx, leave.ListFilter{Search: "ALICE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(views)).To(Equal([]string{"l-1", "l-3"}))
		})

		It("intersects search with the employee filter", func() {
			views, err := service.ListAll(ctx, leave.ListFilter{Search: "bob", EmployeeID: "emp-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})

		It("returns an empty list when no name matches", func() {
			views, err := service.ListAll(ctx, leave.ListFilter{Search: "zed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).NotTo(BeNil())
			Expect(views).To(BeEmpty())
		})

		It("rejects an unknown status", func() {
			_, err := service.ListAll(ctx, leave.ListFilter{Status: "Cancelled"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("UpdateStatus", func() {
		BeforeEach(func() {
			repo.add("l-1", "emp-1", leave.StatusPending)
		})

		It("approves a pending request and notifies the owner", func() {
			view, err := service.UpdateStatus(ctx, "l-1", leave.UpdateStatusDTO{Status: "Approved"})
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Status).To(Equal(leave.StatusApproved))
			Expect(repo.status("l-1")).To(Equal(leave.StatusApproved))

			Expect(notifier.owners).To(Equal([]notification.Recipient{{Name: "Alice Smith", Email: "alice@example.com"}}))
			Expect(notifier.changed[0].Status).To(Equal("Approved"))
			Expect(notifier.changed[0].Type).To(Equal("sick"))
		})

		It("refuses a second decision", func() {
			_, err := service.UpdateStatus(ctx, "l-1", leave.UpdateStatusDTO{Status: "Rejected"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.UpdateStatus(ctx, "l-1", leave.UpdateStatusDTO{Status: "Approved"})
			Expect(err).To(MatchError(internal.ErrLeaveFinalized))
			Expect(repo.status("l-1")).To(Equal(leave.StatusRejected))
			Expect(notifier.changed).To(HaveLen(1))
		})

		It("loses a race against a concurrent decision", func() {
			repo.onWrite = func() { repo.rows[0].Status = leave.StatusRejected }
			_, err := service.UpdateStatus(ctx, "l-1", leave.UpdateStatusDTO{Status: "Approved"})
			Expect(err).To(MatchError(internal.ErrLeaveFinalized))
			Expect(repo.status("l-1")).To(Equal(leave.StatusRejected))
			Expect(notifier.changed).To(BeEmpty())
		})

		It("reports a missing request", func() {
			_, err := service.UpdateStatus(ctx, "nope", leave.UpdateStatusDTO{Status: "Approved"})
			Expect(err).To(MatchError(internal.ErrLeaveNotFound))
		})

		It("validates the target status before touching storage", func() {
			_, err := service.UpdateStatus(ctx, "l-1", leave.UpdateStatusDTO{Status: "Pending"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(repo.status("l-1")).To(Equal(leave.StatusPending))
		})

		It("still succeeds when the notification cannot be queued", func() {
			notifier.err = notification.ErrQueueFull
			_, err := service.UpdateStatus(ctx, "l-1", leave.UpdateStatusDTO{Status: "Rejected"})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
