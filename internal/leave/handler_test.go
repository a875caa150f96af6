package leave_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/leave-management/internal"
	leaveDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/leave"
	userDatamodel "github.com/frahmantamala/leave-management/internal/core/datamodel/user"
	"github.com/frahmantamala/leave-management/internal/leave"
	leavePostgres "github.com/frahmantamala/leave-management/internal/leave/postgres"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/frahmantamala/leave-management/internal/user"
	userPostgres "github.com/frahmantamala/leave-management/internal/user/postgres"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Leave Handler Integration", func() {
	var (
		router   chi.Router
		notifier *MockNotifier
	)

	// asUser stands in for the auth middleware.
	asUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				r = r.WithContext(internal.ContextWithUserID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}

	do := func(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(payload)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if userID != "" {
			req.Header.Set("X-Test-User", userID)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	apply := func(userID string) leave.LeaveView {
		w := do(http.MethodPost, "/leaves", userID, map[string]string{
			"fromDate": "2025-07-01", "toDate": "2025-07-03", "type": "annual", "reason": "holiday",
		})
		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp leave.LeaveResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		return resp.Leave
	}

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &leaveDatamodel.LeaveRequest{})).To(Succeed())

		for _, u := range []*userDatamodel.User{
			{ID: "emp-1", Name: "Alice Smith", Email: "alice@example.com", PasswordHash: "x", Role: "employee"},
			{ID: "emp-2", Name: "Bob Jones", Email: "bob@example.com", PasswordHash: "x", Role: "employee"},
			{ID: "admin-1", Name: "Carol", Email: "carol@example.com", PasswordHash: "x", Role: "admin"},
		} {
			Expect(db.Create(u).Error).To(Succeed())
		}

		notifier = &MockNotifier{}
		users := user.NewService(userPostgres.NewUserRepository(db))
		service := leave.NewService(leavePostgres.NewLeaveRepository(db), users, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
		handler := leave.NewHandler(service)

		router = chi.NewRouter()
		router.Use(asUser)
		router.Get("/leaves", handler.GetMyLeaves)
		router.Post("/leaves", handler.ApplyLeave)
		router.Delete("/leaves/{id}", handler.CancelLeave)
		router.Get("/admin/leaves", handler.ListAllLeaves)
		router.Put("/admin/leaves/{id}/status", handler.UpdateLeaveStatus)
	})

	It("applies and lists the employee's own leaves", func() {
		created := apply("emp-1")
		Expect(created.Status).To(Equal(leave.StatusPending))
		Expect(created.Employee.Name).To(Equal("Alice Smith"))
		Expect(notifier.submitted).To(HaveLen(1))
		Expect(notifier.submitted[0].admins[0].Email).To(Equal("carol@example.com"))

		w := do(http.MethodGet, "/leaves", "emp-1", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var views []leave.LeaveView
		Expect(json.Unmarshal(w.Body.Bytes(), &views)).To(Succeed())
		Expect(views).To(HaveLen(1))
		Expect(views[0].ID).To(Equal(created.ID))
		Expect(views[0].FromDate).To(Equal("2025-07-01"))

		w = do(http.MethodGet, "/leaves", "emp-2", nil)
		Expect(w.Body.String()).To(MatchJSON(`[]`))
	})

	It("returns 400 with the validation message", func() {
		w := do(http.MethodPost, "/leaves", "emp-1", map[string]string{
			"fromDate": "2025-07-05", "toDate": "2025-07-03", "type": "annual", "reason": "holiday",
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var resp transport.ErrorResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Message).To(Equal("From date must be before to date"))
	})

	It("returns 400 for an empty body", func() {
		req := httptest.NewRequest(http.MethodPost, "/leaves", nil)
		req.Header.Set("X-Test-User", "emp-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 without an actor", func() {
		w := do(http.MethodGet, "/leaves", "", nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("cancels a pending leave and then reports it missing", func() {
		created := apply("emp-1")

		w := do(http.MethodDelete, "/leaves/"+created.ID, "emp-2", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))

		w = do(http.MethodDelete, "/leaves/"+created.ID, "emp-1", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"message":"Leave cancelled successfully"}`))

		w = do(http.MethodDelete, "/leaves/"+created.ID, "emp-1", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("decides a leave once and blocks cancellation afterwards", func() {
		created := apply("emp-1")

		w := do(http.MethodPut, "/admin/leaves/"+created.ID+"/status", "admin-1", map[string]string{"status": "Approved"})
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp leave.LeaveResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Message).To(Equal("Leave Approved successfully"))
		Expect(resp.Leave.Status).To(Equal(leave.StatusApproved))
		Expect(notifier.owners[0].Email).To(Equal("alice@example.com"))

		w = do(http.MethodPut, "/admin/leaves/"+created.ID+"/status", "admin-1", map[string]string{"status": "Rejected"})
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = do(http.MethodDelete, "/leaves/"+created.ID, "emp-1", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("Cannot cancel non-pending leave"))
	})

	It("returns 404 when deciding an unknown leave", func() {
		w := do(http.MethodPut, "/admin/leaves/missing/status", "admin-1", map[string]string{"status": "Rejected"})
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("filters the admin listing", func() {
		apply("emp-1")
		second := apply("emp-2")
		do(http.MethodPut, "/admin/leaves/"+second.ID+"/status", "admin-1", map[string]string{"status": "Rejected"})

		var views []leave.LeaveView
		w := do(http.MethodGet, "/admin/leaves?search=bob", "admin-1", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(json.Unmarshal(w.Body.Bytes(), &views)).To(Succeed())
		Expect(views).To(HaveLen(1))
		Expect(views[0].Employee.Name).To(Equal("Bob Jones"))

		w = do(http.MethodGet, "/admin/leaves?status=Pending", "admin-1", nil)
		Expect(json.Unmarshal(w.Body.Bytes(), &views)).To(Succeed())
		Expect(views).To(HaveLen(1))
		Expect(views[0].EmployeeID).To(Equal("emp-1"))

		w = do(http.MethodGet, "/admin/leaves?status=bogus", "admin-1", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
