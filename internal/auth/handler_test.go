package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/leave-management/internal"
	coreuser "github.com/frahmantamala/leave-management/internal/core/user"
	"github.com/frahmantamala/leave-management/internal/transport"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("Auth HTTP layer", func() {
	var (
		mockRepo *mockCredentialRepository
		tokenGen *JWTTokenGenerator
		service  *Service
		handler  *Handler
		rbac     *RBACAuthorization
		router   *chi.Mux
	)

	ok := func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]string{"userId": actor.UserID, "ctxUser": internal.UserIDFromContext(r.Context())})
	}

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			gomega.Expect(json.NewEncoder(&buf).Encode(body)).To(gomega.Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decodeError := func(w *httptest.ResponseRecorder) transport.ErrorResponse {
		var resp transport.ErrorResponse
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		return resp
	}

	ginkgo.BeforeEach(func() {
		mockRepo = newMockCredentialRepository()
		tokenGen = NewJWTTokenGenerator(testSecret, time.Hour)
		service = NewService(mockRepo, tokenGen, NewMemoryTokenStore(), &mockNotifier{}, bcrypt.MinCost, discardLogger())
		handler = NewHandler(service)
		handler.Logger = discardLogger()
		rbac = NewRBACAuthorization(discardLogger())

		router = chi.NewRouter()
		router.Post("/auth/register", handler.Register)
		router.Post("/auth/login", handler.Login)
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Post("/auth/logout", handler.Logout)
			r.With(rbac.Require(OpListOwnLeaves)).Get("/leaves", ok)
			r.With(rbac.Require(OpListAllLeaves)).Get("/admin/leaves", ok)
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create the account and answer 201", func() {
			w := do(http.MethodPost, "/auth/register", "", RegisterDTO{Name: "Alice", Email: "alice@example.com", Password: "pw"})

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusCreated))
			var resp RegisterResponse
			gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
			gomega.Expect(resp.Message).To(gomega.Equal("Registration successful"))
			gomega.Expect(resp.User.Role).To(gomega.Equal(coreuser.RoleEmployee))
		})

		ginkgo.It("should answer 409 for a taken email", func() {
			mockRepo.addUser("u-1", "Alice", "alice@example.com", "pw", coreuser.RoleEmployee)

			w := do(http.MethodPost, "/auth/register", "", RegisterDTO{Name: "Alice", Email: "alice@example.com", Password: "pw"})

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusConflict))
			gomega.Expect(decodeError(w).Message).To(gomega.Equal("User already exists"))
		})

		ginkgo.It("should answer 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("Login", func() {
		ginkgo.BeforeEach(func() {
			mockRepo.addUser("u-1", "Alice", "alice@example.com", "pw123", coreuser.RoleEmployee)
		})

		ginkgo.It("should return the token and user summary", func() {
			w := do(http.MethodPost, "/auth/login", "", LoginDTO{Email: "alice@example.com", Password: "pw123", Role: "employee"})

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(w.Body.String()).ToNot(gomega.ContainSubstring("passwordHash"))
			var resp LoginResponse
			gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(resp.User.ID).To(gomega.Equal("u-1"))
		})

		ginkgo.It("should answer 400 with a generic message on bad credentials", func() {
			w := do(http.MethodPost, "/auth/login", "", LoginDTO{Email: "alice@example.com", Password: "bad", Role: "employee"})

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(decodeError(w).Message).To(gomega.Equal("Invalid credentials"))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		ginkgo.It("should answer 401 when no token is sent", func() {
			w := do(http.MethodGet, "/leaves", "", nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(w).Message).To(gomega.Equal("No token provided, please log in"))
		})

		ginkgo.It("should answer 401 for an expired token", func() {
			tokenGen.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
			issued, _ := tokenGen.GenerateAccessToken("u-1", coreuser.RoleEmployee)
			tokenGen.now = time.Now

			w := do(http.MethodGet, "/leaves", issued.Token, nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(w).Message).To(gomega.Equal("Token expired, please log in again"))
		})

		ginkgo.It("should answer 401 for a tampered token", func() {
			issued, _ := tokenGen.GenerateAccessToken("u-1", coreuser.RoleEmployee)

			w := do(http.MethodGet, "/leaves", issued.Token+"x", nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(w).Message).To(gomega.Equal("Invalid token, please log in again"))
		})

		ginkgo.It("should put the actor in the context", func() {
			issued, _ := tokenGen.GenerateAccessToken("u-1", coreuser.RoleEmployee)

			w := do(http.MethodGet, "/leaves", issued.Token, nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			var body map[string]string
			gomega.Expect(json.NewDecoder(w.Body).Decode(&body)).To(gomega.Succeed())
			gomega.Expect(body).To(gomega.Equal(map[string]string{"userId": "u-1", "ctxUser": "u-1"}))
		})
	})

	ginkgo.Describe("RBACAuthorization", func() {
		ginkgo.It("should answer 403 when an employee calls an admin route", func() {
			issued, _ := tokenGen.GenerateAccessToken("u-1", coreuser.RoleEmployee)

			w := do(http.MethodGet, "/admin/leaves", issued.Token, nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should answer 403 when an admin calls an employee route", func() {
			issued, _ := tokenGen.GenerateAccessToken("u-2", coreuser.RoleAdmin)

			w := do(http.MethodGet, "/leaves", issued.Token, nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		})

		ginkgo.It("should let an admin through to admin routes", func() {
			issued, _ := tokenGen.GenerateAccessToken("u-2", coreuser.RoleAdmin)

			w := do(http.MethodGet, "/admin/leaves", issued.Token, nil)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should answer 401 when used without the auth middleware", func() {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			rbac.Require(OpListAllLeaves)(http.HandlerFunc(ok)).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should answer 204 and reject the token afterwards", func() {
			issued, _ := tokenGen.GenerateAccessToken("u-1", coreuser.RoleEmployee)

			w := do(http.MethodPost, "/auth/logout", issued.Token, nil)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))

			w = do(http.MethodGet, "/leaves", issued.Token, nil)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})

var _ = ginkgo.Describe("Can", func() {
	ginkgo.DescribeTable("role to operation policy",
		func(role coreuser.Role, op Operation, allowed bool) {
			gomega.Expect(Can(role, op)).To(gomega.Equal(allowed))
		},
		ginkgo.Entry("employee applies", coreuser.RoleEmployee, OpApplyLeave, true),
		ginkgo.Entry("employee lists own", coreuser.RoleEmployee, OpListOwnLeaves, true),
		ginkgo.Entry("employee cancels", coreuser.RoleEmployee, OpCancelLeave, true),
		ginkgo.Entry("employee lists all", coreuser.RoleEmployee, OpListAllLeaves, false),
		ginkgo.Entry("employee decides", coreuser.RoleEmployee, OpUpdateLeaveStatus, false),
		ginkgo.Entry("admin lists all", coreuser.RoleAdmin, OpListAllLeaves, true),
		ginkgo.Entry("admin decides", coreuser.RoleAdmin, OpUpdateLeaveStatus, true),
		ginkgo.Entry("admin applies", coreuser.RoleAdmin, OpApplyLeave, false),
		ginkgo.Entry("unknown role", coreuser.Role("owner"), OpListOwnLeaves, false),
	)
})

var _ = ginkgo.Describe("ActorFromContext", func() {
	ginkgo.It("should report a missing actor", func() {
		_, ok := ActorFromContext(context.Background())
		gomega.Expect(ok).To(gomega.BeFalse())
	})
})
