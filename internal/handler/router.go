package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/hostel-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса управления общежитием.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/student", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/profile", h.GetProfile)
		r.Get("/fees/summary", h.GetFeeSummary)
		r.Get("/fees/payments", h.GetFeePayments)
		r.Post("/fees/requests", h.SubmitFeeRequest)
		r.Get("/fees/requests", h.GetFeeRequests)

		r.Get("/mess/menu", h.GetMenu)
		r.Post("/mess/membership", h.ApplyMembership)
		r.Get("/mess/membership", h.GetMembership)
		r.Post("/mess/fingerprint", h.EnrollFingerprint)
		r.Post("/mess/attendance", h.MarkAttendanceByFingerprint)
		r.Get("/mess/attendance", h.GetAttendance)
		r.Get("/mess/bills", h.GetBills)
		r.Get("/mess/requests", h.GetPaymentRequests)
		r.Get("/mess/payments", h.GetMessPayments)

		r.Get("/notices", h.ListNotices)
		r.Get("/showcase-notices", h.ListShowcaseNotices)
		r.Post("/showcase-notices/{id}/read", h.MarkShowcaseNoticeRead)
		r.Post("/visitors", h.RequestVisitor)
		r.Get("/visitors", h.GetVisitorRequests)
		r.Post("/complaints", h.SubmitComplaint)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RequireStaff)

		r.Post("/hostels", h.CreateHostel)
		r.Get("/hostels", h.ListHostels)
		r.Post("/rooms", h.CreateRoom)
		r.Get("/rooms", h.ListRooms)

		r.Post("/students", h.CreateStudent)
		r.Get("/students", h.ListStudents)
		r.Get("/students/{id}", h.GetStudent)
		r.Post("/students/{id}/room", h.AssignRoom)
		r.Delete("/students/{id}/room", h.ReleaseRoom)
		r.Get("/students/{id}/fees/summary", h.GetStudentFeeSummary)
		r.Get("/students/{id}/fees/payments", h.GetStudentFeePayments)
		r.Get("/students/{id}/bills", h.GetStudentBills)

		r.Post("/fees/payments", h.RecordFeePayment)
		r.Get("/fees/requests", h.ListFeeRequests)
		r.Post("/fees/requests/{id}/approve", h.ProcessFeeRequest(true))
		r.Post("/fees/requests/{id}/reject", h.ProcessFeeRequest(false))

		r.Post("/mess/menu", h.UpsertMenuEntry)
		r.Post("/mess/menu/range", h.AddMenuRange)
		r.Post("/mess/attendance", h.RecordAttendance)
		r.Post("/mess/bills/generate", h.GenerateBill)
		r.Get("/mess/requests", h.ListPaymentRequests)
		r.Post("/mess/requests/{id}/approve", h.SettlePaymentRequest(true))
		r.Post("/mess/requests/{id}/reject", h.SettlePaymentRequest(false))
		r.Get("/mess/memberships", h.ListMemberships)
		r.Post("/mess/memberships/{id}/approve", h.ProcessMembership(true))
		r.Post("/mess/memberships/{id}/reject", h.ProcessMembership(false))

		r.Post("/notices", h.PublishNotice)
		r.Post("/showcase-notices", h.IssueShowcaseNotice)
		r.Post("/showcase-notices/{id}/paid", h.MarkShowcaseNoticePaid)
		r.Get("/visitors", h.ListVisitorRequests)
		r.Post("/visitors/{id}/approve", h.ProcessVisitorRequest(true))
		r.Post("/visitors/{id}/reject", h.ProcessVisitorRequest(false))
		r.Post("/visitors/{id}/check-in", h.CheckInVisitor)
		r.Post("/visitors/{id}/check-out", h.CheckOutVisitor)
		r.Get("/complaints", h.ListComplaints)
		r.Post("/complaints/{id}/read", h.MarkComplaintRead)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
