// Package handler содержит HTTP-обработчики API сервиса управления общежитием.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/hostel-system/internal/middleware"
	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
	"github.com/mmeshcher/hostel-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string, isStaff bool) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)

	CreateHostel(ctx context.Context, name string) (int64, error)
	ListHostels(ctx context.Context) ([]model.Hostel, error)
	CreateRoom(ctx context.Context, room model.Room) (int64, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	ListRooms(ctx context.Context, hostelID int64) ([]model.Room, error)
	CreateStudent(ctx context.Context, st model.Student) (int64, error)
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	AssignRoom(ctx context.Context, studentID, roomID int64) error
	ReleaseRoom(ctx context.Context, studentID int64) error
	GetFeeSummary(ctx context.Context, studentID int64) (*model.FeeSummary, error)

	UpsertMenuEntry(ctx context.Context, e model.MenuEntry) (int64, error)
	AddMenuRange(ctx context.Context, from, to time.Time, weekday time.Weekday, slot model.MealSlot, dishName string, pricePaise int64) (int, error)
	GetMenu(ctx context.Context, from, to time.Time) ([]model.MenuEntry, error)
	RecordAttendance(ctx context.Context, studentID int64, date time.Time, slot model.MealSlot, present bool) (*model.AttendanceRecord, error)
	MarkAttendanceByFingerprint(ctx context.Context, studentID int64, date time.Time, slot model.MealSlot) (*model.AttendanceRecord, error)
	GetAttendance(ctx context.Context, studentID int64, date time.Time) ([]model.AttendanceRecord, error)
	GenerateDailyBill(ctx context.Context, studentID int64, date time.Time) (*model.Bill, error)
	GetBills(ctx context.Context, studentID int64) ([]model.Bill, error)
	GetPaymentRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.PaymentRequest, error)
	GetMessPayments(ctx context.Context, studentID int64) ([]model.MessPayment, error)
	ApprovePaymentRequest(ctx context.Context, requestID, adminID int64, note string) error
	RejectPaymentRequest(ctx context.Context, requestID, adminID int64, note string) error
	ApplyMembership(ctx context.Context, studentID int64, startDate, endDate time.Time) (int64, error)
	GetMembership(ctx context.Context, studentID int64) (*model.Membership, error)
	ProcessMembership(ctx context.Context, membershipID int64, approve bool) error
	ListMemberships(ctx context.Context, status model.RequestStatus) ([]model.Membership, error)
	EnrollFingerprint(ctx context.Context, studentID int64) error

	RecordFeePayment(ctx context.Context, studentID int64, mode string) (*model.FeePayment, error)
	ListFeePayments(ctx context.Context, studentID int64) ([]model.FeePayment, error)
	SubmitFeeRequest(ctx context.Context, fr model.FeeRequest) (int64, error)
	ListFeeRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.FeeRequest, error)
	ProcessFeeRequest(ctx context.Context, requestID int64, approve bool) error

	PublishNotice(ctx context.Context, n model.Notice) (int64, error)
	ListNotices(ctx context.Context) ([]model.Notice, error)
	IssueShowcaseNotice(ctx context.Context, n model.ShowcaseNotice, studentIDs []int64) (int64, error)
	ListShowcaseNotices(ctx context.Context, studentID int64) ([]repository.ShowcaseNoticeForStudent, error)
	MarkShowcaseNoticeRead(ctx context.Context, studentID, noticeID int64) error
	MarkShowcaseNoticePaid(ctx context.Context, studentID, noticeID int64) error
	RequestVisitor(ctx context.Context, v model.Visitor) (int64, error)
	ProcessVisitorRequest(ctx context.Context, requestID int64, approve bool) error
	CheckInVisitor(ctx context.Context, requestID int64) error
	CheckOutVisitor(ctx context.Context, requestID int64) error
	ListVisitorRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.VisitorRequest, error)
	SubmitComplaint(ctx context.Context, c model.Complaint) (int64, error)
	ListComplaints(ctx context.Context) ([]model.Complaint, error)
	MarkComplaintRead(ctx context.Context, id int64) error
}

// Handler реализует HTTP-обработчики API сервиса управления общежитием.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// Суммы в API передаются в рупиях, внутри хранятся в пайсах.
func paiseToRupees(p int64) float64 {
	return float64(p) / 100
}

func rupeesToPaise(r float64) int64 {
	return int64(math.Round(r * 100))
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// currentStudent возвращает студента, привязанного к учётной записи из контекста.
func (h *Handler) currentStudent(w http.ResponseWriter, r *http.Request) (*model.Student, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}

	st, err := h.service.GetStudentByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return nil, false
		}
		h.logger.Error("resolve student error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}

	return st, true
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, userID, false); err != nil {
		h.logger.Error("set auth cookie error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.authMiddleware.SetAuthCookie(w, user.ID, user.IsStaff); err != nil {
		h.logger.Error("set auth cookie error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type studentResponse struct {
	ID                 int64  `json:"id"`
	RegistrationNumber string `json:"registration_number"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	FatherName         string `json:"father_name,omitempty"`
	Department         string `json:"department,omitempty"`
	ContactInfo        string `json:"contact_info,omitempty"`
	Address            string `json:"address,omitempty"`
	RoomID             *int64 `json:"room_id,omitempty"`
	HostelID           *int64 `json:"hostel_id,omitempty"`
}

func toStudentResponse(st *model.Student) studentResponse {
	return studentResponse{
		ID:                 st.ID,
		RegistrationNumber: st.RegistrationNumber,
		FirstName:          st.FirstName,
		LastName:           st.LastName,
		FatherName:         st.FatherName,
		Department:         st.Department,
		ContactInfo:        st.ContactInfo,
		Address:            st.Address,
		RoomID:             st.RoomID,
		HostelID:           st.HostelID,
	}
}

// GetProfile возвращает профиль текущего студента.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, toStudentResponse(st))
}
