package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/hostel-system/internal/middleware"
	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
	"github.com/mmeshcher/hostel-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	student    *model.Student
	studentErr error

	menuEntries []model.MenuEntry
	menuErr     error

	attendanceRec *model.AttendanceRecord
	attendanceErr error

	bills    []model.Bill
	billsErr error

	settleErr error

	assignRoomErr error

	feePayment    *model.FeePayment
	feePaymentErr error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string, isStaff bool) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) CreateHostel(ctx context.Context, name string) (int64, error) { return 0, nil }

func (s *stubService) ListHostels(ctx context.Context) ([]model.Hostel, error) { return nil, nil }

func (s *stubService) CreateRoom(ctx context.Context, room model.Room) (int64, error) {
	return 0, nil
}

func (s *stubService) GetRoom(ctx context.Context, id int64) (*model.Room, error) { return nil, nil }

func (s *stubService) ListRooms(ctx context.Context, hostelID int64) ([]model.Room, error) {
	return nil, nil
}

func (s *stubService) CreateStudent(ctx context.Context, st model.Student) (int64, error) {
	return 0, nil
}

func (s *stubService) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return s.student, s.studentErr
}

func (s *stubService) GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error) {
	return s.student, s.studentErr
}

func (s *stubService) ListStudents(ctx context.Context) ([]model.Student, error) { return nil, nil }

func (s *stubService) AssignRoom(ctx context.Context, studentID, roomID int64) error {
	return s.assignRoomErr
}

func (s *stubService) ReleaseRoom(ctx context.Context, studentID int64) error { return nil }

func (s *stubService) GetFeeSummary(ctx context.Context, studentID int64) (*model.FeeSummary, error) {
	return &model.FeeSummary{}, nil
}

func (s *stubService) UpsertMenuEntry(ctx context.Context, e model.MenuEntry) (int64, error) {
	return 0, nil
}

func (s *stubService) AddMenuRange(ctx context.Context, from, to time.Time, weekday time.Weekday, slot model.MealSlot, dishName string, pricePaise int64) (int, error) {
	return 0, nil
}

func (s *stubService) GetMenu(ctx context.Context, from, to time.Time) ([]model.MenuEntry, error) {
	return s.menuEntries, s.menuErr
}

func (s *stubService) RecordAttendance(ctx context.Context, studentID int64, date time.Time, slot model.MealSlot, present bool) (*model.AttendanceRecord, error) {
	return s.attendanceRec, s.attendanceErr
}

func (s *stubService) MarkAttendanceByFingerprint(ctx context.Context, studentID int64, date time.Time, slot model.MealSlot) (*model.AttendanceRecord, error) {
	return s.attendanceRec, s.attendanceErr
}

func (s *stubService) GetAttendance(ctx context.Context, studentID int64, date time.Time) ([]model.AttendanceRecord, error) {
	return nil, nil
}

func (s *stubService) GenerateDailyBill(ctx context.Context, studentID int64, date time.Time) (*model.Bill, error) {
	if len(s.bills) > 0 {
		return &s.bills[0], s.billsErr
	}
	return &model.Bill{}, s.billsErr
}

func (s *stubService) GetBills(ctx context.Context, studentID int64) ([]model.Bill, error) {
	return s.bills, s.billsErr
}

func (s *stubService) GetPaymentRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.PaymentRequest, error) {
	return nil, nil
}

func (s *stubService) GetMessPayments(ctx context.Context, studentID int64) ([]model.MessPayment, error) {
	return nil, nil
}

func (s *stubService) ApprovePaymentRequest(ctx context.Context, requestID, adminID int64, note string) error {
	return s.settleErr
}

func (s *stubService) RejectPaymentRequest(ctx context.Context, requestID, adminID int64, note string) error {
	return s.settleErr
}

func (s *stubService) ApplyMembership(ctx context.Context, studentID int64, startDate, endDate time.Time) (int64, error) {
	return 0, nil
}

func (s *stubService) GetMembership(ctx context.Context, studentID int64) (*model.Membership, error) {
	return nil, repository.ErrMembershipNotFound
}

func (s *stubService) ProcessMembership(ctx context.Context, membershipID int64, approve bool) error {
	return nil
}

func (s *stubService) ListMemberships(ctx context.Context, status model.RequestStatus) ([]model.Membership, error) {
	return nil, nil
}

func (s *stubService) EnrollFingerprint(ctx context.Context, studentID int64) error { return nil }

func (s *stubService) RecordFeePayment(ctx context.Context, studentID int64, mode string) (*model.FeePayment, error) {
	return s.feePayment, s.feePaymentErr
}

func (s *stubService) ListFeePayments(ctx context.Context, studentID int64) ([]model.FeePayment, error) {
	return nil, nil
}

func (s *stubService) SubmitFeeRequest(ctx context.Context, fr model.FeeRequest) (int64, error) {
	return 0, nil
}

func (s *stubService) ListFeeRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.FeeRequest, error) {
	return nil, nil
}

func (s *stubService) ProcessFeeRequest(ctx context.Context, requestID int64, approve bool) error {
	return nil
}

func (s *stubService) PublishNotice(ctx context.Context, n model.Notice) (int64, error) {
	return 0, nil
}

func (s *stubService) ListNotices(ctx context.Context) ([]model.Notice, error) { return nil, nil }

func (s *stubService) IssueShowcaseNotice(ctx context.Context, n model.ShowcaseNotice, studentIDs []int64) (int64, error) {
	return 0, nil
}

func (s *stubService) ListShowcaseNotices(ctx context.Context, studentID int64) ([]repository.ShowcaseNoticeForStudent, error) {
	return nil, nil
}

func (s *stubService) MarkShowcaseNoticeRead(ctx context.Context, studentID, noticeID int64) error {
	return nil
}

func (s *stubService) MarkShowcaseNoticePaid(ctx context.Context, studentID, noticeID int64) error {
	return nil
}

func (s *stubService) RequestVisitor(ctx context.Context, v model.Visitor) (int64, error) {
	return 0, nil
}

func (s *stubService) ProcessVisitorRequest(ctx context.Context, requestID int64, approve bool) error {
	return nil
}

func (s *stubService) CheckInVisitor(ctx context.Context, requestID int64) error { return nil }

func (s *stubService) CheckOutVisitor(ctx context.Context, requestID int64) error { return nil }

func (s *stubService) ListVisitorRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.VisitorRequest, error) {
	return nil, nil
}

func (s *stubService) SubmitComplaint(ctx context.Context, c model.Complaint) (int64, error) {
	return 0, nil
}

func (s *stubService) ListComplaints(ctx context.Context) ([]model.Complaint, error) {
	return nil, nil
}

func (s *stubService) MarkComplaintRead(ctx context.Context, id int64) error { return nil }

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// authedRequest снабжает запрос действительным cookie авторизации.
func authedRequest(t *testing.T, h *Handler, method, target string, body io.Reader, userID int64, staff bool) *http.Request {
	t.Helper()

	w := httptest.NewRecorder()
	if err := h.authMiddleware.SetAuthCookie(w, userID, staff); err != nil {
		t.Fatalf("SetAuthCookie error: %v", err)
	}

	r := httptest.NewRequest(method, target, body)
	r.AddCookie(w.Result().Cookies()[0])
	return r
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("expected auth cookie to be set")
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "wrong"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGetMenu_ConvertsPaiseToRupees(t *testing.T) {
	svc := &stubService{
		menuEntries: []model.MenuEntry{
			{
				Date:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
				Slot:       model.MealLunch,
				DishName:   "dal chawal",
				PricePaise: 5050,
			},
		},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodGet, "/api/student/mess/menu", nil, 1, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var entries []menuEntryResponse
	if err := json.NewDecoder(res.Body).Decode(&entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Price != 50.50 {
		t.Fatalf("price = %v, want 50.50", entries[0].Price)
	}
	if entries[0].Slot != "LN" {
		t.Fatalf("slot = %s, want LN", entries[0].Slot)
	}
}

func TestGetBills_NoContent(t *testing.T) {
	svc := &stubService{
		student: &model.Student{ID: 1},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodGet, "/api/student/mess/bills", nil, 1, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}

func TestStudentRoutes_RequireAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/student/mess/bills", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAdminRoutes_ForbiddenForStudents(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodGet, "/api/admin/students", nil, 1, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}

func TestSettlePaymentRequest_ConflictWhenProcessed(t *testing.T) {
	svc := &stubService{
		settleErr: repository.ErrRequestProcessed,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodPost, "/api/admin/mess/requests/5/approve",
		bytes.NewReader([]byte(`{"note":"ok"}`)), 99, true)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestAssignRoom_ConflictWhenFull(t *testing.T) {
	svc := &stubService{
		assignRoomErr: repository.ErrRoomFull,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodPost, "/api/admin/students/1/room",
		bytes.NewReader([]byte(`{"room_id":3}`)), 99, true)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestMarkAttendanceByFingerprint_ForbiddenWithoutMembership(t *testing.T) {
	svc := &stubService{
		student:       &model.Student{ID: 1},
		attendanceErr: service.ErrMembershipInactive,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodPost, "/api/student/mess/attendance",
		bytes.NewReader([]byte(`{"slot":"LN"}`)), 1, false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRecordFeePayment_ConflictWhenAllPaid(t *testing.T) {
	svc := &stubService{
		feePaymentErr: service.ErrAllInstallmentsPaid,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := authedRequest(t, h, http.MethodPost, "/api/admin/fees/payments",
		bytes.NewReader([]byte(`{"student_id":1,"mode":"CASH"}`)), 99, true)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}
