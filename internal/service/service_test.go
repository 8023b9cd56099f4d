package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/hostel-system/internal/device"
	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
)

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

// stubRepo реализует Repository для модульных тестов сервиса.
type stubRepo struct {
	createUserID  int64
	createUserErr error

	getUser    *model.User
	getUserErr error

	student    *model.Student
	studentErr error
	room       *model.Room
	roomErr    error

	menuEntry    *model.MenuEntry
	menuEntryErr error

	membership    *model.Membership
	membershipErr error
	fingerprint   *model.Fingerprint

	attendance       []model.AttendanceRecord
	presentDays      int
	countFrom        time.Time
	countTo          time.Time
	pendingMilestone bool
	unpaidBills      []model.Bill
	billsByIDs       []model.Bill

	upsertedBill      *model.Bill
	upsertedBillTotal int64

	createdRequest      *model.PaymentRequest
	createdRequestBills []int64
	createRequestErr    error

	paymentRequest    *model.PaymentRequest
	paymentRequestErr error

	settledStatus   model.RequestStatus
	settledBillIDs  []int64
	settledPayments []model.MessPayment

	feePayments    []model.FeePayment
	feePaymentsSum int64
	feeRequest     *model.FeeRequest
	settledFee     *model.FeePayment
	settledFeeStat model.RequestStatus
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte, isStaff bool) (int64, error) {
	return s.createUserID, s.createUserErr
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) CreateHostel(ctx context.Context, name string) (int64, error) { return 0, nil }

func (s *stubRepo) ListHostels(ctx context.Context) ([]model.Hostel, error) { return nil, nil }

func (s *stubRepo) CreateRoom(ctx context.Context, room model.Room) (int64, error) { return 0, nil }

func (s *stubRepo) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	return s.room, s.roomErr
}

func (s *stubRepo) ListRooms(ctx context.Context, hostelID int64) ([]model.Room, error) {
	return nil, nil
}

func (s *stubRepo) CreateStudent(ctx context.Context, st model.Student) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return s.student, s.studentErr
}

func (s *stubRepo) GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error) {
	return s.student, s.studentErr
}

func (s *stubRepo) ListStudents(ctx context.Context) ([]model.Student, error) { return nil, nil }

func (s *stubRepo) AssignRoom(ctx context.Context, studentID, roomID int64) error { return nil }

func (s *stubRepo) ReleaseRoom(ctx context.Context, studentID int64) error { return nil }

func (s *stubRepo) UpsertMenuEntry(ctx context.Context, e model.MenuEntry) (int64, error) {
	return 0, nil
}

func (s *stubRepo) FindMenuEntry(ctx context.Context, date time.Time, slot model.MealSlot) (*model.MenuEntry, error) {
	if s.menuEntryErr != nil {
		return nil, s.menuEntryErr
	}
	if s.menuEntry == nil {
		return nil, repository.ErrMenuEntryNotFound
	}
	return s.menuEntry, nil
}

func (s *stubRepo) ListMenu(ctx context.Context, from, to time.Time) ([]model.MenuEntry, error) {
	return nil, nil
}

func (s *stubRepo) CreateMembership(ctx context.Context, m model.Membership) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetMembership(ctx context.Context, studentID int64) (*model.Membership, error) {
	if s.membershipErr != nil {
		return nil, s.membershipErr
	}
	if s.membership == nil {
		return nil, repository.ErrMembershipNotFound
	}
	return s.membership, nil
}

func (s *stubRepo) ProcessMembership(ctx context.Context, membershipID int64, status model.RequestStatus, active bool) error {
	return nil
}

func (s *stubRepo) ListMembershipsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Membership, error) {
	return nil, nil
}

func (s *stubRepo) ListActiveMemberIDs(ctx context.Context) ([]int64, error) { return nil, nil }

func (s *stubRepo) SaveFingerprint(ctx context.Context, studentID int64, template []byte) error {
	return nil
}

func (s *stubRepo) GetFingerprint(ctx context.Context, studentID int64) (*model.Fingerprint, error) {
	if s.fingerprint == nil {
		return nil, repository.ErrFingerprintNotFound
	}
	return s.fingerprint, nil
}

func (s *stubRepo) UpsertAttendance(ctx context.Context, rec model.AttendanceRecord) (*model.AttendanceRecord, error) {
	out := rec
	out.MarkedAt = time.Now()
	s.attendance = append(s.attendance, out)
	return &out, nil
}

func (s *stubRepo) GetAttendanceByDate(ctx context.Context, studentID int64, date time.Time) ([]model.AttendanceRecord, error) {
	return s.attendance, nil
}

func (s *stubRepo) CountPresentDays(ctx context.Context, studentID int64, from, to time.Time) (int, error) {
	s.countFrom = from
	s.countTo = to
	return s.presentDays, nil
}

func (s *stubRepo) UpsertBillAmount(ctx context.Context, studentID int64, date time.Time, amountPaise int64) (*model.Bill, error) {
	s.upsertedBillTotal = amountPaise
	bill := &model.Bill{StudentID: studentID, BillDate: date, AmountDuePaise: amountPaise}
	s.upsertedBill = bill
	return bill, nil
}

func (s *stubRepo) GetBillsByStudent(ctx context.Context, studentID int64) ([]model.Bill, error) {
	return nil, nil
}

func (s *stubRepo) GetUnpaidBills(ctx context.Context, studentID int64) ([]model.Bill, error) {
	return s.unpaidBills, nil
}

func (s *stubRepo) GetBillsByIDs(ctx context.Context, ids []int64) ([]model.Bill, error) {
	return s.billsByIDs, nil
}

func (s *stubRepo) HasPendingMilestoneRequest(ctx context.Context, studentID int64, milestoneDays int) (bool, error) {
	return s.pendingMilestone, nil
}

func (s *stubRepo) CreatePaymentRequest(ctx context.Context, req model.PaymentRequest, billIDs []int64) (int64, error) {
	if s.createRequestErr != nil {
		return 0, s.createRequestErr
	}
	s.createdRequest = &req
	s.createdRequestBills = billIDs
	return 1, nil
}

func (s *stubRepo) GetPaymentRequest(ctx context.Context, id int64) (*model.PaymentRequest, error) {
	if s.paymentRequestErr != nil {
		return nil, s.paymentRequestErr
	}
	if s.paymentRequest == nil {
		return nil, repository.ErrRequestNotFound
	}
	return s.paymentRequest, nil
}

func (s *stubRepo) ListPaymentRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.PaymentRequest, error) {
	return nil, nil
}

func (s *stubRepo) SettlePaymentRequest(ctx context.Context, requestID, adminID int64, status model.RequestStatus, note string, billIDs []int64, payments []model.MessPayment) error {
	s.settledStatus = status
	s.settledBillIDs = billIDs
	s.settledPayments = payments
	return nil
}

func (s *stubRepo) ListMessPayments(ctx context.Context, studentID int64) ([]model.MessPayment, error) {
	return nil, nil
}

func (s *stubRepo) CreateFeePayment(ctx context.Context, p model.FeePayment) (int64, error) {
	s.feePayments = append(s.feePayments, p)
	return int64(len(s.feePayments)), nil
}

func (s *stubRepo) ListFeePayments(ctx context.Context, studentID int64) ([]model.FeePayment, error) {
	return s.feePayments, nil
}

func (s *stubRepo) SumFeePayments(ctx context.Context, studentID int64) (int64, error) {
	return s.feePaymentsSum, nil
}

func (s *stubRepo) CreateFeeRequest(ctx context.Context, fr model.FeeRequest) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetFeeRequest(ctx context.Context, id int64) (*model.FeeRequest, error) {
	if s.feeRequest == nil {
		return nil, repository.ErrRequestNotFound
	}
	return s.feeRequest, nil
}

func (s *stubRepo) ListFeeRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.FeeRequest, error) {
	return nil, nil
}

func (s *stubRepo) SettleFeeRequest(ctx context.Context, requestID int64, status model.RequestStatus, payment *model.FeePayment) error {
	s.settledFeeStat = status
	s.settledFee = payment
	return nil
}

func (s *stubRepo) CreateNotice(ctx context.Context, n model.Notice) (int64, error) { return 0, nil }

func (s *stubRepo) ListActiveNotices(ctx context.Context) ([]model.Notice, error) { return nil, nil }

func (s *stubRepo) CreateShowcaseNotice(ctx context.Context, n model.ShowcaseNotice, studentIDs []int64) (int64, error) {
	return 0, nil
}

func (s *stubRepo) ListShowcaseNoticesForStudent(ctx context.Context, studentID int64) ([]repository.ShowcaseNoticeForStudent, error) {
	return nil, nil
}

func (s *stubRepo) MarkShowcaseNoticeRead(ctx context.Context, studentID, noticeID int64) error {
	return nil
}

func (s *stubRepo) MarkShowcaseNoticePaid(ctx context.Context, studentID, noticeID int64) error {
	return nil
}

func (s *stubRepo) CreateVisitor(ctx context.Context, v model.Visitor) (int64, int64, error) {
	return 0, 0, nil
}

func (s *stubRepo) ProcessVisitorRequest(ctx context.Context, requestID int64, status model.RequestStatus) error {
	return nil
}

func (s *stubRepo) SetVisitorTimes(ctx context.Context, requestID int64, timeIn, timeOut *time.Time) error {
	return nil
}

func (s *stubRepo) ListVisitorRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.VisitorRequest, error) {
	return nil, nil
}

func (s *stubRepo) CreateComplaint(ctx context.Context, c model.Complaint) (int64, error) {
	return 0, nil
}

func (s *stubRepo) ListComplaints(ctx context.Context) ([]model.Complaint, error) { return nil, nil }

func (s *stubRepo) MarkComplaintRead(ctx context.Context, id int64) error { return nil }

// stubDevice реализует DeviceClient для тестов.
type stubDevice struct {
	result *device.CaptureResult
	err    error
}

func (d *stubDevice) Capture(ctx context.Context) (*device.CaptureResult, error) {
	return d.result, d.err
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	svc := NewService(repo, nil, nil, 21)

	_, err := svc.RegisterUser(context.Background(), "login", "pass", false)
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	hashed := hashPassword("user", "correct")
	repo := &stubRepo{
		getUser: &model.User{
			ID:           1,
			Login:        "user",
			PasswordHash: hashed,
		},
	}

	svc := NewService(repo, nil, nil, 21)

	_, err := svc.AuthenticateUser(context.Background(), "user", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUser_UnknownUser(t *testing.T) {
	repo := &stubRepo{
		getUserErr: repository.ErrUserNotFound,
	}

	svc := NewService(repo, nil, nil, 21)

	_, err := svc.AuthenticateUser(context.Background(), "ghost", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUser_Success(t *testing.T) {
	hashed := hashPassword("staff", "secret")
	repo := &stubRepo{
		getUser: &model.User{
			ID:           7,
			Login:        "staff",
			PasswordHash: hashed,
			IsStaff:      true,
		},
	}

	svc := NewService(repo, nil, nil, 21)

	u, err := svc.AuthenticateUser(context.Background(), "staff", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != 7 || !u.IsStaff {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestSweepDue(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		lastRun time.Time
		want    bool
	}{
		{
			name: "mid-minute tick inside the billing hour",
			now:  time.Date(2026, 3, 10, 21, 17, 42, 0, time.UTC),
			want: true,
		},
		{
			name:    "already ran today",
			now:     time.Date(2026, 3, 10, 21, 18, 42, 0, time.UTC),
			lastRun: day,
			want:    false,
		},
		{
			name: "outside the billing hour",
			now:  time.Date(2026, 3, 10, 20, 59, 59, 0, time.UTC),
			want: false,
		},
		{
			name:    "next day fires again",
			now:     time.Date(2026, 3, 11, 21, 0, 5, 0, time.UTC),
			lastRun: day,
			want:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := sweepDue(tc.now, tc.lastRun, 21); got != tc.want {
				t.Fatalf("sweepDue = %v, want %v", got, tc.want)
			}
		})
	}
}
