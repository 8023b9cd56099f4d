// Package service реализует бизнес-логику сервиса управления общежитием.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/mmeshcher/hostel-system/internal/cache"
	"github.com/mmeshcher/hostel-system/internal/device"
	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
)

// ErrInvalidMealSlot возвращается при неизвестном коде приёма пищи.
var (
	ErrInvalidMealSlot = errors.New("invalid meal slot")
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMembershipInactive возвращается при отметке посещения без активного членства.
	ErrMembershipInactive = errors.New("mess membership is not active")
	// ErrFingerprintMismatch возвращается, если отсканированный отпечаток не совпал с шаблоном.
	ErrFingerprintMismatch = errors.New("fingerprint verification failed")
	// ErrAllInstallmentsPaid возвращается, когда все семестровые взносы уже оплачены.
	ErrAllInstallmentsPaid = errors.New("all installments have been paid")
	// ErrInvalidDateRange возвращается при некорректном периоде дат.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrInvalidAmount возвращается при неположительной сумме.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Рубеж посещаемости: десять различных дней в скользящем 30-дневном окне.
const (
	milestoneDays       = 10
	milestoneWindowDays = 30
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, login string, passwordHash []byte, isStaff bool) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

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

	UpsertMenuEntry(ctx context.Context, e model.MenuEntry) (int64, error)
	FindMenuEntry(ctx context.Context, date time.Time, slot model.MealSlot) (*model.MenuEntry, error)
	ListMenu(ctx context.Context, from, to time.Time) ([]model.MenuEntry, error)

	CreateMembership(ctx context.Context, m model.Membership) (int64, error)
	GetMembership(ctx context.Context, studentID int64) (*model.Membership, error)
	ProcessMembership(ctx context.Context, membershipID int64, status model.RequestStatus, active bool) error
	ListMembershipsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Membership, error)
	ListActiveMemberIDs(ctx context.Context) ([]int64, error)
	SaveFingerprint(ctx context.Context, studentID int64, template []byte) error
	GetFingerprint(ctx context.Context, studentID int64) (*model.Fingerprint, error)

	UpsertAttendance(ctx context.Context, rec model.AttendanceRecord) (*model.AttendanceRecord, error)
	GetAttendanceByDate(ctx context.Context, studentID int64, date time.Time) ([]model.AttendanceRecord, error)
	CountPresentDays(ctx context.Context, studentID int64, from, to time.Time) (int, error)
	UpsertBillAmount(ctx context.Context, studentID int64, date time.Time, amountPaise int64) (*model.Bill, error)
	GetBillsByStudent(ctx context.Context, studentID int64) ([]model.Bill, error)
	GetUnpaidBills(ctx context.Context, studentID int64) ([]model.Bill, error)
	GetBillsByIDs(ctx context.Context, ids []int64) ([]model.Bill, error)
	HasPendingMilestoneRequest(ctx context.Context, studentID int64, milestoneDays int) (bool, error)
	CreatePaymentRequest(ctx context.Context, req model.PaymentRequest, billIDs []int64) (int64, error)
	GetPaymentRequest(ctx context.Context, id int64) (*model.PaymentRequest, error)
	ListPaymentRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.PaymentRequest, error)
	SettlePaymentRequest(ctx context.Context, requestID, adminID int64, status model.RequestStatus, note string, billIDs []int64, payments []model.MessPayment) error
	ListMessPayments(ctx context.Context, studentID int64) ([]model.MessPayment, error)

	CreateFeePayment(ctx context.Context, p model.FeePayment) (int64, error)
	ListFeePayments(ctx context.Context, studentID int64) ([]model.FeePayment, error)
	SumFeePayments(ctx context.Context, studentID int64) (int64, error)
	CreateFeeRequest(ctx context.Context, fr model.FeeRequest) (int64, error)
	GetFeeRequest(ctx context.Context, id int64) (*model.FeeRequest, error)
	ListFeeRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.FeeRequest, error)
	SettleFeeRequest(ctx context.Context, requestID int64, status model.RequestStatus, payment *model.FeePayment) error

	CreateNotice(ctx context.Context, n model.Notice) (int64, error)
	ListActiveNotices(ctx context.Context) ([]model.Notice, error)
	CreateShowcaseNotice(ctx context.Context, n model.ShowcaseNotice, studentIDs []int64) (int64, error)
	ListShowcaseNoticesForStudent(ctx context.Context, studentID int64) ([]repository.ShowcaseNoticeForStudent, error)
	MarkShowcaseNoticeRead(ctx context.Context, studentID, noticeID int64) error
	MarkShowcaseNoticePaid(ctx context.Context, studentID, noticeID int64) error
	CreateVisitor(ctx context.Context, v model.Visitor) (int64, int64, error)
	ProcessVisitorRequest(ctx context.Context, requestID int64, status model.RequestStatus) error
	SetVisitorTimes(ctx context.Context, requestID int64, timeIn, timeOut *time.Time) error
	ListVisitorRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.VisitorRequest, error)
	CreateComplaint(ctx context.Context, c model.Complaint) (int64, error)
	ListComplaints(ctx context.Context) ([]model.Complaint, error)
	MarkComplaintRead(ctx context.Context, id int64) error
}

// DeviceClient описывает контракт терминала сканирования отпечатков.
type DeviceClient interface {
	Capture(ctx context.Context) (*device.CaptureResult, error)
}

// Service содержит бизнес-логику сервиса управления общежитием.
type Service struct {
	repo        Repository
	device      DeviceClient
	menuCache   *cache.MenuCache
	billingHour int
}

// NewService создаёт новый сервис с указанным репозиторием, клиентом терминала и кэшем меню.
func NewService(repo Repository, deviceClient DeviceClient, menuCache *cache.MenuCache, billingHour int) *Service {
	return &Service{
		repo:        repo,
		device:      deviceClient,
		menuCache:   menuCache,
		billingHour: billingHour,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.menuCache != nil {
		_ = s.menuCache.Close()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string, isStaff bool) (int64, error) {
	hashed := hashPassword(login, password)
	return s.repo.CreateUser(ctx, login, hashed, isStaff)
}

// AuthenticateUser проверяет логин и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// StartBillingSweep запускает фоновый процесс, который раз в сутки в заданный
// час пересчитывает вчерашние счета всех активных членов столовой.
func (s *Service) StartBillingSweep(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		// Дата последнего запуска отслеживается явно, чтобы тик,
		// не попавший ровно на начало часа, не пропускал сутки.
		var lastRun time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				if sweepDue(now, lastRun, s.billingHour) {
					s.runBillingSweep(ctx, dateOnly(now.AddDate(0, 0, -1)))
					lastRun = dateOnly(now)
				}
			}
		}
	}()
}

// sweepDue сообщает, пора ли запускать пересчёт: идёт расчётный час,
// а за сегодняшнюю дату пересчёт ещё не выполнялся.
func sweepDue(now, lastRun time.Time, billingHour int) bool {
	return now.Hour() == billingHour && !lastRun.Equal(dateOnly(now))
}

func (s *Service) runBillingSweep(ctx context.Context, date time.Time) {
	ids, err := s.repo.ListActiveMemberIDs(ctx)
	if err != nil {
		return
	}

	for _, studentID := range ids {
		if _, err := s.GenerateDailyBill(ctx, studentID, date); err != nil {
			continue
		}
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
