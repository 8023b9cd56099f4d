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

var testDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestRecordAttendance_SnapshotsMenuPrice(t *testing.T) {
	repo := &stubRepo{
		menuEntry: &model.MenuEntry{
			Date:       testDate,
			Slot:       model.MealLunch,
			DishName:   "dal chawal",
			PricePaise: 5000,
		},
	}
	svc := NewService(repo, nil, nil, 21)

	rec, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.PriceChargedPaise != 5000 {
		t.Fatalf("expected price 5000, got %d", rec.PriceChargedPaise)
	}
}

func TestRecordAttendance_NoMenuChargesZero(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, 21)

	rec, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealBreakfast, true)
	if err != nil {
		t.Fatalf("missing menu must not fail the marking, got %v", err)
	}
	if rec.PriceChargedPaise != 0 {
		t.Fatalf("expected zero price without menu, got %d", rec.PriceChargedPaise)
	}
}

func TestRecordAttendance_AbsentChargesZero(t *testing.T) {
	repo := &stubRepo{
		menuEntry: &model.MenuEntry{PricePaise: 5000},
	}
	svc := NewService(repo, nil, nil, 21)

	rec, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealDinner, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.PriceChargedPaise != 0 {
		t.Fatalf("absence must not be charged, got %d", rec.PriceChargedPaise)
	}
}

func TestRecordAttendance_InvalidSlot(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, 21)

	_, err := svc.RecordAttendance(context.Background(), 1, testDate, "XX", true)
	if !errors.Is(err, ErrInvalidMealSlot) {
		t.Fatalf("expected ErrInvalidMealSlot, got %v", err)
	}
}

func TestGenerateDailyBill_SumsPresentMeals(t *testing.T) {
	repo := &stubRepo{
		attendance: []model.AttendanceRecord{
			{Slot: model.MealBreakfast, IsPresent: true, PriceChargedPaise: 10000},
			{Slot: model.MealLunch, IsPresent: true, PriceChargedPaise: 5000},
			{Slot: model.MealDinner, IsPresent: false, PriceChargedPaise: 3000},
		},
	}
	svc := NewService(repo, nil, nil, 21)

	bill, err := svc.GenerateDailyBill(context.Background(), 1, testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bill.AmountDuePaise != 15000 {
		t.Fatalf("expected bill of 15000, got %d", bill.AmountDuePaise)
	}
}

func TestGenerateDailyBill_NoAttendance(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, 21)

	bill, err := svc.GenerateDailyBill(context.Background(), 1, testDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bill.AmountDuePaise != 0 {
		t.Fatalf("expected empty bill, got %d", bill.AmountDuePaise)
	}
}

func TestMilestone_FiresAtExactlyTenDays(t *testing.T) {
	repo := &stubRepo{
		presentDays: 10,
		unpaidBills: []model.Bill{
			{ID: 1, AmountDuePaise: 30000},
			{ID: 2, AmountDuePaise: 20000},
		},
	}
	svc := NewService(repo, nil, nil, 21)

	if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.createdRequest == nil {
		t.Fatalf("expected a payment request at the tenth present day")
	}
	if repo.createdRequest.AmountPaise != 50000 {
		t.Fatalf("expected request amount 50000, got %d", repo.createdRequest.AmountPaise)
	}
	if repo.createdRequest.MilestoneDays != 10 {
		t.Fatalf("expected milestone of 10 days, got %d", repo.createdRequest.MilestoneDays)
	}
	if len(repo.createdRequestBills) != 2 {
		t.Fatalf("expected 2 bound bills, got %d", len(repo.createdRequestBills))
	}
}

func TestMilestone_WindowSpansThirtyDaysInclusive(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, 21)

	if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFrom := testDate.AddDate(0, 0, -30)
	if !repo.countFrom.Equal(wantFrom) {
		t.Fatalf("window lower bound = %s, want %s",
			repo.countFrom.Format("2006-01-02"), wantFrom.Format("2006-01-02"))
	}
	if !repo.countTo.Equal(testDate) {
		t.Fatalf("window upper bound = %s, want %s",
			repo.countTo.Format("2006-01-02"), testDate.Format("2006-01-02"))
	}
}

func TestMilestone_EvaluatedOnAbsentMark(t *testing.T) {
	// Перезапись присутствия на отсутствие тоже может вывести счётчик на
	// ровно десять дней, поэтому рубеж проверяется после любой записи.
	repo := &stubRepo{
		presentDays: 10,
		unpaidBills: []model.Bill{{ID: 1, AmountDuePaise: 30000}},
	}
	svc := NewService(repo, nil, nil, 21)

	if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealDinner, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.createdRequest == nil {
		t.Fatalf("milestone must be evaluated after an absent mark as well")
	}
	if repo.createdRequest.AmountPaise != 30000 {
		t.Fatalf("expected request amount 30000, got %d", repo.createdRequest.AmountPaise)
	}
}

func TestMilestone_DoesNotFireBelowOrAboveTen(t *testing.T) {
	for _, days := range []int{9, 11, 25} {
		repo := &stubRepo{
			presentDays: days,
			unpaidBills: []model.Bill{{ID: 1, AmountDuePaise: 30000}},
		}
		svc := NewService(repo, nil, nil, 21)

		if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true); err != nil {
			t.Fatalf("days=%d: unexpected error: %v", days, err)
		}
		if repo.createdRequest != nil {
			t.Fatalf("days=%d: request must fire only at exactly ten days", days)
		}
	}
}

func TestMilestone_SkipsWhenPendingExists(t *testing.T) {
	repo := &stubRepo{
		presentDays:      10,
		pendingMilestone: true,
		unpaidBills:      []model.Bill{{ID: 1, AmountDuePaise: 30000}},
	}
	svc := NewService(repo, nil, nil, 21)

	if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.createdRequest != nil {
		t.Fatalf("duplicate pending request must not be created")
	}
}

func TestMilestone_SkipsWhenNothingDue(t *testing.T) {
	repo := &stubRepo{
		presentDays: 10,
	}
	svc := NewService(repo, nil, nil, 21)

	if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.createdRequest != nil {
		t.Fatalf("request with zero amount must not be created")
	}
}

func TestMilestone_ConcurrentDuplicateIsBenign(t *testing.T) {
	repo := &stubRepo{
		presentDays:      10,
		unpaidBills:      []model.Bill{{ID: 1, AmountDuePaise: 30000}},
		createRequestErr: repository.ErrRequestExists,
	}
	svc := NewService(repo, nil, nil, 21)

	if _, err := svc.RecordAttendance(context.Background(), 1, testDate, model.MealLunch, true); err != nil {
		t.Fatalf("racing request creation must not surface an error, got %v", err)
	}
}

func TestApprovePaymentRequest_PaysBillsInFull(t *testing.T) {
	repo := &stubRepo{
		paymentRequest: &model.PaymentRequest{
			ID:        5,
			StudentID: 1,
			Status:    model.RequestStatusPending,
			BillIDs:   []int64{1, 2},
		},
		billsByIDs: []model.Bill{
			{ID: 1, AmountDuePaise: 30000},
			{ID: 2, AmountDuePaise: 20000},
		},
	}
	svc := NewService(repo, nil, nil, 21)

	if err := svc.ApprovePaymentRequest(context.Background(), 5, 99, "ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.settledStatus != model.RequestStatusApproved {
		t.Fatalf("expected APPROVED, got %s", repo.settledStatus)
	}
	if len(repo.settledPayments) != 2 {
		t.Fatalf("expected a payment per bill, got %d", len(repo.settledPayments))
	}
	for i, want := range []int64{30000, 20000} {
		p := repo.settledPayments[i]
		if p.AmountPaise != want {
			t.Fatalf("bill %d: expected full amount %d, got %d", i, want, p.AmountPaise)
		}
		if p.Method != model.PaymentMethodAdmin {
			t.Fatalf("expected ADMIN method, got %s", p.Method)
		}
	}
}

func TestApprovePaymentRequest_SkipsAlreadyPaidBill(t *testing.T) {
	repo := &stubRepo{
		paymentRequest: &model.PaymentRequest{
			ID:        5,
			StudentID: 1,
			Status:    model.RequestStatusPending,
			BillIDs:   []int64{1, 2},
		},
		billsByIDs: []model.Bill{
			{ID: 1, AmountDuePaise: 30000, PaidStatus: true, PaidAmountPaise: 30000},
			{ID: 2, AmountDuePaise: 20000},
		},
	}
	svc := NewService(repo, nil, nil, 21)

	if err := svc.ApprovePaymentRequest(context.Background(), 5, 99, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.settledPayments) != 1 {
		t.Fatalf("paid bill must not produce a second payment, got %d payments", len(repo.settledPayments))
	}
}

func TestApprovePaymentRequest_TerminalRequest(t *testing.T) {
	for _, status := range []model.RequestStatus{model.RequestStatusApproved, model.RequestStatusRejected} {
		repo := &stubRepo{
			paymentRequest: &model.PaymentRequest{ID: 5, Status: status},
		}
		svc := NewService(repo, nil, nil, 21)

		err := svc.ApprovePaymentRequest(context.Background(), 5, 99, "")
		if !errors.Is(err, repository.ErrRequestProcessed) {
			t.Fatalf("status=%s: expected ErrRequestProcessed, got %v", status, err)
		}
	}
}

func TestRejectPaymentRequest_LeavesBillsUntouched(t *testing.T) {
	repo := &stubRepo{
		paymentRequest: &model.PaymentRequest{
			ID:        5,
			StudentID: 1,
			Status:    model.RequestStatusPending,
			BillIDs:   []int64{1, 2},
		},
	}
	svc := NewService(repo, nil, nil, 21)

	if err := svc.RejectPaymentRequest(context.Background(), 5, 99, "no"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.settledStatus != model.RequestStatusRejected {
		t.Fatalf("expected REJECTED, got %s", repo.settledStatus)
	}
	if len(repo.settledBillIDs) != 0 || len(repo.settledPayments) != 0 {
		t.Fatalf("rejection must not touch bills or payments")
	}
}

func TestMarkAttendanceByFingerprint_RequiresActiveMembership(t *testing.T) {
	tests := []struct {
		name       string
		membership *model.Membership
	}{
		{name: "no membership", membership: nil},
		{name: "pending", membership: &model.Membership{Status: model.RequestStatusPending}},
		{name: "approved but inactive", membership: &model.Membership{Status: model.RequestStatusApproved, IsActive: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{membership: tt.membership}
			svc := NewService(repo, &stubDevice{}, nil, 21)

			_, err := svc.MarkAttendanceByFingerprint(context.Background(), 1, testDate, model.MealLunch)
			if !errors.Is(err, ErrMembershipInactive) {
				t.Fatalf("expected ErrMembershipInactive, got %v", err)
			}
		})
	}
}

func TestMarkAttendanceByFingerprint_TemplateMismatch(t *testing.T) {
	repo := &stubRepo{
		membership:  &model.Membership{Status: model.RequestStatusApproved, IsActive: true},
		fingerprint: &model.Fingerprint{StudentID: 1, Template: []byte("enrolled")},
	}
	dev := &stubDevice{result: &device.CaptureResult{Template: []byte("someone-else")}}
	svc := NewService(repo, dev, nil, 21)

	_, err := svc.MarkAttendanceByFingerprint(context.Background(), 1, testDate, model.MealLunch)
	if !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("expected ErrFingerprintMismatch, got %v", err)
	}
}

func TestMarkAttendanceByFingerprint_Success(t *testing.T) {
	template := []byte("enrolled")
	repo := &stubRepo{
		membership:  &model.Membership{Status: model.RequestStatusApproved, IsActive: true},
		fingerprint: &model.Fingerprint{StudentID: 1, Template: template},
		menuEntry:   &model.MenuEntry{PricePaise: 4000},
	}
	dev := &stubDevice{result: &device.CaptureResult{Template: template}}
	svc := NewService(repo, dev, nil, 21)

	rec, err := svc.MarkAttendanceByFingerprint(context.Background(), 1, testDate, model.MealLunch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.IsPresent || rec.PriceChargedPaise != 4000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestAddMenuRange_OnlyMatchingWeekday(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, 21)

	// Две недели, понедельники 2026-03-02 и 2026-03-09.
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	added, err := svc.AddMenuRange(context.Background(), from, to, time.Monday, model.MealLunch, "rajma", 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 2 {
		t.Fatalf("expected 2 entries for two mondays, got %d", added)
	}
}

func TestAddMenuRange_InvalidRange(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, 21)

	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.AddMenuRange(context.Background(), from, to, time.Monday, model.MealLunch, "rajma", 5000)
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}
