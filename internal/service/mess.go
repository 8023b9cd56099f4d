package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
)

// UpsertMenuEntry сохраняет позицию меню и сбрасывает кэш меню.
func (s *Service) UpsertMenuEntry(ctx context.Context, e model.MenuEntry) (int64, error) {
	if e.PricePaise <= 0 {
		return 0, ErrInvalidAmount
	}
	if !e.Slot.Valid() {
		return 0, ErrInvalidMealSlot
	}

	id, err := s.repo.UpsertMenuEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("upsert menu entry: %w", err)
	}

	if s.menuCache.Enabled() {
		s.menuCache.Invalidate(ctx)
	}

	return id, nil
}

// AddMenuRange добавляет позицию меню для каждого дня недели weekday в периоде [from, to].
func (s *Service) AddMenuRange(ctx context.Context, from, to time.Time, weekday time.Weekday, slot model.MealSlot, dishName string, pricePaise int64) (int, error) {
	if to.Before(from) {
		return 0, ErrInvalidDateRange
	}
	if pricePaise <= 0 {
		return 0, ErrInvalidAmount
	}
	if !slot.Valid() {
		return 0, ErrInvalidMealSlot
	}

	added := 0
	for d := dateOnly(from); !d.After(dateOnly(to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != weekday {
			continue
		}
		if _, err := s.repo.UpsertMenuEntry(ctx, model.MenuEntry{
			Date:       d,
			Slot:       slot,
			DishName:   dishName,
			PricePaise: pricePaise,
		}); err != nil {
			return added, fmt.Errorf("upsert menu entry for %s: %w", d.Format("2006-01-02"), err)
		}
		added++
	}

	if added > 0 && s.menuCache.Enabled() {
		s.menuCache.Invalidate(ctx)
	}

	return added, nil
}

// GetMenu возвращает меню за период, используя кэш при его наличии.
func (s *Service) GetMenu(ctx context.Context, from, to time.Time) ([]model.MenuEntry, error) {
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}

	if s.menuCache.Enabled() {
		if entries, ok := s.menuCache.Get(ctx, from, to); ok {
			return entries, nil
		}
	}

	entries, err := s.repo.ListMenu(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}

	if s.menuCache.Enabled() {
		s.menuCache.Set(ctx, from, to, entries)
	}

	return entries, nil
}

// RecordAttendance фиксирует посещение приёма пищи. Цена фиксируется на момент
// отметки: берётся из меню на эту дату, при отсутствии меню или при отметке
// об отсутствии цена равна нулю. Повторная отметка перезаписывает запись.
func (s *Service) RecordAttendance(ctx context.Context, studentID int64, date time.Time, slot model.MealSlot, present bool) (*model.AttendanceRecord, error) {
	if !slot.Valid() {
		return nil, ErrInvalidMealSlot
	}

	var price int64
	if present {
		entry, err := s.repo.FindMenuEntry(ctx, dateOnly(date), slot)
		if err != nil && !errors.Is(err, repository.ErrMenuEntryNotFound) {
			return nil, fmt.Errorf("find menu entry: %w", err)
		}
		if entry != nil {
			price = entry.PricePaise
		}
	}

	rec, err := s.repo.UpsertAttendance(ctx, model.AttendanceRecord{
		StudentID:         studentID,
		Date:              dateOnly(date),
		Slot:              slot,
		IsPresent:         present,
		PriceChargedPaise: price,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}

	// Рубеж пересчитывается после каждой записи, в том числе при отметке
	// отсутствия: перезапись присутствия на отсутствие тоже меняет счётчик.
	if err := s.evaluateMilestone(ctx, studentID, dateOnly(date)); err != nil {
		return nil, err
	}

	return rec, nil
}

// evaluateMilestone проверяет рубеж посещаемости: ровно milestoneDays различных
// дней присутствия в скользящем окне. Срабатывает однократно: при уже
// существующей необработанной заявке или нулевой задолженности ничего не создаёт.
func (s *Service) evaluateMilestone(ctx context.Context, studentID int64, asOf time.Time) error {
	from := asOf.AddDate(0, 0, -milestoneWindowDays)
	count, err := s.repo.CountPresentDays(ctx, studentID, from, asOf)
	if err != nil {
		return fmt.Errorf("count present days: %w", err)
	}
	if count != milestoneDays {
		return nil
	}

	pending, err := s.repo.HasPendingMilestoneRequest(ctx, studentID, milestoneDays)
	if err != nil {
		return fmt.Errorf("check pending request: %w", err)
	}
	if pending {
		return nil
	}

	bills, err := s.repo.GetUnpaidBills(ctx, studentID)
	if err != nil {
		return fmt.Errorf("get unpaid bills: %w", err)
	}

	var total int64
	billIDs := make([]int64, 0, len(bills))
	for _, b := range bills {
		total += b.RemainingDuePaise()
		billIDs = append(billIDs, b.ID)
	}
	if total <= 0 {
		return nil
	}

	note := fmt.Sprintf("%d present days between %s and %s",
		milestoneDays, from.Format("2006-01-02"), asOf.Format("2006-01-02"))

	_, err = s.repo.CreatePaymentRequest(ctx, model.PaymentRequest{
		StudentID:     studentID,
		AmountPaise:   total,
		MilestoneDays: milestoneDays,
		RequestNote:   note,
	}, billIDs)
	if err != nil {
		// Параллельная отметка уже создала заявку.
		if errors.Is(err, repository.ErrRequestExists) {
			return nil
		}
		return fmt.Errorf("create payment request: %w", err)
	}

	return nil
}

// GenerateDailyBill пересчитывает счёт студента за день как сумму цен
// посещённых приёмов пищи. Операция идемпотентна и затрагивает только
// сумму к оплате.
func (s *Service) GenerateDailyBill(ctx context.Context, studentID int64, date time.Time) (*model.Bill, error) {
	records, err := s.repo.GetAttendanceByDate(ctx, studentID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	var total int64
	for _, r := range records {
		if r.IsPresent {
			total += r.PriceChargedPaise
		}
	}

	bill, err := s.repo.UpsertBillAmount(ctx, studentID, dateOnly(date), total)
	if err != nil {
		return nil, fmt.Errorf("upsert bill: %w", err)
	}

	return bill, nil
}

// GetBills возвращает счета студента.
func (s *Service) GetBills(ctx context.Context, studentID int64) ([]model.Bill, error) {
	return s.repo.GetBillsByStudent(ctx, studentID)
}

// GetPaymentRequests возвращает заявки на оплату студента с опциональным фильтром по статусу.
func (s *Service) GetPaymentRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.PaymentRequest, error) {
	return s.repo.ListPaymentRequests(ctx, studentID, status)
}

// GetMessPayments возвращает квитанции студента за столовую.
func (s *Service) GetMessPayments(ctx context.Context, studentID int64) ([]model.MessPayment, error) {
	return s.repo.ListMessPayments(ctx, studentID)
}

// ApprovePaymentRequest одобряет заявку: каждый привязанный счёт гасится
// полностью, для каждого создаётся квитанция методом ADMIN. Заявка в
// терминальном статусе повторно не обрабатывается.
func (s *Service) ApprovePaymentRequest(ctx context.Context, requestID, adminID int64, note string) error {
	req, err := s.repo.GetPaymentRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != model.RequestStatusPending {
		return repository.ErrRequestProcessed
	}

	bills, err := s.repo.GetBillsByIDs(ctx, req.BillIDs)
	if err != nil {
		return fmt.Errorf("get bills: %w", err)
	}

	payments := make([]model.MessPayment, 0, len(bills))
	for _, b := range bills {
		if b.PaidStatus {
			continue
		}
		payments = append(payments, model.MessPayment{
			StudentID:   req.StudentID,
			BillID:      b.ID,
			AmountPaise: b.AmountDuePaise,
			Method:      model.PaymentMethodAdmin,
			Note:        note,
		})
	}

	return s.repo.SettlePaymentRequest(ctx, requestID, adminID, model.RequestStatusApproved, note, req.BillIDs, payments)
}

// RejectPaymentRequest отклоняет заявку. Счета и квитанции не изменяются.
func (s *Service) RejectPaymentRequest(ctx context.Context, requestID, adminID int64, note string) error {
	req, err := s.repo.GetPaymentRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != model.RequestStatusPending {
		return repository.ErrRequestProcessed
	}

	return s.repo.SettlePaymentRequest(ctx, requestID, adminID, model.RequestStatusRejected, note, nil, nil)
}

// ApplyMembership подаёт заявку на членство в столовой на указанный период.
func (s *Service) ApplyMembership(ctx context.Context, studentID int64, startDate, endDate time.Time) (int64, error) {
	if endDate.Before(startDate) {
		return 0, ErrInvalidDateRange
	}
	return s.repo.CreateMembership(ctx, model.Membership{
		StudentID: studentID,
		StartDate: dateOnly(startDate),
		EndDate:   dateOnly(endDate),
	})
}

// GetMembership возвращает членство студента в столовой.
func (s *Service) GetMembership(ctx context.Context, studentID int64) (*model.Membership, error) {
	return s.repo.GetMembership(ctx, studentID)
}

// ProcessMembership одобряет или отклоняет заявку на членство.
func (s *Service) ProcessMembership(ctx context.Context, membershipID int64, approve bool) error {
	if approve {
		return s.repo.ProcessMembership(ctx, membershipID, model.RequestStatusApproved, true)
	}
	return s.repo.ProcessMembership(ctx, membershipID, model.RequestStatusRejected, false)
}

// ListMemberships возвращает членства с указанным статусом.
func (s *Service) ListMemberships(ctx context.Context, status model.RequestStatus) ([]model.Membership, error) {
	return s.repo.ListMembershipsByStatus(ctx, status)
}

// EnrollFingerprint снимает отпечаток с терминала и сохраняет его шаблон для студента.
func (s *Service) EnrollFingerprint(ctx context.Context, studentID int64) error {
	if s.device == nil {
		return errors.New("fingerprint device is not configured")
	}

	result, err := s.device.Capture(ctx)
	if err != nil {
		return fmt.Errorf("capture fingerprint: %w", err)
	}

	return s.repo.SaveFingerprint(ctx, studentID, result.Template)
}

// MarkAttendanceByFingerprint снимает отпечаток с терминала, сверяет его с
// сохранённым шаблоном и отмечает присутствие студента на приёме пищи.
// Требует одобренного активного членства в столовой.
func (s *Service) MarkAttendanceByFingerprint(ctx context.Context, studentID int64, date time.Time, slot model.MealSlot) (*model.AttendanceRecord, error) {
	m, err := s.repo.GetMembership(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return nil, ErrMembershipInactive
		}
		return nil, err
	}
	if m.Status != model.RequestStatusApproved || !m.IsActive {
		return nil, ErrMembershipInactive
	}

	if s.device == nil {
		return nil, errors.New("fingerprint device is not configured")
	}

	result, err := s.device.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture fingerprint: %w", err)
	}

	fp, err := s.repo.GetFingerprint(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(fp.Template, result.Template) {
		return nil, ErrFingerprintMismatch
	}

	return s.RecordAttendance(ctx, studentID, date, slot, true)
}

// GetAttendance возвращает отметки посещаемости студента за день.
func (s *Service) GetAttendance(ctx context.Context, studentID int64, date time.Time) ([]model.AttendanceRecord, error) {
	return s.repo.GetAttendanceByDate(ctx, studentID, dateOnly(date))
}
