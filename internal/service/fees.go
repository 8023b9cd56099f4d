package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
)

// Плата за проживание вносится восемью семестровыми взносами за четыре года.
const installmentCount = 8

// installmentLabel возвращает название семестра для взноса с номером n
// при годе поступления admissionYear: Fall-Y, Spring-Y+1, Fall-Y+1 и так далее.
func installmentLabel(admissionYear, n int) string {
	// Нечётные взносы приходятся на осенний семестр, чётные на весенний.
	half := (n - 1) / 2
	if n%2 == 1 {
		return fmt.Sprintf("Fall-%d", admissionYear+half)
	}
	return fmt.Sprintf("Spring-%d", admissionYear+half+1)
}

// RecordFeePayment записывает очередной семестровый взнос студента. Номер
// взноса определяется по уже внесённым платежам: оплачивается первый
// неоплаченный семестр. Сумма взноса равна половине годовой платы за
// комнату студента.
func (s *Service) RecordFeePayment(ctx context.Context, studentID int64, mode string) (*model.FeePayment, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if st.RoomID == nil {
		return nil, repository.ErrRoomNotFound
	}

	room, err := s.repo.GetRoom(ctx, *st.RoomID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListFeePayments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= installmentCount {
		return nil, ErrAllInstallmentsPaid
	}

	n := len(existing) + 1
	payment := model.FeePayment{
		StudentID:         studentID,
		FeeType:           installmentLabel(st.CreatedAt.Year(), n),
		AmountPaise:       room.RoomType.AnnualFeePaise() / 2,
		ReceiptNumber:     uuid.NewString(),
		VoucherNo:         fmt.Sprintf("VOU-%s-%d", st.RegistrationNumber, n),
		Mode:              mode,
		InstallmentNumber: n,
	}

	id, err := s.repo.CreateFeePayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = id

	return &payment, nil
}

// ListFeePayments возвращает платежи студента за проживание.
func (s *Service) ListFeePayments(ctx context.Context, studentID int64) ([]model.FeePayment, error) {
	return s.repo.ListFeePayments(ctx, studentID)
}

// SubmitFeeRequest подаёт заявку на зачёт банковского перевода за проживание.
// Идентификатор транзакции должен быть уникальным.
func (s *Service) SubmitFeeRequest(ctx context.Context, fr model.FeeRequest) (int64, error) {
	if fr.AmountPaise <= 0 {
		return 0, ErrInvalidAmount
	}
	return s.repo.CreateFeeRequest(ctx, fr)
}

// ListFeeRequests возвращает заявки на зачёт переводов.
func (s *Service) ListFeeRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.FeeRequest, error) {
	return s.repo.ListFeeRequests(ctx, studentID, status)
}

// ProcessFeeRequest одобряет или отклоняет заявку на зачёт перевода. При
// одобрении в той же транзакции записывается очередной семестровый взнос на
// сумму заявки. Заявка в терминальном статусе повторно не обрабатывается.
func (s *Service) ProcessFeeRequest(ctx context.Context, requestID int64, approve bool) error {
	fr, err := s.repo.GetFeeRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if fr.Status != model.RequestStatusPending {
		return repository.ErrRequestProcessed
	}

	if !approve {
		return s.repo.SettleFeeRequest(ctx, requestID, model.RequestStatusRejected, nil)
	}

	st, err := s.repo.GetStudent(ctx, fr.StudentID)
	if err != nil {
		return err
	}

	existing, err := s.repo.ListFeePayments(ctx, fr.StudentID)
	if err != nil {
		return err
	}
	if len(existing) >= installmentCount {
		return ErrAllInstallmentsPaid
	}

	n := len(existing) + 1
	payment := &model.FeePayment{
		StudentID:         fr.StudentID,
		FeeType:           installmentLabel(st.CreatedAt.Year(), n),
		AmountPaise:       fr.AmountPaise,
		ReceiptNumber:     uuid.NewString(),
		VoucherNo:         fmt.Sprintf("VOU-%s-%d", st.RegistrationNumber, n),
		Mode:              fr.Mode,
		InstallmentNumber: n,
	}

	return s.repo.SettleFeeRequest(ctx, requestID, model.RequestStatusApproved, payment)
}
