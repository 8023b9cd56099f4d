package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/validation"
)

// ErrInvalidRegistrationNumber возвращается при некорректном регистрационном номере.
var ErrInvalidRegistrationNumber = fmt.Errorf("invalid registration number")

// CreateHostel создаёт корпус общежития.
func (s *Service) CreateHostel(ctx context.Context, name string) (int64, error) {
	return s.repo.CreateHostel(ctx, name)
}

// ListHostels возвращает все корпуса.
func (s *Service) ListHostels(ctx context.Context) ([]model.Hostel, error) {
	return s.repo.ListHostels(ctx)
}

// CreateRoom создаёт комнату в корпусе.
func (s *Service) CreateRoom(ctx context.Context, room model.Room) (int64, error) {
	if room.RoomType.Capacity() == 0 {
		return 0, fmt.Errorf("unknown room type %q", room.RoomType)
	}
	return s.repo.CreateRoom(ctx, room)
}

// GetRoom возвращает комнату с вычисленной заселённостью.
func (s *Service) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	return s.repo.GetRoom(ctx, id)
}

// ListRooms возвращает комнаты корпуса с вычисленной заселённостью.
func (s *Service) ListRooms(ctx context.Context, hostelID int64) ([]model.Room, error) {
	return s.repo.ListRooms(ctx, hostelID)
}

// CreateStudent регистрирует студента.
func (s *Service) CreateStudent(ctx context.Context, st model.Student) (int64, error) {
	if !validation.IsValidRegistrationNumber(st.RegistrationNumber) {
		return 0, ErrInvalidRegistrationNumber
	}
	return s.repo.CreateStudent(ctx, st)
}

// GetStudent возвращает студента по идентификатору.
func (s *Service) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return s.repo.GetStudent(ctx, id)
}

// GetStudentByUser возвращает студента по учётной записи пользователя.
func (s *Service) GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error) {
	return s.repo.GetStudentByUser(ctx, userID)
}

// ListStudents возвращает всех студентов.
func (s *Service) ListStudents(ctx context.Context) ([]model.Student, error) {
	return s.repo.ListStudents(ctx)
}

// AssignRoom заселяет студента в комнату с проверкой вместимости.
func (s *Service) AssignRoom(ctx context.Context, studentID, roomID int64) error {
	return s.repo.AssignRoom(ctx, studentID, roomID)
}

// ReleaseRoom выселяет студента из комнаты.
func (s *Service) ReleaseRoom(ctx context.Context, studentID int64) error {
	return s.repo.ReleaseRoom(ctx, studentID)
}

// GetFeeSummary вычисляет состояние оплаты проживания студента: полная плата
// определяется по типу его комнаты, оплаченная сумма — по квитанциям.
// Состояние нигде не хранится и всегда выводится из данных.
func (s *Service) GetFeeSummary(ctx context.Context, studentID int64) (*model.FeeSummary, error) {
	st, err := s.repo.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var totalFee int64
	if st.RoomID != nil {
		room, err := s.repo.GetRoom(ctx, *st.RoomID)
		if err != nil {
			return nil, err
		}
		totalFee = room.RoomType.AnnualFeePaise()
	}

	paid, err := s.repo.SumFeePayments(ctx, studentID)
	if err != nil {
		return nil, err
	}

	status := model.FeeStatusNotPaid
	switch {
	case totalFee > 0 && paid >= totalFee:
		status = model.FeeStatusFullyPaid
	case paid > 0:
		status = model.FeeStatusPartiallyPaid
	}

	return &model.FeeSummary{
		TotalFeePaise:  totalFee,
		TotalPaidPaise: paid,
		Status:         status,
	}, nil
}
