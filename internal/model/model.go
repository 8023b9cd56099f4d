// Package model содержит доменные сущности сервиса управления общежитием.
package model

import "time"

// User представляет учётную запись пользователя системы (студент или сотрудник).
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	IsStaff      bool
	CreatedAt    time.Time
}

// RoomType описывает тип комнаты общежития.
type RoomType string

const (
	RoomTypeSingle RoomType = "SINGLE_SEATER"
	RoomTypeTwo    RoomType = "TWO_SEATER"
	RoomTypeThree  RoomType = "THREE_SEATER"
	RoomTypeSix    RoomType = "SIX_SEATER"
)

// Capacity возвращает вместимость комнаты данного типа.
func (t RoomType) Capacity() int {
	switch t {
	case RoomTypeSingle:
		return 1
	case RoomTypeTwo:
		return 2
	case RoomTypeThree:
		return 3
	case RoomTypeSix:
		return 6
	}
	return 0
}

// AnnualFeePaise возвращает годовую плату за проживание для типа комнаты в пайсах.
func (t RoomType) AnnualFeePaise() int64 {
	switch t {
	case RoomTypeSingle:
		return 120000 * 100
	case RoomTypeTwo:
		return 96000 * 100
	case RoomTypeThree:
		return 80000 * 100
	case RoomTypeSix:
		return 64000 * 100
	}
	return 100000 * 100
}

// Hostel описывает корпус общежития.
type Hostel struct {
	ID   int64
	Name string
}

// Room описывает комнату общежития. Число заселённых студентов не хранится,
// а вычисляется по записям студентов.
type Room struct {
	ID       int64
	HostelID int64
	RoomNo   string
	RoomType RoomType
	FloorNo  int
	Location string
	Occupied int
}

// Capacity возвращает вместимость комнаты.
func (r Room) Capacity() int {
	return r.RoomType.Capacity()
}

// FeeStatus описывает состояние оплаты проживания студентом.
type FeeStatus string

const (
	FeeStatusNotPaid       FeeStatus = "NOT_PAID"
	FeeStatusPartiallyPaid FeeStatus = "PARTIALLY_PAID"
	FeeStatusFullyPaid     FeeStatus = "FULLY_PAID"
)

// Student описывает студента, проживающего в общежитии.
type Student struct {
	ID                 int64
	UserID             *int64
	RegistrationNumber string
	FirstName          string
	LastName           string
	FatherName         string
	Department         string
	ContactInfo        string
	Address            string
	RoomID             *int64
	HostelID           *int64
	CreatedAt          time.Time
}

// FeeSummary содержит вычисляемое состояние оплаты проживания студента.
type FeeSummary struct {
	TotalFeePaise  int64
	TotalPaidPaise int64
	Status         FeeStatus
}

// RemainingPaise возвращает остаток к оплате за проживание.
func (s FeeSummary) RemainingPaise() int64 {
	if s.TotalPaidPaise >= s.TotalFeePaise {
		return 0
	}
	return s.TotalFeePaise - s.TotalPaidPaise
}
