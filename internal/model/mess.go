package model

import "time"

// MealSlot описывает приём пищи в столовой.
type MealSlot string

const (
	MealBreakfast  MealSlot = "BF"
	MealLunch      MealSlot = "LN"
	MealEveningTea MealSlot = "ET"
	MealDinner     MealSlot = "DN"
)

// ParseMealSlot проверяет и возвращает код приёма пищи.
func ParseMealSlot(code string) (MealSlot, bool) {
	switch MealSlot(code) {
	case MealBreakfast, MealLunch, MealEveningTea, MealDinner:
		return MealSlot(code), true
	}
	return "", false
}

// Valid сообщает, является ли код приёма пищи допустимым.
func (s MealSlot) Valid() bool {
	_, ok := ParseMealSlot(string(s))
	return ok
}

// MenuEntry описывает блюдо в меню столовой на дату и приём пищи.
type MenuEntry struct {
	ID         int64
	Date       time.Time
	Slot       MealSlot
	DishName   string
	PricePaise int64
}

// AttendanceRecord описывает отметку посещения столовой.
// Цена фиксируется в момент отметки и не меняется при правках меню.
type AttendanceRecord struct {
	ID                int64
	StudentID         int64
	Date              time.Time
	Slot              MealSlot
	IsPresent         bool
	PriceChargedPaise int64
	MarkedAt          time.Time
}

// Bill описывает дневной счёт студента за питание.
type Bill struct {
	ID              int64
	StudentID       int64
	BillDate        time.Time
	AmountDuePaise  int64
	PaidStatus      bool
	PaidAmountPaise int64
	PaymentDate     *time.Time
}

// RemainingDuePaise возвращает остаток к оплате по счёту.
func (b Bill) RemainingDuePaise() int64 {
	return b.AmountDuePaise - b.PaidAmountPaise
}

// RequestStatus описывает статус заявки, проходящей через подтверждение администратором.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// PaymentRequest описывает заявку на оплату накопленных счетов за питание,
// созданную по достижении рубежа посещаемости.
type PaymentRequest struct {
	ID            int64
	StudentID     int64
	RequestDate   time.Time
	AmountPaise   int64
	Status        RequestStatus
	MilestoneDays int
	RequestNote   string
	AdminNote     string
	ProcessedBy   *int64
	ProcessedDate *time.Time
	BillIDs       []int64
}

// PaymentMethod описывает способ оплаты счёта за питание.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "CASH"
	PaymentMethodBank  PaymentMethod = "BANK"
	PaymentMethodAdmin PaymentMethod = "ADMIN"
	PaymentMethodOther PaymentMethod = "OTHER"
)

// MessPayment описывает факт оплаты одного счёта за питание. Запись неизменна.
type MessPayment struct {
	ID          int64
	StudentID   int64
	BillID      int64
	PaymentDate time.Time
	AmountPaise int64
	Method      PaymentMethod
	Note        string
}

// Membership описывает членство студента в столовой.
type Membership struct {
	ID        int64
	StudentID int64
	StartDate time.Time
	EndDate   time.Time
	Status    RequestStatus
	IsActive  bool
	AppliedAt time.Time
}

// Fingerprint хранит шаблон отпечатка пальца студента для отметки посещений.
type Fingerprint struct {
	StudentID int64
	Template  []byte
	CreatedAt time.Time
}
