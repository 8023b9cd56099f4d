package model

import "time"

// FeePayment описывает платёж студента за проживание (семестровый взнос).
type FeePayment struct {
	ID                int64
	StudentID         int64
	FeeType           string
	AmountPaise       int64
	ReceiptNumber     string
	VoucherNo         string
	Mode              string
	InstallmentNumber int
	PaymentDate       time.Time
}

// FeeRequest описывает заявку студента на зачёт перевода за проживание.
type FeeRequest struct {
	ID              int64
	StudentID       int64
	AmountPaise     int64
	BankName        string
	TransactionID   string
	TransactionDate time.Time
	Mode            string
	Status          RequestStatus
	Notes           string
	CreatedAt       time.Time
}

// Notice описывает объявление на доске объявлений.
type Notice struct {
	ID        int64
	Title     string
	Content   string
	CreatedBy int64
	CreatedAt time.Time
	ExpiresAt *time.Time
	IsActive  bool
}

// ShowcaseNoticeType перечисляет типы дисциплинарных уведомлений.
type ShowcaseNoticeType string

const (
	NoticeNoise   ShowcaseNoticeType = "NOISE"
	NoticeFine    ShowcaseNoticeType = "FINE"
	NoticeDamage  ShowcaseNoticeType = "DAMAGE"
	NoticeConduct ShowcaseNoticeType = "CONDUCT"
	NoticeOther   ShowcaseNoticeType = "OTHER"
)

// ShowcaseNotice описывает дисциплинарное уведомление, адресованное студентам.
type ShowcaseNotice struct {
	ID              int64
	Title           string
	Description     string
	NoticeType      ShowcaseNoticeType
	FineAmountPaise *int64
	DueDate         *time.Time
	Resolved        bool
	CreatedBy       int64
	CreatedAt       time.Time
}

// StudentNoticeLink описывает состояние дисциплинарного уведомления для конкретного студента.
type StudentNoticeLink struct {
	StudentID int64
	NoticeID  int64
	Read      bool
	ReadDate  *time.Time
	Paid      bool
}

// Visitor описывает посетителя студента.
type Visitor struct {
	ID          int64
	StudentID   int64
	Name        string
	ContactInfo string
	IDProof     string
	Purpose     string
	VisitDate   time.Time
}

// VisitorRequest описывает заявку студента на пропуск посетителя.
type VisitorRequest struct {
	ID          int64
	StudentID   int64
	VisitorID   int64
	RequestDate time.Time
	Status      RequestStatus
	TimeIn      *time.Time
	TimeOut     *time.Time
}

// Complaint описывает жалобу студента.
type Complaint struct {
	ID          int64
	StudentID   int64
	Description string
	Type        string
	CreatedAt   time.Time
	IsRead      bool
}
