package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
)

// PublishNotice публикует объявление на доске объявлений.
func (s *Service) PublishNotice(ctx context.Context, n model.Notice) (int64, error) {
	return s.repo.CreateNotice(ctx, n)
}

// ListNotices возвращает действующие объявления.
func (s *Service) ListNotices(ctx context.Context) ([]model.Notice, error) {
	return s.repo.ListActiveNotices(ctx)
}

// IssueShowcaseNotice выпускает дисциплинарное уведомление для указанных
// студентов. Пустой заголовок заменяется на тип уведомления с датой.
func (s *Service) IssueShowcaseNotice(ctx context.Context, n model.ShowcaseNotice, studentIDs []int64) (int64, error) {
	if n.Title == "" {
		n.Title = fmt.Sprintf("%s - %s", n.NoticeType, time.Now().Format("2006-01-02"))
	}
	if n.NoticeType == model.NoticeFine && (n.FineAmountPaise == nil || *n.FineAmountPaise <= 0) {
		return 0, ErrInvalidAmount
	}
	return s.repo.CreateShowcaseNotice(ctx, n, studentIDs)
}

// ListShowcaseNotices возвращает дисциплинарные уведомления студента.
func (s *Service) ListShowcaseNotices(ctx context.Context, studentID int64) ([]repository.ShowcaseNoticeForStudent, error) {
	return s.repo.ListShowcaseNoticesForStudent(ctx, studentID)
}

// MarkShowcaseNoticeRead отмечает уведомление прочитанным студентом.
func (s *Service) MarkShowcaseNoticeRead(ctx context.Context, studentID, noticeID int64) error {
	return s.repo.MarkShowcaseNoticeRead(ctx, studentID, noticeID)
}

// MarkShowcaseNoticePaid отмечает штраф по уведомлению оплаченным.
func (s *Service) MarkShowcaseNoticePaid(ctx context.Context, studentID, noticeID int64) error {
	return s.repo.MarkShowcaseNoticePaid(ctx, studentID, noticeID)
}

// RequestVisitor регистрирует посетителя и создаёт заявку на пропуск.
func (s *Service) RequestVisitor(ctx context.Context, v model.Visitor) (int64, error) {
	_, requestID, err := s.repo.CreateVisitor(ctx, v)
	return requestID, err
}

// ProcessVisitorRequest одобряет или отклоняет заявку на пропуск посетителя.
func (s *Service) ProcessVisitorRequest(ctx context.Context, requestID int64, approve bool) error {
	if approve {
		return s.repo.ProcessVisitorRequest(ctx, requestID, model.RequestStatusApproved)
	}
	return s.repo.ProcessVisitorRequest(ctx, requestID, model.RequestStatusRejected)
}

// CheckInVisitor фиксирует время входа посетителя по одобренной заявке.
func (s *Service) CheckInVisitor(ctx context.Context, requestID int64) error {
	now := time.Now()
	return s.repo.SetVisitorTimes(ctx, requestID, &now, nil)
}

// CheckOutVisitor фиксирует время выхода посетителя.
func (s *Service) CheckOutVisitor(ctx context.Context, requestID int64) error {
	now := time.Now()
	return s.repo.SetVisitorTimes(ctx, requestID, nil, &now)
}

// ListVisitorRequests возвращает заявки на пропуск посетителей.
func (s *Service) ListVisitorRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.VisitorRequest, error) {
	return s.repo.ListVisitorRequests(ctx, studentID, status)
}

// SubmitComplaint регистрирует жалобу студента.
func (s *Service) SubmitComplaint(ctx context.Context, c model.Complaint) (int64, error) {
	return s.repo.CreateComplaint(ctx, c)
}

// ListComplaints возвращает все жалобы.
func (s *Service) ListComplaints(ctx context.Context) ([]model.Complaint, error) {
	return s.repo.ListComplaints(ctx)
}

// MarkComplaintRead отмечает жалобу рассмотренной.
func (s *Service) MarkComplaintRead(ctx context.Context, id int64) error {
	return s.repo.MarkComplaintRead(ctx, id)
}
