package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/scolaria/scolaria-api/internal/models"
	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
)

type sessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListActiveByRoom(ctx context.Context, roomID string) ([]models.Session, error)
	ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.Session, error)
	ListActiveByClass(ctx context.Context, classID string) ([]models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	SetStatus(ctx context.Context, id string, status models.SessionStatus) error
	HardDelete(ctx context.Context, id string) error
}

// SessionRequest describes a proposed timetable slot.
type SessionRequest struct {
	ClassID      string `json:"class_id" validate:"required"`
	SubjectID    string `json:"subject_id"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	RoomID       string `json:"room_id" validate:"required"`
	Weekday      int    `json:"weekday" validate:"required,min=1,max=6"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	AcademicYear string `json:"academic_year"`
}

// TimetableService manages sessions and detects double-bookings. Conflict
// checks read active sessions without transactional isolation from concurrent
// creates: two simultaneous creations can both pass the check. Acceptable for
// human-scheduled writes, but callers should know the window exists.
type TimetableService struct {
	sessions    sessionRepository
	cache       *CacheService
	defaultYear string
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTimetableService constructs TimetableService.
func NewTimetableService(sessions sessionRepository, cache *CacheService, defaultYear string, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{sessions: sessions, cache: cache, defaultYear: defaultYear, validator: validate, logger: logger}
}

// CheckConflicts reports every active session that double-books the proposed
// slot on the room, teacher or class dimension. Advisory: an empty result
// means the slot is free, and the caller decides whether conflicts block
// creation. Ranges touching at an endpoint do not conflict.
func (s *TimetableService) CheckConflicts(ctx context.Context, req SessionRequest) ([]models.SessionConflict, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	return s.scanConflicts(ctx, normalized, "")
}

// Create inserts a session after a conflict scan. Conflicting proposals are
// rejected with the full conflict list.
func (s *TimetableService) Create(ctx context.Context, req SessionRequest) (*models.Session, []models.SessionConflict, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, nil, err
	}
	conflicts, err := s.scanConflicts(ctx, normalized, "")
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "session conflicts detected")
	}

	session := s.toSession(normalized)
	session.Status = models.SessionActive
	if err := s.sessions.Create(ctx, &session); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.invalidateClass(ctx, session.ClassID)
	return &session, nil, nil
}

// Update modifies an existing session, re-running the conflict scan while
// ignoring the session itself.
func (s *TimetableService) Update(ctx context.Context, id string, req SessionRequest) (*models.Session, []models.SessionConflict, error) {
	existing, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	normalized, err := s.normalize(req)
	if err != nil {
		return nil, nil, err
	}
	conflicts, err := s.scanConflicts(ctx, normalized, existing.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "session conflicts detected")
	}

	updated := s.toSession(normalized)
	updated.ID = existing.ID
	updated.Status = existing.Status
	updated.CreatedAt = existing.CreatedAt
	if err := s.sessions.Update(ctx, &updated); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.invalidateClass(ctx, existing.ClassID)
	if updated.ClassID != existing.ClassID {
		s.invalidateClass(ctx, updated.ClassID)
	}
	return &updated, nil, nil
}

// Deactivate soft-deletes a session. The row stays for audit; only the status
// flips, and inactive sessions no longer participate in conflict checks.
func (s *TimetableService) Deactivate(ctx context.Context, id string) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.sessions.SetStatus(ctx, id, models.SessionInactive); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate session")
	}
	s.invalidateClass(ctx, session.ClassID)
	return nil
}

// Purge removes a session row entirely. Explicit maintenance path only.
func (s *TimetableService) Purge(ctx context.Context, id string) error {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if err := s.sessions.HardDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge session")
	}
	s.invalidateClass(ctx, session.ClassID)
	return nil
}

// ListByClass returns a class's active sessions.
func (s *TimetableService) ListByClass(ctx context.Context, classID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class sessions")
	}
	return sessions, nil
}

// ListByTeacher returns a teacher's active sessions.
func (s *TimetableService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher sessions")
	}
	return sessions, nil
}

// ListByRoom returns a room's active sessions.
func (s *TimetableService) ListByRoom(ctx context.Context, roomID string) ([]models.Session, error) {
	sessions, err := s.sessions.ListActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room sessions")
	}
	return sessions, nil
}

// ClassWeek returns the weekly timetable of a class, one entry per weekday
// Monday through Saturday, sessions ordered by start time. Results are
// cached until the next session write touching the class.
func (s *TimetableService) ClassWeek(ctx context.Context, classID string) ([]models.DaySchedule, error) {
	cacheKey := fmt.Sprintf("timetable:class:%s:week", classID)
	var cached []models.DaySchedule
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	sessions, err := s.sessions.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class sessions")
	}

	week := make([]models.DaySchedule, 0, 6)
	for day := 1; day <= 6; day++ {
		daySessions := make([]models.Session, 0)
		for _, session := range sessions {
			if session.Weekday == day {
				daySessions = append(daySessions, session)
			}
		}
		sort.Slice(daySessions, func(i, j int) bool {
			return daySessions[i].StartTime < daySessions[j].StartTime
		})
		week = append(week, models.DaySchedule{Weekday: day, Name: models.WeekdayName(day), Sessions: daySessions})
	}

	if err := s.cache.Set(ctx, cacheKey, week, 0); err != nil {
		s.logger.Warn("timetable cache write failed", zap.String("class_id", classID), zap.Error(err))
	}
	return week, nil
}

func (s *TimetableService) scanConflicts(ctx context.Context, req SessionRequest, ignoreID string) ([]models.SessionConflict, error) {
	var conflicts []models.SessionConflict

	roomSessions, err := s.sessions.ListActiveByRoom(ctx, req.RoomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan room sessions")
	}
	conflicts = appendConflicts(conflicts, roomSessions, req, ignoreID, models.ConflictRoom,
		func(existing models.Session) string {
			return fmt.Sprintf("room %s already booked %s %s-%s", existing.RoomID, models.WeekdayName(existing.Weekday), existing.StartTime, existing.EndTime)
		})

	teacherSessions, err := s.sessions.ListActiveByTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan teacher sessions")
	}
	conflicts = appendConflicts(conflicts, teacherSessions, req, ignoreID, models.ConflictTeacher,
		func(existing models.Session) string {
			return fmt.Sprintf("teacher %s already teaching %s %s-%s", existing.TeacherID, models.WeekdayName(existing.Weekday), existing.StartTime, existing.EndTime)
		})

	classSessions, err := s.sessions.ListActiveByClass(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan class sessions")
	}
	conflicts = appendConflicts(conflicts, classSessions, req, ignoreID, models.ConflictClass,
		func(existing models.Session) string {
			return fmt.Sprintf("class %s already has a session %s %s-%s", existing.ClassID, models.WeekdayName(existing.Weekday), existing.StartTime, existing.EndTime)
		})

	return conflicts, nil
}

func appendConflicts(conflicts []models.SessionConflict, existing []models.Session, req SessionRequest, ignoreID, dimension string, describe func(models.Session) string) []models.SessionConflict {
	for _, session := range existing {
		if session.ID == ignoreID || session.Weekday != req.Weekday {
			continue
		}
		if !rangesOverlap(req.StartTime, req.EndTime, session.StartTime, session.EndTime) {
			continue
		}
		conflicts = append(conflicts, models.SessionConflict{
			Dimension:   dimension,
			SessionID:   session.ID,
			ClassID:     session.ClassID,
			TeacherID:   session.TeacherID,
			RoomID:      session.RoomID,
			Weekday:     session.Weekday,
			StartTime:   session.StartTime,
			EndTime:     session.EndTime,
			Description: describe(session),
		})
	}
	return conflicts
}

// rangesOverlap reports whether two HH:MM ranges on the same day collide.
// Touching endpoints are not an overlap: a slot starting exactly when another
// ends is allowed.
func rangesOverlap(aStart, aEnd, bStart, bEnd string) bool {
	return !(aEnd <= bStart || aStart >= bEnd)
}

func (s *TimetableService) normalize(req SessionRequest) (SessionRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	start, err := normalizeClock(req.StartTime)
	if err != nil {
		return req, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	end, err := normalizeClock(req.EndTime)
	if err != nil {
		return req, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
	}
	if end <= start {
		return req, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	req.StartTime = start
	req.EndTime = end
	if req.AcademicYear == "" {
		req.AcademicYear = s.defaultYear
	}
	return req, nil
}

func (s *TimetableService) toSession(req SessionRequest) models.Session {
	session := models.Session{
		ClassID:      req.ClassID,
		TeacherID:    req.TeacherID,
		RoomID:       req.RoomID,
		Weekday:      req.Weekday,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		AcademicYear: req.AcademicYear,
	}
	if req.SubjectID != "" {
		subjectID := req.SubjectID
		session.SubjectID = &subjectID
	}
	return session
}

func (s *TimetableService) invalidateClass(ctx context.Context, classID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("timetable:class:%s:*", classID)); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("class_id", classID), zap.Error(err))
	}
}

// normalizeClock parses a clock value and reformats it as zero-padded HH:MM
// so stored times compare correctly as text.
func normalizeClock(raw string) (string, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return parsed.Format("15:04"), nil
}
