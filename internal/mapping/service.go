package mapping

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukerupert/homehub/internal/model"
)

// Store is the persistence the service needs; *store.MappingStore satisfies it.
type Store interface {
	Set(ctx context.Context, kind model.MappingKind, externalID, target string) error
	Delete(ctx context.Context, kind model.MappingKind, externalID string) error
	List(ctx context.Context, kind model.MappingKind) (map[string]string, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger.With("component", "mapping")}
}

// SetCalendarEventMapping overrides an event's member by name. An empty name
// records a cleared assignment.
func (s *Service) SetCalendarEventMapping(ctx context.Context, eventID, memberName string) error {
	if err := s.store.Set(ctx, model.MappingCalendarEvent, eventID, memberName); err != nil {
		return err
	}
	s.logger.Debug("calendar event mapped", "event_id", eventID, "member", memberName)
	return nil
}

func (s *Service) ClearCalendarEventMapping(ctx context.Context, eventID string) error {
	return s.store.Delete(ctx, model.MappingCalendarEvent, eventID)
}

// SetTaskListMapping assigns a task list to a member id; nil clears it.
func (s *Service) SetTaskListMapping(ctx context.Context, listID string, memberID *int64) error {
	target := ""
	if memberID != nil {
		target = strconv.FormatInt(*memberID, 10)
	}
	if err := s.store.Set(ctx, model.MappingTaskList, listID, target); err != nil {
		return err
	}
	s.logger.Debug("task list mapped", "list_id", listID, "member_id", target)
	return nil
}

func (s *Service) ClearTaskListMapping(ctx context.Context, listID string) error {
	return s.store.Delete(ctx, model.MappingTaskList, listID)
}

func (s *Service) EventOverrides(ctx context.Context) (map[string]string, error) {
	return s.store.List(ctx, model.MappingCalendarEvent)
}

func (s *Service) TaskListOverrides(ctx context.Context) (map[string]string, error) {
	return s.store.List(ctx, model.MappingTaskList)
}

// MemberForTaskList looks up the member a single list is mapped to.
func (s *Service) MemberForTaskList(ctx context.Context, listID string) (*int64, error) {
	overrides, err := s.TaskListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	id, _ := ResolveTaskList(listID, overrides)
	return id, nil
}
