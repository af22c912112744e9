package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// SlaService sweeps open complaints for breached and approaching deadlines.
// Each complaint is flagged at most once per deadline: the sweep stamps a
// watermark that a later priority change clears.
type SlaService struct {
	complaints repository.ComplaintRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.SlaConfig
	now        func() time.Time
}

// NewSlaService constructs the service.
func NewSlaService(complaints repository.ComplaintRepository, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.SlaConfig) *SlaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlaService{
		complaints: complaints,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SweepBreached emits one breach event per newly breached complaint and
// stamps its watermark. Returns the number of complaints flagged.
func (s *SlaService) SweepBreached(ctx context.Context, limit int) (int, error) {
	now := s.now().UTC()
	breached, err := s.complaints.ListBreached(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for i := range breached {
		complaint := &breached[i]
		complaint.BreachNotifiedAt = &now
		if err := s.complaints.Update(ctx, complaint); err != nil {
			s.logger.Warn("failed to stamp breach watermark",
				zap.String("complaint_id", complaint.ID), zap.Error(err))
			continue
		}
		s.publishSla(ctx, events.EventComplaintSlaBreached, complaint, now)
		flagged++
	}
	if flagged > 0 {
		s.logger.Info("sla breach sweep complete", zap.Int("flagged", flagged))
	}
	return flagged, nil
}

// SweepApproaching emits one warning per complaint whose deadline falls
// inside the approach window, stamping its watermark.
func (s *SlaService) SweepApproaching(ctx context.Context, limit int) (int, error) {
	now := s.now().UTC()
	approaching, err := s.complaints.ListApproaching(ctx, now, s.cfg.ApproachWindow(), limit)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for i := range approaching {
		complaint := &approaching[i]
		complaint.ApproachNotifiedAt = &now
		if err := s.complaints.Update(ctx, complaint); err != nil {
			s.logger.Warn("failed to stamp approach watermark",
				zap.String("complaint_id", complaint.ID), zap.Error(err))
			continue
		}
		s.publishSla(ctx, events.EventComplaintSlaApproaching, complaint, now)
		flagged++
	}
	if flagged > 0 {
		s.logger.Info("sla approach sweep complete", zap.Int("flagged", flagged))
	}
	return flagged, nil
}

func (s *SlaService) publishSla(ctx context.Context, eventType events.EventType, complaint *domain.Complaint, at time.Time) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaint.ID,
		Actor:       events.Actor{Type: domain.SubjectTypeStaff},
		Timestamp:   at,
		Payload: events.ComplaintSlaPayload{
			Code:         complaint.Code,
			AssigneeID:   complaint.AssigneeID,
			DepartmentID: complaint.DepartmentID,
			Deadline:     complaint.SlaDeadline,
		},
	})
}
