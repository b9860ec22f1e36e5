package dismissal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/reminder-engine/internal/model"
	"github.com/jwalitptl/reminder-engine/internal/repository"
)

// Target identifies what a dismissal pass is trying to resolve.
type Target struct {
	ActionID   uuid.UUID
	ScheduleID uuid.UUID
	ActionName string
	Now        time.Time
}

// Strategy evaluates one presented notification against a target and
// returns a confidence-scored result. Strategies are independent and
// side-effect free; the service owns thresholds and ordering.
type Strategy interface {
	Name() model.DismissalStrategy
	Evaluate(ctx context.Context, target Target, candidate *model.PresentedNotification) model.DismissalResult
}

// timeWindowStrategy matches a candidate whose denormalized payload
// carries the exact target pair and whose presentation time sits within a
// bounded window of now. Nearly as precise as a mapping hit. Candidates
// with an undecodable payload are correlated through stored trigger times
// instead.
type timeWindowStrategy struct {
	mappings repository.MappingRepository
	window   time.Duration
	now      func() time.Time
}

func (s *timeWindowStrategy) Name() model.DismissalStrategy { return model.StrategyTimeWindow }

func (s *timeWindowStrategy) Evaluate(ctx context.Context, target Target, candidate *model.PresentedNotification) model.DismissalResult {
	miss := model.DismissalResult{Strategy: model.StrategyTimeWindow}

	payload, err := model.ParseReminderPayload(candidate.Payload)
	if err != nil {
		return s.storedTrigger(ctx, target, candidate)
	}

	if !payloadNamesTarget(payload, target) {
		miss.Context = "payload does not reference target pair"
		return miss
	}

	drift := s.now().Sub(candidate.PresentedAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > s.window {
		miss.Context = fmt.Sprintf("presented %s outside the %s window", drift, s.window)
		return miss
	}

	return model.DismissalResult{
		ShouldDismiss: true,
		Strategy:      model.StrategyTimeWindow,
		Confidence:    85,
		Context:       fmt.Sprintf("payload pair match, presented %s ago", drift),
	}
}

// storedTrigger correlates a candidate the payload told us nothing about:
// a stored mapping of the same category that names the exact target pair
// and was scheduled within the window of the candidate's presentation.
func (s *timeWindowStrategy) storedTrigger(ctx context.Context, target Target, candidate *model.PresentedNotification) model.DismissalResult {
	miss := model.DismissalResult{Strategy: model.StrategyTimeWindow}

	rows, err := s.mappings.ListByWindow(ctx,
		candidate.PresentedAt.Add(-s.window), candidate.PresentedAt.Add(s.window))
	if err != nil {
		miss.Context = "stored trigger lookup failed"
		return miss
	}

	for _, row := range rows {
		if row.Category != candidate.Category || !row.Contains(target.ActionID, target.ScheduleID) {
			continue
		}
		return model.DismissalResult{
			ShouldDismiss: true,
			Strategy:      model.StrategyTimeWindow,
			Confidence:    85,
			Context:       fmt.Sprintf("stored trigger for the target pair within %s of presentation", s.window),
		}
	}

	miss.Context = "payload not parseable and no stored trigger for target pair"
	return miss
}

// contentStrategy matches the action's name against the candidate's
// visible title or body. Cannot distinguish two schedules of the same
// action, hence the lower confidence.
type contentStrategy struct{}

func (s *contentStrategy) Name() model.DismissalStrategy { return model.StrategyContent }

func (s *contentStrategy) Evaluate(_ context.Context, target Target, candidate *model.PresentedNotification) model.DismissalResult {
	miss := model.DismissalResult{Strategy: model.StrategyContent}

	if target.ActionName == "" {
		miss.Context = "target action name unknown"
		return miss
	}

	name := strings.ToLower(target.ActionName)
	if !strings.Contains(strings.ToLower(candidate.Title), name) &&
		!strings.Contains(strings.ToLower(candidate.Body), name) {
		miss.Context = "action name not present in content"
		return miss
	}

	return model.DismissalResult{
		ShouldDismiss: true,
		Strategy:      model.StrategyContent,
		Confidence:    70,
		Context:       fmt.Sprintf("content mentions %q", target.ActionName),
	}
}

// categoryStrategy correlates only on the reminder category plus recency.
// Weakest signal; its confidence sits below the default threshold so it
// only acts when explicitly configured to.
type categoryStrategy struct {
	window time.Duration
	now    func() time.Time
}

func (s *categoryStrategy) Name() model.DismissalStrategy { return model.StrategyCategory }

func (s *categoryStrategy) Evaluate(_ context.Context, _ Target, candidate *model.PresentedNotification) model.DismissalResult {
	miss := model.DismissalResult{Strategy: model.StrategyCategory}

	if !model.IsReminderCategory(candidate.Category) {
		miss.Context = "not a reminder category"
		return miss
	}

	drift := s.now().Sub(candidate.PresentedAt)
	if drift < 0 {
		drift = -drift
	}
	if drift > s.window {
		miss.Context = fmt.Sprintf("presented %s outside the %s window", drift, s.window)
		return miss
	}

	return model.DismissalResult{
		ShouldDismiss: true,
		Strategy:      model.StrategyCategory,
		Confidence:    50,
		Context:       fmt.Sprintf("category %s within window", candidate.Category),
	}
}
