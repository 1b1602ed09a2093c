package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/audit"
	"github.com/leadpilot/outreach-router/internal/channel"
	"github.com/leadpilot/outreach-router/internal/config"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/policy"
	"github.com/leadpilot/outreach-router/internal/repository"
)

type routerService struct {
	repo        repository.Repository
	policies    *config.PolicyStore
	engine      *policy.Engine
	adapters    *channel.Registry
	breaker     *CircuitBreaker
	publisher   audit.Publisher
	redisClient *redis.Client
	logger      *zap.Logger
	maxAttempts int
	sendTimeout time.Duration
}

// NewRouterService builds the dispatch orchestrator. The policy store is
// injected and read once per batch, never cached across batches, so a
// hot-reloaded policy takes effect on the next cycle. redisClient may be
// nil; provider id caching is then skipped.
func NewRouterService(
	cfg *config.RouterConfig,
	repo repository.Repository,
	policies *config.PolicyStore,
	engine *policy.Engine,
	adapters *channel.Registry,
	publisher audit.Publisher,
	redisClient *redis.Client,
	logger *zap.Logger,
) RouterService {
	return &routerService{
		repo:        repo,
		policies:    policies,
		engine:      engine,
		adapters:    adapters,
		breaker:     NewCircuitBreaker(&cfg.CircuitBreaker, logger),
		publisher:   publisher,
		redisClient: redisClient,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		sendTimeout: time.Duration(cfg.SendTimeout) * time.Second,
	}
}

// ProcessApproved drains one batch of approved drafts. Every item is
// claimed with a compare-and-set before any work happens on it, so
// overlapping invocations, from this process or another instance, never
// dispatch the same approval twice. One bad item never aborts the batch.
func (s *routerService) ProcessApproved(ctx context.Context, maxBatchSize int) (BatchResult, error) {
	var result BatchResult

	approvals, err := s.repo.Approval().ListByStatus(models.ApprovalStatusApproved, maxBatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list approved drafts: %w", err)
	}

	if len(approvals) == 0 {
		return result, nil
	}

	s.logger.Info("Routing approved drafts", zap.Int("count", len(approvals)))

	pol := s.policies.Current()

	for _, approval := range approvals {
		// Cooperative cancellation between items. An item already
		// claimed and mid-send completes or times out on its own.
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		claimed, err := s.repo.Approval().TransitionStatus(approval.ID, models.ApprovalStatusApproved, models.ApprovalStatusSending)
		if err != nil {
			// Store trouble while claiming: leave the item untouched
			// for the next cycle.
			s.logger.Error("Failed to claim approval",
				zap.String("approvalID", approval.ID),
				zap.Error(err))
			continue
		}
		if !claimed {
			// Another router instance got here first.
			result.Skipped++
			continue
		}

		s.processClaimed(ctx, approval, pol, &result)
	}

	return result, nil
}

func (s *routerService) processClaimed(ctx context.Context, approval *models.Approval, pol models.SendPolicy, result *BatchResult) {
	decision, err := s.engine.Evaluate(approval, pol)
	if err != nil {
		// The gate could not run; releasing the claim puts the item
		// back for the next cycle rather than guessing an outcome.
		s.logger.Error("Policy evaluation failed, releasing claim",
			zap.String("approvalID", approval.ID),
			zap.Error(err))
		s.release(approval)
		return
	}

	if decision.Allowed {
		// The cap is taken as a reservation, not read and compared: the
		// slot is ours before the adapter runs and is handed back on any
		// outcome short of a successful send.
		decision, err = s.engine.ReserveCapSlot(pol)
		if err != nil {
			s.logger.Error("Cap reservation failed, releasing claim",
				zap.String("approvalID", approval.ID),
				zap.Error(err))
			s.release(approval)
			return
		}
	}

	if !decision.Allowed {
		blockedErr := &apperrors.PolicyBlockedError{Code: string(decision.Code), Reason: decision.Reason}
		if decision.Terminal() {
			// Compliance block: stands until a human re-approves.
			if err := s.repo.Approval().MarkFailed(approval.ID, models.ApprovalStatusBlocked, blockedErr.Error()); err != nil {
				s.logger.Error("Failed to mark approval blocked",
					zap.String("approvalID", approval.ID),
					zap.Error(err))
				return
			}
		} else {
			// Operational block (window, cap): the item stays approved
			// and clears on a later cycle without re-approval.
			s.release(approval)
		}
		s.recordEvent(approval, decision.EventType(), "", map[string]string{"reason": decision.Reason})
		result.Blocked++
		s.logger.Info("Dispatch blocked by policy",
			zap.String("approvalID", approval.ID),
			zap.String("code", string(decision.Code)),
			zap.String("reason", decision.Reason))
		return
	}

	adapter, ok := s.adapters.Get(approval.Channel)
	if !ok {
		s.returnCapSlot(approval, pol)
		s.failPermanently(approval, fmt.Sprintf("no adapter registered for channel %q", approval.Channel), result)
		return
	}

	s.recordEvent(approval, models.EventSendAttempted, "", map[string]string{
		"attempt": fmt.Sprintf("%d", approval.Attempts+1),
	})

	msg := channel.Message{
		To:       approval.DraftTo,
		Subject:  approval.Subject.String,
		Text:     approval.Text,
		Campaign: approval.Campaign.String,
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	var sendResult channel.SendResult
	err = s.breaker.Execute(sendCtx, func() error {
		r, sendErr := adapter.Send(sendCtx, msg)
		sendResult = r
		return sendErr
	})

	if err == nil {
		s.finishSent(approval, sendResult.MessageID, result)
		return
	}

	s.returnCapSlot(approval, pol)

	if apperrors.IsPermanent(err) {
		s.failPermanently(approval, err.Error(), result)
		return
	}

	// Transient: hand the item back for a future cycle until the retry
	// budget runs out.
	attempts := approval.Attempts + 1
	if attempts >= s.maxAttempts {
		s.failPermanently(approval, fmt.Sprintf("retry budget exhausted after %d attempts: %v", attempts, err), result)
		return
	}

	if updateErr := s.repo.Approval().ReleaseForRetry(approval.ID, attempts, err.Error()); updateErr != nil {
		s.logger.Error("Failed to release approval for retry",
			zap.String("approvalID", approval.ID),
			zap.Error(updateErr))
		return
	}
	s.recordEvent(approval, models.EventSendFailed, "", map[string]string{
		"error":   err.Error(),
		"attempt": fmt.Sprintf("%d", attempts),
	})
	result.Retried++
	s.logger.Warn("Transient send failure, will retry",
		zap.String("approvalID", approval.ID),
		zap.Int("attempt", attempts),
		zap.Error(err))
}

func (s *routerService) finishSent(approval *models.Approval, providerMessageID string, result *BatchResult) {
	if err := s.repo.Approval().MarkSent(approval.ID, providerMessageID); err != nil {
		// The message left the building but the status write failed.
		// The send_succeeded event below is the audit backstop; a
		// human resolves the row from it.
		s.logger.Error("Message sent but status write failed",
			zap.String("approvalID", approval.ID),
			zap.String("providerMessageID", providerMessageID),
			zap.Error(err))
	}
	s.recordEvent(approval, models.EventSendSucceeded, providerMessageID, map[string]string{
		"approval_id": approval.ID,
	})
	s.cacheProviderID(approval.ID, providerMessageID)
	result.Sent++
	s.logger.Info("Message dispatched",
		zap.String("approvalID", approval.ID),
		zap.String("channel", string(approval.Channel)),
		zap.String("providerMessageID", providerMessageID))
}

func (s *routerService) failPermanently(approval *models.Approval, reason string, result *BatchResult) {
	if err := s.repo.Approval().MarkFailed(approval.ID, models.ApprovalStatusFailedPermanent, reason); err != nil {
		s.logger.Error("Failed to mark approval failed",
			zap.String("approvalID", approval.ID),
			zap.Error(err))
		return
	}
	s.recordEvent(approval, models.EventSendFailedPermanent, "", map[string]string{
		"error":       reason,
		"approval_id": approval.ID,
	})
	result.Failed++
	s.logger.Error("Dispatch failed permanently",
		zap.String("approvalID", approval.ID),
		zap.String("reason", reason))
}

// returnCapSlot hands a reserved cap slot back when the send did not
// land. Failing to return it only under-uses the cap for the day; it is
// never a compliance breach, so an error is logged and swallowed.
func (s *routerService) returnCapSlot(approval *models.Approval, pol models.SendPolicy) {
	if err := s.engine.ReleaseCapSlot(pol); err != nil {
		s.logger.Error("Failed to return cap slot",
			zap.String("approvalID", approval.ID),
			zap.Error(err))
	}
}

// release undoes a claim after an infrastructure error so the item is
// retried on the next cycle with its attempt count untouched.
func (s *routerService) release(approval *models.Approval) {
	if _, err := s.repo.Approval().TransitionStatus(approval.ID, models.ApprovalStatusSending, models.ApprovalStatusApproved); err != nil {
		s.logger.Error("Failed to release claim",
			zap.String("approvalID", approval.ID),
			zap.Error(err))
	}
}

// recordEvent appends an audit row and mirrors it to the external stream.
// An append failure breaks the audit guarantee, so it is logged at error
// level with everything needed to reconstruct the row.
func (s *routerService) recordEvent(approval *models.Approval, eventType models.EventType, providerMessageID string, metadata map[string]string) {
	event := &models.EventRow{
		ID:       uuid.New().String(),
		LeadID:   approval.LeadID,
		Channel:  approval.Channel,
		Type:     eventType,
		Campaign: approval.Campaign,
	}
	if providerMessageID != "" {
		event.ProviderMessageID = sql.NullString{String: providerMessageID, Valid: true}
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			event.Metadata = raw
		}
	}

	if err := s.repo.Event().Append(event); err != nil {
		s.logger.Error("AUDIT APPEND FAILED",
			zap.String("approvalID", approval.ID),
			zap.String("eventType", string(eventType)),
			zap.String("providerMessageID", providerMessageID),
			zap.Any("metadata", metadata),
			zap.Error(err))
		return
	}

	if err := s.publisher.Publish(event); err != nil {
		s.logger.Warn("Failed to mirror event to audit stream",
			zap.String("eventID", event.ID),
			zap.Error(err))
	}
}

// cacheProviderID keeps a short-lived provider-id to approval mapping in
// Redis for delivery-status webhooks to correlate against. Best effort.
func (s *routerService) cacheProviderID(approvalID, providerMessageID string) {
	if s.redisClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("provider_message:%s", providerMessageID)
	value := fmt.Sprintf("%s:%s", approvalID, time.Now().Format(time.RFC3339))
	if err := s.redisClient.Set(ctx, key, value, 24*time.Hour).Err(); err != nil {
		s.logger.Warn("Failed to cache provider message id",
			zap.String("providerMessageID", providerMessageID),
			zap.Error(err))
	}
}

// BreakerStatus exposes circuit breaker state for the health surface.
func (s *routerService) BreakerStatus() (string, uint32, uint32) {
	requests, failures := s.breaker.Counts()
	return s.breaker.State(), requests, failures
}
