// internal/services/assignment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/metrics"
	"github.com/javajoker/servicemart-backend/internal/models"
)

// Partner selection strategies.
const (
	StrategyRandom      = "random"
	StrategyRoundRobin  = "round_robin"
	StrategyRatingBased = "rating_based"
	StrategyCombined    = "combined"
)

func IsAssignmentStrategy(name string) bool {
	switch name {
	case StrategyRandom, StrategyRoundRobin, StrategyRatingBased, StrategyCombined:
		return true
	}
	return false
}

type AssignmentService struct {
	db            *gorm.DB
	config        *config.Config
	settings      *AdminService
	notifications *NotificationService
	outbox        *EmailOutbox
	intn          func(n int) int
}

type AssignPartnerRequest struct {
	PartnerID uuid.UUID `json:"partner_id" validate:"required"`
	ServiceID uuid.UUID `json:"service_id" validate:"required"`
}

type AssignmentFilter struct {
	ServiceID *uuid.UUID
	PartnerID *uuid.UUID
	Status    models.AssignmentStatus
}

// candidate is one eligible assignment with the signals the strategies rank by.
type candidate struct {
	AssignmentID uuid.UUID
	PartnerID    uuid.UUID
	CreatedAt    time.Time
	LastAssigned *time.Time
	Rating       float64
}

func NewAssignmentService(db *gorm.DB, cfg *config.Config, settings *AdminService, notifications *NotificationService, outbox *EmailOutbox) *AssignmentService {
	return &AssignmentService{
		db:            db,
		config:        cfg,
		settings:      settings,
		notifications: notifications,
		outbox:        outbox,
		intn:          rand.Intn,
	}
}

// AssignPartnerToService makes a partner available to fulfil a service. The
// commission type mirrors the partner type.
func (s *AssignmentService) AssignPartnerToService(ctx context.Context, req *AssignPartnerRequest) (*models.ServicePartnerAssignment, error) {
	if req.PartnerID == uuid.Nil || req.ServiceID == uuid.Nil {
		return nil, validationError("partner_id and service_id are required")
	}

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	var assignment *models.ServicePartnerAssignment
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var partner models.Partner
		if err := tx.First(&partner, "id = ?", req.PartnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrInvalidReference, "invalid partner or service")
			}
			return err
		}
		if err := requireService(tx, req.ServiceID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.ServicePartnerAssignment{}).
			Where("partner_id = ? AND service_id = ? AND status = ?", req.PartnerID, req.ServiceID, models.AssignmentStatusAvailable).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return newError(ErrDuplicate, "partner is already available for this service")
		}

		assignment = &models.ServicePartnerAssignment{
			ServiceID:      req.ServiceID,
			PartnerID:      req.PartnerID,
			Status:         models.AssignmentStatusAvailable,
			CommissionType: partner.PartnerType,
		}
		return tx.Create(assignment).Error
	})
	if err != nil {
		return nil, classifyWriteError(ctx, err, constraintMessages{
			Duplicate: "partner is already available for this service",
			Reference: "invalid partner or service",
			Check:     "validation failed",
		})
	}

	return assignment, nil
}

// SelectPartnerForService picks a partner among the service's available
// assignments whose partner is approved. It returns nil when there is none.
func (s *AssignmentService) SelectPartnerForService(ctx context.Context, serviceID uuid.UUID) (*uuid.UUID, error) {
	strategy := s.Strategy(ctx)
	chosen, err := s.selectCandidate(s.db.WithContext(ctx), serviceID, strategy, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select partner: %w", err)
	}
	if chosen == nil {
		return nil, nil
	}
	return &chosen.PartnerID, nil
}

// AssignServiceToPartner assigns a pending order to a selected partner. The
// order update and the assignment update commit together; when no partner is
// eligible it returns false and leaves the order unchanged.
func (s *AssignmentService) AssignServiceToPartner(ctx context.Context, orderID, serviceID uuid.UUID) (bool, error) {
	strategy := s.Strategy(ctx)

	ctx, cancel := boundedContext(ctx, s.config.Workflow.WriteTimeout)
	defer cancel()

	var chosen *candidate
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			return lookupError(err, "order")
		}
		if order.ServiceID != serviceID {
			return validationError("order %s is not for service %s", orderID, serviceID)
		}
		if order.Status != models.OrderStatusPending {
			return newError(ErrInvalidTransition, fmt.Sprintf("cannot assign an order in status %s", order.Status))
		}

		var err error
		chosen, err = s.selectCandidate(tx, serviceID, strategy, true)
		if err != nil || chosen == nil {
			return err
		}

		now := time.Now().UTC()
		claim := tx.Model(&models.ServicePartnerAssignment{}).
			Where("id = ? AND status = ?", chosen.AssignmentID, models.AssignmentStatusAvailable).
			Updates(map[string]interface{}{
				"status":        models.AssignmentStatusAssigned,
				"order_id":      orderID,
				"assigned_date": &now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return newError(ErrInvalidTransition, "selected assignment is no longer available")
		}

		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":        models.OrderStatusAssigned,
			"partner_id":    chosen.PartnerID,
			"assignment_id": chosen.AssignmentID,
			"assigned_at":   &now,
		}).Error; err != nil {
			return err
		}
		order.Status = models.OrderStatusAssigned
		order.PartnerID = &chosen.PartnerID

		return s.notifyAssigned(tx, &order)
	})
	if err != nil {
		metrics.RecordOrderAssignment(strategy, false)
		return false, classifyWriteError(ctx, err, defaultConstraintMessages)
	}

	metrics.RecordOrderAssignment(strategy, chosen != nil)
	if chosen == nil {
		logrus.WithFields(logrus.Fields{
			"order_id":   orderID,
			"service_id": serviceID,
			"strategy":   strategy,
		}).Info("no eligible partner for order")
		return false, nil
	}

	logrus.WithFields(logrus.Fields{
		"order_id":      orderID,
		"partner_id":    chosen.PartnerID,
		"assignment_id": chosen.AssignmentID,
		"strategy":      strategy,
	}).Info("order assigned to partner")
	return true, nil
}

func (s *AssignmentService) notifyAssigned(tx *gorm.DB, order *models.Order) error {
	if s.notifications == nil {
		return nil
	}

	var partner models.Partner
	if err := tx.First(&partner, "id = ?", *order.PartnerID).Error; err != nil {
		return err
	}
	var service models.Service
	if err := tx.Select("id", "title").First(&service, "id = ?", order.ServiceID).Error; err != nil {
		return err
	}

	if partner.UserID != nil {
		if _, err := s.notifications.Notify(tx, NotificationInput{
			UserID:              *partner.UserID,
			Type:                NotificationTypeOrderAssigned,
			Title:               "New order assigned",
			Message:             fmt.Sprintf("An order for %q has been assigned to you.", service.Title),
			Priority:            models.ImportanceHigh,
			RelatedResourceType: "order",
			RelatedResourceID:   &order.ID,
		}); err != nil {
			return err
		}
	}

	if s.outbox == nil {
		return nil
	}
	msg, err := s.notifications.OrderAssignedEmail(partner.ContactEmail, order, service.Title)
	if err != nil {
		return err
	}
	_, err = s.outbox.Enqueue(tx, msg, EmailRef{Kind: EmailKindOrder, ResourceType: "order", ResourceID: &order.ID}, false)
	return err
}

// CompleteAssignment marks an assigned assignment completed.
func (s *AssignmentService) CompleteAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.ServicePartnerAssignment, error) {
	var assignment models.ServicePartnerAssignment
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := completeAssignment(tx, assignmentID); err != nil {
			return err
		}
		return tx.First(&assignment, "id = ?", assignmentID).Error
	})
	if err != nil {
		return nil, classifyDBError(err, defaultConstraintMessages)
	}
	return &assignment, nil
}

func completeAssignment(tx *gorm.DB, assignmentID uuid.UUID) error {
	var assignment models.ServicePartnerAssignment
	if err := tx.First(&assignment, "id = ?", assignmentID).Error; err != nil {
		return lookupError(err, "assignment")
	}
	if assignment.Status != models.AssignmentStatusAssigned {
		return newError(ErrInvalidTransition,
			fmt.Sprintf("cannot complete an assignment in status %s", assignment.Status))
	}
	now := time.Now().UTC()
	return tx.Model(&assignment).Updates(map[string]interface{}{
		"status":          models.AssignmentStatusCompleted,
		"completion_date": &now,
	}).Error
}

func (s *AssignmentService) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.ServicePartnerAssignment, error) {
	query := s.db.WithContext(ctx).Preload("Partner").Preload("Service")
	if filter.ServiceID != nil {
		query = query.Where("service_id = ?", *filter.ServiceID)
	}
	if filter.PartnerID != nil {
		query = query.Where("partner_id = ?", *filter.PartnerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assignments []models.ServicePartnerAssignment
	if err := query.Order("created_at DESC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// Strategy returns the configured selection strategy, preferring the admin
// setting over the environment default.
func (s *AssignmentService) Strategy(ctx context.Context) string {
	strategy := s.config.Workflow.AssignmentStrategy
	if s.settings != nil {
		strategy = s.settings.StringSetting(ctx, SettingCategoryAssignment, SettingKeyStrategy, strategy)
	}
	if !IsAssignmentStrategy(strategy) {
		logrus.WithField("strategy", strategy).Warn("unknown assignment strategy, using random")
		return StrategyRandom
	}
	return strategy
}

func (s *AssignmentService) selectCandidate(db *gorm.DB, serviceID uuid.UUID, strategy string, lock bool) (*candidate, error) {
	candidates, err := loadCandidates(db, serviceID, lock)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	switch strategy {
	case StrategyRoundRobin, StrategyRatingBased, StrategyCombined:
		if err := loadSignals(db, candidates); err != nil {
			return nil, err
		}
		rankCandidates(candidates, strategy)
		return &candidates[0], nil
	default:
		return &candidates[s.intn(len(candidates))], nil
	}
}

// loadCandidates returns one candidate per eligible partner, keeping the
// partner's oldest available assignment.
func loadCandidates(db *gorm.DB, serviceID uuid.UUID, lock bool) ([]candidate, error) {
	query := eligibleAssignments(db, serviceID).
		Select("service_partner_assignments.id AS assignment_id, service_partner_assignments.partner_id, service_partner_assignments.created_at").
		Order("service_partner_assignments.created_at ASC")
	if lock {
		query = query.Clauses(clause.Locking{
			Strength: "UPDATE",
			Table:    clause.Table{Name: "service_partner_assignments"},
			Options:  "SKIP LOCKED",
		})
	}

	var rows []candidate
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(rows))
	candidates := rows[:0]
	for _, row := range rows {
		if seen[row.PartnerID] {
			continue
		}
		seen[row.PartnerID] = true
		candidates = append(candidates, row)
	}
	return candidates, nil
}

// loadSignals fills in each candidate's most recent assignment time and its
// average trial rating.
func loadSignals(db *gorm.DB, candidates []candidate) error {
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.PartnerID)
	}

	var history []models.ServicePartnerAssignment
	if err := db.Session(&gorm.Session{NewDB: true}).
		Select("partner_id", "assigned_date").
		Where("partner_id IN ? AND assigned_date IS NOT NULL", ids).
		Find(&history).Error; err != nil {
		return err
	}
	last := make(map[uuid.UUID]time.Time)
	for _, h := range history {
		if t, ok := last[h.PartnerID]; !ok || h.AssignedDate.After(t) {
			last[h.PartnerID] = *h.AssignedDate
		}
	}

	var trials []models.TrialService
	if err := db.Session(&gorm.Session{NewDB: true}).
		Select("partner_id", "quality_rating", "response_rating").
		Where("partner_id IN ? AND status = ?", ids, models.TrialStatusCompleted).
		Find(&trials).Error; err != nil {
		return err
	}
	sums := make(map[uuid.UUID]float64)
	counts := make(map[uuid.UUID]int)
	for _, t := range trials {
		for _, r := range []*int{t.QualityRating, t.ResponseRating} {
			if r != nil {
				sums[t.PartnerID] += float64(*r)
				counts[t.PartnerID]++
			}
		}
	}

	for i := range candidates {
		id := candidates[i].PartnerID
		if t, ok := last[id]; ok {
			candidates[i].LastAssigned = &t
		}
		if counts[id] > 0 {
			candidates[i].Rating = sums[id] / float64(counts[id])
		}
	}
	return nil
}

// rankCandidates orders candidates best first. Ties keep assignment age order.
func rankCandidates(candidates []candidate, strategy string) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch strategy {
		case StrategyRoundRobin:
			return assignedBefore(a, b)
		case StrategyRatingBased:
			return a.Rating > b.Rating
		default:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return assignedBefore(a, b)
		}
	})
}

// assignedBefore reports whether a was assigned less recently than b.
// Never-assigned partners come first.
func assignedBefore(a, b candidate) bool {
	switch {
	case a.LastAssigned == nil && b.LastAssigned == nil:
		return false
	case a.LastAssigned == nil:
		return true
	case b.LastAssigned == nil:
		return false
	default:
		return a.LastAssigned.Before(*b.LastAssigned)
	}
}
