package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/cache"
	"github.com/stridehq/product-lifecycle-api/internal/constants"
	"github.com/stridehq/product-lifecycle-api/internal/logger"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
)

var (
	ErrStrategyNotFound      = errors.New("strategy not found")
	ErrStrategyTitleRequired = errors.New("title is required")
	ErrInvalidStrategyType   = errors.New("unknown strategy type")
	ErrInvalidStrategyStatus = errors.New("unknown strategy status")
	ErrInvalidProgressMode   = errors.New("unknown progress mode")
	ErrParentNotFound        = errors.New("parent strategy not found")
	ErrParentTeamMismatch    = errors.New("parent strategy belongs to a different team")
	ErrHierarchyViolation    = errors.New("child type must be strictly deeper than parent type")
	ErrSelfParent            = errors.New("a strategy cannot be its own parent")
	ErrCircularReference     = errors.New("reparenting would create a cycle")
	ErrWorkItemTeamMismatch  = errors.New("work item does not belong to the same team")
	ErrInvalidStrength       = errors.New("unknown alignment strength")
	ErrAlignmentNotFound     = errors.New("alignment not found")
	ErrHierarchyTooDeep      = errors.New("ancestor chain exceeds the supported depth")
)

// StrategyService handles the 4-level strategy hierarchy, alignments and
// progress rollup.
type StrategyService struct {
	strategyRepo repository.StrategyRepository
	workItemRepo repository.WorkItemRepository
	teamRepo     repository.TeamRepository
	treeCache    *cache.TreeCache
	log          *logger.Logger
}

// NewStrategyService creates a new StrategyService. treeCache may be nil.
func NewStrategyService(
	strategyRepo repository.StrategyRepository,
	workItemRepo repository.WorkItemRepository,
	teamRepo repository.TeamRepository,
	treeCache *cache.TreeCache,
	log *logger.Logger,
) *StrategyService {
	return &StrategyService{
		strategyRepo: strategyRepo,
		workItemRepo: workItemRepo,
		teamRepo:     teamRepo,
		treeCache:    treeCache,
		log:          log,
	}
}

// CreateStrategyInput represents input for creating a strategy.
type CreateStrategyInput struct {
	TeamID        uint64
	WorkspaceID   *uint64
	ParentID      *uint64
	Type          models.StrategyType
	Title         string
	Description   string
	Status        models.StrategyStatus
	ProgressMode  models.ProgressMode
	MetricName    string
	MetricUnit    string
	MetricTarget  *float64
	MetricCurrent *float64
	SortIndex     int
	CreatorID     uint64
}

// CreateStrategy creates a strategy node, validating the parent relation.
func (s *StrategyService) CreateStrategy(input CreateStrategyInput) (*models.Strategy, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrStrategyTitleRequired
	}
	if !models.ValidStrategyType(input.Type) {
		return nil, ErrInvalidStrategyType
	}
	if input.Status == "" {
		input.Status = models.StrategyDraft
	}
	if !models.ValidStrategyStatus(input.Status) {
		return nil, ErrInvalidStrategyStatus
	}
	if input.ProgressMode == "" {
		input.ProgressMode = models.ProgressAuto
	}
	if input.ProgressMode != models.ProgressAuto && input.ProgressMode != models.ProgressManual {
		return nil, ErrInvalidProgressMode
	}

	if err := s.ensureTeamMember(input.TeamID, input.CreatorID); err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if err := s.validateParent(*input.ParentID, input.TeamID, input.Type); err != nil {
			return nil, err
		}
	}

	strategy := &models.Strategy{
		TeamID:        input.TeamID,
		WorkspaceID:   input.WorkspaceID,
		ParentID:      input.ParentID,
		Type:          input.Type,
		Title:         input.Title,
		Description:   input.Description,
		Status:        input.Status,
		ProgressMode:  input.ProgressMode,
		MetricName:    input.MetricName,
		MetricUnit:    input.MetricUnit,
		MetricTarget:  input.MetricTarget,
		MetricCurrent: input.MetricCurrent,
		SortIndex:     input.SortIndex,
		CreatorID:     input.CreatorID,
	}

	if err := s.strategyRepo.Create(strategy); err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}

	s.invalidateTree(strategy.TeamID)
	if strategy.ParentID != nil {
		s.RecalculateProgress(*strategy.ParentID)
	}

	return strategy, nil
}

// GetStrategy returns a strategy with related data.
func (s *StrategyService) GetStrategy(strategyID uint64) (*models.Strategy, error) {
	strategy, err := s.strategyRepo.FindByID(strategyID, "Parent", "Children")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("failed to find strategy: %w", err)
	}

	return strategy, nil
}

// ListStrategies returns a flat, ordered list for the team.
func (s *StrategyService) ListStrategies(actorID uint64, filter repository.StrategyFilter) ([]models.Strategy, error) {
	if err := s.ensureTeamMember(filter.TeamID, actorID); err != nil {
		return nil, err
	}

	strategies, err := s.strategyRepo.ListByTeam(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	return strategies, nil
}

// UpdateStrategyInput represents input for a partial strategy update.
type UpdateStrategyInput struct {
	Title         *string
	Description   *string
	Status        *models.StrategyStatus
	ParentID      *uint64
	ClearParent   bool
	ProgressMode  *models.ProgressMode
	Progress      *float64
	MetricName    *string
	MetricUnit    *string
	MetricTarget  *float64
	MetricCurrent *float64
	SortIndex     *int
}

// UpdateStrategy applies a partial update. Reparenting revalidates the
// hierarchy rule and rejects cycles.
func (s *StrategyService) UpdateStrategy(strategyID uint64, input UpdateStrategyInput) (*models.Strategy, error) {
	strategy, err := s.strategyRepo.FindByID(strategyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("failed to find strategy: %w", err)
	}

	prevParent := strategy.ParentID

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrStrategyTitleRequired
		}
		strategy.Title = *input.Title
	}
	if input.Description != nil {
		strategy.Description = *input.Description
	}
	if input.Status != nil {
		if !models.ValidStrategyStatus(*input.Status) {
			return nil, ErrInvalidStrategyStatus
		}
		strategy.Status = *input.Status
	}
	if input.ClearParent {
		strategy.ParentID = nil
	} else if input.ParentID != nil {
		if *input.ParentID == strategy.ID {
			return nil, ErrSelfParent
		}
		if err := s.validateParent(*input.ParentID, strategy.TeamID, strategy.Type); err != nil {
			return nil, err
		}
		if err := s.ensureNoCycle(strategy.ID, *input.ParentID); err != nil {
			return nil, err
		}
		strategy.ParentID = input.ParentID
	}
	if input.ProgressMode != nil {
		if *input.ProgressMode != models.ProgressAuto && *input.ProgressMode != models.ProgressManual {
			return nil, ErrInvalidProgressMode
		}
		strategy.ProgressMode = *input.ProgressMode
	}
	if input.Progress != nil {
		strategy.CalculatedProgress = clampProgress(*input.Progress)
	}
	if input.MetricName != nil {
		strategy.MetricName = *input.MetricName
	}
	if input.MetricUnit != nil {
		strategy.MetricUnit = *input.MetricUnit
	}
	if input.MetricTarget != nil {
		strategy.MetricTarget = input.MetricTarget
	}
	if input.MetricCurrent != nil {
		strategy.MetricCurrent = input.MetricCurrent
	}
	if input.SortIndex != nil {
		strategy.SortIndex = *input.SortIndex
	}

	if err := s.strategyRepo.Update(strategy); err != nil {
		return nil, fmt.Errorf("failed to update strategy: %w", err)
	}

	s.invalidateTree(strategy.TeamID)
	s.RecalculateProgress(strategy.ID)
	if prevParent != nil && (strategy.ParentID == nil || *prevParent != *strategy.ParentID) {
		s.RecalculateProgress(*prevParent)
	}

	return strategy, nil
}

// DeleteStrategy removes a strategy subtree.
func (s *StrategyService) DeleteStrategy(strategyID uint64) error {
	strategy, err := s.strategyRepo.FindByID(strategyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStrategyNotFound
		}
		return fmt.Errorf("failed to find strategy: %w", err)
	}

	if err := s.strategyRepo.Delete(strategyID); err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}

	s.invalidateTree(strategy.TeamID)
	if strategy.ParentID != nil {
		s.RecalculateProgress(*strategy.ParentID)
	}

	return nil
}

// StrategyTreeNode is one node of the assembled hierarchy, JSON-stable for
// both API responses and the redis cache.
type StrategyTreeNode struct {
	ID                 uint64                `json:"id"`
	TeamID             uint64                `json:"team_id"`
	WorkspaceID        *uint64               `json:"workspace_id"`
	ParentID           *uint64               `json:"parent_id"`
	Type               models.StrategyType   `json:"type"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Status             models.StrategyStatus `json:"status"`
	ProgressMode       models.ProgressMode   `json:"progress_mode"`
	CalculatedProgress float64               `json:"calculated_progress"`
	MetricName         string                `json:"metric_name,omitempty"`
	MetricUnit         string                `json:"metric_unit,omitempty"`
	MetricTarget       *float64              `json:"metric_target,omitempty"`
	MetricCurrent      *float64              `json:"metric_current,omitempty"`
	SortIndex          int                   `json:"sort_index"`
	Children           []*StrategyTreeNode   `json:"children"`
}

type strategyTreePayload struct {
	Data       []*StrategyTreeNode `json:"data"`
	TotalCount int                 `json:"total_count"`
}

// GetTree returns the team's strategy hierarchy as nested roots, serving
// from the redis cache when possible.
func (s *StrategyService) GetTree(ctx context.Context, actorID uint64, filter repository.StrategyFilter) ([]*StrategyTreeNode, int, error) {
	if err := s.ensureTeamMember(filter.TeamID, actorID); err != nil {
		return nil, 0, err
	}

	variant := treeVariant(filter)
	if payload, ok := s.treeCache.Get(ctx, filter.TeamID, variant); ok {
		var cached strategyTreePayload
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached.Data, cached.TotalCount, nil
		}
		s.log.Warn("discarding undecodable strategy tree cache entry", "team_id", filter.TeamID)
	}

	strategies, err := s.strategyRepo.ListByTeam(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list strategies: %w", err)
	}

	roots := buildStrategyTree(strategies)

	if payload, err := json.Marshal(strategyTreePayload{Data: roots, TotalCount: len(strategies)}); err == nil {
		s.treeCache.Set(ctx, filter.TeamID, variant, payload)
	}

	return roots, len(strategies), nil
}

// buildStrategyTree assembles nested roots from a flat, pre-ordered list.
// Nodes whose parent is filtered out are promoted to roots.
func buildStrategyTree(strategies []models.Strategy) []*StrategyTreeNode {
	byID := make(map[uint64]*StrategyTreeNode, len(strategies))
	for i := range strategies {
		st := strategies[i]
		byID[st.ID] = &StrategyTreeNode{
			ID:                 st.ID,
			TeamID:             st.TeamID,
			WorkspaceID:        st.WorkspaceID,
			ParentID:           st.ParentID,
			Type:               st.Type,
			Title:              st.Title,
			Description:        st.Description,
			Status:             st.Status,
			ProgressMode:       st.ProgressMode,
			CalculatedProgress: st.CalculatedProgress,
			MetricName:         st.MetricName,
			MetricUnit:         st.MetricUnit,
			MetricTarget:       st.MetricTarget,
			MetricCurrent:      st.MetricCurrent,
			SortIndex:          st.SortIndex,
			Children:           []*StrategyTreeNode{},
		}
	}

	roots := make([]*StrategyTreeNode, 0)
	for i := range strategies {
		node := byID[strategies[i].ID]
		if node.ParentID != nil {
			if parent, ok := byID[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}

func treeVariant(filter repository.StrategyFilter) string {
	ws := "all"
	if filter.WorkspaceID != nil {
		ws = fmt.Sprintf("%d", *filter.WorkspaceID)
	}
	status := "any"
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	return fmt.Sprintf("ws=%s:status=%s:completed=%t", ws, status, filter.IncludeCompleted)
}

// AlignInput represents input for aligning a work item to a strategy.
type AlignInput struct {
	StrategyID uint64
	WorkItemID uint64
	Strength   models.AlignmentStrength
	IsPrimary  bool
	Notes      string
}

// AlignResult reports whether the alignment was newly created.
type AlignResult struct {
	Created bool
}

// AlignWorkItem aligns a work item to a strategy. A primary alignment sets
// the work item's strategy_id, demoting any previous primary to an
// additional alignment; otherwise an additional alignment row is upserted.
func (s *StrategyService) AlignWorkItem(input AlignInput) (*AlignResult, error) {
	strategy, err := s.strategyRepo.FindByID(input.StrategyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("failed to find strategy: %w", err)
	}

	item, err := s.workItemRepo.FindByID(input.WorkItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkItemNotFound
		}
		return nil, fmt.Errorf("failed to find work item: %w", err)
	}

	if strategy.TeamID != item.TeamID {
		return nil, ErrWorkItemTeamMismatch
	}

	if input.Strength == "" {
		input.Strength = models.StrengthModerate
	}
	if !models.ValidAlignmentStrength(input.Strength) {
		return nil, ErrInvalidStrength
	}

	created := false

	if input.IsPrimary {
		prevPrimary := item.StrategyID
		if prevPrimary == nil || *prevPrimary != strategy.ID {
			created = true
		}

		item.StrategyID = &strategy.ID
		if err := s.workItemRepo.Update(item); err != nil {
			return nil, fmt.Errorf("failed to set primary alignment: %w", err)
		}

		// The displaced primary survives as an additional alignment.
		if prevPrimary != nil && *prevPrimary != strategy.ID {
			demoted := &models.StrategyAlignment{
				StrategyID: *prevPrimary,
				WorkItemID: item.ID,
				Strength:   models.StrengthModerate,
			}
			if err := s.strategyRepo.UpsertAlignment(demoted); err != nil {
				return nil, fmt.Errorf("failed to demote previous primary alignment: %w", err)
			}
		}

		// A matching additional row would be redundant with the primary.
		if err := s.strategyRepo.RemoveAlignment(strategy.ID, item.ID); err != nil {
			return nil, fmt.Errorf("failed to drop redundant alignment: %w", err)
		}

		if prevPrimary != nil && *prevPrimary != strategy.ID {
			s.RecalculateProgress(*prevPrimary)
		}
	} else {
		if _, err := s.strategyRepo.FindAlignment(strategy.ID, item.ID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check alignment: %w", err)
			}
			created = true
		}

		alignment := &models.StrategyAlignment{
			StrategyID: strategy.ID,
			WorkItemID: item.ID,
			Strength:   input.Strength,
			Notes:      input.Notes,
		}
		if err := s.strategyRepo.UpsertAlignment(alignment); err != nil {
			return nil, fmt.Errorf("failed to upsert alignment: %w", err)
		}
	}

	s.invalidateTree(strategy.TeamID)
	s.RecalculateProgress(strategy.ID)

	return &AlignResult{Created: created}, nil
}

// UnalignWorkItem removes an alignment between a strategy and a work item,
// whether primary or additional.
func (s *StrategyService) UnalignWorkItem(strategyID, workItemID uint64) error {
	strategy, err := s.strategyRepo.FindByID(strategyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStrategyNotFound
		}
		return fmt.Errorf("failed to find strategy: %w", err)
	}

	item, err := s.workItemRepo.FindByID(workItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkItemNotFound
		}
		return fmt.Errorf("failed to find work item: %w", err)
	}

	removed := false

	if item.StrategyID != nil && *item.StrategyID == strategyID {
		item.StrategyID = nil
		if err := s.workItemRepo.Update(item); err != nil {
			return fmt.Errorf("failed to clear primary alignment: %w", err)
		}
		removed = true
	}

	if _, err := s.strategyRepo.FindAlignment(strategyID, workItemID); err == nil {
		if err := s.strategyRepo.RemoveAlignment(strategyID, workItemID); err != nil {
			return fmt.Errorf("failed to remove alignment: %w", err)
		}
		removed = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check alignment: %w", err)
	}

	if !removed {
		return ErrAlignmentNotFound
	}

	s.invalidateTree(strategy.TeamID)
	s.RecalculateProgress(strategyID)

	return nil
}

// ListAlignedWorkItems returns the strategy's aligned work items, primary
// first, deduplicated.
func (s *StrategyService) ListAlignedWorkItems(strategyID uint64) ([]models.WorkItem, error) {
	if _, err := s.strategyRepo.FindByID(strategyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStrategyNotFound
		}
		return nil, fmt.Errorf("failed to find strategy: %w", err)
	}

	items, err := s.strategyRepo.ListAlignedWorkItems(strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list aligned work items: %w", err)
	}
	return items, nil
}

// RecalculateProgress recomputes the strategy's progress and propagates the
// result up the ancestor chain. Best effort: failures are logged, not
// returned, since rollup must never fail the triggering mutation.
func (s *StrategyService) RecalculateProgress(strategyID uint64) {
	id := strategyID
	for steps := 0; steps < constants.MaxHierarchyWalk; steps++ {
		strategy, err := s.strategyRepo.FindByID(id)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warn("progress rollup aborted", "strategy_id", id, "error", err)
			}
			return
		}

		progress, err := s.computeProgress(strategy)
		if err != nil {
			s.log.Warn("progress computation failed", "strategy_id", id, "error", err)
			return
		}

		if progress != strategy.CalculatedProgress {
			if err := s.strategyRepo.UpdateProgress(id, progress); err != nil {
				s.log.Warn("progress write failed", "strategy_id", id, "error", err)
				return
			}
			s.invalidateTree(strategy.TeamID)
		}

		if strategy.ParentID == nil {
			return
		}
		id = *strategy.ParentID
	}

	s.log.Warn("progress rollup hit the ancestor walk limit", "strategy_id", strategyID)
}

func (s *StrategyService) computeProgress(strategy *models.Strategy) (float64, error) {
	if strategy.ProgressMode == models.ProgressManual {
		if strategy.MetricTarget != nil && *strategy.MetricTarget > 0 && strategy.MetricCurrent != nil {
			return clampProgress(*strategy.MetricCurrent / *strategy.MetricTarget * 100), nil
		}
		return strategy.CalculatedProgress, nil
	}

	children, err := s.strategyRepo.ListChildren(strategy.ID)
	if err != nil {
		return 0, err
	}
	if len(children) > 0 {
		var sum float64
		for _, c := range children {
			sum += c.CalculatedProgress
		}
		return clampProgress(sum / float64(len(children))), nil
	}

	items, err := s.strategyRepo.ListAlignedWorkItems(strategy.ID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	complete := 0
	for _, it := range items {
		if it.Status.IsComplete() {
			complete++
		}
	}
	return clampProgress(float64(complete) / float64(len(items)) * 100), nil
}

// validateParent checks existence, tenant and the strict type-depth rule.
func (s *StrategyService) validateParent(parentID, teamID uint64, childType models.StrategyType) error {
	parent, err := s.strategyRepo.FindByID(parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParentNotFound
		}
		return fmt.Errorf("failed to find parent strategy: %w", err)
	}

	if parent.TeamID != teamID {
		return ErrParentTeamMismatch
	}

	parentDepth, ok := parent.Type.Depth()
	if !ok {
		return ErrInvalidStrategyType
	}
	childDepth, ok := childType.Depth()
	if !ok {
		return ErrInvalidStrategyType
	}
	if childDepth <= parentDepth {
		return ErrHierarchyViolation
	}

	return nil
}

// ensureNoCycle walks the ancestor chain from the proposed parent to the
// root, rejecting the move if the node itself appears in the chain.
func (s *StrategyService) ensureNoCycle(strategyID, newParentID uint64) error {
	current := newParentID
	for steps := 0; steps < constants.MaxHierarchyWalk; steps++ {
		if current == strategyID {
			return ErrCircularReference
		}

		ancestor, err := s.strategyRepo.FindByID(current)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to walk ancestor chain: %w", err)
		}
		if ancestor.ParentID == nil {
			return nil
		}
		current = *ancestor.ParentID
	}

	return ErrHierarchyTooDeep
}

func (s *StrategyService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func (s *StrategyService) invalidateTree(teamID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.treeCache.InvalidateTeam(ctx, teamID)
}

func clampProgress(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
