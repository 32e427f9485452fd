package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/constants"
	"github.com/stridehq/product-lifecycle-api/internal/mindmap"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
)

var (
	ErrMindMapNotFound      = errors.New("mind map not found")
	ErrMindMapTitleRequired = errors.New("title is required")
	ErrEmptyTree            = errors.New("tree root is required")
	ErrAIUnavailable        = errors.New("AI classification is not configured")
	ErrTooManyClassifyNodes = errors.New("too many nodes for classification")
)

// MindMapService handles mind-map persistence and graph/tree conversion.
type MindMapService struct {
	mindMapRepo   repository.MindMapRepository
	workspaceRepo repository.WorkspaceRepository
	teamRepo      repository.TeamRepository
	aiSvc         *AIService
}

// NewMindMapService creates a new MindMapService. aiSvc may be nil when no
// API key is configured.
func NewMindMapService(
	mindMapRepo repository.MindMapRepository,
	workspaceRepo repository.WorkspaceRepository,
	teamRepo repository.TeamRepository,
	aiSvc *AIService,
) *MindMapService {
	return &MindMapService{
		mindMapRepo:   mindMapRepo,
		workspaceRepo: workspaceRepo,
		teamRepo:      teamRepo,
		aiSvc:         aiSvc,
	}
}

// CreateMindMapInput represents input for creating a mind map.
type CreateMindMapInput struct {
	WorkspaceID uint64
	Title       string
	Nodes       []mindmap.Node
	Edges       []mindmap.Edge
	CreatorID   uint64
}

// CreateMindMap creates a mind map in a workspace, deriving the team from
// the workspace. The creator must be a member.
func (s *MindMapService) CreateMindMap(input CreateMindMapInput) (*models.MindMap, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrMindMapTitleRequired
	}

	workspace, err := s.workspaceRepo.FindByID(input.WorkspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	if err := s.ensureTeamMember(workspace.TeamID, input.CreatorID); err != nil {
		return nil, err
	}

	nodesJSON, edgesJSON, err := encodeGraph(input.Nodes, input.Edges)
	if err != nil {
		return nil, err
	}

	m := &models.MindMap{
		TeamID:      workspace.TeamID,
		WorkspaceID: workspace.ID,
		Title:       input.Title,
		Nodes:       nodesJSON,
		Edges:       edgesJSON,
		CreatorID:   input.CreatorID,
	}

	if err := s.mindMapRepo.Create(m); err != nil {
		return nil, fmt.Errorf("failed to create mind map: %w", err)
	}

	return m, nil
}

// GetMindMap returns a mind map by ID.
func (s *MindMapService) GetMindMap(mapID uint64) (*models.MindMap, error) {
	m, err := s.mindMapRepo.FindByID(mapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMindMapNotFound
		}
		return nil, fmt.Errorf("failed to find mind map: %w", err)
	}
	return m, nil
}

// ListMindMaps returns the workspace's mind maps, newest first. The actor
// must be a member of the workspace's team.
func (s *MindMapService) ListMindMaps(actorID, workspaceID uint64) ([]models.MindMap, error) {
	workspace, err := s.workspaceRepo.FindByID(workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	if err := s.ensureTeamMember(workspace.TeamID, actorID); err != nil {
		return nil, err
	}

	maps, err := s.mindMapRepo.ListByWorkspace(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mind maps: %w", err)
	}
	return maps, nil
}

// UpdateMindMapInput represents input for a partial mind-map update. Nodes
// and Edges replace the stored graph wholesale when present.
type UpdateMindMapInput struct {
	Title *string
	Nodes []mindmap.Node
	Edges []mindmap.Edge
	// ReplaceGraph distinguishes "replace with empty graph" from "leave
	// the graph alone".
	ReplaceGraph bool
}

// UpdateMindMap applies a partial update.
func (s *MindMapService) UpdateMindMap(mapID uint64, input UpdateMindMapInput) (*models.MindMap, error) {
	m, err := s.mindMapRepo.FindByID(mapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMindMapNotFound
		}
		return nil, fmt.Errorf("failed to find mind map: %w", err)
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrMindMapTitleRequired
		}
		m.Title = *input.Title
	}

	if input.ReplaceGraph {
		nodesJSON, edgesJSON, err := encodeGraph(input.Nodes, input.Edges)
		if err != nil {
			return nil, err
		}
		m.Nodes = nodesJSON
		m.Edges = edgesJSON
	}

	if err := s.mindMapRepo.Update(m); err != nil {
		return nil, fmt.Errorf("failed to update mind map: %w", err)
	}

	return m, nil
}

// DeleteMindMap removes a mind map.
func (s *MindMapService) DeleteMindMap(mapID uint64) error {
	if _, err := s.mindMapRepo.FindByID(mapID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMindMapNotFound
		}
		return fmt.Errorf("failed to find mind map: %w", err)
	}

	if err := s.mindMapRepo.Delete(mapID); err != nil {
		return fmt.Errorf("failed to delete mind map: %w", err)
	}
	return nil
}

// GetTree converts the stored graph into its tree form, reporting any
// structure lost in translation as warnings.
func (s *MindMapService) GetTree(mapID uint64) (*mindmap.TreeNode, []mindmap.Warning, error) {
	m, err := s.GetMindMap(mapID)
	if err != nil {
		return nil, nil, err
	}

	nodes, edges, err := decodeGraph(m)
	if err != nil {
		return nil, nil, err
	}

	root, warnings := mindmap.ToTree(nodes, edges)
	return root, warnings, nil
}

// ReplaceFromTree replaces the stored graph with the flattened form of the
// given tree.
func (s *MindMapService) ReplaceFromTree(mapID uint64, root *mindmap.TreeNode) (*models.MindMap, error) {
	if root == nil {
		return nil, ErrEmptyTree
	}

	m, err := s.GetMindMap(mapID)
	if err != nil {
		return nil, err
	}

	nodes, edges := mindmap.FromTree(root)
	nodesJSON, edgesJSON, err := encodeGraph(nodes, edges)
	if err != nil {
		return nil, err
	}

	m.Nodes = nodesJSON
	m.Edges = edgesJSON
	if err := s.mindMapRepo.Update(m); err != nil {
		return nil, fmt.Errorf("failed to update mind map: %w", err)
	}

	return m, nil
}

// ClassifyNodes asks the AI service to suggest a work-item type for each
// node in the map.
func (s *MindMapService) ClassifyNodes(ctx context.Context, mapID uint64) ([]TypeSuggestion, error) {
	if s.aiSvc == nil {
		return nil, ErrAIUnavailable
	}

	m, err := s.GetMindMap(mapID)
	if err != nil {
		return nil, err
	}

	nodes, _, err := decodeGraph(m)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return []TypeSuggestion{}, nil
	}
	if len(nodes) > constants.MaxClassifyNodes {
		return nil, ErrTooManyClassifyNodes
	}

	notes := make([]ClassifyNote, 0, len(nodes))
	for _, n := range nodes {
		notes = append(notes, ClassifyNote{ID: n.ID, Label: n.Label})
	}

	suggestions, err := s.aiSvc.ClassifyNotes(ctx, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to classify nodes: %w", err)
	}

	return suggestions, nil
}

func (s *MindMapService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func encodeGraph(nodes []mindmap.Node, edges []mindmap.Edge) (datatypes.JSON, datatypes.JSON, error) {
	if nodes == nil {
		nodes = []mindmap.Node{}
	}
	if edges == nil {
		edges = []mindmap.Edge{}
	}

	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode edges: %w", err)
	}
	return datatypes.JSON(nodesJSON), datatypes.JSON(edgesJSON), nil
}

func decodeGraph(m *models.MindMap) ([]mindmap.Node, []mindmap.Edge, error) {
	nodes := []mindmap.Node{}
	if len(m.Nodes) > 0 {
		if err := json.Unmarshal(m.Nodes, &nodes); err != nil {
			return nil, nil, fmt.Errorf("failed to decode nodes: %w", err)
		}
	}
	edges := []mindmap.Edge{}
	if len(m.Edges) > 0 {
		if err := json.Unmarshal(m.Edges, &edges); err != nil {
			return nil, nil, fmt.Errorf("failed to decode edges: %w", err)
		}
	}
	return nodes, edges, nil
}
