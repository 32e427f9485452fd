package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/constants"
	"github.com/stridehq/product-lifecycle-api/internal/mindmap"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
)

// MindMapServiceTestSuite defines the test suite for MindMapService
type MindMapServiceTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc *MindMapService

	owner *models.User
	team  *models.Team
	ws    *models.Workspace
}

// SetupTest runs before each test
func (suite *MindMapServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Workspace{},
		&models.MindMap{},
	)
	suite.Require().NoError(err)

	suite.svc = NewMindMapService(
		repository.NewMindMapRepository(suite.db),
		repository.NewWorkspaceRepository(suite.db),
		repository.NewTeamRepository(suite.db),
		nil,
	)

	suite.owner = &models.User{Email: "owner@example.com", PasswordHash: "hashedpassword"}
	suite.db.Create(suite.owner)

	suite.team = &models.Team{Name: "Acme", Plan: models.PlanFree, InviteCode: "ACME_CODE"}
	suite.db.Create(suite.team)
	suite.db.Create(&models.TeamMember{TeamID: suite.team.ID, UserID: suite.owner.ID, Role: models.RoleOwner})

	suite.ws = &models.Workspace{TeamID: suite.team.ID, Name: "Ideation", Mode: models.ModeDesign}
	suite.db.Create(suite.ws)
}

// TearDownTest runs after each test
func (suite *MindMapServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *MindMapServiceTestSuite) createMap(nodes []mindmap.Node, edges []mindmap.Edge) *models.MindMap {
	m, err := suite.svc.CreateMindMap(CreateMindMapInput{
		WorkspaceID: suite.ws.ID,
		Title:       "Brainstorm",
		Nodes:       nodes,
		Edges:       edges,
		CreatorID:   suite.owner.ID,
	})
	suite.Require().NoError(err)
	return m
}

// TestCreateMindMap tests creation with team derivation and membership
func (suite *MindMapServiceTestSuite) TestCreateMindMap() {
	m := suite.createMap(nil, nil)
	suite.Equal(suite.team.ID, m.TeamID)
	suite.JSONEq(`[]`, string(m.Nodes))
	suite.JSONEq(`[]`, string(m.Edges))

	// non-members cannot create maps in the workspace
	stranger := &models.User{Email: "stranger@example.com", PasswordHash: "hashedpassword"}
	suite.db.Create(stranger)

	_, err := suite.svc.CreateMindMap(CreateMindMapInput{
		WorkspaceID: suite.ws.ID,
		Title:       "Sneaky",
		CreatorID:   stranger.ID,
	})
	suite.ErrorIs(err, ErrNotTeamMember)
}

// TestGetTree tests graph decoding and conversion with warnings
func (suite *MindMapServiceTestSuite) TestGetTree() {
	m := suite.createMap(
		[]mindmap.Node{
			{ID: "a", Label: "Root idea"},
			{ID: "b", Label: "Child"},
			{ID: "c", Label: "Shared child"},
		},
		[]mindmap.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "a", Target: "c"},
			{ID: "e3", Source: "b", Target: "c"},
		},
	)

	root, warnings, err := suite.svc.GetTree(m.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(root)
	suite.Equal("a", root.ID)

	// Depth-first from a: b claims c first, so the direct edge a->c is lost
	suite.Require().Len(root.Children, 1)
	suite.Equal("b", root.Children[0].ID)
	suite.Require().Len(root.Children[0].Children, 1)
	suite.Equal("c", root.Children[0].Children[0].ID)

	suite.Require().Len(warnings, 1)
	suite.Equal(mindmap.WarnLostEdge, warnings[0].Code)
	suite.Equal("e2", warnings[0].EdgeID)
}

// TestReplaceFromTree tests flattening a nested tree back into the graph
func (suite *MindMapServiceTestSuite) TestReplaceFromTree() {
	m := suite.createMap(nil, nil)

	updated, err := suite.svc.ReplaceFromTree(m.ID, &mindmap.TreeNode{
		ID:    "root",
		Label: "Launch plan",
		Children: []*mindmap.TreeNode{
			{ID: "n1", Label: "Research"},
			{ID: "n2", Label: "Build"},
		},
	})
	suite.Require().NoError(err)

	nodes, edges, err := decodeGraph(updated)
	suite.Require().NoError(err)
	suite.Len(nodes, 3)
	suite.Len(edges, 2)

	// the stored graph converts back without loss
	root, warnings, err := suite.svc.GetTree(m.ID)
	suite.Require().NoError(err)
	suite.Empty(warnings)
	suite.Equal("root", root.ID)
	suite.Len(root.Children, 2)

	_, err = suite.svc.ReplaceFromTree(m.ID, nil)
	suite.ErrorIs(err, ErrEmptyTree)
}

// TestClassifyNodes tests the guards around the AI call
func (suite *MindMapServiceTestSuite) TestClassifyNodes() {
	nodes := make([]mindmap.Node, constants.MaxClassifyNodes+1)
	for i := range nodes {
		nodes[i] = mindmap.Node{ID: fmt.Sprintf("n%d", i), Label: "note"}
	}
	m := suite.createMap(nodes, nil)

	// no AI service configured
	_, err := suite.svc.ClassifyNodes(context.Background(), m.ID)
	suite.ErrorIs(err, ErrAIUnavailable)
}

// TestUpdateMindMap tests title updates and wholesale graph replacement
func (suite *MindMapServiceTestSuite) TestUpdateMindMap() {
	m := suite.createMap(
		[]mindmap.Node{{ID: "a", Label: "Old"}},
		nil,
	)

	title := "Renamed"
	updated, err := suite.svc.UpdateMindMap(m.ID, UpdateMindMapInput{Title: &title})
	suite.Require().NoError(err)
	suite.Equal("Renamed", updated.Title)

	// the graph is untouched without ReplaceGraph
	nodes, _, err := decodeGraph(updated)
	suite.Require().NoError(err)
	suite.Len(nodes, 1)

	// ReplaceGraph with nothing clears the content
	updated, err = suite.svc.UpdateMindMap(m.ID, UpdateMindMapInput{ReplaceGraph: true})
	suite.Require().NoError(err)
	nodes, _, err = decodeGraph(updated)
	suite.Require().NoError(err)
	suite.Empty(nodes)
}

func TestMindMapServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MindMapServiceTestSuite))
}
