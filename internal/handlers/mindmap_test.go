package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/database"
	"github.com/stridehq/product-lifecycle-api/internal/dto"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
	"github.com/stridehq/product-lifecycle-api/internal/services"
)

// MindMapHandlerTestSuite defines the test suite for MindMapHandler
type MindMapHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *MindMapHandler
}

// SetupTest runs before each test
func (suite *MindMapHandlerTestSuite) SetupTest() {
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

	database.SetDB(suite.db)

	mindMapRepo := repository.NewMindMapRepository(suite.db)
	workspaceRepo := repository.NewWorkspaceRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)

	// No AI service wired; classify requests answer 503
	svc := services.NewMindMapService(mindMapRepo, workspaceRepo, teamRepo, nil)
	suite.handler = NewMindMapHandler(svc)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *MindMapHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *MindMapHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *MindMapHandlerTestSuite) createTestTeam(name string, ownerID uint64) *models.Team {
	team := &models.Team{
		Name:       name,
		Plan:       models.PlanFree,
		InviteCode: name + "_CODE",
	}
	suite.db.Create(team)
	suite.db.Create(&models.TeamMember{
		TeamID: team.ID,
		UserID: ownerID,
		Role:   models.RoleOwner,
	})
	return team
}

func (suite *MindMapHandlerTestSuite) createTestWorkspace(teamID uint64, name string) *models.Workspace {
	ws := &models.Workspace{
		TeamID: teamID,
		Name:   name,
		Mode:   models.ModeDesign,
	}
	suite.db.Create(ws)
	return ws
}

func (suite *MindMapHandlerTestSuite) createTestMindMap(teamID, workspaceID, creatorID uint64, title string, nodes, edges string) *models.MindMap {
	m := &models.MindMap{
		TeamID:      teamID,
		WorkspaceID: workspaceID,
		Title:       title,
		Nodes:       []byte(nodes),
		Edges:       []byte(edges),
		CreatorID:   creatorID,
	}
	suite.db.Create(m)
	return m
}

// Helper function to create authenticated context
func (suite *MindMapHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("user_id", userID)

	return c, w
}

// Helper function to set mind map context (simulates RequireMindMapAccess middleware)
func (suite *MindMapHandlerTestSuite) setMindMapContext(c *gin.Context, m models.MindMap) {
	c.Set("mind_map", m)
}

// TestCreateMindMap_Success tests successful mind map creation
func (suite *MindMapHandlerTestSuite) TestCreateMindMap_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")

	requestBody := map[string]interface{}{
		"workspace_id": ws.ID,
		"title":        "Feature brainstorm",
		"nodes": []map[string]interface{}{
			{"id": "a", "label": "Root idea"},
		},
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/mindmaps", body, user.ID)

	suite.handler.CreateMindMap(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.MindMapDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Feature brainstorm", response.Title)
	assert.Equal(suite.T(), team.ID, response.TeamID)

	var nodes []map[string]interface{}
	err = json.Unmarshal(response.Nodes, &nodes)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), nodes, 1)
}

// TestCreateMindMap_NotTeamMember tests creation inside a foreign workspace
func (suite *MindMapHandlerTestSuite) TestCreateMindMap_NotTeamMember() {
	owner := suite.createTestUser("owner@example.com")
	team := suite.createTestTeam("Test Team", owner.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")
	stranger := suite.createTestUser("stranger@example.com")

	requestBody := map[string]interface{}{
		"workspace_id": ws.ID,
		"title":        "Sneaky map",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/mindmaps", body, stranger.ID)

	suite.handler.CreateMindMap(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestGetTree_WithWarnings tests conversion of a graph that is not a tree
func (suite *MindMapHandlerTestSuite) TestGetTree_WithWarnings() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")

	// c is reachable from both a and b; only one edge into c survives
	nodes := `[{"id":"a","label":"A"},{"id":"b","label":"B"},{"id":"c","label":"C"}]`
	edges := `[{"id":"e1","source":"a","target":"b"},{"id":"e2","source":"a","target":"c"},{"id":"e3","source":"b","target":"c"}]`
	m := suite.createTestMindMap(team.ID, ws.ID, user.ID, "Map", nodes, edges)

	c, w := suite.createAuthContext("GET", "/api/mindmaps/1/tree", nil, user.ID)
	suite.setMindMapContext(c, *m)

	suite.handler.GetTree(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	// Depth-first from a: b claims c, the direct a->c edge is reported lost
	root := response["root"].(map[string]interface{})
	assert.Equal(suite.T(), "a", root["id"])
	assert.Len(suite.T(), root["children"].([]interface{}), 1)

	warnings := response["warnings"].([]interface{})
	suite.Require().Len(warnings, 1)
	warning := warnings[0].(map[string]interface{})
	assert.Equal(suite.T(), "lost_edge", warning["code"])
	assert.Equal(suite.T(), "e2", warning["edge_id"])
}

// TestReplaceFromTree_Success tests flattening a tree back into the graph
func (suite *MindMapHandlerTestSuite) TestReplaceFromTree_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")
	m := suite.createTestMindMap(team.ID, ws.ID, user.ID, "Map", "[]", "[]")

	body := []byte(`{"root": {"id": "a", "label": "A", "children": [{"id": "b", "label": "B"}, {"id": "c", "label": "C"}]}}`)
	c, w := suite.createAuthContext("PUT", "/api/mindmaps/1/tree", body, user.ID)
	suite.setMindMapContext(c, *m)

	suite.handler.ReplaceFromTree(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.MindMapDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	var nodes []map[string]interface{}
	err = json.Unmarshal(response.Nodes, &nodes)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), nodes, 3)

	var edges []map[string]interface{}
	err = json.Unmarshal(response.Edges, &edges)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), edges, 2)
}

// TestReplaceFromTree_MissingRoot tests binding validation
func (suite *MindMapHandlerTestSuite) TestReplaceFromTree_MissingRoot() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")
	m := suite.createTestMindMap(team.ID, ws.ID, user.ID, "Map", "[]", "[]")

	body := []byte(`{}`)
	c, w := suite.createAuthContext("PUT", "/api/mindmaps/1/tree", body, user.ID)
	suite.setMindMapContext(c, *m)

	suite.handler.ReplaceFromTree(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestClassifyNodes_AIUnavailable tests classify without an AI backend
func (suite *MindMapHandlerTestSuite) TestClassifyNodes_AIUnavailable() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")
	m := suite.createTestMindMap(team.ID, ws.ID, user.ID, "Map", `[{"id":"a","label":"A"}]`, "[]")

	c, w := suite.createAuthContext("POST", "/api/mindmaps/1/classify", nil, user.ID)
	suite.setMindMapContext(c, *m)

	suite.handler.ClassifyNodes(c)

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "SERVICE_UNAVAILABLE", response["code"])
}

// TestUpdateContent_ReplacesGraph tests the wholesale content update
func (suite *MindMapHandlerTestSuite) TestUpdateContent_ReplacesGraph() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Discovery")
	m := suite.createTestMindMap(team.ID, ws.ID, user.ID, "Map", `[{"id":"old","label":"Old"}]`, "[]")

	body := []byte(`{"nodes": [{"id": "new", "label": "New"}], "edges": []}`)
	c, w := suite.createAuthContext("PUT", "/api/mindmaps/1/content", body, user.ID)
	suite.setMindMapContext(c, *m)

	suite.handler.UpdateContent(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.MindMapDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)

	var nodes []map[string]interface{}
	err = json.Unmarshal(response.Nodes, &nodes)
	assert.NoError(suite.T(), err)
	suite.Require().Len(nodes, 1)
	assert.Equal(suite.T(), "new", nodes[0]["id"])
}

func TestMindMapHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(MindMapHandlerTestSuite))
}
