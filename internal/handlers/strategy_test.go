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
	"github.com/stridehq/product-lifecycle-api/internal/logger"
	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
	"github.com/stridehq/product-lifecycle-api/internal/services"
)

// StrategyHandlerTestSuite defines the test suite for StrategyHandler
type StrategyHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	svc     *services.StrategyService
	handler *StrategyHandler
}

// SetupTest runs before each test
func (suite *StrategyHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
		&models.Workspace{},
		&models.WorkItem{},
		&models.Strategy{},
		&models.StrategyAlignment{},
	)
	suite.Require().NoError(err)

	database.SetDB(suite.db)

	strategyRepo := repository.NewStrategyRepository(suite.db)
	workItemRepo := repository.NewWorkItemRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)

	suite.svc = services.NewStrategyService(strategyRepo, workItemRepo, teamRepo, nil, logger.NewNop())
	suite.handler = NewStrategyHandler(suite.svc)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *StrategyHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *StrategyHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *StrategyHandlerTestSuite) createTestTeam(name string, ownerID uint64) *models.Team {
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

func (suite *StrategyHandlerTestSuite) createTestStrategy(teamID, creatorID uint64, t models.StrategyType, title string, parentID *uint64) *models.Strategy {
	strategy := &models.Strategy{
		TeamID:       teamID,
		ParentID:     parentID,
		Type:         t,
		Title:        title,
		Status:       models.StrategyDraft,
		ProgressMode: models.ProgressAuto,
		CreatorID:    creatorID,
	}
	suite.db.Create(strategy)
	return strategy
}

func (suite *StrategyHandlerTestSuite) createTestWorkItem(teamID, workspaceID, creatorID uint64, title string) *models.WorkItem {
	item := &models.WorkItem{
		TeamID:      teamID,
		WorkspaceID: workspaceID,
		Type:        models.TypeTask,
		Title:       title,
		Status:      models.StatusBacklog,
		Priority:    models.PriorityMedium,
		CreatorID:   creatorID,
	}
	suite.db.Create(item)
	return item
}

func (suite *StrategyHandlerTestSuite) createTestWorkspace(teamID uint64, name string) *models.Workspace {
	ws := &models.Workspace{
		TeamID: teamID,
		Name:   name,
		Mode:   models.ModeDesign,
	}
	suite.db.Create(ws)
	return ws
}

// Helper function to create authenticated context
func (suite *StrategyHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
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

// Helper function to set strategy context (simulates RequireStrategyAccess middleware)
func (suite *StrategyHandlerTestSuite) setStrategyContext(c *gin.Context, strategy models.Strategy) {
	c.Set("strategy", strategy)
}

// TestCreateStrategy_Success tests successful strategy creation
func (suite *StrategyHandlerTestSuite) TestCreateStrategy_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)

	requestBody := map[string]interface{}{
		"team_id": team.ID,
		"type":    "pillar",
		"title":   "Win the enterprise segment",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/strategies", body, user.ID)

	suite.handler.CreateStrategy(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.StrategyDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Win the enterprise segment", response.Title)
	assert.Equal(suite.T(), models.TypePillar, response.Type)
	assert.Equal(suite.T(), models.StrategyDraft, response.Status)
}

// TestCreateStrategy_HierarchyViolation tests the depth rule error code
func (suite *StrategyHandlerTestSuite) TestCreateStrategy_HierarchyViolation() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	kr := suite.createTestStrategy(team.ID, user.ID, models.TypeKeyResult, "KR", nil)

	requestBody := map[string]interface{}{
		"team_id":   team.ID,
		"type":      "pillar",
		"title":     "Pillar under KR",
		"parent_id": kr.ID,
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/strategies", body, user.ID)

	suite.handler.CreateStrategy(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "HIERARCHY_VIOLATION", response["code"])
}

// TestCreateStrategy_NotTeamMember tests creation by a non-member
func (suite *StrategyHandlerTestSuite) TestCreateStrategy_NotTeamMember() {
	owner := suite.createTestUser("owner@example.com")
	team := suite.createTestTeam("Test Team", owner.ID)
	stranger := suite.createTestUser("stranger@example.com")

	requestBody := map[string]interface{}{
		"team_id": team.ID,
		"type":    "pillar",
		"title":   "Sneaky pillar",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/strategies", body, stranger.ID)

	suite.handler.CreateStrategy(c)

	// existence is not leaked to non-members
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestGetTree_Success tests tree assembly over HTTP
func (suite *StrategyHandlerTestSuite) TestGetTree_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	pillar := suite.createTestStrategy(team.ID, user.ID, models.TypePillar, "Pillar", nil)
	suite.createTestStrategy(team.ID, user.ID, models.TypeObjective, "Objective", &pillar.ID)

	c, w := suite.createAuthContext("GET", "/api/strategies/tree", nil, user.ID)
	c.Request.URL.RawQuery = "team_id=1"

	suite.handler.GetTree(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(2), response["total_count"])

	roots := response["data"].([]interface{})
	assert.Len(suite.T(), roots, 1)

	root := roots[0].(map[string]interface{})
	assert.Equal(suite.T(), "Pillar", root["title"])
	assert.Len(suite.T(), root["children"].([]interface{}), 1)
}

// TestUpdateStrategy_ClearParent tests that an explicit null detaches the node
func (suite *StrategyHandlerTestSuite) TestUpdateStrategy_ClearParent() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	pillar := suite.createTestStrategy(team.ID, user.ID, models.TypePillar, "Pillar", nil)
	objective := suite.createTestStrategy(team.ID, user.ID, models.TypeObjective, "Objective", &pillar.ID)

	body := []byte(`{"parent_id": null}`)
	c, w := suite.createAuthContext("PATCH", "/api/strategies/2", body, user.ID)
	suite.setStrategyContext(c, *objective)

	suite.handler.UpdateStrategy(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.StrategyDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), response.ParentID)
}

// TestAlignWorkItem_Success tests aligning a work item over HTTP
func (suite *StrategyHandlerTestSuite) TestAlignWorkItem_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "WS")
	strategy := suite.createTestStrategy(team.ID, user.ID, models.TypeInitiative, "Initiative", nil)
	item := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Task")

	requestBody := map[string]interface{}{
		"work_item_id":       item.ID,
		"alignment_strength": "strong",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/strategies/1/align", body, user.ID)
	suite.setStrategyContext(c, *strategy)

	suite.handler.AlignWorkItem(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var alignment models.StrategyAlignment
	err := suite.db.Where("strategy_id = ? AND work_item_id = ?", strategy.ID, item.ID).First(&alignment).Error
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StrengthStrong, alignment.Strength)
}

// TestAlignWorkItem_CrossTeam tests the tenant guard over HTTP
func (suite *StrategyHandlerTestSuite) TestAlignWorkItem_CrossTeam() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	strategy := suite.createTestStrategy(team.ID, user.ID, models.TypeInitiative, "Initiative", nil)

	other := suite.createTestUser("other@example.com")
	otherTeam := suite.createTestTeam("Other Team", other.ID)
	otherWs := suite.createTestWorkspace(otherTeam.ID, "Other WS")
	foreign := suite.createTestWorkItem(otherTeam.ID, otherWs.ID, other.ID, "Foreign task")

	requestBody := map[string]interface{}{
		"work_item_id": foreign.ID,
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/strategies/1/align", body, user.ID)
	suite.setStrategyContext(c, *strategy)

	suite.handler.AlignWorkItem(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUnalignWorkItem_NotFound tests unaligning when nothing is aligned
func (suite *StrategyHandlerTestSuite) TestUnalignWorkItem_NotFound() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "WS")
	strategy := suite.createTestStrategy(team.ID, user.ID, models.TypeInitiative, "Initiative", nil)
	item := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Task")

	c, w := suite.createAuthContext("DELETE", "/api/strategies/1/align/1", nil, user.ID)
	suite.setStrategyContext(c, *strategy)
	c.Params = gin.Params{{Key: "work_item_id", Value: "1"}}
	_ = item

	suite.handler.UnalignWorkItem(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestListAlignedWorkItems tests the primary-first aligned listing
func (suite *StrategyHandlerTestSuite) TestListAlignedWorkItems() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "WS")
	strategy := suite.createTestStrategy(team.ID, user.ID, models.TypeInitiative, "Initiative", nil)

	primary := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Primary task")
	suite.db.Model(primary).Update("strategy_id", strategy.ID)

	additional := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Additional task")
	suite.db.Create(&models.StrategyAlignment{
		StrategyID: strategy.ID,
		WorkItemID: additional.ID,
		Strength:   models.StrengthModerate,
	})

	c, w := suite.createAuthContext("GET", "/api/strategies/1/work-items", nil, user.ID)
	suite.setStrategyContext(c, *strategy)

	suite.handler.ListAlignedWorkItems(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(2), response["total_count"])

	items := response["work_items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(suite.T(), "Primary task", first["title"])
}

// TestDeleteStrategy_Success tests deletion over HTTP
func (suite *StrategyHandlerTestSuite) TestDeleteStrategy_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	pillar := suite.createTestStrategy(team.ID, user.ID, models.TypePillar, "Pillar", nil)
	objective := suite.createTestStrategy(team.ID, user.ID, models.TypeObjective, "Objective", &pillar.ID)

	c, w := suite.createAuthContext("DELETE", "/api/strategies/1", nil, user.ID)
	suite.setStrategyContext(c, *pillar)

	suite.handler.DeleteStrategy(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// descendants go with it
	var count int64
	suite.db.Model(&models.Strategy{}).Where("id IN ?", []uint64{pillar.ID, objective.ID}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func TestStrategyHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(StrategyHandlerTestSuite))
}
