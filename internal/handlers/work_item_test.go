package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

// WorkItemHandlerTestSuite defines the test suite for WorkItemHandler
type WorkItemHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *WorkItemHandler
}

// SetupTest runs before each test
func (suite *WorkItemHandlerTestSuite) SetupTest() {
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

	workItemRepo := repository.NewWorkItemRepository(suite.db)
	workspaceRepo := repository.NewWorkspaceRepository(suite.db)
	strategyRepo := repository.NewStrategyRepository(suite.db)
	teamRepo := repository.NewTeamRepository(suite.db)

	strategySvc := services.NewStrategyService(strategyRepo, workItemRepo, teamRepo, nil, logger.NewNop())
	workItemSvc := services.NewWorkItemService(workItemRepo, workspaceRepo, strategyRepo, teamRepo, strategySvc)
	suite.handler = NewWorkItemHandler(workItemSvc)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *WorkItemHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *WorkItemHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *WorkItemHandlerTestSuite) createTestTeam(name string, ownerID uint64) *models.Team {
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

func (suite *WorkItemHandlerTestSuite) createTestWorkspace(teamID uint64, name string) *models.Workspace {
	ws := &models.Workspace{
		TeamID: teamID,
		Name:   name,
		Mode:   models.ModeDesign,
	}
	suite.db.Create(ws)
	return ws
}

func (suite *WorkItemHandlerTestSuite) createTestWorkItem(teamID, workspaceID, creatorID uint64, title string, status models.WorkItemStatus) *models.WorkItem {
	item := &models.WorkItem{
		TeamID:      teamID,
		WorkspaceID: workspaceID,
		Type:        models.TypeTask,
		Title:       title,
		Status:      status,
		Priority:    models.PriorityMedium,
		CreatorID:   creatorID,
	}
	suite.db.Create(item)
	return item
}

// Helper function to create authenticated context
func (suite *WorkItemHandlerTestSuite) createAuthContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
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

// Helper function to set work item context (simulates RequireWorkItemAccess middleware)
func (suite *WorkItemHandlerTestSuite) setWorkItemContext(c *gin.Context, item models.WorkItem) {
	c.Set("work_item", item)
}

// TestCreateWorkItem_Success tests successful work item creation
func (suite *WorkItemHandlerTestSuite) TestCreateWorkItem_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")

	requestBody := map[string]interface{}{
		"workspace_id": ws.ID,
		"title":        "Ship the payments form",
		"type":         "feature",
		"priority":     "high",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/work-items", body, user.ID)

	suite.handler.CreateWorkItem(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.WorkItemDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Ship the payments form", response.Title)
	assert.Equal(suite.T(), models.TypeFeature, response.Type)
	assert.Equal(suite.T(), models.StatusBacklog, response.Status)
	assert.Equal(suite.T(), team.ID, response.TeamID)
}

// TestCreateWorkItem_NotTeamMember tests creation inside a foreign workspace
func (suite *WorkItemHandlerTestSuite) TestCreateWorkItem_NotTeamMember() {
	owner := suite.createTestUser("owner@example.com")
	team := suite.createTestTeam("Test Team", owner.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")
	stranger := suite.createTestUser("stranger@example.com")

	requestBody := map[string]interface{}{
		"workspace_id": ws.ID,
		"title":        "Sneaky task",
	}
	body, _ := json.Marshal(requestBody)

	c, w := suite.createAuthContext("POST", "/api/work-items", body, stranger.ID)

	suite.handler.CreateWorkItem(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestListWorkItems_Pagination tests filtered listing with pagination
func (suite *WorkItemHandlerTestSuite) TestListWorkItems_Pagination() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")

	for i := 0; i < 3; i++ {
		suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Backlog task", models.StatusBacklog)
	}
	suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Done task", models.StatusDone)

	c, w := suite.createAuthContext("GET", "/api/work-items", nil, user.ID)
	c.Request.URL.RawQuery = "team_id=1&status=backlog&page=1&page_size=2"

	suite.handler.ListWorkItems(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(3), response["total_count"])
	assert.Equal(suite.T(), float64(2), response["total_pages"])
	assert.Len(suite.T(), response["work_items"].([]interface{}), 2)
}

// TestListWorkItems_DueBefore tests the due-date cutoff filter
func (suite *WorkItemHandlerTestSuite) TestListWorkItems_DueBefore() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")

	overdue := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Overdue task", models.StatusInProgress)
	suite.db.Model(overdue).Update("due_date", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))

	later := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Later task", models.StatusBacklog)
	suite.db.Model(later).Update("due_date", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	// No due date at all stays out of the cutoff
	suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Undated task", models.StatusBacklog)

	c, w := suite.createAuthContext("GET", "/api/work-items", nil, user.ID)
	c.Request.URL.RawQuery = "team_id=1&due_before=2026-02-01T00:00:00Z"

	suite.handler.ListWorkItems(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(1), response["total_count"])

	items := response["work_items"].([]interface{})
	suite.Require().Len(items, 1)
	assert.Equal(suite.T(), "Overdue task", items[0].(map[string]interface{})["title"])
}

// TestListWorkItems_InvalidStatus tests filter validation
func (suite *WorkItemHandlerTestSuite) TestListWorkItems_InvalidStatus() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTeam("Test Team", user.ID)

	c, w := suite.createAuthContext("GET", "/api/work-items", nil, user.ID)
	c.Request.URL.RawQuery = "team_id=1&status=bogus"

	suite.handler.ListWorkItems(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestUpdateWorkItem_ClearStrategy tests that an explicit null clears the
// primary strategy while an absent field leaves it alone
func (suite *WorkItemHandlerTestSuite) TestUpdateWorkItem_ClearStrategy() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")

	strategy := &models.Strategy{
		TeamID:       team.ID,
		Type:         models.TypeInitiative,
		Title:        "Initiative",
		Status:       models.StrategyActive,
		ProgressMode: models.ProgressAuto,
		CreatorID:    user.ID,
	}
	suite.db.Create(strategy)

	item := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Task", models.StatusBacklog)
	suite.db.Model(item).Update("strategy_id", strategy.ID)

	// Absent strategy_id keeps the link
	body := []byte(`{"title": "Renamed task"}`)
	c, w := suite.createAuthContext("PATCH", "/api/work-items/1", body, user.ID)
	suite.setWorkItemContext(c, *item)

	suite.handler.UpdateWorkItem(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var reloaded models.WorkItem
	suite.db.First(&reloaded, item.ID)
	assert.Equal(suite.T(), "Renamed task", reloaded.Title)
	suite.Require().NotNil(reloaded.StrategyID)

	// Explicit null clears it
	body = []byte(`{"strategy_id": null}`)
	c, w = suite.createAuthContext("PATCH", "/api/work-items/1", body, user.ID)
	suite.setWorkItemContext(c, *item)

	suite.handler.UpdateWorkItem(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	suite.db.First(&reloaded, item.ID)
	assert.Nil(suite.T(), reloaded.StrategyID)
}

// TestUpdateWorkItem_StatusChange tests moving a work item to done
func (suite *WorkItemHandlerTestSuite) TestUpdateWorkItem_StatusChange() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")
	item := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Task", models.StatusInProgress)

	body := []byte(`{"status": "done"}`)
	c, w := suite.createAuthContext("PATCH", "/api/work-items/1", body, user.ID)
	suite.setWorkItemContext(c, *item)

	suite.handler.UpdateWorkItem(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.WorkItemDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusDone, response.Status)
}

// TestDeleteWorkItem_Success tests deletion over HTTP
func (suite *WorkItemHandlerTestSuite) TestDeleteWorkItem_Success() {
	user := suite.createTestUser("test@example.com")
	team := suite.createTestTeam("Test Team", user.ID)
	ws := suite.createTestWorkspace(team.ID, "Checkout")
	item := suite.createTestWorkItem(team.ID, ws.ID, user.ID, "Task", models.StatusBacklog)

	c, w := suite.createAuthContext("DELETE", "/api/work-items/1", nil, user.ID)
	suite.setWorkItemContext(c, *item)

	suite.handler.DeleteWorkItem(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.WorkItem{}).Where("id = ?", item.ID).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

func TestWorkItemHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WorkItemHandlerTestSuite))
}
