package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/database"
	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// Resource middlewares load an entity by URL parameter, verify the user
// belongs to the owning team and stash the entity in the gin context. A
// non-member gets 404 rather than 403 so resource existence never leaks.

// RequireWorkspaceAccess checks if the user can access a workspace
func RequireWorkspaceAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, ok := parseIDParam(c, "Invalid workspace ID")
		if !ok {
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var workspace models.Workspace
		if err := database.GetDB().First(&workspace, workspaceID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Workspace not found",
			})
			c.Abort()
			return
		}

		member, ok := loadMember(workspace.TeamID, userID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Workspace not found",
			})
			c.Abort()
			return
		}

		c.Set("workspace", workspace)
		c.Set("team_member", member)
		c.Next()
	}
}

// RequireWorkItemAccess checks if the user can access a work item
func RequireWorkItemAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := parseIDParam(c, "Invalid work item ID")
		if !ok {
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var item models.WorkItem
		if err := database.GetDB().
			Preload("Creator").
			Preload("Strategy").
			First(&item, itemID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Work item not found",
			})
			c.Abort()
			return
		}

		member, ok := loadMember(item.TeamID, userID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Work item not found",
			})
			c.Abort()
			return
		}

		c.Set("work_item", item)
		c.Set("team_member", member)
		c.Next()
	}
}

// RequireStrategyAccess checks if the user can access a strategy
func RequireStrategyAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		strategyID, ok := parseIDParam(c, "Invalid strategy ID")
		if !ok {
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var strategy models.Strategy
		if err := database.GetDB().First(&strategy, strategyID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Strategy not found",
			})
			c.Abort()
			return
		}

		member, ok := loadMember(strategy.TeamID, userID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Strategy not found",
			})
			c.Abort()
			return
		}

		c.Set("strategy", strategy)
		c.Set("team_member", member)
		c.Next()
	}
}

// RequireMindMapAccess checks if the user can access a mind map
func RequireMindMapAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		mapID, ok := parseIDParam(c, "Invalid mind map ID")
		if !ok {
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		var m models.MindMap
		if err := database.GetDB().First(&m, mapID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Mind map not found",
			})
			c.Abort()
			return
		}

		member, ok := loadMember(m.TeamID, userID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Mind map not found",
			})
			c.Abort()
			return
		}

		c.Set("mind_map", m)
		c.Set("team_member", member)
		c.Next()
	}
}

func parseIDParam(c *gin.Context, badRequestMsg string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": badRequestMsg,
		})
		c.Abort()
		return 0, false
	}
	return id, true
}

func loadMember(teamID, userID uint64) (models.TeamMember, bool) {
	var member models.TeamMember
	err := database.GetDB().
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if err != nil {
		return models.TeamMember{}, false
	}
	return member, true
}
