package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stridehq/product-lifecycle-api/internal/database"
	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// RequireTeamAccess checks if the user is a member of the team
func RequireTeamAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamIDStr := c.Param("id")
		teamID, err := strconv.ParseUint(teamIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid team ID",
			})
			c.Abort()
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

		var team models.Team
		if err := database.GetDB().First(&team, teamID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Team not found",
			})
			c.Abort()
			return
		}

		// Return 404 instead of 403 to avoid leaking team existence
		var member models.TeamMember
		err = database.GetDB().Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Team not found",
			})
			c.Abort()
			return
		}

		c.Set("team", team)
		c.Set("team_member", member)
		c.Next()
	}
}

// RequireTeamManager checks if the user is an owner or admin of the team.
// Must run after RequireTeamAccess.
func RequireTeamManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, exists := GetTeamMember(c)
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Team access required",
			})
			c.Abort()
			return
		}

		if !member.Role.CanManage() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireTeamOwner checks if the user is the owner of the team.
// Must run after RequireTeamAccess.
func RequireTeamOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		member, exists := GetTeamMember(c)
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Team access required",
			})
			c.Abort()
			return
		}

		if member.Role != models.RoleOwner {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Owner access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetTeam retrieves the team loaded by RequireTeamAccess
func GetTeam(c *gin.Context) (models.Team, bool) {
	v, exists := c.Get("team")
	if !exists {
		return models.Team{}, false
	}
	team, ok := v.(models.Team)
	return team, ok
}

// GetTeamMember retrieves the membership loaded by RequireTeamAccess
func GetTeamMember(c *gin.Context) (models.TeamMember, bool) {
	v, exists := c.Get("team_member")
	if !exists {
		return models.TeamMember{}, false
	}
	member, ok := v.(models.TeamMember)
	return member, ok
}
