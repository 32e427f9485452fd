package dto

import (
	"time"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

// TeamDTO represents a team in API responses
type TeamDTO struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Plan       models.TeamPlan `json:"plan"`
	InviteCode string          `json:"invite_code,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TeamWithRoleDTO represents a team with the user's role
type TeamWithRoleDTO struct {
	TeamDTO
	Role models.TeamRole `json:"role"`
}

// TeamMemberDTO represents a member in a team
type TeamMemberDTO struct {
	User     UserDTO         `json:"user"`
	Role     models.TeamRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// TeamDetailDTO represents detailed team information
type TeamDetailDTO struct {
	TeamDTO
	Members  []TeamMemberDTO `json:"members"`
	YourRole models.TeamRole `json:"your_role"`
}

// ToTeamDTO converts a Team model to TeamDTO. The invite code is only
// included for members who may manage the team.
func ToTeamDTO(team models.Team, includeInviteCode bool) TeamDTO {
	dto := TeamDTO{
		ID:        team.ID,
		Name:      team.Name,
		Plan:      team.Plan,
		CreatedAt: team.CreatedAt,
	}
	if includeInviteCode {
		dto.InviteCode = team.InviteCode
	}
	return dto
}

// ToTeamWithRoleDTO converts a membership to a team DTO with role
func ToTeamWithRoleDTO(member models.TeamMember) TeamWithRoleDTO {
	return TeamWithRoleDTO{
		TeamDTO: ToTeamDTO(member.Team, member.Role.CanManage()),
		Role:    member.Role,
	}
}

// ToTeamMemberDTO converts a member to DTO
func ToTeamMemberDTO(member models.TeamMember) TeamMemberDTO {
	return TeamMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToTeamDetailDTO converts a team with members to a detailed DTO
func ToTeamDetailDTO(team models.Team, members []models.TeamMember, yourRole models.TeamRole) TeamDetailDTO {
	memberDTOs := make([]TeamMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToTeamMemberDTO(member)
	}

	return TeamDetailDTO{
		TeamDTO:  ToTeamDTO(team, yourRole.CanManage()),
		Members:  memberDTOs,
		YourRole: yourRole,
	}
}
