package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Well-known agent skills.
const (
	SkillQuoteGeneration = "quote_generation"
	SkillFollowUpEmails  = "follow_up_emails"
)

type Agent struct {
	ID          uuid.UUID `json:"id"`
	CodeName    string    `json:"codeName"`
	Description string    `json:"description,omitempty"`
	Skills      []string  `json:"skills"`
	OwnerEmpID  uuid.UUID `json:"ownerEmpId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasAnySkill reports whether the agent lists at least one of the given skills.
func (a *Agent) HasAnySkill(skills ...string) bool {
	for _, s := range skills {
		if slices.Contains(a.Skills, s) {
			return true
		}
	}
	return false
}

type Employee struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
