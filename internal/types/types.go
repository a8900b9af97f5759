package types

import "strings"

// UserSuffix is the serialization suffix of a user identifier.
const UserSuffix = "@c.us"

type Participant struct {
	ID           string `json:"id"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// Number returns the phone number part of the participant identifier.
func (p Participant) Number() string {
	number, _, _ := strings.Cut(p.ID, "@")
	return number
}

// Chat is a read-only snapshot of a chat as reported by the messaging client.
type Chat struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	IsGroup      bool          `json:"is_group"`
	Owner        string        `json:"owner,omitempty"`
	Description  string        `json:"description,omitempty"`
	CreatedAt    int64         `json:"created_at,omitempty"`
	Participants []Participant `json:"participants"`
	Archived     bool          `json:"archived"`
	Muted        bool          `json:"muted"`
	Pinned       bool          `json:"pinned"`
	UnreadCount  int           `json:"unread_count"`
}

// Participant returns the participant with the given identifier.
func (c Chat) Participant(id string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID != "" && p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

type ParticipantDetail struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	IsAdmin      bool   `json:"isAdmin"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
}

// GroupDetail is the normalized record written to the group reports.
type GroupDetail struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	CreatedAt         string              `json:"createdAt"`
	Owner             string              `json:"owner"`
	Description       string              `json:"description"`
	ParticipantsCount int                 `json:"participantsCount"`
	AdminCount        int                 `json:"adminCount"`
	InviteLink        string              `json:"inviteLink"`
	Participants      []ParticipantDetail `json:"participants"`
	IsArchived        bool                `json:"isArchived"`
	IsMuted           bool                `json:"isMuted"`
	IsPinned          bool                `json:"isPinned"`
	UnreadCount       int                 `json:"unreadCount"`
	MatchedKeywords   []string            `json:"matchedKeywords,omitempty"`
}

// Numbers returns the participant phone numbers in list order.
func (g GroupDetail) Numbers() []string {
	numbers := make([]string, len(g.Participants))
	for i, p := range g.Participants {
		numbers[i] = p.Number
	}
	return numbers
}

// AddOutcome is the per-participant answer of an add operation.
type AddOutcome struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type MutationResult struct {
	Phone   string `json:"phone_number"`
	Group   string `json:"group"`
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

// UserID derives the participant identifier of a phone number.
func UserID(phone string) string {
	return phone + UserSuffix
}
