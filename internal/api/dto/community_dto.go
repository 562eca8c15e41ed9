package dto

import "time"

// RegisterCommunityRequest onboards a community.
type RegisterCommunityRequest struct {
	CommunityID      string `json:"community_id"`
	TrackerChannelID string `json:"tracker_channel_id"`
}

// UpdateSettingsRequest rewrites mutable community configuration.
type UpdateSettingsRequest struct {
	TrackerChannelID string  `json:"tracker_channel_id"`
	Repo             *string `json:"repo"`
	VoteThreshold    int     `json:"vote_threshold"`
	NoteThreshold    int     `json:"note_threshold"`
}

// AddIdentifierRequest registers a reporting code.
type AddIdentifierRequest struct {
	Code string `json:"code"`
	Kind string `json:"kind"`
}

// ProvisionManagerRequest creates or rotates a manager account.
type ProvisionManagerRequest struct {
	UserID string `json:"user_id"`
	Secret string `json:"secret"`
}

// LoginRequest authenticates a manager.
type LoginRequest struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`
	Secret      string `json:"secret"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MilestoneRequest creates a milestone.
type MilestoneRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// QuestionnaireFieldRequest is one submission form field.
type QuestionnaireFieldRequest struct {
	Position    int    `json:"position"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Style       string `json:"style"`
	Required    bool   `json:"required"`
}

// QuestionnaireRequest replaces the submission form for an identifier.
type QuestionnaireRequest struct {
	Fields []QuestionnaireFieldRequest `json:"fields"`
}
