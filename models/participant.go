package models

import (
	"slices"
	"time"
)

// ParticipantStatus is the roster state of a participant. Records are never
// deleted; leaving or being removed only changes the status.
type ParticipantStatus string

const (
	ParticipantActive  ParticipantStatus = "active"
	ParticipantLeft    ParticipantStatus = "left"
	ParticipantRemoved ParticipantStatus = "removed"
)

// Valid reports whether s is a known participant status.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantActive, ParticipantLeft, ParticipantRemoved:
		return true
	}
	return false
}

// SessionParticipant is a user's membership record within one session.
type SessionParticipant struct {
	ID                string            `dynamodbav:"participantId" json:"id"`
	SessionID         string            `dynamodbav:"sessionId" json:"-"`
	UserID            string            `dynamodbav:"userId" json:"-"`
	User              User              `dynamodbav:"user" json:"user"`
	JoinedAt          time.Time         `dynamodbav:"joinedAt" json:"joinedAt"`
	Status            ParticipantStatus `dynamodbav:"status" json:"status"`
	CurrentSwipeCount int               `dynamodbav:"swipeCount" json:"currentSwipeCount"`
	Likes             []string          `dynamodbav:"likes" json:"likes"`
	Dislikes          []string          `dynamodbav:"dislikes" json:"dislikes"`
}

// IsActive reports whether the participant is on the active roster.
func (p *SessionParticipant) IsActive() bool {
	return p.Status == ParticipantActive
}

// HasLiked reports whether the participant liked recipeID.
func (p *SessionParticipant) HasLiked(recipeID string) bool {
	return slices.Contains(p.Likes, recipeID)
}

// HasSwiped reports whether the participant already swiped recipeID either way.
func (p *SessionParticipant) HasSwiped(recipeID string) bool {
	return slices.Contains(p.Likes, recipeID) || slices.Contains(p.Dislikes, recipeID)
}

// RecordSwipe appends recipeID to likes or dislikes and bumps the swipe count.
// A recipe can only be swiped once per participant.
func (p *SessionParticipant) RecordSwipe(recipeID string, isLike bool) error {
	if p.HasSwiped(recipeID) {
		return ErrDuplicateSwipe
	}
	if isLike {
		p.Likes = append(p.Likes, recipeID)
	} else {
		p.Dislikes = append(p.Dislikes, recipeID)
	}
	p.CurrentSwipeCount = len(p.Likes) + len(p.Dislikes)
	return nil
}

// Clone returns a deep copy.
func (p SessionParticipant) Clone() SessionParticipant {
	p.Likes = slices.Clone(p.Likes)
	p.Dislikes = slices.Clone(p.Dislikes)
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Dislikes == nil {
		p.Dislikes = []string{}
	}
	return p
}
