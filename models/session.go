package models

import (
	"slices"
	"sort"
	"time"
)

// SessionStatus is the lifecycle state of a swipe session.
type SessionStatus string

const (
	SessionWaiting   SessionStatus = "waiting"   // created, participants joining
	SessionActive    SessionStatus = "active"    // host started, swiping allowed
	SessionCompleted SessionStatus = "completed" // host ended the round
	SessionAbandoned SessionStatus = "abandoned" // last active participant left
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// SwipeSession is a host-owned multiplayer matching round over recipes.
type SwipeSession struct {
	ID                 string               `dynamodbav:"sessionId" json:"id"`
	HostID             string               `dynamodbav:"hostId" json:"hostId"`
	Participants       []SessionParticipant `dynamodbav:"-" json:"participants"`
	Matches            []string             `dynamodbav:"matches" json:"matches"`
	Status             SessionStatus        `dynamodbav:"status" json:"status"`
	CreatedAt          time.Time            `dynamodbav:"createdAt" json:"createdAt"`
	MaxParticipants    int                  `dynamodbav:"maxParticipants" json:"maxParticipants"`
	RequiresAllToMatch bool                 `dynamodbav:"requiresAllToMatch" json:"requiresAllToMatch"`
	SessionCode        string               `dynamodbav:"sessionCode" json:"sessionCode"`
}

// IsActive reports whether the swipe phase is open.
func (s *SwipeSession) IsActive() bool {
	return s.Status == SessionActive
}

// Participant returns the participant record for userID, whatever its status.
func (s *SwipeSession) Participant(userID string) *SessionParticipant {
	for i := range s.Participants {
		if s.Participants[i].User.ID == userID {
			return &s.Participants[i]
		}
	}
	return nil
}

// ParticipantByID returns the participant with the given participant id.
func (s *SwipeSession) ParticipantByID(participantID string) *SessionParticipant {
	for i := range s.Participants {
		if s.Participants[i].ID == participantID {
			return &s.Participants[i]
		}
	}
	return nil
}

// ActiveParticipants returns the active roster ordered by join time.
func (s *SwipeSession) ActiveParticipants() []SessionParticipant {
	active := make([]SessionParticipant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].JoinedAt.Before(active[j].JoinedAt)
	})
	return active
}

// ActiveCount returns the number of active participants.
func (s *SwipeSession) ActiveCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.IsActive() {
			n++
		}
	}
	return n
}

// IsHost reports whether userID hosts the session.
func (s *SwipeSession) IsHost(userID string) bool {
	return s.HostID == userID
}

// HasMatch reports whether recipeID is already recorded as a match.
func (s *SwipeSession) HasMatch(recipeID string) bool {
	return slices.Contains(s.Matches, recipeID)
}

// AddMatch appends recipeID once. It reports whether the list changed.
func (s *SwipeSession) AddMatch(recipeID string) bool {
	if s.HasMatch(recipeID) {
		return false
	}
	s.Matches = append(s.Matches, recipeID)
	return true
}

// Stats aggregates the session. TotalSwipes covers every participant that
// ever joined since swipe history outlives roster changes; ActiveSwipes and
// Participants only count the active roster.
func (s *SwipeSession) Stats() SessionStats {
	stats := SessionStats{Matches: len(s.Matches)}
	for _, p := range s.Participants {
		stats.TotalSwipes += p.CurrentSwipeCount
		if p.IsActive() {
			stats.ActiveSwipes += p.CurrentSwipeCount
			stats.Participants++
		}
	}
	return stats
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *SwipeSession) Clone() *SwipeSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Matches = slices.Clone(s.Matches)
	if c.Matches == nil {
		c.Matches = []string{}
	}
	c.Participants = make([]SessionParticipant, len(s.Participants))
	for i, p := range s.Participants {
		c.Participants[i] = p.Clone()
	}
	return &c
}

// SessionStats is the read-side aggregate returned to clients.
type SessionStats struct {
	TotalSwipes  int `json:"totalSwipes"`
	ActiveSwipes int `json:"activeSwipes"`
	Matches      int `json:"matches"`
	Participants int `json:"participants"`
}
