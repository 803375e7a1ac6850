package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(id string, status ParticipantStatus) SessionParticipant {
	return SessionParticipant{ID: "p-" + id, User: User{ID: id, Name: id}, Status: status}
}

func TestSessionParticipant_RecordSwipe(t *testing.T) {
	p := participant("u1", ParticipantActive)

	require.NoError(t, p.RecordSwipe("r1", true))
	require.NoError(t, p.RecordSwipe("r2", false))
	assert.Equal(t, []string{"r1"}, p.Likes)
	assert.Equal(t, []string{"r2"}, p.Dislikes)
	assert.Equal(t, 2, p.CurrentSwipeCount)
	assert.True(t, p.HasLiked("r1"))
	assert.False(t, p.HasLiked("r2"))

	assert.ErrorIs(t, p.RecordSwipe("r1", false), ErrDuplicateSwipe)
	assert.ErrorIs(t, p.RecordSwipe("r2", true), ErrDuplicateSwipe)
	assert.Equal(t, 2, p.CurrentSwipeCount)
}

func TestSwipeSession_Stats(t *testing.T) {
	s := &SwipeSession{
		Participants: []SessionParticipant{
			participant("u1", ParticipantActive),
			participant("u2", ParticipantLeft),
			participant("u3", ParticipantActive),
		},
	}
	require.NoError(t, s.Participants[0].RecordSwipe("r1", true))
	require.NoError(t, s.Participants[1].RecordSwipe("r1", true))
	require.NoError(t, s.Participants[1].RecordSwipe("r2", true))
	s.AddMatch("r1")

	assert.Equal(t, SessionStats{TotalSwipes: 3, ActiveSwipes: 1, Matches: 1, Participants: 2}, s.Stats())
	assert.Equal(t, 2, s.ActiveCount())
}

func TestSwipeSession_AddMatchOnce(t *testing.T) {
	s := &SwipeSession{}
	assert.True(t, s.AddMatch("r1"))
	assert.False(t, s.AddMatch("r1"))
	assert.Equal(t, []string{"r1"}, s.Matches)
}

func TestSwipeSession_Clone(t *testing.T) {
	s := &SwipeSession{
		ID:           "s1",
		Participants: []SessionParticipant{participant("u1", ParticipantActive)},
	}
	c := s.Clone()
	require.NoError(t, c.Participants[0].RecordSwipe("r1", true))
	c.AddMatch("r1")

	assert.Empty(t, s.Participants[0].Likes)
	assert.Empty(t, s.Matches)
	assert.NotNil(t, c.Participants[0].Dislikes)

	var nilSession *SwipeSession
	assert.Nil(t, nilSession.Clone())
}

func TestSwipeSession_Lookups(t *testing.T) {
	s := &SwipeSession{
		HostID: "u1",
		Participants: []SessionParticipant{
			participant("u1", ParticipantActive),
			participant("u2", ParticipantRemoved),
		},
	}
	assert.True(t, s.IsHost("u1"))
	assert.False(t, s.IsHost("u2"))
	require.NotNil(t, s.Participant("u2"))
	require.NotNil(t, s.ParticipantByID("p-u2"))
	assert.Nil(t, s.Participant("u9"))
	assert.Len(t, s.ActiveParticipants(), 1)
	assert.True(t, SessionCompleted.Terminal())
	assert.True(t, SessionAbandoned.Terminal())
	assert.False(t, SessionActive.Terminal())
	assert.False(t, ParticipantStatus("gone").Valid())
}
