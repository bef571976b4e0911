package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageValid(t *testing.T) {
	assert.True(t, LanguageJavaScript.Valid())
	assert.True(t, LanguagePython.Valid())
	assert.False(t, Language("ruby").Valid())
	assert.False(t, Language("").Valid())
}

func TestBoilerplatePerLanguage(t *testing.T) {
	assert.Contains(t, LanguageJavaScript.Boilerplate(), "// Welcome to CodeInterview!")
	assert.Contains(t, LanguageJavaScript.Boilerplate(), "function solution(input)")
	assert.Contains(t, LanguagePython.Boilerplate(), "# Welcome to CodeInterview!")
	assert.Contains(t, LanguagePython.Boilerplate(), "def solution(input):")
}

func TestRemoveParticipantReassignsHost(t *testing.T) {
	room := &Room{
		ID:     "abc12345",
		HostID: "host-1",
		Participants: []Participant{
			{ID: "host-1", Name: "Alice", IsHost: true},
			{ID: "user-2", Name: "Bob"},
			{ID: "user-3", Name: "Carol"},
		},
	}

	removed := room.RemoveParticipant("host-1")
	require.True(t, removed)
	require.Len(t, room.Participants, 2)

	// Earliest remaining joiner takes over.
	assert.Equal(t, "user-2", room.HostID)
	assert.True(t, room.Participants[0].IsHost)
	assert.Equal(t, "user-2", room.Participants[0].ID)
	assert.False(t, room.Participants[1].IsHost)
}

func TestRemoveParticipantNonHostKeepsHost(t *testing.T) {
	room := &Room{
		ID:     "abc12345",
		HostID: "host-1",
		Participants: []Participant{
			{ID: "host-1", Name: "Alice", IsHost: true},
			{ID: "user-2", Name: "Bob"},
		},
	}

	require.True(t, room.RemoveParticipant("user-2"))
	assert.Equal(t, "host-1", room.HostID)
	assert.True(t, room.Participants[0].IsHost)
}

func TestRemoveParticipantMissing(t *testing.T) {
	room := &Room{Participants: []Participant{{ID: "host-1", IsHost: true}}}
	assert.False(t, room.RemoveParticipant("nope"))
	assert.Len(t, room.Participants, 1)
}

func TestRemoveLastParticipantLeavesEmptyRoom(t *testing.T) {
	room := &Room{HostID: "host-1", Participants: []Participant{{ID: "host-1", IsHost: true}}}
	require.True(t, room.RemoveParticipant("host-1"))
	assert.True(t, room.Empty())
}

func TestCloneIsDeep(t *testing.T) {
	room := &Room{
		ID:       "abc12345",
		Code:     "original",
		Language: LanguageJavaScript,
		Participants: []Participant{
			{ID: "u1", Name: "Alice", CursorPosition: &CursorPosition{LineNumber: 3, Column: 7}},
		},
	}

	clone := room.Clone()
	clone.Code = "changed"
	clone.Participants[0].Name = "Mallory"
	clone.Participants[0].CursorPosition.LineNumber = 99

	assert.Equal(t, "original", room.Code)
	assert.Equal(t, "Alice", room.Participants[0].Name)
	assert.Equal(t, 3, room.Participants[0].CursorPosition.LineNumber)
}

func TestCloneNil(t *testing.T) {
	var room *Room
	assert.Nil(t, room.Clone())
}
