package domain

import (
	"encoding/json"
	"time"
)

// Language is one of the code languages a room can be set to.
type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
)

// DefaultLanguage is used when a create-room request omits the language.
const DefaultLanguage = LanguageJavaScript

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageJavaScript || l == LanguagePython
}

const boilerplateJavaScript = `// Welcome to CodeInterview!
// Start coding your solution here

function solution(input) {
  // Your code here
  return input;
}

// Test your solution
console.log(solution("Hello, World!"));
`

const boilerplatePython = `# Welcome to CodeInterview!
# Start coding your solution here

def solution(input):
    # Your code here
    return input

# Test your solution
print(solution("Hello, World!"))
`

// Boilerplate returns the seed buffer content for the language.
func (l Language) Boilerplate() string {
	if l == LanguagePython {
		return boilerplatePython
	}
	return boilerplateJavaScript
}

// CursorPosition is a 1-based editor position. It is ephemeral: relayed
// between clients but never persisted as part of the Room.
type CursorPosition struct {
	LineNumber int `json:"lineNumber"`
	Column     int `json:"column"`
}

// Participant is a member of a room. Exactly one participant carries
// IsHost while the room is non-empty.
type Participant struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Color          string          `json:"color"`
	IsHost         bool            `json:"isHost"`
	CursorPosition *CursorPosition `json:"cursorPosition,omitempty"`
}

// ExecutionResult is the transient outcome of running the room's buffer.
// It is broadcast once and never stored in the Room.
type ExecutionResult struct {
	Output        string  `json:"output"`
	Error         string  `json:"error,omitempty"`
	ExecutionTime float64 `json:"executionTime"`
}

// Room is the unit of collaboration: one shared buffer, a language, and an
// ordered participant roster (insertion order == join order).
type Room struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Language     Language      `json:"language"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
	HostID       string        `json:"hostId"`
	LastActiveAt time.Time     `json:"lastActiveAt"`
}

// AddParticipant appends p preserving join order.
func (r *Room) AddParticipant(p Participant) {
	r.Participants = append(r.Participants, p)
}

// RemoveParticipant removes the participant with the given id and returns
// whether it was present. If the removed participant was the host, the
// earliest remaining joiner becomes the new host so HostID never dangles.
func (r *Room) RemoveParticipant(id string) bool {
	idx := -1
	for i, p := range r.Participants {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	wasHost := r.Participants[idx].IsHost
	r.Participants = append(r.Participants[:idx], r.Participants[idx+1:]...)
	if wasHost && len(r.Participants) > 0 {
		r.Participants[0].IsHost = true
		r.HostID = r.Participants[0].ID
	}
	return true
}

// Participant returns the member with the given id, or nil.
func (r *Room) Participant(id string) *Participant {
	for i := range r.Participants {
		if r.Participants[i].ID == id {
			return &r.Participants[i]
		}
	}
	return nil
}

// Empty reports whether the roster has no members left.
func (r *Room) Empty() bool {
	return len(r.Participants) == 0
}

// MarshalBinary lets redis clients store rooms as JSON values directly.
func (r Room) MarshalBinary() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (r *Room) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, r)
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate shared state outside the store's serialization point.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Participants = make([]Participant, len(r.Participants))
	for i, p := range r.Participants {
		cp.Participants[i] = p
		if p.CursorPosition != nil {
			pos := *p.CursorPosition
			cp.Participants[i].CursorPosition = &pos
		}
	}
	return &cp
}
