package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lothnic/hack-the-throne/internal/event"
)

type audioMsg struct {
	samples []float64
	rate    int
	flush   bool
}

type videoMsg struct {
	data        []byte
	contentType string
}

// Session is one device connection's fusion state: the conversation built
// so far, the current speaker, and the most recently seen face. Audio and
// video are consumed by separate goroutines; shared state sits behind mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	audioCh chan audioMsg
	videoCh chan videoMsg

	mu             sync.Mutex
	closed         bool
	lastActivity   time.Time
	conversationID string
	conversation   []event.Utterance

	speakerID   string
	speakerName string
	speakerAt   time.Time

	faceID   string
	faceName string
	faceAt   time.Time

	facePublishedID string
	facePublishedAt time.Time

	videoFrameCount uint64
}

func newSession(parent context.Context, id string, queueSize int) *Session {
	if queueSize < 1 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	return &Session{
		ID:             id,
		CreatedAt:      now,
		ctx:            ctx,
		cancel:         cancel,
		audioCh:        make(chan audioMsg, queueSize),
		videoCh:        make(chan videoMsg, 4),
		lastActivity:   now,
		conversationID: uuid.New().String(),
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// setSpeaker records who the latest utterance belongs to
func (s *Session) setSpeaker(personID, name string, at time.Time) {
	s.mu.Lock()
	s.speakerID = personID
	s.speakerName = name
	s.speakerAt = at
	s.mu.Unlock()
}

// recentSpeaker returns the current speaker if one spoke within window
func (s *Session) recentSpeaker(window time.Duration) (personID, name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.speakerID == "" || time.Since(s.speakerAt) > window {
		return "", "", false
	}
	return s.speakerID, s.speakerName, true
}

// setFace records the most recently matched face
func (s *Session) setFace(personID, name string, at time.Time) {
	s.mu.Lock()
	s.faceID = personID
	s.faceName = name
	s.faceAt = at
	s.mu.Unlock()
}

// resetFace clears the session's face state, including the publish
// debounce, so the next recognized face publishes immediately. Called
// when an unknown face shows up with no recent speaker to bind it to:
// whoever was on camera before is gone.
func (s *Session) resetFace() {
	s.mu.Lock()
	s.faceID = ""
	s.faceName = ""
	s.faceAt = time.Time{}
	s.facePublishedID = ""
	s.facePublishedAt = time.Time{}
	s.mu.Unlock()
}

// recentFace returns the last matched face if seen within window
func (s *Session) recentFace(window time.Duration) (personID, name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faceID == "" || time.Since(s.faceAt) > window {
		return "", "", false
	}
	return s.faceID, s.faceName, true
}

// shouldPublishFace applies the face event debounce: a new person always
// publishes, the same person only after the republish interval. Returns
// true after recording the publish.
func (s *Session) shouldPublishFace(personID string, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if personID == s.facePublishedID && now.Sub(s.facePublishedAt) < interval {
		return false
	}
	s.facePublishedID = personID
	s.facePublishedAt = now
	return true
}

// markFacePublished records a publish that bypassed the debounce
func (s *Session) markFacePublished(personID string) {
	s.mu.Lock()
	s.facePublishedID = personID
	s.facePublishedAt = time.Now()
	s.mu.Unlock()
}

// nextVideoFrame counts a video frame and reports whether it should be
// processed under the subsample stride.
func (s *Session) nextVideoFrame(stride uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoFrameCount++
	if stride <= 1 {
		return true
	}
	return (s.videoFrameCount-1)%stride == 0
}

// appendUtterance adds one transcribed utterance to the conversation
func (s *Session) appendUtterance(speaker, text string) {
	s.mu.Lock()
	s.conversation = append(s.conversation, event.Utterance{Speaker: speaker, Text: text})
	s.mu.Unlock()
}

// drainConversation hands back the accumulated conversation together with
// its id and the current speaker, then starts a fresh conversation under a
// new id. Each drained conversation is published exactly once.
func (s *Session) drainConversation() (conversationID, speakerID string, conv []event.Utterance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversationID = s.conversationID
	speakerID = s.speakerID
	conv = s.conversation
	if len(conv) > 0 {
		s.conversation = nil
		s.conversationID = uuid.New().String()
	}
	return conversationID, speakerID, conv
}

// Info is a read-only view of a session for the HTTP surface
type Info struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
	ConversationID string    `json:"conversation_id"`
	Utterances     int       `json:"utterances"`
	SpeakerName    string    `json:"speaker_name,omitempty"`
	FaceName       string    `json:"face_name,omitempty"`
}

// Snapshot returns the session's current state for inspection
func (s *Session) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		LastActivity:   s.lastActivity,
		ConversationID: s.conversationID,
		Utterances:     len(s.conversation),
		SpeakerName:    s.speakerName,
		FaceName:       s.faceName,
	}
}
