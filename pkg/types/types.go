package types

import (
	"time"
)

// Session lifecycle statuses. Transitions between them are unrestricted.
const (
	StatusUpcoming  = "upcoming"
	StatusLive      = "live"
	StatusCompleted = "completed"
)

// User roles as stored in the user directory
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Chat message senders
const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

// Join-token roles accepted by the meeting SDK
const (
	MeetingRoleAttendee = 0
	MeetingRoleHost     = 1
)

// Session represents a scheduled live class
// ARCHITECTURAL DISCOVERY: MeetingData is a pointer so "no meeting" is
// distinguishable from a meeting with empty fields
type Session struct {
	ID          string       `json:"id" db:"id"`
	CourseID    string       `json:"courseId" db:"course_id" validate:"required"`
	Title       string       `json:"title" db:"title" validate:"required,max=200"`
	DateLabel   string       `json:"dateLabel" db:"date_label" validate:"required"`
	TimeRange   string       `json:"timeRange" db:"time_range" validate:"required"`
	Host        string       `json:"host" db:"host" validate:"required"`
	HostID      string       `json:"hostId" db:"host_id" validate:"required"`
	Status      string       `json:"status" db:"status" validate:"omitempty,oneof=upcoming live completed"`
	Summary     string       `json:"summary" db:"summary"`
	Attendees   []Attendee   `json:"attendees" db:"attendees" validate:"dive"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	MeetingData *MeetingData `json:"zoomData,omitempty" db:"-"`
}

// Attendee is a snapshot of an enrolled user at enrollment time
type Attendee struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// MeetingData holds provider metadata attached after provisioning
type MeetingData struct {
	MeetingID string `json:"meetingId" db:"meeting_id"`
	JoinURL   string `json:"joinUrl" db:"join_url"`
	StartURL  string `json:"startUrl" db:"start_url"`
	Password  string `json:"password" db:"meeting_password"`
}

// SessionUpdate carries a partial update. Nil fields are left untouched.
type SessionUpdate struct {
	Title     *string `json:"title,omitempty"`
	DateLabel *string `json:"dateLabel,omitempty"`
	TimeRange *string `json:"timeRange,omitempty"`
	Host      *string `json:"host,omitempty"`
	HostID    *string `json:"hostId,omitempty"`
	Status    *string `json:"status,omitempty"`
	Summary   *string `json:"summary,omitempty"`
}

// Participant is one join/leave attendance span
// FUNCTIONAL DISCOVERY: ParticipantKey may be empty, in which case the
// display name is the only identity available for leave resolution
type Participant struct {
	ID             string     `json:"id" db:"id"`
	SessionID      string     `json:"sessionId" db:"session_id"`
	ParticipantKey string     `json:"participantId,omitempty" db:"participant_id"`
	UserID         string     `json:"userId,omitempty" db:"user_id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"userEmail,omitempty" db:"user_email"`
	JoinedAt       time.Time  `json:"joinedAt" db:"joined_at"`
	LeftAt         *time.Time `json:"leftAt,omitempty" db:"left_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
}

// IsOpen reports whether the record has not been closed by a leave
func (p *Participant) IsOpen() bool {
	return p.LeftAt == nil
}

// Chat is a single support thread between one user and the admins
type Chat struct {
	ID        string        `json:"id" db:"id"`
	UserID    string        `json:"userId" db:"user_id"`
	User      *ChatUser     `json:"user,omitempty" db:"-"`
	Messages  []ChatMessage `json:"messages" db:"messages"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// ChatUser is the user summary embedded into chat documents
type ChatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ChatMessage is one entry in a chat thread
type ChatMessage struct {
	Sender      string    `json:"sender" validate:"oneof=user admin"`
	Text        string    `json:"text"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Last returns the most recent message, or nil for an empty thread
func (c *Chat) Last() *ChatMessage {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// User is a read-only view of the user directory
type User struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  string `json:"role" db:"role"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary converts the user to the form embedded in chats
func (u *User) Summary() *ChatUser {
	return &ChatUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Course is a read-only view of the course directory
type Course struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}

// JoinEvent describes a participant joining a meeting
type JoinEvent struct {
	ParticipantKey string
	UserID         string
	Name           string
	Email          string
}

// MeetingRequest asks the provisioner to create a meeting for a session
type MeetingRequest struct {
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Role      *int   `json:"role,omitempty"` // nil signs as host
}

// SigningRole returns the join-token role, host when unset
func (r MeetingRequest) SigningRole() int {
	if r.Role == nil {
		return MeetingRoleHost
	}
	return *r.Role
}

// MeetingResult is the combined outcome of a successful provisioning
type MeetingResult struct {
	MeetingID string `json:"meetingId"`
	Password  string `json:"password"`
	JoinURL   string `json:"joinUrl"`
	StartURL  string `json:"startUrl"`
	AppKey    string `json:"appKey"`
	Signature string `json:"signature"`
	Role      int    `json:"role"`
}

// MeetingData returns the subset persisted on the session
func (r *MeetingResult) MeetingData() MeetingData {
	return MeetingData{
		MeetingID: r.MeetingID,
		JoinURL:   r.JoinURL,
		StartURL:  r.StartURL,
		Password:  r.Password,
	}
}

// Realtime event names
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventJoined      = "joined"
	EventError       = "error"
	EventChatMessage = "chat:message"
	EventChatUpdated = "chat:updated"
)

// Frame is one JSON text message on the realtime socket
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}
