package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FUNCTIONAL DISCOVERY: validator caches struct metadata, so one instance
// is shared by the whole process
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate ensures the session carries every required field and a known status
func (s *Session) Validate() error {
	if err := validate.Struct(s); err != nil {
		return translate(err)
	}
	if s.MeetingData != nil {
		return s.MeetingData.Validate()
	}
	return nil
}

// Validate enforces the all-or-nothing meeting invariant. Password may be
// empty for passcode-less meetings.
func (m *MeetingData) Validate() error {
	if m.MeetingID == "" || m.JoinURL == "" || m.StartURL == "" {
		return ErrIncompleteMeeting
	}
	return nil
}

// Validate checks the fields that were supplied in a partial update
func (u *SessionUpdate) Validate() error {
	if u.Status != nil && !IsValidStatus(*u.Status) {
		return ErrInvalidStatus
	}
	for name, v := range map[string]*string{
		"title":     u.Title,
		"dateLabel": u.DateLabel,
		"timeRange": u.TimeRange,
		"host":      u.Host,
		"hostId":    u.HostID,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrValidation, name)
		}
	}
	return nil
}

// IsEmpty reports whether the update names no fields at all
func (u *SessionUpdate) IsEmpty() bool {
	return u.Title == nil && u.DateLabel == nil && u.TimeRange == nil &&
		u.Host == nil && u.HostID == nil && u.Status == nil && u.Summary == nil
}

// Apply copies the supplied fields onto the session
func (u *SessionUpdate) Apply(s *Session) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.DateLabel != nil {
		s.DateLabel = *u.DateLabel
	}
	if u.TimeRange != nil {
		s.TimeRange = *u.TimeRange
	}
	if u.Host != nil {
		s.Host = *u.Host
	}
	if u.HostID != nil {
		s.HostID = *u.HostID
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Summary != nil {
		s.Summary = *u.Summary
	}
}

// IsValidStatus checks the session status domain
func IsValidStatus(status string) bool {
	switch status {
	case StatusUpcoming, StatusLive, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsValidMeetingRole checks join-token roles (host=1, attendee=0)
func IsValidMeetingRole(role int) bool {
	return role == MeetingRoleAttendee || role == MeetingRoleHost
}

// translate flattens validator errors into one ErrValidation-wrapped error
// naming the offending fields by their JSON names
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Field() == "Status" {
			return ErrInvalidStatus
		}
		fields = append(fields, fmt.Sprintf("%s (%s)", jsonName(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
}

func jsonName(field string) string {
	switch field {
	case "CourseID":
		return "courseId"
	case "HostID":
		return "hostId"
	case "ID":
		return "id"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// Validate checks the sender and that the message carries some content
func (m *ChatMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return translate(err)
	}
	if strings.TrimSpace(m.Text) == "" && len(m.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return nil
}
