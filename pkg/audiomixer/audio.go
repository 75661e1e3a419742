package audiomixer

import "fmt"

// ProcessID is an OS process identifier
type ProcessID int

// ActivityState tells whether an audio session is currently rendering audio
type ActivityState int

const (
	Inactive ActivityState = iota
	Active
)

func (s ActivityState) String() string {
	if s == Active {
		return "active"
	}

	return "inactive"
}

// AudioSession is a backend-managed, per-process audio channel.
// The core only ever holds references to sessions, the backend owns them
type AudioSession interface {
	// Key identifies the underlying channel, two handles to the same channel share a key
	Key() string
	ProcessID() ProcessID
	State() ActivityState

	GetVolume() (float32, error)
	SetVolume(v float32) error

	GetMute() (bool, error)
	SetMute(mute bool) error

	Release()
}

// AudioBackend enumerates the audio sessions that currently exist
type AudioBackend interface {
	ListSessions() ([]AudioSession, error)

	Release() error
}

func sessionString(session AudioSession) string {
	if session == nil {
		return "<no session>"
	}

	return fmt.Sprintf("<session %s pid=%d %s>", session.Key(), session.ProcessID(), session.State())
}

func sameSession(a, b AudioSession) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Key() == b.Key()
}
