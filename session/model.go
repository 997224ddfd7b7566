package session

import "time"

// DeviceInfo describes the client that opened a session.
type DeviceInfo struct {
	UserAgent string
	IP        string
	Label     string
}

// Session is one authenticated login of an account.
type Session struct {
	ID         string
	AccountID  string
	CreatedAt  time.Time
	LastAccess time.Time
	Device     DeviceInfo
}

// IdleFor reports how long the session has been idle at now.
func (s *Session) IdleFor(now time.Time) time.Duration {
	if now.Before(s.LastAccess) {
		return 0
	}
	return now.Sub(s.LastAccess)
}
