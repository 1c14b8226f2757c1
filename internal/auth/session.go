package auth

// Session 当前请求的调用方身份，匿名时 UserID 为空。
// 每个 service 调用都显式传入 Session，不依赖任何全局状态。
type Session struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

// Anonymous 未登录的调用方
func Anonymous() Session {
	return Session{}
}

// NewSession 已登录的调用方
func NewSession(userID, username string) Session {
	return Session{UserID: userID, Username: username}
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}
