package model

// Session is the identity resolved by the authentication boundary and passed
// explicitly into every core operation.
type Session struct {
	UserID       int64
	IsSuperAdmin bool
}
