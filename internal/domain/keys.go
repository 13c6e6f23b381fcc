package domain

type CtxKey string

// Keys set by the auth middleware on both the gin context and the request
// context.
const (
	KeyUserID    CtxKey = "UserID"
	KeyUserEmail CtxKey = "Email"
	KeyUserRole  CtxKey = "Role"
	KeyRequestID CtxKey = "RequestID"
)
