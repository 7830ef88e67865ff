package model

// UserRole 由外部认证服务签发，写在 JWT 中
type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
)

func (r UserRole) Valid() bool {
	return r == Student || r == Instructor
}
