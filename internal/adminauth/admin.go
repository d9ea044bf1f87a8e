package adminauth

import (
	"github.com/dgellow/authgate/internal/emailutil"
)

// RoleAdmin is the role given to users whose email is in the admin list
const RoleAdmin = "admin"

// IsAdmin checks if an email is in the configured admin list
func IsAdmin(email string, adminEmails []string) bool {
	return emailutil.Contains(adminEmails, email)
}

// RoleFor returns the role for email, empty for regular users
func RoleFor(email string, adminEmails []string) string {
	if IsAdmin(email, adminEmails) {
		return RoleAdmin
	}
	return ""
}
