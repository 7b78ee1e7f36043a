package enums

import "fmt"

// UserRole is the principal role issued by the identity provider.
type UserRole string

const (
	UserRoleCustomer      UserRole = "CUSTOMER"
	UserRoleSellerPending UserRole = "SELLER_PENDING"
	UserRoleSellerActive  UserRole = "SELLER_ACTIVE"
	UserRoleAdmin         UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleSellerPending,
	UserRoleSellerActive,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanAccessSellerFeatures treats pending and active sellers alike.
func (r UserRole) CanAccessSellerFeatures() bool {
	return r == UserRoleSellerPending || r == UserRoleSellerActive
}

// IsAdmin reports whether the role may use administrator operations.
func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
