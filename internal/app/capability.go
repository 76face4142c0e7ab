/**
 * @description
 * This file defines AdminCapability, the explicit proof of admin authority that callers
 * must pass into privileged operations. The capability replaces any ambient "current
 * admin" state: only the API middleware mints one, and only after the identity provider's
 * token carried the admin claim.
 */

package app

import "github.com/google/uuid"

// AdminCapability proves that the holder was authenticated as an admin. The zero value is
// not a valid capability.
type AdminCapability struct {
	adminID uuid.UUID
}

// NewAdminCapability mints a capability for the given admin user. Callers are expected to
// verify the admin claim before minting.
func NewAdminCapability(adminID uuid.UUID) AdminCapability {
	return AdminCapability{adminID: adminID}
}

// AdminID returns the id of the admin the capability was minted for.
func (c AdminCapability) AdminID() uuid.UUID {
	return c.adminID
}

// Valid reports whether the capability was minted for a real admin.
func (c AdminCapability) Valid() bool {
	return c.adminID != uuid.Nil
}
