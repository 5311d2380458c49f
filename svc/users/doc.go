// Package users manages login identities on behalf of admins: listing,
// single and bulk creation, deletion and the bootstrap admin account.
//
// Passwords are hashed with session.HashPassword so accounts created here
// can log in through the session service. Bulk creation generates random
// passwords which are returned exactly once.
package users
