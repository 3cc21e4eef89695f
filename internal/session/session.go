// Package session issues and validates stable anonymous tokens. A token
// lets a commenter keep one identity across network and browser changes;
// it is the strongest identity signal the resolver accepts. Tokens are
// stored in Redis with a sliding TTL.
package session
