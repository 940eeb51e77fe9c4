// Package domain contains the core entity types for the Simmer server.
package domain

import "time"

// Record provides common identity and lifecycle fields for persisted entities.
// It gets embedded in any domain type stored in the relational schema.
type Record struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	ID        string     `json:"id"`
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (r *Record) InitTimestamps() {
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
}

// IsDeleted returns true if this entity has been soft-deleted.
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// MarkDeleted marks this entity as soft-deleted by setting DeletedAt to now.
// This also updates UpdatedAt so the deletion is visible to ordered listings.
func (r *Record) MarkDeleted() {
	now := time.Now()
	r.DeletedAt = &now
	r.UpdatedAt = now
}

// LastModified returns the most recent of CreatedAt and UpdatedAt.
func (r *Record) LastModified() time.Time {
	if r.UpdatedAt.After(r.CreatedAt) {
		return r.UpdatedAt
	}
	return r.CreatedAt
}
