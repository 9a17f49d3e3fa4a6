package repository

import "github.com/google/uuid"

// IDGenerator allocates primary keys for new rows.
type IDGenerator func() string

// idAllocator is embedded by repositories that insert rows.
type idAllocator struct {
	newID IDGenerator
}

// SetIDGenerator overrides the default UUID allocator.
func (a *idAllocator) SetIDGenerator(gen IDGenerator) {
	a.newID = gen
}

func (a *idAllocator) nextID() string {
	if a.newID == nil {
		return uuid.NewString()
	}
	return a.newID()
}
