package patients

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a clinic patient record. Every row is tenant-scoped; no query
// in this package runs without a tenant filter.
type Patient struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	FullName  string
	BirthDate *time.Time
	Phone     string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
