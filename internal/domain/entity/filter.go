package entity

import "time"

// DoctorFilter is a domain-level filter for listing doctors.
// Used by repository layer to avoid coupling with delivery DTOs.
type DoctorFilter struct {
	Specialization string
	Search         string // Sanitized name fragment (ILIKE)
	SortBy         string // name | specialization | created_at
	SortDir        string // asc | desc
	Page           int
	PerPage        int
}

// Offset returns the row offset for the current page.
func (f DoctorFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// AppointmentFilter narrows a doctor's appointment listing.
type AppointmentFilter struct {
	From   *time.Time
	To     *time.Time
	Status AppointmentStatus
}
