package email

import "context"

// Service sends transactional mail to patients. Implementations must be
// safe for concurrent use; failures are logged by callers, never
// surfaced to API clients.
type Service interface {
	SendAppointmentBooked(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error
	SendAppointmentConfirmed(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error
	SendAppointmentCancelled(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error
	SendWelcome(ctx context.Context, to, name string) error
}
