package domain

import "time"

// Reconcile returns the status a request should have at now. A pending request
// whose scheduled time is not after now has expired and becomes rejected; every
// other status is returned unchanged.
func Reconcile(req AppointmentRequest, now time.Time) AppointmentStatus {
	if req.Status == AppointmentStatusPending && !req.ScheduledTime.After(now) {
		return AppointmentStatusRejected
	}
	return req.Status
}

func Expired(req AppointmentRequest, now time.Time) bool {
	return Reconcile(req, now) != req.Status
}
