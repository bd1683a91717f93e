package core

import "time"

// JobScheduler is any service that can run a job at a given time.
// Scheduling a job under an existing tag replaces the previous one.
type JobScheduler interface {
	Schedule(tag string, at time.Time, job func())
	Cancel(tag string)
}
