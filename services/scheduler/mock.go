package schedsvc

import (
	"sync"
	"time"

	"github.com/trezcool/maktaba/core"
)

// SchedulerMock records scheduling calls without running any job. For tests.
type SchedulerMock struct {
	mutex     sync.Mutex
	Scheduled map[string]time.Time
	Canceled  []string
}

var _ core.JobScheduler = (*SchedulerMock)(nil)

func NewSchedulerMock() *SchedulerMock {
	return &SchedulerMock{Scheduled: make(map[string]time.Time)}
}

func (s *SchedulerMock) Schedule(tag string, at time.Time, _ func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Scheduled[tag] = at
}

func (s *SchedulerMock) Cancel(tag string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.Scheduled, tag)
	s.Canceled = append(s.Canceled, tag)
}
