package hub

type fanoutJob struct {
	sessions []*Session
	payload  []byte
}

// Fanout is a bounded worker pool pushing one serialized payload to
// many sessions. Pushes never block: a slow session drops the frame
// (see Session.Push), so one bad consumer cannot stall a room.
type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 1
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, s := range job.sessions {
					s.Push(job.payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(sessions []*Session, payload []byte) {
	if len(sessions) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{sessions: sessions, payload: payload}
}

func (f *Fanout) Close() { close(f.jobs) }
