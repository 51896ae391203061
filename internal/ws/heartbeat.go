package ws

import (
	"context"
	"log"
	"time"
)

// DefaultHeartbeatInterval refreshes the presence TTL three times per TTL
// window, keeping staleness a soft signal rather than a hair trigger.
const DefaultHeartbeatInterval = 20 * time.Second

// startHeartbeat launches the session's periodic presence refresh. The
// heartbeat is the fallback cleanup path for clients that vanish without a
// clean close; explicit disconnect cleanup remains primary. A session whose
// cleanup already ran (a kick landing mid-connect) never starts one.
func (s *Session) startHeartbeat(interval time.Duration) {
	s.hbMu.Lock()
	defer s.hbMu.Unlock()

	if s.hbStopped {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.hbCancel = cancel
	s.hbDone = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.svc.presence.Refresh(ctx, s.Room.ProjectID); err != nil {
					log.Printf("session %s: heartbeat refresh failed: %v", s.ID, err)
				}
			}
		}
	}()
}

// stopHeartbeat cancels the heartbeat and waits for it to stop. Called
// synchronously from disconnect so the task is never left to expire on its
// own. Also bars any later start attempt.
func (s *Session) stopHeartbeat() {
	s.hbMu.Lock()
	s.hbStopped = true
	cancel := s.hbCancel
	done := s.hbDone
	s.hbMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
