package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"pairing-system/models"

	"github.com/go-co-op/gocron/v2"
)

const defaultSessionTTLHours = 168 // one week

// StartExpiryScheduler deactivates sessions older than SESSION_TTL_HOURS.
// Expired sessions stay readable; the flag only hides them from new logins
// on the frontend.
func (s *SessionService) StartExpiryScheduler() {
	ttlHours := defaultSessionTTLHours
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ttlHours = parsed
		} else {
			log.Printf("⚠️ Invalid SESSION_TTL_HOURS %q, using default %d", v, defaultSessionTTLHours)
		}
	}
	ttl := time.Duration(ttlHours) * time.Hour

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().Add(-ttl)
			res := s.DB.Model(&models.Session{}).
				Where("is_active = ? AND created_at <= ?", true, cutoff).
				Update("is_active", false)
			if res.Error != nil {
				log.Printf("[Scheduler] DB error: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("✅ Deactivated %d expired session(s)", res.RowsAffected)
			}
		}),
	)
}
