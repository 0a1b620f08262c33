package services

import (
	"errors"
	"log"
	"sort"
	"time"

	"pairing-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var (
	ErrParticipantNotFound = errors.New("participant not found in session")
	ErrEmptyRatings        = errors.New("at least one rating is required")
)

// PreferenceService tracks rating submissions and gates pairing readiness
type PreferenceService struct {
	DB *gorm.DB
}

func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{DB: db}
}

// SanitizeRatings drops self-ratings and out-of-range scores. Dropped
// entries are not an error; the rest of the submission still counts.
// Target usernames are NFC-normalized so they match the stored roster.
func SanitizeRatings(submitter string, ratings map[string]int) map[string]int {
	clean := make(map[string]int, len(ratings))
	for target, score := range ratings {
		target = norm.NFC.String(target)
		if target == submitter {
			continue
		}
		if score < 0 || score > 100 {
			continue
		}
		clean[target] = score
	}
	return clean
}

// RecordSubmission replaces every prior rating from this submitter with the
// sanitized set and flips has_submitted, as one transaction. A reader never
// sees the flag set next to a partial rating set. Returns the updated
// (submitted, total) counts for the session.
func (s *PreferenceService) RecordSubmission(sessionID, username string, ratings map[string]int) (int, int, error) {
	if len(ratings) == 0 {
		return 0, 0, ErrEmptyRatings
	}

	var participant models.Participant
	err := s.DB.First(&participant, "session_id = ? AND username = ?", sessionID, username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrParticipantNotFound
		}
		return 0, 0, err
	}

	clean := SanitizeRatings(username, ratings)

	// Stable insert order keeps replays byte-identical.
	targets := make([]string, 0, len(clean))
	for target := range clean {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND person_from = ?", sessionID, username).
			Delete(&models.Preference{}).Error; err != nil {
			return err
		}

		if len(targets) > 0 {
			prefs := make([]models.Preference, 0, len(targets))
			for _, target := range targets {
				prefs = append(prefs, models.Preference{
					ID:          uuid.NewString(),
					SessionID:   sessionID,
					PersonFrom:  username,
					PersonTo:    target,
					Score:       clean[target],
					SubmittedAt: now,
				})
			}
			if err := tx.Create(&prefs).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Participant{}).
			Where("session_id = ? AND username = ?", sessionID, username).
			Update("has_submitted", true).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return s.SubmissionCounts(sessionID)
}

// SubmissionCounts returns (submitted, total) roster counts for a session.
func (s *PreferenceService) SubmissionCounts(sessionID string) (int, int, error) {
	var total, submitted int64
	if err := s.DB.Model(&models.Participant{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := s.DB.Model(&models.Participant{}).
		Where("session_id = ? AND has_submitted = ?", sessionID, true).
		Count(&submitted).Error; err != nil {
		return 0, 0, err
	}
	return int(submitted), int(total), nil
}

// IsReadyForPairing reports whether every roster member has submitted.
func (s *PreferenceService) IsReadyForPairing(sessionID string) (bool, error) {
	submitted, total, err := s.SubmissionCounts(sessionID)
	if err != nil {
		return false, err
	}
	return total > 0 && submitted == total, nil
}

type submitPreferencesRequest struct {
	Preferences map[string]int `json:"preferences"`
}

// SubmitPreferences stores the authenticated participant's rating row.
// Resubmission is allowed and fully replaces the previous one, even after
// results were already computed — callers re-fetch results to re-pair.
func (s *PreferenceService) SubmitPreferences(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	username, _ := c.Locals("username").(string)

	var req submitPreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}

	submitted, total, err := s.RecordSubmission(sessionID, norm.NFC.String(username), req.Preferences)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyRatings):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrParticipantNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("DB Error recording submission for %s/%s: %v", sessionID, username, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store preferences"})
		}
	}

	return c.JSON(fiber.Map{
		"message":       "Preferences submitted",
		"submitted":     submitted,
		"total":         total,
		"all_submitted": submitted == total,
	})
}

// GetSessionStatus reports per-user submission flags and counts.
func (s *PreferenceService) GetSessionStatus(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var session models.Session
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		log.Printf("DB Error fetching session %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	var participants []models.Participant
	if err := s.DB.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&participants).Error; err != nil {
		log.Printf("DB Error fetching roster for %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	submitted := 0
	users := make([]fiber.Map, 0, len(participants))
	for _, p := range participants {
		if p.HasSubmitted {
			submitted++
		}
		users = append(users, fiber.Map{
			"username":      p.Username,
			"has_submitted": p.HasSubmitted,
		})
	}

	return c.JSON(fiber.Map{
		"session_id":    session.ID,
		"session_name":  session.Name,
		"users":         users,
		"submitted":     submitted,
		"total":         len(participants),
		"all_submitted": submitted == len(participants),
	})
}
