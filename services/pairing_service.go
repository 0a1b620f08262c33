package services

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	"pairing-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PairingService computes greedy mutual-score pairings for a session
type PairingService struct {
	DB *gorm.DB
}

func NewPairingService(db *gorm.DB) *PairingService {
	return &PairingService{DB: db}
}

// PairEntry is a single matched pair in the result payload.
// Ratings holds each member's directed score toward the other.
type PairEntry struct {
	Pair          [2]string      `json:"pair"`
	Compatibility float64        `json:"compatibility"`
	Ratings       map[string]int `json:"ratings"`
}

// PairingOutcome is the full result of one engine run.
type PairingOutcome struct {
	Pairs                []PairEntry `json:"pairs"`
	Unpaired             *string     `json:"unpaired"`
	TotalCompatibility   float64     `json:"total_compatibility"`
	AverageCompatibility float64     `json:"average_compatibility"`
	NumPairs             int         `json:"num_pairs"`
}

// MutualScore averages the two directed ratings between a and b.
// A missing rating counts as 0, not as unknown: unrated pairs are
// scored as minimally compatible rather than excluded.
func MutualScore(prefs map[string]map[string]int, a, b string) float64 {
	return float64(prefs[a][b]+prefs[b][a]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FindPairs runs the greedy matching: repeatedly pick the still-available
// pair with the highest mutual score until fewer than two people remain.
// Candidate pairs are enumerated in lexicographic order over a sorted copy
// of people, and only a strictly higher score displaces the current best,
// so identical input always produces identical output. This is a local
// heuristic, not a maximum-weight matching solve.
func FindPairs(people []string, prefs map[string]map[string]int) ([]PairEntry, *string) {
	order := make([]string, len(people))
	copy(order, people)
	sort.Strings(order)

	available := make(map[string]bool, len(order))
	for _, p := range order {
		available[p] = true
	}

	var pairs []PairEntry
	remaining := len(available)

	for remaining >= 2 {
		bestScore := -1.0
		var bestA, bestB string

		for i := 0; i < len(order); i++ {
			a := order[i]
			if !available[a] {
				continue
			}
			for j := i + 1; j < len(order); j++ {
				b := order[j]
				if !available[b] {
					continue
				}
				if score := MutualScore(prefs, a, b); score > bestScore {
					bestScore = score
					bestA, bestB = a, b
				}
			}
		}

		pairs = append(pairs, PairEntry{
			Pair:          [2]string{bestA, bestB},
			Compatibility: round2(bestScore),
			Ratings: map[string]int{
				bestA: prefs[bestA][bestB],
				bestB: prefs[bestB][bestA],
			},
		})
		delete(available, bestA)
		delete(available, bestB)
		remaining -= 2
	}

	var unpaired *string
	for p := range available {
		leftover := p
		unpaired = &leftover
	}
	return pairs, unpaired
}

// ComputeOutcome runs FindPairs and attaches the summary statistics.
// A roster of 0 or 1 people is a valid degenerate input, not an error.
func ComputeOutcome(people []string, prefs map[string]map[string]int) PairingOutcome {
	pairs, unpaired := FindPairs(people, prefs)

	total := 0.0
	for _, p := range pairs {
		total += p.Compatibility
	}
	avg := 0.0
	if len(pairs) > 0 {
		avg = total / float64(len(pairs))
	}

	return PairingOutcome{
		Pairs:                pairs,
		Unpaired:             unpaired,
		TotalCompatibility:   round2(total),
		AverageCompatibility: round2(avg),
		NumPairs:             len(pairs),
	}
}

// loadPreferences builds the from → (to → score) matrix for a session.
func (s *PairingService) loadPreferences(sessionID string) (map[string]map[string]int, error) {
	var rows []models.Preference
	if err := s.DB.Where("session_id = ?", sessionID).Find(&rows).Error; err != nil {
		return nil, err
	}

	prefs := make(map[string]map[string]int)
	for _, row := range rows {
		if prefs[row.PersonFrom] == nil {
			prefs[row.PersonFrom] = make(map[string]int)
		}
		prefs[row.PersonFrom][row.PersonTo] = row.Score
	}
	return prefs, nil
}

// GetResults computes and returns the pairing for a session.
// Rejected with the current counts while submissions are still missing.
func (s *PairingService) GetResults(c *fiber.Ctx) error {
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

	total := len(participants)
	submitted := 0
	people := make([]string, 0, total)
	for _, p := range participants {
		people = append(people, p.Username)
		if p.HasSubmitted {
			submitted++
		}
	}

	if submitted != total || total == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "not all preferences submitted",
			"submitted": submitted,
			"total":     total,
		})
	}

	prefs, err := s.loadPreferences(sessionID)
	if err != nil {
		log.Printf("DB Error loading preferences for %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	outcome := ComputeOutcome(people, prefs)

	if err := s.saveResult(sessionID, outcome); err != nil {
		// History row is bookkeeping; the computed outcome is still valid.
		log.Printf("⚠️ Failed to record pairing result for %s: %v", sessionID, err)
	}

	return c.JSON(outcome)
}

func (s *PairingService) saveResult(sessionID string, outcome PairingOutcome) error {
	pairsJSON, err := json.Marshal(outcome.Pairs)
	if err != nil {
		return err
	}
	result := models.PairingResult{
		ID:                   uuid.NewString(),
		SessionID:            sessionID,
		PairsJSON:            string(pairsJSON),
		Unpaired:             outcome.Unpaired,
		TotalCompatibility:   outcome.TotalCompatibility,
		AverageCompatibility: outcome.AverageCompatibility,
		NumPairs:             outcome.NumPairs,
		ComputedAt:           time.Now(),
	}
	return s.DB.Create(&result).Error
}

// GetResultsHistory lists every stored computation for a session, newest first.
func (s *PairingService) GetResultsHistory(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	var results []models.PairingResult
	if err := s.DB.Where("session_id = ?", sessionID).
		Order("computed_at DESC").
		Find(&results).Error; err != nil {
		log.Printf("DB Error fetching result history for %s: %v", sessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	history := make([]fiber.Map, 0, len(results))
	for _, r := range results {
		var pairs []PairEntry
		if r.PairsJSON != "" {
			if err := json.Unmarshal([]byte(r.PairsJSON), &pairs); err != nil {
				log.Printf("⚠️ Corrupt pairs JSON on result %s: %v", r.ID, err)
			}
		}
		history = append(history, fiber.Map{
			"id":                    r.ID,
			"pairs":                 pairs,
			"unpaired":              r.Unpaired,
			"total_compatibility":   r.TotalCompatibility,
			"average_compatibility": r.AverageCompatibility,
			"num_pairs":             r.NumPairs,
			"computed_at":           r.ComputedAt,
			"archive_url":           r.ArchiveURL,
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    history,
		"count":      len(history),
	})
}
