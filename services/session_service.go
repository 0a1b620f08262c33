package services

import (
	"errors"
	"log"
	"time"

	"pairing-system/models"
	"pairing-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var ErrDuplicateUsername = errors.New("duplicate username in roster")

var validate = validator.New()

const participantTokenTTL = 24 * time.Hour

// SessionService handles session creation and participant login
type SessionService struct {
	DB *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{DB: db}
}

type rosterUser struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// createSessionRequest supports two payload modes: a flat username list
// with one shared password, or per-user credentials.
type createSessionRequest struct {
	SessionName string       `json:"session_name" validate:"required"`
	Usernames   []string     `json:"usernames" validate:"omitempty,min=2,dive,required"`
	Password    string       `json:"password"`
	Users       []rosterUser `json:"users" validate:"omitempty,min=2,dive"`
}

// CreateSession creates a session plus its full roster in one transaction.
// The plaintext passwords are echoed back so the coordinator can hand them out.
func (s *SessionService) CreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": err.Error()})
	}

	var roster []rosterUser
	switch {
	case len(req.Usernames) > 0:
		password := req.Password
		if password == "" {
			password = "password123"
		}
		for _, username := range req.Usernames {
			roster = append(roster, rosterUser{Username: username, Password: password})
		}
	case len(req.Users) > 0:
		roster = req.Users
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "either usernames or users array required"})
	}

	if len(roster) < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at least 2 users required"})
	}

	seen := make(map[string]bool, len(roster))
	for i := range roster {
		roster[i].Username = norm.NFC.String(roster[i].Username)
		if seen[roster[i].Username] {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": ErrDuplicateUsername.Error(), "username": roster[i].Username})
		}
		seen[roster[i].Username] = true
	}

	session := models.Session{
		ID:       uuid.NewString(),
		Name:     req.SessionName,
		Slug:     slug.Make(req.SessionName),
		IsActive: true,
	}

	type createdUser struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	created := make([]createdUser, 0, len(roster))

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		for _, user := range roster {
			hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			participant := models.Participant{
				ID:           uuid.NewString(),
				SessionID:    session.ID,
				Username:     user.Username,
				PasswordHash: string(hash),
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
			created = append(created, createdUser{Username: user.Username, Password: user.Password})
		}
		return nil
	})
	if err != nil {
		log.Printf("DB Error creating session %q: %v", req.SessionName, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create session"})
	}

	log.Printf("✅ Session created: %s (%s) with %d participants", session.Name, session.ID, len(created))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Session created",
		"session_id":   session.ID,
		"session_name": session.Name,
		"slug":         session.Slug,
		"users":        created,
	})
}

type loginRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// Login verifies a participant's credential and issues their token.
func (s *SessionService) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "session_id, username, and password required"})
	}

	username := norm.NFC.String(req.Username)

	var participant models.Participant
	err := s.DB.First(&participant, "session_id = ? AND username = ?", req.SessionID, username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		log.Printf("DB Error on login for %s/%s: %v", req.SessionID, username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(participant.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	var others []models.Participant
	if err := s.DB.Where("session_id = ? AND username != ?", req.SessionID, username).
		Order("created_at ASC").
		Find(&others).Error; err != nil {
		log.Printf("DB Error fetching roster for %s: %v", req.SessionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	otherUsers := make([]string, 0, len(others))
	for _, p := range others {
		otherUsers = append(otherUsers, p.Username)
	}

	token, err := utils.GenerateParticipantToken(req.SessionID, username, participantTokenTTL)
	if err != nil {
		log.Printf("Failed to sign token for %s/%s: %v", req.SessionID, username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to issue token"})
	}

	return c.JSON(fiber.Map{
		"message":       "Login successful",
		"username":      username,
		"session_id":    req.SessionID,
		"has_submitted": participant.HasSubmitted,
		"other_users":   otherUsers,
		"token":         token,
	})
}
