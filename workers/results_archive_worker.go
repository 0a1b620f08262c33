package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pairing-system/models"
	"pairing-system/utils"

	"gorm.io/gorm"
)

// ResultsArchiver pushes finalized pairing results to R2 so completed
// events survive database cleanup.
type ResultsArchiver struct {
	DB *gorm.DB
}

func NewResultsArchiver(db *gorm.DB) *ResultsArchiver {
	return &ResultsArchiver{DB: db}
}

// archivedResult is the JSON document written to the bucket.
type archivedResult struct {
	SessionID            string             `json:"session_id"`
	ResultID             string             `json:"result_id"`
	Pairs                json.RawMessage    `json:"pairs"`
	Unpaired             *string            `json:"unpaired"`
	TotalCompatibility   float64            `json:"total_compatibility"`
	AverageCompatibility float64            `json:"average_compatibility"`
	NumPairs             int                `json:"num_pairs"`
	ComputedAt           time.Time          `json:"computed_at"`
}

// ArchivePending uploads every not-yet-archived result row.
func (a *ResultsArchiver) ArchivePending(ctx context.Context) error {
	var results []models.PairingResult
	if err := a.DB.Where("archived_at IS NULL").
		Order("computed_at ASC").
		Limit(50).
		Find(&results).Error; err != nil {
		return fmt.Errorf("failed to fetch unarchived results: %w", err)
	}

	for _, r := range results {
		doc := archivedResult{
			SessionID:            r.SessionID,
			ResultID:             r.ID,
			Pairs:                json.RawMessage(r.PairsJSON),
			Unpaired:             r.Unpaired,
			TotalCompatibility:   r.TotalCompatibility,
			AverageCompatibility: r.AverageCompatibility,
			NumPairs:             r.NumPairs,
			ComputedAt:           r.ComputedAt,
		}
		if len(doc.Pairs) == 0 {
			doc.Pairs = json.RawMessage("[]")
		}

		data, err := json.Marshal(doc)
		if err != nil {
			log.Printf("[ResultsArchiver] Failed to marshal result %s: %v", r.ID, err)
			continue
		}

		key := fmt.Sprintf("results/%s/%s.json", r.SessionID, r.ID)
		url, err := utils.UploadBytesToR2(ctx, key, data, "application/json")
		if err != nil {
			log.Printf("[ResultsArchiver] Upload failed for result %s: %v", r.ID, err)
			continue
		}

		now := time.Now()
		if err := a.DB.Model(&models.PairingResult{}).
			Where("id = ?", r.ID).
			Updates(map[string]interface{}{
				"archive_url": url,
				"archived_at": &now,
			}).Error; err != nil {
			log.Printf("[ResultsArchiver] Failed to mark result %s archived: %v", r.ID, err)
			continue
		}

		log.Printf("✅ Archived pairing result %s → %s", r.ID, url)
	}

	return nil
}

// PollResultsArchive runs the archiver until the context is cancelled.
func PollResultsArchive(ctx context.Context, archiver *ResultsArchiver, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Starting results archive worker (every %s)...", interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Results archive worker stopped")
			return
		case <-ticker.C:
			if err := archiver.ArchivePending(ctx); err != nil {
				log.Printf("[ResultsArchiver] Sweep failed: %v", err)
			}
		}
	}
}
