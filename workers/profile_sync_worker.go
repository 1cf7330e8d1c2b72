// workers/profile_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"community-challenges/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteProfile matches the JSON returned by the Profile Service.
type RemoteProfile struct {
	ExternalID       string    `json:"external_id"`
	Username         string    `json:"username"`
	AccountStatus    string    `json:"account_status"`
	Verified         bool      `json:"verified"`
	SubscriptionType string    `json:"subscription_type"`
	Location         string    `json:"location"`
	ExperienceLevel  string    `json:"experience_level"`
	Genres           []string  `json:"genres"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the profile service response.
type GetProfileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// ProfileSyncWorker mirrors profiles into profile_mirrors so joins can check
// eligibility without calling out.
type ProfileSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
}

func NewProfileSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string, interval time.Duration) *ProfileSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ProfileSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	log.Info().Msg("🔁 Starting Profile Sync Worker (profile-service → profile_mirrors)…")
	go w.run(ctx)
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time
	if _, err := w.SyncBatch(ctx, time.Time{}); err != nil {
		log.Warn().Err(err).Msg("⚠️ Initial profile sync failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncBatch(ctx, w.lastSyncTime()); err != nil {
				log.Error().Err(err).Msg("❌ Profile sync batch failed")
			}
		case <-ctx.Done():
			log.Info().Msg("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// lastSyncTime is the newest UpdatedAt already mirrored.
func (w *ProfileSyncWorker) lastSyncTime() time.Time {
	var latest models.ProfileMirror
	err := w.db.Order("updated_at DESC").Limit(1).Find(&latest).Error
	if err != nil || latest.UpdatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return latest.UpdatedAt
}

// SyncBatch fetches profile changes since the given time and upserts them.
// It returns the number of rows upserted.
func (w *ProfileSyncWorker) SyncBatch(ctx context.Context, since time.Time) (int, error) {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	log.Debug().Str("url", finalURL).Msg("[SYNC] ➡️ fetching profile changes")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("profile service non-200 response: %d: %s", resp.StatusCode, string(body))
	}

	var response GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode profile service response: %w", err)
	}
	if len(response.Users) == 0 {
		log.Debug().Str("since", sinceStr).Msg("[SYNC] ✅ no profile changes")
		return 0, nil
	}

	var upserted, failed int
	for _, remote := range response.Users {
		local := models.ProfileMirror{
			ID:               uuid.NewString(),
			ExternalUserID:   remote.ExternalID,
			Username:         remote.Username,
			Verified:         remote.Verified,
			SubscriptionType: remote.SubscriptionType,
			Location:         remote.Location,
			ExperienceLevel:  remote.ExperienceLevel,
			Genres:           remote.Genres,
			CreatedAt:        remote.CreatedAt,
			UpdatedAt:        remote.UpdatedAt,
		}
		if local.SubscriptionType == "" {
			local.SubscriptionType = "free"
		}
		if remote.AccountStatus == "deactivated" || remote.AccountStatus == "suspended" {
			local.DeletedAt = gorm.DeletedAt{Time: remote.UpdatedAt, Valid: true}
		}

		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "verified", "subscription_type", "location",
				"experience_level", "genres", "updated_at", "deleted_at",
			}),
		}).Create(&local).Error; err != nil {
			failed++
			log.Warn().Err(err).Str("external_id", remote.ExternalID).Msg("[SYNC] ⚠️ failed to upsert profile")
			continue
		}
		upserted++
	}

	log.Info().Int("received", len(response.Users)).Int("upserted", upserted).Int("errors", failed).Msg("[SYNC] ✅ profiles synced")
	return upserted, nil
}
