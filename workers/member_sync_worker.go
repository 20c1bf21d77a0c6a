// workers/member_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"bounty-ledger/models"

	"gorm.io/gorm"
)

// ProfileChange is one entry of the profile service's change feed
type ProfileChange struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	TwitterID         *string   `json:"twitter_id,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type profileChangesResponse struct {
	Users []ProfileChange `json:"users"`
}

// MemberSyncWorker mirrors display fields from the profile service onto
// members that have already enrolled. It never enrolls anyone and never
// touches roles or balances.
type MemberSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	// newest UpdatedAt seen in the profile feed; local member writes never
	// move it
	cursor time.Time
}

func NewMemberSyncWorker(db *gorm.DB, profileServiceURL, serviceToken string, httpClient *http.Client) *MemberSyncWorker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &MemberSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceURL,
		endpointPath: "/api/v1/public/profiles",
		serviceToken: serviceToken,
		httpClient:   httpClient,
	}
}

func (w *MemberSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Member Sync Worker (profile service → members)…")
	go w.run(ctx)
}

func (w *MemberSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial member sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx, w.since()); err != nil {
				log.Printf("❌ Member sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Member Sync Worker stopped")
			return
		}
	}
}

func (w *MemberSyncWorker) since() time.Time {
	if w.cursor.IsZero() {
		return time.Unix(0, 0)
	}
	return w.cursor
}

func (w *MemberSyncWorker) fetchChanges(ctx context.Context, since time.Time) ([]ProfileChange, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to profile service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var out profileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode profile service response: %w", err)
	}
	return out.Users, nil
}

// SyncOnce pulls changes since the given time and returns how many enrolled
// members were updated. It advances the feed cursor used by the next tick.
func (w *MemberSyncWorker) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	changes, err := w.fetchChanges(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, nil
	}

	updated := 0
	for _, p := range changes {
		if p.UpdatedAt.After(w.cursor) {
			w.cursor = p.UpdatedAt
		}
		fields := map[string]interface{}{}
		if p.Username != "" {
			fields["name"] = p.Username
		}
		if p.TwitterID != nil && *p.TwitterID != "" {
			fields["twitter_id"] = *p.TwitterID
		}
		if p.ProfilePictureURL != nil {
			fields["image_url"] = *p.ProfilePictureURL
		}
		if len(fields) == 0 {
			continue
		}

		res := w.db.WithContext(ctx).Model(&models.Member{}).Where("id = ?", p.ID).Updates(fields)
		if res.Error != nil {
			log.Printf("[SYNC] ⚠️ Failed to update member %q: %v", p.ID, res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			updated++
		}
	}

	log.Printf("[SYNC] ✅ %d profile change(s), %d member(s) updated", len(changes), updated)
	return updated, nil
}
