package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	_ "modernc.org/sqlite"

	"github.com/atvirokodosprendimai/testdesk/internal/domain"
)

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

// SessionRepository keeps browser sessions. Rows are keyed by the hash of
// the cookie id so a leaked database does not reveal live cookies.
type SessionRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, time.Time, error) {
	var m BrowserSessionModel
	err := r.db.WithContext(ctx).Where("id_hash = ?", HashID(id)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Session{}, time.Time{}, domain.ErrNoSession
	}
	if err != nil {
		return domain.Session{}, time.Time{}, err
	}
	if !m.ExpiresAt.After(r.now()) {
		_ = r.Delete(ctx, id)
		return domain.Session{}, time.Time{}, domain.ErrNoSession
	}

	s := domain.Session{Token: m.Token}
	if strings.TrimSpace(m.UserJSON) != "" {
		if err := json.Unmarshal([]byte(m.UserJSON), &s.User); err != nil {
			return domain.Session{}, time.Time{}, err
		}
	}
	return s, m.ExpiresAt, nil
}

// Put creates or replaces the session stored under id.
func (r *SessionRepository) Put(ctx context.Context, id string, value domain.Session, expiresAt time.Time) error {
	user, err := json.Marshal(value.User)
	if err != nil {
		return err
	}
	m := BrowserSessionModel{
		IDHash:    HashID(id),
		Token:     value.Token,
		UserJSON:  string(user),
		ExpiresAt: expiresAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "user_json", "expires_at", "updated_at"}),
	}).Create(&m).Error
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id_hash = ?", HashID(id)).Delete(&BrowserSessionModel{}).Error
}

// DeleteExpired removes sessions past their expiry and reports how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now().UTC()).Delete(&BrowserSessionModel{})
	return res.RowsAffected, res.Error
}

// BrowserSession is the SessionStore of one browser, identified by its
// cookie id. Every Save extends the expiry by ttl.
type BrowserSession struct {
	repo *SessionRepository
	id   string
	ttl  time.Duration
}

func (r *SessionRepository) ForBrowser(id string, ttl time.Duration) *BrowserSession {
	return &BrowserSession{repo: r, id: id, ttl: ttl}
}

func (b *BrowserSession) ID() string { return b.id }

func (b *BrowserSession) Load(ctx context.Context) (domain.Session, error) {
	s, _, err := b.repo.Get(ctx, b.id)
	return s, err
}

func (b *BrowserSession) Save(ctx context.Context, value domain.Session) error {
	return b.repo.Put(ctx, b.id, value, b.repo.now().Add(b.ttl))
}

func (b *BrowserSession) Clear(ctx context.Context) error {
	return b.repo.Delete(ctx, b.id)
}

var _ domain.SessionStore = (*BrowserSession)(nil)

// ActivityRepository is the local activity trail.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Record(ctx context.Context, value domain.Activity) error {
	m := ActivityModel{
		UserID:     value.UserID,
		Username:   value.Username,
		Action:     value.Action,
		TargetType: value.TargetType,
		TargetID:   value.TargetID,
		Detail:     value.Detail,
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows := make([]ActivityModel, 0)
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Activity, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.Activity{
			ID:         int64(m.ID),
			UserID:     m.UserID,
			Username:   m.Username,
			Action:     m.Action,
			TargetType: m.TargetType,
			TargetID:   m.TargetID,
			Detail:     m.Detail,
			CreatedAt:  m.CreatedAt,
		})
	}
	return result, nil
}

var _ domain.ActivityLog = (*ActivityRepository)(nil)
