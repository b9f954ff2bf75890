package sqlite

import "time"

type BrowserSessionModel struct {
	ID        uint      `gorm:"primaryKey"`
	IDHash    string    `gorm:"not null;uniqueIndex"`
	Token     string    `gorm:"not null;default:''"`
	UserJSON  string    `gorm:"column:user_json;not null;default:'{}'"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BrowserSessionModel) TableName() string { return "browser_sessions" }

type ActivityModel struct {
	ID         uint `gorm:"primaryKey"`
	UserID     *int64
	Username   string `gorm:"not null;default:''"`
	Action     string `gorm:"not null;index"`
	TargetType string `gorm:"not null"`
	TargetID   *int64
	Detail     string `gorm:"not null;default:''"`
	CreatedAt  time.Time
}

func (ActivityModel) TableName() string { return "activity_log" }
