package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Table: users — the principal directory. A row exists only after an
// administrator-approved registration has been finalized.
type User struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SubjectID   string    `gorm:"column:subject_id;size:128;not null;uniqueIndex:ux_users_subject_id"`
	Username    string    `gorm:"column:username;size:255;not null"`
	Email       string    `gorm:"column:email;size:255;not null"`
	DisplayName string    `gorm:"column:display_name;size:255"`
	// Account id at the third-party identity provider, kept so the
	// compensation path can address the remote account.
	ProviderUID string    `gorm:"column:provider_uid;size:128"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
