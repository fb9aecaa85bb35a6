package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the single account record. Local-credential users carry a bcrypt
// hash in Password; Google-provisioned users carry the provider subject in
// GoogleID. The unique indexes on email and username are what surfaces the
// duplicate-signup case — there is no pre-insert existence check.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Username  string    `gorm:"not null;size:100;uniqueIndex" json:"username"`
	Password  string    `json:"-"`
	GoogleID  *string   `gorm:"size:255;index" json:"-"`
	Avatar    string    `gorm:"size:512" json:"avatar,omitempty"`
	Verified  bool      `gorm:"default:false" json:"verified"`
	Role      string    `gorm:"size:20;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
