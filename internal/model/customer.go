package model

import (
	"time"

	"github.com/google/uuid"
)

// CustomerSource enum constants
const (
	SourceInstagram = "instagram"
	SourceFacebook  = "facebook"
	SourceOLX       = "olx"
	SourceRozetka   = "rozetka"
	SourceWebsite   = "website"
	SourceReferral  = "referral"
	SourceOther     = "other"
)

// CustomerSources lists every valid acquisition channel.
var CustomerSources = []string{
	SourceInstagram,
	SourceFacebook,
	SourceOLX,
	SourceRozetka,
	SourceWebsite,
	SourceReferral,
	SourceOther,
}

// Customer represents a buyer. Phone is the natural key used to attach
// repeat orders to the same customer row.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Email     string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Source    string    `gorm:"type:varchar(20);not null;default:'other'" json:"source"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValidSource reports whether s is a known acquisition channel.
func IsValidSource(s string) bool {
	for _, v := range CustomerSources {
		if v == s {
			return true
		}
	}
	return false
}
