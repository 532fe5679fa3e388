package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Application statuses.
const (
	StatusApplied      = "applied"
	StatusInterviewing = "interviewing"
	StatusRejected     = "rejected"
	StatusOffer        = "offer"
	StatusAccepted     = "accepted"
)

// User 表示系统中的账号信息。
type User struct {
	ID           uint      `gorm:"primaryKey"`
	PublicID     uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255"`
	Name         string    `gorm:"size:255"`
	IsActive     bool      `gorm:"not null"`
	IsStaff      bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Country 是用户自定义的国家/地区。
type Country struct {
	ID      uint   `gorm:"primaryKey"`
	OwnerID uint   `gorm:"not null;uniqueIndex:idx_countries_owner_name"`
	Owner   *User  `gorm:"constraint:OnDelete:CASCADE"`
	Name    string `gorm:"size:255;not null;uniqueIndex:idx_countries_owner_name"`
}

// Tag 是按用户隔离的标签，(owner, name) 唯一。
type Tag struct {
	ID      uint   `gorm:"primaryKey"`
	OwnerID uint   `gorm:"not null;uniqueIndex:idx_tags_owner_name"`
	Owner   *User  `gorm:"constraint:OnDelete:CASCADE"`
	Name    string `gorm:"size:255;not null;uniqueIndex:idx_tags_owner_name"`
}

// Company 表示投递目标公司。
type Company struct {
	ID        uint     `gorm:"primaryKey"`
	OwnerID   uint     `gorm:"not null;uniqueIndex:idx_companies_owner_name"`
	Owner     *User    `gorm:"constraint:OnDelete:CASCADE"`
	Name      string   `gorm:"size:255;not null;uniqueIndex:idx_companies_owner_name"`
	CountryID *uint    `gorm:"index"`
	Country   *Country `gorm:"constraint:OnDelete:SET NULL"`
	Link      string   `gorm:"size:512"`
	Tags      []Tag    `gorm:"many2many:company_tags;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resume 记录上传到对象存储中的 PDF 简历。
type Resume struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   uint   `gorm:"not null;index"`
	Owner     *User  `gorm:"constraint:OnDelete:CASCADE"`
	ObjectKey string `gorm:"size:512;not null"`
	FileName  string `gorm:"size:255"`
	Size      int64
	Tags      []Tag `gorm:"many2many:resume_tags;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Application 表示一次职位投递。
type Application struct {
	ID        uint     `gorm:"primaryKey"`
	OwnerID   uint     `gorm:"not null;index"`
	Owner     *User    `gorm:"constraint:OnDelete:CASCADE"`
	CompanyID uint     `gorm:"not null;index"`
	Company   *Company `gorm:"constraint:OnDelete:CASCADE"`
	CountryID *uint    `gorm:"index"`
	Country   *Country `gorm:"constraint:OnDelete:SET NULL"`
	ResumeID  *uint    `gorm:"index"`
	Resume    *Resume  `gorm:"constraint:OnDelete:SET NULL"`
	Tags      []Tag    `gorm:"many2many:application_tags;constraint:OnDelete:CASCADE"`
	Position  string   `gorm:"size:255;not null"`
	Link      string   `gorm:"size:512"`
	Note      string   `gorm:"type:text"`
	Status    string   `gorm:"size:32;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interview 属于某次投递的一轮面试。
type Interview struct {
	ID            uint           `gorm:"primaryKey"`
	OwnerID       uint           `gorm:"not null;index"`
	Owner         *User          `gorm:"constraint:OnDelete:CASCADE"`
	ApplicationID uint           `gorm:"not null;index"`
	Application   *Application   `gorm:"constraint:OnDelete:CASCADE"`
	Tags          []Tag          `gorm:"many2many:interview_tags;constraint:OnDelete:CASCADE"`
	Date          datatypes.Date `gorm:"not null"`
	Note          string         `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AllModels lists every table in dependency order for AutoMigrate.
func AllModels() []any {
	return []any{
		&User{},
		&Country{},
		&Tag{},
		&Company{},
		&Resume{},
		&Application{},
		&Interview{},
	}
}
