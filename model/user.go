package model

import (
	"time"

	"gorm.io/gorm"
)

// Role gates access to route groups.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleCustomer   Role = "CUSTOMER"
)

// Gender of a mobile user.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// Platform is the sign-up channel of a mobile user.
type Platform string

const (
	PlatformFacebook Platform = "FACEBOOK"
	PlatformGmail    Platform = "GMAIL"
	PlatformApple    Platform = "APPLE"
	PlatformEmail    Platform = "EMAIL"
	PlatformPhone    Platform = "PHONE"
)

// User is a mobile-app inspector account.
type User struct {
	ID           string     `gorm:"primaryKey;size:26" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	UserName     string     `gorm:"size:64" json:"userName"`
	Phone        string     `gorm:"size:32" json:"phone"`
	Platform     Platform   `gorm:"size:16" json:"platform"`
	Gender       Gender     `gorm:"size:8" json:"gender"`
	Address      string     `gorm:"size:255" json:"address"`
	Avatar       string     `gorm:"size:255" json:"avatar"`
	PasswordHash string     `gorm:"size:72" json:"-"`
	Role         Role       `gorm:"size:16;not null" json:"role"`
	IsVerified   bool       `gorm:"not null" json:"isVerified"`
	IsDeleted    bool       `gorm:"index;not null" json:"isDeleted"`
	DeleteDate   *time.Time `json:"deleteDate"`
	LastVisit    *time.Time `json:"lastVisit"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	if u.Platform == "" {
		u.Platform = PlatformEmail
	}
	return nil
}

// Admin is a web back-office account.
type Admin struct {
	ID           string     `gorm:"primaryKey;size:26" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	FullName     string     `gorm:"size:128" json:"fullName"`
	Phone        string     `gorm:"size:32" json:"phone"`
	PasswordHash string     `gorm:"size:72;not null" json:"-"`
	Role         Role       `gorm:"size:16;not null" json:"role"`
	IsDeleted    bool       `gorm:"index;not null" json:"isDeleted"`
	DeleteDate   *time.Time `json:"deleteDate"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	LastLoginIP  string     `gorm:"size:45" json:"lastLoginIp"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (a *Admin) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	if a.Role == "" {
		a.Role = RoleAdmin
	}
	return nil
}
