package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClaimStatus is the workflow status of a claim.
type ClaimStatus string

const (
	StatusPending   ClaimStatus = "PENDING"
	StatusOnGoing   ClaimStatus = "ON_GOING"
	StatusSubmitted ClaimStatus = "SUBMITTED"
	StatusApprove   ClaimStatus = "APPROVE"
	StatusReject    ClaimStatus = "REJECT"
	StatusActive    ClaimStatus = "ACTIVE"
	StatusPause     ClaimStatus = "PAUSE"
	StatusArchive   ClaimStatus = "ARCHIVE"
	StatusNull      ClaimStatus = "NULL"
)

// DentClass is the severity bucket of a dent.
type DentClass string

const (
	DentVeryLight DentClass = "VERY_LIGHT"
	DentLight     DentClass = "LIGHT"
	DentModerate  DentClass = "MODERATE"
	DentMedium    DentClass = "MEDIUM"
	DentHeavy     DentClass = "HEAVY"
	DentClassNull DentClass = "NULL"
)

// DentSize is the coin-size bucket of a dent.
type DentSize string

const (
	SizeDime    DentSize = "DIME"
	SizeNickel  DentSize = "NICKEL"
	SizeQuarter DentSize = "QUARTER"
	SizeHalf    DentSize = "HALF"
	SizeNull    DentSize = "NULL"
)

// Vehicle holds the owner, inspection location and identity of the
// inspected vehicle. It is stored inline on the claim row.
type Vehicle struct {
	OwnerName          string `gorm:"size:128" json:"ownerName"`
	OwnerNumber        string `gorm:"size:32" json:"ownerNumber"`
	OwnerAddressOne    string `gorm:"size:255" json:"ownerAddressOne"`
	OwnerAddressTwo    string `gorm:"size:255" json:"ownerAddressTwo"`
	City               string `gorm:"size:64" json:"city"`
	State              string `gorm:"size:64" json:"state"`
	Zip                string `gorm:"size:16" json:"zip"`
	LocationName       string `gorm:"size:128" json:"locationName"`
	LocationNumber     string `gorm:"size:32" json:"locationNumber"`
	LocationAddressOne string `gorm:"size:255" json:"locationAddressOne"`
	LocationAddressTwo string `gorm:"size:255" json:"locationAddressTwo"`
	LocationCity       string `gorm:"size:64" json:"locationCity"`
	LocationState      string `gorm:"size:64" json:"locationState"`
	LocationZip        string `gorm:"size:16" json:"locationZip"`
	Make               string `gorm:"size:64" json:"make"`
	Model              string `gorm:"size:64" json:"model"`
	Year               string `gorm:"size:8" json:"year"`
	Color              string `gorm:"size:32" json:"color"`
	PlateNumber        string `gorm:"size:32" json:"plateNumber"`
	VIN                string `gorm:"size:17;index:idx_claim_vin" json:"vin"`
}

// DentRecord is a single damage observation. It has no lifecycle of its
// own and is persisted as part of the parent claim's dentInfo column.
type DentRecord struct {
	Title              string    `json:"title"`
	DentType           DentClass `json:"dentType"`
	DentSize           DentSize  `json:"dentSize"`
	Price              float64   `json:"price"`
	Step               int       `json:"step,omitempty"`
	VINNumber          string    `json:"vinNumber,omitempty"`
	OdoMeterNumber     string    `json:"odoMeterNumber,omitempty"`
	IsCheckQuality     bool      `json:"isCheckQuality,omitempty"`
	Miles              string    `json:"miles,omitempty"`
	Images             []string  `json:"images"`
	DashboardVINImages []string  `json:"dashboardVinImages,omitempty"`
	DoorJamVINImages   []string  `json:"doorJamVinImages,omitempty"`
}

// Claim is a vehicle-damage inspection case.
type Claim struct {
	ID          string                          `gorm:"primaryKey;size:26" json:"id"`
	Company     string                          `gorm:"size:128;index:idx_claim_company" json:"company"`
	ClaimNumber string                          `gorm:"size:64;index:idx_claim_number" json:"claimNumber"`
	Vehicle     Vehicle                         `gorm:"embedded;embeddedPrefix:vehicle_" json:"vehicle"`
	Status      ClaimStatus                     `gorm:"size:16;index:idx_claim_status;not null" json:"status"`
	DentInfo    datatypes.JSONSlice[DentRecord] `json:"dentInfo"`
	IsArchive   bool                            `gorm:"index:idx_claim_archive;not null" json:"isArchive"`
	IsDeleted   bool                            `gorm:"index:idx_claim_deleted;not null" json:"isDeleted"`
	DeleteDate  *time.Time                      `json:"deleteDate"`
	CreatedAt   time.Time                       `gorm:"index:idx_claim_created" json:"createdAt"`
	UpdatedAt   time.Time                       `json:"updatedAt"`
}

// BeforeCreate assigns an ID and the initial PENDING status.
func (c *Claim) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	if c.DentInfo == nil {
		c.DentInfo = datatypes.JSONSlice[DentRecord]{}
	}
	return nil
}
