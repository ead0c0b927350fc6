package models

import (
	"fmt"
	"time"
)

// Base model fields shared by all models
type Base struct {
	UUID      string    `json:"uuid" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BaleStatus defines the lifecycle status of a bale
type BaleStatus string

const (
	// StatusField represents a bale still on the field
	StatusField BaleStatus = "field"
	// StatusYard represents a bale transported to the yard
	StatusYard BaleStatus = "yard"
	// StatusProcessed represents a bale that went through processing
	StatusProcessed BaleStatus = "processed"
)

// StatusFromString converts a string to a BaleStatus
func StatusFromString(status string) BaleStatus {
	switch status {
	case "field":
		return StatusField
	case "yard":
		return StatusYard
	case "processed":
		return StatusProcessed
	default:
		return ""
	}
}

// Valid reports whether the status is one of the known lifecycle states
func (s BaleStatus) Valid() bool {
	return s == StatusField || s == StatusYard || s == StatusProcessed
}

// Bale represents a physical cotton bale being tracked
type Bale struct {
	Base
	Tag           string            `json:"tag" gorm:"column:tag;uniqueIndex"`
	Season        string            `json:"season" gorm:"column:season;index"`
	Plot          string            `json:"plot" gorm:"column:plot;index"`
	Number        string            `json:"number" gorm:"column:number"`
	Status        BaleStatus        `json:"status" gorm:"column:status;index"`
	CreatedBy     string            `json:"created_by" gorm:"column:created_by"`
	UpdatedBy     string            `json:"updated_by" gorm:"column:updated_by"`
	TransportedBy *string           `json:"transported_by,omitempty" gorm:"column:transported_by"`
	TransportedAt *time.Time        `json:"transported_at,omitempty" gorm:"column:transported_at"`
	ProcessedBy   *string           `json:"processed_by,omitempty" gorm:"column:processed_by"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty" gorm:"column:processed_at"`
	StatusHistory []BaleStatusEntry `json:"status_history,omitempty" gorm:"foreignKey:BaleUUID;references:UUID"`
}

// BaleTag builds the composite identifier for a bale
func BaleTag(season, plot, number string) string {
	return fmt.Sprintf("%s-%s-%s", season, plot, number)
}

// BaleStatusEntry is one row of a bale's append-only status history
type BaleStatusEntry struct {
	ID        uint       `json:"-" gorm:"primaryKey"`
	BaleUUID  string     `json:"-" gorm:"column:bale_uuid;type:uuid;index"`
	Seq       int        `json:"seq" gorm:"column:seq"`
	Status    BaleStatus `json:"status" gorm:"column:status"`
	Actor     string     `json:"actor" gorm:"column:actor"`
	Timestamp time.Time  `json:"timestamp" gorm:"column:timestamp"`
}

// SeasonCounter tracks the last sequential bale number issued for a season.
// Numbering is global per season, independent of plot.
type SeasonCounter struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	Season     string    `json:"season" gorm:"column:season;uniqueIndex"`
	LastNumber int       `json:"last_number" gorm:"column:last_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateBatchRequest is the payload for a batch bale creation
type CreateBatchRequest struct {
	Season string `json:"season" binding:"required"`
	Plot   string `json:"plot" binding:"required"`
	Count  int    `json:"count" binding:"required"`
}

// CreateBatchResponse reports the outcome of a batch creation
type CreateBatchResponse struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Tags    []string `json:"tags"`
}

// TransitionRequest is the payload for a status transition
type TransitionRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
}

// TransitionRejection is the error payload returned when a transition is
// rejected, carrying the record's current status so offline clients can
// tell "already applied" from a real conflict.
type TransitionRejection struct {
	Message       string     `json:"message"`
	Code          string     `json:"code"`
	CurrentStatus BaleStatus `json:"current_status,omitempty"`
}

// WipeRequest is the payload for the bulk wipe endpoint
type WipeRequest struct {
	Confirm string `json:"confirm" binding:"required"`
}

// WipeResponse reports how many bales were removed
type WipeResponse struct {
	Deleted int64 `json:"deleted"`
}
