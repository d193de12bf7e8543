package models

import "time"

// DeadLetter records an event that a trigger could not process (PostgreSQL)
type DeadLetter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Kind      string    `json:"kind" gorm:"size:20;index"`
	Operation string    `json:"operation" gorm:"size:20"`
	EntityID  string    `json:"entity_id" gorm:"size:128;index"`
	Handler   string    `json:"handler" gorm:"size:64;index"`
	Code      string    `json:"code" gorm:"size:40"`
	Error     string    `json:"error" gorm:"type:text"`
	Payload   string    `json:"payload" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
