package model

import "time"

const (
	RoleDriver = "driver"
	RoleOwner  = "owner"
)

// User is the minimal account record the engine needs: admission paths only
// check existence and ownership, account management lives elsewhere.
type User struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone     string    `json:"phone" bson:"phone" validate:"required,e164"`
	Role      string    `json:"role" bson:"role" validate:"required,oneof=driver owner"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
