package model

import "time"

// AdmissionLock is the advisory lock that serializes admission decisions for
// one facility. The lock id is the facility id, so two concurrent admissions
// for the same facility collide on the unique _id while facilities stay
// independent. Locks self-expire so a crashed holder cannot wedge a facility.
type AdmissionLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
