package model

import (
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// LocalIDPrefix marks ids minted for the device-local store.
const LocalIDPrefix = "local_"

// ID NAMESPACES:
// Remote ids are xids ("cv37rs3pp9olc6atsptg": 20 chars, time-sortable).
// Local ids are "local_" + a random UUID. The prefix means the two namespaces
// can never collide, so a migrated record is always re-created under a fresh
// remote id instead of accidentally overwriting one.

// NewLocalID returns a fresh id for a device-local record.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// NewRemoteID returns a fresh id for a remote record.
func NewRemoteID() string {
	return xid.New().String()
}
