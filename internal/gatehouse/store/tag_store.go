package store

import (
	"context"
	"errors"
	"time"
)

// DefaultImageRef is used for tags registered without a picture.
const DefaultImageRef = "default.jpg"

var (
	ErrDuplicateCredential = errors.New("tag uid is already registered")
	ErrDuplicatePrincipal  = errors.New("principal name is already in use")
)

// TagRecord binds a scanned credential to the person carrying it.
// Records are never updated or deleted once registered.
type TagRecord struct {
	Credential    string
	PrincipalName string
	ImageRef      string
	CreatedAt     time.Time
}

type TagStore interface {
	// Lookup is an exact, case-sensitive match on credential.
	Lookup(ctx context.Context, credential string) (TagRecord, bool, error)
	Register(ctx context.Context, rec TagRecord) error
	List(ctx context.Context) ([]TagRecord, error)
}
