// Package ring implements a named shared-memory single-producer
// single-consumer ring buffer: its backing object and the process-wide
// registry that resolves names to buffers.
package ring

import (
	"errors"

	"github.com/teachos/ipckernel/internal/proc"
)

// PayloadPages is the number of payload pages behind each ring's single
// virtual mapping.
const PayloadPages = 16

// MaxRings bounds how many distinct named rings the registry can hold at
// once.
const MaxRings = 16

// NameMaxLen is the longest a ring name may be, excluding its NUL
// terminator.
const NameMaxLen = 15

// Name is a ring's 16-byte, NUL-padded identity.
type Name [16]byte

// Errors surfaced by ring operations.
var (
	ErrNameInvalid   = errors.New("ring: invalid name")
	ErrTableFull     = errors.New("ring: registry table full")
	ErrOutOfMemory   = errors.New("ring: page pool exhausted")
	ErrAlreadyOwned  = errors.New("ring: already owned by caller")
	ErrTooManyOwners = errors.New("ring: already has two owners")
	ErrNotOwned      = errors.New("ring: caller does not own this ring")
)

// ParseName validates and encodes a ring name: 1 to NameMaxLen bytes, no
// embedded NUL.
func ParseName(s string) (Name, error) {
	if len(s) < 1 || len(s) > NameMaxLen {
		return Name{}, ErrNameInvalid
	}
	var n Name
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return Name{}, ErrNameInvalid
		}
		n[i] = s[i]
	}
	return n, nil
}

func (n Name) String() string {
	i := 0
	for i < len(n) && n[i] != 0 {
		i++
	}
	return string(n[:i])
}
