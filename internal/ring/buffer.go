package ring

import (
	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/proc"
)

// Buffer is a named single-producer single-consumer ring, owned by up to two
// processes at a time. It is always accessed through a Registry holding the
// registry lock, so it carries no lock of its own.
type Buffer struct {
	name   Name
	book   pagepool.PageID // payload frames are book+1 .. book+PayloadPages
	owners [2]proc.ID
}

// Name returns the ring's name.
func (b *Buffer) Name() Name { return b.name }

// BookPage returns the frame holding the shared producer/consumer header.
func (b *Buffer) BookPage() pagepool.PageID { return b.book }

// HasOwner reports whether id is in the owner set.
func (b *Buffer) HasOwner(id proc.ID) bool {
	return b.owners[0] == id || b.owners[1] == id
}

// OwnerCount returns the number of distinct owners, 0, 1, or 2.
func (b *Buffer) OwnerCount() int {
	n := 0
	for _, o := range b.owners {
		if o != 0 {
			n++
		}
	}
	return n
}

// addOwner inserts id into the first empty owner slot. Caller must already
// have verified there is room (OwnerCount() < 2) and id isn't already an
// owner.
func (b *Buffer) addOwner(id proc.ID) {
	for i, o := range b.owners {
		if o == 0 {
			b.owners[i] = id
			return
		}
	}
}

// removeOwner clears id from the owner set, if present.
func (b *Buffer) removeOwner(id proc.ID) {
	for i, o := range b.owners {
		if o == id {
			b.owners[i] = 0
			return
		}
	}
}
