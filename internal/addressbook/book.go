// Package addressbook stores named contacts for the send flow.
package addressbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/dimensiondev/mask-wallet-core/internal/constants"
	"github.com/dimensiondev/mask-wallet-core/internal/securefile"
)

var ErrInvalidAddress = errors.New("invalid address")

type Contact struct {
	Name    string         `json:"name"`
	Address common.Address `json:"address"`
}

type fileFormat struct {
	Schema   int       `json:"schema"`
	Contacts []Contact `json:"contacts"`
}

// Book keeps contacts in insertion order and publishes the full list after each change.
type Book struct {
	path string
	feed event.Feed

	mu       sync.RWMutex
	contacts []Contact
}

func NewBook(path string) *Book {
	return &Book{path: path}
}

// NewDefaultBook resolves address_book.json using securefile.ResolvePath.
func NewDefaultBook() (*Book, error) {
	path, err := securefile.ResolvePath(constants.AppName, constants.AddressBookFile)
	if err != nil {
		return nil, fmt.Errorf("resolve address book path: %w", err)
	}
	return NewBook(path), nil
}

func (b *Book) Load(ctx context.Context) error {
	_ = ctx

	f, _, err := securefile.ReadJSON[fileFormat](b.path)
	if err != nil {
		return fmt.Errorf("read address book: %w", err)
	}

	b.mu.Lock()
	b.contacts = append([]Contact(nil), f.Contacts...)
	b.mu.Unlock()
	return nil
}

func (b *Book) List() []Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Contact{}, b.contacts...)
}

// ParseAddress validates a hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func (b *Book) AddContact(ctx context.Context, name, address string) error {
	addr, err := ParseAddress(address)
	if err != nil {
		return err
	}
	return b.update(ctx, func(in []Contact) []Contact {
		return append(in, Contact{Name: strings.TrimSpace(name), Address: addr})
	})
}

func (b *Book) RemoveContact(ctx context.Context, address string) error {
	addr, err := ParseAddress(address)
	if err != nil {
		return err
	}
	return b.update(ctx, func(in []Contact) []Contact {
		out := in[:0]
		for _, c := range in {
			if c.Address != addr {
				out = append(out, c)
			}
		}
		return out
	})
}

func (b *Book) RenameContact(ctx context.Context, name, address string) error {
	addr, err := ParseAddress(address)
	if err != nil {
		return err
	}
	return b.update(ctx, func(in []Contact) []Contact {
		for i := range in {
			if in[i].Address == addr {
				in[i].Name = strings.TrimSpace(name)
			}
		}
		return in
	})
}

// Subscribe delivers the full contact list after every change.
func (b *Book) Subscribe(ch chan<- []Contact) event.Subscription {
	return b.feed.Subscribe(ch)
}

func (b *Book) update(ctx context.Context, mutate func([]Contact) []Contact) error {
	_ = ctx

	b.mu.Lock()
	prev := b.contacts
	next := mutate(append([]Contact(nil), prev...))

	if err := securefile.WriteJSON(b.path, fileFormat{Schema: constants.SchemaV1, Contacts: next}); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("persist address book: %w", err)
	}
	b.contacts = next
	snapshot := append([]Contact{}, next...)
	b.mu.Unlock()

	b.feed.Send(snapshot)
	return nil
}
