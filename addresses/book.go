package addresses

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/jrsteele09/go-storefront/storage"
)

type BookOption func(*Book)

// WithNowTime overrides the clock used for timestamps.
func WithNowTime(now func() time.Time) BookOption {
	return func(b *Book) {
		b.nowTime = now
	}
}

// WithOwner sets the function that supplies the signed-in user's id for new addresses.
func WithOwner(userID func() string) BookOption {
	return func(b *Book) {
		b.userID = userID
	}
}

// Book reads and writes the whole list on every operation so that other handles on the
// same storage see each change.
type Book struct {
	store   storage.Storage
	nowTime func() time.Time
	userID  func() string

	mu sync.Mutex
}

func NewBook(store storage.Storage, opts ...BookOption) *Book {
	b := &Book{
		store:   store,
		nowTime: time.Now,
		userID:  func() string { return "" },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Book) List() ([]Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

// Get returns sferrors.ErrNotFound for an unknown id.
func (b *Book) Get(id string) (Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.load()
	if err != nil {
		return Address{}, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return Address{}, sferrors.Wrapf(sferrors.ErrNotFound, "address %s", id)
	}
	return list[i], nil
}

// Default returns the default address, or sferrors.ErrNotFound when the book is empty.
func (b *Book) Default() (Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.load()
	if err != nil {
		return Address{}, err
	}
	for _, a := range list {
		if a.IsDefault {
			return a, nil
		}
	}
	return Address{}, sferrors.Wrapf(sferrors.ErrNotFound, "default address")
}

// Create appends an address. The first address is always the default and a new default
// clears the flag on every other entry.
func (b *Book) Create(in Input) (Address, error) {
	if err := in.Validate(); err != nil {
		return Address{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.load()
	if err != nil {
		return Address{}, err
	}

	now := b.nowTime().UTC()
	a := Address{
		ID:           uuid.NewString(),
		UserID:       b.userID(),
		FullName:     in.FullName,
		PhoneNumber:  in.PhoneNumber,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		IsDefault:    in.IsDefault || len(list) == 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.IsDefault {
		clearDefault(list)
	}
	list = append(list, a)
	if err := b.save(list); err != nil {
		return Address{}, errors.Wrap(err, "[Book.Create]")
	}
	return a, nil
}

func (b *Book) Update(id string, u Update) (Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.load()
	if err != nil {
		return Address{}, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return Address{}, sferrors.Wrapf(sferrors.ErrNotFound, "address %s", id)
	}

	a := list[i]
	a.FullName = utils.ValueOr(u.FullName, a.FullName)
	a.PhoneNumber = utils.ValueOr(u.PhoneNumber, a.PhoneNumber)
	a.AddressLine1 = utils.ValueOr(u.AddressLine1, a.AddressLine1)
	a.AddressLine2 = utils.ValueOr(u.AddressLine2, a.AddressLine2)
	a.City = utils.ValueOr(u.City, a.City)
	a.State = utils.ValueOr(u.State, a.State)
	a.PostalCode = utils.ValueOr(u.PostalCode, a.PostalCode)
	a.Country = utils.ValueOr(u.Country, a.Country)
	if err := (Input{
		FullName: a.FullName, PhoneNumber: a.PhoneNumber, AddressLine1: a.AddressLine1,
		City: a.City, State: a.State, PostalCode: a.PostalCode, Country: a.Country,
	}).Validate(); err != nil {
		return Address{}, err
	}
	if utils.Value(u.IsDefault) {
		clearDefault(list)
		a.IsDefault = true
	}
	a.UpdatedAt = b.nowTime().UTC()
	list[i] = a

	if err := b.save(list); err != nil {
		return Address{}, errors.Wrap(err, "[Book.Update]")
	}
	return a, nil
}

// Delete removes an address. Removing the default promotes the first remaining entry.
func (b *Book) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.load()
	if err != nil {
		return err
	}
	i := indexOf(list, id)
	if i < 0 {
		return sferrors.Wrapf(sferrors.ErrNotFound, "address %s", id)
	}

	wasDefault := list[i].IsDefault
	list = append(list[:i], list[i+1:]...)
	if wasDefault && len(list) > 0 {
		list[0].IsDefault = true
	}
	return errors.Wrap(b.save(list), "[Book.Delete]")
}

func (b *Book) SetDefault(id string) (Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.load()
	if err != nil {
		return Address{}, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return Address{}, sferrors.Wrapf(sferrors.ErrNotFound, "address %s", id)
	}

	clearDefault(list)
	list[i].IsDefault = true
	list[i].UpdatedAt = b.nowTime().UTC()
	if err := b.save(list); err != nil {
		return Address{}, errors.Wrap(err, "[Book.SetDefault]")
	}
	return list[i], nil
}

func (b *Book) load() ([]Address, error) {
	raw, err := b.store.Get(StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Book.load]")
	}
	var list []Address
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		log.Err(err).Str("key", StorageKey).Msg("stored address list could not be decoded")
		return nil, sferrors.Wrapf(sferrors.ErrCorruptState, "stored addresses")
	}
	return list, nil
}

func (b *Book) save(list []Address) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return b.store.Set(StorageKey, string(raw))
}

func indexOf(list []Address, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func clearDefault(list []Address) {
	for i := range list {
		list[i].IsDefault = false
	}
}
