package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"assetdesk.org/internal/auth"
)

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
}

// Services bundles one service per entity over a shared store.
type Services struct {
	Departments *DepartmentService
	Users       *UserService
	Categories  *CategoryService
	Locations   *LocationService
	Assets      *AssetService
	History     *HistoryService
	Reports     *ReportService
	Login       *LoginService
}

// Option tunes service behaviour, mostly for tests.
type Option func(*base)

// WithClock replaces time.Now for timestamp assignment.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithPasswordCost sets the bcrypt cost used for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(b *base) { b.cost = cost }
}

// NewServices wires every entity service to store. tokens may be nil when
// login is not served. It panics if the password cost is not accepted by
// bcrypt.
func NewServices(store Store, tokens TokenIssuer, tokenTTL time.Duration, opts ...Option) *Services {
	b := &base{store: store, now: time.Now, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(b)
	}
	return &Services{
		Departments: &DepartmentService{base: b},
		Users:       &UserService{base: b},
		Categories:  &CategoryService{base: b},
		Locations:   &LocationService{base: b},
		Assets:      &AssetService{base: b},
		History:     &HistoryService{base: b},
		Reports:     &ReportService{base: b},
		Login:       newLoginService(b, tokens, tokenTTL),
	}
}

type base struct {
	store Store
	now   func() time.Time
	cost  int
}

// stamp returns the current time at storage precision.
func (b *base) stamp() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

// touch returns an update timestamp strictly after prev.
func (b *base) touch(prev time.Time) time.Time {
	t := b.stamp()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

func (b *base) hash(password string) (string, error) {
	h, err := auth.HashPasswordCost(password, b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

func listRows[T any](ctx context.Context, s Store, table func(Tx) Table[T], page Page, where ...Filter) ([]T, error) {
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}
	var out []T
	err = s.InTx(ctx, func(tx Tx) error {
		rows, err := table(tx).List(ctx, Query{Page: page, Where: where})
		out = rows
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func getRow[T any](ctx context.Context, s Store, table func(Tx) Table[T], what string, id int64) (T, error) {
	var out T
	err := s.InTx(ctx, func(tx Tx) error {
		rec, err := fetch(ctx, table(tx), what, id)
		out = rec
		return err
	})
	return out, err
}

// fetch loads a row and words a miss as "<what> <id> not found".
func fetch[T any](ctx context.Context, t Table[T], what string, id int64) (T, error) {
	rec, err := t.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return rec, fmt.Errorf("%s %d %w", what, id, ErrNotFound)
	}
	return rec, err
}

// ensureExists reports a dangling reference as ErrReference. A nil id is fine.
func ensureExists[T any](ctx context.Context, t Table[T], what string, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := t.Get(ctx, *id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s %d %w", what, *id, ErrReference)
		}
		return err
	}
	return nil
}

// ensureUnique fails with ErrConflict when another row already holds value.
func ensureUnique[T any](ctx context.Context, t Table[T], s *Schema[T], column string, value any, self int64) error {
	if deref(value) == nil {
		return nil
	}
	rows, err := t.List(ctx, Query{Page: Page{Limit: 2}, Where: []Filter{Where(column, value)}})
	if err != nil {
		return err
	}
	for i := range rows {
		id, _, _ := s.Meta(&rows[i])
		if *id != self {
			return fmt.Errorf("%s %q %w", column, fmt.Sprint(deref(value)), ErrConflict)
		}
	}
	return nil
}

type dependent struct {
	count int
	what  string
}

// restrict fails with ErrInUse naming every non-empty dependent set.
func restrict(what string, id int64, deps ...dependent) error {
	var parts []string
	for _, d := range deps {
		if d.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", d.count, d.what))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("%s %d %w by %s", what, id, ErrInUse, strings.Join(parts, ", "))
}

// actor resolves the authenticated subject to a user row, if any.
func actor(ctx context.Context, tx Tx) (*User, error) {
	sub, ok := auth.SubjectFromContext(ctx)
	if !ok {
		return nil, nil
	}
	u, found, err := userByName(ctx, tx, sub)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}
