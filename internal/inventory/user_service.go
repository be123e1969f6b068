package inventory

import (
	"context"
)

// UserService manages user accounts. Passwords are stored only as bcrypt hashes.
type UserService struct {
	*base
}

func (s *UserService) table(tx Tx) Table[User] { return tx.Users() }

func (s *UserService) List(ctx context.Context, page Page) ([]User, error) {
	return listRows(ctx, s.store, s.table, page)
}

func (s *UserService) Get(ctx context.Context, id int64) (User, error) {
	return getRow(ctx, s.store, s.table, "user", id)
}

// FindByUsername returns the user with the given username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (User, bool, error) {
	var (
		out   User
		found bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		u, ok, err := userByName(ctx, tx, username)
		out, found = u, ok
		return err
	})
	return out, found, err
}

func userByName(ctx context.Context, tx Tx, username string) (User, bool, error) {
	rows, err := tx.Users().List(ctx, Query{Page: Page{Limit: 1}, Where: []Filter{Where("username", username)}})
	if err != nil || len(rows) == 0 {
		return User{}, false, err
	}
	return rows[0], true, nil
}

func (s *UserService) Create(ctx context.Context, in UserInput) (User, error) {
	if err := in.validate(); err != nil {
		return User{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}
	var out User
	err = s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Users()
		// username is checked first so it wins when both collide.
		if err := ensureUnique(ctx, t, UserSchema, "username", in.Username, 0); err != nil {
			return err
		}
		if err := ensureUnique(ctx, t, UserSchema, "email", in.Email, 0); err != nil {
			return err
		}
		if err := ensureExists(ctx, tx.Departments(), "department", in.DepartmentID); err != nil {
			return err
		}
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		now := s.stamp()
		out = User{
			Username:     in.Username,
			Email:        in.Email,
			FullName:     in.FullName,
			DepartmentID: in.DepartmentID,
			IsAdmin:      in.IsAdmin,
			IsActive:     active,
			ADUserID:     in.ADUserID,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return t.Insert(ctx, &out)
	})
	return out, err
}

func (s *UserService) Update(ctx context.Context, id int64, p UserPatch) (User, error) {
	if err := p.validate(); err != nil {
		return User{}, err
	}
	var hash string
	if p.Password.Set {
		h, err := s.hash(p.Password.Value)
		if err != nil {
			return User{}, err
		}
		hash = h
	}
	var out User
	err := s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Users()
		cur, err := fetch(ctx, t, "user", id)
		if err != nil {
			return err
		}
		if p.Username.Set && p.Username.Value != cur.Username {
			if err := ensureUnique(ctx, t, UserSchema, "username", p.Username.Value, id); err != nil {
				return err
			}
			cur.Username = p.Username.Value
		}
		if p.Email.Set && p.Email.Value != cur.Email {
			if err := ensureUnique(ctx, t, UserSchema, "email", p.Email.Value, id); err != nil {
				return err
			}
			cur.Email = p.Email.Value
		}
		if p.FullName.Set {
			cur.FullName = p.FullName.Value
		}
		if p.DepartmentID.Set && !p.DepartmentID.Null {
			if err := ensureExists(ctx, tx.Departments(), "department", &p.DepartmentID.Value); err != nil {
				return err
			}
		}
		applyPtr(p.DepartmentID, &cur.DepartmentID)
		if p.IsAdmin.Set {
			cur.IsAdmin = p.IsAdmin.Value
		}
		if p.IsActive.Set {
			cur.IsActive = p.IsActive.Value
		}
		applyPtr(p.ADUserID, &cur.ADUserID)
		if hash != "" {
			cur.PasswordHash = hash
		}
		cur.UpdatedAt = s.touch(cur.UpdatedAt)
		if err := t.Update(ctx, &cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

// Delete refuses while the user owns assets or authored history, and detaches
// the user's saved reports.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		t := tx.Users()
		if _, err := fetch(ctx, t, "user", id); err != nil {
			return err
		}
		owned, err := tx.Assets().Count(ctx, Where("owner_id", id))
		if err != nil {
			return err
		}
		history, err := tx.History().Count(ctx, Where("user_id", id))
		if err != nil {
			return err
		}
		if err := restrict("user", id,
			dependent{owned, "owned assets"},
			dependent{history, "history entries"},
		); err != nil {
			return err
		}
		if err := s.detachReports(ctx, tx, id); err != nil {
			return err
		}
		return t.Delete(ctx, id)
	})
}

func (s *UserService) detachReports(ctx context.Context, tx Tx, userID int64) error {
	reports := tx.Reports()
	for {
		rows, err := reports.List(ctx, Query{Page: Page{Limit: MaxLimit}, Where: []Filter{Where("created_by_id", userID)}})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].CreatedByID = nil
			rows[i].UpdatedAt = s.touch(rows[i].UpdatedAt)
			if err := reports.Update(ctx, &rows[i]); err != nil {
				return err
			}
		}
	}
}

// EnsureAdmin creates an active administrator unless the username is taken.
// created reports whether a new account was stored.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (u User, created bool, err error) {
	u, found, err := s.FindByUsername(ctx, username)
	if err != nil || found {
		return u, false, err
	}
	u, err = s.Create(ctx, UserInput{
		Username: username,
		Email:    email,
		FullName: username,
		IsAdmin:  true,
		Password: password,
	})
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}
