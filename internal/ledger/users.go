package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fina/internal/core"
)

const minPasswordLength = 8

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Currency string `json:"currency"`
}

// ProfileInput updates a user; empty fields are left unchanged.
type ProfileInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: at least %d characters", core.ErrWeakPassword, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates an active user together with the default wallets and
// categories.
func (s *Service) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	u := core.User{
		Username: strings.TrimSpace(in.Username),
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Currency: currency,
		Active:   true,
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	var created core.User
	err = s.store.WithTx(ctx, func(st Store) error {
		var err error
		created, err = st.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		return seed(ctx, st, created.ID)
	})
	if err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}

func seed(ctx context.Context, st Store, userID int64) error {
	for _, w := range core.SeedWallets {
		w.UserID = userID
		if _, err := st.CreateWallet(ctx, w); err != nil {
			return fmt.Errorf("seed wallet %q: %w", w.Name, err)
		}
	}
	for _, c := range core.SeedCategories {
		c.UserID = userID
		if _, err := st.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	return nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateProfile applies the non-empty fields of in. Username and email stay
// unique among active users.
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	if v := strings.TrimSpace(in.Username); v != "" {
		u.Username = v
	}
	if v := strings.TrimSpace(in.FullName); v != "" {
		u.FullName = v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		u.Email = strings.ToLower(v)
	}
	if v := strings.TrimSpace(in.Currency); v != "" {
		u.Currency = strings.ToUpper(v)
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	return s.store.UpdateUser(ctx, u)
}

func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	_, err = s.store.UpdateUser(ctx, u)
	return err
}

// VerifyPassword returns the active user matching the credentials.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	if !u.Active {
		return core.User{}, core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}

// Deactivate keeps the user's data but frees the username and email.
func (s *Service) Deactivate(ctx context.Context, id int64) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	u.Active = false
	return s.store.UpdateUser(ctx, u)
}

// DeleteUser removes the user and everything the user owns.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	wallets, err := s.store.ListWallets(ctx, id, core.AllWallets)
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	for _, w := range wallets {
		s.invalidate(w.ID)
	}
	return nil
}
