package service

import (
	"context"
	"database/sql"
	"net/mail"
	"strings"

	"github.com/safar/go-sql-shop/internal/apperr"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

// AccountService manages users and their addresses.
type AccountService struct {
	db *sql.DB
}

func NewAccountService(db *sql.DB) *AccountService {
	return &AccountService{db: db}
}

func (s *AccountService) RegisterUser(ctx context.Context, email, name string) (*models.User, error) {
	return s.createUser(ctx, email, name, models.RoleCustomer)
}

// CreateAdmin is only reachable from the operator CLI.
func (s *AccountService) CreateAdmin(ctx context.Context, email, name string) (*models.User, error) {
	return s.createUser(ctx, email, name, models.RoleAdmin)
}

func (s *AccountService) createUser(ctx context.Context, email, name, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Invalid("invalid email address %q", email)
	}
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	user, err := store.CreateUser(ctx, s.db, email, name, role)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return nil, apperr.Wrap(err, apperr.KindConflict, "email %q is already registered", email)
		}
		return nil, translate(err)
	}
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := store.GetUser(ctx, s.db, id)
	return user, translate(err)
}

func (s *AccountService) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	result, err := store.ListUsers(ctx, s.db, page, pageSize)
	return result, translate(err)
}

func (s *AccountService) CreateAddress(ctx context.Context, userID int64, in models.Address) (*models.Address, error) {
	in.UserID = userID
	in.Line1 = strings.TrimSpace(in.Line1)
	in.City = strings.TrimSpace(in.City)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))

	switch {
	case in.Line1 == "":
		return nil, apperr.Invalid("line1 is required")
	case in.City == "":
		return nil, apperr.Invalid("city is required")
	case in.PostalCode == "":
		return nil, apperr.Invalid("postal_code is required")
	case len(in.Country) != 2:
		return nil, apperr.Invalid("country must be a two-letter code")
	}

	addr, err := store.CreateAddress(ctx, s.db, in)
	return addr, translate(err)
}

func (s *AccountService) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses, err := store.ListAddresses(ctx, s.db, userID)
	return addresses, translate(err)
}

// GetAddress hides addresses of other users behind NotFound.
func (s *AccountService) GetAddress(ctx context.Context, userID, id int64) (*models.Address, error) {
	addr, err := store.GetAddress(ctx, s.db, id)
	if err != nil {
		return nil, translate(err)
	}
	if addr.UserID != userID {
		return nil, apperr.NotFound("address %d not found", id)
	}
	return addr, nil
}

// DeleteAddress refuses to delete an address that any order still references.
func (s *AccountService) DeleteAddress(ctx context.Context, userID, id int64) error {
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		addr, err := store.GetAddress(ctx, tx, id)
		if err != nil {
			return err
		}
		if addr.UserID != userID {
			return apperr.NotFound("address %d not found", id)
		}

		inUse, err := store.AddressInUse(ctx, tx, id)
		if err != nil {
			return err
		}
		if inUse {
			return apperr.Conflict("address %d is used by an order and cannot be deleted", id)
		}

		return store.DeleteAddress(ctx, tx, id)
	})
	if database.IsForeignKeyViolation(err) {
		return apperr.Wrap(err, apperr.KindConflict, "address %d is used by an order and cannot be deleted", id)
	}
	return translate(err)
}
