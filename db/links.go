package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lithammer/shortuuid/v3"

	"tickethold/entity"
)

// codeGenerationAttempts bounds the retry loop for redemption code
// collisions. shortuuid collisions are practically impossible; the loop
// exists so a collision surfaces as a retry, not a failed request.
const codeGenerationAttempts = 5

type LinksPostgresRepository struct {
	db *sqlx.DB
}

func NewLinksPostgresRepository(db *sqlx.DB) *LinksPostgresRepository {
	if db == nil {
		panic("db must be set")
	}
	return &LinksPostgresRepository{db: db}
}

// Create persists a link under an active hold, assigning a unique
// redemption code and public identifier. The parent hold is locked so a
// concurrent release cannot slip between the check and the insert.
func (r *LinksPostgresRepository) Create(ctx context.Context, link entity.PurchaseLink) (entity.PurchaseLink, error) {
	if err := entity.ValidateQuantityMode(link.QuantityMode, link.QuantityLimit); err != nil {
		return entity.PurchaseLink{}, err
	}
	if link.Metadata == nil {
		link.Metadata = json.RawMessage(`{}`)
	}

	link.PublicID = uuid.NewString()
	link.Status = entity.LinkStatusActive
	link.QuantityPurchased = 0
	link.CreatedAt = time.Now().UTC()

	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		hold, err := getHold(ctx, tx, link.HoldID, true)
		if err != nil {
			return err
		}
		if !hold.IsActive(time.Now().UTC()) {
			return entity.ErrHoldNotActive
		}

		link.Code = ""
		for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
			candidate := shortuuid.New()

			var taken bool
			err = tx.GetContext(ctx, &taken, `
				SELECT EXISTS (SELECT 1 FROM purchase_links WHERE code = $1)
			`, candidate)
			if err != nil {
				return fmt.Errorf("could not check code uniqueness: %w", err)
			}
			if !taken {
				link.Code = candidate
				break
			}
		}
		if link.Code == "" {
			return fmt.Errorf("could not generate a unique redemption code")
		}

		// the unique index on code is the backstop for a genuine race
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO purchase_links
				(link_id, hold_id, code, public_id, name, assigned_user_id,
				 quantity_mode, quantity_limit, quantity_purchased, status,
				 expires_at, notes, metadata, created_at)
			VALUES
				(:link_id, :hold_id, :code, :public_id, :name, :assigned_user_id,
				 :quantity_mode, :quantity_limit, :quantity_purchased, :status,
				 :expires_at, :notes, :metadata, :created_at)
		`, link)
		if isErrorUniqueViolation(err) {
			return fmt.Errorf("redemption code or public id collided, retry the request: %w", err)
		}
		if err != nil {
			return fmt.Errorf("could not insert link: %w", err)
		}

		return publishInTx(ctx, tx, entity.PurchaseLinkCreated{
			Header:   entity.NewEventHeader(),
			LinkID:   link.LinkID,
			HoldID:   link.HoldID,
			PublicID: link.PublicID,
		})
	})
	if err != nil {
		return entity.PurchaseLink{}, err
	}

	return link, nil
}

// UpdateLinkParams are the only fields mutable after creation. Quantity
// mode and limit are immutable. A nil ExpiresAt leaves the stored expiry
// untouched; removing an expiry requires ClearExpiresAt.
type UpdateLinkParams struct {
	Name           string
	Notes          string
	Metadata       json.RawMessage
	ExpiresAt      *time.Time
	ClearExpiresAt bool
}

// Update edits link metadata. It fails with entity.ErrLinkNotUsable for
// revoked, expired or exhausted links; purchases already made do not block
// edits on their own.
func (r *LinksPostgresRepository) Update(ctx context.Context, linkID string, params UpdateLinkParams) (entity.PurchaseLink, error) {
	if params.Name == "" {
		return entity.PurchaseLink{}, fmt.Errorf("name must be set")
	}
	if params.Metadata == nil {
		params.Metadata = json.RawMessage(`{}`)
	}

	var link entity.PurchaseLink

	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		link, err = getLinkByID(ctx, tx, linkID, true)
		if err != nil {
			return err
		}
		if !link.IsUsable(time.Now().UTC()) {
			return entity.ErrLinkNotUsable
		}

		expiresAt := link.ExpiresAt
		if params.ExpiresAt != nil {
			expiresAt = params.ExpiresAt
		}
		if params.ClearExpiresAt {
			expiresAt = nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_links
			SET name = $1, notes = $2, metadata = $3, expires_at = $4
			WHERE link_id = $5
		`, params.Name, params.Notes, params.Metadata, expiresAt, linkID)
		if err != nil {
			return fmt.Errorf("could not update link: %w", err)
		}

		link.Name = params.Name
		link.Notes = params.Notes
		link.Metadata = params.Metadata
		link.ExpiresAt = expiresAt

		return nil
	})
	if err != nil {
		return entity.PurchaseLink{}, err
	}

	return link, nil
}

// Revoke transitions an ACTIVE link to REVOKED. For a link already in a
// terminal state (revoked, expired or exhausted) it returns the link
// unchanged: the first terminal transition is authoritative and the
// original revoker's audit trail is never overwritten.
func (r *LinksPostgresRepository) Revoke(ctx context.Context, linkID, revokedBy string) (entity.PurchaseLink, error) {
	var link entity.PurchaseLink

	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		link, err = getLinkByID(ctx, tx, linkID, true)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if link.EffectiveStatus(now) != entity.LinkStatusActive {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_links
			SET status = $1, revoked_at = $2, revoked_by = $3
			WHERE link_id = $4
		`, entity.LinkStatusRevoked, now, revokedBy, linkID)
		if err != nil {
			return fmt.Errorf("could not revoke link: %w", err)
		}

		link.Status = entity.LinkStatusRevoked
		link.RevokedAt = &now
		link.RevokedBy = &revokedBy

		return publishInTx(ctx, tx, entity.PurchaseLinkRevoked{
			Header:    entity.NewEventHeader(),
			LinkID:    linkID,
			HoldID:    link.HoldID,
			RevokedBy: revokedBy,
		})
	})
	if err != nil {
		return entity.PurchaseLink{}, err
	}

	return link, nil
}

// RecordAccess appends one audit row. Normalization (null for malformed
// IPs, truncated user agents) happens in entity.NewPurchaseLinkAccess.
func (r *LinksPostgresRepository) RecordAccess(ctx context.Context, access entity.PurchaseLinkAccess) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO purchase_link_accesses
			(access_id, link_id, user_id, ip_address, user_agent, referer, session_id, accessed_at, resulted_in_purchase)
		VALUES
			(:access_id, :link_id, :user_id, :ip_address, :user_agent, :referer, :session_id, :accessed_at, :resulted_in_purchase)
	`, access)
	if err != nil {
		return fmt.Errorf("could not record access: %w", err)
	}
	return nil
}

func (r *LinksPostgresRepository) GetByID(ctx context.Context, linkID string) (entity.PurchaseLink, error) {
	return getLinkByID(ctx, r.db, linkID, false)
}

func (r *LinksPostgresRepository) GetByCode(ctx context.Context, code string) (entity.PurchaseLink, error) {
	return getLinkBy(ctx, r.db, "code", code, false)
}

func (r *LinksPostgresRepository) GetByPublicID(ctx context.Context, publicID string) (entity.PurchaseLink, error) {
	return getLinkBy(ctx, r.db, "public_id", publicID, false)
}

func (r *LinksPostgresRepository) ListByHold(ctx context.Context, holdID string) ([]entity.PurchaseLink, error) {
	var links []entity.PurchaseLink
	err := r.db.SelectContext(ctx, &links, `
		SELECT link_id, hold_id, code, public_id, name, assigned_user_id,
		       quantity_mode, quantity_limit, quantity_purchased, status,
		       expires_at, revoked_at, revoked_by, notes, metadata, created_at
		FROM purchase_links
		WHERE hold_id = $1
		ORDER BY created_at
	`, holdID)
	if err != nil {
		return nil, fmt.Errorf("could not list links: %w", err)
	}
	return links, nil
}

func (r *LinksPostgresRepository) ListAccesses(ctx context.Context, linkID string) ([]entity.PurchaseLinkAccess, error) {
	var accesses []entity.PurchaseLinkAccess
	err := r.db.SelectContext(ctx, &accesses, `
		SELECT access_id, link_id, user_id, ip_address, user_agent, referer,
		       session_id, accessed_at, resulted_in_purchase
		FROM purchase_link_accesses
		WHERE link_id = $1
		ORDER BY accessed_at
	`, linkID)
	if err != nil {
		return nil, fmt.Errorf("could not list accesses: %w", err)
	}
	return accesses, nil
}

func (r *LinksPostgresRepository) ListPurchases(ctx context.Context, linkID string) ([]entity.PurchaseLinkPurchase, error) {
	var purchases []entity.PurchaseLinkPurchase
	err := r.db.SelectContext(ctx, &purchases, `
		SELECT purchase_id, link_id, user_id, ticket_type_id, quantity,
		       unit_price_cents, original_price_cents, created_at
		FROM purchase_link_purchases
		WHERE link_id = $1
		ORDER BY created_at
	`, linkID)
	if err != nil {
		return nil, fmt.Errorf("could not list purchases: %w", err)
	}
	return purchases, nil
}

func getLinkByID(ctx context.Context, q sqlx.QueryerContext, linkID string, forUpdate bool) (entity.PurchaseLink, error) {
	return getLinkBy(ctx, q, "link_id", linkID, forUpdate)
}

func getLinkBy(ctx context.Context, q sqlx.QueryerContext, column, value string, forUpdate bool) (entity.PurchaseLink, error) {
	query := fmt.Sprintf(`
		SELECT link_id, hold_id, code, public_id, name, assigned_user_id,
		       quantity_mode, quantity_limit, quantity_purchased, status,
		       expires_at, revoked_at, revoked_by, notes, metadata, created_at
		FROM purchase_links
		WHERE %s = $1
	`, column)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var link entity.PurchaseLink
	err := sqlx.GetContext(ctx, q, &link, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.PurchaseLink{}, fmt.Errorf("purchase link: %w", entity.ErrNotFound)
	}
	if err != nil {
		return entity.PurchaseLink{}, fmt.Errorf("could not get link: %w", err)
	}
	return link, nil
}
