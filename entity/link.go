package entity

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
	"unicode/utf8"
)

type LinkStatus string

const (
	LinkStatusActive    LinkStatus = "ACTIVE"
	LinkStatusRevoked   LinkStatus = "REVOKED"
	LinkStatusExpired   LinkStatus = "EXPIRED"
	LinkStatusExhausted LinkStatus = "EXHAUSTED"
)

type QuantityMode string

const (
	QuantityModeFixed     QuantityMode = "FIXED"
	QuantityModeMaximum   QuantityMode = "MAXIMUM"
	QuantityModeUnlimited QuantityMode = "UNLIMITED"
)

// MaxUserAgentLength is the hard cap for stored user agents. Longer values
// are truncated, never rejected.
const MaxUserAgentLength = 500

// PurchaseLink is a shareable redemption channel for one hold. Only ACTIVE
// and REVOKED are ever stored; EXPIRED and EXHAUSTED are derived from the
// expiry timestamp and the quota at read time.
type PurchaseLink struct {
	LinkID            string          `db:"link_id" json:"link_id"`
	HoldID            string          `db:"hold_id" json:"hold_id"`
	Code              string          `db:"code" json:"code"`
	PublicID          string          `db:"public_id" json:"public_id"`
	Name              string          `db:"name" json:"name"`
	AssignedUserID    *string         `db:"assigned_user_id" json:"assigned_user_id"`
	QuantityMode      QuantityMode    `db:"quantity_mode" json:"quantity_mode"`
	QuantityLimit     *int            `db:"quantity_limit" json:"quantity_limit"`
	QuantityPurchased int             `db:"quantity_purchased" json:"quantity_purchased"`
	Status            LinkStatus      `db:"status" json:"status"`
	ExpiresAt         *time.Time      `db:"expires_at" json:"expires_at"`
	RevokedAt         *time.Time      `db:"revoked_at" json:"revoked_at"`
	RevokedBy         *string         `db:"revoked_by" json:"revoked_by"`
	Notes             string          `db:"notes" json:"notes"`
	Metadata          json.RawMessage `db:"metadata" json:"metadata"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

func (l PurchaseLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

func (l PurchaseLink) IsExhausted() bool {
	return l.QuantityLimit != nil && l.QuantityPurchased >= *l.QuantityLimit
}

// EffectiveStatus folds expiry and quota into the stored status. A revoked
// link stays REVOKED regardless of expiry; the first terminal transition wins.
func (l PurchaseLink) EffectiveStatus(now time.Time) LinkStatus {
	if l.Status != LinkStatusActive {
		return l.Status
	}
	if l.IsExpired(now) {
		return LinkStatusExpired
	}
	if l.IsExhausted() {
		return LinkStatusExhausted
	}
	return LinkStatusActive
}

func (l PurchaseLink) IsUsable(now time.Time) bool {
	return l.EffectiveStatus(now) == LinkStatusActive
}

// IsAnonymous reports whether anyone holding the code may redeem the link.
func (l PurchaseLink) IsAnonymous() bool {
	return l.AssignedUserID == nil
}

// RemainingQuota returns how many units may still be purchased. The second
// return value is false for unlimited links.
func (l PurchaseLink) RemainingQuota() (int, bool) {
	if l.QuantityLimit == nil {
		return 0, false
	}
	remaining := *l.QuantityLimit - l.QuantityPurchased
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// ValidateQuantityMode checks the mode/limit pairing: FIXED and MAXIMUM
// require a positive limit, UNLIMITED forbids one.
func ValidateQuantityMode(mode QuantityMode, limit *int) error {
	switch mode {
	case QuantityModeFixed, QuantityModeMaximum:
		if limit == nil {
			return fmt.Errorf("quantity limit must be set for %s quantity mode", mode)
		}
		if *limit <= 0 {
			return fmt.Errorf("quantity limit must be positive")
		}
	case QuantityModeUnlimited:
		if limit != nil {
			return fmt.Errorf("quantity limit must not be set for %s quantity mode", mode)
		}
	default:
		return fmt.Errorf("unknown quantity mode: %s", mode)
	}
	return nil
}

// NewPurchaseLink builds a link under a hold. The redemption code and
// public identifier are assigned at persistence time.
func NewPurchaseLink(
	linkID string,
	holdID string,
	name string,
	assignedUserID *string,
	quantityMode QuantityMode,
	quantityLimit *int,
	expiresAt *time.Time,
	notes string,
	metadata json.RawMessage,
) (*PurchaseLink, error) {
	if linkID == "" {
		return nil, fmt.Errorf("link id must be set")
	}
	if holdID == "" {
		return nil, fmt.Errorf("hold id must be set")
	}
	if name == "" {
		return nil, fmt.Errorf("name must be set")
	}
	if err := ValidateQuantityMode(quantityMode, quantityLimit); err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}

	return &PurchaseLink{
		LinkID:         linkID,
		HoldID:         holdID,
		Name:           name,
		AssignedUserID: assignedUserID,
		QuantityMode:   quantityMode,
		QuantityLimit:  quantityLimit,
		Status:         LinkStatusActive,
		ExpiresAt:      expiresAt,
		Notes:          notes,
		Metadata:       metadata,
	}, nil
}

// PurchaseLinkAccess is one append-only audit row per redemption attempt or
// view of a link.
type PurchaseLinkAccess struct {
	AccessID           string    `db:"access_id" json:"access_id"`
	LinkID             string    `db:"link_id" json:"link_id"`
	UserID             *string   `db:"user_id" json:"user_id"`
	IPAddress          *string   `db:"ip_address" json:"ip_address"`
	UserAgent          string    `db:"user_agent" json:"user_agent"`
	Referer            string    `db:"referer" json:"referer"`
	SessionID          string    `db:"session_id" json:"session_id"`
	AccessedAt         time.Time `db:"accessed_at" json:"accessed_at"`
	ResultedInPurchase bool      `db:"resulted_in_purchase" json:"resulted_in_purchase"`
}

// NewPurchaseLinkAccess normalizes the raw request attributes: a malformed
// IP is stored as null and an over-length user agent is truncated.
func NewPurchaseLinkAccess(
	accessID string,
	linkID string,
	userID *string,
	ipAddress string,
	userAgent string,
	referer string,
	sessionID string,
) PurchaseLinkAccess {
	var ip *string
	if parsed := net.ParseIP(ipAddress); parsed != nil {
		normalized := parsed.String()
		ip = &normalized
	}

	if len(userAgent) > MaxUserAgentLength {
		// cut on a rune boundary so the stored value stays valid UTF-8
		cut := MaxUserAgentLength
		for cut > 0 && !utf8.RuneStart(userAgent[cut]) {
			cut--
		}
		userAgent = userAgent[:cut]
	}

	return PurchaseLinkAccess{
		AccessID:   accessID,
		LinkID:     linkID,
		UserID:     userID,
		IPAddress:  ip,
		UserAgent:  userAgent,
		Referer:    referer,
		SessionID:  sessionID,
		AccessedAt: time.Now().UTC(),
	}
}

// PurchaseLinkPurchase is the append-only ledger: one row per distinct
// ticket type per completed purchase call, not per physical ticket.
type PurchaseLinkPurchase struct {
	PurchaseID         string    `db:"purchase_id" json:"purchase_id"`
	LinkID             string    `db:"link_id" json:"link_id"`
	UserID             *string   `db:"user_id" json:"user_id"`
	TicketTypeID       string    `db:"ticket_type_id" json:"ticket_type_id"`
	Quantity           int       `db:"quantity" json:"quantity"`
	UnitPriceCents     int64     `db:"unit_price_cents" json:"unit_price_cents"`
	OriginalPriceCents int64     `db:"original_price_cents" json:"original_price_cents"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
