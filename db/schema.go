package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InitializeDatabaseSchema creates all tables used by the hold subsystem.
// Shows, ticket types, bookings and transactions are owned by other
// subsystems; their tables are created here too so the module runs
// standalone in tests and local environments.
func InitializeDatabaseSchema(db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS shows (
			show_id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			venue VARCHAR(255) NOT NULL DEFAULT '',
			start_time TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS ticket_types (
			ticket_type_id UUID PRIMARY KEY,
			show_id UUID NOT NULL REFERENCES shows (show_id),
			name VARCHAR(255) NOT NULL,
			price_cents BIGINT NOT NULL,
			total_capacity INT NULL
		);

		CREATE TABLE IF NOT EXISTS transactions (
			transaction_id UUID PRIMARY KEY,
			status VARCHAR(32) NOT NULL,
			total_cents BIGINT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS bookings (
			booking_id UUID PRIMARY KEY,
			show_id UUID NOT NULL REFERENCES shows (show_id),
			ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
			user_id UUID NULL,
			status VARCHAR(32) NOT NULL,
			price_cents BIGINT NOT NULL,
			redemption_id UUID NOT NULL UNIQUE,
			transaction_id UUID NULL REFERENCES transactions (transaction_id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS bookings_ticket_type_status_idx
			ON bookings (ticket_type_id, status);

		CREATE TABLE IF NOT EXISTS ticket_holds (
			hold_id UUID PRIMARY KEY,
			show_id UUID NOT NULL REFERENCES shows (show_id),
			organizer_id UUID NOT NULL,
			created_by UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			internal_notes TEXT NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
			expires_at TIMESTAMPTZ NULL,
			released_at TIMESTAMPTZ NULL,
			released_by UUID NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS hold_allocations (
			hold_id UUID NOT NULL REFERENCES ticket_holds (hold_id),
			ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
			allocated_quantity INT NOT NULL CHECK (allocated_quantity >= 0),
			purchased_quantity INT NOT NULL DEFAULT 0
				CHECK (purchased_quantity >= 0 AND purchased_quantity <= allocated_quantity),
			pricing_mode VARCHAR(32) NOT NULL,
			custom_price_cents BIGINT NULL,
			discount_percent INT NULL CHECK (discount_percent BETWEEN 0 AND 100),
			PRIMARY KEY (hold_id, ticket_type_id)
		);

		CREATE TABLE IF NOT EXISTS purchase_links (
			link_id UUID PRIMARY KEY,
			hold_id UUID NOT NULL REFERENCES ticket_holds (hold_id),
			code VARCHAR(64) NOT NULL UNIQUE,
			public_id UUID NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			assigned_user_id UUID NULL,
			quantity_mode VARCHAR(16) NOT NULL,
			quantity_limit INT NULL CHECK (quantity_limit > 0),
			quantity_purchased INT NOT NULL DEFAULT 0
				CHECK (quantity_purchased >= 0),
			status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE',
			expires_at TIMESTAMPTZ NULL,
			revoked_at TIMESTAMPTZ NULL,
			revoked_by UUID NULL,
			notes TEXT NOT NULL DEFAULT '',
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS purchase_links_hold_idx ON purchase_links (hold_id);

		CREATE TABLE IF NOT EXISTS purchase_link_accesses (
			access_id UUID PRIMARY KEY,
			link_id UUID NOT NULL REFERENCES purchase_links (link_id),
			user_id UUID NULL,
			ip_address VARCHAR(45) NULL,
			user_agent VARCHAR(500) NOT NULL DEFAULT '',
			referer TEXT NOT NULL DEFAULT '',
			session_id VARCHAR(255) NOT NULL DEFAULT '',
			accessed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			resulted_in_purchase BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS purchase_link_purchases (
			purchase_id UUID PRIMARY KEY,
			link_id UUID NOT NULL REFERENCES purchase_links (link_id),
			user_id UUID NULL,
			ticket_type_id UUID NOT NULL REFERENCES ticket_types (ticket_type_id),
			quantity INT NOT NULL CHECK (quantity > 0),
			unit_price_cents BIGINT NOT NULL,
			original_price_cents BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS hold_summaries (
			hold_id UUID PRIMARY KEY,
			payload JSONB NOT NULL
		);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	return nil
}
