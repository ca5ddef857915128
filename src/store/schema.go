package store

// Schema is the PostgreSQL schema applied by the migrate command
const Schema = `
CREATE TABLE IF NOT EXISTS societies (
	id                 UUID PRIMARY KEY,
	name               VARCHAR(255) NOT NULL,
	address            TEXT NOT NULL DEFAULT '',
	total_flats        INTEGER NOT NULL DEFAULT 0,
	description        TEXT NOT NULL DEFAULT '',
	approval_threshold DECIMAL(15,2) NOT NULL DEFAULT 0,
	created_by         UUID NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS memberships (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL,
	society_id UUID NOT NULL REFERENCES societies(id),
	role       VARCHAR(20) NOT NULL CHECK (role IN ('manager', 'member')),
	status     VARCHAR(20) NOT NULL CHECK (status IN ('active', 'inactive')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (society_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships (user_id);

CREATE TABLE IF NOT EXISTS flats (
	id          UUID PRIMARY KEY,
	society_id  UUID NOT NULL REFERENCES societies(id),
	flat_number VARCHAR(50) NOT NULL,
	floor       INTEGER NOT NULL DEFAULT 0,
	wing        VARCHAR(50) NOT NULL DEFAULT '',
	area_sqft   DECIMAL(12,2) NOT NULL DEFAULT 0,
	flat_type   VARCHAR(50) NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (society_id, flat_number)
);

CREATE TABLE IF NOT EXISTS flat_members (
	id            UUID PRIMARY KEY,
	flat_id       UUID NOT NULL REFERENCES flats(id),
	user_id       UUID NOT NULL,
	society_id    UUID NOT NULL REFERENCES societies(id),
	relation_type VARCHAR(50) NOT NULL DEFAULT '',
	is_primary    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (flat_id, user_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_flat_members_primary ON flat_members (flat_id) WHERE is_primary;

CREATE TABLE IF NOT EXISTS maintenance_settings (
	id                       UUID PRIMARY KEY,
	society_id               UUID NOT NULL UNIQUE REFERENCES societies(id),
	rate_per_area            DECIMAL(12,4) NOT NULL CHECK (rate_per_area >= 0),
	billing_cycle            VARCHAR(20) NOT NULL CHECK (billing_cycle IN ('monthly', 'quarterly', 'yearly')),
	due_day                  INTEGER NOT NULL CHECK (due_day BETWEEN 1 AND 31),
	late_fee_amount          DECIMAL(12,2) NOT NULL DEFAULT 0 CHECK (late_fee_amount >= 0),
	late_fee_type            VARCHAR(20) NOT NULL CHECK (late_fee_type IN ('flat', 'percentage')),
	discount_schemes_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS discount_schemes (
	id              UUID PRIMARY KEY,
	society_id      UUID NOT NULL REFERENCES societies(id),
	name            VARCHAR(255) NOT NULL,
	eligible_months INTEGER NOT NULL DEFAULT 12,
	free_months     INTEGER NOT NULL DEFAULT 0,
	discount_type   VARCHAR(20) NOT NULL CHECK (discount_type IN ('free_months', 'percentage', 'flat')),
	discount_value  DECIMAL(12,2) NOT NULL DEFAULT 0,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_by      UUID NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS maintenance_bills (
	id                    UUID PRIMARY KEY,
	society_id            UUID NOT NULL REFERENCES societies(id),
	flat_id               UUID NOT NULL REFERENCES flats(id),
	flat_number           VARCHAR(50) NOT NULL,
	member_id             UUID,
	bill_period_type      VARCHAR(20) NOT NULL CHECK (bill_period_type IN ('monthly', 'yearly')),
	month                 INTEGER NOT NULL DEFAULT 0,
	year                  INTEGER NOT NULL,
	area_sqft             DECIMAL(12,2) NOT NULL,
	rate_per_sqft         DECIMAL(12,4) NOT NULL,
	total_before_discount DECIMAL(15,2) NOT NULL,
	discount_amount       DECIMAL(15,2) NOT NULL DEFAULT 0,
	discount_scheme_id    UUID,
	final_payable_amount  DECIMAL(15,2) NOT NULL,
	late_fee              DECIMAL(15,2) NOT NULL DEFAULT 0,
	due_date              DATE NOT NULL,
	status                VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'partial', 'paid', 'overdue')),
	paid_amount           DECIMAL(15,2) NOT NULL DEFAULT 0,
	created_by            UUID NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (society_id, flat_id, bill_period_type, month, year),
	CHECK (paid_amount >= 0)
);
CREATE INDEX IF NOT EXISTS idx_maintenance_bills_period ON maintenance_bills (society_id, year, month);
CREATE INDEX IF NOT EXISTS idx_maintenance_bills_status ON maintenance_bills (society_id, status);

CREATE TABLE IF NOT EXISTS receipt_sequences (
	society_id UUID NOT NULL REFERENCES societies(id),
	year       INTEGER NOT NULL,
	last_value BIGINT NOT NULL,
	PRIMARY KEY (society_id, year)
);

CREATE TABLE IF NOT EXISTS payments (
	id                    UUID PRIMARY KEY,
	society_id            UUID NOT NULL REFERENCES societies(id),
	flat_id               UUID NOT NULL REFERENCES flats(id),
	bill_ids              UUID[] NOT NULL DEFAULT '{}',
	amount_paid           DECIMAL(15,2) NOT NULL CHECK (amount_paid > 0),
	discount_amount       DECIMAL(15,2) NOT NULL DEFAULT 0,
	discount_scheme_id    UUID,
	is_annual_payment     BOOLEAN NOT NULL DEFAULT FALSE,
	receipt_number        VARCHAR(50) NOT NULL,
	payment_mode          VARCHAR(20) NOT NULL CHECK (payment_mode IN ('cash', 'cheque', 'bank', 'upi', 'online')),
	payment_date          TIMESTAMPTZ NOT NULL,
	transaction_reference VARCHAR(255) NOT NULL DEFAULT '',
	remarks               TEXT NOT NULL DEFAULT '',
	created_by            UUID NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (society_id, receipt_number)
);

CREATE TABLE IF NOT EXISTS flat_ledger_entries (
	id                  UUID PRIMARY KEY,
	society_id          UUID NOT NULL REFERENCES societies(id),
	flat_id             UUID NOT NULL REFERENCES flats(id),
	sequence            BIGINT NOT NULL,
	entry_type          VARCHAR(30) NOT NULL,
	entry_date          TIMESTAMPTZ NOT NULL,
	reference_id        UUID NOT NULL,
	reference_type      VARCHAR(20) NOT NULL,
	debit_amount        DECIMAL(15,2) NOT NULL DEFAULT 0,
	credit_amount       DECIMAL(15,2) NOT NULL DEFAULT 0,
	balance_after_entry DECIMAL(15,2) NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	created_by          UUID NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (flat_id, sequence)
);

CREATE TABLE IF NOT EXISTS transactions (
	id              UUID PRIMARY KEY,
	society_id      UUID NOT NULL REFERENCES societies(id),
	type            VARCHAR(20) NOT NULL CHECK (type IN ('inward', 'outward')),
	category        VARCHAR(100) NOT NULL,
	amount          DECIMAL(15,2) NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	vendor_name     VARCHAR(255) NOT NULL DEFAULT '',
	payment_mode    VARCHAR(20) NOT NULL DEFAULT '',
	date            TIMESTAMPTZ NOT NULL,
	reference_id    UUID,
	approval_status VARCHAR(20) NOT NULL CHECK (approval_status IN ('approved', 'pending', 'rejected')),
	reviewed_by     UUID,
	review_comments TEXT NOT NULL DEFAULT '',
	reviewed_at     TIMESTAMPTZ,
	created_by      UUID NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE transactions ADD COLUMN IF NOT EXISTS reviewed_by UUID;
ALTER TABLE transactions ADD COLUMN IF NOT EXISTS review_comments TEXT NOT NULL DEFAULT '';
ALTER TABLE transactions ADD COLUMN IF NOT EXISTS reviewed_at TIMESTAMPTZ;
CREATE INDEX IF NOT EXISTS idx_transactions_society_date ON transactions (society_id, date);
CREATE INDEX IF NOT EXISTS idx_transactions_pending ON transactions (society_id) WHERE approval_status = 'pending';

CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY,
	society_id UUID NOT NULL REFERENCES societies(id),
	user_id    UUID NOT NULL,
	title      VARCHAR(255) NOT NULL,
	message    TEXT NOT NULL,
	type       VARCHAR(20) NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (society_id, user_id, read);
`
