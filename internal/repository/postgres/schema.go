package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Role references (a motion file pointing at a patient, and so on) are
// checked by the services; the schema only enforces existence.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    first_name    VARCHAR(100) NOT NULL,
    last_name     VARCHAR(100) NOT NULL DEFAULT '',
    email_address VARCHAR(255) NOT NULL UNIQUE,
    roles         TEXT[] NOT NULL DEFAULT '{}',
    pending       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS patient_physicians (
    patient_id   BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    physician_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (patient_id, physician_id)
);

CREATE TABLE IF NOT EXISTS chats (
    id           BIGSERIAL PRIMARY KEY,
    patient_id   BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    physician_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS chat_messages (
    id        BIGSERIAL PRIMARY KEY,
    chat_id   BIGINT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    sender    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    content   TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS devices (
    id         BIGSERIAL PRIMARY KEY,
    patient_id BIGINT UNIQUE REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS motion_files (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL,
    type       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    patient_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS motion_readings (
    id             BIGSERIAL PRIMARY KEY,
    name           TEXT NOT NULL,
    motion_file_id BIGINT NOT NULL REFERENCES motion_files(id) ON DELETE CASCADE,
    min            DOUBLE PRECISION NOT NULL,
    max            DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS medications (
    id           BIGSERIAL PRIMARY KEY,
    patient_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name         VARCHAR(100) NOT NULL,
    dosage       VARCHAR(50) NOT NULL,
    instructions VARCHAR(200) NOT NULL DEFAULT '',
    last_taken   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS patient_documents (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL,
    type       TEXT NOT NULL CHECK (type IN ('medical_history', 'exercise_record', 'lab_result')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    patient_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_users_roles ON users USING GIN (roles);
CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_motion_files_patient ON motion_files(patient_id, created_at);
CREATE INDEX IF NOT EXISTS idx_motion_readings_file ON motion_readings(motion_file_id);
CREATE INDEX IF NOT EXISTS idx_medications_patient ON medications(patient_id);
CREATE INDEX IF NOT EXISTS idx_patient_documents_patient ON patient_documents(patient_id, created_at);
`

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Purge empties every table and resets the id sequences.
func Purge(ctx context.Context, db *sqlx.DB) error {
	const q = `TRUNCATE motion_readings, motion_files, chat_messages, chats,
		patient_physicians, devices, medications, patient_documents, users
		RESTART IDENTITY CASCADE`
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("purge tables: %w", err)
	}
	return nil
}
