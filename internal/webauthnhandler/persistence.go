package webauthnhandler

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/webauthn"
)

func (h *WebAuthnHandler) upsertUser(ctx context.Context, u webauthn.User) error {
	stmt := `INSERT INTO users (webauthn_user_id, display_name)
VALUES (:webauthn_user_id, :display_name)
ON CONFLICT (webauthn_user_id) DO UPDATE SET display_name = :display_name`
	if _, err := h.database.ReadWrite.ExecContext(ctx, stmt,
		sql.Named("webauthn_user_id", u.WebAuthnID()),
		sql.Named("display_name", u.WebAuthnDisplayName()),
	); err != nil {
		return fmt.Errorf("db upsert user %s (handle: %s): %w",
			u.WebAuthnDisplayName(),
			hex.EncodeToString(u.WebAuthnID()),
			err)
	}
	return nil
}

// getUser loads the user and their credentials by user handle.
func (h *WebAuthnHandler) getUser(ctx context.Context, handle []byte) (_ *user, err error) {
	var (
		u      user
		userID int
		rows   *sql.Rows
	)

	stmt := `SELECT id, webauthn_user_id, display_name FROM users WHERE webauthn_user_id = ?`
	if err = h.database.ReadOnly.QueryRowContext(ctx, stmt, handle).Scan(&userID, &u.id, &u.displayName); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}

	stmt = `SELECT id,
       public_key,
       attestation_type,
       transport,
       flag_user_present,
       flag_user_verified,
       flag_backup_eligible,
       flag_backup_state,
       authenticator_aaguid,
       authenticator_sign_count,
       authenticator_clone_warning,
       authenticator_attachment
FROM credentials
WHERE user_id = ?
ORDER BY created`
	if rows, err = h.database.ReadOnly.QueryContext(ctx, stmt, userID); err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			h.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", slog.Any("error", closeErr))
		}
	}()

	for rows.Next() {
		var (
			credential webauthn.Credential
			transport  []byte
		)
		if err = rows.Scan(
			&credential.ID,
			&credential.PublicKey,
			&credential.AttestationType,
			&transport,
			&credential.Flags.UserPresent,
			&credential.Flags.UserVerified,
			&credential.Flags.BackupEligible,
			&credential.Flags.BackupState,
			&credential.Authenticator.AAGUID,
			&credential.Authenticator.SignCount,
			&credential.Authenticator.CloneWarning,
			&credential.Authenticator.Attachment,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		if err = json.Unmarshal(transport, &credential.Transport); err != nil {
			return nil, fmt.Errorf("JSON decode transport: %w", err)
		}
		u.credentials = append(u.credentials, credential)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("check rows error: %w", err)
	}

	return &u, nil
}

func (h *WebAuthnHandler) upsertCredential(ctx context.Context, handle []byte, credential *webauthn.Credential) error {
	stmt := `INSERT INTO credentials (id,
                         user_id,
                         public_key,
                         attestation_type,
                         transport,
                         flag_user_present,
                         flag_user_verified,
                         flag_backup_eligible,
                         flag_backup_state,
                         authenticator_aaguid,
                         authenticator_sign_count,
                         authenticator_clone_warning,
                         authenticator_attachment)
VALUES ($1, (SELECT id FROM users WHERE webauthn_user_id = $2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET attestation_type            = EXCLUDED.attestation_type,
                               transport                   = EXCLUDED.transport,
                               flag_user_present           = EXCLUDED.flag_user_present,
                               flag_user_verified          = EXCLUDED.flag_user_verified,
                               flag_backup_eligible        = EXCLUDED.flag_backup_eligible,
                               flag_backup_state           = EXCLUDED.flag_backup_state,
                               authenticator_aaguid        = EXCLUDED.authenticator_aaguid,
                               authenticator_sign_count    = EXCLUDED.authenticator_sign_count,
                               authenticator_clone_warning = EXCLUDED.authenticator_clone_warning,
                               authenticator_attachment    = EXCLUDED.authenticator_attachment`
	encodedTransport, err := json.Marshal(credential.Transport)
	if err != nil {
		return fmt.Errorf("JSON encode transport: %w", err)
	}
	_, err = h.database.ReadWrite.ExecContext(
		ctx,
		stmt,
		credential.ID,
		handle,
		credential.PublicKey,
		credential.AttestationType,
		string(encodedTransport),
		credential.Flags.UserPresent,
		credential.Flags.UserVerified,
		credential.Flags.BackupEligible,
		credential.Flags.BackupState,
		credential.Authenticator.AAGUID,
		credential.Authenticator.SignCount,
		credential.Authenticator.CloneWarning,
		credential.Authenticator.Attachment,
	)
	if err != nil {
		return fmt.Errorf("db upsert credential (handle: %s, credential_id: %s): %w",
			hex.EncodeToString(handle),
			hex.EncodeToString(credential.ID),
			err)
	}
	return nil
}

type role int

const (
	roleUser role = iota
	roleAdmin
)

var errUnknownUser = errors.New("unknown user handle")

// lookupUser resolves the user handle to the integer user ID and role. It returns errUnknownUser if the account
// has been deleted since the session was created.
func (h *WebAuthnHandler) lookupUser(ctx context.Context, handle []byte) (int, role, error) {
	var (
		userID  int
		isAdmin bool
	)
	stmt := `SELECT id, is_admin FROM users WHERE webauthn_user_id = ?`
	err := h.database.ReadOnly.QueryRowContext(ctx, stmt, handle).Scan(&userID, &isAdmin)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, roleUser, errUnknownUser
	case err != nil:
		return 0, roleUser, fmt.Errorf("query user: %w", err)
	case isAdmin:
		return userID, roleAdmin, nil
	default:
		return userID, roleUser, nil
	}
}
