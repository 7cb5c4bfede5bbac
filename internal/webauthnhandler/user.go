package webauthnhandler

import (
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

type sessionKey string

const (
	webAuthnSessionKey sessionKey = "webauthn_session"
	userIDSessionKey   sessionKey = "webauthn_user_id"
)

// user implements webauthn.User. The id is the random user handle stored on the authenticator, not the
// integer primary key the rest of the application uses.
type user struct {
	id          []byte
	displayName string
	credentials []webauthn.Credential
}

func (u *user) WebAuthnID() []byte {
	return u.id
}

func (u *user) WebAuthnName() string {
	return u.displayName
}

func (u *user) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *user) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

// newRandomUser creates an anonymous athlete. Users can rename themselves on the profile page.
func newRandomUser() (*user, error) {
	handle, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate user handle: %w", err)
	}
	id, err := handle.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode user handle: %w", err)
	}
	return &user{
		id:          id,
		displayName: fmt.Sprintf("Athlete %s", handle.String()[:8]),
		credentials: nil,
	}, nil
}
