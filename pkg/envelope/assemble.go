package envelope

import (
	"errors"
	"time"
)

type Assembler struct {
	Signer *Signer
	Now    func() time.Time
	NewID  func() string
}

func NewAssembler(s *Signer) *Assembler {
	return &Assembler{Signer: s, Now: time.Now, NewID: NewRequestID}
}

// Build draws exactly one request id and one timestamp, so two calls for
// the same logical action never share a wire identity.
func (a *Assembler) Build(actor Actor, action string, data any) (ActionEnvelope, error) {
	if a == nil || a.Signer == nil {
		return ActionEnvelope{}, ErrSecretMissing
	}
	if action == "" {
		return ActionEnvelope{}, errors.New("action name is required")
	}
	payload, err := EncodeData(data)
	if err != nil {
		return ActionEnvelope{}, err
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	newID := NewRequestID
	if a.NewID != nil {
		newID = a.NewID
	}
	e := ActionEnvelope{
		Action:     action,
		RequestID:  newID(),
		ActorEmail: actor.Email,
		ActorRole:  actor.Role,
		Data:       payload,
		TS:         now().UnixMilli(),
	}
	return a.Signer.Seal(e), nil
}
