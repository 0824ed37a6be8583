// Package googleauth verifies Google Sign-In ID tokens.
package googleauth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"staybook/internal/domain"
)

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type Verifier struct {
	audience string
	validate validateFunc
}

// New builds a verifier for tokens issued to clientID. Google's signing keys
// are fetched and cached by the idtoken package.
func New(ctx context.Context, clientID string) (*Verifier, error) {
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("googleauth: %w", err)
	}
	return &Verifier{audience: clientID, validate: v.Validate}, nil
}

// NewWithValidator swaps the signature check; used by tests.
func NewWithValidator(clientID string, fn func(ctx context.Context, token, audience string) (*idtoken.Payload, error)) *Verifier {
	return &Verifier{audience: clientID, validate: fn}
}

func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" || v.audience == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	p, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if p.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	id := domain.Identity{Subject: p.Subject}
	if email, ok := p.Claims["email"].(string); ok {
		if verified, _ := p.Claims["email_verified"].(bool); verified {
			id.Email = email
		}
	}
	if name, ok := p.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}
