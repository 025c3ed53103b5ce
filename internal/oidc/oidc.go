package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Token exposes the claims of a verified token. *oidc.IDToken satisfies it.
type Token interface {
	Claims(v interface{}) error
}

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Verifier checks ID tokens against a discovered issuer. An empty clientID
// accepts any audience issued by the realm.
type Verifier struct {
	issuer   string
	verifier *oidc.IDTokenVerifier
}

func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", issuer, err)
	}
	return &Verifier{
		issuer: issuer,
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          clientID,
			SkipClientIDCheck: clientID == "",
		}),
	}, nil
}

func (v *Verifier) Issuer() string { return v.issuer }

func (v *Verifier) Verify(ctx context.Context, raw string) (Token, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return tok, nil
}
