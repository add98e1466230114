package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/credpolicy/internal/model"
	"github.com/jwalitptl/credpolicy/pkg/logger"
)

// HashVerifier answers whether a plaintext candidate, hashed under the
// given scheme with the account name as salt material, matches a digest.
// It is the only check possible on pre-hashed submissions.
type HashVerifier interface {
	Verify(scheme, digest, username, candidate string) (bool, error)
}

// DictionaryGuard reports whether a plaintext secret appears in a
// weak-secret corpus. A lookup failure is an engine-level fault, not a
// verdict.
type DictionaryGuard interface {
	IsWeak(ctx context.Context, secret string) (bool, error)
}

// Engine evaluates credential-change requests against the active
// configuration. It keeps no per-request state: every evaluation is a
// pure function of the configuration, the request, and the
// collaborators' answers.
type Engine struct {
	store    *Store
	verifier HashVerifier
	dict     DictionaryGuard
	log      *logger.Logger
}

// NewEngine builds an Engine. dict may be nil when the weak-secret
// dictionary is disabled; the dictionary stage is then skipped entirely.
func NewEngine(store *Store, verifier HashVerifier, dict DictionaryGuard, log *logger.Logger) *Engine {
	return &Engine{store: store, verifier: verifier, dict: dict, log: log}
}

// Config returns the currently active policy configuration.
func (e *Engine) Config() *Config {
	return e.store.Current()
}

// Evaluate runs the acceptance pipeline and returns the verdict for one
// credential-change request. Checks run in a fixed order and stop at the
// first violated rule.
//
// A non-nil error is returned only when the weak-secret dictionary
// cannot complete its lookup; the host decides whether that fails open
// or closed. Rejections are verdicts, not errors.
func (e *Engine) Evaluate(ctx context.Context, req *model.CredentialChangeRequest) (model.Verdict, error) {
	cfg := e.store.Current()

	if !req.Secret.IsPlaintext() {
		return e.evaluateHashed(req), nil
	}
	return e.evaluatePlaintext(ctx, cfg, req)
}

// evaluateHashed handles pre-hashed submissions. Exhaustive checks are
// impossible on a digest; the only detectable violation is the
// degenerate case where the secret equals the account name.
func (e *Engine) evaluateHashed(req *model.CredentialChangeRequest) model.Verdict {
	match, err := e.verifier.Verify(req.Secret.Scheme, req.Secret.Digest, req.AccountName, req.AccountName)
	if err != nil {
		// Cannot prove containment without a verifiable scheme, so the
		// candidate passes this stage.
		if e.log != nil {
			e.log.Debug("hash verification unavailable for scheme",
				"scheme", req.Secret.Scheme)
		}
		return model.Accept()
	}
	if match {
		return model.Reject(model.RejectionReason{Code: model.ReasonContainsUsername})
	}
	return model.Accept()
}

func (e *Engine) evaluatePlaintext(ctx context.Context, cfg *Config, req *model.CredentialChangeRequest) (model.Verdict, error) {
	secret := req.Secret.Value

	if len(secret) < cfg.MinLength {
		return model.Reject(model.RejectionReason{
			Code:     model.ReasonTooShort,
			Required: cfg.MinLength,
			Actual:   len(secret),
		}), nil
	}

	if strings.Contains(secret, req.AccountName) {
		return model.Reject(model.RejectionReason{Code: model.ReasonContainsUsername}), nil
	}

	counts := AnalyzeComposition(secret)

	// Threshold order is fixed: digits, special, upper, lower. The first
	// deficient class names the rejection, so reordering would change
	// which reason multiply-deficient secrets report.
	switch {
	case counts.Digits < cfg.MinDigits:
		return model.Reject(model.RejectionReason{
			Code:     model.ReasonInsufficientDigits,
			Required: cfg.MinDigits,
			Actual:   counts.Digits,
		}), nil
	case counts.Special < cfg.MinSpecial:
		return model.Reject(model.RejectionReason{
			Code:     model.ReasonInsufficientSpecial,
			Required: cfg.MinSpecial,
			Actual:   counts.Special,
		}), nil
	case counts.Upper < cfg.MinUpper:
		return model.Reject(model.RejectionReason{
			Code:     model.ReasonInsufficientUpper,
			Required: cfg.MinUpper,
			Actual:   counts.Upper,
		}), nil
	case counts.Lower < cfg.MinLower:
		return model.Reject(model.RejectionReason{
			Code:     model.ReasonInsufficientLower,
			Required: cfg.MinLower,
			Actual:   counts.Lower,
		}), nil
	}

	if e.dict != nil {
		weak, err := e.dict.IsWeak(ctx, secret)
		if err != nil {
			return model.Verdict{}, fmt.Errorf("weak-secret dictionary lookup: %w", err)
		}
		if weak {
			return model.Reject(model.RejectionReason{Code: model.ReasonWeakSecret}), nil
		}
	}

	return model.Accept(), nil
}
