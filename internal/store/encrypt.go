package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/persistorai/caseqc/internal/models"
)

// Review notes and change log values are encrypted under the review ID; the
// finalized case output under the case ID.

// encryptNotes returns the ciphertexts for a review's notes fields.
func (b *Base) encryptNotes(ctx context.Context, r *models.Review) (reviewerNotes, supervisorNotes string, err error) {
	reviewerNotes, err = b.Crypto.EncryptString(ctx, r.ID, r.ReviewerNotes)
	if err != nil {
		return "", "", fmt.Errorf("encrypting reviewer notes: %w", err)
	}

	supervisorNotes, err = b.Crypto.EncryptString(ctx, r.ID, r.SupervisorNotes)
	if err != nil {
		return "", "", fmt.Errorf("encrypting supervisor notes: %w", err)
	}

	return reviewerNotes, supervisorNotes, nil
}

// decryptReview decrypts a review's notes in place.
func (b *Base) decryptReview(ctx context.Context, r *models.Review) error {
	var err error

	if r.ReviewerNotes, err = b.Crypto.DecryptString(ctx, r.ID, r.ReviewerNotes); err != nil {
		return fmt.Errorf("decrypting review %s reviewer notes: %w", r.ID, err)
	}

	if r.SupervisorNotes, err = b.Crypto.DecryptString(ctx, r.ID, r.SupervisorNotes); err != nil {
		return fmt.Errorf("decrypting review %s supervisor notes: %w", r.ID, err)
	}

	return nil
}

// encryptedChange holds the ciphertexts of a change log entry's free-text fields.
type encryptedChange struct {
	previous   string
	next       string
	annotation string
}

// encryptChange encrypts a change log entry's values and annotation.
func (b *Base) encryptChange(ctx context.Context, e *models.ChangeLogEntry) (encryptedChange, error) {
	var out encryptedChange
	var err error

	if out.previous, err = b.Crypto.EncryptString(ctx, e.ReviewID, e.PreviousValue); err != nil {
		return out, fmt.Errorf("encrypting previous value: %w", err)
	}

	if out.next, err = b.Crypto.EncryptString(ctx, e.ReviewID, e.NewValue); err != nil {
		return out, fmt.Errorf("encrypting new value: %w", err)
	}

	if out.annotation, err = b.Crypto.EncryptString(ctx, e.ReviewID, e.Annotation); err != nil {
		return out, fmt.Errorf("encrypting annotation: %w", err)
	}

	return out, nil
}

// decryptChange decrypts a change log entry in place.
func (b *Base) decryptChange(ctx context.Context, e *models.ChangeLogEntry) error {
	var err error

	if e.PreviousValue, err = b.Crypto.DecryptString(ctx, e.ReviewID, e.PreviousValue); err != nil {
		return fmt.Errorf("decrypting change %s previous value: %w", e.ID, err)
	}

	if e.NewValue, err = b.Crypto.DecryptString(ctx, e.ReviewID, e.NewValue); err != nil {
		return fmt.Errorf("decrypting change %s new value: %w", e.ID, err)
	}

	if e.Annotation, err = b.Crypto.DecryptString(ctx, e.ReviewID, e.Annotation); err != nil {
		return fmt.Errorf("decrypting change %s annotation: %w", e.ID, err)
	}

	return nil
}

// encryptOutput marshals and encrypts a finalized case output.
func (b *Base) encryptOutput(ctx context.Context, caseID string, out *models.CaseOutput) (string, error) {
	plain, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshalling case output: %w", err)
	}

	ciphertext, err := b.Crypto.Encrypt(ctx, caseID, plain)
	if err != nil {
		return "", fmt.Errorf("encrypting case output: %w", err)
	}

	return ciphertext, nil
}

// decryptOutput reverses encryptOutput.
func (b *Base) decryptOutput(ctx context.Context, caseID, ciphertext string) (*models.CaseOutput, error) {
	plain, err := b.Crypto.Decrypt(ctx, caseID, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting case %s output: %w", caseID, err)
	}

	var out models.CaseOutput
	if err := json.Unmarshal(plain, &out); err != nil {
		return nil, fmt.Errorf("unmarshalling case %s output: %w", caseID, err)
	}

	return &out, nil
}
