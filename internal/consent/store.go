// Package consent keeps one consent document per business in a blob store.
package consent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

const (
	objectName  = "consent.json"
	contentType = "application/json"
)

// Store implements compliance.ConsentStore on top of a compliance.BlobStore.
type Store struct {
	blobs  compliance.BlobStore
	prefix string
	logger *zap.Logger
}

// New builds a Store. prefix is prepended verbatim to every object key.
func New(blobs compliance.BlobStore, prefix string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, prefix: prefix, logger: logger}
}

// Key returns the object key holding businessID's document.
func (s *Store) Key(businessID string) string {
	return s.prefix + businessID + "/" + objectName
}

// PutTemplate serializes template and overwrites any existing document.
func (s *Store) PutTemplate(ctx context.Context, businessID string, template json.RawMessage) error {
	data, err := json.Marshal(template)
	if err != nil {
		return compliance.Wrap(compliance.KindStorage, "consent.put", fmt.Errorf("encode template: %w", err))
	}
	key := s.Key(businessID)
	uri, err := s.blobs.PutObject(ctx, key, contentType, data)
	if err != nil {
		return compliance.Wrap(compliance.KindStorage, "consent.put", err)
	}
	s.logger.Debug("consent template stored",
		zap.String("business_id", businessID),
		zap.String("uri", uri),
		zap.Int("bytes", len(data)),
		zap.String("sha256", digest(data)),
	)
	return nil
}

// GetTemplate returns the live document for businessID.
func (s *Store) GetTemplate(ctx context.Context, businessID string) (compliance.ConsentTemplate, error) {
	data, err := s.blobs.GetObject(ctx, s.Key(businessID))
	if errors.Is(err, compliance.ErrNotFound) {
		return compliance.ConsentTemplate{}, compliance.NotFound("consent.get", "Consent template not found")
	}
	if err != nil {
		return compliance.ConsentTemplate{}, compliance.Wrap(compliance.KindStorage, "consent.get", err)
	}
	if !json.Valid(data) {
		return compliance.ConsentTemplate{}, compliance.Wrap(compliance.KindStorage, "consent.get",
			fmt.Errorf("stored document for %q is not valid JSON", businessID))
	}
	return compliance.ConsentTemplate{BusinessID: businessID, Template: json.RawMessage(data)}, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
