package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/evidex/internal/db"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
)

// Put writes the document record and its content-hash lookup key.
func (r *Repo) Put(ctx context.Context, doc document.Metadata) error {
	if doc.ID == "" {
		return domain.NewFieldError(metadata.FieldDocumentID, "is required")
	}
	if err := r.store.HSet(ctx, r.docKey(doc.ID), metadata.FlattenDocument(doc)); err != nil {
		return fmt.Errorf("hset %s: %w", r.docKey(doc.ID), err)
	}
	if doc.ContentHash != "" {
		if err := r.store.Set(ctx, r.hashKey(doc.ContentHash), []byte(doc.ID)); err != nil {
			return fmt.Errorf("set %s: %w", r.hashKey(doc.ContentHash), err)
		}
	}
	return nil
}

// Get returns a document record by id.
func (r *Repo) Get(ctx context.Context, id string) (document.Metadata, error) {
	fields, err := r.store.HGetAll(ctx, r.docKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return document.Metadata{}, domain.ErrDocumentNotFound
		}
		return document.Metadata{}, fmt.Errorf("hgetall %s: %w", r.docKey(id), err)
	}
	doc, err := metadata.UnflattenDocument(fields, r.opts.Weights)
	if err != nil {
		return document.Metadata{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, nil
}

// FindByContentHash resolves a content hash to its document.
func (r *Repo) FindByContentHash(ctx context.Context, hash string) (document.Metadata, error) {
	id, err := r.store.Get(ctx, r.hashKey(hash))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return document.Metadata{}, domain.ErrDocumentNotFound
		}
		return document.Metadata{}, fmt.Errorf("get %s: %w", r.hashKey(hash), err)
	}
	return r.Get(ctx, string(id))
}

// Delete removes the record and its hash key. Chunks are removed separately.
func (r *Repo) Delete(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	keys := []string{r.docKey(id)}
	if doc.ContentHash != "" {
		keys = append(keys, r.hashKey(doc.ContentHash))
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("del %s: %w", r.docKey(id), err)
	}
	return nil
}

// List returns every document record ordered by id.
func (r *Repo) List(ctx context.Context) ([]document.Metadata, error) {
	keys, err := r.store.Scan(ctx, r.docPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	sort.Strings(keys)

	docs := make([]document.Metadata, 0, len(keys))
	for _, k := range keys {
		doc, err := r.Get(ctx, strings.TrimPrefix(k, r.docPrefix()))
		if errors.Is(err, domain.ErrDocumentNotFound) {
			continue // deleted after SCAN
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
