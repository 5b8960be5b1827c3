package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/ports"
)

var bucketDocuments = []byte("documents")

// BoltRepositoryImpl stores the document under one key of an embedded bbolt database
type BoltRepositoryImpl struct {
	db  *bolt.DB
	key []byte
}

// NewBoltRepository opens (or creates) the bbolt database at path
func NewBoltRepository(path, name string) (ports.DocumentRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), dataDirMode); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents bucket: %w", err)
	}

	return &BoltRepositoryImpl{db: db, key: []byte(name)}, nil
}

func (r *BoltRepositoryImpl) Driver() string {
	return "bolt"
}

func (r *BoltRepositoryImpl) Load(ctx context.Context) (entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc entities.Document
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b == nil {
			return entities.ErrDocumentNotFound
		}
		v := b.Get(r.key)
		if v == nil {
			return entities.ErrDocumentNotFound
		}
		// Values are only valid for the life of the transaction
		doc = append(entities.Document(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *BoltRepositoryImpl) Save(ctx context.Context, doc entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketDocuments)
		if err != nil {
			return err
		}
		return b.Put(r.key, doc.Bytes())
	})
	if err != nil {
		return fmt.Errorf("bbolt put document: %w", err)
	}
	return nil
}

func (r *BoltRepositoryImpl) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b == nil {
			return nil
		}
		return b.Delete(r.key)
	})
	if err != nil {
		return fmt.Errorf("bbolt delete document: %w", err)
	}
	return nil
}

func (r *BoltRepositoryImpl) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketDocuments) == nil {
			return fmt.Errorf("documents bucket missing")
		}
		return nil
	})
}

func (r *BoltRepositoryImpl) Close() error {
	return r.db.Close()
}
