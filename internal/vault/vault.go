// Package vault keeps device secrets on disk, encrypted with a key derived
// from a passphrase.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"fortnite-checker-api/internal/model"
)

var (
	bucketMeta    = []byte("meta")
	bucketSecrets = []byte("secrets")

	keySalt  = []byte("salt")
	keyCheck = []byte("check")

	checkPlaintext = []byte("fortnite-checker-vault-v1")
)

var (
	// ErrNotFound is returned when no secret is stored for an account.
	ErrNotFound = errors.New("device secret not found")
	// ErrWrongPassphrase is returned when the passphrase does not open the vault.
	ErrWrongPassphrase = errors.New("wrong vault passphrase")
)

// Vault is a bbolt-backed store of encrypted device secrets keyed by account id.
type Vault struct {
	db  *bbolt.DB
	key []byte
}

// Open opens or creates the vault at path. A new vault is bound to passphrase;
// an existing one must be opened with the same passphrase.
func Open(path, passphrase string) (*Vault, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	v := &Vault{db: db}
	if err := v.unlock(passphrase); err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

func (v *Vault) unlock(passphrase string) error {
	return v.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSecrets); err != nil {
			return fmt.Errorf("failed to create secrets bucket: %w", err)
		}

		salt := meta.Get(keySalt)
		if salt == nil {
			if salt, err = newSalt(); err != nil {
				return err
			}
			if err := meta.Put(keySalt, salt); err != nil {
				return fmt.Errorf("failed to save salt: %w", err)
			}
		}

		key, err := deriveKey(passphrase, salt)
		if err != nil {
			return err
		}

		if check := meta.Get(keyCheck); check != nil {
			plain, err := open(check, key, keyCheck)
			if err != nil || !bytes.Equal(plain, checkPlaintext) {
				return ErrWrongPassphrase
			}
		} else {
			sealed, err := seal(checkPlaintext, key, keyCheck)
			if err != nil {
				return err
			}
			if err := meta.Put(keyCheck, sealed); err != nil {
				return fmt.Errorf("failed to save check value: %w", err)
			}
		}

		v.key = key
		return nil
	})
}

// Put stores ds, replacing any secret for the same account.
func (v *Vault) Put(_ context.Context, ds model.DeviceSecret) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}

	id := []byte(ds.AccountID)
	sealed, err := seal(data, v.key, id)
	if err != nil {
		return err
	}

	return v.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketSecrets).Put(id, sealed); err != nil {
			return fmt.Errorf("failed to save secret: %w", err)
		}
		return nil
	})
}

// Get returns the secret stored for accountID.
func (v *Vault) Get(_ context.Context, accountID string) (model.DeviceSecret, error) {
	var ds model.DeviceSecret
	err := v.db.View(func(tx *bbolt.Tx) error {
		sealed := tx.Bucket(bucketSecrets).Get([]byte(accountID))
		if sealed == nil {
			return ErrNotFound
		}
		return v.decode([]byte(accountID), sealed, &ds)
	})
	return ds, err
}

// List returns every stored secret ordered by account id.
func (v *Vault) List(_ context.Context) ([]model.DeviceSecret, error) {
	var out []model.DeviceSecret
	err := v.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSecrets).ForEach(func(k, sealed []byte) error {
			var ds model.DeviceSecret
			if err := v.decode(k, sealed, &ds); err != nil {
				return err
			}
			out = append(out, ds)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the secret stored for accountID.
func (v *Vault) Delete(_ context.Context, accountID string) error {
	return v.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSecrets)
		if b.Get([]byte(accountID)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(accountID))
	})
}

// Close closes the underlying database.
func (v *Vault) Close() error {
	if v.db == nil {
		return nil
	}
	return v.db.Close()
}

func (v *Vault) decode(id, sealed []byte, ds *model.DeviceSecret) error {
	plain, err := open(sealed, v.key, id)
	if err != nil {
		return fmt.Errorf("secret %s: %w", id, err)
	}
	if err := json.Unmarshal(plain, ds); err != nil {
		return fmt.Errorf("failed to unmarshal secret %s: %w", id, err)
	}
	return nil
}
