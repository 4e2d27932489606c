package signer

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/dmitrijs2005/filebroker/internal/common"
)

// SecretFetcher is the slice of the secret-store API the key source needs.
// *secretsmanager.Client satisfies it.
type SecretFetcher interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// KeySource loads the active private signing key from the secret store and
// caches it for the lifetime of the process. Invalidate drops the cache so
// the next signing request picks up a rotated key without a process restart.
type KeySource struct {
	mu        sync.Mutex
	secrets   SecretFetcher
	secretARN string

	key     *rsa.PrivateKey
	version uint64
}

// NewKeySource returns a KeySource reading the PEM-encoded key stored under
// secretARN.
func NewKeySource(secrets SecretFetcher, secretARN string) *KeySource {
	return &KeySource{secrets: secrets, secretARN: secretARN}
}

// PrivateKey returns the cached key, fetching and parsing it on first use.
// Any load or parse failure is a signing error: there is no fallback key.
func (k *KeySource) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != nil {
		return k.key, nil
	}

	out, err := k.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &k.secretARN,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: loading private key: %v", common.ErrSigning, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("%w: secret %s has no string value", common.ErrSigning, k.secretARN)
	}

	key, err := ParsePrivateKeyPEM([]byte(*out.SecretString))
	if err != nil {
		return nil, err
	}

	k.key = key
	return k.key, nil
}

// Invalidate drops the cached key and bumps the version stamp. It is meant
// to be called when a completed rotation is detected.
func (k *KeySource) Invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = nil
	k.version++
}

// Version returns how many times the cache has been invalidated. Cold paths
// can compare stamps to detect that a rotation took effect.
func (k *KeySource) Version() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.version
}

// ParsePrivateKeyPEM decodes a PEM block holding an RSA private key in
// either PKCS#1 or PKCS#8 form.
func ParsePrivateKeyPEM(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("%w: secret is not PEM-encoded", common.ErrSigning)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", common.ErrSigning, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: secret holds a non-RSA key", common.ErrSigning)
	}
	return key, nil
}
